package market

import (
	"sync"

	"scalper-core/pkg/broker/common"
)

// DefaultBufferSize keeps the tick backlog short: a live price that sat in a
// queue is worse than one that never arrived.
const DefaultBufferSize = 5

// Buffer is the bounded tick-batch queue between the streaming source and
// the dispatcher, with a drop-oldest overflow policy.
type Buffer struct {
	mu      sync.Mutex
	ch      chan []common.Tick
	dropped uint64
}

// NewBuffer creates a buffer with the given capacity.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultBufferSize
	}
	return &Buffer{ch: make(chan []common.Tick, capacity)}
}

// Push enqueues a batch. When the buffer is full the oldest buffered batch
// is discarded first — freshness over completeness.
func (b *Buffer) Push(batch []common.Tick) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for {
		select {
		case b.ch <- batch:
			return
		default:
		}
		select {
		case <-b.ch:
			b.dropped++
		default:
		}
	}
}

// C is the dispatcher's receive side.
func (b *Buffer) C() <-chan []common.Tick {
	return b.ch
}

// Dropped returns how many batches were discarded under backpressure.
func (b *Buffer) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}
