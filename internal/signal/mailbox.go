package signal

import (
	"container/heap"
	"sync"
)

// DefaultMailboxSize bounds each account's signal backlog.
const DefaultMailboxSize = 100

// Mailbox is a bounded, stable two-level priority queue. High-priority
// signals dequeue before any low-priority signal queued at or before them;
// within a level, arrival order is preserved.
//
// Put blocks while the mailbox is full and is used for exits, which must
// never be lost. TryPut drops instead of blocking and is used for entries,
// which regenerate continuously.
type Mailbox struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond
	items    entryHeap
	capacity int
	seq      uint64
}

type entry struct {
	sig Signal
	pri Priority
	seq uint64
}

type entryHeap []entry

func (h entryHeap) Len() int { return len(h) }
func (h entryHeap) Less(i, j int) bool {
	if h[i].pri != h[j].pri {
		return h[i].pri < h[j].pri
	}
	return h[i].seq < h[j].seq
}
func (h entryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *entryHeap) Push(x any)   { *h = append(*h, x.(entry)) }
func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

// NewMailbox creates a mailbox with the given capacity.
func NewMailbox(capacity int) *Mailbox {
	if capacity <= 0 {
		capacity = DefaultMailboxSize
	}
	m := &Mailbox{capacity: capacity}
	m.notEmpty = sync.NewCond(&m.mu)
	m.notFull = sync.NewCond(&m.mu)
	return m
}

// Put inserts a signal, blocking until space is available.
func (m *Mailbox) Put(s Signal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for m.items.Len() >= m.capacity {
		m.notFull.Wait()
	}
	m.push(s)
	m.notEmpty.Signal()
}

// TryPut inserts a signal without blocking. It returns false when the
// mailbox is full and the signal was dropped.
func (m *Mailbox) TryPut(s Signal) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.items.Len() >= m.capacity {
		return false
	}
	m.push(s)
	m.notEmpty.Signal()
	return true
}

// Get removes and returns the highest-priority signal, blocking until one is
// available.
func (m *Mailbox) Get() Signal {
	m.mu.Lock()
	defer m.mu.Unlock()
	for m.items.Len() == 0 {
		m.notEmpty.Wait()
	}
	e := heap.Pop(&m.items).(entry)
	m.notFull.Signal()
	return e.sig
}

// Len returns the number of queued signals.
func (m *Mailbox) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items.Len()
}

func (m *Mailbox) push(s Signal) {
	m.seq++
	heap.Push(&m.items, entry{sig: s, pri: s.Priority(), seq: m.seq})
}
