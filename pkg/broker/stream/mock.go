package stream

import (
	"context"
	"math/rand"
	"time"

	"scalper-core/pkg/broker/common"
)

// MockFeed generates synthetic tick batches for local development.
type MockFeed struct {
	Tokens     []uint32
	StartPrice float64
	Step       float64
	Interval   time.Duration
	OnBatch    func([]common.Tick)
}

// Run emits random-walk batches until ctx is canceled.
func (m *MockFeed) Run(ctx context.Context) {
	prices := make(map[uint32]float64, len(m.Tokens))
	start := m.StartPrice
	if start == 0 {
		start = 100.0
	}
	step := m.Step
	if step == 0 {
		step = 0.25
	}
	interval := m.Interval
	if interval == 0 {
		interval = time.Second
	}
	for _, tok := range m.Tokens {
		prices[tok] = start
	}

	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			batch := make([]common.Tick, 0, len(m.Tokens))
			for _, tok := range m.Tokens {
				// simple random walk
				prices[tok] += (rand.Float64()*2 - 1) * step
				if prices[tok] < step {
					prices[tok] = step
				}
				batch = append(batch, common.Tick{Token: tok, LastPrice: prices[tok]})
			}
			if m.OnBatch != nil {
				m.OnBatch(batch)
			}
		}
	}
}
