// Package market moves live prices from the broker stream into entry
// signals.
package market

import (
	"context"
	"log"
	"time"

	"scalper-core/internal/session"
	"scalper-core/internal/signal"
	"scalper-core/internal/strategy"
	"scalper-core/pkg/broker/common"
)

// InstrumentInfo resolves a tick's token to its trading symbol.
type InstrumentInfo interface {
	Symbol(token uint32) (string, bool)
}

// Dispatcher drains the tick buffer, advances the trigger tracker and
// broadcasts entry signals. It is the sole owner of the tracker.
type Dispatcher struct {
	Buffer      *Buffer
	Tracker     *strategy.TriggerTracker
	Router      *signal.Router
	Scheduler   *session.Scheduler
	Instruments InstrumentInfo
}

// Run blocks on the tick buffer until ctx is canceled. A bad batch is logged
// and swallowed; the loop must keep serving the session.
func (d *Dispatcher) Run(ctx context.Context) {
	log.Println("dispatcher started")
	for {
		select {
		case <-ctx.Done():
			log.Println("dispatcher stopped")
			return
		case batch := <-d.Buffer.C():
			d.dispatch(batch)
			d.Scheduler.RunPending(time.Now())
		}
	}
}

func (d *Dispatcher) dispatch(batch []common.Tick) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("dispatcher: recovered while processing batch: %v", r)
		}
	}()

	for _, tick := range batch {
		if tick.LastPrice <= 0 {
			continue
		}
		symbol, ok := d.Instruments.Symbol(tick.Token)
		if !ok {
			continue
		}
		if d.Tracker.OnTick(tick.Token, tick.LastPrice) {
			d.Router.BroadcastEnter(signal.Signal{
				Kind:   signal.Enter,
				Token:  tick.Token,
				Symbol: symbol,
				Price:  tick.LastPrice,
			})
		}
	}
}
