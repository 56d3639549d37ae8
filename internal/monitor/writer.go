// Package monitor persists per-account observability projections.
package monitor

import (
	"context"
	"log"

	"scalper-core/internal/account"
	"scalper-core/internal/events"
	"scalper-core/pkg/db"
)

// Writer subscribes to account snapshots and upserts the live_monitor rows.
// It is a pure projection: trading state never reads it back.
type Writer struct {
	DB  *db.Database
	Bus *events.Bus
}

// Run consumes snapshots until ctx is canceled.
func (w *Writer) Run(ctx context.Context) {
	ch, unsub := w.Bus.Subscribe(events.TopicAccountSnapshot, 64)
	defer unsub()

	log.Println("monitor writer started")
	for {
		select {
		case <-ctx.Done():
			log.Println("monitor writer stopped")
			return
		case payload, ok := <-ch:
			if !ok {
				return
			}
			snap, ok := payload.(account.MonitorSnapshot)
			if !ok {
				continue
			}
			if err := w.DB.UpsertLiveMonitor(ctx, db.LiveMonitor{
				UserID:           snap.UserID,
				InitialValue:     snap.InitialValue,
				CurrentValue:     snap.CurrentValue,
				Stoploss:         snap.Stoploss,
				NetProfitPercent: snap.NetProfitPercent,
				ValueAtRisk:      snap.ValueAtRisk,
				Commission:       snap.Commission,
				Profit:           snap.Profit,
			}); err != nil {
				log.Printf("monitor writer: upsert %s: %v", snap.UserID, err)
			}
		}
	}
}
