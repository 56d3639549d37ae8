// Package reconcile correlates asynchronous broker postbacks against
// pending orders and drives the fill side of the position lifecycle.
package reconcile

import (
	"context"
	"log"
	"time"

	"scalper-core/internal/account"
	"scalper-core/internal/events"
	"scalper-core/internal/signal"
	"scalper-core/pkg/broker/common"
)

// DefaultSettleDelay covers the broker-side race where a postback arrives
// before the placing call has returned the order id to the executor.
const DefaultSettleDelay = 300 * time.Millisecond

// SymbolResolver maps an instrument token to its trading symbol.
type SymbolResolver interface {
	Symbol(token uint32) (string, bool)
}

// Reconciler is the single consumer of the broker's order-update channel
// and the single writer for fill-driven state transitions.
type Reconciler struct {
	Updates     <-chan common.OrderUpdate
	Accounts    map[string]*account.State
	Gateways    map[string]common.Gateway
	Instruments SymbolResolver
	Router      *signal.Router
	Bus         *events.Bus
	SettleDelay time.Duration

	seen map[string]bool // terminal order ids already applied
}

// Run drains the update channel until ctx is canceled. Every update is
// processed in isolation; a bad postback is logged and dropped.
func (r *Reconciler) Run(ctx context.Context) {
	if r.SettleDelay == 0 {
		r.SettleDelay = DefaultSettleDelay
	}
	if r.seen == nil {
		r.seen = make(map[string]bool)
	}

	log.Println("reconciler started")
	for {
		select {
		case <-ctx.Done():
			log.Println("reconciler stopped")
			return
		case upd := <-r.Updates:
			// Give the placing call time to record the order id.
			time.Sleep(r.SettleDelay)
			r.process(ctx, upd)
		}
	}
}

func (r *Reconciler) process(ctx context.Context, upd common.OrderUpdate) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("reconciler: recovered processing order %s: %v", upd.OrderID, rec)
		}
	}()

	if !upd.Status.Terminal() {
		return
	}
	if r.seen[upd.OrderID] {
		log.Printf("reconciler: duplicate postback for order %s ignored", upd.OrderID)
		return
	}

	acct, ok := r.Accounts[upd.UserID]
	if !ok {
		return
	}

	if acct.IsPendingOrder(upd.OrderID) {
		r.applyEntry(ctx, acct, upd)
		return
	}
	if upd.Status == common.StatusComplete {
		r.applyExit(ctx, acct, upd)
	}
	// anything else is an unrecognized update; ignore
}

// applyEntry settles the account's pending entry order.
func (r *Reconciler) applyEntry(ctx context.Context, acct *account.State, upd common.OrderUpdate) {
	switch upd.Status {
	case common.StatusCancelled, common.StatusRejected:
		acct.ClearPendingOrder()
		r.seen[upd.OrderID] = true
		r.publish(events.TopicOrderRejected, upd)
		log.Printf("reconciler: entry %s %s for %s; account idle", upd.OrderID, upd.Status, upd.UserID)
		return

	case common.StatusComplete:
		if upd.FilledQuantity <= 0 || upd.AveragePrice <= 0 {
			log.Printf("reconciler: entry fill %s has bad fill figures; ignored", upd.OrderID)
			return
		}
		symbol := r.symbolFor(upd.Token)
		pos := acct.ApplyEntryFill(upd.Token, symbol, upd.FilledQuantity, upd.AveragePrice, r.refreshFunds(ctx, acct, upd.UserID))
		r.seen[upd.OrderID] = true

		r.publish(events.TopicOrderFilled, upd)
		r.publish(events.TopicAccountSnapshot, acct.Snapshot())
		log.Printf("reconciler: entry filled %s %s qty=%d @ %.2f", upd.UserID, symbol, upd.FilledQuantity, upd.AveragePrice)

		// Queue the target exit for the new position.
		r.Router.RouteExit(upd.UserID, signal.Signal{
			Kind:     signal.Exit,
			Token:    pos.Token,
			Symbol:   pos.Symbol,
			Position: pos,
		})
	}
}

// applyExit settles a completed exit order against its open position.
func (r *Reconciler) applyExit(ctx context.Context, acct *account.State, upd common.OrderUpdate) {
	pos, ok := acct.ApplyExitFill(upd.OrderID, upd.AveragePrice, r.refreshFunds(ctx, acct, upd.UserID))
	if !ok {
		return
	}
	r.seen[upd.OrderID] = true

	r.publish(events.TopicOrderFilled, upd)
	r.publish(events.TopicAccountSnapshot, acct.Snapshot())
	log.Printf("reconciler: exit filled %s %s qty=%d @ %.2f", upd.UserID, pos.Symbol, pos.Quantity, upd.AveragePrice)
}

// refreshFunds polls the account's live balance after a fill. On error the
// cached figure is kept; a funds hiccup must not lose the fill.
func (r *Reconciler) refreshFunds(ctx context.Context, acct *account.State, userID string) float64 {
	gw, ok := r.Gateways[userID]
	if !ok {
		return acct.Funds()
	}
	funds, err := gw.AvailableFunds(ctx)
	if err != nil {
		log.Printf("reconciler: funds refresh for %s failed: %v", userID, err)
		return acct.Funds()
	}
	return funds
}

// symbolFor resolves a postback's token; postbacks carry no symbol.
func (r *Reconciler) symbolFor(token uint32) string {
	if r.Instruments == nil {
		return ""
	}
	sym, _ := r.Instruments.Symbol(token)
	return sym
}

func (r *Reconciler) publish(topic events.Topic, payload any) {
	if r.Bus != nil {
		r.Bus.Publish(topic, payload)
	}
}
