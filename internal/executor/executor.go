// Package executor runs one trading worker per linked account, consuming
// the account's signal mailbox.
package executor

import (
	"context"
	"log"
	"time"

	"scalper-core/internal/account"
	"scalper-core/internal/events"
	"scalper-core/internal/instrument"
	"scalper-core/internal/risk"
	"scalper-core/internal/session"
	"scalper-core/internal/signal"
	"scalper-core/pkg/broker/common"
)

// Worker is one account's trade executor. It is the only goroutine placing
// orders for its account; the reconciler owns the fill side.
type Worker struct {
	State    *account.State
	Gateway  common.Gateway
	Mailbox  *signal.Mailbox
	Session  *session.Session
	Universe *instrument.Universe
	Params   risk.Params
	Bus      *events.Bus
}

// Run consumes the mailbox until ctx is canceled. One bad signal must not
// halt trading for the account: per-signal errors are logged and the loop
// continues.
func (w *Worker) Run(ctx context.Context) {
	userID := w.State.UserID()
	log.Printf("executor %s started", userID)
	for {
		sig, ok := w.next(ctx)
		if !ok {
			log.Printf("executor %s stopped", userID)
			return
		}
		if err := w.handle(ctx, sig); err != nil {
			log.Printf("executor %s: %s %s: %v", userID, sig.Kind, sig.Symbol, err)
		}
	}
}

// next blocks on the mailbox, bailing out when ctx ends. Mailbox.Get has no
// cancellation of its own, so the blocking receive runs on a helper
// goroutine; at most one is parked per worker shutdown.
func (w *Worker) next(ctx context.Context) (signal.Signal, bool) {
	got := make(chan signal.Signal, 1)
	go func() { got <- w.Mailbox.Get() }()
	select {
	case <-ctx.Done():
		return signal.Signal{}, false
	case sig := <-got:
		return sig, true
	}
}

func (w *Worker) handle(ctx context.Context, sig signal.Signal) error {
	switch sig.Kind {
	case signal.Enter:
		return w.enter(ctx, sig)
	case signal.Exit:
		return w.exit(ctx, sig)
	case signal.ExitNow:
		return w.exitNow(ctx, sig)
	}
	return nil
}

// enter applies admission control and places a market buy.
func (w *Worker) enter(ctx context.Context, sig signal.Signal) error {
	if !w.Session.EntryOpen(time.Now()) {
		return nil
	}
	if !w.State.AdmitEntry(sig.Token) {
		return nil
	}

	ins, ok := w.Universe.Get(sig.Token)
	if !ok {
		return nil
	}
	qty := w.State.EntryQuantity(sig.Price, ins.Margin)
	if qty == 0 {
		return nil
	}

	res, err := w.Gateway.PlaceOrder(ctx, common.OrderRequest{
		UserID: w.State.UserID(),
		Token:  sig.Token,
		Symbol: sig.Symbol,
		Side:   common.SideBuy,
		Type:   common.OrderTypeMarket,
		Qty:    qty,
		Price:  sig.Price,
	})
	if err != nil {
		// account stays idle; a later signal retries
		return err
	}

	w.State.SetPendingOrder(res.OrderID)
	w.publish(events.TopicOrderPlaced, res.OrderID)
	log.Printf("executor %s: entry BUY %s qty=%d @ ~%.2f order=%s", w.State.UserID(), sig.Symbol, qty, sig.Price, res.OrderID)
	return nil
}

// exit places the limit sell at the target price for a freshly filled
// position. A position already exit-pending is left alone.
func (w *Worker) exit(ctx context.Context, sig signal.Signal) error {
	pos := sig.Position
	if pos == nil {
		return nil
	}
	if _, pending := w.State.ExitOrder(pos); pending {
		return nil
	}

	target := w.Params.TargetPrice(pos.EntryPrice)
	res, err := w.Gateway.PlaceOrder(ctx, common.OrderRequest{
		UserID: w.State.UserID(),
		Token:  pos.Token,
		Symbol: pos.Symbol,
		Side:   common.SideSell,
		Type:   common.OrderTypeLimit,
		Qty:    pos.Quantity,
		Price:  target,
	})
	if err != nil {
		return err
	}

	w.State.MarkExitPending(pos, res.OrderID)
	w.publish(events.TopicOrderPlaced, res.OrderID)
	log.Printf("executor %s: exit SELL %s qty=%d @ %.2f order=%s", w.State.UserID(), pos.Symbol, pos.Quantity, target, res.OrderID)
	return nil
}

// exitNow force-liquidates a position at market. A resting exit order is
// converted in place; a position with no exit order yet gets a market sell
// directly, so session close leaves nothing unmanaged.
func (w *Worker) exitNow(ctx context.Context, sig signal.Signal) error {
	pos := sig.Position
	if pos == nil {
		return nil
	}

	if orderID, pending := w.State.ExitOrder(pos); pending {
		if err := w.Gateway.ModifyOrder(ctx, orderID, common.OrderTypeMarket); err != nil {
			return err
		}
		log.Printf("executor %s: converted exit %s to MARKET for %s", w.State.UserID(), orderID, pos.Symbol)
		return nil
	}

	res, err := w.Gateway.PlaceOrder(ctx, common.OrderRequest{
		UserID: w.State.UserID(),
		Token:  pos.Token,
		Symbol: pos.Symbol,
		Side:   common.SideSell,
		Type:   common.OrderTypeMarket,
		Qty:    pos.Quantity,
		Price:  pos.EntryPrice,
	})
	if err != nil {
		return err
	}
	w.State.MarkExitPending(pos, res.OrderID)
	log.Printf("executor %s: forced MARKET exit %s for %s", w.State.UserID(), res.OrderID, pos.Symbol)
	return nil
}

func (w *Worker) publish(topic events.Topic, payload any) {
	if w.Bus != nil {
		w.Bus.Publish(topic, payload)
	}
}
