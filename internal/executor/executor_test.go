package executor

import (
	"context"
	"fmt"
	"testing"
	"time"

	"scalper-core/internal/account"
	"scalper-core/internal/instrument"
	"scalper-core/internal/risk"
	"scalper-core/internal/session"
	"scalper-core/internal/signal"
	"scalper-core/pkg/broker/common"
)

type recordingGateway struct {
	placed   []common.OrderRequest
	modified []string
	nextID   int
}

func (g *recordingGateway) PlaceOrder(_ context.Context, req common.OrderRequest) (common.OrderResult, error) {
	g.placed = append(g.placed, req)
	g.nextID++
	return common.OrderResult{OrderID: fmt.Sprintf("ord-%d", g.nextID)}, nil
}

func (g *recordingGateway) ModifyOrder(_ context.Context, orderID string, _ common.OrderType) error {
	g.modified = append(g.modified, orderID)
	return nil
}

func (g *recordingGateway) AvailableFunds(context.Context) (float64, error) { return 100000, nil }

func testParams() risk.Params {
	return risk.Params{
		MaxRiskPctPerTrade:    1.0,
		MaxPositionInvestment: 50000,
		MinPositionInvestment: 5000,
		StoplossPct:           2.0,
		TargetPct:             0.75,
		AccountStoplossPct:    5.0,
		AccountTargetSLPct:    2.0,
		AccountTargetPct:      10.0,
	}
}

func newWorker() (*Worker, *recordingGateway) {
	gw := &recordingGateway{}
	w := &Worker{
		State:    account.NewState("U1", 100000, testParams()),
		Gateway:  gw,
		Mailbox:  signal.NewMailbox(10),
		Session:  session.New(time.Now().Add(-time.Hour)),
		Universe: instrument.NewUniverse([]instrument.Instrument{{Token: 1, Symbol: "RELIANCE", Margin: 1}}),
		Params:   testParams(),
	}
	return w, gw
}

func TestEnterPlacesMarketBuy(t *testing.T) {
	w, gw := newWorker()

	sig := signal.Signal{Kind: signal.Enter, Token: 1, Symbol: "RELIANCE", Price: 100.0}
	if err := w.handle(context.Background(), sig); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if len(gw.placed) != 1 {
		t.Fatalf("orders placed = %d, want 1", len(gw.placed))
	}
	req := gw.placed[0]
	if req.Side != common.SideBuy || req.Type != common.OrderTypeMarket {
		t.Fatalf("order = %+v, want MARKET BUY", req)
	}
	if req.Qty != 495 {
		t.Fatalf("quantity = %d, want 495", req.Qty)
	}
	if !w.State.IsPendingOrder("ord-1") {
		t.Fatal("pending order id not recorded")
	}
}

func TestEnterSkippedWhileOrderPending(t *testing.T) {
	w, gw := newWorker()
	w.State.SetPendingOrder("inflight")

	sig := signal.Signal{Kind: signal.Enter, Token: 1, Symbol: "RELIANCE", Price: 100.0}
	if err := w.handle(context.Background(), sig); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(gw.placed) != 0 {
		t.Fatal("entry placed while another order was pending")
	}
}

func TestEnterSkippedAfterEntriesBlocked(t *testing.T) {
	w, gw := newWorker()
	w.Session.BlockEntries()

	sig := signal.Signal{Kind: signal.Enter, Token: 1, Symbol: "RELIANCE", Price: 100.0}
	if err := w.handle(context.Background(), sig); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(gw.placed) != 0 {
		t.Fatal("entry placed after the entry window closed")
	}
}

func TestEnterSkippedForUnknownInstrument(t *testing.T) {
	w, gw := newWorker()

	sig := signal.Signal{Kind: signal.Enter, Token: 999, Symbol: "GHOST", Price: 100.0}
	if err := w.handle(context.Background(), sig); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(gw.placed) != 0 {
		t.Fatal("entry placed for an instrument outside the universe")
	}
}

func TestExitPlacesLimitSellAtTarget(t *testing.T) {
	w, gw := newWorker()
	pos := w.State.ApplyEntryFill(1, "RELIANCE", 495, 100.0, 50500)

	sig := signal.Signal{Kind: signal.Exit, Token: 1, Symbol: "RELIANCE", Position: pos}
	if err := w.handle(context.Background(), sig); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if len(gw.placed) != 1 {
		t.Fatalf("orders placed = %d, want 1", len(gw.placed))
	}
	req := gw.placed[0]
	if req.Side != common.SideSell || req.Type != common.OrderTypeLimit {
		t.Fatalf("order = %+v, want LIMIT SELL", req)
	}
	if req.Price != 100.75 {
		t.Fatalf("limit price = %v, want 100.75", req.Price)
	}
	if id, ok := w.State.ExitOrder(pos); !ok || id != "ord-1" {
		t.Fatalf("exit order id = %q, want ord-1", id)
	}

	// A second exit signal for the same position is a no-op.
	if err := w.handle(context.Background(), sig); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(gw.placed) != 1 {
		t.Fatal("duplicate exit signal placed a second order")
	}
}

func TestExitNowConvertsRestingOrder(t *testing.T) {
	w, gw := newWorker()
	pos := w.State.ApplyEntryFill(1, "RELIANCE", 495, 100.0, 50500)
	w.State.MarkExitPending(pos, "x1")

	sig := signal.Signal{Kind: signal.ExitNow, Token: 1, Symbol: "RELIANCE", Position: pos}
	if err := w.handle(context.Background(), sig); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if len(gw.modified) != 1 || gw.modified[0] != "x1" {
		t.Fatalf("modified = %v, want [x1]", gw.modified)
	}
	if len(gw.placed) != 0 {
		t.Fatal("conversion also placed a new order")
	}
}

func TestExitNowPlacesMarketSellWithoutRestingOrder(t *testing.T) {
	w, gw := newWorker()
	pos := w.State.ApplyEntryFill(1, "RELIANCE", 495, 100.0, 50500)

	sig := signal.Signal{Kind: signal.ExitNow, Token: 1, Symbol: "RELIANCE", Position: pos}
	if err := w.handle(context.Background(), sig); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if len(gw.placed) != 1 {
		t.Fatalf("orders placed = %d, want 1", len(gw.placed))
	}
	req := gw.placed[0]
	if req.Side != common.SideSell || req.Type != common.OrderTypeMarket {
		t.Fatalf("order = %+v, want MARKET SELL", req)
	}
	if _, ok := w.State.ExitOrder(pos); !ok {
		t.Fatal("forced exit not recorded on the position")
	}
}
