package paper

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"scalper-core/pkg/broker/common"
)

// Gateway simulates one account's broker session. Market orders fill after a
// short latency; limit orders rest until converted to market or filled
// explicitly. Fills surface only on the updates channel, never from
// PlaceOrder itself, mirroring the live broker's asynchronous postbacks.
type Gateway struct {
	UserID      string
	Balance     float64
	FillLatency time.Duration

	mu      sync.Mutex
	resting map[string]common.OrderRequest
	updates chan<- common.OrderUpdate
}

// New creates a paper gateway emitting postbacks into updates.
func New(userID string, balance float64, updates chan<- common.OrderUpdate) *Gateway {
	return &Gateway{
		UserID:      userID,
		Balance:     balance,
		FillLatency: 20 * time.Millisecond,
		resting:     make(map[string]common.OrderRequest),
		updates:     updates,
	}
}

// PlaceOrder accepts the order and simulates the broker's async lifecycle.
func (g *Gateway) PlaceOrder(_ context.Context, req common.OrderRequest) (common.OrderResult, error) {
	if req.Qty <= 0 {
		return common.OrderResult{}, errors.New("paper: quantity must be positive")
	}
	orderID := uuid.NewString()

	switch req.Type {
	case common.OrderTypeMarket:
		go g.fillAfter(orderID, req, req.Price)
	case common.OrderTypeLimit:
		g.mu.Lock()
		g.resting[orderID] = req
		g.mu.Unlock()
	default:
		return common.OrderResult{}, errors.New("paper: unsupported order type " + string(req.Type))
	}
	return common.OrderResult{OrderID: orderID}, nil
}

// ModifyOrder converts a resting limit order to market, filling it at its
// limit price.
func (g *Gateway) ModifyOrder(_ context.Context, orderID string, newType common.OrderType) error {
	if newType != common.OrderTypeMarket {
		return errors.New("paper: only conversion to MARKET is supported")
	}
	g.mu.Lock()
	req, ok := g.resting[orderID]
	if ok {
		delete(g.resting, orderID)
	}
	g.mu.Unlock()
	if !ok {
		return errors.New("paper: no resting order " + orderID)
	}
	go g.fillAfter(orderID, req, req.Price)
	return nil
}

// AvailableFunds returns the configured balance.
func (g *Gateway) AvailableFunds(context.Context) (float64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.Balance, nil
}

// FillResting fills a resting limit order at price, as if the market traded
// through it. Used by tests to simulate the target being hit.
func (g *Gateway) FillResting(orderID string, price float64) bool {
	g.mu.Lock()
	req, ok := g.resting[orderID]
	if ok {
		delete(g.resting, orderID)
	}
	g.mu.Unlock()
	if !ok {
		return false
	}
	g.fillAfter(orderID, req, price)
	return true
}

// RestingOrders returns the ids of orders currently on the simulated book.
func (g *Gateway) RestingOrders() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	ids := make([]string, 0, len(g.resting))
	for id := range g.resting {
		ids = append(ids, id)
	}
	return ids
}

func (g *Gateway) fillAfter(orderID string, req common.OrderRequest, price float64) {
	if g.FillLatency > 0 {
		time.Sleep(g.FillLatency)
	}
	g.updates <- common.OrderUpdate{
		UserID:         g.UserID,
		OrderID:        orderID,
		Token:          req.Token,
		Status:         common.StatusComplete,
		AveragePrice:   price,
		FilledQuantity: req.Qty,
	}
}
