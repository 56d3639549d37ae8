// Package account owns the per-account trading state. Two goroutines mutate
// it — the account's executor (signal-driven transitions) and the postback
// reconciler (fill-driven transitions) — so every read-modify-write happens
// inside a method holding the account mutex.
package account

import (
	"sync"

	"scalper-core/internal/risk"
)

// Position is one open long position. Fields are mutated only through State
// methods, under the owning account's mutex.
type Position struct {
	UserID      string
	Token       uint32
	Symbol      string
	Quantity    int64
	EntryPrice  float64
	ExitPending bool
	ExitOrderID string // set once ExitPending is true
}

// MonitorSnapshot is the write-only observability projection of an account.
type MonitorSnapshot struct {
	UserID           string
	InitialValue     float64
	CurrentValue     float64
	Stoploss         float64
	NetProfitPercent float64
	ValueAtRisk      float64
	Commission       float64
	Profit           float64
}

// State is one linked account's trading state for the session.
type State struct {
	mu sync.Mutex

	userID              string
	initialValue        float64
	targetValue         float64
	netValue            float64
	stoplossFloor       float64 // monotonically non-decreasing
	targetStoplossFloor float64
	amountAtRisk        float64
	commission          float64
	fundsAvailable      float64
	pendingOrderID      string
	positions           []*Position

	params risk.Params
}

// NewState seeds an account's session state from its live funds.
func NewState(userID string, funds float64, p risk.Params) *State {
	return &State{
		userID:              userID,
		initialValue:        funds,
		targetValue:         funds * (100.0 + p.AccountTargetPct) / 100.0,
		netValue:            funds,
		stoplossFloor:       (100.0 - p.AccountStoplossPct) * funds / 100.0,
		targetStoplossFloor: p.AccountTargetSLPct * funds / 100.0,
		fundsAvailable:      funds,
		params:              p,
	}
}

// UserID returns the account's user id.
func (s *State) UserID() string { return s.userID }

// AdmitEntry applies the account-local admission checks for a new entry in
// the given instrument: net value above the stoploss floor, no pending
// order, and no live (non-exit-pending) position in the instrument.
func (s *State) AdmitEntry(token uint32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pendingOrderID != "" {
		return false
	}
	if s.netValue <= s.stoplossFloor {
		return false
	}
	for _, p := range s.positions {
		if p.Token == token && !p.ExitPending {
			return false
		}
	}
	return true
}

// EntryQuantity sizes a new entry at price for an instrument with the given
// leverage margin.
func (s *State) EntryQuantity(price, margin float64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params.PositionQuantity(s.netValue, s.amountAtRisk, s.stoplossFloor, s.fundsAvailable, margin, price)
}

// SetPendingOrder records the in-flight entry order id.
func (s *State) SetPendingOrder(orderID string) {
	s.mu.Lock()
	s.pendingOrderID = orderID
	s.mu.Unlock()
}

// ClearPendingOrder returns the account to idle (entry cancelled/rejected).
func (s *State) ClearPendingOrder() {
	s.mu.Lock()
	s.pendingOrderID = ""
	s.mu.Unlock()
}

// IsPendingOrder reports whether orderID is this account's in-flight entry.
func (s *State) IsPendingOrder(orderID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingOrderID != "" && s.pendingOrderID == orderID
}

// ApplyEntryFill turns a fill postback for the pending entry order into an
// open position: reserves its risk, refreshes funds and clears the pending
// order id. Returns the new position for exit routing.
func (s *State) ApplyEntryFill(token uint32, symbol string, qty int64, avgPrice, funds float64) *Position {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos := &Position{
		UserID:     s.userID,
		Token:      token,
		Symbol:     symbol,
		Quantity:   qty,
		EntryPrice: avgPrice,
	}
	s.positions = append(s.positions, pos)
	s.amountAtRisk += s.params.ReservedRisk(avgPrice, qty)
	s.fundsAvailable = funds
	s.pendingOrderID = ""
	return pos
}

// MarkExitPending transitions a position to exit-pending with its exit order
// id. Returns false when the position was already exit-pending.
func (s *State) MarkExitPending(pos *Position, orderID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pos.ExitPending {
		return false
	}
	pos.ExitPending = true
	pos.ExitOrderID = orderID
	return true
}

// ExitOrder returns the position's exit order id, if one is resting.
func (s *State) ExitOrder(pos *Position) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !pos.ExitPending {
		return "", false
	}
	return pos.ExitOrderID, true
}

// ApplyExitFill settles the position whose exit order matches orderID at the
// realized price: books profit net of commission, ratchets the stoploss
// floor, releases the reserved risk and removes the position. The boolean is
// false when no open position matches.
func (s *State) ApplyExitFill(orderID string, exitPrice, funds float64) (*Position, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, pos := range s.positions {
		if !pos.ExitPending || pos.ExitOrderID != orderID {
			continue
		}

		qty := float64(pos.Quantity)
		profit := (exitPrice - pos.EntryPrice) * qty
		commission := risk.Commission(pos.EntryPrice*qty, exitPrice*qty)

		s.commission += commission
		s.netValue += profit - commission
		s.stoplossFloor = s.params.RatchetFloor(s.stoplossFloor, s.netValue, s.targetValue, s.targetStoplossFloor)
		s.amountAtRisk -= s.params.ReservedRisk(pos.EntryPrice, pos.Quantity)
		s.fundsAvailable = funds
		s.positions = append(s.positions[:i], s.positions[i+1:]...)
		return pos, true
	}
	return nil, false
}

// OpenPositions returns the current open positions. The returned pointers
// stay owned by the account; callers pass them back through State methods.
func (s *State) OpenPositions() []*Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Position, len(s.positions))
	copy(out, s.positions)
	return out
}

// PositionViews returns copies of the open positions for read-only display.
func (s *State) PositionViews() []Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Position, 0, len(s.positions))
	for _, p := range s.positions {
		out = append(out, *p)
	}
	return out
}

// Snapshot derives the monitor projection.
func (s *State) Snapshot() MonitorSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return MonitorSnapshot{
		UserID:           s.userID,
		InitialValue:     s.initialValue,
		CurrentValue:     s.netValue,
		Stoploss:         s.stoplossFloor,
		NetProfitPercent: (s.netValue - s.initialValue) * 100.0 / s.initialValue,
		ValueAtRisk:      s.amountAtRisk,
		Commission:       s.commission,
		Profit:           s.netValue - s.initialValue + s.commission,
	}
}

// NetValue returns the current account net value.
func (s *State) NetValue() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.netValue
}

// StoplossFloor returns the current account stoploss floor.
func (s *State) StoplossFloor() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stoplossFloor
}

// Funds returns the cached available-funds figure.
func (s *State) Funds() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fundsAvailable
}

// SetFunds refreshes the cached available-funds figure.
func (s *State) SetFunds(funds float64) {
	s.mu.Lock()
	s.fundsAvailable = funds
	s.mu.Unlock()
}
