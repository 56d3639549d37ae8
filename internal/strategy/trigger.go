// Package strategy holds the entry-signal generation logic.
package strategy

// TriggerTracker maintains the per-instrument trailing entry trigger. It is
// owned by the dispatcher goroutine and must not be shared; no internal
// locking.
//
// The trigger only ever tightens upward as the price rises, and resets below
// the price on a breach. A tick at or under the trigger is a breakout entry.
type TriggerTracker struct {
	factor   float64 // (100 - entryTriggerPct) / 100
	triggers map[uint32]float64
}

// NewTriggerTracker creates a tracker. entryTriggerPct is the trail distance
// as a percentage of price (e.g. 0.35 means the trigger trails 0.35% below).
func NewTriggerTracker(entryTriggerPct float64) *TriggerTracker {
	return &TriggerTracker{
		factor:   (100.0 - entryTriggerPct) / 100.0,
		triggers: make(map[uint32]float64),
	}
}

// OnTick advances the trigger for one instrument. It returns true when the
// tick breached the trigger, i.e. an entry opportunity fired at price.
func (t *TriggerTracker) OnTick(token uint32, price float64) bool {
	trigger := t.triggers[token] // zero value: first tick never fires
	if price <= trigger {
		// breached: reset the trigger below the new price
		t.triggers[token] = price * t.factor
		return true
	}
	if next := price * t.factor; next > trigger {
		t.triggers[token] = next
	}
	return false
}

// Trigger returns the current trigger price for a token.
func (t *TriggerTracker) Trigger(token uint32) float64 {
	return t.triggers[token]
}
