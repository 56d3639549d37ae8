// Package signal defines the trading signals and the per-account priority
// mailboxes they travel through.
package signal

import "scalper-core/internal/account"

// Kind is the closed set of signal variants.
type Kind int

const (
	// Enter proposes opening a position in an instrument at a price.
	Enter Kind = iota
	// Exit asks the executor to place the target exit order for a position.
	Exit
	// ExitNow forces liquidation of a position at market.
	ExitNow
)

func (k Kind) String() string {
	switch k {
	case Enter:
		return "ENTER"
	case Exit:
		return "EXIT"
	case ExitNow:
		return "EXIT_NOW"
	}
	return "UNKNOWN"
}

// Priority orders signals within a mailbox. Lower dequeues first; ties
// preserve arrival order.
type Priority int

const (
	PriorityHigh Priority = iota // Exit, ExitNow
	PriorityLow                  // Enter
)

// Signal is the tagged union carried through mailboxes. Enter carries
// Token/Symbol/Price; Exit and ExitNow carry the position.
type Signal struct {
	Kind     Kind
	Token    uint32
	Symbol   string
	Price    float64
	Position *account.Position
}

// Priority maps the variant to its dispatch priority: exits always beat
// entries.
func (s Signal) Priority() Priority {
	if s.Kind == Enter {
		return PriorityLow
	}
	return PriorityHigh
}
