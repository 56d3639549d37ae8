package signal

import (
	"log"
	"sync"
)

// Router holds one mailbox per linked account and applies the delivery
// policy: entries fan out best-effort, exits are guaranteed delivery.
type Router struct {
	mu        sync.RWMutex
	mailboxes map[string]*Mailbox
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{mailboxes: make(map[string]*Mailbox)}
}

// Register adds an account mailbox. Called during session setup, before the
// dispatcher starts.
func (r *Router) Register(userID string, mb *Mailbox) {
	r.mu.Lock()
	r.mailboxes[userID] = mb
	r.mu.Unlock()
}

// Mailbox returns the mailbox for an account.
func (r *Router) Mailbox(userID string) (*Mailbox, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	mb, ok := r.mailboxes[userID]
	return mb, ok
}

// BroadcastEnter offers an entry signal to every account. A full mailbox
// silently misses the opportunity; the trigger will regenerate.
func (r *Router) BroadcastEnter(s Signal) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, mb := range r.mailboxes {
		mb.TryPut(s)
	}
}

// RouteExit delivers an exit signal to one account, blocking until the
// mailbox accepts it. Losing an exit risks an unmanaged position, so there
// is no timeout.
func (r *Router) RouteExit(userID string, s Signal) {
	r.mu.RLock()
	mb, ok := r.mailboxes[userID]
	r.mu.RUnlock()
	if !ok {
		log.Printf("router: no mailbox for account %s; dropping %s", userID, s.Kind)
		return
	}
	mb.Put(s)
}
