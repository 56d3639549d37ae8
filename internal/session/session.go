// Package session tracks the trading day's phases: when entries open, when
// they cut off, and when everything is force-liquidated.
package session

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Session holds the global entry gate and the day's boundary times.
type Session struct {
	entriesAllowed atomic.Bool
	entryStart     time.Time
}

// New creates a session with entries allowed and the given entry-window
// start for today.
func New(entryStart time.Time) *Session {
	s := &Session{entryStart: entryStart}
	s.entriesAllowed.Store(true)
	return s
}

// EntryOpen reports whether a new entry may be admitted at now: the global
// flag is still up and the entry window has started.
func (s *Session) EntryOpen(now time.Time) bool {
	return s.entriesAllowed.Load() && !now.Before(s.entryStart)
}

// BlockEntries flips the global gate; existing positions continue to be
// managed.
func (s *Session) BlockEntries() {
	s.entriesAllowed.Store(false)
}

// EntriesAllowed reports the global gate.
func (s *Session) EntriesAllowed() bool {
	return s.entriesAllowed.Load()
}

// At resolves a "HH:MM:SS" time of day against day in the local timezone.
func At(day time.Time, hhmmss string) (time.Time, error) {
	var h, m, sec int
	if _, err := fmt.Sscanf(hhmmss, "%d:%d:%d", &h, &m, &sec); err != nil {
		return time.Time{}, fmt.Errorf("parse time of day %q: %w", hhmmss, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 || sec < 0 || sec > 59 {
		return time.Time{}, fmt.Errorf("time of day %q out of range", hhmmss)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), h, m, sec, 0, day.Location()), nil
}
