package session

import (
	"testing"
	"time"
)

func TestAt(t *testing.T) {
	day := time.Date(2025, 6, 2, 11, 0, 0, 0, time.Local)

	got, err := At(day, "09:25:00")
	if err != nil {
		t.Fatalf("At: %v", err)
	}
	want := time.Date(2025, 6, 2, 9, 25, 0, 0, time.Local)
	if !got.Equal(want) {
		t.Fatalf("At = %v, want %v", got, want)
	}

	for _, bad := range []string{"", "25:00:00", "09:61:00", "nine"} {
		if _, err := At(day, bad); err == nil {
			t.Fatalf("At(%q) accepted invalid input", bad)
		}
	}
}

func TestEntryGate(t *testing.T) {
	start := time.Date(2025, 6, 2, 9, 25, 0, 0, time.Local)
	s := New(start)

	if s.EntryOpen(start.Add(-time.Minute)) {
		t.Fatal("entries open before the window start")
	}
	if !s.EntryOpen(start) {
		t.Fatal("entries closed at the window start")
	}
	if !s.EntryOpen(start.Add(time.Hour)) {
		t.Fatal("entries closed inside the window")
	}

	s.BlockEntries()
	if s.EntryOpen(start.Add(time.Hour)) {
		t.Fatal("entries open after BlockEntries")
	}
	if s.EntriesAllowed() {
		t.Fatal("EntriesAllowed still true")
	}
}
