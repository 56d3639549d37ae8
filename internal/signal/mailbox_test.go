package signal

import (
	"testing"
	"time"
)

func TestExitsDequeueBeforeEntries(t *testing.T) {
	mb := NewMailbox(10)
	for i := uint32(1); i <= 3; i++ {
		mb.TryPut(Signal{Kind: Enter, Token: i})
	}
	mb.Put(Signal{Kind: Exit, Token: 100})
	mb.Put(Signal{Kind: ExitNow, Token: 200})

	// Both exit-class signals drain first, in arrival order.
	if got := mb.Get(); got.Kind != Exit || got.Token != 100 {
		t.Fatalf("first = %s token=%d, want Exit token=100", got.Kind, got.Token)
	}
	if got := mb.Get(); got.Kind != ExitNow || got.Token != 200 {
		t.Fatalf("second = %s token=%d, want ExitNow token=200", got.Kind, got.Token)
	}
	for i := uint32(1); i <= 3; i++ {
		got := mb.Get()
		if got.Kind != Enter || got.Token != i {
			t.Fatalf("entry order broken: got %s token=%d, want Enter token=%d", got.Kind, got.Token, i)
		}
	}
}

func TestTryPutDropsWhenFull(t *testing.T) {
	mb := NewMailbox(2)
	if !mb.TryPut(Signal{Kind: Enter, Token: 1}) {
		t.Fatal("TryPut into empty mailbox failed")
	}
	if !mb.TryPut(Signal{Kind: Enter, Token: 2}) {
		t.Fatal("TryPut into non-full mailbox failed")
	}
	if mb.TryPut(Signal{Kind: Enter, Token: 3}) {
		t.Fatal("TryPut into full mailbox should drop")
	}
	if mb.Len() != 2 {
		t.Fatalf("Len = %d, want 2", mb.Len())
	}
}

func TestPutBlocksUntilSpace(t *testing.T) {
	mb := NewMailbox(1)
	mb.Put(Signal{Kind: Enter, Token: 1})

	done := make(chan struct{})
	go func() {
		mb.Put(Signal{Kind: Exit, Token: 2})
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Put returned while mailbox was full")
	case <-time.After(20 * time.Millisecond):
	}

	if got := mb.Get(); got.Token != 1 {
		t.Fatalf("got token %d, want 1", got.Token)
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Put did not unblock after space freed")
	}
	if got := mb.Get(); got.Kind != Exit || got.Token != 2 {
		t.Fatalf("got %s token=%d, want Exit token=2", got.Kind, got.Token)
	}
}

func TestGetBlocksUntilSignal(t *testing.T) {
	mb := NewMailbox(4)
	got := make(chan Signal, 1)
	go func() { got <- mb.Get() }()

	select {
	case s := <-got:
		t.Fatalf("Get returned %v from an empty mailbox", s)
	case <-time.After(20 * time.Millisecond):
	}

	mb.Put(Signal{Kind: Enter, Token: 7})
	select {
	case s := <-got:
		if s.Token != 7 {
			t.Fatalf("got token %d, want 7", s.Token)
		}
	case <-time.After(time.Second):
		t.Fatal("Get did not wake on Put")
	}
}
