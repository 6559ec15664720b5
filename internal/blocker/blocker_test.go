package blocker

import "testing"

func TestParkWakeFirstFIFO(t *testing.T) {
	tbl := NewTable()
	_, ch1 := tbl.Park(0, []string{"k"})
	_, ch2 := tbl.Park(0, []string{"k"})

	send, ok := tbl.WakeFirst(0, "k")
	if !ok {
		t.Fatal("expected a waiter")
	}
	send <- Wake{Key: "k", Payload: "v1"}

	select {
	case w := <-ch1:
		if w.Payload != "v1" {
			t.Fatalf("expected v1, got %v", w.Payload)
		}
	default:
		t.Fatal("expected first waiter to receive the wake")
	}

	select {
	case <-ch2:
		t.Fatal("second waiter should not have been woken")
	default:
	}

	if tbl.Count(0, "k") != 1 {
		t.Fatalf("expected 1 remaining waiter, got %d", tbl.Count(0, "k"))
	}
}

func TestParkMultiKeyCancelRemovesFromAllKeys(t *testing.T) {
	tbl := NewTable()
	id, _ := tbl.Park(0, []string{"a", "b"})
	tbl.Cancel(0, id, []string{"a", "b"})

	if tbl.Count(0, "a") != 0 || tbl.Count(0, "b") != 0 {
		t.Fatal("expected waiter removed from both keys")
	}
}

func TestWakeFirstRemovesFromOtherKeys(t *testing.T) {
	tbl := NewTable()
	tbl.Park(0, []string{"a", "b"})

	if _, ok := tbl.WakeFirst(0, "a"); !ok {
		t.Fatal("expected a waiter on a")
	}
	if tbl.Count(0, "b") != 0 {
		t.Fatal("expected waiter removed from b once woken via a")
	}
}

func TestWakeAllDeliversToEveryWaiter(t *testing.T) {
	tbl := NewTable()
	_, ch1 := tbl.Park(0, []string{"s"})
	_, ch2 := tbl.Park(0, []string{"s"})

	sends := tbl.WakeAll(0, "s")
	if len(sends) != 2 {
		t.Fatalf("expected 2 waiters, got %d", len(sends))
	}
	for _, s := range sends {
		s <- Wake{Key: "s"}
	}

	for _, ch := range []<-chan Wake{ch1, ch2} {
		select {
		case <-ch:
		default:
			t.Fatal("expected waiter to be woken")
		}
	}
	if tbl.Count(0, "s") != 0 {
		t.Fatal("expected no waiters remaining")
	}
}
