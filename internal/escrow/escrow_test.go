package escrow

import (
	"testing"
	"time"
)

func TestAddAndGetAll(t *testing.T) {
	e := New(0)
	e.Add("a", "one")
	e.Add("a", "two")
	e.Add("b", "three")

	got := e.GetAll("a")
	if len(got) != 2 {
		t.Fatalf("expected 2 entries under key a, got %d", len(got))
	}
}

func TestRemove(t *testing.T) {
	e := New(0)
	e.Add("a", 1)
	e.Add("a", 2)
	e.Add("a", 3)

	e.Remove("a", func(v any) bool { return v.(int) == 2 })

	got := e.GetAll("a")
	if len(got) != 2 {
		t.Fatalf("expected 2 entries after removal, got %d", len(got))
	}
	for _, v := range got {
		if v.(int) == 2 {
			t.Fatal("removed entry reappeared")
		}
	}
}

func TestTTLExpiry(t *testing.T) {
	e := New(10 * time.Millisecond)
	e.Add("a", "stale")
	time.Sleep(20 * time.Millisecond)

	got := e.GetAll("a")
	if len(got) != 0 {
		t.Fatalf("expected expired entry to be evicted, got %d entries", len(got))
	}
	if e.Len() != 0 {
		t.Fatalf("expected key to be dropped after its only entry expired, got %d keys", e.Len())
	}
}

func TestSweep(t *testing.T) {
	e := New(10 * time.Millisecond)
	e.Add("a", 1)
	e.Add("b", 2)
	time.Sleep(20 * time.Millisecond)
	e.Add("c", 3) // fresh, should survive the sweep

	dropped := e.Sweep()
	if dropped != 2 {
		t.Fatalf("expected 2 entries swept, got %d", dropped)
	}
	if e.Len() != 1 {
		t.Fatalf("expected 1 surviving key, got %d", e.Len())
	}
}

func TestEscrowsSweepAggregates(t *testing.T) {
	es := NewEscrows(10 * time.Millisecond)
	es.OutOfOrder.Add("a", OutOfOrderEntry{Sn: 1})
	es.PartiallySigned.Add("b", PartiallySignedEntry{Sn: 2})
	time.Sleep(20 * time.Millisecond)

	if dropped := es.Sweep(); dropped != 2 {
		t.Fatalf("expected 2 total entries swept, got %d", dropped)
	}
}
