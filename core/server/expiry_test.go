package server

import "testing"

func TestExpiryIndexOrdering(t *testing.T) {
	idx := newExpiryIndex()
	idx.Add("c", 30)
	idx.Add("a", 10)
	idx.Add("b", 20)

	key, at, ok := idx.Peek()
	if !ok || key != "a" || at != 10 {
		t.Errorf("Peek() = (%q, %d, %v), want (a, 10, true)", key, at, ok)
	}

	expired := idx.PopExpired(20)
	if len(expired) != 2 || expired[0] != "a" || expired[1] != "b" {
		t.Errorf("PopExpired(20) = %v, want [a b]", expired)
	}
	if idx.Len() != 1 {
		t.Errorf("expected 1 remaining item, got %d", idx.Len())
	}
}

func TestExpiryIndexReschedule(t *testing.T) {
	idx := newExpiryIndex()
	idx.Add("a", 10)
	idx.Add("b", 20)

	// Pushing a's expiry beyond b's must reorder the heap
	idx.Add("a", 30)

	key, _, _ := idx.Peek()
	if key != "b" {
		t.Errorf("expected b to expire first after reschedule, got %q", key)
	}
}

func TestExpiryIndexRemove(t *testing.T) {
	idx := newExpiryIndex()
	idx.Add("a", 10)
	idx.Remove("a")
	idx.Remove("never-added")

	if idx.Len() != 0 {
		t.Errorf("expected empty index, got %d items", idx.Len())
	}
	if expired := idx.PopExpired(100); len(expired) != 0 {
		t.Errorf("expected nothing to expire, got %v", expired)
	}
}
