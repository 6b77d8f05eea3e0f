package ecs

import "testing"

type health struct {
	HP int
}

func TestRegistryCreate(t *testing.T) {
	r := NewRegistry()
	a := r.Create()
	b := r.Create()
	if a == 0 {
		t.Fatalf("entity id 0 must be reserved for 'no entity'")
	}
	if a == b {
		t.Fatalf("expected distinct ids, got %d twice", a)
	}
	if !r.Exists(a) || !r.Exists(b) {
		t.Fatalf("created entities must exist")
	}
	if r.Count() != 2 {
		t.Fatalf("count = %d, want 2", r.Count())
	}
}

func TestRegistryRestoreBumpsNext(t *testing.T) {
	r := NewRegistry()
	r.Restore(40)
	e := r.Create()
	if e <= 40 {
		t.Fatalf("Create after Restore(40) returned %d, want > 40", e)
	}
}

func TestTableSetGetRemove(t *testing.T) {
	tab := NewTable[health]()
	r := NewRegistry()
	e := r.Create()

	if tab.Has(e) {
		t.Fatalf("fresh entity must not have the component")
	}
	tab.Set(e, health{HP: 10})
	got := tab.Get(e)
	if got == nil || got.HP != 10 {
		t.Fatalf("Get = %+v, want HP 10", got)
	}

	// Mutation through the pointer sticks.
	got.HP = 25
	if tab.Get(e).HP != 25 {
		t.Fatalf("pointer mutation did not persist")
	}

	// Set replaces in place.
	tab.Set(e, health{HP: 5})
	if tab.Get(e).HP != 5 || tab.Len() != 1 {
		t.Fatalf("replace failed: %+v len=%d", tab.Get(e), tab.Len())
	}

	tab.Remove(e)
	if tab.Has(e) || tab.Len() != 0 {
		t.Fatalf("remove failed")
	}
}

func TestTableIterationOrderIsInsertionOrder(t *testing.T) {
	tab := NewTable[health]()
	want := []Entity{7, 3, 9, 1}
	for i, e := range want {
		tab.Set(e, health{HP: i})
	}
	var got []Entity
	tab.Each(func(e Entity, _ *health) { got = append(got, e) })
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("iteration order %v, want %v", got, want)
		}
	}
}

func TestTableRemoveSwapsLast(t *testing.T) {
	tab := NewTable[health]()
	tab.Set(1, health{HP: 1})
	tab.Set(2, health{HP: 2})
	tab.Set(3, health{HP: 3})
	tab.Remove(2)
	if tab.Len() != 2 {
		t.Fatalf("len = %d, want 2", tab.Len())
	}
	if tab.Get(1).HP != 1 || tab.Get(3).HP != 3 {
		t.Fatalf("surviving rows corrupted: %+v %+v", tab.Get(1), tab.Get(3))
	}
}

func TestClamp(t *testing.T) {
	if Clamp(5, 0, 10) != 5 {
		t.Fatalf("in-range value must pass through")
	}
	if Clamp(-1, 0, 10) != 0 || Clamp(11, 0, 10) != 10 {
		t.Fatalf("out-of-range values must clamp")
	}
	if Clamp100(120.0) != 100 || Clamp100(-3.0) != 0 {
		t.Fatalf("Clamp100 failed")
	}
}
