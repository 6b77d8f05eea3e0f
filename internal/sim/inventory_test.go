package sim

import (
	"math"
	"testing"
)

func TestTakeDrawsOutputFirst(t *testing.T) {
	inv := &Inventory{Capacity: 100}
	inv.StoreOutput(20, 40, 80)
	inv.StoreInput(20, 40, 40)

	taken, q := inv.Take(20, 60)
	if taken != 60 {
		t.Fatalf("taken = %v, want 60", taken)
	}
	// 40 units at q80 from output, then 20 at q40 from inputs.
	want := (40*80.0 + 20*40.0) / 60.0
	if math.Abs(q-want) > 1e-9 {
		t.Fatalf("blended quality = %v, want %v", q, want)
	}
	if inv.Output.Amount != 0 || inv.Stock(20) != 20 {
		t.Fatalf("post-take stock wrong: output=%v total=%v", inv.Output.Amount, inv.Stock(20))
	}
}

func TestStoreInputPrefersMatchingSlot(t *testing.T) {
	inv := &Inventory{Capacity: 100}
	inv.Inputs[0] = ProductStack{ProductID: 11, Amount: 50, Quality: 50}

	stored := inv.StoreInput(11, 120, 70)
	if stored != 100 { // 50 room in the matching slot + one fresh slot
		t.Fatalf("stored = %v, want 100", stored)
	}
	if inv.Inputs[0].Amount != 100 {
		t.Fatalf("matching slot not topped up first: %v", inv.Inputs[0].Amount)
	}
	// Blended 50@50 + 50@70 in slot 0.
	if math.Abs(inv.Inputs[0].Quality-60) > 1e-9 {
		t.Fatalf("slot 0 quality = %v, want 60", inv.Inputs[0].Quality)
	}
	if inv.Inputs[1].ProductID != 11 || inv.Inputs[1].Amount != 50 {
		t.Fatalf("overflow not placed in a fresh slot: %+v", inv.Inputs[1])
	}
}

func TestStoreOutputRespectsCapacityAndKind(t *testing.T) {
	inv := &Inventory{Capacity: 100}
	if got := inv.StoreOutput(20, 150, 50); got != 100 {
		t.Fatalf("stored = %v, want capacity 100", got)
	}
	if got := inv.StoreOutput(21, 10, 50); got != 0 {
		t.Fatalf("output stack accepted a second product: %v", got)
	}
}

func TestInputRoomCountsFreeAndMatchingSlots(t *testing.T) {
	inv := &Inventory{Capacity: 100}
	inv.Inputs[0] = ProductStack{ProductID: 11, Amount: 70}
	inv.Inputs[1] = ProductStack{ProductID: 12, Amount: 10}

	if got := inv.InputRoom(11); got != 130 { // 30 in slot 0 + 100 in slot 2
		t.Fatalf("room for 11 = %v, want 130", got)
	}
	if got := inv.InputRoom(13); got != 100 { // only the free slot
		t.Fatalf("room for 13 = %v, want 100", got)
	}
}
