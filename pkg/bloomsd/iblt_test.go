package bloomsd

import "testing"

func newTestIBLT() *InvBloomLookupTable {
	return NewIBLTWithRate(8, 0.01, 10, constHash(11), constHash(17))
}

func TestIBLTInitShape(t *testing.T) {
	iblt := newTestIBLT()
	if vvsum(iblt.Counters()) != 0 {
		t.Fatalf("expected a fresh table to have all-zero counters")
	}
	var dataSum uint64
	for _, d := range iblt.Data() {
		dataSum += uint64(d)
	}
	if dataSum != 0 {
		t.Fatalf("expected a fresh table to have all-zero data cells")
	}
	if uint64(len(iblt.Data())) != iblt.NumEntries() {
		t.Fatalf("data length should equal num entries")
	}
}

func TestIBLTInsert(t *testing.T) {
	iblt := newTestIBLT()
	hash := uint32(1234)
	indexes := iblt.Indexes(hash)
	for _, idx := range indexes {
		if iblt.Counters().Get(uint32(idx)) != 0 {
			t.Fatalf("expected cell %d to start at zero", idx)
		}
	}
	if iblt.Insert(hash) {
		t.Fatalf("element did not exist already")
	}
	if vvsum(iblt.Counters()) != uint64(iblt.NumHashes()) {
		t.Fatalf("expected one increment per hash slot")
	}
	for _, idx := range indexes {
		if iblt.Counters().Get(uint32(idx)) == 0 {
			t.Fatalf("cell %d should be nonzero after insert", idx)
		}
		if iblt.Data()[idx] == 0 {
			t.Fatalf("data cell %d should be nonzero after insert", idx)
		}
	}
	if !iblt.Insert(hash) {
		t.Fatalf("second insert should report the element already present")
	}
}

func TestIBLTInsertRemoveRoundTrip(t *testing.T) {
	iblt := newTestIBLT()
	hash := uint32(5678)
	iblt.Insert(hash)
	iblt.Remove(hash)
	if vvsum(iblt.Counters()) != 0 {
		t.Fatalf("expected counters back to zero after insert+remove")
	}
	for _, d := range iblt.Data() {
		if d != 0 {
			t.Fatalf("expected data cells back to zero after insert+remove")
		}
	}
}

func TestIBLTEliminateElemsSingleton(t *testing.T) {
	iblt := newTestIBLT()
	iblt.Insert(42)
	removed := iblt.EliminateElems()
	if !removed[42] {
		t.Fatalf("expected the single inserted hash to be peeled off")
	}
	if len(removed) != 1 {
		t.Fatalf("expected exactly one removed hash, got %d", len(removed))
	}
	if vvsum(iblt.Counters()) != 0 {
		t.Fatalf("peeling the only element should zero all counters")
	}
}

func TestIBLTEmptyClone(t *testing.T) {
	iblt1 := newTestIBLT()
	iblt1.Insert(1234)
	iblt1.Insert(5678)
	iblt2 := iblt1.EmptyClone()
	if vvsum(iblt1.Counters()) == 0 {
		t.Fatalf("expected original to have nonzero counters")
	}
	if vvsum(iblt2.Counters()) != 0 {
		t.Fatalf("expected clone to start zeroed")
	}
	a := iblt1.Indexes(1234)
	b := iblt2.Indexes(1234)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("clone should route hashes identically (same seeds)")
		}
	}
}

func TestIBLTEqual(t *testing.T) {
	iblt1 := newTestIBLT()
	iblt2 := iblt1.EmptyClone()
	if !iblt1.Equal(iblt2) {
		t.Fatalf("empty clone should equal its source")
	}
	iblt1.Insert(1234)
	if iblt1.Equal(iblt2) {
		t.Fatalf("insertion should break equality")
	}
}

func TestIBLTCounterWrapsInsteadOfPanicking(t *testing.T) {
	iblt := NewIBLTWithRate(1, 0.01, 10, constHash(3), constHash(5))
	iblt.Insert(1234)
	iblt.Insert(1234) // counter at width 1 wraps from 1 back to 0
	for _, idx := range iblt.Indexes(1234) {
		if iblt.Counters().Get(uint32(idx)) != 0 {
			t.Fatalf("expected width-1 counter to wrap to 0, got %d", iblt.Counters().Get(uint32(idx)))
		}
	}
}
