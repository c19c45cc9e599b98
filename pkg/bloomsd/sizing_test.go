package bloomsd

import "testing"

func TestNeededBitsGrowsWithItemsAndShrinksWithRate(t *testing.T) {
	small := NeededBits(0.01, 100)
	large := NeededBits(0.01, 1000)
	if large <= small {
		t.Fatalf("expected more items to need more bits: %d vs %d", large, small)
	}
	loose := NeededBits(0.1, 100)
	tight := NeededBits(0.001, 100)
	if tight <= loose {
		t.Fatalf("expected a tighter rate to need more bits: %d vs %d", tight, loose)
	}
}

func TestOptimalNumHashesAtLeastOne(t *testing.T) {
	if k := OptimalNumHashes(8, 10_000); k != 1 {
		t.Fatalf("expected the hash count to floor at 1, got %d", k)
	}
}

func TestOptimalNumHashesReasonableRange(t *testing.T) {
	m := NeededBits(0.01, 1000)
	k := OptimalNumHashes(m, 1000)
	if k < 1 || k > 20 {
		t.Fatalf("optimal hash count out of sane range: %d", k)
	}
}
