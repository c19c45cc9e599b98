package accumulator

import "testing"

func TestNaiveDifferentSeedNotEqual(t *testing.T) {
	a := NewNaiveAccumulator(nil)
	b := NewNaiveAccumulator(nil)
	if a.digest.Equals(b.digest) {
		t.Fatalf("two unseeded accumulators should not share a digest nonce")
	}
}

func TestNaiveNoneDropped(t *testing.T) {
	seed := uint64(1)
	acc := NewNaiveAccumulator(&seed)
	elems := genElems(20, 10)
	acc.ProcessBatch(elems)
	result, dropped := acc.Validate(elems)
	if result != Valid || len(dropped) != 0 {
		t.Fatalf("expected Valid with no drops, got %v %v", result, dropped)
	}
}

func TestNaiveOneDropped(t *testing.T) {
	seed := uint64(1)
	acc := NewNaiveAccumulator(&seed)
	elems := genElems(20, 10)
	for i, e := range elems {
		if i != 5 {
			acc.Process(e)
		}
	}
	result, dropped := acc.Validate(elems)
	if result != Valid {
		t.Fatalf("expected Valid, got %v", result)
	}
	if len(dropped) != 1 || dropped[0] != 5 {
		t.Fatalf("expected drop index [5], got %v", dropped)
	}
}

func TestNaiveMalicious(t *testing.T) {
	seed := uint64(1)
	acc := NewNaiveAccumulator(&seed)
	elems := genElems(20, 10)
	malicious := make([]byte, 16)
	acc.ProcessBatch(append(append([][]byte{}, elems[1:]...), malicious))
	result, _ := acc.Validate(elems)
	if result.IsValid() {
		t.Fatalf("expected Invalid for a malicious router, got %v", result)
	}
}

func TestNaiveRoundTrip(t *testing.T) {
	seed := uint64(1)
	acc := NewNaiveAccumulator(&seed)
	acc.ProcessBatch(genElems(5, 10))
	bytes := acc.ToBytes()
	acc2, err := NaiveAccumulatorFromBytes(bytes)
	if err != nil {
		t.Fatalf("from_bytes: %v", err)
	}
	if !acc.digest.Equals(acc2.digest) {
		t.Fatalf("round trip mismatch")
	}
}

func TestCombinations(t *testing.T) {
	var got [][]int
	combinations(4, 2, func(combo []int) bool {
		got = append(got, append([]int(nil), combo...))
		return true
	})
	want := [][]int{{0, 1}, {0, 2}, {0, 3}, {1, 2}, {1, 3}, {2, 3}}
	if len(got) != len(want) {
		t.Fatalf("got %d combinations, want %d", len(got), len(want))
	}
	for i := range want {
		if len(got[i]) != 2 || got[i][0] != want[i][0] || got[i][1] != want[i][1] {
			t.Fatalf("combination %d: got %v, want %v", i, got[i], want[i])
		}
	}
}
