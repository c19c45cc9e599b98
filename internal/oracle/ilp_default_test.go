package oracle

import (
	"sort"
	"testing"

	"github.com/ygina/subset-digest/pkg/accumulator"
)

// buildResidual emulates the residual counters a CBF/IBLT difference
// would present to an ILP oracle: each candidate hashes to k of
// numEntries cells, and only the candidates listed in dropped actually
// contribute to the target counters.
func buildResidual(numEntries, k int, rows [][]int, dropped []int) []uint32 {
	counters := make([]uint32, numEntries)
	droppedSet := make(map[int]bool, len(dropped))
	for _, d := range dropped {
		droppedSet[d] = true
	}
	for i, row := range rows {
		if !droppedSet[i] {
			continue
		}
		for _, c := range row {
			counters[c]++
		}
	}
	return counters
}

func hashRow(elem uint32, numEntries, k int) []int {
	row := make([]int, k)
	h := elem
	for i := 0; i < k; i++ {
		h = h*2654435761 + uint32(i)
		row[i] = int(h % uint32(numEntries))
	}
	return row
}

func TestDefaultILPOracleRecoversExactSubset(t *testing.T) {
	const numEntries = 16
	const k = 2
	candidates := []uint32{11, 22, 33, 44, 55, 66, 77, 88}
	rows := make([][]int, len(candidates))
	for i, c := range candidates {
		rows[i] = hashRow(c, numEntries, k)
	}
	wantDropped := []int{2, 5}
	counters := buildResidual(numEntries, k, rows, wantDropped)

	got, err := DefaultILPOracle(counters, k, rows, len(wantDropped))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sort.Ints(got)
	if len(got) != len(wantDropped) {
		t.Fatalf("got %v, want %v", got, wantDropped)
	}
	for i := range wantDropped {
		if got[i] != wantDropped[i] {
			t.Fatalf("got %v, want %v", got, wantDropped)
		}
	}
}

func TestDefaultILPOracleNoSolution(t *testing.T) {
	const numEntries = 8
	const k = 2
	rows := [][]int{{0, 1}, {2, 3}, {4, 5}}
	// A target no subset of size 1 can reproduce.
	counters := []uint32{1, 0, 1, 1, 0, 0, 0, 0}
	if _, err := DefaultILPOracle(counters, k, rows, 1); err == nil {
		t.Fatalf("expected an error for an unsatisfiable system")
	}
}

func TestDefaultILPOracleZeroDropped(t *testing.T) {
	got, err := DefaultILPOracle([]uint32{0, 0}, 2, nil, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %v, want empty", got)
	}
}

func TestDefaultILPOracleRefusesLargeInstance(t *testing.T) {
	rows := make([][]int, maxILPCandidates+1)
	for i := range rows {
		rows[i] = []int{0}
	}
	if _, err := DefaultILPOracle([]uint32{1}, 1, rows, 1); err == nil {
		t.Fatalf("expected the oracle to refuse an oversized instance")
	}
}

// TestDefaultILPOracleAgainstCBFAccumulator exercises DefaultILPOracle
// as the live ilp oracle behind a CBFAccumulator, confirming it
// recovers a small set of genuinely dropped elements end to end.
func TestDefaultILPOracleAgainstCBFAccumulator(t *testing.T) {
	seed := uint64(99)
	acc := accumulator.NewCBFAccumulator(50, &seed, DefaultILPOracle)
	elems := make([][]byte, 50)
	for i := range elems {
		e := make([]byte, 8)
		for j := range e {
			e[j] = byte((i+1)*13 + j*5)
		}
		elems[i] = e
	}
	dropped := map[int]bool{7: true, 23: true}
	for i, e := range elems {
		if !dropped[i] {
			acc.Process(e)
		}
	}
	result, _ := acc.Validate(elems)
	if !result.IsValid() {
		t.Fatalf("validate with 2 genuinely dropped elements should recover a valid witness, got %v", result)
	}
}
