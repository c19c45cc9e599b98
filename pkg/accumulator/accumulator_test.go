package accumulator

import "testing"

// baseTestElems deterministically produces the candidate log every
// baseAccumulatorTest run validates against, so oracle mocks can be
// built over the same element universe.
func baseTestElems(numLogged int) [][]byte {
	const nbytes = 16
	elems := make([][]byte, numLogged)
	for i := range elems {
		e := make([]byte, nbytes)
		for j := range e {
			e[j] = byte((i+1)*37 + j*11)
		}
		elems[i] = e
	}
	return elems
}

// baseAccumulatorTest is the property check shared by all four
// variants: process numLogged elements minus numDropped (optionally
// substituting one for a malicious all-zero element), then assert
// Validate's IsValid matches !malicious.
func baseAccumulatorTest(t *testing.T, acc Accumulator, numLogged, numDropped int, malicious bool) {
	t.Helper()
	maliciousElem := make([]byte, 16)
	elems := baseTestElems(numLogged)
	dropped := map[int]bool{}
	for i := 0; i < numDropped; i++ {
		dropped[(i*7+3)%numLogged] = true
	}
	maliciousI := numLogged / 2
	for i, e := range elems {
		switch {
		case malicious && i == maliciousI:
			acc.Process(maliciousElem)
		case dropped[i]:
			continue
		default:
			acc.Process(e)
		}
	}
	result, _ := acc.Validate(elems)
	if result.IsValid() == malicious {
		t.Fatalf("validate(%d logged, %d dropped, malicious=%v) = %v, is_valid=%v",
			numLogged, numDropped, malicious, result, result.IsValid())
	}
}

func TestBaseNaive(t *testing.T) {
	seed := uint64(1234)
	t.Run("none_dropped", func(t *testing.T) {
		baseAccumulatorTest(t, NewNaiveAccumulator(&seed), 100, 0, false)
	})
	t.Run("one_dropped", func(t *testing.T) {
		baseAccumulatorTest(t, NewNaiveAccumulator(&seed), 100, 1, false)
	})
	t.Run("one_malicious_none_dropped", func(t *testing.T) {
		baseAccumulatorTest(t, NewNaiveAccumulator(&seed), 100, 0, true)
	})
	t.Run("one_malicious_one_dropped", func(t *testing.T) {
		baseAccumulatorTest(t, NewNaiveAccumulator(&seed), 100, 1, true)
	})
}

func TestBasePowerSum(t *testing.T) {
	seed := uint64(1234)
	root := candidateRootOracle(baseTestElems(100))
	t.Run("none_dropped", func(t *testing.T) {
		baseAccumulatorTest(t, NewPowerSumAccumulator(100, &seed, root), 100, 0, false)
	})
	t.Run("one_dropped", func(t *testing.T) {
		baseAccumulatorTest(t, NewPowerSumAccumulator(100, &seed, root), 100, 1, false)
	})
	t.Run("two_dropped", func(t *testing.T) {
		baseAccumulatorTest(t, NewPowerSumAccumulator(100, &seed, root), 100, 2, false)
	})
	t.Run("one_malicious_one_dropped", func(t *testing.T) {
		baseAccumulatorTest(t, NewPowerSumAccumulator(100, &seed, root), 100, 1, true)
	})
}

func TestBaseCBF(t *testing.T) {
	seed := uint64(1234)
	ilp := bruteForceILPOracle()
	t.Run("none_dropped", func(t *testing.T) {
		baseAccumulatorTest(t, NewCBFAccumulator(100, &seed, ilp), 100, 0, false)
	})
	t.Run("one_dropped", func(t *testing.T) {
		baseAccumulatorTest(t, NewCBFAccumulator(100, &seed, ilp), 100, 1, false)
	})
	t.Run("one_malicious_none_dropped", func(t *testing.T) {
		baseAccumulatorTest(t, NewCBFAccumulator(100, &seed, ilp), 100, 0, true)
	})
}

func TestBaseIBLT(t *testing.T) {
	seed := uint64(1234)
	ilp := bruteForceILPOracle()
	t.Run("none_dropped", func(t *testing.T) {
		baseAccumulatorTest(t, NewIBLTAccumulator(100, &seed, ilp), 100, 0, false)
	})
	t.Run("one_dropped", func(t *testing.T) {
		baseAccumulatorTest(t, NewIBLTAccumulator(100, &seed, ilp), 100, 1, false)
	})
	t.Run("one_malicious_none_dropped", func(t *testing.T) {
		baseAccumulatorTest(t, NewIBLTAccumulator(100, &seed, ilp), 100, 0, true)
	})
}

// TestPermutationInvariance: the naive accumulator's digest and the
// power-sum accumulator's power sums are independent of process order.
func TestPermutationInvariance(t *testing.T) {
	seed := uint64(55)
	elems := genElems(25, 2)
	reversed := make([][]byte, len(elems))
	for i, e := range elems {
		reversed[len(elems)-1-i] = e
	}

	a1 := NewNaiveAccumulator(&seed)
	a2 := NewNaiveAccumulator(&seed)
	a1.ProcessBatch(elems)
	a2.ProcessBatch(reversed)
	if !a1.digest.Equals(a2.digest) {
		t.Fatalf("naive accumulator digest depends on process order")
	}

	p1 := NewPowerSumAccumulator(10, &seed, nil)
	p2 := NewPowerSumAccumulator(10, &seed, nil)
	p1.ProcessBatch(elems)
	p2.ProcessBatch(reversed)
	for i := range p1.powerSums {
		if p1.powerSums[i] != p2.powerSums[i] {
			t.Fatalf("power sum %d depends on process order", i)
		}
	}
}
