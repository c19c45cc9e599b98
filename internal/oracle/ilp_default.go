//go:build !glpk

package oracle

import "fmt"

// maxILPCandidates bounds the backtracking search's input size. The
// candidate pool handed in is already filtered down to the nonzero
// cells of a residual CBF/IBLT, so this only guards against a
// pathological collision pattern blowing up the search space.
const maxILPCandidates = 28

// DefaultILPOracle is the pure-Go ILPOracle installed when the binary
// is built without the 'glpk' tag. It recovers the dropped-element
// subset from a residual difference table by backtracking over which
// candidates to include, pruning a branch the moment a partial sum
// overshoots the target cell count. Small, highly constrained
// instances only; large ones are refused outright rather than run.
func DefaultILPOracle(counters []uint32, k int, hashIndexes [][]int, nDropped int) ([]int, error) {
	n := len(hashIndexes)
	if nDropped < 0 || nDropped > n {
		return nil, fmt.Errorf("oracle: nDropped %d out of range for %d candidates", nDropped, n)
	}
	if nDropped == 0 {
		return []int{}, nil
	}
	if n > maxILPCandidates {
		return nil, fmt.Errorf("oracle: instance too large (%d candidates); refusing to run", n)
	}

	target := make([]int, len(counters))
	for i, c := range counters {
		target[i] = int(c)
	}

	sum := make([]int, len(counters))
	chosen := make([]int, 0, nDropped)
	var solution []int

	var search func(idx int) bool
	search = func(idx int) bool {
		if len(chosen) == nDropped {
			for c := range target {
				if sum[c] != target[c] {
					return false
				}
			}
			solution = append([]int(nil), chosen...)
			return true
		}
		if idx == n || n-idx < nDropped-len(chosen) {
			return false
		}

		ok := true
		for _, c := range hashIndexes[idx] {
			sum[c]++
			if sum[c] > target[c] {
				ok = false
			}
		}
		if ok {
			chosen = append(chosen, idx)
			if search(idx + 1) {
				return true
			}
			chosen = chosen[:len(chosen)-1]
		}
		for _, c := range hashIndexes[idx] {
			sum[c]--
		}

		return search(idx + 1)
	}

	if !search(0) {
		return nil, fmt.Errorf("oracle: no subset of %d candidates reproduces the residual counters", nDropped)
	}
	return solution, nil
}
