//go:build glpk

package oracle

/*
#cgo LDFLAGS: -lglpk
#include "glpk_bindings.h"
*/
import "C"
import "fmt"

// DefaultILPOracle, when built with the 'glpk' tag, offloads the
// exact-cover system to GLPK instead of this package's from-scratch
// backtracking search. Same two-file pure-Go/accelerated split as the
// pari/!pari root-oracle pair.
func DefaultILPOracle(counters []uint32, k int, hashIndexes [][]int, nDropped int) ([]int, error) {
	n := len(hashIndexes)
	if nDropped < 0 || nDropped > n {
		return nil, fmt.Errorf("oracle: nDropped %d out of range for %d candidates", nDropped, n)
	}
	if nDropped == 0 {
		return []int{}, nil
	}

	cCounters := make([]C.size_t, len(counters))
	for i, c := range counters {
		cCounters[i] = C.size_t(c)
	}
	flat := make([]C.uint32_t, 0, n*k)
	for _, row := range hashIndexes {
		for _, idx := range row {
			flat = append(flat, C.uint32_t(idx))
		}
	}
	dropped := make([]C.size_t, nDropped)

	err := C.solve_ilp_glpk(
		C.size_t(len(counters)),
		(*C.size_t)(&cCounters[0]),
		C.size_t(k),
		C.size_t(n),
		(*C.uint32_t)(&flat[0]),
		C.size_t(nDropped),
		(*C.size_t)(&dropped[0]),
	)
	if err != 0 {
		return nil, fmt.Errorf("oracle: glpk could not solve the ILP (code %d)", int(err))
	}
	out := make([]int, nDropped)
	for i, d := range dropped {
		out[i] = int(d)
	}
	return out, nil
}
