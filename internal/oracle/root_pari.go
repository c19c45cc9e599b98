//go:build pari

package oracle

/*
#cgo LDFLAGS: -lpari
#include "pari_bindings.h"
*/
import "C"
import (
	"fmt"

	"github.com/ygina/subset-digest/pkg/accumulator"
)

// DefaultRootOracle, when built with the 'pari' tag, offloads monic
// polynomial factorization over GF(LargePrime) to libpari instead of
// this package's from-scratch Cantor-Zassenhaus splitter. Same
// two-file pure-Go/accelerated split as the glpk/!glpk ILP pair.
func DefaultRootOracle(coeffs []int64) ([]int64, error) {
	degree := len(coeffs) - 1
	if degree <= 0 {
		return nil, nil
	}
	cCoeffs := make([]C.longlong, len(coeffs))
	for i, c := range coeffs {
		cCoeffs[i] = C.longlong(c)
	}
	roots := make([]C.longlong, degree)
	err := C.find_integer_monic_polynomial_roots_libpari(
		(*C.longlong)(&roots[0]),
		(*C.longlong)(&cCoeffs[0]),
		C.longlong(accumulator.LargePrime),
		C.size_t(degree),
	)
	if err != 0 {
		return nil, fmt.Errorf("oracle: libpari could not factor polynomial (code %d)", int(err))
	}
	out := make([]int64, degree)
	for i, r := range roots {
		out[i] = int64(r)
	}
	return out, nil
}
