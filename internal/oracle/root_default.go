//go:build !pari

package oracle

import (
	"fmt"
	"math/rand"

	"github.com/ygina/subset-digest/pkg/accumulator"
)

// DefaultRootOracle is the pure-Go RootOracle installed when the
// binary is built without the 'pari' tag. It fully factors a monic
// polynomial over GF(LargePrime) into linear factors via
// distinct-degree reduction (gcd(x^P - x, f) isolates the product of
// the linear factors of f's distinct roots) followed by Cantor-Zassenhaus
// equal-degree splitting, the standard way to go from "f splits into
// linear factors" to "here are the roots" without a computer algebra
// system. Those factors are then divided out of f and the process
// repeats, so a repeated root is returned once per multiplicity.
func DefaultRootOracle(coeffs []int64) ([]int64, error) {
	p := accumulator.LargePrime
	f := monicFromHighToLow(coeffs, p)
	degree := f.degree()
	if degree <= 0 {
		return nil, nil
	}

	roots := make([]int64, 0, degree)
	for f.degree() > 0 {
		xp := polyPowModX(p, f, p)
		xpMinusX := polySub(xp, poly{0, 1}, p)
		h := polyGCD(append(poly(nil), f...), xpMinusX, p)
		if h.degree() <= 0 {
			return nil, fmt.Errorf("oracle: polynomial does not split into linear factors over the field")
		}
		for _, factor := range splitIntoLinearFactors(h, p) {
			// factor is monic and linear: {c0, 1}, root is -c0 mod p.
			roots = append(roots, subMod(0, factor[0], p))
		}
		f = polyDivExact(f, h, p)
	}
	return roots, nil
}

// monicFromHighToLow converts coefficients given leading-term-first
// (as pkg/accumulator.computePolynomialCoefficients produces them) into
// the low-to-high poly representation this package's arithmetic uses.
func monicFromHighToLow(coeffs []int64, p int64) poly {
	n := len(coeffs)
	out := make(poly, n)
	for i, c := range coeffs {
		v := c % p
		if v < 0 {
			v += p
		}
		out[n-1-i] = v
	}
	return out
}

// splitIntoLinearFactors recursively splits h, known to be a product
// of distinct monic linear factors, into its individual factors via
// Cantor-Zassenhaus equal-degree splitting (p is odd, so degree-1
// splitting via the Legendre-symbol-style exponent (p-1)/2 applies).
func splitIntoLinearFactors(h poly, p int64) []poly {
	h = h.normalize()
	deg := h.degree()
	if deg <= 0 {
		return nil
	}
	if deg == 1 {
		inv := modInverse(h[1], p)
		c0 := mulMod(h[0], inv, p)
		return []poly{{c0, 1}}
	}

	for {
		a := int64(rand.Intn(int(p-1))) + 1
		// b = (x + a)^((p-1)/2) - 1 mod h
		base := poly{a, 1}
		b := polyPowModInPoly(base, (p-1)/2, h, p)
		b = polySub(b, poly{1}, p)
		g := polyGCD(append(poly(nil), h...), b, p)
		gDeg := g.degree()
		if gDeg > 0 && gDeg < deg {
			left := polyDivExact(h, g, p)
			return append(splitIntoLinearFactors(g, p), splitIntoLinearFactors(left, p)...)
		}
	}
}

// polyPowModInPoly computes base^e mod m over GF(p).
func polyPowModInPoly(base poly, e int64, m poly, p int64) poly {
	result := poly{1}
	b := append(poly(nil), base...)
	for e > 0 {
		if e&1 == 1 {
			result = polyMulMod(result, b, m, p)
		}
		b = polyMulMod(b, b, m, p)
		e >>= 1
	}
	return result
}

// polyDivExact computes a / b over GF(p), assuming b divides a exactly
// (true here since g is a gcd factor of h).
func polyDivExact(a, b poly, p int64) poly {
	a = append(poly(nil), a.normalize()...)
	b = b.normalize()
	bDeg := b.degree()
	leadInv := modInverse(b[bDeg], p)
	aDeg := a.degree()
	if aDeg < bDeg {
		return poly{}
	}
	quotient := make(poly, aDeg-bDeg+1)
	for aDeg >= bDeg && len(a) > 0 {
		a = a.normalize()
		aDeg = a.degree()
		if len(a) == 0 || aDeg < bDeg {
			break
		}
		coeff := mulMod(a[aDeg], leadInv, p)
		shift := aDeg - bDeg
		quotient[shift] = coeff
		for i := 0; i <= bDeg; i++ {
			a[shift+i] = subMod(a[shift+i], mulMod(coeff, b[i], p), p)
		}
	}
	return quotient.normalize()
}
