// Package oracle supplies the default, pure-Go implementations of the
// two external-solver boundaries the power-sum and CBF/IBLT
// accumulators consume through pkg/accumulator's RootOracle and
// ILPOracle function types: polynomial factorization over a prime
// field, and the exact-cover-style integer program recovered from a
// difference Bloom filter.
package oracle

// mulMod computes (a*b) mod p for 0 <= a,b < p without risking 64-bit
// overflow, by repeated doubling.
func mulMod(a, b, p int64) int64 {
	var res int64
	a %= p
	for b > 0 {
		if b&1 == 1 {
			res = (res + a) % p
		}
		a = (2 * a) % p
		b >>= 1
	}
	return res
}

func addMod(a, b, p int64) int64 {
	r := (a + b) % p
	if r < 0 {
		r += p
	}
	return r
}

func subMod(a, b, p int64) int64 {
	return addMod(a, -b, p)
}

// powMod computes a^e mod p via square-and-multiply.
func powMod(a, e, p int64) int64 {
	result := int64(1)
	base := a % p
	if base < 0 {
		base += p
	}
	for e > 0 {
		if e&1 == 1 {
			result = mulMod(result, base, p)
		}
		base = mulMod(base, base, p)
		e >>= 1
	}
	return result
}

// poly is a polynomial over GF(p) represented from the constant term
// up (poly[0] is the x^0 coefficient), with no enforced normalization
// beyond what each operation needs.
type poly []int64

// normalize strips trailing (highest-degree) zero coefficients.
func (f poly) normalize() poly {
	n := len(f)
	for n > 0 && f[n-1] == 0 {
		n--
	}
	return f[:n]
}

func (f poly) degree() int {
	g := f.normalize()
	return len(g) - 1
}

func polyMulMod(a, b poly, modulus poly, p int64) poly {
	return polyMod(polyMul(a, b, p), modulus, p)
}

func polyMul(a, b poly, p int64) poly {
	if len(a) == 0 || len(b) == 0 {
		return poly{}
	}
	out := make(poly, len(a)+len(b)-1)
	for i, ai := range a {
		if ai == 0 {
			continue
		}
		for j, bj := range b {
			out[i+j] = addMod(out[i+j], mulMod(ai, bj, p), p)
		}
	}
	return out
}

// polyMod computes a mod m (polynomial long division remainder) over GF(p).
func polyMod(a, m poly, p int64) poly {
	m = m.normalize()
	if len(m) == 0 {
		panic("oracle: polynomial division by zero polynomial")
	}
	rem := append(poly(nil), a...)
	mDeg := m.degree()
	leadInv := modInverse(m[mDeg], p)
	for {
		rem = rem.normalize()
		rDeg := rem.degree()
		if len(rem) == 0 || rDeg < mDeg {
			break
		}
		coeff := mulMod(rem[rDeg], leadInv, p)
		shift := rDeg - mDeg
		for i := 0; i <= mDeg; i++ {
			rem[shift+i] = subMod(rem[shift+i], mulMod(coeff, m[i], p), p)
		}
	}
	return rem.normalize()
}

// polyGCD computes gcd(a, b) over GF(p) via the Euclidean algorithm,
// returned as a monic polynomial (or the zero polynomial).
func polyGCD(a, b poly, p int64) poly {
	a, b = a.normalize(), b.normalize()
	for len(b) != 0 {
		a, b = b, polyMod(a, b, p)
	}
	if len(a) == 0 {
		return a
	}
	inv := modInverse(a[a.degree()], p)
	for i := range a {
		a[i] = mulMod(a[i], inv, p)
	}
	return a
}

// polySub computes a - b over GF(p).
func polySub(a, b poly, p int64) poly {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	out := make(poly, n)
	for i := 0; i < n; i++ {
		var av, bv int64
		if i < len(a) {
			av = a[i]
		}
		if i < len(b) {
			bv = b[i]
		}
		out[i] = subMod(av, bv, p)
	}
	return out.normalize()
}

// polyPowModX computes x^e mod m over GF(p), used to build x^p - x
// reduced modulo the working polynomial without materializing the full
// degree-p polynomial.
func polyPowModX(e int64, m poly, p int64) poly {
	result := poly{1}
	base := poly{0, 1} // x
	for e > 0 {
		if e&1 == 1 {
			result = polyMulMod(result, base, m, p)
		}
		base = polyMulMod(base, base, m, p)
		e >>= 1
	}
	return result
}

// modInverse returns the modular multiplicative inverse of a mod p via
// the extended Euclidean algorithm. p must be prime and a must not be
// a multiple of p.
func modInverse(a, p int64) int64 {
	a %= p
	if a < 0 {
		a += p
	}
	oldR, r := a, p
	oldS, s := int64(1), int64(0)
	for r != 0 {
		q := oldR / r
		oldR, r = r, oldR-q*r
		oldS, s = s, oldS-q*s
	}
	if oldS < 0 {
		oldS += p
	}
	return oldS
}
