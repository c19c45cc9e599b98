package accumulator

import "encoding/binary"

// LargePrime is the fixed Thabit prime the power-sum accumulator's
// field arithmetic operates under. Fixed for wire compatibility: two
// implementations that disagree on this value cannot interoperate.
const LargePrime int64 = 51539607551

// PowerSumAccumulator stores the digest plus the first t power sums of
// processed elements (interpreted as u32s) mod LargePrime. Validation
// recovers up to t lost elements by factoring a polynomial whose
// elementary symmetric coefficients come from the power-sum difference,
// via Newton's identities.
type PowerSumAccumulator struct {
	digest    *Digest
	powerSums []int64
	root      RootOracle
}

// NewPowerSumAccumulator returns an empty PowerSumAccumulator able to
// recover up to threshold lost elements. If seed is non-nil the digest
// key is derived deterministically from it. A nil root oracle falls
// back to the process-wide default installed via SetDefaultOracles.
func NewPowerSumAccumulator(threshold int, seed *uint64, root RootOracle) *PowerSumAccumulator {
	var d *Digest
	if seed != nil {
		d = NewDigestWithSeed(*seed)
	} else {
		d = NewDigest()
	}
	if root == nil {
		root = defaultRootOracle
	}
	return &PowerSumAccumulator{
		digest:    d,
		powerSums: make([]int64, threshold),
		root:      root,
	}
}

func (a *PowerSumAccumulator) Reset() {
	a.digest.Reset()
	for i := range a.powerSums {
		a.powerSums[i] = 0
	}
}

func (a *PowerSumAccumulator) Total() uint64 { return a.digest.Count() }

// mulAndMod computes (a*b) mod modulo without risking 64-bit overflow,
// by repeated doubling.
func mulAndMod(a, b, modulo int64) int64 {
	var res int64
	for b > 0 {
		if b&1 == 1 {
			res = (res + a) % modulo
		}
		a = (2 * a) % modulo
		b >>= 1
	}
	return res
}

// divAndMod computes (a/b) mod modulo via the modular multiplicative
// inverse of b, found by the extended Euclidean algorithm.
func divAndMod(a, b, modulo int64) int64 {
	x, y := a, b
	if a > b {
		x, y = b, a
	}
	gcd := x
	for {
		remainder := y - x*(y/x)
		if remainder == 0 {
			gcd = x
			break
		}
		y = x
		x = remainder
	}
	a /= gcd
	b /= gcd
	if b == 1 {
		return a
	}

	oldR, r := b, modulo
	oldX, xv := int64(1), int64(0)
	for r != 0 {
		q := oldR / r
		oldR, r = r, oldR-q*r
		oldX, xv = xv, oldX-q*xv
	}
	mmi := oldX
	for mmi < 0 {
		mmi += modulo
	}
	return mulAndMod(a, mmi, modulo)
}

func calculatePowerSums(elems []uint32, threshold int) []int64 {
	sums := make([]int64, threshold)
	for _, elem := range elems {
		value := int64(1)
		for i := range sums {
			value = mulAndMod(value, int64(elem), LargePrime)
			sums[i] = (sums[i] + value) % LargePrime
		}
	}
	return sums
}

func calculateDifference(lhs, rhs []int64) []int64 {
	out := make([]int64, len(lhs))
	for i := range lhs {
		out[i] = (lhs[i] + LargePrime - rhs[i]) % LargePrime
	}
	return out
}

// computePolynomialCoefficients derives the coefficients (leading term
// first, all reduced to [0, LargePrime)) of the monic polynomial whose
// roots are the lost elements, from their power sums via Newton's
// identities.
func computePolynomialCoefficients(p []int64) []int64 {
	n := len(p)
	if n == 0 {
		return nil
	}
	e := make([]int64, 1, n+1)
	e[0] = 1
	for i := 0; i < n; i++ {
		var sum int64
		for j := 0; j <= i; j++ {
			term := mulAndMod(e[i-j], p[j], LargePrime)
			if j&1 == 0 {
				sum += term
			} else {
				sum -= term
			}
		}
		for sum < 0 {
			sum += LargePrime
		}
		e = append(e, divAndMod(sum, int64(i+1), LargePrime))
	}
	for i := 1; i <= n; i += 2 {
		e[i] = (-e[i] + LargePrime) % LargePrime
	}
	return e
}

func (a *PowerSumAccumulator) Process(elem []byte) {
	a.digest.Add(elem)
	value := int64(1)
	v := int64(elemToU32(elem))
	for i := range a.powerSums {
		value = mulAndMod(value, v, LargePrime)
		a.powerSums[i] = (a.powerSums[i] + value) % LargePrime
	}
}

func (a *PowerSumAccumulator) ProcessBatch(elems [][]byte) { processBatchDefault(a, elems) }

func (a *PowerSumAccumulator) ToBytes() []byte {
	buf := []byte{WireVersion, kindPowerSum}
	buf = append(buf, a.digest.ToBytes()...)
	threshold := make([]byte, 8)
	binary.LittleEndian.PutUint64(threshold, uint64(len(a.powerSums)))
	buf = append(buf, threshold...)
	prime := make([]byte, 8)
	binary.LittleEndian.PutUint64(prime, uint64(LargePrime))
	buf = append(buf, prime...)
	for _, s := range a.powerSums {
		sumBuf := make([]byte, 8)
		binary.LittleEndian.PutUint64(sumBuf, uint64(s))
		buf = append(buf, sumBuf...)
	}
	return buf
}

// PowerSumAccumulatorFromBytes deserializes bytes produced by ToBytes.
// The embedded prime must match LargePrime; a mismatch means the
// sender is running an incompatible build.
func PowerSumAccumulatorFromBytes(data []byte, root RootOracle) (*PowerSumAccumulator, error) {
	if len(data) < 2 || data[0] != WireVersion || data[1] != kindPowerSum {
		return nil, errTruncated("power-sum accumulator header")
	}
	d, n, err := DigestFromBytes(data[2:])
	if err != nil {
		return nil, err
	}
	off := 2 + n
	if len(data) < off+16 {
		return nil, errTruncated("power-sum accumulator body")
	}
	threshold := binary.LittleEndian.Uint64(data[off : off+8])
	prime := int64(binary.LittleEndian.Uint64(data[off+8 : off+16]))
	if prime != LargePrime {
		return nil, errTruncated("power-sum accumulator prime mismatch")
	}
	off += 16
	sums := make([]int64, threshold)
	if len(data) < off+8*int(threshold) {
		return nil, errTruncated("power-sum accumulator sums")
	}
	for i := range sums {
		sums[i] = int64(binary.LittleEndian.Uint64(data[off+8*i : off+8*i+8]))
	}
	if root == nil {
		root = defaultRootOracle
	}
	return &PowerSumAccumulator{digest: d, powerSums: sums, root: root}, nil
}

// Validate compares power sums directly when no elements are missing,
// otherwise recovers up to len(powerSums) lost elements by factoring
// the power-sum-difference polynomial and checking the roots
// multiset-match against candidate.
func (a *PowerSumAccumulator) Validate(candidate [][]byte) (ValidationResult, []int) {
	total := a.Total()
	if uint64(len(candidate)) < total {
		return Invalid, nil
	}
	nValues := len(candidate) - int(total)
	threshold := len(a.powerSums)
	if nValues > threshold {
		return PsumExceedsThreshold, nil
	}

	hashed := make([]uint32, len(candidate))
	for i, e := range candidate {
		hashed[i] = elemToU32(e)
	}
	sums := calculatePowerSums(hashed, threshold)
	diff := calculateDifference(sums, a.powerSums)

	if nValues == 0 {
		for _, d := range diff {
			if d != 0 {
				return Invalid, nil
			}
		}
		return Valid, nil
	}

	coeffs := computePolynomialCoefficients(diff[:nValues])
	if a.root == nil {
		return PsumErrorFindingRoots, nil
	}
	roots, err := a.root(coeffs)
	if err != nil {
		return PsumErrorFindingRoots, nil
	}

	// Index candidate elements by hashed value, so each root can be
	// matched to a concrete dropped position.
	byValue := make(map[uint32][]int)
	for i, h := range hashed {
		byValue[h] = append(byValue[h], i)
	}
	collisions := false
	dropped := make([]int, 0, nValues)
	for _, root := range roots {
		if root < 0 || root > 0xFFFFFFFF {
			return Invalid, nil
		}
		val := uint32(root)
		positions := byValue[val]
		if len(positions) == 0 {
			return Invalid, nil
		}
		dropped = append(dropped, positions[0])
		byValue[val] = positions[1:]
		if len(positions) > 1 {
			collisions = true
		}
	}
	if collisions {
		return PsumCollisionsValid, dropped
	}
	return Valid, dropped
}
