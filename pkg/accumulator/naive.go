package accumulator

// NaiveAccumulator stores no auxiliary data structure beyond the
// digest. Validation tries every subset of the candidate list that is
// the size of the number of processed elements and reports the first
// one whose digest matches; the complement of that subset is the
// dropped set. Exponential in total(); used as ground truth in tests.
type NaiveAccumulator struct {
	digest *Digest
}

// NewNaiveAccumulator returns an empty NaiveAccumulator. If seed is
// non-nil, the digest key is derived deterministically from it.
func NewNaiveAccumulator(seed *uint64) *NaiveAccumulator {
	var d *Digest
	if seed != nil {
		d = NewDigestWithSeed(*seed)
	} else {
		d = NewDigest()
	}
	return &NaiveAccumulator{digest: d}
}

func (a *NaiveAccumulator) Reset() { a.digest.Reset() }

func (a *NaiveAccumulator) Process(elem []byte) { a.digest.Add(elem) }

func (a *NaiveAccumulator) ProcessBatch(elems [][]byte) { processBatchDefault(a, elems) }

func (a *NaiveAccumulator) Total() uint64 { return a.digest.Count() }

func (a *NaiveAccumulator) ToBytes() []byte {
	buf := []byte{WireVersion, kindNaive}
	return append(buf, a.digest.ToBytes()...)
}

// NaiveAccumulatorFromBytes deserializes bytes produced by ToBytes.
func NaiveAccumulatorFromBytes(data []byte) (*NaiveAccumulator, error) {
	if len(data) < 2 || data[0] != WireVersion || data[1] != kindNaive {
		return nil, errTruncated("naive accumulator header")
	}
	d, _, err := DigestFromBytes(data[2:])
	if err != nil {
		return nil, err
	}
	return &NaiveAccumulator{digest: d}, nil
}

// Validate tries every total()-sized subset of candidate, in
// combinatorial order, and returns Valid with the complement as the
// dropped indices on the first digest match, else Invalid.
func (a *NaiveAccumulator) Validate(candidate [][]byte) (ValidationResult, []int) {
	total := int(a.Total())
	if len(candidate) < total {
		return Invalid, nil
	}
	if len(candidate) == total {
		d := &Digest{key: a.digest.key}
		for _, e := range candidate {
			d.Add(e)
		}
		if d.Equals(a.digest) {
			return Valid, nil
		}
		return Invalid, nil
	}

	present := make([]bool, len(candidate))
	var ok bool
	combinations(len(candidate), total, func(combo []int) bool {
		d := &Digest{key: a.digest.key}
		for i := range present {
			present[i] = false
		}
		for _, idx := range combo {
			d.Add(candidate[idx])
			present[idx] = true
		}
		if d.Equals(a.digest) {
			ok = true
			return false
		}
		return true
	})
	if !ok {
		return Invalid, nil
	}
	dropped := make([]int, 0, len(candidate)-total)
	for i, p := range present {
		if !p {
			dropped = append(dropped, i)
		}
	}
	return Valid, dropped
}

// combinations enumerates every size-k combination of indices in
// [0,n) in lexicographic order, calling visit with each. Enumeration
// stops early if visit returns false.
func combinations(n, k int, visit func(combo []int) bool) {
	if k > n || k < 0 {
		return
	}
	combo := make([]int, k)
	for i := range combo {
		combo[i] = i
	}
	if k == 0 {
		visit(combo)
		return
	}
	for {
		if !visit(combo) {
			return
		}
		i := k - 1
		for i >= 0 && combo[i] == n-k+i {
			i--
		}
		if i < 0 {
			return
		}
		combo[i]++
		for j := i + 1; j < k; j++ {
			combo[j] = combo[j-1] + 1
		}
	}
}
