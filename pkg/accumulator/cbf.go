package accumulator

import (
	"encoding/binary"
	"sort"

	"github.com/ygina/subset-digest/pkg/bloomsd"
)

const cbfBitsPerEntry = 16
const cbfFalsePositiveRate = 0.0001

// CBFAccumulator stores the digest plus a counting Bloom filter of all
// processed elements. Validation takes the difference between the CBF
// built over the candidate list and the stored CBF; the residual
// represents the lost elements and is handed to an ILP oracle to name
// them concretely.
type CBFAccumulator struct {
	digest *Digest
	cbf    *bloomsd.CountingBloomFilter
	ilp    ILPOracle
}

// NewCBFAccumulator returns an empty CBFAccumulator sized for
// threshold expected elements. A nil ilp oracle falls back to the
// process-wide default installed via SetDefaultOracles.
func NewCBFAccumulator(threshold uint32, seed *uint64, ilp ILPOracle) *CBFAccumulator {
	var d *Digest
	if seed != nil {
		d = NewDigestWithSeed(*seed)
	} else {
		d = NewDigest()
	}
	h1, h2 := keyedHashPair(d)
	if ilp == nil {
		ilp = defaultILPOracle
	}
	return &CBFAccumulator{
		digest: d,
		cbf:    bloomsd.NewCBFWithRate(cbfBitsPerEntry, cbfFalsePositiveRate, threshold, h1, h2),
		ilp:    ilp,
	}
}

// keyedHashPair derives the two HashIter seeds a Bloom-filter-family
// accumulator needs from the digest's own key, so a single seed value
// (random or supplied) determines the whole accumulator's behavior.
func keyedHashPair(d *Digest) (bloomsd.KeyedHash64, bloomsd.KeyedHash64) {
	h1 := func(elem []byte) uint64 {
		var buf [1]byte
		buf[0] = 1
		return d.prf(append(buf[:], elem...))
	}
	h2 := func(elem []byte) uint64 {
		var buf [1]byte
		buf[0] = 2
		return d.prf(append(buf[:], elem...))
	}
	return h1, h2
}

func (a *CBFAccumulator) Reset() {
	a.digest.Reset()
	a.cbf = a.cbf.EmptyClone()
}

func (a *CBFAccumulator) Process(elem []byte) {
	a.digest.Add(elem)
	a.cbf.Insert(elem)
}

func (a *CBFAccumulator) ProcessBatch(elems [][]byte) { processBatchDefault(a, elems) }

func (a *CBFAccumulator) Total() uint64 { return a.digest.Count() }

func (a *CBFAccumulator) ToBytes() []byte {
	buf := []byte{WireVersion, kindCBF}
	buf = append(buf, a.digest.ToBytes()...)
	header := make([]byte, 16)
	binary.LittleEndian.PutUint32(header[0:4], uint32(a.cbf.NumEntries()))
	binary.LittleEndian.PutUint32(header[4:8], a.cbf.NumHashes())
	buf = append(buf, header...)
	return append(buf, a.cbf.ToBytes()...)
}

// CBFAccumulatorFromBytes deserializes bytes produced by ToBytes. The
// h1/h2 routing hashes aren't carried on the wire because they're
// derived deterministically from the digest key via keyedHashPair, so
// recovering the digest is enough to rebuild them.
func CBFAccumulatorFromBytes(data []byte, ilp ILPOracle) (*CBFAccumulator, error) {
	if len(data) < 2 || data[0] != WireVersion || data[1] != kindCBF {
		return nil, errTruncated("cbf accumulator header")
	}
	d, n, err := DigestFromBytes(data[2:])
	if err != nil {
		return nil, err
	}
	off := 2 + n
	if len(data) < off+16 {
		return nil, errTruncated("cbf accumulator sizing header")
	}
	numHashes := binary.LittleEndian.Uint32(data[off+4 : off+8])
	off += 16
	counters, _, err := bloomsd.ValueVecFromBytes(data[off:])
	if err != nil {
		return nil, err
	}
	h1, h2 := keyedHashPair(d)
	if ilp == nil {
		ilp = defaultILPOracle
	}
	return &CBFAccumulator{
		digest: d,
		cbf:    bloomsd.NewCBFFromParts(counters, numHashes, h1, h2),
		ilp:    ilp,
	}, nil
}

// Validate defers to digest comparison when nothing is missing,
// otherwise builds the difference CBF and feeds the ILP oracle a
// system of equations over the candidate elements whose cells are all
// nonzero in the difference.
func (a *CBFAccumulator) Validate(candidate [][]byte) (ValidationResult, []int) {
	total := a.Total()
	if uint64(len(candidate)) < total {
		return Invalid, nil
	}
	nDropped := len(candidate) - int(total)
	if nDropped == 0 {
		d := &Digest{key: a.digest.key}
		for _, e := range candidate {
			d.Add(e)
		}
		if d.Equals(a.digest) {
			return Valid, nil
		}
		return Invalid, nil
	}

	diff := a.cbf.EmptyClone()
	for _, e := range candidate {
		diff.Insert(e)
	}
	numEntries := diff.NumEntries()
	for i := uint32(0); i < uint32(numEntries); i++ {
		received := a.cbf.Counters().Get(i)
		processed := diff.Counters().Get(i)
		if processed < received {
			return Invalid, nil
		}
		diff.Counters().Set(i, processed-received)
	}

	var candidateIdx []int
	var hashIndexes [][]int
	for i, e := range candidate {
		if diff.Contains(e) {
			candidateIdx = append(candidateIdx, i)
			idx := diff.Indexes(e)
			row := make([]int, len(idx))
			for j, v := range idx {
				row[j] = int(v)
			}
			hashIndexes = append(hashIndexes, row)
		}
	}
	counters := make([]uint32, numEntries)
	for i := range counters {
		counters[i] = diff.Counters().Get(uint32(i))
	}

	if a.ilp == nil {
		return Invalid, nil
	}
	solution, err := a.ilp(counters, int(diff.NumHashes()), hashIndexes, nDropped)
	if err != nil {
		return Invalid, nil
	}

	dropped := make([]int, 0, len(solution))
	for _, s := range solution {
		dropped = append(dropped, candidateIdx[s])
	}
	sort.Ints(dropped)

	check := &Digest{key: a.digest.key}
	droppedSet := make(map[int]bool, len(dropped))
	for _, idx := range dropped {
		droppedSet[idx] = true
	}
	for i, e := range candidate {
		if !droppedSet[i] {
			check.Add(e)
		}
	}
	if !check.Equals(a.digest) {
		return Invalid, nil
	}
	return IbltIlpValid, dropped
}
