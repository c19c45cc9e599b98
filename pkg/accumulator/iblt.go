package accumulator

import (
	"encoding/binary"
	"sort"

	"github.com/ygina/subset-digest/pkg/bloomsd"
)

const ibltBitsPerEntry = 16
const ibltFalsePositiveRate = 0.0001

// IBLTAccumulator stores the digest plus an invertible Bloom lookup
// table of all processed elements. Validation builds the difference
// IBLT between the candidate list and the stored state, peels it to a
// fixed point to recover as many dropped elements as possible by name,
// and falls back to the ILP oracle for any residual.
type IBLTAccumulator struct {
	digest *Digest
	iblt   *bloomsd.InvBloomLookupTable
	ilp    ILPOracle
}

// NewIBLTAccumulator returns an empty IBLTAccumulator using the usual
// false-positive-rate-derived sizing. A nil ilp oracle falls back to
// the process-wide default installed via SetDefaultOracles.
func NewIBLTAccumulator(threshold uint32, seed *uint64, ilp ILPOracle) *IBLTAccumulator {
	var d *Digest
	if seed != nil {
		d = NewDigestWithSeed(*seed)
	} else {
		d = NewDigest()
	}
	h1, h2 := keyedHashPair(d)
	table := bloomsd.NewIBLTWithRate(ibltBitsPerEntry, ibltFalsePositiveRate, threshold, h1, h2)
	if ilp == nil {
		ilp = defaultILPOracle
	}
	return &IBLTAccumulator{digest: d, iblt: table, ilp: ilp}
}

// NewIBLTAccumulatorWithParams exposes the `(w, mult, k)` parameterization
// directly — bitsPerEntry counters, cellsMultiplier*threshold entries,
// numHashes hash functions — matching the literal ILP-fallback scenario
// which sizes the table by multiplier rather than false-positive rate.
func NewIBLTAccumulatorWithParams(threshold, bitsPerEntry, cellsMultiplier, numHashes uint32, seed *uint64, ilp ILPOracle) *IBLTAccumulator {
	var d *Digest
	if seed != nil {
		d = NewDigestWithSeed(*seed)
	} else {
		d = NewDigest()
	}
	h1, h2 := keyedHashPair(d)
	table := bloomsd.NewIBLTWithParams(bitsPerEntry, cellsMultiplier, numHashes, threshold, h1, h2)
	if ilp == nil {
		ilp = defaultILPOracle
	}
	return &IBLTAccumulator{digest: d, iblt: table, ilp: ilp}
}

func (a *IBLTAccumulator) Reset() {
	a.digest.Reset()
	a.iblt = a.iblt.EmptyClone()
}

func (a *IBLTAccumulator) Process(elem []byte) {
	a.digest.Add(elem)
	a.iblt.Insert(bloomsd.ElemToU32(elem))
}

func (a *IBLTAccumulator) ProcessBatch(elems [][]byte) { processBatchDefault(a, elems) }

func (a *IBLTAccumulator) Total() uint64 { return a.digest.Count() }

func (a *IBLTAccumulator) ToBytes() []byte {
	buf := []byte{WireVersion, kindIBLT}
	buf = append(buf, a.digest.ToBytes()...)
	header := make([]byte, 16)
	binary.LittleEndian.PutUint32(header[0:4], uint32(a.iblt.NumEntries()))
	binary.LittleEndian.PutUint32(header[4:8], a.iblt.NumHashes())
	buf = append(buf, header...)
	return append(buf, a.iblt.ToBytes()...)
}

// IBLTAccumulatorFromBytes deserializes bytes produced by ToBytes. As
// with CBFAccumulatorFromBytes, h1/h2 are rederived from the digest key
// rather than carried as separate wire fields.
func IBLTAccumulatorFromBytes(data []byte, ilp ILPOracle) (*IBLTAccumulator, error) {
	if len(data) < 2 || data[0] != WireVersion || data[1] != kindIBLT {
		return nil, errTruncated("iblt accumulator header")
	}
	d, n, err := DigestFromBytes(data[2:])
	if err != nil {
		return nil, err
	}
	off := 2 + n
	if len(data) < off+16 {
		return nil, errTruncated("iblt accumulator sizing header")
	}
	numHashes := binary.LittleEndian.Uint32(data[off+4 : off+8])
	off += 16
	counters, consumed, err := bloomsd.ValueVecFromBytes(data[off:])
	if err != nil {
		return nil, err
	}
	off += consumed
	numEntries := counters.Count()
	if len(data) < off+4*int(numEntries) {
		return nil, errTruncated("iblt accumulator data array")
	}
	cellData := make([]uint32, numEntries)
	for i := range cellData {
		cellData[i] = binary.LittleEndian.Uint32(data[off+4*i : off+4*i+4])
	}
	h1, h2 := keyedHashPair(d)
	if ilp == nil {
		ilp = defaultILPOracle
	}
	return &IBLTAccumulator{
		digest: d,
		iblt:   bloomsd.NewIBLTFromParts(counters, cellData, numHashes, h1, h2),
		ilp:    ilp,
	}, nil
}

// Validate takes the digest shortcut when nothing is missing, then
// computes the wrapping per-cell counter/data difference with the
// invariant check (zero counter implies zero data), applies the
// wraparound sanity rule distinguishing benign from malicious
// wraparound, peels to a fixed point, and falls back to the ILP oracle
// on any residual.
func (a *IBLTAccumulator) Validate(candidate [][]byte) (ValidationResult, []int) {
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

	diff := a.iblt.EmptyClone()
	hashes := make([]uint32, len(candidate))
	for i, e := range candidate {
		hashes[i] = bloomsd.ElemToU32(e)
		diff.Insert(hashes[i])
	}

	numEntries := diff.NumEntries()
	w := diff.Counters().MaxValue()
	k := uint64(diff.NumHashes())
	var counterSum uint64
	for i := uint32(0); i < uint32(numEntries); i++ {
		received := a.iblt.Counters().Get(i)
		processed := diff.Counters().Get(i)
		deltaCount := (processed - received) & w
		diff.Counters().Set(i, deltaCount)
		deltaData := diff.Data()[i] - a.iblt.Data()[i]
		if deltaCount == 0 && deltaData != 0 {
			return Invalid, nil
		}
		diff.Data()[i] = deltaData
		counterSum += uint64(deltaCount)
	}

	s := counterSum / k
	if s != uint64(nDropped) {
		maxDecodable := uint64(w) / k
		if uint64(nDropped) <= maxDecodable {
			return IbltMaliciousWraparound, nil
		}
		return IbltBenignWraparound, nil
	}

	removed := diff.EliminateElems()
	if len(removed) == nDropped {
		check := &Digest{key: a.digest.key}
		remaining := make(map[uint32]int, len(removed))
		for h := range removed {
			remaining[h]++
		}
		collisions := false
		dropped := make([]int, 0, nDropped)
		for i, h := range hashes {
			if remaining[h] > 0 {
				remaining[h]--
				dropped = append(dropped, i)
			} else {
				if remaining[h] == 0 && removed[h] {
					collisions = true
				}
				check.Add(candidate[i])
			}
		}
		if !check.Equals(a.digest) {
			panic("accumulator: iblt post-peel digest mismatch")
		}
		if collisions {
			return IbltCollisionsValid, dropped
		}
		return Valid, dropped
	}

	var candidateIdx []int
	var hashIndexes [][]int
	for i := range candidate {
		h := hashes[i]
		if removed[h] {
			continue
		}
		if diff.Contains(h) {
			candidateIdx = append(candidateIdx, i)
			idx := diff.Indexes(h)
			row := make([]int, len(idx))
			for j, v := range idx {
				row[j] = int(v)
			}
			hashIndexes = append(hashIndexes, row)
		}
	}
	nRemaining := nDropped - len(removed)
	counters := make([]uint32, numEntries)
	for i := range counters {
		counters[i] = diff.Counters().Get(uint32(i))
	}

	if a.ilp == nil {
		return IbltIlpInvalid, nil
	}
	solution, err := a.ilp(counters, int(diff.NumHashes()), hashIndexes, nRemaining)
	if err != nil {
		return IbltIlpInvalid, nil
	}

	droppedSet := make(map[int]bool, len(solution)+len(removed))
	for _, s := range solution {
		droppedSet[candidateIdx[s]] = true
	}
	// Each peeled hash accounts for exactly one dropped element; if
	// several candidates share that hash, the choice is ambiguous and
	// the outcome is reported as a collision variant.
	collisions := false
	remaining := make(map[uint32]int, len(removed))
	for h := range removed {
		remaining[h] = 1
	}
	for i, h := range hashes {
		if remaining[h] > 0 {
			remaining[h]--
			droppedSet[i] = true
		} else if removed[h] {
			collisions = true
		}
	}
	check := &Digest{key: a.digest.key}
	for i, e := range candidate {
		if !droppedSet[i] {
			check.Add(e)
		}
	}
	if !check.Equals(a.digest) {
		if collisions {
			return IbltIlpCollisionsInvalid, nil
		}
		return IbltIlpInvalid, nil
	}
	dropped := make([]int, 0, len(droppedSet))
	for i := range droppedSet {
		dropped = append(dropped, i)
	}
	sort.Ints(dropped)
	if collisions {
		return IbltIlpCollisionsValid, dropped
	}
	return IbltIlpValid, dropped
}
