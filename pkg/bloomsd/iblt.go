package bloomsd

import (
	"encoding/binary"
	"fmt"
)

// InvBloomLookupTable is a counting Bloom filter augmented with a
// per-cell running sum of the DJB32 hashes routed through it, which
// makes uniquely-occupied cells ("count == 1") invertible: the sum at
// that cell is exactly the hash of the one element still there. Data
// cells use wrapping u32 arithmetic, matching the element domain
// (DJB32 outputs) this table actually stores.
type InvBloomLookupTable struct {
	counters   *ValueVec
	data       []uint32
	numEntries uint64
	numHashes  uint32
	h1, h2     KeyedHash64
}

// NewIBLTWithRate creates an InvBloomLookupTable sized for
// expectedNumItems at the given false-positive rate, bitsPerEntry bits
// per counter.
func NewIBLTWithRate(bitsPerEntry uint32, rate float64, expectedNumItems uint32, h1, h2 KeyedHash64) *InvBloomLookupTable {
	numEntries := uint32(NeededBits(rate, expectedNumItems))
	numHashes := OptimalNumHashes(uint64(numEntries), expectedNumItems)
	return &InvBloomLookupTable{
		counters:   NewValueVec(bitsPerEntry, numEntries),
		data:       make([]uint32, numEntries),
		numEntries: uint64(numEntries),
		numHashes:  numHashes,
		h1:         h1,
		h2:         h2,
	}
}

// NewIBLTWithParams creates an InvBloomLookupTable sized directly as
// cellsMultiplier*expectedNumItems entries with an explicit number of
// hash functions, bypassing the false-positive-rate derivation — the
// `(w, mult, k)` parameterization used when a caller wants to trade
// decode threshold against table size directly.
func NewIBLTWithParams(bitsPerEntry, cellsMultiplier, numHashes, expectedNumItems uint32, h1, h2 KeyedHash64) *InvBloomLookupTable {
	numEntries := cellsMultiplier * expectedNumItems
	return &InvBloomLookupTable{
		counters:   NewValueVec(bitsPerEntry, numEntries),
		data:       make([]uint32, numEntries),
		numEntries: uint64(numEntries),
		numHashes:  numHashes,
		h1:         h1,
		h2:         h2,
	}
}

// NewIBLTFromParts reconstructs an InvBloomLookupTable from its
// deserialized counters and data array, re-keyed with h1/h2 — the
// counterpart to ToBytes, used once a caller has recovered the digest
// key that h1/h2 derive from.
func NewIBLTFromParts(counters *ValueVec, data []uint32, numHashes uint32, h1, h2 KeyedHash64) *InvBloomLookupTable {
	return &InvBloomLookupTable{
		counters:   counters,
		data:       data,
		numEntries: uint64(counters.Count()),
		numHashes:  numHashes,
		h1:         h1,
		h2:         h2,
	}
}

// EmptyClone returns an InvBloomLookupTable with the same shape and
// seeds but every counter and data cell zeroed.
func (t *InvBloomLookupTable) EmptyClone() *InvBloomLookupTable {
	return &InvBloomLookupTable{
		counters:   t.counters.EmptyClone(),
		data:       make([]uint32, len(t.data)),
		numEntries: t.numEntries,
		numHashes:  t.numHashes,
		h1:         t.h1,
		h2:         t.h2,
	}
}

func (t *InvBloomLookupTable) Counters() *ValueVec { return t.counters }
func (t *InvBloomLookupTable) Data() []uint32      { return t.data }
func (t *InvBloomLookupTable) NumEntries() uint64  { return t.numEntries }
func (t *InvBloomLookupTable) NumHashes() uint32   { return t.numHashes }

// Indexes returns the numHashes cell indices a DJB32 hash routes through.
func (t *InvBloomLookupTable) Indexes(hash uint32) []uint64 {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], hash)
	it := NewHashIter(buf[:], t.numHashes, t.h1, t.h2)
	out := make([]uint64, 0, t.numHashes)
	for _, h := range it.Collect() {
		out = append(out, h%t.numEntries)
	}
	return out
}

// Insert routes a DJB32 hash through its cells, incrementing each
// counter (wrapping mod 2^w) and adding the hash into each cell's data
// sum (wrapping mod 2^32). Reports whether the hash was already present
// at every one of its cells beforehand. Unlike CountingBloomFilter,
// counter overflow wraps instead of panicking; the wraparound sanity
// check at validation time decides whether wrapped counters are benign.
func (t *InvBloomLookupTable) Insert(hash uint32) bool {
	min := uint32(0xFFFFFFFF)
	for _, idx := range t.Indexes(hash) {
		cur := t.counters.Get(uint32(idx))
		if cur < min {
			min = cur
		}
		next := (cur + 1) & t.counters.MaxValue()
		t.counters.Set(uint32(idx), next)
		t.data[idx] = t.data[idx] + hash
	}
	return min > 0
}

// Remove undoes a prior Insert of hash: decrements each counter
// (wrapping) and subtracts the hash from each cell's data sum (wrapping).
func (t *InvBloomLookupTable) Remove(hash uint32) {
	for _, idx := range t.Indexes(hash) {
		cur := t.counters.Get(uint32(idx))
		next := (cur - 1) & t.counters.MaxValue()
		t.counters.Set(uint32(idx), next)
		t.data[idx] = t.data[idx] - hash
	}
}

// Contains reports whether hash may have been inserted. False positives
// are possible; false negatives are not.
func (t *InvBloomLookupTable) Contains(hash uint32) bool {
	for _, idx := range t.Indexes(hash) {
		if t.counters.Get(uint32(idx)) == 0 {
			return false
		}
	}
	return true
}

// EliminateElems repeatedly scans for cells with counter exactly 1 —
// at such a cell the data sum is exactly the hash of the one element
// still routed there — removes that element, and iterates to a fixed
// point. O(numEntries * maxCount) in the worst case. Returns the set of
// removed DJB32 hashes; panics if a hash is peeled off more than once,
// which would indicate a logic error or a true hash collision surfacing
// as a duplicate rather than as divergent cell contents.
func (t *InvBloomLookupTable) EliminateElems() map[uint32]bool {
	removed := make(map[uint32]bool)
	for {
		progress := false
		for i := uint32(0); i < uint32(t.numEntries); i++ {
			if t.counters.Get(i) != 1 {
				continue
			}
			hash := t.data[i]
			t.Remove(hash)
			if removed[hash] {
				panic(fmt.Sprintf("bloomsd: iblt peeled hash %d twice", hash))
			}
			removed[hash] = true
			progress = true
		}
		if !progress {
			return removed
		}
	}
}

// Equal reports whether two tables have identical parameters, seeds
// (tested via probe routing), counters, and data cells.
func (t *InvBloomLookupTable) Equal(other *InvBloomLookupTable) bool {
	if t.numEntries != other.numEntries || t.numHashes != other.numHashes {
		return false
	}
	a, b := t.Indexes(0xDEADBEEF), other.Indexes(0xDEADBEEF)
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	if !t.counters.Equal(other.counters) {
		return false
	}
	for i := range t.data {
		if t.data[i] != other.data[i] {
			return false
		}
	}
	return true
}

// ToBytes serializes the counters and the data array (N little-endian
// u32s), in that order.
func (t *InvBloomLookupTable) ToBytes() []byte {
	buf := t.counters.ToBytes()
	dataBuf := make([]byte, 4*len(t.data))
	for i, d := range t.data {
		binary.LittleEndian.PutUint32(dataBuf[4*i:4*i+4], d)
	}
	return append(buf, dataBuf...)
}
