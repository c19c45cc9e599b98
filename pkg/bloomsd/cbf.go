package bloomsd

import "fmt"

// CountingBloomFilter is a Bloom filter whose cells count rather than
// flag membership, so an element can be removed as well as inserted.
// Based on the "bloom" crate's counting filter, adapted so overflow is
// a hard error rather than a silently saturating counter.
type CountingBloomFilter struct {
	counters   *ValueVec
	numEntries uint64
	numHashes  uint32
	h1, h2     KeyedHash64
}

// NewCBFWithRate creates a CountingBloomFilter sized for expectedNumItems
// at the given false-positive rate, with bitsPerEntry bits per counter.
func NewCBFWithRate(bitsPerEntry uint32, rate float64, expectedNumItems uint32, h1, h2 KeyedHash64) *CountingBloomFilter {
	numEntries := uint32(NeededBits(rate, expectedNumItems))
	numHashes := OptimalNumHashes(uint64(numEntries), expectedNumItems)
	return &CountingBloomFilter{
		counters:   NewValueVec(bitsPerEntry, numEntries),
		numEntries: uint64(numEntries),
		numHashes:  numHashes,
		h1:         h1,
		h2:         h2,
	}
}

// NewCBFFromParts reconstructs a CountingBloomFilter from its
// deserialized counters and numHashes, re-keyed with h1/h2 — the
// counterpart to ToBytes, used when a caller (e.g. FromBytes) has
// already recovered the digest key that h1/h2 derive from.
func NewCBFFromParts(counters *ValueVec, numHashes uint32, h1, h2 KeyedHash64) *CountingBloomFilter {
	return &CountingBloomFilter{
		counters:   counters,
		numEntries: uint64(counters.Count()),
		numHashes:  numHashes,
		h1:         h1,
		h2:         h2,
	}
}

// EmptyClone returns a CountingBloomFilter with the same shape and seeds
// but every counter zeroed.
func (c *CountingBloomFilter) EmptyClone() *CountingBloomFilter {
	return &CountingBloomFilter{
		counters:   c.counters.EmptyClone(),
		numEntries: c.numEntries,
		numHashes:  c.numHashes,
		h1:         c.h1,
		h2:         c.h2,
	}
}

func (c *CountingBloomFilter) Counters() *ValueVec { return c.counters }
func (c *CountingBloomFilter) NumEntries() uint64  { return c.numEntries }
func (c *CountingBloomFilter) NumHashes() uint32   { return c.numHashes }

// Indexes returns the numHashes cell indices an item routes through.
func (c *CountingBloomFilter) Indexes(item []byte) []uint64 {
	it := NewHashIter(item, c.numHashes, c.h1, c.h2)
	out := make([]uint64, 0, c.numHashes)
	for _, h := range it.Collect() {
		out = append(out, h%c.numEntries)
	}
	return out
}

// Insert increments the counter at each of the item's cells and reports
// whether the item was already present (every cell nonzero beforehand).
// It panics on counter overflow: a misconfigured filter, not adversarial
// input, should be detected loudly rather than silently corrupted.
func (c *CountingBloomFilter) Insert(item []byte) bool {
	min := uint32(0xFFFFFFFF)
	for _, idx := range c.Indexes(item) {
		cur := c.counters.Get(uint32(idx))
		if cur < min {
			min = cur
		}
		if cur < c.counters.MaxValue() {
			c.counters.Set(uint32(idx), cur+1)
		} else {
			panic(fmt.Sprintf("bloomsd: counting bloom filter counter overflow at cell %d", idx))
		}
	}
	return min > 0
}

// Contains reports whether item may have been inserted. False positives
// are possible; false negatives are not.
func (c *CountingBloomFilter) Contains(item []byte) bool {
	for _, idx := range c.Indexes(item) {
		if c.counters.Get(uint32(idx)) == 0 {
			return false
		}
	}
	return true
}

// Equal reports whether two filters have identical parameters, seeds
// (by testing whether they route a probe item to the same indexes), and
// counter contents.
func (c *CountingBloomFilter) Equal(other *CountingBloomFilter) bool {
	if c.numEntries != other.numEntries || c.numHashes != other.numHashes {
		return false
	}
	probe := []byte("bloomsd-cbf-equal-probe")
	a, b := c.Indexes(probe), other.Indexes(probe)
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return c.counters.Equal(other.counters)
}

// ToBytes serializes the counters (seeds are carried by the caller,
// since they are shared accumulator state rather than per-filter state).
func (c *CountingBloomFilter) ToBytes() []byte {
	return c.counters.ToBytes()
}
