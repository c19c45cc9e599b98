package bloomsd

// DJBHashSize is the width in bits of the mapped element hash.
const DJBHashSize = 32

// ElemToU32 maps an element to a u32 using the DJB2/X33A string hash
// (h = h*33 + c, seeded with the conventional DJB2 initial value).
func ElemToU32(elem []byte) uint32 {
	var h uint32 = 5381
	for _, b := range elem {
		h = h*33 + uint32(b)
	}
	return h
}

// KeyedHash64 is one of the two independent keyed hash functions
// HashIter double-hashes with.
type KeyedHash64 func(elem []byte) uint64

// HashIter deterministically produces exactly count 64-bit indices for
// an element via double hashing: h0 = H1(e), h1 = H2(e), and for i >= 2,
// h_i = h0 + i*h1 (wrapping 64-bit arithmetic).
type HashIter struct {
	h0, h1 uint64
	i      uint32
	count  uint32
}

// NewHashIter starts a HashIter over elem that will yield count indices.
func NewHashIter(elem []byte, count uint32, h1, h2 KeyedHash64) *HashIter {
	return &HashIter{
		h0:    h1(elem),
		h1:    h2(elem),
		i:     0,
		count: count,
	}
}

// Next returns the next hash value and true, or (0, false) once count
// values have been produced.
func (it *HashIter) Next() (uint64, bool) {
	if it.i == it.count {
		return 0, false
	}
	var r uint64
	switch it.i {
	case 0:
		r = it.h0
	case 1:
		r = it.h1
	default:
		r = it.h0 + uint64(it.i)*it.h1
	}
	it.i++
	return r, true
}

// Collect drains the iterator into a slice.
func (it *HashIter) Collect() []uint64 {
	out := make([]uint64, 0, it.count)
	for {
		h, ok := it.Next()
		if !ok {
			return out
		}
		out = append(out, h)
	}
}
