package accumulator

import (
	"fmt"

	"github.com/ygina/subset-digest/pkg/bloomsd"
)

// Accumulator is implemented by all four variants (Naive, PowerSum, CBF,
// IBLT). A single caller-facing interface keeps the router and verifier
// oblivious to which variant is in play.
type Accumulator interface {
	// ToBytes serializes the accumulator to a self-describing byte stream.
	ToBytes() []byte
	// Reset drops absorbed state, preserving seeds and shape.
	Reset()
	// Process absorbs one element.
	Process(elem []byte)
	// ProcessBatch absorbs a batch of elements; equivalent to repeated Process.
	ProcessBatch(elems [][]byte)
	// Total returns the number of elements absorbed so far.
	Total() uint64
	// Validate checks whether the absorbed multiset is a subset of
	// candidate, returning the outcome and, for valid/undetermined
	// outcomes with a concrete witness, the dropped indices into candidate.
	Validate(candidate [][]byte) (ValidationResult, []int)
}

// Wire framing constants: version byte + accumulator kind tag, per the
// self-describing serialization every accumulator's ToBytes/FromBytes
// pair uses.
const (
	WireVersion byte = 1

	kindNaive    byte = 0
	kindCBF      byte = 1
	kindIBLT     byte = 2
	kindPowerSum byte = 3
)

// FromBytes dispatches on the kind tag written by every ToBytes
// implementation and returns the matching concrete Accumulator, ready
// for Validate. This is the entry point a verifier uses after reading
// a self-describing byte stream off the digest transport: it doesn't
// know in advance which of the four variants the router is running.
func FromBytes(data []byte, root RootOracle, ilp ILPOracle) (Accumulator, error) {
	if len(data) < 2 || data[0] != WireVersion {
		return nil, errTruncated("accumulator header")
	}
	switch data[1] {
	case kindNaive:
		return NaiveAccumulatorFromBytes(data)
	case kindCBF:
		return CBFAccumulatorFromBytes(data, ilp)
	case kindIBLT:
		return IBLTAccumulatorFromBytes(data, ilp)
	case kindPowerSum:
		return PowerSumAccumulatorFromBytes(data, root)
	default:
		return nil, fmt.Errorf("accumulator: unknown kind tag %d", data[1])
	}
}

func errTruncated(what string) error {
	return fmt.Errorf("accumulator: %s truncated", what)
}

// elemToU32 maps an opaque element to the u32 domain every algebraic
// and Bloom-filter-family accumulator operates over, via the DJB2/X33A
// hash shared with pkg/bloomsd.
func elemToU32(elem []byte) uint32 {
	return bloomsd.ElemToU32(elem)
}

func processBatchDefault(a Accumulator, elems [][]byte) {
	for _, e := range elems {
		a.Process(e)
	}
}
