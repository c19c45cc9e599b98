// Package accumulator implements the four subset-digest accumulator
// variants (naive, power-sum, CBF, IBLT) that a router uses to prove it
// faithfully forwarded a multiset of packets to a verifier holding the
// ground-truth log.
package accumulator

import (
	"crypto/rand"
	"encoding/binary"

	"github.com/gtank/blake2/blake2b"
)

const digestKeySize = 16
const digestOutputBytes = 8

// Digest is a keyed, order-independent fingerprint of a multiset of
// byte-slice elements. Adding elements in any order produces the same
// state (add is commutative). Two digests constructed with different
// keys never compare equal, even when both are empty, since Equals
// compares the key; once elements are added their states also diverge,
// because the key seeds the BLAKE2b PRF applied to each element.
type Digest struct {
	key   [digestKeySize]byte
	state uint64
	count uint64
}

// NewDigest returns an empty Digest with a freshly generated random key.
func NewDigest() *Digest {
	d := &Digest{}
	if _, err := rand.Read(d.key[:]); err != nil {
		panic("accumulator: failed to generate digest key: " + err.Error())
	}
	return d
}

// NewDigestWithSeed returns an empty Digest whose key is derived
// deterministically from seed, so two routers given the same seed
// produce identical digests over identical input.
func NewDigestWithSeed(seed uint64) *Digest {
	d := &Digest{}
	binary.BigEndian.PutUint64(d.key[:8], seed)
	binary.BigEndian.PutUint64(d.key[8:], seed)
	return d
}

func (d *Digest) prf(elem []byte) uint64 {
	h, err := blake2b.NewDigest(d.key[:], nil, nil, digestOutputBytes)
	if err != nil {
		panic("accumulator: failed to construct blake2b digest: " + err.Error())
	}
	h.Write(elem)
	sum := h.Sum(nil)
	return binary.LittleEndian.Uint64(sum)
}

// Add folds elem into the digest. Order of Add calls does not affect
// the resulting state, since the per-element PRF outputs are combined
// by XOR.
func (d *Digest) Add(elem []byte) {
	d.state ^= d.prf(elem)
	d.count++
}

// Count returns the number of elements folded into the digest.
func (d *Digest) Count() uint64 { return d.count }

// Reset returns the digest to empty, keeping its key.
func (d *Digest) Reset() {
	d.state = 0
	d.count = 0
}

// Equals compares two digests by value: key, count, and state.
func (d *Digest) Equals(other *Digest) bool {
	return d.key == other.key && d.state == other.state && d.count == other.count
}

// ToBytes serializes the digest: 16-byte key, 8-byte LE state, 8-byte LE count.
func (d *Digest) ToBytes() []byte {
	buf := make([]byte, digestKeySize+8+8)
	copy(buf[:digestKeySize], d.key[:])
	binary.LittleEndian.PutUint64(buf[digestKeySize:digestKeySize+8], d.state)
	binary.LittleEndian.PutUint64(buf[digestKeySize+8:], d.count)
	return buf
}

// DigestFromBytes deserializes a Digest written by ToBytes, returning
// the digest and the number of bytes consumed.
func DigestFromBytes(data []byte) (*Digest, int, error) {
	need := digestKeySize + 8 + 8
	if len(data) < need {
		return nil, 0, errTruncated("digest")
	}
	d := &Digest{}
	copy(d.key[:], data[:digestKeySize])
	d.state = binary.LittleEndian.Uint64(data[digestKeySize : digestKeySize+8])
	d.count = binary.LittleEndian.Uint64(data[digestKeySize+8 : need])
	return d, need, nil
}
