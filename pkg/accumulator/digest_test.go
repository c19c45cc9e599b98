package accumulator

import "testing"

func TestDigestDifferentSeedsDiffer(t *testing.T) {
	a := NewDigestWithSeed(1)
	b := NewDigestWithSeed(2)
	if a.Equals(b) {
		t.Fatalf("digests with different seeds should differ even when empty")
	}
}

func TestDigestCommutative(t *testing.T) {
	a := NewDigestWithSeed(1234)
	b := NewDigestWithSeed(1234)
	elems := [][]byte{[]byte("one"), []byte("two"), []byte("three")}
	for _, e := range elems {
		a.Add(e)
	}
	for i := len(elems) - 1; i >= 0; i-- {
		b.Add(elems[i])
	}
	if !a.Equals(b) {
		t.Fatalf("digest should be order-independent")
	}
}

func TestDigestRoundTrip(t *testing.T) {
	a := NewDigestWithSeed(42)
	a.Add([]byte("hello"))
	a.Add([]byte("world"))
	bytes := a.ToBytes()
	b, n, err := DigestFromBytes(bytes)
	if err != nil {
		t.Fatalf("from_bytes: %v", err)
	}
	if n != len(bytes) {
		t.Fatalf("consumed %d bytes, want %d", n, len(bytes))
	}
	if !a.Equals(b) {
		t.Fatalf("round trip mismatch")
	}
}

func TestDigestResetPreservesSeed(t *testing.T) {
	a := NewDigestWithSeed(7)
	a.Add([]byte("x"))
	a.Reset()
	b := NewDigestWithSeed(7)
	if !a.Equals(b) {
		t.Fatalf("reset should return to the same state as a fresh digest with the same seed")
	}
}
