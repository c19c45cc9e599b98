package bloomsd

import "testing"

func TestDJB32Deterministic(t *testing.T) {
	a := ElemToU32([]byte("packet-prefix"))
	b := ElemToU32([]byte("packet-prefix"))
	if a != b {
		t.Fatalf("djb32 not deterministic: %d != %d", a, b)
	}
	c := ElemToU32([]byte("different-prefix"))
	if a == c {
		t.Fatalf("djb32 collided on different inputs (extremely unlikely): %d", a)
	}
}

func constHash(v uint64) KeyedHash64 {
	return func(elem []byte) uint64 { return v }
}

func TestHashIterSequence(t *testing.T) {
	it := NewHashIter([]byte("x"), 5, constHash(10), constHash(3))
	want := []uint64{10, 3, 10 + 2*3, 10 + 3*3, 10 + 4*3}
	got := it.Collect()
	if len(got) != len(want) {
		t.Fatalf("got %d values, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("index %d: got %d, want %d", i, got[i], want[i])
		}
	}
}

func TestHashIterRestartable(t *testing.T) {
	it1 := NewHashIter([]byte("pkt"), 4, constHash(7), constHash(11))
	it2 := NewHashIter([]byte("pkt"), 4, constHash(7), constHash(11))
	a, b := it1.Collect(), it2.Collect()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("iterator not deterministic at %d: %d != %d", i, a[i], b[i])
		}
	}
}
