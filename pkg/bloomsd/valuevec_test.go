package bloomsd

import "testing"

func TestValueVecSetGet(t *testing.T) {
	vv := NewValueVec(5, 10)
	for i := uint32(0); i < 10; i++ {
		vv.Set(i, i+1)
	}
	for i := uint32(0); i < 10; i++ {
		if got := vv.Get(i); got != i+1 {
			t.Fatalf("cell %d: got %d, want %d", i, got, i+1)
		}
	}
}

func TestValueVecCrossWordBoundary(t *testing.T) {
	// bits_per_val=5, so cell 6 (idx=30) straddles the first 32-bit word.
	vv := NewValueVec(5, 10)
	vv.Set(6, 17)
	vv.Set(5, 3)
	vv.Set(7, 29)
	if got := vv.Get(6); got != 17 {
		t.Fatalf("cell 6 corrupted by neighbors: got %d", got)
	}
	if got := vv.Get(5); got != 3 {
		t.Fatalf("cell 5 corrupted: got %d", got)
	}
	if got := vv.Get(7); got != 29 {
		t.Fatalf("cell 7 corrupted: got %d", got)
	}
}

func TestValueVecSetRejectsOverflow(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic setting a value above max")
		}
	}()
	vv := NewValueVec(3, 4)
	vv.Set(0, 8) // max for 3 bits is 7
}

func TestWithMax(t *testing.T) {
	vv := WithMax(7, 3)
	if vv.BitsPerVal() != 3 {
		t.Fatalf("expected 3 bits per val for max 7, got %d", vv.BitsPerVal())
	}
	vv.Set(0, 7)
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic setting 8 into a max-7 vector")
		}
	}()
	vv.Set(0, 8)
}

func TestValueVecRoundTrip(t *testing.T) {
	vv := NewValueVec(6, 20)
	for i := uint32(0); i < 20; i++ {
		vv.Set(i, (i*7+1)%64)
	}
	bytes := vv.ToBytes()
	vv2, n, err := ValueVecFromBytes(bytes)
	if err != nil {
		t.Fatalf("from_bytes: %v", err)
	}
	if n != len(bytes) {
		t.Fatalf("consumed %d bytes, want %d", n, len(bytes))
	}
	if !vv.Equal(vv2) {
		t.Fatalf("round trip mismatch")
	}
}
