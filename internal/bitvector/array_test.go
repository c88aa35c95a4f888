package bitvector

import (
	"errors"
	"testing"

	"github.com/deploymenttheory/go-floudsfs/internal/types"
)

func TestArrayEmpty(t *testing.T) {
	bv := NewArray(0)
	if bv.Size() != 0 {
		t.Fatalf("expected size 0, got %d", bv.Size())
	}
	if _, err := bv.Rank1(0); !errors.Is(err, types.ErrOutOfRange) {
		t.Errorf("rank on empty vector: expected out of range, got %v", err)
	}
	if _, err := bv.Select1(1); !errors.Is(err, types.ErrOutOfRange) {
		t.Errorf("select on empty vector: expected out of range, got %v", err)
	}
	if _, err := bv.Access(0); !errors.Is(err, types.ErrOutOfRange) {
		t.Errorf("access on empty vector: expected out of range, got %v", err)
	}
}

func TestArraySingleBit(t *testing.T) {
	bv := NewArray(1)
	if err := bv.Set(0, true); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	got, err := bv.Access(0)
	if err != nil || !got {
		t.Fatalf("expected bit set, got %v, %v", got, err)
	}
	ones, err := bv.Rank1(0)
	if err != nil || ones != 1 {
		t.Fatalf("expected rank1(0)=1, got %d, %v", ones, err)
	}
	zeros, err := bv.Rank0(0)
	if err != nil || zeros != 0 {
		t.Fatalf("expected rank0(0)=0, got %d, %v", zeros, err)
	}
	pos, err := bv.Select1(1)
	if err != nil || pos != 0 {
		t.Fatalf("expected select1(1)=0, got %d, %v", pos, err)
	}
	if _, err := bv.Select0(1); !errors.Is(err, types.ErrOutOfRange) {
		t.Errorf("select0 without zeros: expected out of range, got %v", err)
	}
}

func TestArrayRankInclusive(t *testing.T) {
	// Rank counts positions [0, i], so every position satisfies
	// rank0(i) + rank1(i) = i + 1.
	bv := NewArray(0)
	pattern := []bool{true, false, false, true, true, false, true}
	for i, b := range pattern {
		if err := bv.Insert(i, b); err != nil {
			t.Fatalf("insert %d failed: %v", i, err)
		}
	}
	for i := range pattern {
		ones, err := bv.Rank1(i)
		if err != nil {
			t.Fatalf("rank1(%d) failed: %v", i, err)
		}
		zeros, err := bv.Rank0(i)
		if err != nil {
			t.Fatalf("rank0(%d) failed: %v", i, err)
		}
		if ones+zeros != i+1 {
			t.Errorf("rank1(%d)+rank0(%d) = %d, want %d", i, i, ones+zeros, i+1)
		}
	}
}

func TestArrayInsertAtEnds(t *testing.T) {
	bv := NewArray(0)
	if err := bv.Insert(0, true); err != nil {
		t.Fatalf("insert at 0 failed: %v", err)
	}
	if err := bv.Insert(1, false); err != nil {
		t.Fatalf("insert at size failed: %v", err)
	}
	if err := bv.Insert(0, false); err != nil {
		t.Fatalf("insert at 0 of non-empty failed: %v", err)
	}
	// Sequence is now 0 1 0.
	pos, err := bv.Select1(1)
	if err != nil || pos != 1 {
		t.Fatalf("expected the single 1-bit at 1, got %d, %v", pos, err)
	}
	if err := bv.Insert(4, true); !errors.Is(err, types.ErrOutOfRange) {
		t.Errorf("insert past size: expected out of range, got %v", err)
	}
}

func TestArrayRemove(t *testing.T) {
	bv := NewArray(3)
	bv.Set(1, true)
	if err := bv.Remove(0); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	got, err := bv.Access(0)
	if err != nil || !got {
		t.Fatalf("expected shifted 1-bit at 0, got %v, %v", got, err)
	}
	if bv.Size() != 2 {
		t.Fatalf("expected size 2, got %d", bv.Size())
	}
	if err := bv.Remove(2); !errors.Is(err, types.ErrOutOfRange) {
		t.Errorf("remove past size: expected out of range, got %v", err)
	}
}

func TestArraySerializeRoundTrip(t *testing.T) {
	bv := NewArray(0)
	for i, b := range []bool{true, true, false, true, false, false, false, true, true} {
		bv.Insert(i, b)
	}
	buf := make([]byte, bv.SerializedSize())
	off := 0
	bv.SerializeInto(buf, &off)
	if off != len(buf) {
		t.Fatalf("serialize wrote %d of %d bytes", off, len(buf))
	}

	restored := NewArray(0)
	off = 0
	if err := restored.DeserializeFrom(buf, &off); err != nil {
		t.Fatalf("deserialize failed: %v", err)
	}
	if restored.Size() != bv.Size() {
		t.Fatalf("expected size %d, got %d", bv.Size(), restored.Size())
	}
	for i := 0; i < bv.Size(); i++ {
		want, _ := bv.Access(i)
		got, _ := restored.Access(i)
		if want != got {
			t.Errorf("bit %d: expected %v, got %v", i, want, got)
		}
	}
}

func TestArrayDeserializeTruncated(t *testing.T) {
	bv := NewArray(0)
	off := 0
	if err := bv.DeserializeFrom([]byte{1, 2, 3}, &off); !errors.Is(err, types.ErrCorrupt) {
		t.Fatalf("expected corrupt, got %v", err)
	}
}
