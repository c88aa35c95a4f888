package bitvector

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-floudsfs/internal/interfaces"
)

// TestCrossValidation drives the word-packed strategy and the array
// reference through the same random mutation sequence and checks that
// access, rank and select agree at every step.
func TestCrossValidation(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	reference := NewArray(0)
	packed := NewWord(0)

	checkAgreement := func(step int) {
		require.Equal(t, reference.Size(), packed.Size(), "step %d: sizes diverge", step)
		n := reference.Size()
		if n == 0 {
			return
		}
		ones := 0
		for i := 0; i < n; i++ {
			wantBit, err := reference.Access(i)
			require.NoError(t, err)
			gotBit, err := packed.Access(i)
			require.NoError(t, err)
			require.Equal(t, wantBit, gotBit, "step %d: access(%d)", step, i)
			if wantBit {
				ones++
			}

			wantRank, err := reference.Rank1(i)
			require.NoError(t, err)
			gotRank, err := packed.Rank1(i)
			require.NoError(t, err)
			require.Equal(t, wantRank, gotRank, "step %d: rank1(%d)", step, i)
		}
		for k := 1; k <= ones; k++ {
			wantPos, err := reference.Select1(k)
			require.NoError(t, err)
			gotPos, err := packed.Select1(k)
			require.NoError(t, err)
			require.Equal(t, wantPos, gotPos, "step %d: select1(%d)", step, k)
		}
		for k := 1; k <= n-ones; k++ {
			wantPos, err := reference.Select0(k)
			require.NoError(t, err)
			gotPos, err := packed.Select0(k)
			require.NoError(t, err)
			require.Equal(t, wantPos, gotPos, "step %d: select0(%d)", step, k)
		}
	}

	apply := func(bv interfaces.BitVector, op, pos int, value bool) error {
		switch op {
		case 0:
			return bv.Insert(pos, value)
		case 1:
			return bv.Remove(pos)
		default:
			return bv.Set(pos, value)
		}
	}

	for step := 0; step < 400; step++ {
		op := rng.Intn(3)
		n := reference.Size()
		if n == 0 {
			op = 0
		}
		var pos int
		value := rng.Intn(2) == 0
		switch op {
		case 0:
			pos = rng.Intn(n + 1)
		default:
			pos = rng.Intn(n)
		}
		require.NoError(t, apply(reference, op, pos, value), "step %d", step)
		require.NoError(t, apply(packed, op, pos, value), "step %d", step)
		if step%10 == 0 {
			checkAgreement(step)
		}
	}
	checkAgreement(400)
}

// TestSerializationCompatible checks that the two strategies share one
// serialized form: a vector written by one deserializes into the other.
func TestSerializationCompatible(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	packed := NewWord(0)
	for i := 0; i < 300; i++ {
		require.NoError(t, packed.Insert(i, rng.Intn(2) == 0))
	}

	buf := make([]byte, packed.SerializedSize())
	off := 0
	packed.SerializeInto(buf, &off)

	reference := NewArray(0)
	off = 0
	require.NoError(t, reference.DeserializeFrom(buf, &off))
	require.Equal(t, packed.Size(), reference.Size())
	for i := 0; i < packed.Size(); i++ {
		want, err := packed.Access(i)
		require.NoError(t, err)
		got, err := reference.Access(i)
		require.NoError(t, err)
		require.Equal(t, want, got, "bit %d", i)
	}
}

func TestNewStrategies(t *testing.T) {
	for _, strategy := range []string{StrategyArray, StrategyWord} {
		bv, err := New(strategy, 10)
		require.NoError(t, err)
		require.Equal(t, 10, bv.Size())
	}
	_, err := New("saskeli", 10)
	require.Error(t, err)
}
