package wavelet

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-floudsfs/internal/bitvector"
	"github.com/deploymenttheory/go-floudsfs/internal/interfaces"
	"github.com/deploymenttheory/go-floudsfs/internal/types"
)

func newWord(n int) interfaces.BitVector {
	return bitvector.NewWord(n)
}

// checkInvariant verifies |left| + |right| = |root| and that every
// access agrees with the expected symbol sequence.
func checkInvariant(t *testing.T, tree *Tree, data []uint8) {
	t.Helper()
	require.Equal(t, tree.root.Size(), tree.left.Size()+tree.right.Size(),
		"child lengths must sum to the root length")
	require.Equal(t, len(data), tree.Size())
	for i, want := range data {
		got, err := tree.Access(i)
		require.NoError(t, err)
		require.Equal(t, types.NodeType(want), got, "access(%d)", i)
	}
}

func TestRandomSequenceProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	data := make([]uint8, 200)
	for i := range data {
		data[i] = uint8(rng.Intn(4))
	}
	tree, err := New(data, newWord)
	require.NoError(t, err)
	checkInvariant(t, tree, data)

	for s := uint8(0); s < 4; s++ {
		symbol := types.NodeType(s)
		count := 0
		for i, v := range data {
			if v == s {
				count++
				pos, err := tree.Select(symbol, count)
				require.NoError(t, err)
				require.Equal(t, i, pos, "select(%d, %d)", s, count)
			}
			rank, err := tree.Rank(symbol, i)
			require.NoError(t, err)
			require.Equal(t, count, rank, "rank(%d, %d)", s, i)
		}
		_, err := tree.Select(symbol, count+1)
		require.ErrorIs(t, err, types.ErrOutOfRange)
	}
}

func TestInsertShiftsSequence(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	data := make([]uint8, 200)
	for i := range data {
		data[i] = uint8(rng.Intn(4))
	}
	tree, err := New(data, newWord)
	require.NoError(t, err)

	insert := func(pos int, symbol uint8) {
		require.NoError(t, tree.Insert(pos, types.NodeType(symbol)))
		data = append(data[:pos], append([]uint8{symbol}, data[pos:]...)...)
	}
	insert(0, 1)
	insert(100, 2)
	insert(200, 3)
	checkInvariant(t, tree, data)
}

func TestRemove(t *testing.T) {
	data := []uint8{0, 1, 2, 3, 2, 1, 0}
	tree, err := New(data, newWord)
	require.NoError(t, err)

	require.NoError(t, tree.Remove(3))
	checkInvariant(t, tree, []uint8{0, 1, 2, 2, 1, 0})
	require.NoError(t, tree.Remove(0))
	checkInvariant(t, tree, []uint8{1, 2, 2, 1, 0})
	require.NoError(t, tree.Remove(4))
	checkInvariant(t, tree, []uint8{1, 2, 2, 1})
}

func TestSetWithinAndAcrossHalves(t *testing.T) {
	data := []uint8{0, 1, 2, 3}
	tree, err := New(data, newWord)
	require.NoError(t, err)

	// Same half: 0 -> 1.
	require.NoError(t, tree.Set(0, 1))
	checkInvariant(t, tree, []uint8{1, 1, 2, 3})
	// Across halves: 1 -> 2.
	require.NoError(t, tree.Set(1, 2))
	checkInvariant(t, tree, []uint8{1, 2, 2, 3})
	// Rank of the untouched tail symbol is unchanged.
	rank, err := tree.Rank(3, 3)
	require.NoError(t, err)
	require.Equal(t, 1, rank)
}

func TestSymbolValidation(t *testing.T) {
	tree, err := New([]uint8{0, 1}, newWord)
	require.NoError(t, err)
	require.ErrorIs(t, tree.Insert(0, 4), types.ErrOutOfRange)
	require.ErrorIs(t, tree.Set(0, 5), types.ErrOutOfRange)
	_, err = New([]uint8{9}, newWord)
	require.Error(t, err)
}

func TestEmptyTree(t *testing.T) {
	tree, err := New(nil, newWord)
	require.NoError(t, err)
	require.Equal(t, 0, tree.Size())
	_, err = tree.Access(0)
	require.ErrorIs(t, err, types.ErrOutOfRange)
	rank, err := tree.Rank(0, 0)
	require.True(t, err != nil || rank == 0)
	require.NoError(t, tree.Insert(0, 2))
	got, err := tree.Access(0)
	require.NoError(t, err)
	require.Equal(t, types.NodeEmptyFolder, got)
}

func TestSerializeRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	data := make([]uint8, 120)
	for i := range data {
		data[i] = uint8(rng.Intn(4))
	}
	tree, err := New(data, newWord)
	require.NoError(t, err)

	buf := make([]byte, tree.SerializedSize())
	off := 0
	tree.SerializeInto(buf, &off)
	require.Equal(t, len(buf), off)

	restored, err := New(nil, newWord)
	require.NoError(t, err)
	off = 0
	require.NoError(t, restored.DeserializeFrom(buf, &off))
	checkInvariant(t, restored, data)
}

func TestDeserializeRejectsLengthMismatch(t *testing.T) {
	tree, err := New([]uint8{0, 3}, newWord)
	require.NoError(t, err)
	buf := make([]byte, tree.SerializedSize())
	off := 0
	tree.SerializeInto(buf, &off)

	// Corrupt the root vector's length word.
	buf[0] = 7
	restored, err := New(nil, newWord)
	require.NoError(t, err)
	off = 0
	err = restored.DeserializeFrom(buf, &off)
	if !errors.Is(err, types.ErrCorrupt) {
		t.Fatalf("expected corrupt, got %v", err)
	}
}
