// Package wavelet implements a dynamic wavelet tree over the four-symbol
// alphabet {0, 1, 2, 3} on top of three bit vectors. The root vector
// splits symbols below 2 from symbols 2 and above; the left and right
// child vectors store the low bit of each half. The length invariant
// |left| + |right| = |root| holds at every quiescent state.
package wavelet

import (
	"fmt"

	"github.com/deploymenttheory/go-floudsfs/internal/interfaces"
	"github.com/deploymenttheory/go-floudsfs/internal/types"
)

// Tree is the two-bit wavelet tree.
type Tree struct {
	root  interfaces.BitVector
	left  interfaces.BitVector
	right interfaces.BitVector
}

// New builds a tree over data using newBitVector to create its three
// vectors. Every symbol must be below 4.
func New(data []uint8, newBitVector func(n int) interfaces.BitVector) (*Tree, error) {
	ones := 0
	for i, s := range data {
		if s > 3 {
			return nil, fmt.Errorf("symbol %d at %d: %w", s, i, types.ErrOutOfRange)
		}
		if s >= 2 {
			ones++
		}
	}
	t := &Tree{
		root:  newBitVector(len(data)),
		left:  newBitVector(len(data) - ones),
		right: newBitVector(ones),
	}
	leftPos, rightPos := 0, 0
	for i, s := range data {
		if s >= 2 {
			if err := t.root.Set(i, true); err != nil {
				return nil, err
			}
			if err := t.right.Set(rightPos, s == 3); err != nil {
				return nil, err
			}
			rightPos++
		} else {
			if err := t.left.Set(leftPos, s == 1); err != nil {
				return nil, err
			}
			leftPos++
		}
	}
	return t, nil
}

// Size returns the number of symbols.
func (t *Tree) Size() int {
	return t.root.Size()
}

// Access returns the symbol at position.
func (t *Tree) Access(position int) (types.NodeType, error) {
	rootBit, err := t.root.Access(position)
	if err != nil {
		return 0, err
	}
	if !rootBit {
		j, err := t.root.Rank0(position)
		if err != nil {
			return 0, err
		}
		low, err := t.left.Access(j - 1)
		if err != nil {
			return 0, err
		}
		if low {
			return 1, nil
		}
		return 0, nil
	}
	j, err := t.root.Rank1(position)
	if err != nil {
		return 0, err
	}
	low, err := t.right.Access(j - 1)
	if err != nil {
		return 0, err
	}
	if low {
		return 3, nil
	}
	return 2, nil
}

// Rank counts occurrences of symbol in positions [0, position].
func (t *Tree) Rank(symbol types.NodeType, position int) (int, error) {
	if symbol > 3 {
		return 0, fmt.Errorf("symbol %d: %w", symbol, types.ErrOutOfRange)
	}
	child, childRank := t.left, interfaces.BitVector.Rank0
	if symbol%2 == 1 {
		childRank = interfaces.BitVector.Rank1
	}
	rootRank := t.root.Rank0
	if symbol >= 2 {
		child = t.right
		rootRank = t.root.Rank1
	}
	prefix, err := rootRank(position)
	if err != nil {
		return 0, err
	}
	if prefix == 0 {
		return 0, nil
	}
	return childRank(child, prefix-1)
}

// Select returns the position of the n-th occurrence of symbol, n >= 1.
func (t *Tree) Select(symbol types.NodeType, n int) (int, error) {
	if symbol > 3 {
		return 0, fmt.Errorf("symbol %d: %w", symbol, types.ErrOutOfRange)
	}
	child, childSelect := t.left, interfaces.BitVector.Select0
	if symbol%2 == 1 {
		childSelect = interfaces.BitVector.Select1
	}
	rootSelect := t.root.Select0
	if symbol >= 2 {
		child = t.right
		rootSelect = t.root.Select1
	}
	j, err := childSelect(child, n)
	if err != nil {
		return 0, err
	}
	return rootSelect(j + 1)
}

// Set overwrites the symbol at position. When the new symbol stays in
// the same half of the alphabet only the child bit changes, which
// leaves rank and select of untouched symbols at untouched positions
// intact; crossing halves falls back to remove plus insert.
func (t *Tree) Set(position int, symbol types.NodeType) error {
	if symbol > 3 {
		return fmt.Errorf("symbol %d: %w", symbol, types.ErrOutOfRange)
	}
	rootBit, err := t.root.Access(position)
	if err != nil {
		return err
	}
	if rootBit == (symbol >= 2) {
		if !rootBit {
			j, err := t.root.Rank0(position)
			if err != nil {
				return err
			}
			return t.left.Set(j-1, symbol%2 == 1)
		}
		j, err := t.root.Rank1(position)
		if err != nil {
			return err
		}
		return t.right.Set(j-1, symbol%2 == 1)
	}
	if err := t.Remove(position); err != nil {
		return err
	}
	return t.Insert(position, symbol)
}

// Insert places symbol at position, shifting later symbols right. Only
// the child vector of the chosen half grows, so the length invariant is
// preserved.
func (t *Tree) Insert(position int, symbol types.NodeType) error {
	if symbol > 3 {
		return fmt.Errorf("symbol %d: %w", symbol, types.ErrOutOfRange)
	}
	if position < 0 || position > t.Size() {
		return fmt.Errorf("insert at %d of %d symbols: %w", position, t.Size(), types.ErrOutOfRange)
	}
	childPos := 0
	if position > 0 {
		var err error
		if symbol < 2 {
			childPos, err = t.root.Rank0(position - 1)
		} else {
			childPos, err = t.root.Rank1(position - 1)
		}
		if err != nil {
			return err
		}
	}
	if err := t.root.Insert(position, symbol >= 2); err != nil {
		return err
	}
	if symbol < 2 {
		return t.left.Insert(childPos, symbol == 1)
	}
	return t.right.Insert(childPos, symbol == 3)
}

// Remove deletes the symbol at position, shifting later symbols left.
func (t *Tree) Remove(position int) error {
	rootBit, err := t.root.Access(position)
	if err != nil {
		return err
	}
	var childPos int
	if rootBit {
		childPos, err = t.root.Rank1(position)
	} else {
		childPos, err = t.root.Rank0(position)
	}
	if err != nil {
		return err
	}
	if err := t.root.Remove(position); err != nil {
		return err
	}
	if rootBit {
		return t.right.Remove(childPos - 1)
	}
	return t.left.Remove(childPos - 1)
}

// SerializedSize returns the encoded byte length: root, left and right
// bit vectors in order.
func (t *Tree) SerializedSize() int {
	return t.root.SerializedSize() + t.left.SerializedSize() + t.right.SerializedSize()
}

// SerializeInto writes the three bit vectors into buf at *off.
func (t *Tree) SerializeInto(buf []byte, off *int) {
	t.root.SerializeInto(buf, off)
	t.left.SerializeInto(buf, off)
	t.right.SerializeInto(buf, off)
}

// DeserializeFrom replaces the content with the encoding in buf at *off
// and re-checks the length invariant.
func (t *Tree) DeserializeFrom(buf []byte, off *int) error {
	if err := t.root.DeserializeFrom(buf, off); err != nil {
		return err
	}
	if err := t.left.DeserializeFrom(buf, off); err != nil {
		return err
	}
	if err := t.right.DeserializeFrom(buf, off); err != nil {
		return err
	}
	if t.left.Size()+t.right.Size() != t.root.Size() {
		return fmt.Errorf("wavelet children %d+%d != root %d: %w",
			t.left.Size(), t.right.Size(), t.root.Size(), types.ErrCorrupt)
	}
	return nil
}
