package bitvector

import (
	"fmt"

	"github.com/deploymenttheory/go-floudsfs/internal/types"
)

// Array is the straightforward boolean-slice implementation. Every
// operation is a linear scan or slice shuffle. It is not meant to be
// fast; it is the reference the word-packed strategy is validated
// against.
type Array struct {
	bits []bool
}

// NewArray creates an array-backed bit vector of n zero bits.
func NewArray(n int) *Array {
	return &Array{bits: make([]bool, n)}
}

// Size returns the number of bits.
func (a *Array) Size() int {
	return len(a.bits)
}

// Set overwrites the bit at position.
func (a *Array) Set(position int, value bool) error {
	if position < 0 || position >= len(a.bits) {
		return fmt.Errorf("set %d of %d bits: %w", position, len(a.bits), types.ErrOutOfRange)
	}
	a.bits[position] = value
	return nil
}

// Access returns the bit at position.
func (a *Array) Access(position int) (bool, error) {
	if position < 0 || position >= len(a.bits) {
		return false, fmt.Errorf("access %d of %d bits: %w", position, len(a.bits), types.ErrOutOfRange)
	}
	return a.bits[position], nil
}

// Rank1 counts 1-bits in positions [0, position].
func (a *Array) Rank1(position int) (int, error) {
	if position < 0 || position >= len(a.bits) {
		return 0, fmt.Errorf("rank1 at %d of %d bits: %w", position, len(a.bits), types.ErrOutOfRange)
	}
	count := 0
	for i := 0; i <= position; i++ {
		if a.bits[i] {
			count++
		}
	}
	return count, nil
}

// Rank0 counts 0-bits in positions [0, position].
func (a *Array) Rank0(position int) (int, error) {
	ones, err := a.Rank1(position)
	if err != nil {
		return 0, err
	}
	return position + 1 - ones, nil
}

// Select1 returns the position of the n-th 1-bit, n >= 1.
func (a *Array) Select1(n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("select1 of %d: %w", n, types.ErrOutOfRange)
	}
	count := 0
	for i, b := range a.bits {
		if b {
			count++
			if count == n {
				return i, nil
			}
		}
	}
	return 0, fmt.Errorf("select1 of %d with %d ones: %w", n, count, types.ErrOutOfRange)
}

// Select0 returns the position of the n-th 0-bit, n >= 1.
func (a *Array) Select0(n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("select0 of %d: %w", n, types.ErrOutOfRange)
	}
	count := 0
	for i, b := range a.bits {
		if !b {
			count++
			if count == n {
				return i, nil
			}
		}
	}
	return 0, fmt.Errorf("select0 of %d with %d zeros: %w", n, count, types.ErrOutOfRange)
}

// Insert places a new bit at position, shifting later bits right.
func (a *Array) Insert(position int, value bool) error {
	if position < 0 || position > len(a.bits) {
		return fmt.Errorf("insert at %d of %d bits: %w", position, len(a.bits), types.ErrOutOfRange)
	}
	a.bits = append(a.bits, false)
	copy(a.bits[position+1:], a.bits[position:])
	a.bits[position] = value
	return nil
}

// Remove deletes the bit at position, shifting later bits left.
func (a *Array) Remove(position int) error {
	if position < 0 || position >= len(a.bits) {
		return fmt.Errorf("remove at %d of %d bits: %w", position, len(a.bits), types.ErrOutOfRange)
	}
	a.bits = append(a.bits[:position], a.bits[position+1:]...)
	return nil
}

// SerializedSize returns the encoded byte length.
func (a *Array) SerializedSize() int {
	return serializedSize(len(a.bits))
}

// SerializeInto writes the bit vector into buf at *off.
func (a *Array) SerializeInto(buf []byte, off *int) {
	serializeBits(buf, off, len(a.bits), func(i int) bool { return a.bits[i] })
}

// DeserializeFrom replaces the content with the encoding in buf at *off.
func (a *Array) DeserializeFrom(buf []byte, off *int) error {
	n, get, err := deserializeBits(buf, off)
	if err != nil {
		return err
	}
	a.bits = make([]bool, n)
	for i := range a.bits {
		a.bits[i] = get(i)
	}
	return nil
}
