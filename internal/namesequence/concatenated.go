package namesequence

import (
	"encoding/binary"
	"fmt"

	"github.com/deploymenttheory/go-floudsfs/internal/interfaces"
	"github.com/deploymenttheory/go-floudsfs/internal/types"
)

// Concatenated keeps every name in one byte buffer with a boundary bit
// vector of the same length marking the first byte of each name. Access
// slices between consecutive boundary marks. Serialized form: a word
// with the total byte count, the bytes, then the boundary bit vector.
//
// Empty names cannot be represented in this form; the FLOUDS layer
// rejects them before they get here.
type Concatenated struct {
	chars      []byte
	boundaries interfaces.BitVector
}

// NewConcatenated creates an empty concatenated name sequence whose
// boundary vector comes from newBitVector.
func NewConcatenated(newBitVector func(n int) interfaces.BitVector) *Concatenated {
	return &Concatenated{boundaries: newBitVector(0)}
}

// Size returns the number of names.
func (c *Concatenated) Size() int {
	if c.boundaries.Size() == 0 {
		return 0
	}
	count, _ := c.boundaries.Rank1(c.boundaries.Size() - 1)
	return count
}

// span returns the [start, end) byte range of the name at position.
func (c *Concatenated) span(position int) (int, int, error) {
	size := c.Size()
	if position < 0 || position >= size {
		return 0, 0, fmt.Errorf("name %d of %d: %w", position, size, types.ErrOutOfRange)
	}
	start, err := c.boundaries.Select1(position + 1)
	if err != nil {
		return 0, 0, err
	}
	end := len(c.chars)
	if position < size-1 {
		end, err = c.boundaries.Select1(position + 2)
		if err != nil {
			return 0, 0, err
		}
	}
	return start, end, nil
}

// Set replaces the name at position.
func (c *Concatenated) Set(position int, name string) error {
	if err := c.Remove(position); err != nil {
		return err
	}
	return c.Insert(position, name)
}

// Access returns the name at position.
func (c *Concatenated) Access(position int) (string, error) {
	start, end, err := c.span(position)
	if err != nil {
		return "", err
	}
	return string(c.chars[start:end]), nil
}

// Insert places a new name at position, shifting later names right.
func (c *Concatenated) Insert(position int, name string) error {
	size := c.Size()
	if position < 0 || position > size {
		return fmt.Errorf("insert name at %d of %d: %w", position, size, types.ErrOutOfRange)
	}
	if name == "" {
		return fmt.Errorf("empty name: %w", types.ErrOutOfRange)
	}
	var charPos int
	switch {
	case position == 0:
		charPos = 0
	case position == size:
		charPos = len(c.chars)
	default:
		var err error
		charPos, err = c.boundaries.Select1(position + 1)
		if err != nil {
			return err
		}
	}
	c.chars = append(c.chars[:charPos], append([]byte(name), c.chars[charPos:]...)...)
	for i := 0; i < len(name); i++ {
		if err := c.boundaries.Insert(charPos+i, i == 0); err != nil {
			return err
		}
	}
	return nil
}

// Remove deletes the name at position, shifting later names left.
func (c *Concatenated) Remove(position int) error {
	start, end, err := c.span(position)
	if err != nil {
		return err
	}
	c.chars = append(c.chars[:start], c.chars[end:]...)
	for i := start; i < end; i++ {
		if err := c.boundaries.Remove(start); err != nil {
			return err
		}
	}
	return nil
}

// SerializedSize returns the encoded byte length.
func (c *Concatenated) SerializedSize() int {
	return types.WordSize + len(c.chars) + c.boundaries.SerializedSize()
}

// SerializeInto writes the sequence into buf at *off.
func (c *Concatenated) SerializeInto(buf []byte, off *int) {
	binary.LittleEndian.PutUint64(buf[*off:], uint64(len(c.chars)))
	*off += types.WordSize
	copy(buf[*off:], c.chars)
	*off += len(c.chars)
	c.boundaries.SerializeInto(buf, off)
}

// DeserializeFrom replaces the content with the encoding in buf at *off.
func (c *Concatenated) DeserializeFrom(buf []byte, off *int) error {
	if len(buf)-*off < types.WordSize {
		return fmt.Errorf("name buffer header truncated: %w", types.ErrCorrupt)
	}
	length := int(binary.LittleEndian.Uint64(buf[*off:]))
	*off += types.WordSize
	if len(buf)-*off < length {
		return fmt.Errorf("name buffer truncated: %w", types.ErrCorrupt)
	}
	c.chars = append([]byte(nil), buf[*off:*off+length]...)
	*off += length
	if err := c.boundaries.DeserializeFrom(buf, off); err != nil {
		return err
	}
	if c.boundaries.Size() != len(c.chars) {
		return fmt.Errorf("boundary vector %d bits for %d chars: %w",
			c.boundaries.Size(), len(c.chars), types.ErrCorrupt)
	}
	return nil
}
