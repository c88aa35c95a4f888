package namesequence

import (
	"encoding/binary"
	"fmt"

	"github.com/deploymenttheory/go-floudsfs/internal/types"
)

// Array stores the names in a plain slice. Serialized form: a count
// word, then for each name a length word followed by its bytes.
type Array struct {
	names []string
}

// NewArray creates an empty array-backed name sequence.
func NewArray() *Array {
	return &Array{}
}

// Size returns the number of names.
func (a *Array) Size() int {
	return len(a.names)
}

// Set replaces the name at position.
func (a *Array) Set(position int, name string) error {
	if position < 0 || position >= len(a.names) {
		return fmt.Errorf("set name %d of %d: %w", position, len(a.names), types.ErrOutOfRange)
	}
	a.names[position] = name
	return nil
}

// Access returns the name at position.
func (a *Array) Access(position int) (string, error) {
	if position < 0 || position >= len(a.names) {
		return "", fmt.Errorf("access name %d of %d: %w", position, len(a.names), types.ErrOutOfRange)
	}
	return a.names[position], nil
}

// Insert places a new name at position, shifting later names right.
func (a *Array) Insert(position int, name string) error {
	if position < 0 || position > len(a.names) {
		return fmt.Errorf("insert name at %d of %d: %w", position, len(a.names), types.ErrOutOfRange)
	}
	a.names = append(a.names, "")
	copy(a.names[position+1:], a.names[position:])
	a.names[position] = name
	return nil
}

// Remove deletes the name at position, shifting later names left.
func (a *Array) Remove(position int) error {
	if position < 0 || position >= len(a.names) {
		return fmt.Errorf("remove name at %d of %d: %w", position, len(a.names), types.ErrOutOfRange)
	}
	a.names = append(a.names[:position], a.names[position+1:]...)
	return nil
}

// SerializedSize returns the encoded byte length.
func (a *Array) SerializedSize() int {
	size := types.WordSize
	for _, name := range a.names {
		size += types.WordSize + len(name)
	}
	return size
}

// SerializeInto writes the sequence into buf at *off.
func (a *Array) SerializeInto(buf []byte, off *int) {
	binary.LittleEndian.PutUint64(buf[*off:], uint64(len(a.names)))
	*off += types.WordSize
	for _, name := range a.names {
		binary.LittleEndian.PutUint64(buf[*off:], uint64(len(name)))
		*off += types.WordSize
		copy(buf[*off:], name)
		*off += len(name)
	}
}

// DeserializeFrom replaces the content with the encoding in buf at *off.
func (a *Array) DeserializeFrom(buf []byte, off *int) error {
	if len(buf)-*off < types.WordSize {
		return fmt.Errorf("name sequence header truncated: %w", types.ErrCorrupt)
	}
	count := int(binary.LittleEndian.Uint64(buf[*off:]))
	*off += types.WordSize
	names := make([]string, 0, count)
	for i := 0; i < count; i++ {
		if len(buf)-*off < types.WordSize {
			return fmt.Errorf("name %d length truncated: %w", i, types.ErrCorrupt)
		}
		length := int(binary.LittleEndian.Uint64(buf[*off:]))
		*off += types.WordSize
		if len(buf)-*off < length {
			return fmt.Errorf("name %d payload truncated: %w", i, types.ErrCorrupt)
		}
		names = append(names, string(buf[*off:*off+length]))
		*off += length
	}
	a.names = names
	return nil
}
