// Package inode holds the dense table of per-node metadata records.
// Record k belongs to FLOUDS node k; insertions and removals in the
// tree are mirrored here position for position.
package inode

import (
	"encoding/binary"
	"fmt"

	"github.com/deploymenttheory/go-floudsfs/internal/types"
)

// Table is a dense ordered sequence of inode records.
type Table struct {
	records []types.Inode
}

// NewTable creates an empty inode table.
func NewTable() *Table {
	return &Table{}
}

// Size returns the number of records.
func (t *Table) Size() int {
	return len(t.records)
}

// Get returns a pointer into the table for record position. The
// pointer stays valid until the next Insert or Remove.
func (t *Table) Get(position int) (*types.Inode, error) {
	if position < 0 || position >= len(t.records) {
		return nil, fmt.Errorf("inode %d of %d: %w", position, len(t.records), types.ErrOutOfRange)
	}
	return &t.records[position], nil
}

// Insert places a zero-valued record at position, shifting later
// records right, and returns a pointer to it.
func (t *Table) Insert(position int) (*types.Inode, error) {
	if position < 0 || position > len(t.records) {
		return nil, fmt.Errorf("insert inode at %d of %d: %w", position, len(t.records), types.ErrOutOfRange)
	}
	t.records = append(t.records, types.Inode{})
	copy(t.records[position+1:], t.records[position:])
	t.records[position] = types.Inode{}
	return &t.records[position], nil
}

// Remove deletes the record at position, shifting later records left.
func (t *Table) Remove(position int) error {
	if position < 0 || position >= len(t.records) {
		return fmt.Errorf("remove inode at %d of %d: %w", position, len(t.records), types.ErrOutOfRange)
	}
	t.records = append(t.records[:position], t.records[position+1:]...)
	return nil
}

// SerializedSize returns the encoded byte length: a count word plus one
// fixed-size record per inode.
func (t *Table) SerializedSize() int {
	return types.WordSize + len(t.records)*types.InodeSize
}

// SerializeInto writes the table into buf at *off. Each record is laid
// out as handle, size, mode, four reserved bytes, then the three
// timestamps, all little-endian.
func (t *Table) SerializeInto(buf []byte, off *int) {
	binary.LittleEndian.PutUint64(buf[*off:], uint64(len(t.records)))
	*off += types.WordSize
	for i := range t.records {
		record := &t.records[i]
		binary.LittleEndian.PutUint64(buf[*off:], uint64(record.AllocationHandle))
		binary.LittleEndian.PutUint64(buf[*off+8:], record.Size)
		binary.LittleEndian.PutUint32(buf[*off+16:], record.Mode)
		binary.LittleEndian.PutUint32(buf[*off+20:], 0)
		binary.LittleEndian.PutUint64(buf[*off+24:], uint64(record.ModificationTime))
		binary.LittleEndian.PutUint64(buf[*off+32:], uint64(record.AccessTime))
		binary.LittleEndian.PutUint64(buf[*off+40:], uint64(record.CreationTime))
		*off += types.InodeSize
	}
}

// DeserializeFrom replaces the content with the encoding in buf at *off.
func (t *Table) DeserializeFrom(buf []byte, off *int) error {
	if len(buf)-*off < types.WordSize {
		return fmt.Errorf("inode table header truncated: %w", types.ErrCorrupt)
	}
	count := int(binary.LittleEndian.Uint64(buf[*off:]))
	*off += types.WordSize
	if len(buf)-*off < count*types.InodeSize {
		return fmt.Errorf("inode table with %d records truncated: %w", count, types.ErrCorrupt)
	}
	records := make([]types.Inode, count)
	for i := range records {
		records[i] = types.Inode{
			AllocationHandle: types.Handle(binary.LittleEndian.Uint64(buf[*off:])),
			Size:             binary.LittleEndian.Uint64(buf[*off+8:]),
			Mode:             binary.LittleEndian.Uint32(buf[*off+16:]),
			ModificationTime: int64(binary.LittleEndian.Uint64(buf[*off+24:])),
			AccessTime:       int64(binary.LittleEndian.Uint64(buf[*off+32:])),
			CreationTime:     int64(binary.LittleEndian.Uint64(buf[*off+40:])),
		}
		*off += types.InodeSize
	}
	t.records = records
	return nil
}
