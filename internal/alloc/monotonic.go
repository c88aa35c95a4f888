package alloc

import (
	"encoding/binary"
	"fmt"

	"github.com/deploymenttheory/go-floudsfs/internal/interfaces"
	"github.com/deploymenttheory/go-floudsfs/internal/types"
)

// Monotonic allocates by advancing a next-block cursor. Block 0 is the
// header, so the cursor starts at 1. Free is a no-op; Resize returns
// the same handle while the new size fits the old block count and
// otherwise allocates a fresh range without copying.
type Monotonic struct {
	device    interfaces.BlockDevice
	nextBlock uint64
}

// NewMonotonic creates a monotonic allocator over device.
func NewMonotonic(device interfaces.BlockDevice) *Monotonic {
	return &Monotonic{device: device, nextBlock: 1}
}

// blocksFor returns the number of blocks covering size bytes, at least
// one so that every live handle owns a real range.
func (m *Monotonic) blocksFor(size uint64) uint64 {
	blockSize := uint64(m.device.BlockSize())
	if size == 0 {
		return 1
	}
	return (size + blockSize - 1) / blockSize
}

// NextBlock returns the current cursor, which is also the number of
// the first never-allocated block.
func (m *Monotonic) NextBlock() uint64 {
	return m.nextBlock
}

// Allocate reserves room for size bytes and returns its handle.
func (m *Monotonic) Allocate(size uint64) types.Handle {
	handle := types.Handle(m.nextBlock)
	m.nextBlock += m.blocksFor(size)
	return handle
}

// Free releases nothing: this strategy never reuses space.
func (m *Monotonic) Free(handle types.Handle) {
}

// Read copies len(buf) bytes from the range at the given byte offset,
// crossing block boundaries as needed.
func (m *Monotonic) Read(handle types.Handle, buf []byte, offset uint64) error {
	blockSize := uint64(m.device.BlockSize())
	block := make([]byte, blockSize)
	read := uint64(0)
	for read < uint64(len(buf)) {
		current := offset + read
		index := uint64(handle) + current/blockSize
		blockOffset := current % blockSize
		chunk := uint64(len(buf)) - read
		if chunk > blockSize-blockOffset {
			chunk = blockSize - blockOffset
		}
		if err := m.device.ReadBlock(index, block); err != nil {
			return fmt.Errorf("reading handle %d offset %d: %w", handle, current, err)
		}
		copy(buf[read:read+chunk], block[blockOffset:blockOffset+chunk])
		read += chunk
	}
	return nil
}

// Write copies buf into the range at the given byte offset. Partial
// head and tail blocks are read-modify-written; aligned full blocks are
// written directly.
func (m *Monotonic) Write(handle types.Handle, buf []byte, offset uint64) error {
	blockSize := uint64(m.device.BlockSize())
	block := make([]byte, blockSize)
	written := uint64(0)
	for written < uint64(len(buf)) {
		current := offset + written
		index := uint64(handle) + current/blockSize
		blockOffset := current % blockSize
		chunk := uint64(len(buf)) - written
		if chunk > blockSize-blockOffset {
			chunk = blockSize - blockOffset
		}
		if blockOffset != 0 || chunk < blockSize {
			if err := m.device.ReadBlock(index, block); err != nil {
				return fmt.Errorf("reading handle %d offset %d for partial write: %w", handle, current, err)
			}
		}
		copy(block[blockOffset:blockOffset+chunk], buf[written:written+chunk])
		if err := m.device.WriteBlock(index, block); err != nil {
			return fmt.Errorf("writing handle %d offset %d: %w", handle, current, err)
		}
		written += chunk
	}
	return nil
}

// Resize grows or shrinks the range behind handle. The same handle
// comes back whenever the new block count fits the old one; otherwise a
// fresh range is allocated and the old one abandoned. Content is not
// copied.
func (m *Monotonic) Resize(handle types.Handle, oldSize, newSize uint64) types.Handle {
	if handle == 0 {
		return m.Allocate(newSize)
	}
	if m.blocksFor(newSize) <= m.blocksFor(oldSize) {
		return handle
	}
	return m.Allocate(newSize)
}

// SerializedSize returns the encoded byte length: the cursor word.
func (m *Monotonic) SerializedSize() int {
	return types.WordSize
}

// SerializeInto writes the cursor into buf at *off.
func (m *Monotonic) SerializeInto(buf []byte, off *int) {
	binary.LittleEndian.PutUint64(buf[*off:], m.nextBlock)
	*off += types.WordSize
}

// DeserializeFrom replaces the cursor with the encoding in buf at *off.
func (m *Monotonic) DeserializeFrom(buf []byte, off *int) error {
	if len(buf)-*off < types.WordSize {
		return fmt.Errorf("allocator state truncated: %w", types.ErrCorrupt)
	}
	m.nextBlock = binary.LittleEndian.Uint64(buf[*off:])
	*off += types.WordSize
	if m.nextBlock == 0 {
		return fmt.Errorf("allocator cursor is zero: %w", types.ErrCorrupt)
	}
	return nil
}
