package interfaces

import "github.com/deploymenttheory/go-floudsfs/internal/types"

// Allocator hands out contiguous byte ranges ("handles") on a block
// device. Handle zero is never allocated; block 0 belongs to the
// filesystem header.
type Allocator interface {
	// Allocate reserves room for size bytes and returns its handle.
	Allocate(size uint64) types.Handle

	// Free releases the range behind handle. Strategies that never
	// reuse space treat this as a no-op.
	Free(handle types.Handle)

	// Read copies len(buf) bytes from the range at the given byte
	// offset into buf. The read may span block boundaries.
	Read(handle types.Handle, buf []byte, offset uint64) error

	// Write copies buf into the range at the given byte offset,
	// read-modify-writing partial head and tail blocks.
	Write(handle types.Handle, buf []byte, offset uint64) error

	// Resize grows or shrinks the range behind handle from oldSize to
	// newSize bytes, returning the handle of the resulting range. The
	// same handle comes back whenever the new size fits the old block
	// count. Content is not copied; callers that need the old bytes
	// copy them over or re-serialize from scratch.
	Resize(handle types.Handle, oldSize, newSize uint64) types.Handle

	Serializable
}
