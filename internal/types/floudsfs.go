// Package types holds the shared on-disk and in-memory types of the
// FLOUDS filesystem: node kinds, the inode record, the image header and
// the serialized word width.
package types

import "github.com/google/uuid"

// NodeType is the two-bit per-node label stored in the FLOUDS type
// sequence.
type NodeType uint8

const (
	// NodeFile marks a regular file.
	NodeFile NodeType = 0
	// NodeFolder marks a folder with at least one child.
	NodeFolder NodeType = 1
	// NodeEmptyFolder marks a folder with no children.
	NodeEmptyFolder NodeType = 2
	// NodeReserved is unused and kept for future extensions.
	NodeReserved NodeType = 3
)

// Validate checks that the type is one of the defined labels.
func (t NodeType) Validate() bool {
	return t <= NodeReserved
}

// IsFolder reports whether the type labels a folder, empty or not.
func (t NodeType) IsFolder() bool {
	return t == NodeFolder || t == NodeEmptyFolder
}

// WordSize is the width in bytes of a serialized machine word. All
// serialized words are little-endian uint64 regardless of host.
const WordSize = 8

// Handle identifies a contiguous byte range handed out by an allocator.
// Zero means "unallocated".
type Handle uint64

// RootNode is the FLOUDS index of the root folder.
const RootNode = 0

// RootName is the literal basename stored for the root node.
const RootName = "root"

// Magic is the ASCII tag at the start of block 0 of a formatted image.
const Magic = "FLOUDS"

// InodeSize is the fixed byte length of a serialized inode record:
// handle, size, mode, padding, and three timestamps.
const InodeSize = 48

// Inode is the per-node metadata record. Inode k corresponds to FLOUDS
// node k and has no lifetime of its own.
type Inode struct {
	// AllocationHandle locates the node's data on the block device.
	// Zero for folders and for files whose size was never set.
	AllocationHandle Handle

	// Size is the file size in bytes.
	Size uint64

	// Mode holds the permission bits as given at creation. Stored,
	// not enforced.
	Mode uint32

	// ModificationTime, AccessTime and CreationTime are Unix seconds.
	ModificationTime int64
	AccessTime       int64
	CreationTime     int64
}

// HeaderSize is the byte length of the serialized image header:
// magic, volume UUID and three (handle, size) pairs.
const HeaderSize = 6 + 16 + 6*WordSize

// Header is the content of block 0 of the image. It records where the
// three serialized components live on the device.
type Header struct {
	// VolumeUUID identifies the filesystem instance. Stamped when the
	// image is first formatted.
	VolumeUUID uuid.UUID

	// AllocatorHandle and AllocatorSize locate the serialized
	// allocator state.
	AllocatorHandle Handle
	AllocatorSize   uint64

	// FloudsHandle and FloudsSize locate the serialized FLOUDS tree.
	FloudsHandle Handle
	FloudsSize   uint64

	// InodeHandle and InodeSize locate the serialized inode table.
	InodeHandle Handle
	InodeSize   uint64
}
