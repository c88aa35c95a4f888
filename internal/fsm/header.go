package fsm

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"

	"github.com/deploymenttheory/go-floudsfs/internal/types"
)

// Block 0 layout: the ASCII magic, the volume UUID, then the
// (handle, size) pairs for the allocator, the FLOUDS tree and the
// inode table, padded to the block size with zeros.

// encodeHeader serializes header into a buffer of blockSize bytes.
func encodeHeader(header types.Header, blockSize int) []byte {
	buf := make([]byte, blockSize)
	copy(buf, types.Magic)
	copy(buf[6:], header.VolumeUUID[:])
	off := 6 + 16
	for _, word := range []uint64{
		uint64(header.AllocatorHandle), header.AllocatorSize,
		uint64(header.FloudsHandle), header.FloudsSize,
		uint64(header.InodeHandle), header.InodeSize,
	} {
		binary.LittleEndian.PutUint64(buf[off:], word)
		off += types.WordSize
	}
	return buf
}

// decodeHeader parses block 0. The boolean reports whether the magic
// was present at all; without it the image is simply unformatted, not
// corrupt.
func decodeHeader(buf []byte) (types.Header, bool, error) {
	if len(buf) < types.HeaderSize {
		return types.Header{}, false, fmt.Errorf("header block of %d bytes: %w", len(buf), types.ErrCorrupt)
	}
	if !bytes.Equal(buf[:6], []byte(types.Magic)) {
		return types.Header{}, false, nil
	}
	var header types.Header
	header.VolumeUUID = uuid.UUID(buf[6:22])
	off := 6 + 16
	words := make([]uint64, 6)
	for i := range words {
		words[i] = binary.LittleEndian.Uint64(buf[off:])
		off += types.WordSize
	}
	header.AllocatorHandle = types.Handle(words[0])
	header.AllocatorSize = words[1]
	header.FloudsHandle = types.Handle(words[2])
	header.FloudsSize = words[3]
	header.InodeHandle = types.Handle(words[4])
	header.InodeSize = words[5]
	return header, true, nil
}
