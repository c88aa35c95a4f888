package bitvector

import (
	"encoding/binary"
	"fmt"

	"github.com/deploymenttheory/go-floudsfs/internal/types"
)

// Serialized form shared by all strategies: a little-endian uint64 bit
// count followed by ceil(n/8) bytes, bit i stored at byte i/8 under
// mask 1<<(7-i%8).

func serializedSize(n int) int {
	return types.WordSize + (n+7)/8
}

func serializeBits(buf []byte, off *int, n int, get func(int) bool) {
	binary.LittleEndian.PutUint64(buf[*off:], uint64(n))
	*off += types.WordSize
	payload := buf[*off : *off+(n+7)/8]
	for i := range payload {
		payload[i] = 0
	}
	for i := 0; i < n; i++ {
		if get(i) {
			payload[i/8] |= 1 << (7 - i%8)
		}
	}
	*off += len(payload)
}

func deserializeBits(buf []byte, off *int) (n int, get func(int) bool, err error) {
	if len(buf)-*off < types.WordSize {
		return 0, nil, fmt.Errorf("bit vector header truncated: %w", types.ErrCorrupt)
	}
	n = int(binary.LittleEndian.Uint64(buf[*off:]))
	*off += types.WordSize
	byteLen := (n + 7) / 8
	if len(buf)-*off < byteLen {
		return 0, nil, fmt.Errorf("bit vector payload truncated: %w", types.ErrCorrupt)
	}
	payload := buf[*off : *off+byteLen]
	*off += byteLen
	return n, func(i int) bool {
		return payload[i/8]&(1<<(7-i%8)) != 0
	}, nil
}
