// Package alloc provides allocators that hand out contiguous byte
// ranges ("handles") on a block device. The handle is the index of the
// range's first block. The default strategy is a monotonic append
// cursor that never reuses freed space; its whole persistent state is
// one word.
package alloc

import (
	"fmt"

	"github.com/deploymenttheory/go-floudsfs/internal/interfaces"
)

// Strategy names accepted by New.
const (
	StrategyMonotonic = "monotonic"
)

// New creates an allocator over device using the named strategy.
func New(strategy string, device interfaces.BlockDevice) (interfaces.Allocator, error) {
	switch strategy {
	case StrategyMonotonic:
		return NewMonotonic(device), nil
	default:
		return nil, fmt.Errorf("unknown allocator strategy %q", strategy)
	}
}
