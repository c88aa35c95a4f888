// Package bitvector provides the dynamic bit vectors the succinct
// structures are built on. Two interchangeable strategies exist: a
// plain boolean-slice reference implementation and a word-packed one
// using popcount. Both satisfy interfaces.BitVector and share the same
// serialized form, so they can be cross-validated and swapped freely.
package bitvector

import (
	"fmt"

	"github.com/deploymenttheory/go-floudsfs/internal/interfaces"
)

// Strategy names accepted by New.
const (
	StrategyArray = "array"
	StrategyWord  = "word"
)

// New creates a bit vector of n zero bits using the named strategy.
func New(strategy string, n int) (interfaces.BitVector, error) {
	switch strategy {
	case StrategyArray:
		return NewArray(n), nil
	case StrategyWord:
		return NewWord(n), nil
	default:
		return nil, fmt.Errorf("unknown bit vector strategy %q", strategy)
	}
}
