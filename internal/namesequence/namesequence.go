// Package namesequence provides the positional string sequences that
// hold basenames in the FLOUDS tree. Two strategies exist: a plain
// string-slice form and a concatenated form that keeps every name in
// one buffer with a boundary bit vector marking name starts. They
// satisfy the same contract but serialize differently, so images are
// only portable between managers configured with the same strategy.
package namesequence

import (
	"fmt"

	"github.com/deploymenttheory/go-floudsfs/internal/interfaces"
)

// Strategy names accepted by New.
const (
	StrategyArray        = "array"
	StrategyConcatenated = "concatenated"
)

// New creates an empty name sequence using the named strategy. The
// bit-vector constructor is used by the concatenated form for its
// boundary vector.
func New(strategy string, newBitVector func(n int) interfaces.BitVector) (interfaces.NameSequence, error) {
	switch strategy {
	case StrategyArray:
		return NewArray(), nil
	case StrategyConcatenated:
		return NewConcatenated(newBitVector), nil
	default:
		return nil, fmt.Errorf("unknown name sequence strategy %q", strategy)
	}
}
