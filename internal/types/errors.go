package types

import "errors"

// Sentinel errors of the filesystem. Callers match them with errors.Is;
// lower layers wrap them with positional context.
var (
	// ErrOutOfRange reports a positional precondition violation in a
	// succinct structure: an invalid index, an empty select, or a
	// select past the number of matching symbols.
	ErrOutOfRange = errors.New("position out of range")

	// ErrNotFound reports an absent path component during FLOUDS path
	// resolution. The kernel bridge maps it to ENOENT.
	ErrNotFound = errors.New("not found")

	// ErrWrongKind reports an operation on a node of the wrong type,
	// such as reading a folder or listing a file.
	ErrWrongKind = errors.New("wrong node kind")

	// ErrNotEmpty reports removal of a folder that still has children.
	ErrNotEmpty = errors.New("folder not empty")

	// ErrCorrupt reports inconsistent sizes or a bad magic seen while
	// deserializing. Fatal to mount.
	ErrCorrupt = errors.New("corrupt image")
)
