// Package flouds implements the FLOUDS directory hierarchy: a bit
// vector marking first children, a four-symbol wavelet tree labelling
// each node as file, folder or empty folder, and a name sequence with
// each node's basename. All three have one entry per node; the node
// index is the position itself, with node 0 the root.
//
// The encoding is from "FLOUDS: A Succinct File System Structure"
// (Peters, Fischer, Thiel, Seifert; FedCSIS 2017).
package flouds

import (
	"fmt"
	"strings"

	"github.com/deploymenttheory/go-floudsfs/internal/interfaces"
	"github.com/deploymenttheory/go-floudsfs/internal/types"
	"github.com/deploymenttheory/go-floudsfs/internal/wavelet"
)

// Tree is the FLOUDS structure. Nodes appear in level order: a node's
// children always live at higher indices, grouped in one run per
// non-empty folder, with runs ordered by their folders' indices.
type Tree struct {
	structure interfaces.BitVector
	nodeTypes *wavelet.Tree
	names     interfaces.NameSequence
}

// New assembles a tree from existing components. The three sequences
// must have one entry per node.
func New(structure interfaces.BitVector, nodeTypes *wavelet.Tree, names interfaces.NameSequence) (*Tree, error) {
	t := &Tree{structure: structure, nodeTypes: nodeTypes, names: names}
	if err := t.validateLengths(); err != nil {
		return nil, err
	}
	return t, nil
}

// NewRoot builds a fresh tree holding only the root folder. The bit
// vector constructor supplies the structure vector and the wavelet
// tree's three vectors; names is an empty name sequence that receives
// the root's name.
func NewRoot(newBitVector func(n int) interfaces.BitVector, names interfaces.NameSequence) (*Tree, error) {
	structure := newBitVector(1)
	if err := structure.Set(0, true); err != nil {
		return nil, err
	}
	nodeTypes, err := wavelet.New([]uint8{uint8(types.NodeEmptyFolder)}, newBitVector)
	if err != nil {
		return nil, err
	}
	if err := names.Insert(0, types.RootName); err != nil {
		return nil, err
	}
	return New(structure, nodeTypes, names)
}

func (t *Tree) validateLengths() error {
	if t.structure.Size() != t.nodeTypes.Size() || t.structure.Size() != t.names.Size() {
		return fmt.Errorf("sequence lengths %d/%d/%d diverge: %w",
			t.structure.Size(), t.nodeTypes.Size(), t.names.Size(), types.ErrCorrupt)
	}
	return nil
}

// Size returns the number of nodes.
func (t *Tree) Size() int {
	return t.structure.Size()
}

// Type returns the node's type label.
func (t *Tree) Type(node int) (types.NodeType, error) {
	return t.nodeTypes.Access(node)
}

// IsFolder reports whether node is a folder, empty or not.
func (t *Tree) IsFolder(node int) (bool, error) {
	nt, err := t.nodeTypes.Access(node)
	if err != nil {
		return false, err
	}
	return nt.IsFolder(), nil
}

// IsFile reports whether node is a regular file.
func (t *Tree) IsFile(node int) (bool, error) {
	nt, err := t.nodeTypes.Access(node)
	if err != nil {
		return false, err
	}
	return nt == types.NodeFile, nil
}

// IsEmptyFolder reports whether node is a folder with no children.
func (t *Tree) IsEmptyFolder(node int) (bool, error) {
	nt, err := t.nodeTypes.Access(node)
	if err != nil {
		return false, err
	}
	return nt == types.NodeEmptyFolder, nil
}

// Name returns the node's basename.
func (t *Tree) Name(node int) (string, error) {
	return t.names.Access(node)
}

// Parent returns the parent of node. The root has no parent.
//
// The count of first-child marks up to and including node is one (the
// root's own mark) plus the index of node's parent among non-empty
// folders, because each non-empty folder before node's run has placed
// exactly one mark.
func (t *Tree) Parent(node int) (int, error) {
	if node == types.RootNode {
		return 0, fmt.Errorf("root has no parent: %w", types.ErrOutOfRange)
	}
	marks, err := t.structure.Rank1(node)
	if err != nil {
		return 0, err
	}
	return t.nodeTypes.Select(types.NodeFolder, marks-1)
}

// childrenStart returns the index of the first child of the non-empty
// folder node, together with the 1-based index of that folder's mark in
// the structure vector.
func (t *Tree) childrenStart(node int) (start, mark int, err error) {
	folderIndex, err := t.nodeTypes.Rank(types.NodeFolder, node)
	if err != nil {
		return 0, 0, err
	}
	mark = folderIndex + 1
	start, err = t.structure.Select1(mark)
	if err != nil {
		return 0, 0, err
	}
	return start, mark, nil
}

// ChildrenCount returns the number of children of node. Files have
// none; so do empty folders.
func (t *Tree) ChildrenCount(node int) (int, error) {
	nt, err := t.nodeTypes.Access(node)
	if err != nil {
		return 0, err
	}
	if nt != types.NodeFolder {
		return 0, nil
	}
	start, mark, err := t.childrenStart(node)
	if err != nil {
		return 0, err
	}
	totalMarks, err := t.structure.Rank1(t.structure.Size() - 1)
	if err != nil {
		return 0, err
	}
	if mark+1 <= totalMarks {
		next, err := t.structure.Select1(mark + 1)
		if err != nil {
			return 0, err
		}
		return next - start, nil
	}
	return t.structure.Size() - start, nil
}

// Child returns the index of the k-th child of node, 0-based.
func (t *Tree) Child(node, k int) (int, error) {
	count, err := t.ChildrenCount(node)
	if err != nil {
		return 0, err
	}
	if k < 0 || k >= count {
		return 0, fmt.Errorf("child %d of %d: %w", k, count, types.ErrOutOfRange)
	}
	start, _, err := t.childrenStart(node)
	if err != nil {
		return 0, err
	}
	return start + k, nil
}

// Insert adds a new node as the last child of parent and returns its
// index. The new node is an empty folder when isFolder is set, a file
// otherwise. Indices of nodes at or past the returned position shift
// right by one.
func (t *Tree) Insert(parent int, name string, isFolder bool) (int, error) {
	if name == "" {
		return 0, fmt.Errorf("empty name: %w", types.ErrOutOfRange)
	}
	parentType, err := t.nodeTypes.Access(parent)
	if err != nil {
		return 0, err
	}
	if !parentType.IsFolder() {
		return 0, fmt.Errorf("insert under node %d of type %d: %w", parent, parentType, types.ErrWrongKind)
	}

	wasEmpty := parentType == types.NodeEmptyFolder
	childCount := 0
	if wasEmpty {
		if err := t.nodeTypes.Set(parent, types.NodeFolder); err != nil {
			return 0, err
		}
	} else {
		childCount, err = t.ChildrenCount(parent)
		if err != nil {
			return 0, err
		}
	}

	// The children run of the parent starts at its mark, or at the end
	// of the structure when the parent just became non-empty and is the
	// last non-empty folder.
	insertPos := t.structure.Size()
	if start, _, err := t.childrenStart(parent); err == nil {
		insertPos = start + childCount
	}

	// The new node carries the first-child mark only when it opens a
	// fresh run; otherwise it is the next sibling of an existing run.
	if err := t.structure.Insert(insertPos, wasEmpty); err != nil {
		return 0, err
	}
	if err := t.names.Insert(insertPos, name); err != nil {
		return 0, err
	}
	newType := types.NodeFile
	if isFolder {
		newType = types.NodeEmptyFolder
	}
	if err := t.nodeTypes.Insert(insertPos, newType); err != nil {
		return 0, err
	}
	return insertPos, nil
}

// Remove deletes a leaf: a file or an empty folder, never the root.
// Indices of nodes past the removed position shift left by one. When
// the removed node was its parent's only child the parent becomes an
// empty folder; when it was the first of several, the mark moves to the
// next sibling.
func (t *Tree) Remove(node int) error {
	if node == types.RootNode {
		return fmt.Errorf("remove root: %w", types.ErrOutOfRange)
	}
	nt, err := t.nodeTypes.Access(node)
	if err != nil {
		return err
	}
	if nt == types.NodeFolder {
		return fmt.Errorf("remove folder %d with children: %w", node, types.ErrNotEmpty)
	}
	if nt == types.NodeReserved {
		return fmt.Errorf("remove reserved node %d: %w", node, types.ErrWrongKind)
	}

	parent, err := t.Parent(node)
	if err != nil {
		return err
	}
	siblings, err := t.ChildrenCount(parent)
	if err != nil {
		return err
	}
	wasFirst, err := t.structure.Access(node)
	if err != nil {
		return err
	}

	if err := t.structure.Remove(node); err != nil {
		return err
	}
	if err := t.nodeTypes.Remove(node); err != nil {
		return err
	}
	if err := t.names.Remove(node); err != nil {
		return err
	}

	if siblings == 1 {
		// Parents precede their children in level order, so the
		// parent's index is unaffected by the removal.
		return t.nodeTypes.Set(parent, types.NodeEmptyFolder)
	}
	if wasFirst {
		// The old second child now sits at the removed position and
		// inherits the first-child mark.
		return t.structure.Set(node, true)
	}
	return nil
}

// Path resolves a "/"-separated path relative to the root, matching
// each component against child names in child order. The empty path
// and "/" resolve to the root.
func (t *Tree) Path(path string) (int, error) {
	node := types.RootNode
	for _, component := range strings.Split(path, "/") {
		if component == "" {
			continue
		}
		folder, err := t.IsFolder(node)
		if err != nil {
			return 0, err
		}
		if !folder {
			return 0, fmt.Errorf("component %q under a file: %w", component, types.ErrWrongKind)
		}
		count, err := t.ChildrenCount(node)
		if err != nil {
			return 0, err
		}
		found := -1
		for k := 0; k < count; k++ {
			child, err := t.Child(node, k)
			if err != nil {
				return 0, err
			}
			name, err := t.names.Access(child)
			if err != nil {
				return 0, err
			}
			if name == component {
				found = child
				break
			}
		}
		if found < 0 {
			return 0, fmt.Errorf("component %q of %q: %w", component, path, types.ErrNotFound)
		}
		node = found
	}
	return node, nil
}

// SerializedSize returns the encoded byte length: structure, types and
// names in order.
func (t *Tree) SerializedSize() int {
	return t.structure.SerializedSize() + t.nodeTypes.SerializedSize() + t.names.SerializedSize()
}

// SerializeInto writes the three sequences into buf at *off.
func (t *Tree) SerializeInto(buf []byte, off *int) {
	t.structure.SerializeInto(buf, off)
	t.nodeTypes.SerializeInto(buf, off)
	t.names.SerializeInto(buf, off)
}

// DeserializeFrom replaces the content with the encoding in buf at *off
// and re-checks that the three sequences agree in length.
func (t *Tree) DeserializeFrom(buf []byte, off *int) error {
	if err := t.structure.DeserializeFrom(buf, off); err != nil {
		return err
	}
	if err := t.nodeTypes.DeserializeFrom(buf, off); err != nil {
		return err
	}
	if err := t.names.DeserializeFrom(buf, off); err != nil {
		return err
	}
	return t.validateLengths()
}
