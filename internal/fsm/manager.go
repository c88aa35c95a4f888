// Package fsm binds the block device, the allocator, the FLOUDS tree
// and the inode table into a mountable filesystem. The manager owns the
// image header and performs mount, save and unmount, plus every
// node-level operation the kernel bridge consumes.
package fsm

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/deploymenttheory/go-floudsfs/internal/alloc"
	"github.com/deploymenttheory/go-floudsfs/internal/bitvector"
	"github.com/deploymenttheory/go-floudsfs/internal/config"
	"github.com/deploymenttheory/go-floudsfs/internal/disk"
	"github.com/deploymenttheory/go-floudsfs/internal/flouds"
	"github.com/deploymenttheory/go-floudsfs/internal/inode"
	"github.com/deploymenttheory/go-floudsfs/internal/interfaces"
	"github.com/deploymenttheory/go-floudsfs/internal/namesequence"
	"github.com/deploymenttheory/go-floudsfs/internal/types"
)

// Manager composes the filesystem components over one image file.
//
// A manager instance is single-threaded: the succinct structures are
// mutated in place and tolerate no parallel writers. Callers that
// dispatch from several goroutines (the kernel bridge) hold Lock for
// the full duration of each request.
type Manager struct {
	mu sync.Mutex

	cfg    *config.Config
	logger *slog.Logger

	device    *disk.ImageDevice
	allocator interfaces.Allocator
	tree      *flouds.Tree
	inodes    *inode.Table
	header    types.Header
}

// NewManager creates an unmounted manager with the given settings. A
// nil logger discards all messages.
func NewManager(cfg *config.Config, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Manager{cfg: cfg, logger: logger}
}

// Lock serializes access for callers that share the manager across
// goroutines. Held for the full duration of each kernel request.
func (m *Manager) Lock() { m.mu.Lock() }

// Unlock releases the request lock.
func (m *Manager) Unlock() { m.mu.Unlock() }

// newBitVector creates a bit vector with the configured strategy. The
// strategy name is validated during Mount, so failure is impossible
// afterwards.
func (m *Manager) newBitVector(n int) interfaces.BitVector {
	bv, err := bitvector.New(m.cfg.BitVectorStrategy, n)
	if err != nil {
		panic(err)
	}
	return bv
}

// emptyComponents creates a fresh allocator, tree and inode table for
// the configured strategies.
func (m *Manager) emptyComponents() (interfaces.Allocator, *flouds.Tree, *inode.Table, error) {
	if _, err := bitvector.New(m.cfg.BitVectorStrategy, 0); err != nil {
		return nil, nil, nil, err
	}
	allocator, err := alloc.New(m.cfg.AllocatorStrategy, m.device)
	if err != nil {
		return nil, nil, nil, err
	}
	names, err := namesequence.New(m.cfg.NameSequenceStrategy, m.newBitVector)
	if err != nil {
		return nil, nil, nil, err
	}
	tree, err := flouds.NewRoot(m.newBitVector, names)
	if err != nil {
		return nil, nil, nil, err
	}
	return allocator, tree, inode.NewTable(), nil
}

// Mount opens the image at path. An unformatted image is initialized
// with an empty root and saved; a formatted one has its allocator,
// tree and inode table deserialized from the recorded handles.
func (m *Manager) Mount(path string) error {
	device, err := disk.OpenImage(path, m.cfg.BlockSize)
	if err != nil {
		return err
	}
	m.device = device

	allocator, tree, inodes, err := m.emptyComponents()
	if err != nil {
		device.Close()
		return err
	}
	m.allocator, m.tree, m.inodes = allocator, tree, inodes

	block := make([]byte, m.device.BlockSize())
	if err := m.device.ReadBlock(0, block); err != nil {
		device.Close()
		return err
	}
	header, formatted, err := decodeHeader(block)
	if err != nil {
		device.Close()
		return err
	}

	if !formatted {
		m.header = types.Header{VolumeUUID: uuid.New()}
		now := time.Now().Unix()
		root, err := m.inodes.Insert(types.RootNode)
		if err != nil {
			device.Close()
			return err
		}
		root.Mode = 0o755
		root.CreationTime = now
		root.ModificationTime = now
		root.AccessTime = now
		if err := m.Save(); err != nil {
			device.Close()
			return err
		}
		m.logger.Info("initialized filesystem", "path", path, "volume", m.header.VolumeUUID)
		return nil
	}

	m.header = header
	if err := m.load(); err != nil {
		device.Close()
		return err
	}
	m.logger.Info("mounted filesystem", "path", path,
		"volume", m.header.VolumeUUID, "nodes", m.tree.Size())
	return nil
}

// load deserializes the allocator, tree and inode table from the
// handles recorded in the header.
func (m *Manager) load() error {
	read := func(name string, handle types.Handle, size uint64, target interfaces.Serializable) error {
		if handle == 0 {
			return fmt.Errorf("%s handle missing from header: %w", name, types.ErrCorrupt)
		}
		buf := make([]byte, size)
		if err := m.allocator.Read(handle, buf, 0); err != nil {
			return fmt.Errorf("reading %s: %w", name, err)
		}
		off := 0
		if err := target.DeserializeFrom(buf, &off); err != nil {
			return fmt.Errorf("deserializing %s: %w", name, err)
		}
		if off != int(size) {
			return fmt.Errorf("%s used %d of %d bytes: %w", name, off, size, types.ErrCorrupt)
		}
		return nil
	}

	// Reading through the allocator needs no allocator state: a handle
	// is a block number. Restore its cursor first anyway so later
	// allocations continue past every live range.
	if err := read("allocator", m.header.AllocatorHandle, m.header.AllocatorSize, m.allocator); err != nil {
		return err
	}
	if err := read("flouds", m.header.FloudsHandle, m.header.FloudsSize, m.tree); err != nil {
		return err
	}
	if err := read("inode table", m.header.InodeHandle, m.header.InodeSize, m.inodes); err != nil {
		return err
	}
	if m.inodes.Size() != m.tree.Size() {
		return fmt.Errorf("%d inodes for %d nodes: %w", m.inodes.Size(), m.tree.Size(), types.ErrCorrupt)
	}
	return nil
}

// persist serializes one component, placing it through allocate or
// resize, and returns its new handle and size.
func (m *Manager) persist(component interfaces.Serializable, handle types.Handle, oldSize uint64) (types.Handle, uint64, error) {
	size := uint64(component.SerializedSize())
	if handle == 0 {
		handle = m.allocator.Allocate(size)
	} else {
		handle = m.allocator.Resize(handle, oldSize, size)
	}
	buf := make([]byte, size)
	off := 0
	component.SerializeInto(buf, &off)
	if err := m.allocator.Write(handle, buf, 0); err != nil {
		return 0, 0, err
	}
	return handle, size, nil
}

// Save persists the tree, the inode table, the allocator and finally
// the header. The allocator's own serialized size can change while
// space is being reserved for it, so its placement iterates to a
// fixpoint before the state is written.
func (m *Manager) Save() error {
	handle, size, err := m.persist(m.tree, m.header.FloudsHandle, m.header.FloudsSize)
	if err != nil {
		return fmt.Errorf("saving flouds: %w", err)
	}
	m.header.FloudsHandle, m.header.FloudsSize = handle, size

	handle, size, err = m.persist(m.inodes, m.header.InodeHandle, m.header.InodeSize)
	if err != nil {
		return fmt.Errorf("saving inode table: %w", err)
	}
	m.header.InodeHandle, m.header.InodeSize = handle, size

	allocSize := uint64(m.allocator.SerializedSize())
	allocHandle := m.header.AllocatorHandle
	if allocHandle == 0 {
		allocHandle = m.allocator.Allocate(allocSize)
	} else {
		allocHandle = m.allocator.Resize(allocHandle, m.header.AllocatorSize, allocSize)
	}
	for next := uint64(m.allocator.SerializedSize()); next != allocSize; {
		allocHandle = m.allocator.Resize(allocHandle, allocSize, next)
		allocSize = next
		next = uint64(m.allocator.SerializedSize())
	}
	buf := make([]byte, allocSize)
	off := 0
	m.allocator.SerializeInto(buf, &off)
	if err := m.allocator.Write(allocHandle, buf, 0); err != nil {
		return fmt.Errorf("saving allocator: %w", err)
	}
	m.header.AllocatorHandle, m.header.AllocatorSize = allocHandle, allocSize

	if err := m.device.WriteBlock(0, encodeHeader(m.header, m.device.BlockSize())); err != nil {
		return fmt.Errorf("saving header: %w", err)
	}
	return nil
}

// Unmount saves the filesystem and releases the image file.
func (m *Manager) Unmount() error {
	if m.device == nil {
		return nil
	}
	if err := m.Save(); err != nil {
		return err
	}
	if err := m.device.Sync(); err != nil {
		return err
	}
	err := m.device.Close()
	m.device = nil
	m.logger.Info("unmounted filesystem", "volume", m.header.VolumeUUID)
	return err
}

// Tree exposes the FLOUDS tree for navigation.
func (m *Manager) Tree() *flouds.Tree {
	return m.tree
}

// Header returns a copy of the current image header.
func (m *Manager) Header() types.Header {
	return m.header
}

// Config returns the settings the manager was created with.
func (m *Manager) Config() *config.Config {
	return m.cfg
}

// Allocator exposes the allocator, primarily for inspection.
func (m *Manager) Allocator() interfaces.Allocator {
	return m.allocator
}

// AddNode creates a new node as the last child of parent and its inode
// record, and returns the node index.
func (m *Manager) AddNode(parent int, name string, isFolder bool, mode uint32) (int, error) {
	node, err := m.tree.Insert(parent, name, isFolder)
	if err != nil {
		return 0, err
	}
	record, err := m.inodes.Insert(node)
	if err != nil {
		return 0, err
	}
	now := time.Now().Unix()
	record.Mode = mode
	record.CreationTime = now
	record.ModificationTime = now
	record.AccessTime = now
	return node, nil
}

// RemoveNode deletes a file or an empty folder together with its inode
// record. Folders with children are refused; the root cannot be
// removed.
func (m *Manager) RemoveNode(node int) error {
	if err := m.tree.Remove(node); err != nil {
		return err
	}
	return m.inodes.Remove(node)
}

// RemoveTree deletes node and, if it is a folder, every descendant,
// children first. The root cannot be removed.
func (m *Manager) RemoveTree(node int) error {
	if node == types.RootNode {
		return fmt.Errorf("remove root: %w", types.ErrOutOfRange)
	}
	for {
		count, err := m.tree.ChildrenCount(node)
		if err != nil {
			return err
		}
		if count == 0 {
			break
		}
		child, err := m.tree.Child(node, 0)
		if err != nil {
			return err
		}
		if err := m.RemoveTree(child); err != nil {
			return err
		}
	}
	return m.RemoveNode(node)
}

// fileInode returns the inode record of node after checking that it is
// a regular file.
func (m *Manager) fileInode(node int) (*types.Inode, error) {
	isFile, err := m.tree.IsFile(node)
	if err != nil {
		return nil, err
	}
	if !isFile {
		return nil, fmt.Errorf("node %d is not a file: %w", node, types.ErrWrongKind)
	}
	return m.inodes.Get(node)
}

// ReadFile reads from the file at node into buf, starting at offset,
// and returns the number of bytes read. Reads at or past the end of
// the file return zero bytes; reads crossing it are truncated.
func (m *Manager) ReadFile(node int, buf []byte, offset uint64) (int, error) {
	record, err := m.fileInode(node)
	if err != nil {
		return 0, err
	}
	if offset >= record.Size {
		return 0, nil
	}
	n := uint64(len(buf))
	if offset+n > record.Size {
		n = record.Size - offset
	}
	if n == 0 {
		return 0, nil
	}
	if err := m.allocator.Read(record.AllocationHandle, buf[:n], offset); err != nil {
		return 0, err
	}
	record.AccessTime = time.Now().Unix()
	return int(n), nil
}

// WriteFile writes buf into the file at node starting at offset and
// touches the modification time. The file must already be large
// enough; callers extend it with SetFileSize first.
func (m *Manager) WriteFile(node int, buf []byte, offset uint64) (int, error) {
	record, err := m.fileInode(node)
	if err != nil {
		return 0, err
	}
	if offset+uint64(len(buf)) > record.Size {
		return 0, fmt.Errorf("write of %d bytes at %d past size %d: %w",
			len(buf), offset, record.Size, types.ErrOutOfRange)
	}
	if len(buf) == 0 {
		return 0, nil
	}
	if err := m.allocator.Write(record.AllocationHandle, buf, offset); err != nil {
		return 0, err
	}
	record.ModificationTime = time.Now().Unix()
	return len(buf), nil
}

// SetFileSize resizes the file at node. When the allocator has to move
// the range, the surviving prefix of the content is copied over.
func (m *Manager) SetFileSize(node int, size uint64) error {
	record, err := m.fileInode(node)
	if err != nil {
		return err
	}
	if size == record.Size && record.AllocationHandle != 0 {
		return nil
	}
	handle := m.allocator.Resize(record.AllocationHandle, record.Size, size)
	if handle != record.AllocationHandle && record.AllocationHandle != 0 && record.Size > 0 {
		keep := record.Size
		if size < keep {
			keep = size
		}
		content := make([]byte, keep)
		if err := m.allocator.Read(record.AllocationHandle, content, 0); err != nil {
			return err
		}
		if err := m.allocator.Write(handle, content, 0); err != nil {
			return err
		}
	}
	if handle != record.AllocationHandle {
		m.allocator.Free(record.AllocationHandle)
	}
	record.AllocationHandle = handle
	record.Size = size
	return nil
}

// GetInode returns the inode record of node. The pointer stays valid
// until the next AddNode or RemoveNode.
func (m *Manager) GetInode(node int) (*types.Inode, error) {
	if node < 0 || node >= m.tree.Size() {
		return nil, fmt.Errorf("node %d of %d: %w", node, m.tree.Size(), types.ErrOutOfRange)
	}
	return m.inodes.Get(node)
}

// Lookup resolves name among the children of parent and returns the
// child's index.
func (m *Manager) Lookup(parent int, name string) (int, error) {
	isFolder, err := m.tree.IsFolder(parent)
	if err != nil {
		return 0, err
	}
	if !isFolder {
		return 0, fmt.Errorf("lookup %q under non-folder %d: %w", name, parent, types.ErrWrongKind)
	}
	count, err := m.tree.ChildrenCount(parent)
	if err != nil {
		return 0, err
	}
	for k := 0; k < count; k++ {
		child, err := m.tree.Child(parent, k)
		if err != nil {
			return 0, err
		}
		childName, err := m.tree.Name(child)
		if err != nil {
			return 0, err
		}
		if childName == name {
			return child, nil
		}
	}
	return 0, fmt.Errorf("%q in node %d: %w", name, parent, types.ErrNotFound)
}

// IsMounted reports whether Mount succeeded and Unmount has not run.
func (m *Manager) IsMounted() bool {
	return m.device != nil
}
