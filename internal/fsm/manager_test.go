package fsm

import (
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-floudsfs/internal/config"
	"github.com/deploymenttheory/go-floudsfs/internal/disk"
	"github.com/deploymenttheory/go-floudsfs/internal/types"
)

func testConfig() *config.Config {
	return &config.Config{
		BlockSize:            4096,
		BitVectorStrategy:    "word",
		NameSequenceStrategy: "concatenated",
		AllocatorStrategy:    "monotonic",
		SaveOnMutation:       true,
	}
}

func mountFresh(t *testing.T, path string) *Manager {
	t.Helper()
	manager := NewManager(testConfig(), nil)
	require.NoError(t, manager.Mount(path))
	return manager
}

// TestCreateMountRoundTrip formats a fresh image, remounts it and
// expects the same empty filesystem with the same volume identity.
func TestCreateMountRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test_fs.img")

	manager := mountFresh(t, path)
	require.Equal(t, 1, manager.Tree().Size())
	count, err := manager.Tree().ChildrenCount(types.RootNode)
	require.NoError(t, err)
	require.Equal(t, 0, count)
	volume := manager.Header().VolumeUUID
	require.NotEqual(t, uuid.Nil, volume)
	require.NoError(t, manager.Unmount())

	manager = mountFresh(t, path)
	defer manager.Unmount()
	require.Equal(t, 1, manager.Tree().Size())
	count, err = manager.Tree().ChildrenCount(types.RootNode)
	require.NoError(t, err)
	require.Equal(t, 0, count)
	require.Equal(t, volume, manager.Header().VolumeUUID)

	root, err := manager.GetInode(types.RootNode)
	require.NoError(t, err)
	require.Equal(t, uint32(0o755), root.Mode)
}

// TestInsertFilePersists adds a file under the root, saves, and
// expects it back after a remount.
func TestInsertFilePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test_fs.img")

	manager := mountFresh(t, path)
	node, err := manager.AddNode(types.RootNode, "a.txt", false, 0o644)
	require.NoError(t, err)
	count, err := manager.Tree().ChildrenCount(types.RootNode)
	require.NoError(t, err)
	require.Equal(t, 1, count)
	child, err := manager.Tree().Child(types.RootNode, 0)
	require.NoError(t, err)
	require.Equal(t, node, child)
	name, err := manager.Tree().Name(child)
	require.NoError(t, err)
	require.Equal(t, "a.txt", name)
	isFile, err := manager.Tree().IsFile(child)
	require.NoError(t, err)
	require.True(t, isFile)
	require.NoError(t, manager.Save())
	require.NoError(t, manager.Unmount())

	manager = mountFresh(t, path)
	defer manager.Unmount()
	count, err = manager.Tree().ChildrenCount(types.RootNode)
	require.NoError(t, err)
	require.Equal(t, 1, count)
	child, err = manager.Tree().Child(types.RootNode, 0)
	require.NoError(t, err)
	name, err = manager.Tree().Name(child)
	require.NoError(t, err)
	require.Equal(t, "a.txt", name)
	record, err := manager.GetInode(child)
	require.NoError(t, err)
	require.Equal(t, uint32(0o644), record.Mode)
}

func TestAddRemoveNodes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test_fs.img")
	manager := mountFresh(t, path)
	defer manager.Unmount()

	folder, err := manager.AddNode(types.RootNode, "folder1", true, 0o755)
	require.NoError(t, err)
	_, err = manager.AddNode(types.RootNode, "file1", false, 0o644)
	require.NoError(t, err)
	inner, err := manager.AddNode(folder, "file2", false, 0o644)
	require.NoError(t, err)

	require.ErrorIs(t, manager.RemoveNode(folder), types.ErrNotEmpty)
	require.ErrorIs(t, manager.RemoveNode(types.RootNode), types.ErrOutOfRange)

	require.NoError(t, manager.RemoveNode(inner))
	empty, err := manager.Tree().IsEmptyFolder(folder)
	require.NoError(t, err)
	require.True(t, empty)
	require.Equal(t, 3, manager.Tree().Size())

	// The inode table tracks the tree position for position.
	child, err := manager.Tree().Child(types.RootNode, 1)
	require.NoError(t, err)
	record, err := manager.GetInode(child)
	require.NoError(t, err)
	require.Equal(t, uint32(0o644), record.Mode)
}

func TestRemoveTree(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test_fs.img")
	manager := mountFresh(t, path)
	defer manager.Unmount()

	folder, err := manager.AddNode(types.RootNode, "deep", true, 0o755)
	require.NoError(t, err)
	sub, err := manager.AddNode(folder, "sub", true, 0o755)
	require.NoError(t, err)
	_, err = manager.AddNode(sub, "a", false, 0o644)
	require.NoError(t, err)
	_, err = manager.AddNode(sub, "b", false, 0o644)
	require.NoError(t, err)

	require.ErrorIs(t, manager.RemoveTree(types.RootNode), types.ErrOutOfRange)
	require.NoError(t, manager.RemoveTree(folder))
	require.Equal(t, 1, manager.Tree().Size())
	count, err := manager.Tree().ChildrenCount(types.RootNode)
	require.NoError(t, err)
	require.Equal(t, 0, count)
}

func TestFileReadWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test_fs.img")
	manager := mountFresh(t, path)
	defer manager.Unmount()

	node, err := manager.AddNode(types.RootNode, "data.bin", false, 0o644)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(3))
	content := make([]byte, 10000)
	for i := range content {
		content[i] = byte(rng.Intn(256))
	}
	require.NoError(t, manager.SetFileSize(node, uint64(len(content))))
	written, err := manager.WriteFile(node, content, 0)
	require.NoError(t, err)
	require.Equal(t, len(content), written)

	got := make([]byte, len(content))
	n, err := manager.ReadFile(node, got, 0)
	require.NoError(t, err)
	require.Equal(t, len(content), n)
	require.Equal(t, content, got)

	// Reads past the end return zero bytes; crossing reads truncate.
	n, err = manager.ReadFile(node, got, uint64(len(content)))
	require.NoError(t, err)
	require.Equal(t, 0, n)
	n, err = manager.ReadFile(node, make([]byte, 100), uint64(len(content))-10)
	require.NoError(t, err)
	require.Equal(t, 10, n)

	// Writes past the size are refused until the file is extended.
	_, err = manager.WriteFile(node, []byte{1}, uint64(len(content)))
	require.ErrorIs(t, err, types.ErrOutOfRange)

	// Folder reads are the wrong kind.
	folder, err := manager.AddNode(types.RootNode, "d", true, 0o755)
	require.NoError(t, err)
	_, err = manager.ReadFile(folder, got, 0)
	require.ErrorIs(t, err, types.ErrWrongKind)
}

// TestGrowCopiesContent extends a file far enough that the allocator
// must move the range and expects the earlier content to survive.
func TestGrowCopiesContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test_fs.img")
	manager := mountFresh(t, path)
	defer manager.Unmount()

	node, err := manager.AddNode(types.RootNode, "grow.bin", false, 0o644)
	require.NoError(t, err)
	require.NoError(t, manager.SetFileSize(node, 100))
	want := []byte("written before the range moved")
	_, err = manager.WriteFile(node, want, 0)
	require.NoError(t, err)

	// Something else claims the next blocks, so growing must relocate.
	manager.Allocator().Allocate(8192)
	require.NoError(t, manager.SetFileSize(node, 100000))

	got := make([]byte, len(want))
	n, err := manager.ReadFile(node, got, 0)
	require.NoError(t, err)
	require.Equal(t, len(want), n)
	require.Equal(t, want, got)
}

// TestFilePersistence writes across block boundaries, unmounts, and
// reads the bytes back after a remount.
func TestFilePersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test_fs.img")
	manager := mountFresh(t, path)

	node, err := manager.AddNode(types.RootNode, "span.bin", false, 0o644)
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(8))
	content := make([]byte, 10000)
	for i := range content {
		content[i] = byte(rng.Intn(256))
	}
	require.NoError(t, manager.SetFileSize(node, 42+uint64(len(content))))
	_, err = manager.WriteFile(node, content, 42)
	require.NoError(t, err)
	require.NoError(t, manager.Unmount())

	manager = mountFresh(t, path)
	defer manager.Unmount()
	node, err = manager.Tree().Path("span.bin")
	require.NoError(t, err)
	got := make([]byte, len(content))
	n, err := manager.ReadFile(node, got, 42)
	require.NoError(t, err)
	require.Equal(t, len(content), n)
	require.Equal(t, content, got)
}

func TestLookup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test_fs.img")
	manager := mountFresh(t, path)
	defer manager.Unmount()

	folder, err := manager.AddNode(types.RootNode, "home", true, 0o755)
	require.NoError(t, err)
	file, err := manager.AddNode(folder, "notes", false, 0o644)
	require.NoError(t, err)

	got, err := manager.Lookup(types.RootNode, "home")
	require.NoError(t, err)
	require.Equal(t, folder, got)
	got, err = manager.Lookup(folder, "notes")
	require.NoError(t, err)
	require.Equal(t, file, got)

	_, err = manager.Lookup(types.RootNode, "missing")
	require.ErrorIs(t, err, types.ErrNotFound)
	_, err = manager.Lookup(file, "x")
	require.ErrorIs(t, err, types.ErrWrongKind)
}

func TestHeaderCodec(t *testing.T) {
	header := types.Header{
		VolumeUUID:      uuid.New(),
		AllocatorHandle: 9,
		AllocatorSize:   8,
		FloudsHandle:    3,
		FloudsSize:      1234,
		InodeHandle:     5,
		InodeSize:       96,
	}
	buf := encodeHeader(header, disk.DefaultBlockSize)
	require.Len(t, buf, disk.DefaultBlockSize)

	decoded, formatted, err := decodeHeader(buf)
	require.NoError(t, err)
	require.True(t, formatted)
	require.Equal(t, header, decoded)

	// A blank block is unformatted, not corrupt.
	_, formatted, err = decodeHeader(make([]byte, disk.DefaultBlockSize))
	require.NoError(t, err)
	require.False(t, formatted)

	// A short block is corrupt.
	_, _, err = decodeHeader(make([]byte, 10))
	require.ErrorIs(t, err, types.ErrCorrupt)
}

// TestMountBitVectorStrategyInterchange checks that remounting with the
// array bit vector strategy still reads an image written with the word
// strategy, since the serialized forms are strategy-independent for bit
// vectors.
func TestMountBitVectorStrategyInterchange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test_fs.img")
	manager := mountFresh(t, path)
	_, err := manager.AddNode(types.RootNode, "kept", true, 0o755)
	require.NoError(t, err)
	require.NoError(t, manager.Unmount())

	cfg := testConfig()
	cfg.BitVectorStrategy = "array"
	manager = NewManager(cfg, nil)
	require.NoError(t, manager.Mount(path))
	defer manager.Unmount()
	node, err := manager.Tree().Path("kept")
	require.NoError(t, err)
	isFolder, err := manager.Tree().IsFolder(node)
	require.NoError(t, err)
	require.True(t, isFolder)
}
