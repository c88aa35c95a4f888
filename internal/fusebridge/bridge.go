// Package fusebridge exposes a mounted filesystem manager through the
// kernel FUSE interface. It is a thin adapter: every request is mapped
// onto the manager's node-level contract under the manager's request
// lock, and kernel inode numbers relate to FLOUDS nodes by ino = node + 1.
//
// FLOUDS node indices shift on insert and remove, so the bridge answers
// with zero entry and attribute timeouts and lets the kernel re-lookup
// paths instead of caching stale numbers.
package fusebridge

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/deploymenttheory/go-floudsfs/internal/fsm"
	"github.com/deploymenttheory/go-floudsfs/internal/types"
)

// Options configures the FUSE mount.
type Options struct {
	// Mountpoint is the directory where the filesystem appears. It is
	// created if missing.
	Mountpoint string

	// Manager is the mounted filesystem manager.
	Manager *fsm.Manager

	// AllowOther permits other users to access the mount. Requires
	// user_allow_other in /etc/fuse.conf.
	AllowOther bool

	// Logger receives diagnostic messages. Nil discards them.
	Logger *slog.Logger
}

// Mount attaches the filesystem at the configured mountpoint. The
// caller serves requests with Serve on the returned server and detaches
// with Unmount.
func Mount(options Options) (*fuse.Server, error) {
	if options.Mountpoint == "" {
		return nil, fmt.Errorf("mountpoint is required")
	}
	if options.Manager == nil || !options.Manager.IsMounted() {
		return nil, fmt.Errorf("a mounted manager is required")
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if err := os.MkdirAll(options.Mountpoint, 0o755); err != nil {
		return nil, fmt.Errorf("creating mountpoint %s: %w", options.Mountpoint, err)
	}

	bridge := &bridge{
		RawFileSystem: fuse.NewDefaultRawFileSystem(),
		manager:       options.Manager,
		logger:        options.Logger,
	}
	server, err := fuse.NewServer(bridge, options.Mountpoint, &fuse.MountOptions{
		FsName:     "floudsfs",
		Name:       "floudsfs",
		AllowOther: options.AllowOther,
	})
	if err != nil {
		return nil, fmt.Errorf("mounting at %s: %w", options.Mountpoint, err)
	}
	options.Logger.Info("filesystem mounted", "mountpoint", options.Mountpoint,
		"volume", options.Manager.Header().VolumeUUID)
	return server, nil
}

// bridge implements the request handlers over the manager. Handlers it
// does not override answer ENOSYS through the embedded default.
type bridge struct {
	fuse.RawFileSystem
	manager *fsm.Manager
	logger  *slog.Logger
}

func (b *bridge) String() string {
	return "floudsfs"
}

// node converts a kernel inode number to a FLOUDS node index.
func node(ino uint64) int {
	return int(ino) - 1
}

// ino converts a FLOUDS node index to a kernel inode number.
func ino(node int) uint64 {
	return uint64(node) + 1
}

// errno maps the manager's error taxonomy onto kernel error numbers.
func errno(err error) fuse.Status {
	switch {
	case err == nil:
		return fuse.OK
	case errors.Is(err, types.ErrNotFound):
		return fuse.ENOENT
	case errors.Is(err, types.ErrNotEmpty):
		return fuse.Status(syscall.ENOTEMPTY)
	case errors.Is(err, types.ErrWrongKind):
		return fuse.EINVAL
	case errors.Is(err, types.ErrOutOfRange):
		return fuse.EINVAL
	default:
		return fuse.EIO
	}
}

// fillAttr loads the node's attributes into out.
func (b *bridge) fillAttr(n int, out *fuse.Attr) error {
	record, err := b.manager.GetInode(n)
	if err != nil {
		return err
	}
	nodeType, err := b.manager.Tree().Type(n)
	if err != nil {
		return err
	}
	out.Ino = ino(n)
	out.Size = record.Size
	out.Mode = record.Mode & 0o7777
	if nodeType.IsFolder() {
		out.Mode |= syscall.S_IFDIR
	} else {
		out.Mode |= syscall.S_IFREG
	}
	out.Nlink = 1
	out.Mtime = uint64(record.ModificationTime)
	out.Atime = uint64(record.AccessTime)
	out.Ctime = uint64(record.CreationTime)
	return nil
}

// save persists the filesystem after a mutation when configured to.
func (b *bridge) save() fuse.Status {
	if !b.manager.Config().SaveOnMutation {
		return fuse.OK
	}
	if err := b.manager.Save(); err != nil {
		b.logger.Error("save failed", "error", err)
		return fuse.EIO
	}
	return fuse.OK
}

func (b *bridge) Lookup(cancel <-chan struct{}, header *fuse.InHeader, name string, out *fuse.EntryOut) fuse.Status {
	b.manager.Lock()
	defer b.manager.Unlock()
	child, err := b.manager.Lookup(node(header.NodeId), name)
	if err != nil {
		if errors.Is(err, types.ErrWrongKind) {
			return fuse.ENOTDIR
		}
		return errno(err)
	}
	out.NodeId = ino(child)
	if err := b.fillAttr(child, &out.Attr); err != nil {
		return errno(err)
	}
	return fuse.OK
}

func (b *bridge) GetAttr(cancel <-chan struct{}, input *fuse.GetAttrIn, out *fuse.AttrOut) fuse.Status {
	b.manager.Lock()
	defer b.manager.Unlock()
	if err := b.fillAttr(node(input.NodeId), &out.Attr); err != nil {
		if errors.Is(err, types.ErrOutOfRange) {
			return fuse.ENOENT
		}
		return errno(err)
	}
	return fuse.OK
}

func (b *bridge) SetAttr(cancel <-chan struct{}, input *fuse.SetAttrIn, out *fuse.AttrOut) fuse.Status {
	b.manager.Lock()
	defer b.manager.Unlock()
	n := node(input.NodeId)
	record, err := b.manager.GetInode(n)
	if err != nil {
		return errno(err)
	}
	if mode, ok := input.GetMode(); ok {
		record.Mode = mode & 0o7777
	}
	if size, ok := input.GetSize(); ok {
		if err := b.manager.SetFileSize(n, size); err != nil {
			return errno(err)
		}
	}
	if atime, ok := input.GetATime(); ok {
		record.AccessTime = atime.Unix()
	}
	if mtime, ok := input.GetMTime(); ok {
		record.ModificationTime = mtime.Unix()
	}
	if status := b.save(); status != fuse.OK {
		return status
	}
	if err := b.fillAttr(n, &out.Attr); err != nil {
		return errno(err)
	}
	return fuse.OK
}

func (b *bridge) Mkdir(cancel <-chan struct{}, input *fuse.MkdirIn, name string, out *fuse.EntryOut) fuse.Status {
	b.manager.Lock()
	defer b.manager.Unlock()
	child, err := b.manager.AddNode(node(input.NodeId), name, true, input.Mode&0o7777)
	if err != nil {
		return errno(err)
	}
	if status := b.save(); status != fuse.OK {
		return status
	}
	out.NodeId = ino(child)
	if err := b.fillAttr(child, &out.Attr); err != nil {
		return errno(err)
	}
	return fuse.OK
}

func (b *bridge) Create(cancel <-chan struct{}, input *fuse.CreateIn, name string, out *fuse.CreateOut) fuse.Status {
	b.manager.Lock()
	defer b.manager.Unlock()
	child, err := b.manager.AddNode(node(input.NodeId), name, false, input.Mode&0o7777)
	if err != nil {
		return errno(err)
	}
	if status := b.save(); status != fuse.OK {
		return status
	}
	out.NodeId = ino(child)
	if err := b.fillAttr(child, &out.Attr); err != nil {
		return errno(err)
	}
	out.OpenOut.Fh = 0
	return fuse.OK
}

func (b *bridge) Unlink(cancel <-chan struct{}, header *fuse.InHeader, name string) fuse.Status {
	return b.removeChild(header.NodeId, name, false)
}

func (b *bridge) Rmdir(cancel <-chan struct{}, header *fuse.InHeader, name string) fuse.Status {
	return b.removeChild(header.NodeId, name, true)
}

func (b *bridge) removeChild(parentIno uint64, name string, wantFolder bool) fuse.Status {
	b.manager.Lock()
	defer b.manager.Unlock()
	child, err := b.manager.Lookup(node(parentIno), name)
	if err != nil {
		return errno(err)
	}
	isFolder, err := b.manager.Tree().IsFolder(child)
	if err != nil {
		return errno(err)
	}
	if wantFolder && !isFolder {
		return fuse.ENOTDIR
	}
	if !wantFolder && isFolder {
		return fuse.Status(syscall.EISDIR)
	}
	if err := b.manager.RemoveNode(child); err != nil {
		return errno(err)
	}
	return b.save()
}

func (b *bridge) Open(cancel <-chan struct{}, input *fuse.OpenIn, out *fuse.OpenOut) fuse.Status {
	b.manager.Lock()
	defer b.manager.Unlock()
	isFile, err := b.manager.Tree().IsFile(node(input.NodeId))
	if err != nil {
		return errno(err)
	}
	if !isFile {
		return fuse.Status(syscall.EISDIR)
	}
	return fuse.OK
}

func (b *bridge) Read(cancel <-chan struct{}, input *fuse.ReadIn, buf []byte) (fuse.ReadResult, fuse.Status) {
	b.manager.Lock()
	defer b.manager.Unlock()
	n, err := b.manager.ReadFile(node(input.NodeId), buf, input.Offset)
	if err != nil {
		return nil, errno(err)
	}
	return fuse.ReadResultData(buf[:n]), fuse.OK
}

func (b *bridge) Write(cancel <-chan struct{}, input *fuse.WriteIn, data []byte) (uint32, fuse.Status) {
	b.manager.Lock()
	defer b.manager.Unlock()
	n := node(input.NodeId)
	record, err := b.manager.GetInode(n)
	if err != nil {
		return 0, errno(err)
	}
	end := input.Offset + uint64(len(data))
	if end > record.Size {
		if err := b.manager.SetFileSize(n, end); err != nil {
			return 0, errno(err)
		}
	}
	written, err := b.manager.WriteFile(n, data, input.Offset)
	if err != nil {
		return 0, errno(err)
	}
	if status := b.save(); status != fuse.OK {
		return 0, status
	}
	return uint32(written), fuse.OK
}

func (b *bridge) OpenDir(cancel <-chan struct{}, input *fuse.OpenIn, out *fuse.OpenOut) fuse.Status {
	b.manager.Lock()
	defer b.manager.Unlock()
	isFolder, err := b.manager.Tree().IsFolder(node(input.NodeId))
	if err != nil {
		return errno(err)
	}
	if !isFolder {
		return fuse.ENOTDIR
	}
	return fuse.OK
}

func (b *bridge) ReadDir(cancel <-chan struct{}, input *fuse.ReadIn, out *fuse.DirEntryList) fuse.Status {
	b.manager.Lock()
	defer b.manager.Unlock()
	n := node(input.NodeId)
	tree := b.manager.Tree()
	isFolder, err := tree.IsFolder(n)
	if err != nil {
		return errno(err)
	}
	if !isFolder {
		return fuse.ENOTDIR
	}
	count, err := tree.ChildrenCount(n)
	if err != nil {
		return errno(err)
	}
	for k := int(input.Offset); k < count; k++ {
		child, err := tree.Child(n, k)
		if err != nil {
			return errno(err)
		}
		name, err := tree.Name(child)
		if err != nil {
			return errno(err)
		}
		childType, err := tree.Type(child)
		if err != nil {
			return errno(err)
		}
		mode := uint32(syscall.S_IFREG)
		if childType.IsFolder() {
			mode = syscall.S_IFDIR
		}
		if !out.AddDirEntry(fuse.DirEntry{Name: name, Ino: ino(child), Mode: mode}) {
			break
		}
	}
	return fuse.OK
}

func (b *bridge) ReadDirPlus(cancel <-chan struct{}, input *fuse.ReadIn, out *fuse.DirEntryList) fuse.Status {
	b.manager.Lock()
	defer b.manager.Unlock()
	n := node(input.NodeId)
	tree := b.manager.Tree()
	isFolder, err := tree.IsFolder(n)
	if err != nil {
		return errno(err)
	}
	if !isFolder {
		return fuse.ENOTDIR
	}
	count, err := tree.ChildrenCount(n)
	if err != nil {
		return errno(err)
	}
	for k := int(input.Offset); k < count; k++ {
		child, err := tree.Child(n, k)
		if err != nil {
			return errno(err)
		}
		name, err := tree.Name(child)
		if err != nil {
			return errno(err)
		}
		childType, err := tree.Type(child)
		if err != nil {
			return errno(err)
		}
		mode := uint32(syscall.S_IFREG)
		if childType.IsFolder() {
			mode = syscall.S_IFDIR
		}
		entry := out.AddDirLookupEntry(fuse.DirEntry{Name: name, Ino: ino(child), Mode: mode})
		if entry == nil {
			break
		}
		entry.NodeId = ino(child)
		if err := b.fillAttr(child, &entry.Attr); err != nil {
			return errno(err)
		}
	}
	return fuse.OK
}

func (b *bridge) StatFs(cancel <-chan struct{}, input *fuse.InHeader, out *fuse.StatfsOut) fuse.Status {
	b.manager.Lock()
	defer b.manager.Unlock()
	blockSize := uint32(b.manager.Config().BlockSize)
	out.Bsize = blockSize
	out.Files = uint64(b.manager.Tree().Size())
	out.NameLen = 255
	return fuse.OK
}

func (b *bridge) Fsync(cancel <-chan struct{}, input *fuse.FsyncIn) fuse.Status {
	b.manager.Lock()
	defer b.manager.Unlock()
	if err := b.manager.Save(); err != nil {
		return fuse.EIO
	}
	return fuse.OK
}
