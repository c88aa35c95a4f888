// Package disk provides the image-file block device the filesystem
// persists into. A single host file is addressed as an array of
// fixed-size blocks; block 0 holds the filesystem header.
package disk

import (
	"fmt"
	"io"
	"os"
)

// DefaultBlockSize is the block size used when none is configured.
const DefaultBlockSize = 4096

// ImageDevice is a block device backed by a regular file on the host
// filesystem. The file is created when missing and grown to at least
// one block; it is never shrunk. Reads past the end of the file come
// back zero-filled.
type ImageDevice struct {
	file      *os.File
	path      string
	blockSize int
}

// OpenImage opens or creates the image file at path with the given
// block size.
func OpenImage(path string, blockSize int) (*ImageDevice, error) {
	if blockSize <= 0 {
		return nil, fmt.Errorf("invalid block size %d", blockSize)
	}
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening image file %s: %w", path, err)
	}
	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("stat image file %s: %w", path, err)
	}
	if stat.Size() < int64(blockSize) {
		if err := file.Truncate(int64(blockSize)); err != nil {
			file.Close()
			return nil, fmt.Errorf("growing image file %s to one block: %w", path, err)
		}
	}
	return &ImageDevice{file: file, path: path, blockSize: blockSize}, nil
}

// BlockSize returns the fixed block size in bytes.
func (d *ImageDevice) BlockSize() int {
	return d.blockSize
}

// Path returns the host path of the image file.
func (d *ImageDevice) Path() string {
	return d.path
}

// ReadBlock fills buf with the content of block index. Regions beyond
// the end of the file read as zeros.
func (d *ImageDevice) ReadBlock(index uint64, buf []byte) error {
	if len(buf) != d.blockSize {
		return fmt.Errorf("read block %d: buffer is %d bytes, want %d", index, len(buf), d.blockSize)
	}
	n, err := d.file.ReadAt(buf, int64(index)*int64(d.blockSize))
	if err != nil && err != io.EOF {
		return fmt.Errorf("reading block %d of %s: %w", index, d.path, err)
	}
	for i := n; i < len(buf); i++ {
		buf[i] = 0
	}
	return nil
}

// WriteBlock writes buf as block index, extending the file as needed.
func (d *ImageDevice) WriteBlock(index uint64, buf []byte) error {
	if len(buf) != d.blockSize {
		return fmt.Errorf("write block %d: buffer is %d bytes, want %d", index, len(buf), d.blockSize)
	}
	if _, err := d.file.WriteAt(buf, int64(index)*int64(d.blockSize)); err != nil {
		return fmt.Errorf("writing block %d of %s: %w", index, d.path, err)
	}
	return nil
}

// Sync flushes buffered writes to stable storage.
func (d *ImageDevice) Sync() error {
	if err := d.file.Sync(); err != nil {
		return fmt.Errorf("syncing %s: %w", d.path, err)
	}
	return nil
}

// Close releases the underlying file handle.
func (d *ImageDevice) Close() error {
	return d.file.Close()
}
