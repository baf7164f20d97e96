// +build darwin freebsd linux

package blockdevice

import (
	"io"
	"syscall"

	"github.com/HoodieCollin/dbexp-sub000/pkg/util"

	"golang.org/x/sys/unix"
)

// memoryMappedBlockDevice maps a byte range of a file (or an anonymous
// region, when fd is -1) read-write so that bytes addressed inside it
// are pointer-stable for the lifetime of the mapping: both reads and
// writes touch the mapped pages directly rather than going through the
// file descriptor, since this package needs in-place mutation under
// per-slot locks, which requires a genuine RW mapping.
type memoryMappedBlockDevice struct {
	fd      int
	mapping []byte
	data    []byte
	ownsFD  bool
}

// newMemoryMappedBlockDevice creates a BlockDevice from a file
// descriptor referring to a regular file, mapping sizeBytes starting at
// offset. ownsFD controls whether Close() also closes the descriptor;
// NewBlockDeviceFromFileRegion passes false, since sibling regions of
// the same file are still in use.
func newMemoryMappedBlockDevice(fd int, offset int64, sizeBytes int, ownsFD bool) (*memoryMappedBlockDevice, error) {
	// mmap only accepts page-aligned file offsets: map from the page
	// boundary at or below offset and expose only the requested bytes.
	delta := int(offset % int64(unix.Getpagesize()))
	mapping, err := unix.Mmap(fd, offset-int64(delta), delta+sizeBytes, syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED)
	if err != nil {
		return nil, util.StatusWrap(err, "Failed to memory map block device")
	}
	return &memoryMappedBlockDevice{
		fd:      fd,
		mapping: mapping,
		data:    mapping[delta:],
		ownsFD:  ownsFD,
	}, nil
}

// newAnonymousMappedBlockDevice creates a BlockDevice backed by a
// private, process-local mapping: no file descriptor, no persistence.
func newAnonymousMappedBlockDevice(sizeBytes int) (*memoryMappedBlockDevice, error) {
	data, err := unix.Mmap(-1, 0, sizeBytes, syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_ANON|syscall.MAP_PRIVATE)
	if err != nil {
		return nil, util.StatusWrap(err, "Failed to create anonymous memory map")
	}
	return &memoryMappedBlockDevice{
		fd:      -1,
		mapping: data,
		data:    data,
	}, nil
}

func (bd *memoryMappedBlockDevice) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, syscall.EINVAL
	}
	if off > int64(len(bd.data)) {
		return 0, io.EOF
	}
	n := copy(p, bd.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (bd *memoryMappedBlockDevice) WriteAt(p []byte, off int64) (int, error) {
	// Writes mutate the mapping in place rather than going through
	// Pwrite, so that any slot.Ref pointers already handed out over
	// this region observe the write immediately and so the mapping,
	// not the file descriptor, remains the single source of truth
	// between Sync calls.
	if off < 0 {
		return 0, syscall.EINVAL
	}
	if off > int64(len(bd.data)) {
		return 0, io.ErrShortWrite
	}
	n := copy(bd.data[off:], p)
	if n < len(p) {
		return n, io.ErrShortWrite
	}
	return n, nil
}

func (bd *memoryMappedBlockDevice) Sync() error {
	if bd.fd < 0 {
		// Anonymous mapping: nothing backs it but process memory.
		return nil
	}
	if err := unix.Msync(bd.mapping, unix.MS_SYNC); err != nil {
		return util.StatusWrap(err, "Failed to flush memory-mapped block device")
	}
	return nil
}

// Close unmaps the region and, if this device owns its file descriptor,
// closes it. Safe to call once; calling it twice double-unmaps and is a
// caller bug, matching the rest of this package's close semantics.
func (bd *memoryMappedBlockDevice) Close() error {
	err := unix.Munmap(bd.mapping)
	if bd.ownsFD {
		if closeErr := unix.Close(bd.fd); err == nil {
			err = closeErr
		}
	}
	if err != nil {
		return util.StatusWrap(err, "Failed to close memory-mapped block device")
	}
	return nil
}

// Bytes exposes the mapped region directly, used by pkg/block to take
// raw slot pointers into the mapping rather than copying through
// ReadAt/WriteAt.
func (bd *memoryMappedBlockDevice) Bytes() []byte {
	return bd.data
}

var _ ByteMappedBlockDevice = (*memoryMappedBlockDevice)(nil)
