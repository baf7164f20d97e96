//go:build darwin || freebsd || linux
// +build darwin freebsd linux

package blockdevice

import (
	"os"

	"github.com/HoodieCollin/dbexp-sub000/pkg/util"

	"golang.org/x/sys/unix"
)

// NewBlockDeviceFromFileRegion maps an exact byte range of an
// already-open file read-write, growing the file with ftruncate first
// if it is not yet long enough to hold the region. The size is never
// rounded up to a sector multiple: callers that carve a single file
// into multiple byte-exact, independently-addressable regions (store
// meta, and each block's meta-plus-slots region) need the mapping to
// cover precisely the bytes they computed, no more and no less, so
// that a later region can be appended immediately after without a
// padding gap.
//
// The returned device does not own file's descriptor: closing it only
// unmaps the region, leaving file open for sibling regions and for the
// caller to close once every region derived from it has been closed.
func NewBlockDeviceFromFileRegion(file *os.File, offset int64, sizeBytes int) (ByteMappedBlockDevice, error) {
	fd := int(file.Fd())

	var stat unix.Stat_t
	if err := unix.Fstat(fd, &stat); err != nil {
		return nil, util.StatusWrapf(err, "Failed to stat file %#v", file.Name())
	}
	required := offset + int64(sizeBytes)
	if stat.Size < required {
		if err := unix.Ftruncate(fd, required); err != nil {
			return nil, util.StatusWrapf(err, "Failed to grow file %#v to %d bytes", file.Name(), required)
		}
	}

	return newMemoryMappedBlockDevice(fd, offset, sizeBytes, false)
}

// NewAnonymousBlockDevice creates a BlockDevice backed by a private,
// unshared mapping with no file behind it: used for blocks of
// in-memory (non-persisted) stores. Sync is a no-op and Close only
// releases the mapping.
func NewAnonymousBlockDevice(sizeBytes int) (ByteMappedBlockDevice, error) {
	return newAnonymousMappedBlockDevice(sizeBytes)
}
