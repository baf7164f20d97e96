// +build windows

package blockdevice

import (
	"os"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// NewBlockDeviceFromFileRegion is a stub for operating systems that
// don't support memory-mapped file regions; pkg/store and pkg/block
// fall back to failing block/store construction with the same code on
// these platforms.
func NewBlockDeviceFromFileRegion(file *os.File, offset int64, sizeBytes int) (ByteMappedBlockDevice, error) {
	return nil, status.Error(codes.Unimplemented, "Memory mapping block devices is not supported on this platform")
}

// NewAnonymousBlockDevice is a stub for operating systems that don't
// support anonymous memory mapping.
func NewAnonymousBlockDevice(sizeBytes int) (ByteMappedBlockDevice, error) {
	return nil, status.Error(codes.Unimplemented, "Memory mapping block devices is not supported on this platform")
}
