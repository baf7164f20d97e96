package blockdevice

import (
	"io"
	"os"
)

// BlockDevice is an interface for interacting with a block device like
// storage medium. Block devices support random access reads and writes.
// They differ from plain files, in that their size is fixed.
//
// Storage media tend to store data in sectors. These sectors cannot be
// read from and written to partially. Though the ReadAt() and WriteAt()
// methods provided by this interface do not require I/O to be sector
// aligned, not doing so may impact performance, particularly when
// writing.
//
// For writes, it is suggested that data is padded with zero bytes to
// form full sectors. This prevents the kernel from performing reads
// that are needed to compute the new sector contents.
//
// Because of caching, writes may not be applied against the underlying
// storage medium immediately. This can be problematic in case the order
// of writes matters. The Sync() function can be used to block execution
// until all previous writes are persisted.
type BlockDevice interface {
	io.ReaderAt
	io.WriterAt

	Sync() error
	Close() error
}

var _ BlockDevice = (*os.File)(nil)

// ByteMappedBlockDevice is a BlockDevice whose contents are additionally
// available as a single, pointer-stable byte slice. Only memory-mapped
// devices satisfy this: callers that need to hand out raw pointers into
// the mapping (the slot storage core in pkg/block does, to keep slot
// addresses stable across the life of a block) must go through this
// interface rather than the plain ReadAt/WriteAt surface above.
type ByteMappedBlockDevice interface {
	BlockDevice

	// Bytes returns the full mapped region. The returned slice aliases
	// the mapping directly; writes to it are writes to the underlying
	// file (or, for an anonymous device, to process memory only).
	Bytes() []byte
}
