// Package handle implements the validity-checked cursor returned by a
// successful insert: a reference to a block plus the fat index minted
// for the slot it occupies. Every operation re-checks the slot's
// current generation stamp against the one the handle was issued with,
// so a handle to a removed-and-reused slot fails cleanly instead of
// silently observing the new occupant.
package handle

import (
	"github.com/HoodieCollin/dbexp-sub000/pkg/ids"
	"github.com/HoodieCollin/dbexp-sub000/pkg/idx"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Block is the subset of *block.Block[T] that a handle needs. Declared
// here (rather than importing package block directly) to avoid a
// handle<->block import cycle, since block.Block must return Handle
// values from its insert operations.
type Block[T any] interface {
	ReadSlot(position uint64, gen uint16, f func(T) error) error
	WriteSlot(position uint64, gen uint16, f func(*T) error) error
	RemoveSlot(position uint64, gen uint16) (ids.ThinRecordID, T, error)
}

// Handle is a locatable, validity-checked accessor over a single slot.
type Handle[T any] struct {
	block Block[T]
	index idx.Idx
}

// New constructs a handle for the given block and fat index. Called by
// block.Block after a successful insert; not meant to be constructed
// directly by collaborators.
func New[T any](block Block[T], index idx.Idx) Handle[T] {
	return Handle[T]{block: block, index: index}
}

// Index returns the handle's fat index.
func (h Handle[T]) Index() idx.Idx {
	return h.index
}

// Equal reports position equality only, matching the source's
// PartialEq (generation is not part of handle identity for equality
// purposes, only for staleness checks).
func (h Handle[T]) Equal(o Handle[T]) bool {
	return h.index.Thin() == o.index.Thin()
}

// Compare orders two handles by position when they share a generation.
// Ordering across different generations is undefined; callers must
// check Comparable first.
func (h Handle[T]) Compare(o Handle[T]) int {
	return h.index.Compare(o.index)
}

// Comparable reports whether h and o share a generation stamp.
func (h Handle[T]) Comparable(o Handle[T]) bool {
	return h.index.Comparable(o.index)
}

var errStale = status.Error(codes.NotFound, "stale handle: slot generation no longer matches")

// IsStaleHandle reports whether err is the StaleHandle condition.
func IsStaleHandle(err error) bool {
	return err != nil && status.Code(err) == codes.NotFound
}

// ReadWith acquires a shared lock on the slot, verifies the handle's
// generation stamp still matches, and invokes f with the payload.
// Returns a StaleHandle error if the slot was removed or refilled
// since the handle was issued.
func (h Handle[T]) ReadWith(f func(T) error) error {
	return h.block.ReadSlot(h.index.Position(), h.index.Gen(), f)
}

// WriteWith is ReadWith's exclusive counterpart.
func (h Handle[T]) WriteWith(f func(*T) error) error {
	return h.block.WriteSlot(h.index.Position(), h.index.Gen(), f)
}

// RemoveSelf extracts the payload and record reference from the slot,
// unlinks it from the block's record map, and pushes it onto the gap
// chain. Returns StaleHandle if the generation check fails (the slot
// was already removed through another handle to the same position).
func (h Handle[T]) RemoveSelf() (ids.ThinRecordID, T, error) {
	return h.block.RemoveSlot(h.index.Position(), h.index.Gen())
}

// StaleHandleError is exposed so block implementations can return the
// exact error ReadWith/WriteWith/RemoveSelf expect callers to compare
// against via IsStaleHandle.
func StaleHandleError() error {
	return errStale
}
