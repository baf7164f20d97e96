// Package slot implements the fixed-size, mmap-resident cell type that
// a block's slot array is made of. A slot is either live (a generation
// stamp, an optional record reference, and a payload of type T) or a
// gap (no generation, no record, and the payload region repurposed to
// hold the position of the previous gap in the chain).
//
// Slots are addressed by raw pointer into the block's mapped byte
// region rather than through a Go slice, so that the block can hand
// out per-slot locks and payload pointers that remain valid for the
// life of the mapping without the runtime ever relocating them. This
// requires T to carry no Go pointers (it lives outside the GC'd heap,
// inside an mmap region) and to be at least 8 bytes wide, so the
// previous-gap link fits in the payload area. The width is checked
// once, eagerly, by block.NewAnon/block.New (via CheckPayloadSize)
// rather than deep inside an insert; the absence of Go pointers in T
// is not checked.
package slot

import (
	"unsafe"

	"github.com/HoodieCollin/dbexp-sub000/pkg/ids"
	"github.com/HoodieCollin/dbexp-sub000/pkg/idx"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	genOffset    = 0
	genSize      = 2
	recordOffset = genOffset + genSize
	recordSize   = 8
	// PayloadOffset is the byte offset of the payload region within a
	// slot; Header is the combined size of the generation stamp and
	// record reference that precede it.
	PayloadOffset = recordOffset + recordSize
	Header        = PayloadOffset
)

// ByteSize returns the total byte footprint of a slot holding a payload
// of payloadSize bytes.
func ByteSize(payloadSize int) int {
	return Header + payloadSize
}

// CheckPayloadSize verifies that a payload is wide enough to hold a
// previous-gap ThinIdx (8 bytes) in place, the invariant the gap chain
// depends on. Callers (block constructors) should call this once at
// construction time and fail with a BlockCreationError rather than
// let it panic mid-insert.
func CheckPayloadSize(payloadSize int) error {
	if payloadSize < 8 {
		return status.Errorf(codes.Internal, "payload type is %d bytes, must be at least 8 bytes wide to hold a gap link", payloadSize)
	}
	return nil
}

// Ref is a pointer to a single slot's bytes within a block's mapped
// region. It does not itself provide synchronization; callers combine
// it with the corresponding entry in the block's parallel slice of
// per-slot locks.
type Ref[T any] struct {
	base unsafe.Pointer
}

// At returns a Ref for the slot at byte offset off within base.
func At[T any](base unsafe.Pointer, off uintptr) Ref[T] {
	return Ref[T]{base: unsafe.Add(base, off)}
}

func (r Ref[T]) genPtr() *uint16 {
	return (*uint16)(unsafe.Add(r.base, genOffset))
}

func (r Ref[T]) recordPtr() *uint64 {
	return (*uint64)(unsafe.Add(r.base, recordOffset))
}

func (r Ref[T]) payloadPtr() *T {
	return (*T)(unsafe.Add(r.base, PayloadOffset))
}

// IsGap reports whether the slot currently carries no generation
// stamp.
func (r Ref[T]) IsGap() bool {
	return *r.genPtr() == 0
}

// Gen returns the slot's current generation stamp (0 if it is a gap).
func (r Ref[T]) Gen() uint16 {
	return *r.genPtr()
}

// NewLive writes a freshly generated live slot: a random non-zero
// generation stamp, the given optional record reference, and payload.
func (r Ref[T]) NewLive(record ids.ThinRecordID, position uint64, payload T) idx.Idx {
	i := idx.New(position)
	*r.genPtr() = i.Gen()
	r.setRecord(record)
	*r.payloadPtr() = payload
	return i
}

func (r Ref[T]) setRecord(record ids.ThinRecordID) {
	if record.IsNil() {
		*r.recordPtr() = 0
	} else {
		*r.recordPtr() = record.RawUint64()
	}
}

// payloadAsGapLink reinterprets the first 8 bytes of the payload region
// as the raw word of a ThinIdx, the storage the gap chain reuses from
// the payload area of a gap slot.
func (r Ref[T]) payloadAsGapLink() *uint64 {
	return (*uint64)(unsafe.Pointer(r.payloadPtr()))
}

// MakeGap clears the generation and record, then writes previousGap's
// raw representation into the payload region. Idempotent: calling it
// again on an already-gap slot simply rewrites the same link.
func (r Ref[T]) MakeGap(previousGap idx.ThinIdx) {
	*r.genPtr() = 0
	*r.recordPtr() = 0
	*r.payloadAsGapLink() = previousGap.RawUint64()
}

// PreviousGap reads the previous-gap link out of a gap slot's payload
// region. Calling this on a live slot returns garbage; callers must
// check IsGap first.
func (r Ref[T]) PreviousGap() idx.ThinIdx {
	return idx.ThinIdxFromRawUint64(*r.payloadAsGapLink())
}

// FillGap requires the slot be a gap; it stamps the slot with gen (the
// generation already committed to the handle that will be returned to
// the caller), stores the optional record reference, and writes the
// payload. Not idempotent: calling it twice mints nothing new, it just
// overwrites.
func (r Ref[T]) FillGap(record ids.ThinRecordID, at idx.Idx, payload T) {
	*r.genPtr() = at.Gen()
	r.setRecord(record)
	*r.payloadPtr() = payload
}

// ReadPayload returns a pointer to the live payload. Requires the slot
// be live.
func (r Ref[T]) ReadPayload() *T {
	return r.payloadPtr()
}

// TakePayload copies out the payload and returns it; the caller is
// responsible for resetting the slot (normally via MakeGap) afterward.
func (r Ref[T]) TakePayload() T {
	return *r.payloadPtr()
}

// Record returns the slot's stored record reference, or the nil
// sentinel if none is set. Requires the slot be live.
func (r Ref[T]) Record() ids.ThinRecordID {
	raw := *r.recordPtr()
	if raw == 0 {
		return ids.NilThinRecordID
	}
	return ids.ThinRecordIDFromRawUint64(raw)
}
