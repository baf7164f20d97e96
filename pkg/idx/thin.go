// Package idx implements the two positional identifier types used
// throughout the storage core: ThinIdx, a bare 48-bit position, and
// Idx, a fat index that pairs a 16-bit generation stamp with a 48-bit
// position in a single 64-bit word.
package idx

import (
	"github.com/HoodieCollin/dbexp-sub000/pkg/codec"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// MaxPosition is the largest position representable by ThinIdx or the
// position component of Idx: 2^48 - 1.
const MaxPosition = (1 << 48) - 1

// ThinIdx is a 48-bit, non-negative position. It is stored internally
// as position+1 so that the zero bit pattern represents "None" on disk
// and in memory, matching the original source's NonZeroU64 encoding.
type ThinIdx struct {
	raw uint64
}

// NilThinIdx is the zero value: "no position".
var NilThinIdx = ThinIdx{}

// InvalidThinIdx is the sentinel used when a position overflows
// MaxPosition.
var InvalidThinIdx = ThinIdx{raw: ^uint64(0)}

// NewThinIdx constructs a ThinIdx from a position. Positions beyond
// MaxPosition collapse to InvalidThinIdx, matching the source's
// saturate-to-invalid behavior rather than panicking.
func NewThinIdx(position uint64) ThinIdx {
	if position > MaxPosition {
		return InvalidThinIdx
	}
	return ThinIdx{raw: position + 1}
}

// IsNil reports whether t represents "None".
func (t ThinIdx) IsNil() bool {
	return t.raw == 0
}

// IsValid reports whether t is neither nil nor the overflow sentinel.
func (t ThinIdx) IsValid() bool {
	return !t.IsNil() && t != InvalidThinIdx
}

// Position returns the zero-based position. Calling this on a nil
// ThinIdx returns 0; callers must check IsNil first.
func (t ThinIdx) Position() uint64 {
	if t.raw == 0 {
		return 0
	}
	return t.raw - 1
}

// Add returns a new ThinIdx offset by n positions.
func (t ThinIdx) Add(n uint64) ThinIdx {
	return NewThinIdx(t.Position() + n)
}

// Sub returns a new ThinIdx offset backward by n positions. Panics-free
// saturation is not attempted here: callers must not subtract past
// zero, matching the source, which relies on callers respecting block
// bounds.
func (t ThinIdx) Sub(n uint64) ThinIdx {
	return NewThinIdx(t.Position() - n)
}

// RawUint64 returns the internal position+1 word (0 = nil), the same
// bit pattern written on disk and into a gap slot's payload region.
func (t ThinIdx) RawUint64() uint64 {
	return t.raw
}

// ThinIdxFromRawUint64 reconstructs a ThinIdx from the raw word
// produced by RawUint64.
func ThinIdxFromRawUint64(raw uint64) ThinIdx {
	return ThinIdx{raw: raw}
}

// Compare returns -1, 0, or 1 following normal integer ordering over
// position. Two nil values compare equal.
func (t ThinIdx) Compare(o ThinIdx) int {
	switch {
	case t.raw == o.raw:
		return 0
	case t.raw < o.raw:
		return -1
	default:
		return 1
	}
}

// ByteSize is always 8: the on-disk/in-memory representation is a
// single little-endian uint64 holding position+1 (0 = None).
func (ThinIdx) ByteSize() int { return 8 }

// EncodeBytes writes the raw (position+1) word.
func (t ThinIdx) EncodeBytes(enc *codec.Encoder) error {
	enc.WriteUint64(t.raw)
	return nil
}

// DecodeBytes reads the raw word back, validating it does not exceed
// MaxPosition+1.
func (t *ThinIdx) DecodeBytes(dec *codec.Decoder) error {
	raw, err := dec.ReadUint64()
	if err != nil {
		return err
	}
	if raw != 0 && raw-1 > MaxPosition {
		return status.Errorf(codes.Internal, "thin index %d exceeds maximum position %d", raw-1, uint64(MaxPosition))
	}
	t.raw = raw
	return nil
}

var (
	_ codec.Encodable = ThinIdx{}
	_ codec.Decodable = (*ThinIdx)(nil)
)
