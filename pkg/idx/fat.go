package idx

import (
	"github.com/HoodieCollin/dbexp-sub000/pkg/codec"
	"github.com/HoodieCollin/dbexp-sub000/pkg/random"
)

// Idx pairs a 16-bit generation stamp with a 48-bit position in a
// single 64-bit word: the low 16 bits hold the generation, the high 48
// bits hold the zero-based position. The all-zero word is reserved for
// the nil sentinel below, so an Idx with generation 0 at position 0
// packs the same as NilIdx.
type Idx struct {
	gen      uint16
	position uint64 // stored as position+1; 0 means nil
}

// NilIdx is the zero value.
var NilIdx = Idx{}

// InvalidIdx marks a position that overflowed MaxPosition.
var InvalidIdx = Idx{gen: 0xFFFF, position: ^uint64(0)}

// mintGen draws a uniformly random, non-zero, non-0xFFFF 16-bit
// generation stamp, matching the source's O16::new(): generation
// stamps are random, not sequential, so that "same position, different
// occupant" is detectable without a shared counter.
func mintGen() uint16 {
	for {
		v := uint16(random.FastThreadSafeGenerator.Uint64())
		if v != 0 && v != 0xFFFF {
			return v
		}
	}
}

// New constructs a fat index at the given position with a freshly
// minted random generation stamp.
func New(position uint64) Idx {
	if position > MaxPosition {
		return InvalidIdx
	}
	return Idx{gen: mintGen(), position: position + 1}
}

// FromThin upgrades a ThinIdx to a fat index by minting a fresh
// generation stamp for its position.
func FromThin(t ThinIdx) Idx {
	if t.IsNil() {
		return NilIdx
	}
	return New(t.Position())
}

// FromParts builds a fat index from an explicit generation and
// position, without minting a new generation stamp.
func FromParts(gen uint16, position uint64) Idx {
	if position > MaxPosition {
		return InvalidIdx
	}
	return Idx{gen: gen, position: position + 1}
}

// IsNil reports whether i represents "no index".
func (i Idx) IsNil() bool {
	return i.position == 0
}

// Gen returns the generation stamp.
func (i Idx) Gen() uint16 {
	return i.gen
}

// Position returns the zero-based position.
func (i Idx) Position() uint64 {
	if i.position == 0 {
		return 0
	}
	return i.position - 1
}

// Thin discards the generation, yielding the bare position.
func (i Idx) Thin() ThinIdx {
	if i.IsNil() {
		return NilThinIdx
	}
	return NewThinIdx(i.Position())
}

// Equal reports whether both generation and position match.
func (i Idx) Equal(o Idx) bool {
	return i.gen == o.gen && i.position == o.position
}

// Comparable reports whether i and o share a generation stamp. Handles
// of different generations are not ordered relative to one another;
// callers must check this before calling Compare.
func (i Idx) Comparable(o Idx) bool {
	return i.gen == o.gen
}

// Compare returns -1, 0, or 1 comparing position, but only when
// Comparable(o) is true. Calling it otherwise is a programmer error;
// check Comparable first.
func (i Idx) Compare(o Idx) int {
	switch {
	case i.position == o.position:
		return 0
	case i.position < o.position:
		return -1
	default:
		return 1
	}
}

// RawUint64 packs the generation (low 16 bits) and the zero-based
// position (high 48 bits) into a single 64-bit word, the same layout
// written on disk and into a slot's record_ref field. NilIdx packs to 0.
func (i Idx) RawUint64() uint64 {
	if i.IsNil() {
		return 0
	}
	return uint64(i.gen) | (i.Position() << 16)
}

// IdxFromRawUint64 reconstructs an Idx from the raw word produced by
// RawUint64.
func IdxFromRawUint64(raw uint64) Idx {
	if raw == 0 {
		return NilIdx
	}
	return Idx{gen: uint16(raw), position: raw>>16 + 1}
}

// ByteSize is always 8.
func (Idx) ByteSize() int { return 8 }

// EncodeBytes writes the generation then the 48-bit zero-based
// position: the little-endian bytes of RawUint64.
func (i Idx) EncodeBytes(enc *codec.Encoder) error {
	enc.WriteUint16(i.gen)
	var posBytes [6]byte
	p := i.Position()
	for n := 0; n < 6; n++ {
		posBytes[n] = byte(p)
		p >>= 8
	}
	enc.WriteBytes(posBytes[:])
	return nil
}

// DecodeBytes reads the word back.
func (i *Idx) DecodeBytes(dec *codec.Decoder) error {
	gen, err := dec.ReadUint16()
	if err != nil {
		return err
	}
	posBytes, err := dec.ReadBytes(6)
	if err != nil {
		return err
	}
	var p uint64
	for n := 5; n >= 0; n-- {
		p = (p << 8) | uint64(posBytes[n])
	}
	i.gen = gen
	i.position = p + 1
	if gen == 0 && p == 0 {
		i.position = 0
	}
	return nil
}

var (
	_ codec.Encodable = Idx{}
	_ codec.Decodable = (*Idx)(nil)
)
