// Package ids implements the opaque identifier types that flow through
// the storage core without being interpreted by it: table identifiers
// and record identifiers. The core only ever compares these for
// equality (table match) and uses the record identifier's positional
// component to index into a block's record map.
package ids

import (
	"github.com/HoodieCollin/dbexp-sub000/pkg/codec"
	"github.com/HoodieCollin/dbexp-sub000/pkg/random"
)

// TableID is an opaque, random, non-zero 32-bit table identifier.
type TableID struct {
	raw uint32
}

// InvalidTableID is the all-ones sentinel.
var InvalidTableID = TableID{raw: ^uint32(0)}

// NewTableID mints a fresh, random, non-zero, non-0xFFFFFFFF table id.
func NewTableID() TableID {
	for {
		v := random.FastThreadSafeGenerator.Uint32()
		if v != 0 && v != ^uint32(0) {
			return TableID{raw: v}
		}
	}
}

// TableIDFromRaw reconstructs a TableID from its raw 32-bit value, as
// read back from a persisted header. A raw value of 0 yields the zero
// TableID (no owning table), matching "table (4B)" with no reserved
// nil encoding beyond all-zero-by-convention at the call sites that use
// it (store/block meta always have a concrete table once created).
func TableIDFromRaw(raw uint32) TableID {
	return TableID{raw: raw}
}

// Raw returns the underlying 32-bit value.
func (t TableID) Raw() uint32 {
	return t.raw
}

// Equal reports identifier equality.
func (t TableID) Equal(o TableID) bool {
	return t.raw == o.raw
}

// ByteSize is always 4.
func (TableID) ByteSize() int { return 4 }

// EncodeBytes writes the raw 32-bit value little-endian.
func (t TableID) EncodeBytes(enc *codec.Encoder) error {
	enc.WriteUint32(t.raw)
	return nil
}

// DecodeBytes reads the raw 32-bit value back.
func (t *TableID) DecodeBytes(dec *codec.Decoder) error {
	raw, err := dec.ReadUint32()
	if err != nil {
		return err
	}
	t.raw = raw
	return nil
}

var (
	_ codec.Encodable = TableID{}
	_ codec.Decodable = (*TableID)(nil)
)
