package ids

import (
	"github.com/HoodieCollin/dbexp-sub000/pkg/codec"
	"github.com/HoodieCollin/dbexp-sub000/pkg/idx"
)

// ThinRecordID is a record reference scoped to a single block: the fat
// index (generation + position) of the slot that carries the record,
// without the owning table. It is what a slot stores in its
// record_ref field and what a block's record map is keyed by.
type ThinRecordID struct {
	idx.Idx
}

// NilThinRecordID represents "no record attached to this slot".
var NilThinRecordID = ThinRecordID{Idx: idx.NilIdx}

// NewThinRecordID wraps a fat index as a record reference.
func NewThinRecordID(i idx.Idx) ThinRecordID {
	return ThinRecordID{Idx: i}
}

// IsNil reports whether this is the absent-record sentinel.
func (r ThinRecordID) IsNil() bool {
	return r.Idx.IsNil()
}

// RawUint64 returns the packed generation+position word stored in a
// slot's record_ref field.
func (r ThinRecordID) RawUint64() uint64 {
	return r.Idx.RawUint64()
}

// ThinRecordIDFromRawUint64 reconstructs a ThinRecordID from the raw
// word produced by RawUint64.
func ThinRecordIDFromRawUint64(raw uint64) ThinRecordID {
	return ThinRecordID{Idx: idx.IdxFromRawUint64(raw)}
}

// ByteSize is always 8, matching idx.Idx.
func (ThinRecordID) ByteSize() int { return 8 }

// EncodeBytes delegates to the wrapped fat index.
func (r ThinRecordID) EncodeBytes(enc *codec.Encoder) error {
	return r.Idx.EncodeBytes(enc)
}

// DecodeBytes delegates to the wrapped fat index.
func (r *ThinRecordID) DecodeBytes(dec *codec.Decoder) error {
	return r.Idx.DecodeBytes(dec)
}

// RecordID is a fully-qualified record reference: a thin record id plus
// the table it belongs to. It is the identifier collaborators pass
// into InsertOne; the core only inspects its Table to enforce
// TableMismatch and its thin component to key the record map.
type RecordID struct {
	Thin  ThinRecordID
	Table TableID
}

// NewRecordID builds a fully-qualified record id.
func NewRecordID(thin ThinRecordID, table TableID) RecordID {
	return RecordID{Thin: thin, Table: table}
}

// ByteSize is always 12: 8 bytes of thin record id, 4 bytes of table.
func (RecordID) ByteSize() int { return 12 }

// EncodeBytes writes the thin record id followed by the table id, the
// field order mandated for on-disk compatibility.
func (r RecordID) EncodeBytes(enc *codec.Encoder) error {
	if err := r.Thin.EncodeBytes(enc); err != nil {
		return err
	}
	return r.Table.EncodeBytes(enc)
}

// DecodeBytes reads the thin record id followed by the table id back.
func (r *RecordID) DecodeBytes(dec *codec.Decoder) error {
	if err := r.Thin.DecodeBytes(dec); err != nil {
		return err
	}
	return r.Table.DecodeBytes(dec)
}

var (
	_ codec.Encodable = ThinRecordID{}
	_ codec.Decodable = (*ThinRecordID)(nil)
	_ codec.Encodable = RecordID{}
	_ codec.Decodable = (*RecordID)(nil)
)
