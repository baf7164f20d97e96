package slot_test

import (
	"testing"
	"unsafe"

	"github.com/HoodieCollin/dbexp-sub000/pkg/ids"
	"github.com/HoodieCollin/dbexp-sub000/pkg/idx"
	"github.com/HoodieCollin/dbexp-sub000/pkg/slot"

	"github.com/stretchr/testify/require"
)

type payload struct {
	A int64
	B int64
}

func newRef(t *testing.T) slot.Ref[payload] {
	t.Helper()
	size := slot.ByteSize(int(unsafe.Sizeof(payload{})))
	buf := make([]byte, size)
	return slot.At[payload](unsafe.Pointer(&buf[0]), 0)
}

func TestCheckPayloadSizeRejectsNarrowPayloads(t *testing.T) {
	require.NoError(t, slot.CheckPayloadSize(8))
	require.Error(t, slot.CheckPayloadSize(4))
}

func TestNewLiveSlotIsNotAGap(t *testing.T) {
	ref := newRef(t)
	fat := ref.NewLive(ids.NilThinRecordID, 3, payload{A: 1, B: 2})

	require.False(t, ref.IsGap())
	require.Equal(t, fat.Gen(), ref.Gen())
	require.Equal(t, payload{A: 1, B: 2}, *ref.ReadPayload())
	require.True(t, ref.Record().IsNil())
}

func TestNewLiveSlotStoresRecord(t *testing.T) {
	ref := newRef(t)
	record := ids.NewThinRecordID(idx.New(9))
	ref.NewLive(record, 0, payload{A: 5})

	require.Equal(t, record, ref.Record())
}

func TestMakeGapClearsGenerationAndRecord(t *testing.T) {
	ref := newRef(t)
	record := ids.NewThinRecordID(idx.New(9))
	ref.NewLive(record, 0, payload{A: 5})
	require.False(t, ref.IsGap())

	ref.MakeGap(idx.NilThinIdx)
	require.True(t, ref.IsGap())
	require.Equal(t, uint16(0), ref.Gen())
	require.True(t, ref.PreviousGap().IsNil())
}

func TestMakeGapIsIdempotent(t *testing.T) {
	ref := newRef(t)
	prev := idx.NewThinIdx(4)
	ref.MakeGap(prev)
	ref.MakeGap(prev)
	require.True(t, ref.IsGap())
	require.Equal(t, prev, ref.PreviousGap())
}

func TestMakeGapStoresPreviousGapLink(t *testing.T) {
	ref := newRef(t)
	prev := idx.NewThinIdx(12)
	ref.MakeGap(prev)
	require.Equal(t, prev, ref.PreviousGap())
}

func TestFillGapRevivesAGapSlot(t *testing.T) {
	ref := newRef(t)
	ref.MakeGap(idx.NilThinIdx)
	require.True(t, ref.IsGap())

	fat := idx.New(2)
	record := ids.NewThinRecordID(idx.New(1))
	ref.FillGap(record, fat, payload{A: 7, B: 8})

	require.False(t, ref.IsGap())
	require.Equal(t, fat.Gen(), ref.Gen())
	require.Equal(t, record, ref.Record())
	require.Equal(t, payload{A: 7, B: 8}, *ref.ReadPayload())
}

func TestTakePayloadReturnsCurrentValue(t *testing.T) {
	ref := newRef(t)
	ref.NewLive(ids.NilThinRecordID, 0, payload{A: 1, B: 2})
	require.Equal(t, payload{A: 1, B: 2}, ref.TakePayload())
}
