package ids_test

import (
	"testing"

	"github.com/HoodieCollin/dbexp-sub000/pkg/codec"
	"github.com/HoodieCollin/dbexp-sub000/pkg/idx"
	"github.com/HoodieCollin/dbexp-sub000/pkg/ids"

	"github.com/stretchr/testify/require"
)

func TestNewTableIDIsNonZeroAndNonSentinel(t *testing.T) {
	for i := 0; i < 32; i++ {
		tbl := ids.NewTableID()
		require.NotEqual(t, uint32(0), tbl.Raw())
		require.NotEqual(t, ids.InvalidTableID, tbl)
	}
}

func TestTableIDEqual(t *testing.T) {
	a := ids.TableIDFromRaw(7)
	b := ids.TableIDFromRaw(7)
	c := ids.TableIDFromRaw(8)
	require.True(t, a.Equal(b))
	require.False(t, a.Equal(c))
}

func TestTableIDByteRoundTrip(t *testing.T) {
	tbl := ids.NewTableID()
	buf, err := codec.EncodeToBytes(tbl)
	require.NoError(t, err)
	require.Len(t, buf, tbl.ByteSize())

	var out ids.TableID
	require.NoError(t, codec.DecodeFromBytes(buf, &out))
	require.True(t, tbl.Equal(out))
}

func TestThinRecordIDNilSentinel(t *testing.T) {
	require.True(t, ids.NilThinRecordID.IsNil())
	require.Equal(t, uint64(0), ids.NilThinRecordID.RawUint64())
}

func TestThinRecordIDRawRoundTrip(t *testing.T) {
	r := ids.NewThinRecordID(idx.New(5))
	raw := r.RawUint64()
	require.Equal(t, r, ids.ThinRecordIDFromRawUint64(raw))
}

func TestThinRecordIDByteRoundTrip(t *testing.T) {
	r := ids.NewThinRecordID(idx.New(42))
	buf, err := codec.EncodeToBytes(r)
	require.NoError(t, err)
	require.Len(t, buf, r.ByteSize())

	var out ids.ThinRecordID
	require.NoError(t, codec.DecodeFromBytes(buf, &out))
	require.Equal(t, r, out)
}

func TestRecordIDByteRoundTrip(t *testing.T) {
	tbl := ids.NewTableID()
	thin := ids.NewThinRecordID(idx.New(3))
	r := ids.NewRecordID(thin, tbl)

	buf, err := codec.EncodeToBytes(r)
	require.NoError(t, err)
	require.Len(t, buf, r.ByteSize())

	var out ids.RecordID
	require.NoError(t, codec.DecodeFromBytes(buf, &out))
	require.Equal(t, r.Thin, out.Thin)
	require.True(t, r.Table.Equal(out.Table))
}
