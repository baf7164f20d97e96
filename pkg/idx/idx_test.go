package idx_test

import (
	"testing"

	"github.com/HoodieCollin/dbexp-sub000/pkg/codec"
	"github.com/HoodieCollin/dbexp-sub000/pkg/idx"

	"github.com/stretchr/testify/require"
)

func TestThinIdxNilAndPosition(t *testing.T) {
	require.True(t, idx.NilThinIdx.IsNil())
	require.Equal(t, uint64(0), idx.NilThinIdx.Position())

	i := idx.NewThinIdx(41)
	require.False(t, i.IsNil())
	require.True(t, i.IsValid())
	require.Equal(t, uint64(41), i.Position())
}

func TestThinIdxOverflowSaturatesToInvalid(t *testing.T) {
	i := idx.NewThinIdx(idx.MaxPosition + 1)
	require.Equal(t, idx.InvalidThinIdx, i)
	require.False(t, i.IsValid())
}

func TestThinIdxArithmetic(t *testing.T) {
	i := idx.NewThinIdx(10)
	require.Equal(t, uint64(15), i.Add(5).Position())
	require.Equal(t, uint64(7), i.Sub(3).Position())
}

func TestThinIdxCompare(t *testing.T) {
	a := idx.NewThinIdx(1)
	b := idx.NewThinIdx(2)
	require.Equal(t, -1, a.Compare(b))
	require.Equal(t, 1, b.Compare(a))
	require.Equal(t, 0, a.Compare(a))
	require.Equal(t, 0, idx.NilThinIdx.Compare(idx.NilThinIdx))
}

func TestThinIdxRawRoundTrip(t *testing.T) {
	i := idx.NewThinIdx(123456)
	raw := i.RawUint64()
	require.Equal(t, i, idx.ThinIdxFromRawUint64(raw))
}

func TestThinIdxByteRoundTrip(t *testing.T) {
	for _, i := range []idx.ThinIdx{idx.NilThinIdx, idx.NewThinIdx(0), idx.NewThinIdx(99), idx.NewThinIdx(idx.MaxPosition)} {
		buf, err := codec.EncodeToBytes(i)
		require.NoError(t, err)
		require.Len(t, buf, i.ByteSize())

		var out idx.ThinIdx
		require.NoError(t, codec.DecodeFromBytes(buf, &out))
		require.Equal(t, i, out)
	}
}

func TestIdxNilAndPosition(t *testing.T) {
	require.True(t, idx.NilIdx.IsNil())

	i := idx.New(7)
	require.False(t, i.IsNil())
	require.Equal(t, uint64(7), i.Position())
	require.NotZero(t, i.Gen())
}

func TestIdxEqualRequiresGenerationAndPosition(t *testing.T) {
	a := idx.FromParts(5, 10)
	b := idx.FromParts(5, 10)
	c := idx.FromParts(6, 10)
	require.True(t, a.Equal(b))
	require.False(t, a.Equal(c))
}

func TestIdxComparableAcrossGenerations(t *testing.T) {
	a := idx.FromParts(5, 10)
	b := idx.FromParts(5, 20)
	c := idx.FromParts(6, 10)

	require.True(t, a.Comparable(b))
	require.Equal(t, -1, a.Compare(b))

	require.False(t, a.Comparable(c))
}

func TestIdxThinDiscardsGeneration(t *testing.T) {
	a := idx.FromParts(5, 10)
	require.Equal(t, idx.NewThinIdx(10), a.Thin())
	require.True(t, idx.NilIdx.Thin().IsNil())
}

func TestIdxRawRoundTrip(t *testing.T) {
	a := idx.FromParts(0x1234, 99)
	raw := a.RawUint64()
	require.Equal(t, a, idx.IdxFromRawUint64(raw))
}

func TestIdxByteRoundTrip(t *testing.T) {
	for _, i := range []idx.Idx{idx.NilIdx, idx.FromParts(1, 0), idx.FromParts(0xABCD, idx.MaxPosition)} {
		buf, err := codec.EncodeToBytes(i)
		require.NoError(t, err)
		require.Len(t, buf, i.ByteSize())

		var out idx.Idx
		require.NoError(t, codec.DecodeFromBytes(buf, &out))
		require.Equal(t, i, out)
	}
}

func TestNewMintsDistinctGenerations(t *testing.T) {
	seen := make(map[uint16]struct{})
	for i := 0; i < 64; i++ {
		seen[idx.New(uint64(i)).Gen()] = struct{}{}
	}
	// Random generation stamps are not guaranteed distinct, but a
	// run of 64 draws collapsing to one value would indicate the
	// generator isn't mixing at all.
	require.Greater(t, len(seen), 1)
}

func TestRangeBlockRange(t *testing.T) {
	r := idx.NewRange(0, 15)
	first, last := r.BlockRange(5)
	require.Equal(t, uint64(0), first)
	require.Equal(t, uint64(2), last)

	require.True(t, idx.NewRange(5, 5).IsEmpty())
	require.False(t, idx.NewRange(5, 6).IsEmpty())
}
