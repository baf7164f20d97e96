package store_test

import (
	"path/filepath"
	"testing"

	"github.com/HoodieCollin/dbexp-sub000/pkg/block"
	"github.com/HoodieCollin/dbexp-sub000/pkg/handle"
	"github.com/HoodieCollin/dbexp-sub000/pkg/idx"
	"github.com/HoodieCollin/dbexp-sub000/pkg/ids"
	"github.com/HoodieCollin/dbexp-sub000/pkg/store"

	"github.com/stretchr/testify/require"
)

type pair struct {
	A uint64
	B uint64
}

func newAnonStore(t *testing.T, table ids.TableID, capacity uint64) *store.Store[pair] {
	t.Helper()
	st, err := store.New[pair](table, store.Config{BlockCapacity: capacity})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, st.Close()) })
	return st
}

func TestSingleBlockInsertRemoveReuse(t *testing.T) {
	table := ids.NewTableID()
	st := newAnonStore(t, table, 128)

	a, err := st.InsertOne(nil, pair{A: 1, B: 2})
	require.NoError(t, err)
	b, err := st.InsertOne(nil, pair{A: 3, B: 4})
	require.NoError(t, err)
	_, err = st.InsertOne(nil, pair{A: 5, B: 6})
	require.NoError(t, err)

	_, _, err = b.RemoveSelf()
	require.NoError(t, err)

	d, err := st.InsertOne(nil, pair{A: 7, B: 8})
	require.NoError(t, err)
	require.Equal(t, b.Index().Position(), d.Index().Position())

	blk, ok, err := st.Block(0)
	require.NoError(t, err)
	require.True(t, ok)
	n, err := blk.Len()
	require.NoError(t, err)
	require.Equal(t, uint64(3), n)
	g, err := blk.GapCount()
	require.NoError(t, err)
	require.Equal(t, uint64(0), g)

	err = a.ReadWith(func(p pair) error {
		require.Equal(t, pair{A: 1, B: 2}, p)
		return nil
	})
	require.NoError(t, err)
}

func TestBlockAdvancementAcrossStream(t *testing.T) {
	table := ids.NewTableID()
	st := newAnonStore(t, table, 5)

	items := make([]block.StreamItem[pair], 15)
	for i := range items {
		items[i] = block.StreamItem[pair]{Payload: pair{A: uint64(i)}}
	}

	result, err := st.Insert(items)
	require.NoError(t, err)
	require.True(t, result.Done)
	require.Len(t, result.Handles, 15)

	blockCount, err := st.BlockCount()
	require.NoError(t, err)
	require.Equal(t, uint64(3), blockCount)

	itemCount, err := st.ItemCount()
	require.NoError(t, err)
	require.Equal(t, uint64(15), itemCount)

	cur, err := st.CurBlock()
	require.NoError(t, err)
	require.Equal(t, uint64(2), cur)

	block2, ok, err := st.Block(2)
	require.NoError(t, err)
	require.True(t, ok)
	n, err := block2.Len()
	require.NoError(t, err)
	require.Equal(t, uint64(5), n)

	block0, ok, err := st.Block(0)
	require.NoError(t, err)
	require.True(t, ok)
	full, err := block0.IsFull()
	require.NoError(t, err)
	require.True(t, full)
}

func TestPersistAndReopen(t *testing.T) {
	table := ids.NewTableID()
	path := filepath.Join(t.TempDir(), "store.bin")

	st1, err := store.New[pair](table, store.Config{
		BlockCapacity:   16,
		PersistencePath: path,
	})
	require.NoError(t, err)

	var written []pair
	for i := 0; i < 10; i++ {
		p := pair{A: uint64(i), B: uint64(i * 2)}
		_, err := st1.InsertOne(nil, p)
		require.NoError(t, err)
		written = append(written, p)
	}
	require.NoError(t, st1.Close())

	st2, err := store.New[pair](table, store.Config{
		BlockCapacity:   16,
		PersistencePath: path,
	})
	require.NoError(t, err)
	defer st2.Close()

	itemCount, err := st2.ItemCount()
	require.NoError(t, err)
	require.Equal(t, uint64(10), itemCount)

	blockCount, err := st2.BlockCount()
	require.NoError(t, err)
	require.Equal(t, uint64(1), blockCount)

	blk, ok, err := st2.Block(0)
	require.NoError(t, err)
	require.True(t, ok)

	var seen []pair
	err = blk.EachLive(func(position uint64, record ids.ThinRecordID, payload pair) error {
		seen = append(seen, payload)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, written, seen)
}

func TestStaleHandleAfterReinsert(t *testing.T) {
	table := ids.NewTableID()
	st := newAnonStore(t, table, 4)

	h, err := st.InsertOne(nil, pair{A: 1})
	require.NoError(t, err)

	_, _, err = h.RemoveSelf()
	require.NoError(t, err)

	_, err = st.InsertOne(nil, pair{A: 2})
	require.NoError(t, err)

	err = h.ReadWith(func(pair) error { return nil })
	require.Error(t, err)
	require.True(t, handle.IsStaleHandle(err))
}

func TestCrossTableRejection(t *testing.T) {
	t1 := ids.NewTableID()
	t2 := ids.NewTableID()
	st := newAnonStore(t, t1, 8)

	record := ids.NewRecordID(ids.NewThinRecordID(idx.New(1)), t2)
	_, err := st.InsertOne(&record, pair{A: 1})
	require.Error(t, err)
	require.True(t, store.IsTableMismatch(err) || block.IsTableMismatch(err))

	itemCount, err := st.ItemCount()
	require.NoError(t, err)
	require.Equal(t, uint64(0), itemCount)
}
