// Package store implements the growable roster of blocks that backs
// one table: a persisted meta header, a "current" block cursor that
// always points at the block new inserts land in, and the same
// stream-insert block-advancement loop used by an anonymous,
// in-memory store and a file-backed one. It never imports pkg/block
// more than it needs to (the roster holds *block.Block[T] directly;
// there is no separate roster-entry type).
package store

import (
	"fmt"
	"os"
	"strconv"

	"github.com/HoodieCollin/dbexp-sub000/pkg/block"
	"github.com/HoodieCollin/dbexp-sub000/pkg/blockdevice"
	"github.com/HoodieCollin/dbexp-sub000/pkg/codec"
	"github.com/HoodieCollin/dbexp-sub000/pkg/handle"
	"github.com/HoodieCollin/dbexp-sub000/pkg/idx"
	"github.com/HoodieCollin/dbexp-sub000/pkg/ids"
	"github.com/HoodieCollin/dbexp-sub000/pkg/metrics"
	"github.com/HoodieCollin/dbexp-sub000/pkg/shared"
	"github.com/HoodieCollin/dbexp-sub000/pkg/util"
)

// rosterState is the mutable roster data guarded by a store's
// exclusive/shared lock: the resident blocks plus the bookkeeping that
// is also persisted in the store meta record.
type rosterState[T any] struct {
	blockCount uint64
	itemCount  uint64
	gapCount   uint64
	curBlock   uint64
	blocks     map[uint64]*block.Block[T]
}

// Store is a growable roster of fixed-capacity blocks for a single
// table. Construct one with New.
type Store[T any] struct {
	table ids.TableID
	config Config

	persisted       bool
	file            *os.File
	metaDev         blockdevice.ByteMappedBlockDevice
	metaSize        int
	blockRegionSize int

	roster *shared.Object[rosterState[T]]
	logger util.ErrorLogger
}

func isZero(p []byte) bool {
	for _, c := range p {
		if c != 0 {
			return false
		}
	}
	return true
}

// tableLabel buckets a table's raw ID into a fixed number of
// Prometheus label values; see pkg/block's tableLabel for why the raw
// ID itself is never used as a label value.
func tableLabel(t ids.TableID) string {
	const buckets = 64
	return strconv.FormatUint(uint64(t.Raw())%buckets, 10)
}

// New creates (or reopens) a store for table. If config.PersistencePath
// is empty, the store and every block in it are anonymous (§4.4) and
// nothing outlives the process. Otherwise the store's meta header and
// every block's region live in the single named file.
func New[T any](table ids.TableID, config Config) (*Store[T], error) {
	metrics.Register()
	config = config.WithDefaults()

	blockRegionSize := block.MetaSize() + int(config.BlockCapacity)*block.SlotSize[T]()
	metaSize := (Meta{}).ByteSize()

	st := &Store[T]{
		table:           table,
		config:          config,
		metaSize:        metaSize,
		blockRegionSize: blockRegionSize,
		logger:          util.DefaultErrorLogger,
	}

	if config.PersistencePath == "" {
		s := rosterState[T]{blocks: make(map[uint64]*block.Block[T])}
		for i := uint64(0); i < config.InitialBlockCount; i++ {
			blk, err := st.openBlock(i)
			if err != nil {
				return nil, err
			}
			s.blocks[i] = blk
		}
		if err := chainInitialBlocks(s.blocks, config.InitialBlockCount); err != nil {
			return nil, err
		}
		s.blockCount = config.InitialBlockCount
		st.roster = shared.New(s)
		return st, nil
	}

	f, err := os.OpenFile(config.PersistencePath, os.O_CREATE|os.O_RDWR, 0o666)
	if err != nil {
		return nil, wrapUnexpected(err, fmt.Sprintf("failed to open store file %q", config.PersistencePath))
	}
	st.file = f
	st.persisted = true

	metaDev, err := blockdevice.NewBlockDeviceFromFileRegion(f, 0, metaSize)
	if err != nil {
		f.Close()
		return nil, wrapBlockCreation(err, fmt.Sprintf("failed to map store meta for %q", config.PersistencePath))
	}
	st.metaDev = metaDev

	metaBytes := metaDev.Bytes()
	if isZero(metaBytes) {
		s := rosterState[T]{blocks: make(map[uint64]*block.Block[T])}
		for i := uint64(0); i < config.InitialBlockCount; i++ {
			blk, err := st.openBlock(i)
			if err != nil {
				metaDev.Close()
				f.Close()
				return nil, err
			}
			s.blocks[i] = blk
		}
		if err := chainInitialBlocks(s.blocks, config.InitialBlockCount); err != nil {
			metaDev.Close()
			f.Close()
			return nil, err
		}
		s.blockCount = config.InitialBlockCount
		if err := st.persistMeta(s); err != nil {
			metaDev.Close()
			f.Close()
			return nil, err
		}
		st.roster = shared.New(s)
		return st, nil
	}

	var meta Meta
	if err := codec.DecodeFromBytes(metaBytes, &meta); err != nil {
		metaDev.Close()
		f.Close()
		return nil, wrapBlockCreation(err, fmt.Sprintf("failed to decode store meta for %q", config.PersistencePath))
	}
	if !meta.Table.Equal(table) {
		metaDev.Close()
		f.Close()
		return nil, errStoreTableMismatch
	}
	if meta.Config.BlockCapacity != config.BlockCapacity {
		metaDev.Close()
		f.Close()
		return nil, blockCreationError("store meta capacity %d does not match requested capacity %d", meta.Config.BlockCapacity, config.BlockCapacity)
	}

	expected := int64(metaSize) + int64(meta.BlockCount)*int64(blockRegionSize)
	fi, err := f.Stat()
	if err != nil {
		metaDev.Close()
		f.Close()
		return nil, wrapUnexpected(err, fmt.Sprintf("failed to stat store file %q", config.PersistencePath))
	}
	if fi.Size() != expected {
		metaDev.Close()
		f.Close()
		return nil, blockCreationError("store file %q has length %d, expected %d for %d blocks", config.PersistencePath, fi.Size(), expected, meta.BlockCount)
	}

	s := rosterState[T]{
		blockCount: meta.BlockCount,
		itemCount:  meta.ItemCount,
		gapCount:   meta.GapCount,
		curBlock:   meta.CurBlock,
		blocks:     make(map[uint64]*block.Block[T]),
	}
	cur, err := st.openBlock(meta.CurBlock)
	if err != nil {
		metaDev.Close()
		f.Close()
		return nil, err
	}
	s.blocks[meta.CurBlock] = cur
	st.roster = shared.New(s)
	return st, nil
}

// chainInitialBlocks links the blocks pre-allocated at store creation
// time (index 0 through count-1) into a forward chain via
// SetNextBlock, so that draining block i advances into the
// already-resident block i+1 instead of advanceLocked mistaking it for
// missing and allocating a fresh block at index blockCount, which
// would silently orphan every block beyond the first.
func chainInitialBlocks[T any](blocks map[uint64]*block.Block[T], count uint64) error {
	for i := uint64(0); i+1 < count; i++ {
		if err := blocks[i].SetNextBlock(i + 1); err != nil {
			return err
		}
	}
	return nil
}

// openBlock creates or reopens the block at index, anonymous or
// file-backed depending on whether the store is persisted.
// block.NewAnon/block.New both auto-detect fresh-vs-reopen, so this
// single helper serves both construction paths.
func (st *Store[T]) openBlock(index uint64) (*block.Block[T], error) {
	if !st.persisted {
		return block.NewAnon[T](index, st.table, st.config.blockConfig())
	}
	offset := int64(st.metaSize) + int64(index)*int64(st.blockRegionSize)
	return block.New[T](index, st.table, st.file, offset, st.config.blockConfig(), st.logger)
}

// recomputeGapCount rolls up the gap count of every resident block.
// Blocks that are not currently loaded keep their own meta record
// accurate on disk (each flushes itself on every structural change),
// so this rollup is only ever approximate for a store whose blocks
// are partially unloaded; the store's own gapCount field exists for
// quick introspection, not as the gap chain's source of truth (each
// block's own meta record is that).
func (st *Store[T]) recomputeGapCount(s *rosterState[T]) error {
	var total uint64
	for _, blk := range s.blocks {
		g, err := blk.GapCount()
		if err != nil {
			return err
		}
		total += g
	}
	s.gapCount = total
	return nil
}

func (st *Store[T]) persistMeta(s rosterState[T]) error {
	if !st.persisted {
		return nil
	}
	m := Meta{
		Table:      st.table,
		BlockCount: s.blockCount,
		ItemCount:  s.itemCount,
		GapCount:   s.gapCount,
		CurBlock:   s.curBlock,
		Config:     st.config,
	}
	buf, err := codec.EncodeToBytes(m)
	if err != nil {
		return wrapBlockCreation(err, "failed to encode store meta")
	}
	copy(st.metaDev.Bytes(), buf)
	return nil
}

// advanceLocked moves curBlock forward after the block it currently
// points at has filled: it prefers a pre-linked next block, loading it
// if not yet resident, and only allocates a brand new block at
// blockCount when no pre-link exists (§4.5 "Create block").
func (st *Store[T]) advanceLocked(s *rosterState[T]) error {
	cur, ok := s.blocks[s.curBlock]
	if !ok {
		return errBlockNotFound
	}
	nextIdx, hasNext, err := cur.ConsumeNextBlock()
	if err != nil {
		return err
	}
	if hasNext {
		if _, resident := s.blocks[nextIdx]; !resident {
			blk, err := st.openBlock(nextIdx)
			if err != nil {
				return err
			}
			s.blocks[nextIdx] = blk
		}
		s.curBlock = nextIdx
		return nil
	}

	newIdx := s.blockCount
	blk, err := st.openBlock(newIdx)
	if err != nil {
		return err
	}
	s.blocks[newIdx] = blk
	s.blockCount = newIdx + 1
	s.curBlock = newIdx
	metrics.BlocksCreated.WithLabelValues(tableLabel(st.table)).Inc()
	return nil
}

// Load pre-warms every block covering the half-open position range r,
// so a subsequent read by position does not pay mapping latency inline.
// Uses an upgradable guard: most calls find every block already
// resident and never pay the exclusive-lock cost.
func (st *Store[T]) Load(r idx.Range) error {
	if r.IsEmpty() {
		return nil
	}
	first, last := r.BlockRange(st.config.BlockCapacity)

	g := st.roster.Upgradable()
	defer g.Release()

	var missing []uint64
	if err := g.ReadWith(func(s rosterState[T]) error {
		for i := first; i <= last; i++ {
			if _, ok := s.blocks[i]; !ok {
				missing = append(missing, i)
			}
		}
		return nil
	}); err != nil {
		return err
	}
	if len(missing) == 0 {
		return nil
	}

	return g.Upgrade(func(s *rosterState[T]) error {
		for _, i := range missing {
			if _, ok := s.blocks[i]; ok {
				continue
			}
			if i >= s.blockCount {
				return errBlockNotFound
			}
			blk, err := st.openBlock(i)
			if err != nil {
				return err
			}
			s.blocks[i] = blk
		}
		return nil
	})
}

// InsertOne performs a single insert into the store's current block,
// advancing to the next block first if it has already filled, and
// again afterward if this insert filled it (§4.5 "Insert (single)").
func (st *Store[T]) InsertOne(record *ids.RecordID, payload T) (handle.Handle[T], error) {
	var h handle.Handle[T]
	err := st.roster.WriteWith(func(s *rosterState[T]) error {
		blk, ok := s.blocks[s.curBlock]
		if !ok {
			return errBlockNotFound
		}

		full, err := blk.IsFull()
		if err != nil {
			return err
		}
		if full {
			if err := st.advanceLocked(s); err != nil {
				return err
			}
			blk = s.blocks[s.curBlock]
		}

		var ierr error
		h, ierr = blk.InsertOne(record, payload)
		if ierr != nil {
			return ierr
		}
		s.itemCount++

		full, err = blk.IsFull()
		if err != nil {
			return err
		}
		if full {
			if err := st.advanceLocked(s); err != nil {
				return err
			}
		}

		if err := st.recomputeGapCount(s); err != nil {
			return err
		}
		return st.persistMeta(*s)
	})
	return h, err
}

// Insert performs a stream insert against the store's current block,
// advancing across as many blocks as the sequence requires (§4.5
// "Insert (stream)"). A per-item TableMismatch/AlreadyExists error
// stops the loop and is returned inside the result, not as the call's
// own error; only a BlockNotFound/BlockCreationError/Unexpected
// failure short-circuits as a Go error.
func (st *Store[T]) Insert(items []block.StreamItem[T]) (block.StreamResult[T], error) {
	var final block.StreamResult[T]
	err := st.roster.WriteWith(func(s *rosterState[T]) error {
		remaining := items
		consumed := 0
		for {
			blk, ok := s.blocks[s.curBlock]
			if !ok {
				return errBlockNotFound
			}

			res, err := blk.InsertStream(remaining, consumed)
			if err != nil {
				return err
			}
			final.Handles = append(final.Handles, res.Handles...)
			s.itemCount += uint64(len(res.Handles))

			consumed += len(remaining) - len(res.Remainder)
			remaining = res.Remainder

			if len(res.Errors) > 0 {
				final.Errors = append(final.Errors, res.Errors...)
				final.Done = false
				break
			}
			if res.Done {
				final.Done = true
				break
			}

			// The block filled mid-stream but reported no errors: advance
			// and keep draining the remainder. This also covers a curBlock
			// that an earlier Insert left exactly full: its first item
			// reports BlockFull, nothing is inserted there, and the whole
			// remainder moves on to the next block.
			if err := st.advanceLocked(s); err != nil {
				return err
			}
		}

		if err := st.recomputeGapCount(s); err != nil {
			return err
		}
		return st.persistMeta(*s)
	})
	return final, err
}

// Table returns the table this store belongs to.
func (st *Store[T]) Table() ids.TableID { return st.table }

// ItemCount returns the total number of live slots across every block.
func (st *Store[T]) ItemCount() (uint64, error) {
	var n uint64
	err := st.roster.ReadWith(func(s rosterState[T]) error {
		n = s.itemCount
		return nil
	})
	return n, err
}

// BlockCount returns the number of blocks allocated so far.
func (st *Store[T]) BlockCount() (uint64, error) {
	var n uint64
	err := st.roster.ReadWith(func(s rosterState[T]) error {
		n = s.blockCount
		return nil
	})
	return n, err
}

// CurBlock returns the index new inserts currently land in.
func (st *Store[T]) CurBlock() (uint64, error) {
	var n uint64
	err := st.roster.ReadWith(func(s rosterState[T]) error {
		n = s.curBlock
		return nil
	})
	return n, err
}

// Block returns the block at index if it is currently resident (call
// Load first to guarantee residency for a given position range).
func (st *Store[T]) Block(index uint64) (*block.Block[T], bool, error) {
	var blk *block.Block[T]
	var ok bool
	err := st.roster.ReadWith(func(s rosterState[T]) error {
		blk, ok = s.blocks[index]
		return nil
	})
	return blk, ok, err
}

// Close flushes every resident block, persists the store meta record,
// and releases the backing file (if any). Safe to call once.
func (st *Store[T]) Close() error {
	return st.roster.WriteWith(func(s *rosterState[T]) error {
		if err := st.recomputeGapCount(s); err != nil {
			st.logger.Log(err)
		}
		if err := st.persistMeta(*s); err != nil {
			st.logger.Log(err)
		}
		for _, blk := range s.blocks {
			if err := blk.Close(); err != nil {
				st.logger.Log(err)
			}
		}
		if st.metaDev != nil {
			if err := st.metaDev.Sync(); err != nil {
				st.logger.Log(wrapUnexpected(err, "failed to flush store meta"))
			}
			if err := st.metaDev.Close(); err != nil {
				st.logger.Log(wrapUnexpected(err, "failed to unmap store meta"))
			}
		}
		if st.file != nil {
			if err := st.file.Close(); err != nil {
				return wrapUnexpected(err, fmt.Sprintf("failed to close store file %q", st.config.PersistencePath))
			}
		}
		return nil
	})
}
