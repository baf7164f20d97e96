// Package block implements the fixed-capacity slot array that is the
// storage core's allocation unit: a block owns capacity slots, a LIFO
// chain of freed ("gap") slots for reuse, and a record-id-to-position
// map, all backed by a single memory mapping so that slot addresses
// stay stable for the block's lifetime. A store (pkg/store) chains
// many blocks together for one table; this package never imports it.
package block

import (
	"os"
	"strconv"
	"sync"
	"time"
	"unsafe"

	"github.com/HoodieCollin/dbexp-sub000/pkg/atomic"
	"github.com/HoodieCollin/dbexp-sub000/pkg/blockdevice"
	"github.com/HoodieCollin/dbexp-sub000/pkg/codec"
	"github.com/HoodieCollin/dbexp-sub000/pkg/handle"
	"github.com/HoodieCollin/dbexp-sub000/pkg/idx"
	"github.com/HoodieCollin/dbexp-sub000/pkg/ids"
	"github.com/HoodieCollin/dbexp-sub000/pkg/metrics"
	"github.com/HoodieCollin/dbexp-sub000/pkg/shared"
	"github.com/HoodieCollin/dbexp-sub000/pkg/slot"
	"github.com/HoodieCollin/dbexp-sub000/pkg/util"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// state is the mutable roster data guarded by a block's exclusive/
// shared lock: everything in §3's "Block" essential attributes besides
// the immutable index/capacity/table and the slot array itself.
type state struct {
	length    uint64
	gapTail   idx.ThinIdx
	gapCount  uint64
	nextBlock idx.ThinIdx
	recordMap map[ids.ThinRecordID]uint64
}

// Block is a fixed-capacity array of slots holding payloads of type T,
// plus the metadata described in §3. Construct one with NewAnon (not
// persisted) or New (file-backed).
type Block[T any] struct {
	index       uint64
	table       ids.TableID
	capacity    uint64
	payloadSize int
	slotSize    int
	metaSize    int

	dev  blockdevice.ByteMappedBlockDevice
	base unsafe.Pointer

	persisted bool
	roster    *shared.Object[state]
	slotLocks []sync.RWMutex

	// accessCount is a lock-free running total of ReadSlot/WriteSlot
	// calls, for cheap introspection (e.g. "is this block hot") without
	// adding contention to the per-slot locks or going through a
	// Prometheus CounterVec label lookup on every single access.
	accessCount atomic.Uint64

	logger util.ErrorLogger
}

func payloadSizeOf[T any]() int {
	var zero T
	return int(unsafe.Sizeof(zero))
}

// SlotSize returns the total byte footprint of one T slot, header
// included. Exposed so a store can size its file layout without
// constructing a block first.
func SlotSize[T any]() int {
	return slot.ByteSize(payloadSizeOf[T]())
}

// MetaSize returns the fixed byte footprint of a block's persisted
// meta record. Constant across every T, since Meta.ByteSize never
// depends on field values.
func MetaSize() int {
	return (Meta{}).ByteSize()
}

func freshState() state {
	return state{
		gapTail:   idx.NilThinIdx,
		nextBlock: idx.NilThinIdx,
		recordMap: make(map[ids.ThinRecordID]uint64),
	}
}

// NewAnon creates a block backed by a private, anonymous mapping: slot
// bytes live only in process memory, nothing is persisted.
func NewAnon[T any](index uint64, table ids.TableID, config Config) (*Block[T], error) {
	config = config.WithDefaults()
	payloadSize := payloadSizeOf[T]()
	if err := slot.CheckPayloadSize(payloadSize); err != nil {
		return nil, err
	}
	slotSize := slot.ByteSize(payloadSize)
	dev, err := blockdevice.NewAnonymousBlockDevice(int(config.BlockCapacity) * slotSize)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to create anonymous block mapping: %s", err)
	}

	b := &Block[T]{
		index:       index,
		table:       table,
		capacity:    config.BlockCapacity,
		payloadSize: payloadSize,
		slotSize:    slotSize,
		dev:         dev,
		base:        unsafe.Pointer(&dev.Bytes()[0]),
		persisted:   false,
		roster:      shared.New(freshState()),
		slotLocks:   make([]sync.RWMutex, config.BlockCapacity),
		logger:      util.DefaultErrorLogger,
	}
	return b, nil
}

// New creates (or reopens) a file-backed block: the region
// [offset, offset+metaSize+capacity*slotSize) of file is mapped
// read-write. If that region is unwritten (a fresh block), a zeroed
// meta record is written and committed before returning; if it already
// holds a meta record, it is validated against index/table/config and
// the block's in-memory record map is rebuilt by scanning every live
// slot, since the map itself is never persisted: it is a convenience
// index over what the slots already encode.
func New[T any](index uint64, table ids.TableID, file *os.File, offset int64, config Config, logger util.ErrorLogger) (*Block[T], error) {
	config = config.WithDefaults()
	payloadSize := payloadSizeOf[T]()
	if err := slot.CheckPayloadSize(payloadSize); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = util.DefaultErrorLogger
	}

	slotSize := slot.ByteSize(payloadSize)
	metaSize := (Meta{Table: table, Config: config}).ByteSize()
	regionSize := metaSize + int(config.BlockCapacity)*slotSize

	dev, err := blockdevice.NewBlockDeviceFromFileRegion(file, offset, regionSize)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to map block %d region: %s", index, err)
	}

	b := &Block[T]{
		index:       index,
		table:       table,
		capacity:    config.BlockCapacity,
		payloadSize: payloadSize,
		slotSize:    slotSize,
		metaSize:    metaSize,
		dev:         dev,
		base:        unsafe.Add(unsafe.Pointer(&dev.Bytes()[0]), metaSize),
		persisted:   true,
		slotLocks:   make([]sync.RWMutex, config.BlockCapacity),
		logger:      logger,
	}

	metaBytes := dev.Bytes()[:metaSize]
	if isZero(metaBytes) {
		fresh := freshState()
		b.roster = shared.New(fresh)
		if err := b.writeMeta(fresh); err != nil {
			dev.Close()
			return nil, err
		}
		return b, nil
	}

	var meta Meta
	if err := codec.DecodeFromBytes(metaBytes, &meta); err != nil {
		dev.Close()
		return nil, status.Errorf(codes.Internal, "failed to decode block %d meta: %s", index, err)
	}
	if err := meta.validateAgainst(index, table, config); err != nil {
		dev.Close()
		return nil, err
	}

	s := state{
		length:    meta.Length,
		gapTail:   meta.GapTail,
		gapCount:  meta.GapCount,
		nextBlock: meta.NextBlock,
		recordMap: make(map[ids.ThinRecordID]uint64),
	}
	b.roster = shared.New(s)
	if err := b.rebuildRecordMap(); err != nil {
		dev.Close()
		return nil, err
	}
	return b, nil
}

func isZero(p []byte) bool {
	for _, c := range p {
		if c != 0 {
			return false
		}
	}
	return true
}

func (b *Block[T]) slotAt(position uint64) slot.Ref[T] {
	return slot.At[T](b.base, uintptr(position)*uintptr(b.slotSize))
}

// rebuildRecordMap walks every slot up to length and reinstates the
// record map after a reopen; the map itself is never written to disk.
func (b *Block[T]) rebuildRecordMap() error {
	return b.roster.WriteWith(func(s *state) error {
		for pos := uint64(0); pos < s.length; pos++ {
			ref := b.slotAt(pos)
			if ref.IsGap() {
				continue
			}
			record := ref.Record()
			if !record.IsNil() {
				s.recordMap[record] = pos
			}
		}
		return nil
	})
}

func (b *Block[T]) writeMeta(s state) error {
	if !b.persisted {
		return nil
	}
	m := Meta{
		Index:     b.index,
		Length:    s.length,
		GapTail:   s.gapTail,
		GapCount:  s.gapCount,
		NextBlock: s.nextBlock,
		Table:     b.table,
		Config:    Config{BlockCapacity: b.capacity},
	}
	buf, err := codec.EncodeToBytes(m)
	if err != nil {
		return status.Errorf(codes.Internal, "failed to encode block %d meta: %s", b.index, err)
	}
	copy(b.dev.Bytes()[:b.metaSize], buf)
	return nil
}

// Index returns the block's fixed position within its owning store.
func (b *Block[T]) Index() uint64 { return b.index }

// Table returns the table this block belongs to.
func (b *Block[T]) Table() ids.TableID { return b.table }

// Capacity returns the block's fixed slot count.
func (b *Block[T]) Capacity() uint64 { return b.capacity }

// Len returns the number of currently-live slots.
func (b *Block[T]) Len() (uint64, error) {
	var n uint64
	err := b.roster.ReadWith(func(s state) error {
		n = s.length - s.gapCount
		return nil
	})
	return n, err
}

// GapCount returns the number of slots currently on the gap chain.
func (b *Block[T]) GapCount() (uint64, error) {
	var n uint64
	err := b.roster.ReadWith(func(s state) error {
		n = s.gapCount
		return nil
	})
	return n, err
}

// IsFull reports whether the block can accept no further insert
// without a prior remove: every slot up to capacity is live and no gap
// is available for reuse.
func (b *Block[T]) IsFull() (bool, error) {
	var full bool
	err := b.roster.ReadWith(func(s state) error {
		full = s.gapCount == 0 && s.length >= b.capacity
		return nil
	})
	return full, err
}

// NextBlock returns the pre-linked next block index, if any.
func (b *Block[T]) NextBlock() (uint64, bool, error) {
	var pos uint64
	var ok bool
	err := b.roster.ReadWith(func(s state) error {
		if !s.nextBlock.IsNil() {
			pos, ok = s.nextBlock.Position(), true
		}
		return nil
	})
	return pos, ok, err
}

// ConsumeNextBlock atomically reads and clears the pre-linked next
// block index, the mechanism a store's advance-to-next-block step
// checks before allocating a brand new block (§4.5).
func (b *Block[T]) ConsumeNextBlock() (uint64, bool, error) {
	var pos uint64
	var ok bool
	err := b.roster.WriteWith(func(s *state) error {
		if !s.nextBlock.IsNil() {
			pos, ok = s.nextBlock.Position(), true
			s.nextBlock = idx.NilThinIdx
			return b.writeMeta(*s)
		}
		return nil
	})
	return pos, ok, err
}

// SetNextBlock links this block forward to blockIndex, letting a later
// advance-to-next-block step skip allocating a new one. Not produced by
// any operation in this package itself; exists so a higher-level
// pre-allocation strategy (or the on-disk format round-trip) has
// somewhere to put it.
func (b *Block[T]) SetNextBlock(blockIndex uint64) error {
	return b.roster.WriteWith(func(s *state) error {
		s.nextBlock = idx.NewThinIdx(blockIndex)
		return b.writeMeta(*s)
	})
}

// insertLocked performs the single-insert algorithm of §4.4 against an
// already-locked roster. Both InsertOne and InsertStream funnel through
// this so a stream can hold the exclusive lock across many items.
func (b *Block[T]) insertLocked(s *state, record *ids.RecordID, payload T) (idx.Idx, error) {
	var thin ids.ThinRecordID
	hasRecord := record != nil
	if hasRecord {
		if !record.Table.Equal(b.table) {
			return idx.Idx{}, errTableMismatch
		}
		thin = record.Thin
		if _, exists := s.recordMap[thin]; exists {
			return idx.Idx{}, errAlreadyExists
		}
	}

	var target uint64
	reused := s.gapCount > 0
	var stagedGapTail idx.ThinIdx
	if reused {
		target = s.gapTail.Position()
		stagedGapTail = b.slotAt(target).PreviousGap()
	} else {
		if s.length >= b.capacity {
			return idx.Idx{}, errFull
		}
		target = s.length
		// Establish the canonical "empty" state before filling it, so
		// FillGap's precondition (slot is a gap) holds uniformly
		// whether target came from reuse or append.
		b.slotAt(target).MakeGap(idx.NilThinIdx)
	}

	fat := idx.New(target)
	b.slotAt(target).FillGap(thin, fat, payload)

	if hasRecord {
		s.recordMap[thin] = target
	}
	if !reused {
		s.length++
	} else {
		s.gapCount--
		s.gapTail = stagedGapTail
	}

	metrics.GapReuse.WithLabelValues(tableLabel(b.table), reuseLabel(reused)).Inc()
	return fat, nil
}

// tableLabel buckets a table's raw ID into a fixed number of
// Prometheus label values. Table IDs are minted from a full 32-bit
// random range (see pkg/ids.NewTableID), so using them directly as a
// label would give every table its own metrics series; bucketing
// bounds the series count regardless of how many tables exist.
func tableLabel(t ids.TableID) string {
	const buckets = 64
	return strconv.FormatUint(uint64(t.Raw())%buckets, 10)
}

func reuseLabel(reused bool) string {
	if reused {
		return "true"
	}
	return "false"
}

// InsertOne performs a single slot insert (§4.4). record may be nil
// (no record attached to this slot).
func (b *Block[T]) InsertOne(record *ids.RecordID, payload T) (handle.Handle[T], error) {
	var h handle.Handle[T]
	err := b.roster.WriteWith(func(s *state) error {
		fat, err := b.insertLocked(s, record, payload)
		if err != nil {
			metrics.Inserts.WithLabelValues(tableLabel(b.table), outcomeLabel(err)).Inc()
			return err
		}
		if err := b.writeMeta(*s); err != nil {
			return err
		}
		h = handle.New[T](b, fat)
		metrics.Inserts.WithLabelValues(tableLabel(b.table), string(metrics.InsertOutcomeOK)).Inc()
		return nil
	})
	return h, err
}

func outcomeLabel(err error) string {
	switch {
	case IsTableMismatch(err):
		return string(metrics.InsertOutcomeTableMismatch)
	case IsAlreadyExists(err):
		return string(metrics.InsertOutcomeAlreadyExists)
	case IsFull(err):
		return string(metrics.InsertOutcomeBlockFull)
	default:
		return "error"
	}
}

// StreamItem is one (record?, payload) pair supplied to InsertStream.
type StreamItem[T any] struct {
	Record  *ids.RecordID
	Payload T
}

// IndexedHandle pairs a successful insert's handle with its position in
// the caller's stream.
type IndexedHandle[T any] struct {
	Index  int
	Handle handle.Handle[T]
}

// IndexedError pairs a per-item insert failure with its stream
// position.
type IndexedError struct {
	Index int
	Err   error
}

// StreamResult is the outcome of InsertStream: either Done (the whole
// sequence was consumed with no per-item errors) or a Partial-shaped
// result carrying Handles, Errors, and, if the block filled before the
// sequence exhausted, the unconsumed Remainder.
type StreamResult[T any] struct {
	Handles   []IndexedHandle[T]
	Errors    []IndexedError
	Remainder []StreamItem[T]
	Done      bool
}

// InsertStream performs the stream-insert algorithm of §4.4, tagging
// each outcome with indexOffset+i so partial results can be stitched
// into a larger caller-driven loop (see pkg/store's Insert).
func (b *Block[T]) InsertStream(items []StreamItem[T], indexOffset int) (StreamResult[T], error) {
	if len(items) == 0 {
		return StreamResult[T]{Done: true}, nil
	}

	var result StreamResult[T]
	err := b.roster.WriteWith(func(s *state) error {
		for i, item := range items {
			fat, ierr := b.insertLocked(s, item.Record, item.Payload)
			if ierr != nil {
				metrics.Inserts.WithLabelValues(tableLabel(b.table), outcomeLabel(ierr)).Inc()
				if IsFull(ierr) {
					result.Remainder = items[i:]
					return b.writeMeta(*s)
				}
				result.Errors = append(result.Errors, IndexedError{Index: indexOffset + i, Err: ierr})
				continue
			}
			metrics.Inserts.WithLabelValues(tableLabel(b.table), string(metrics.InsertOutcomeOK)).Inc()
			result.Handles = append(result.Handles, IndexedHandle[T]{
				Index:  indexOffset + i,
				Handle: handle.New[T](b, fat),
			})
		}
		result.Done = len(result.Errors) == 0
		return b.writeMeta(*s)
	})
	return result, err
}

// AccessCount returns the running total of ReadSlot/WriteSlot calls
// against this block, including calls that failed their generation
// check. Updated without taking any lock.
func (b *Block[T]) AccessCount() uint64 {
	return b.accessCount.Load()
}

// ReadSlot implements handle.Block: a shared roster lock plus a shared
// per-slot lock, validated against gen.
func (b *Block[T]) ReadSlot(position uint64, gen uint16, f func(T) error) error {
	b.accessCount.Add(1)
	start := time.Now()
	defer func() {
		metrics.SlotAccessDuration.WithLabelValues(tableLabel(b.table), "read").Observe(time.Since(start).Seconds())
	}()
	return b.roster.ReadWith(func(s state) error {
		lock := &b.slotLocks[position]
		lock.RLock()
		defer lock.RUnlock()

		ref := b.slotAt(position)
		if ref.Gen() != gen {
			metrics.StaleHandles.WithLabelValues(tableLabel(b.table)).Inc()
			return handle.StaleHandleError()
		}
		return f(*ref.ReadPayload())
	})
}

// WriteSlot implements handle.Block: a shared roster lock plus an
// exclusive per-slot lock, validated against gen.
func (b *Block[T]) WriteSlot(position uint64, gen uint16, f func(*T) error) error {
	b.accessCount.Add(1)
	start := time.Now()
	defer func() {
		metrics.SlotAccessDuration.WithLabelValues(tableLabel(b.table), "write").Observe(time.Since(start).Seconds())
	}()
	return b.roster.ReadWith(func(s state) error {
		lock := &b.slotLocks[position]
		lock.Lock()
		defer lock.Unlock()

		ref := b.slotAt(position)
		if ref.Gen() != gen {
			metrics.StaleHandles.WithLabelValues(tableLabel(b.table)).Inc()
			return handle.StaleHandleError()
		}
		return f(ref.ReadPayload())
	})
}

// RemoveSlot implements handle.Block: it takes the roster lock
// exclusively and then the slot's own lock exclusively, in the
// block-then-slot order of §5. It is reached from the handle directly,
// never through the store.
func (b *Block[T]) RemoveSlot(position uint64, gen uint16) (ids.ThinRecordID, T, error) {
	var zero T
	var record ids.ThinRecordID
	var payload T
	err := b.roster.WriteWith(func(s *state) error {
		lock := &b.slotLocks[position]
		lock.Lock()
		defer lock.Unlock()

		ref := b.slotAt(position)
		if ref.Gen() != gen {
			metrics.StaleHandles.WithLabelValues(tableLabel(b.table)).Inc()
			return handle.StaleHandleError()
		}
		record = ref.Record()
		payload = ref.TakePayload()
		if !record.IsNil() {
			delete(s.recordMap, record)
		}
		ref.MakeGap(s.gapTail)
		s.gapTail = idx.NewThinIdx(position)
		s.gapCount++
		return b.writeMeta(*s)
	})
	if err != nil {
		return ids.NilThinRecordID, zero, err
	}
	return record, payload, nil
}

// EachLive invokes f for every currently-live slot, in position order.
// Not part of the original operation set, but required to read a
// reopened block's contents back without original handles (see
// pkg/store's reopen path and its tests).
func (b *Block[T]) EachLive(f func(position uint64, record ids.ThinRecordID, payload T) error) error {
	return b.roster.ReadWith(func(s state) error {
		for pos := uint64(0); pos < s.length; pos++ {
			ref := b.slotAt(pos)
			if ref.IsGap() {
				continue
			}
			if err := f(pos, ref.Record(), *ref.ReadPayload()); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close flushes the block's meta record, syncs the mapping, and
// releases it. Safe to call once; a second call unmaps already-unmapped
// memory and is a caller bug.
func (b *Block[T]) Close() error {
	err := b.roster.ReadWith(func(s state) error {
		return b.writeMeta(s)
	})
	if err != nil {
		b.logger.Log(err)
	}
	if syncErr := b.dev.Sync(); syncErr != nil {
		b.logger.Log(status.Errorf(codes.Internal, "failed to flush block %d: %s", b.index, syncErr))
	}
	return b.dev.Close()
}

var _ handle.Block[int] = (*Block[int])(nil)
