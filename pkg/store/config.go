package store

import (
	"github.com/HoodieCollin/dbexp-sub000/pkg/block"
	"github.com/HoodieCollin/dbexp-sub000/pkg/codec"
	"github.com/HoodieCollin/dbexp-sub000/pkg/ids"
)

// maxPersistencePathLen bounds the length-prefixed persistence path
// field of the store meta record.
const maxPersistencePathLen = 4096

// DefaultInitialBlockCount is the block count a Config uses when
// InitialBlockCount is left at zero.
const DefaultInitialBlockCount = 1

// Config carries the immutable, per-store construction parameters
// that are also persisted as part of a store's on-disk meta record.
type Config struct {
	// InitialBlockCount is how many blocks to allocate up front when
	// creating a brand new store. Zero resolves to
	// DefaultInitialBlockCount.
	InitialBlockCount uint64
	// BlockCapacity is the slot count of every block in the store.
	// Zero resolves to block.DefaultCapacity.
	BlockCapacity uint64
	// PersistencePath is the backing file path. Empty means the store
	// is in-memory only (every block is anonymous).
	PersistencePath string
}

// WithDefaults returns a copy of c with zero fields resolved to their
// documented defaults.
func (c Config) WithDefaults() Config {
	if c.InitialBlockCount == 0 {
		c.InitialBlockCount = DefaultInitialBlockCount
	}
	if c.BlockCapacity == 0 {
		c.BlockCapacity = block.DefaultCapacity
	}
	return c
}

func (c Config) blockConfig() block.Config {
	return block.Config{BlockCapacity: c.BlockCapacity}
}

// ByteSize is the fixed footprint of a Config record: initialBlockCount
// (8) + blockCapacity (8) + a length-prefixed persistence path capped
// at maxPersistencePathLen.
func (Config) ByteSize() int {
	return 8 + 8 + 4 + maxPersistencePathLen
}

// EncodeBytes writes every field in declaration order.
func (c Config) EncodeBytes(enc *codec.Encoder) error {
	enc.WriteUint64(c.InitialBlockCount)
	enc.WriteUint64(c.BlockCapacity)
	return enc.WriteLengthPrefixed(c.PersistencePath, maxPersistencePathLen)
}

// DecodeBytes reads every field back in the same order.
func (c *Config) DecodeBytes(dec *codec.Decoder) error {
	initial, err := dec.ReadUint64()
	if err != nil {
		return err
	}
	capacity, err := dec.ReadUint64()
	if err != nil {
		return err
	}
	path, err := dec.ReadLengthPrefixed(maxPersistencePathLen)
	if err != nil {
		return err
	}
	c.InitialBlockCount = initial
	c.BlockCapacity = capacity
	c.PersistencePath = path
	return nil
}

// Meta is the fixed-size record persisted at offset 0 of a store's
// backing file: the roster-level bookkeeping a reopened process needs
// to resume exactly where it left off.
type Meta struct {
	Table      ids.TableID
	BlockCount uint64
	ItemCount  uint64
	GapCount   uint64
	CurBlock   uint64
	Config     Config
}

// ByteSize is table(4) + blockCount(8) + itemCount(8) + gapCount(8) +
// curBlock(8) + config.
func (m Meta) ByteSize() int {
	return m.Table.ByteSize() + 8 + 8 + 8 + 8 + m.Config.ByteSize()
}

// EncodeBytes writes every field in declaration order.
func (m Meta) EncodeBytes(enc *codec.Encoder) error {
	if err := m.Table.EncodeBytes(enc); err != nil {
		return err
	}
	enc.WriteUint64(m.BlockCount)
	enc.WriteUint64(m.ItemCount)
	enc.WriteUint64(m.GapCount)
	enc.WriteUint64(m.CurBlock)
	return m.Config.EncodeBytes(enc)
}

// DecodeBytes reads every field back in the same order.
func (m *Meta) DecodeBytes(dec *codec.Decoder) error {
	var table ids.TableID
	if err := table.DecodeBytes(dec); err != nil {
		return err
	}
	blockCount, err := dec.ReadUint64()
	if err != nil {
		return err
	}
	itemCount, err := dec.ReadUint64()
	if err != nil {
		return err
	}
	gapCount, err := dec.ReadUint64()
	if err != nil {
		return err
	}
	curBlock, err := dec.ReadUint64()
	if err != nil {
		return err
	}
	var cfg Config
	if err := cfg.DecodeBytes(dec); err != nil {
		return err
	}
	m.Table = table
	m.BlockCount = blockCount
	m.ItemCount = itemCount
	m.GapCount = gapCount
	m.CurBlock = curBlock
	m.Config = cfg
	return nil
}

var (
	_ codec.Encodable = Config{}
	_ codec.Decodable = (*Config)(nil)
	_ codec.Encodable = Meta{}
	_ codec.Decodable = (*Meta)(nil)
)
