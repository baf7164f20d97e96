package block

import (
	"github.com/HoodieCollin/dbexp-sub000/pkg/codec"
	"github.com/HoodieCollin/dbexp-sub000/pkg/idx"
	"github.com/HoodieCollin/dbexp-sub000/pkg/ids"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// DefaultCapacity is the slot count a Config uses when BlockCapacity is
// left at zero.
const DefaultCapacity = 128

// Config carries the immutable, per-block construction parameters that
// are also persisted as part of a block's on-disk meta record.
type Config struct {
	// BlockCapacity is the slot count. Constant for the block's
	// lifetime; zero is resolved to DefaultCapacity.
	BlockCapacity uint64
}

// WithDefaults returns a copy of c with zero fields resolved to their
// documented defaults.
func (c Config) WithDefaults() Config {
	if c.BlockCapacity == 0 {
		c.BlockCapacity = DefaultCapacity
	}
	return c
}

// ByteSize is always 8: a single non-zero uint64.
func (Config) ByteSize() int { return 8 }

// EncodeBytes writes BlockCapacity.
func (c Config) EncodeBytes(enc *codec.Encoder) error {
	enc.WriteUint64(c.BlockCapacity)
	return nil
}

// DecodeBytes reads BlockCapacity back.
func (c *Config) DecodeBytes(dec *codec.Decoder) error {
	v, err := dec.ReadUint64()
	if err != nil {
		return err
	}
	c.BlockCapacity = v
	return nil
}

// Meta is the fixed-size record persisted immediately before a block's
// slot array: the fields a reopened process needs to resume the gap
// chain and record map exactly where they left off, in the field order
// mandated for on-disk compatibility.
type Meta struct {
	Index     uint64
	Length    uint64
	GapTail   idx.ThinIdx
	GapCount  uint64
	NextBlock idx.ThinIdx
	Table     ids.TableID
	Config    Config
}

// ByteSize is the fixed 52-byte footprint of a block meta record:
// index(8) + length(8) + gapTail(8) + gapCount(8) + nextBlock(8) +
// table(4) + config.BlockCapacity(8).
func (m Meta) ByteSize() int {
	return 8 + 8 + 8 + 8 + 8 + m.Table.ByteSize() + m.Config.ByteSize()
}

// EncodeBytes writes every field in declaration order.
func (m Meta) EncodeBytes(enc *codec.Encoder) error {
	enc.WriteUint64(m.Index)
	enc.WriteUint64(m.Length)
	if err := m.GapTail.EncodeBytes(enc); err != nil {
		return err
	}
	enc.WriteUint64(m.GapCount)
	if err := m.NextBlock.EncodeBytes(enc); err != nil {
		return err
	}
	if err := m.Table.EncodeBytes(enc); err != nil {
		return err
	}
	return m.Config.EncodeBytes(enc)
}

// DecodeBytes reads every field back in the same order.
func (m *Meta) DecodeBytes(dec *codec.Decoder) error {
	index, err := dec.ReadUint64()
	if err != nil {
		return err
	}
	length, err := dec.ReadUint64()
	if err != nil {
		return err
	}
	var gapTail idx.ThinIdx
	if err := gapTail.DecodeBytes(dec); err != nil {
		return err
	}
	gapCount, err := dec.ReadUint64()
	if err != nil {
		return err
	}
	var nextBlock idx.ThinIdx
	if err := nextBlock.DecodeBytes(dec); err != nil {
		return err
	}
	var table ids.TableID
	if err := table.DecodeBytes(dec); err != nil {
		return err
	}
	var cfg Config
	if err := cfg.DecodeBytes(dec); err != nil {
		return err
	}
	m.Index = index
	m.Length = length
	m.GapTail = gapTail
	m.GapCount = gapCount
	m.NextBlock = nextBlock
	m.Table = table
	m.Config = cfg
	return nil
}

var (
	_ codec.Encodable = Config{}
	_ codec.Decodable = (*Config)(nil)
	_ codec.Encodable = Meta{}
	_ codec.Decodable = (*Meta)(nil)
)

// validateAgainst checks that a meta record read back from disk still
// describes the block the caller asked to open: its table and capacity
// must agree with what the caller (store, or a direct Block.New call)
// is expecting.
func (m Meta) validateAgainst(index uint64, table ids.TableID, config Config) error {
	if m.Index != index {
		return status.Errorf(codes.Internal, "block meta index %d does not match requested index %d", m.Index, index)
	}
	if !m.Table.Equal(table) {
		return status.Errorf(codes.Internal, "block meta table %d does not match requested table %d", m.Table.Raw(), table.Raw())
	}
	if m.Config.BlockCapacity != config.BlockCapacity {
		return status.Errorf(codes.Internal, "block meta capacity %d does not match requested capacity %d", m.Config.BlockCapacity, config.BlockCapacity)
	}
	return nil
}
