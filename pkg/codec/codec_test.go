package codec_test

import (
	"testing"

	"github.com/HoodieCollin/dbexp-sub000/pkg/codec"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeUint16(t *testing.T) {
	enc := codec.NewEncoder(2)
	enc.WriteUint16(0xBEEF)

	dec := codec.NewDecoder(enc.Bytes())
	v, err := dec.ReadUint16()
	require.NoError(t, err)
	require.Equal(t, uint16(0xBEEF), v)
}

func TestEncodeDecodeUint32(t *testing.T) {
	enc := codec.NewEncoder(4)
	enc.WriteUint32(0xDEADBEEF)

	dec := codec.NewDecoder(enc.Bytes())
	v, err := dec.ReadUint32()
	require.NoError(t, err)
	require.Equal(t, uint32(0xDEADBEEF), v)
}

func TestEncodeDecodeUint64(t *testing.T) {
	enc := codec.NewEncoder(8)
	enc.WriteUint64(0x0123456789ABCDEF)

	dec := codec.NewDecoder(enc.Bytes())
	v, err := dec.ReadUint64()
	require.NoError(t, err)
	require.Equal(t, uint64(0x0123456789ABCDEF), v)
}

func TestEncodeDecodeSequenceIsOrderPreserving(t *testing.T) {
	enc := codec.NewEncoder(14)
	enc.WriteUint16(1)
	enc.WriteUint32(2)
	enc.WriteUint64(3)

	dec := codec.NewDecoder(enc.Bytes())
	a, err := dec.ReadUint16()
	require.NoError(t, err)
	b, err := dec.ReadUint32()
	require.NoError(t, err)
	c, err := dec.ReadUint64()
	require.NoError(t, err)

	require.Equal(t, uint16(1), a)
	require.Equal(t, uint32(2), b)
	require.Equal(t, uint64(3), c)
	require.Equal(t, 0, dec.Remaining())
}

func TestReadPastEndFails(t *testing.T) {
	dec := codec.NewDecoder([]byte{1, 2})
	_, err := dec.ReadUint32()
	require.Error(t, err)
}

func TestLengthPrefixedRoundTrip(t *testing.T) {
	enc := codec.NewEncoder(0)
	require.NoError(t, enc.WriteLengthPrefixed("hello", 16))

	dec := codec.NewDecoder(enc.Bytes())
	s, err := dec.ReadLengthPrefixed(16)
	require.NoError(t, err)
	require.Equal(t, "hello", s)
}

func TestLengthPrefixedEmptyString(t *testing.T) {
	enc := codec.NewEncoder(0)
	require.NoError(t, enc.WriteLengthPrefixed("", 8))

	dec := codec.NewDecoder(enc.Bytes())
	s, err := dec.ReadLengthPrefixed(8)
	require.NoError(t, err)
	require.Equal(t, "", s)
}

func TestLengthPrefixedRejectsOverLong(t *testing.T) {
	enc := codec.NewEncoder(0)
	err := enc.WriteLengthPrefixed("too long", 4)
	require.Error(t, err)
}

type fixedRecord struct {
	A uint64
	B uint32
}

func (fixedRecord) ByteSize() int { return 12 }

func (r fixedRecord) EncodeBytes(enc *codec.Encoder) error {
	enc.WriteUint64(r.A)
	enc.WriteUint32(r.B)
	return nil
}

func (r *fixedRecord) DecodeBytes(dec *codec.Decoder) error {
	a, err := dec.ReadUint64()
	if err != nil {
		return err
	}
	b, err := dec.ReadUint32()
	if err != nil {
		return err
	}
	r.A = a
	r.B = b
	return nil
}

func TestEncodeToBytesDecodeFromBytesRoundTrip(t *testing.T) {
	rec := fixedRecord{A: 7, B: 9}
	buf, err := codec.EncodeToBytes(rec)
	require.NoError(t, err)
	require.Len(t, buf, rec.ByteSize())

	var out fixedRecord
	require.NoError(t, codec.DecodeFromBytes(buf, &out))
	require.Equal(t, rec, out)
}
