// Package codec implements the fixed-size, host-endian byte encoding
// used for everything that crosses the process/file boundary: store
// meta, block meta, and the slot header fields. All multi-byte integers
// are written little-endian, matching the amd64/arm64 targets this
// engine runs on; Go has no portable "native endian" primitive, so the
// choice is pinned explicitly here rather than left to chance.
package codec

import (
	"encoding/binary"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Encodable is implemented by any type with a fixed-size byte
// representation. ByteSize must return a constant value for a given
// type (it may depend on configuration captured by the receiver, e.g.
// a maximum path length, but never on payload contents).
type Encodable interface {
	EncodeBytes(enc *Encoder) error
	ByteSize() int
}

// Decodable is implemented by any type that can be reconstructed from
// the byte representation written by the matching Encodable.
type Decodable interface {
	DecodeBytes(dec *Decoder) error
}

// Encoder accumulates a fixed-size byte representation into a
// preallocated buffer.
type Encoder struct {
	buf []byte
}

// NewEncoder returns an Encoder that writes into a freshly allocated
// buffer of the given size.
func NewEncoder(size int) *Encoder {
	return &Encoder{buf: make([]byte, 0, size)}
}

// Bytes returns the bytes written so far.
func (e *Encoder) Bytes() []byte {
	return e.buf
}

// WriteBytes appends raw bytes verbatim.
func (e *Encoder) WriteBytes(p []byte) {
	e.buf = append(e.buf, p...)
}

// WriteUint16 appends a little-endian uint16.
func (e *Encoder) WriteUint16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	e.buf = append(e.buf, b[:]...)
}

// WriteUint32 appends a little-endian uint32.
func (e *Encoder) WriteUint32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	e.buf = append(e.buf, b[:]...)
}

// WriteUint64 appends a little-endian uint64.
func (e *Encoder) WriteUint64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	e.buf = append(e.buf, b[:]...)
}

// WriteLengthPrefixed appends a uint32 length prefix followed by s,
// zero-padded so that s and its padding take exactly maxLen bytes: the
// field is always 4+maxLen bytes long, and maxLen bounds len(s) alone.
func (e *Encoder) WriteLengthPrefixed(s string, maxLen int) error {
	if len(s) > maxLen {
		return status.Errorf(codes.InvalidArgument, "value of %d bytes exceeds maximum of %d bytes", len(s), maxLen)
	}
	e.WriteUint32(uint32(len(s)))
	e.buf = append(e.buf, s...)
	padding := maxLen - len(s)
	for i := 0; i < padding; i++ {
		e.buf = append(e.buf, 0)
	}
	return nil
}

// Decoder reads back the fixed-size representation written by Encoder.
type Decoder struct {
	buf []byte
	off int
}

// NewDecoder wraps buf for sequential field decoding.
func NewDecoder(buf []byte) *Decoder {
	return &Decoder{buf: buf}
}

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int {
	return len(d.buf) - d.off
}

func (d *Decoder) take(n int) ([]byte, error) {
	if d.Remaining() < n {
		return nil, status.Errorf(codes.Internal, "short buffer: need %d bytes, have %d", n, d.Remaining())
	}
	b := d.buf[d.off : d.off+n]
	d.off += n
	return b, nil
}

// ReadBytes reads n raw bytes.
func (d *Decoder) ReadBytes(n int) ([]byte, error) {
	return d.take(n)
}

// ReadUint16 reads a little-endian uint16.
func (d *Decoder) ReadUint16() (uint16, error) {
	b, err := d.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// ReadUint32 reads a little-endian uint32.
func (d *Decoder) ReadUint32() (uint32, error) {
	b, err := d.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadUint64 reads a little-endian uint64.
func (d *Decoder) ReadUint64() (uint64, error) {
	b, err := d.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// ReadLengthPrefixed reads back a string written by
// Encoder.WriteLengthPrefixed.
func (d *Decoder) ReadLengthPrefixed(maxLen int) (string, error) {
	n, err := d.ReadUint32()
	if err != nil {
		return "", err
	}
	if int(n) > maxLen {
		return "", status.Errorf(codes.Internal, "length-prefixed value of %d bytes exceeds maximum of %d bytes", n, maxLen)
	}
	body, err := d.take(maxLen)
	if err != nil {
		return "", err
	}
	return string(body[:n]), nil
}

// EncodeToBytes is a convenience wrapper that allocates an Encoder
// sized to v.ByteSize(), invokes v.EncodeBytes, and returns the result.
func EncodeToBytes(v Encodable) ([]byte, error) {
	enc := NewEncoder(v.ByteSize())
	if err := v.EncodeBytes(enc); err != nil {
		return nil, err
	}
	return enc.Bytes(), nil
}

// DecodeFromBytes is a convenience wrapper that decodes v's fields from
// buf using a fresh Decoder.
func DecodeFromBytes(buf []byte, v Decodable) error {
	return v.DecodeBytes(NewDecoder(buf))
}
