/*
Package accesstoken implements the version "007" Agora access token (AccessToken2).

This file contains the packing layer: little-endian encoding of uint16, uint32,
length-prefixed byte strings and uint16 -> uint32 maps, plus the matching
decoder that walks a shared read cursor over the buffer.
*/
package accesstoken

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"slices"
)

var (
	// ErrOutOfRange is returned when a value does not fit its field width.
	ErrOutOfRange = errors.New("accesstoken: value out of range")

	// ErrTruncated is returned when decoding reads past the end of the buffer.
	ErrTruncated = errors.New("accesstoken: buffer truncated")
)

// MaxStringLength is the longest byte string a uint16 length prefix can describe.
const MaxStringLength = math.MaxUint16

// Packer accumulates packed fields into a byte slice.
// The first failure is kept and every later call becomes a no-op, so callers
// check Err (or Bytes) once after writing a whole structure.
type Packer struct {
	buf []byte
	err error
}

// NewPacker returns an empty Packer.
func NewPacker() *Packer {
	return &Packer{buf: make([]byte, 0, 128)}
}

// PutUint16 appends n as two little-endian bytes. Negative values and values
// of 2^16 or more fail with ErrOutOfRange.
func (p *Packer) PutUint16(n int64) *Packer {
	if p.err != nil {
		return p
	}
	if n < 0 || n > math.MaxUint16 {
		p.err = fmt.Errorf("%w: %d does not fit uint16", ErrOutOfRange, n)
		return p
	}
	p.buf = binary.LittleEndian.AppendUint16(p.buf, uint16(n))
	return p
}

// PutUint32 appends n as four little-endian bytes. Negative values and values
// of 2^32 or more fail with ErrOutOfRange.
func (p *Packer) PutUint32(n int64) *Packer {
	if p.err != nil {
		return p
	}
	if n < 0 || n > math.MaxUint32 {
		p.err = fmt.Errorf("%w: %d does not fit uint32", ErrOutOfRange, n)
		return p
	}
	p.buf = binary.LittleEndian.AppendUint32(p.buf, uint32(n))
	return p
}

// PutBytes appends a uint16 length prefix followed by b.
func (p *Packer) PutBytes(b []byte) *Packer {
	if p.err != nil {
		return p
	}
	if len(b) > MaxStringLength {
		p.err = fmt.Errorf("%w: %d bytes exceed the %d byte string limit", ErrOutOfRange, len(b), MaxStringLength)
		return p
	}
	p.PutUint16(int64(len(b)))
	p.buf = append(p.buf, b...)
	return p
}

// PutString appends s as a length-prefixed UTF-8 byte string.
func (p *Packer) PutString(s string) *Packer {
	return p.PutBytes([]byte(s))
}

// PutMapUint32 appends a uint16 entry count followed by each key/value pair
// in ascending key order.
func (p *Packer) PutMapUint32(m map[uint16]uint32) *Packer {
	if p.err != nil {
		return p
	}
	if len(m) > math.MaxUint16 {
		p.err = fmt.Errorf("%w: map with %d entries", ErrOutOfRange, len(m))
		return p
	}

	keys := make([]uint16, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	p.PutUint16(int64(len(keys)))
	for _, k := range keys {
		p.PutUint16(int64(k))
		p.PutUint32(int64(m[k]))
	}
	return p
}

// putRaw appends b without a length prefix.
func (p *Packer) putRaw(b []byte) *Packer {
	if p.err != nil {
		return p
	}
	p.buf = append(p.buf, b...)
	return p
}

// Err reports the first failure encountered, if any.
func (p *Packer) Err() error {
	return p.err
}

// Bytes returns the packed buffer, or the first failure encountered.
func (p *Packer) Bytes() ([]byte, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.buf, nil
}

// Unpacker reads packed fields from a buffer, advancing a cursor.
// Like Packer it keeps the first failure; reads after a failure return zero values.
type Unpacker struct {
	buf []byte
	off int
	err error
}

// NewUnpacker returns an Unpacker positioned at the start of b.
func NewUnpacker(b []byte) *Unpacker {
	return &Unpacker{buf: b}
}

func (u *Unpacker) take(n int, field string) []byte {
	if u.err != nil {
		return nil
	}
	if n > len(u.buf)-u.off {
		u.err = fmt.Errorf("%w: reading %s needs %d bytes at offset %d, %d left",
			ErrTruncated, field, n, u.off, len(u.buf)-u.off)
		return nil
	}
	b := u.buf[u.off : u.off+n]
	u.off += n
	return b
}

// ReadUint16 reads two little-endian bytes.
func (u *Unpacker) ReadUint16() uint16 {
	b := u.take(2, "uint16")
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

// ReadUint32 reads four little-endian bytes.
func (u *Unpacker) ReadUint32() uint32 {
	b := u.take(4, "uint32")
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

// ReadBytes reads a length-prefixed byte string. The result is a copy.
func (u *Unpacker) ReadBytes() []byte {
	n := u.ReadUint16()
	b := u.take(int(n), "string body")
	if b == nil {
		return nil
	}
	return slices.Clone(b)
}

// ReadString reads a length-prefixed byte string as a Go string.
func (u *Unpacker) ReadString() string {
	return string(u.ReadBytes())
}

// ReadMapUint32 reads a uint16 count followed by that many key/value pairs.
func (u *Unpacker) ReadMapUint32() map[uint16]uint32 {
	n := u.ReadUint16()
	if u.err != nil {
		return nil
	}

	m := make(map[uint16]uint32, n)
	for i := uint16(0); i < n; i++ {
		k := u.ReadUint16()
		v := u.ReadUint32()
		if u.err != nil {
			return nil
		}
		m[k] = v
	}
	return m
}

// Remaining returns the number of unread bytes.
func (u *Unpacker) Remaining() int {
	return len(u.buf) - u.off
}

// Err reports the first failure encountered, if any.
func (u *Unpacker) Err() error {
	return u.err
}
