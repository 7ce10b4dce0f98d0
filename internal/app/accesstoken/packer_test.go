package accesstoken

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackerUint16(t *testing.T) {
	tests := []struct {
		name    string
		in      int64
		want    []byte
		wantErr bool
	}{
		{name: "zero", in: 0, want: []byte{0x00, 0x00}},
		{name: "little endian", in: 0x0102, want: []byte{0x02, 0x01}},
		{name: "max", in: math.MaxUint16, want: []byte{0xff, 0xff}},
		{name: "overflow", in: math.MaxUint16 + 1, wantErr: true},
		{name: "negative", in: -1, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewPacker().PutUint16(tt.in).Bytes()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrOutOfRange)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPackerUint32(t *testing.T) {
	tests := []struct {
		name    string
		in      int64
		want    []byte
		wantErr bool
	}{
		{name: "zero", in: 0, want: []byte{0, 0, 0, 0}},
		{name: "little endian", in: 0x01020304, want: []byte{0x04, 0x03, 0x02, 0x01}},
		{name: "max", in: math.MaxUint32, want: []byte{0xff, 0xff, 0xff, 0xff}},
		{name: "overflow", in: math.MaxUint32 + 1, wantErr: true},
		{name: "negative", in: -1, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewPacker().PutUint32(tt.in).Bytes()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrOutOfRange)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPackerStringRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{name: "empty", in: ""},
		{name: "one byte", in: "x"},
		{name: "utf8", in: "直播间"},
		{name: "max length", in: strings.Repeat("m", MaxStringLength)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := NewPacker().PutString(tt.in).Bytes()
			require.NoError(t, err)
			assert.Len(t, b, 2+len(tt.in))

			u := NewUnpacker(b)
			assert.Equal(t, tt.in, u.ReadString())
			require.NoError(t, u.Err())
			assert.Zero(t, u.Remaining())
		})
	}
}

func TestPackerStringTooLong(t *testing.T) {
	_, err := NewPacker().PutString(strings.Repeat("m", MaxStringLength+1)).Bytes()
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestPackerFirstErrorSticks(t *testing.T) {
	p := NewPacker().PutUint16(-5).PutUint32(7).PutString("ok")
	_, err := p.Bytes()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "-5")
}

func TestPackerMapUint32SortedKeys(t *testing.T) {
	b, err := NewPacker().PutMapUint32(map[uint16]uint32{3: 30, 1: 10, 2: 20}).Bytes()
	require.NoError(t, err)

	want := []byte{
		0x03, 0x00,
		0x01, 0x00, 0x0a, 0x00, 0x00, 0x00,
		0x02, 0x00, 0x14, 0x00, 0x00, 0x00,
		0x03, 0x00, 0x1e, 0x00, 0x00, 0x00,
	}
	assert.Equal(t, want, b)

	u := NewUnpacker(b)
	assert.Equal(t, map[uint16]uint32{1: 10, 2: 20, 3: 30}, u.ReadMapUint32())
	require.NoError(t, u.Err())
}

func TestPackerEmptyMap(t *testing.T) {
	b, err := NewPacker().PutMapUint32(nil).Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x00}, b)

	u := NewUnpacker(b)
	assert.Empty(t, u.ReadMapUint32())
	assert.NoError(t, u.Err())
}

func TestUnpackerTruncated(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		read func(u *Unpacker)
	}{
		{name: "uint16", in: []byte{0x01}, read: func(u *Unpacker) { u.ReadUint16() }},
		{name: "uint32", in: []byte{0x01, 0x02, 0x03}, read: func(u *Unpacker) { u.ReadUint32() }},
		{name: "string body", in: []byte{0x05, 0x00, 'a', 'b'}, read: func(u *Unpacker) { u.ReadString() }},
		{name: "map entry", in: []byte{0x02, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00, 0x00}, read: func(u *Unpacker) { u.ReadMapUint32() }},
		{name: "empty buffer", in: nil, read: func(u *Unpacker) { u.ReadBytes() }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := NewUnpacker(tt.in)
			tt.read(u)
			assert.ErrorIs(t, u.Err(), ErrTruncated)
		})
	}
}

func TestUnpackerStopsAfterFailure(t *testing.T) {
	u := NewUnpacker([]byte{0x01})
	assert.Zero(t, u.ReadUint32())
	assert.Zero(t, u.ReadUint16())
	assert.ErrorIs(t, u.Err(), ErrTruncated)
	assert.Equal(t, 1, u.Remaining())
}
