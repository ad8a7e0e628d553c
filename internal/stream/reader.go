// Package stream provides the little-endian byte encoding shared by the
// CodeView record builders, and a Reader for decoding emitted sections.
package stream

import (
	"encoding/binary"
	"errors"
)

// Errors returned by Reader
var (
	ErrUnexpectedEOF  = errors.New("stream: unexpected end of data")
	ErrInvalidNumeric = errors.New("stream: invalid numeric encoding")
)

// Reader decodes little-endian values from a byte slice.
type Reader struct {
	data   []byte
	offset int
}

// NewReader creates a Reader over data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Offset returns the current read position.
func (r *Reader) Offset() int {
	return r.offset
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return max(len(r.data)-r.offset, 0)
}

// take returns the next n bytes and advances past them.
func (r *Reader) take(n int) ([]byte, error) {
	if n < 0 || r.offset+n > len(r.data) {
		return nil, ErrUnexpectedEOF
	}
	b := r.data[r.offset : r.offset+n]
	r.offset += n
	return b, nil
}

// Skip advances the read position by n bytes.
func (r *Reader) Skip(n int) error {
	_, err := r.take(n)
	return err
}

// Align moves the read position up to the given boundary.
func (r *Reader) Align(alignment int) {
	if alignment > 1 && r.offset%alignment != 0 {
		r.offset += alignment - r.offset%alignment
	}
}

// SkipPadding skips LF_PAD bytes (0xF0-0xFF) left by Writer.Align4.
func (r *Reader) SkipPadding() {
	for r.offset < len(r.data) && r.data[r.offset] >= 0xF0 {
		r.offset++
	}
}

func (r *Reader) ReadU8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *Reader) ReadU16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *Reader) ReadU32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *Reader) ReadU64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *Reader) ReadI32() (int32, error) {
	v, err := r.ReadU32()
	return int32(v), err
}

// ReadBytes returns a copy of the next n bytes.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	b, err := r.take(n)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), b...), nil
}

// ReadCString reads a NUL-terminated string.
func (r *Reader) ReadCString() (string, error) {
	for i := r.offset; i < len(r.data); i++ {
		if r.data[i] == 0 {
			s := string(r.data[r.offset:i])
			r.offset = i + 1
			return s, nil
		}
	}
	return "", ErrUnexpectedEOF
}

// ReadNumeric reads a CodeView numeric leaf as written by Writer.PutNumeric.
func (r *Reader) ReadNumeric() (uint64, error) {
	leaf, err := r.ReadU16()
	if err != nil {
		return 0, err
	}
	if leaf < 0x8000 {
		return uint64(leaf), nil
	}
	switch leaf {
	case 0x8002: // LF_USHORT
		v, err := r.ReadU16()
		return uint64(v), err
	case 0x8004: // LF_ULONG
		v, err := r.ReadU32()
		return uint64(v), err
	case 0x8009, 0x800a: // LF_QUADWORD, LF_UQUADWORD
		return r.ReadU64()
	default:
		return 0, ErrInvalidNumeric
	}
}

// PeekU16 returns the next 16-bit value without consuming it.
func (r *Reader) PeekU16() (uint16, error) {
	if r.offset+2 > len(r.data) {
		return 0, ErrUnexpectedEOF
	}
	return binary.LittleEndian.Uint16(r.data[r.offset:]), nil
}

// SubReader returns a Reader over the next length bytes and skips them.
func (r *Reader) SubReader(length int) (*Reader, error) {
	b, err := r.take(length)
	if err != nil {
		return nil, err
	}
	return NewReader(b), nil
}

// RemainingData returns the unread bytes without copying.
func (r *Reader) RemainingData() []byte {
	if r.offset >= len(r.data) {
		return nil
	}
	return r.data[r.offset:]
}
