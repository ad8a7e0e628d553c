package stream

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

// Errors returned by Writer
var (
	ErrEmbeddedNUL    = errors.New("stream: string contains an embedded NUL")
	ErrRecordTooLarge = errors.New("stream: record exceeds 0xFFFF bytes")
	ErrSizeMismatch   = errors.New("stream: written size differs from measured size")
)

// MaxRecordLength is the largest value a 16-bit record length prefix can hold.
const MaxRecordLength = 0xFFFF

// Relocation asks the object-file writer to fix up the bytes at Offset
// against Symbol. The Kind values are COFF relocation types.
type Relocation struct {
	Offset uint32
	Symbol string
	Kind   uint16
}

// Writer serializes little-endian CodeView data.
//
// A Writer without a buffer only measures: every Put advances the position
// but nothing is stored and no relocations are recorded. The same encoding
// function run against a measuring Writer and then a writing Writer
// therefore produces a length and a buffer that cannot disagree.
type Writer struct {
	buf    []byte
	pos    int
	err    error
	relocs []Relocation
}

// NewMeasurer returns a Writer in measure mode.
func NewMeasurer() *Writer {
	return &Writer{}
}

// NewWriter returns a Writer that fills buf from offset 0.
func NewWriter(buf []byte) *Writer {
	return &Writer{buf: buf}
}

// Measuring reports whether w only counts bytes.
func (w *Writer) Measuring() bool { return w.buf == nil }

// Pos returns the current write position.
func (w *Writer) Pos() int { return w.pos }

// Err returns the first error encountered, if any.
func (w *Writer) Err() error { return w.err }

// Relocations returns the relocation requests recorded so far.
func (w *Writer) Relocations() []Relocation { return w.relocs }

func (w *Writer) fail(err error) {
	if w.err == nil {
		w.err = err
	}
}

// reserve advances the cursor by n and returns the slice to fill, or nil
// when measuring or after an overrun.
func (w *Writer) reserve(n int) []byte {
	at := w.pos
	w.pos += n
	if w.buf == nil {
		return nil
	}
	if w.pos > len(w.buf) {
		w.fail(ErrSizeMismatch)
		return nil
	}
	return w.buf[at:w.pos]
}

// PutU8 writes a single byte.
func (w *Writer) PutU8(v uint8) {
	if b := w.reserve(1); b != nil {
		b[0] = v
	}
}

// PutU16 writes a little-endian uint16.
func (w *Writer) PutU16(v uint16) {
	if b := w.reserve(2); b != nil {
		binary.LittleEndian.PutUint16(b, v)
	}
}

// PutU32 writes a little-endian uint32.
func (w *Writer) PutU32(v uint32) {
	if b := w.reserve(4); b != nil {
		binary.LittleEndian.PutUint32(b, v)
	}
}

// PutU64 writes a little-endian uint64.
func (w *Writer) PutU64(v uint64) {
	if b := w.reserve(8); b != nil {
		binary.LittleEndian.PutUint64(b, v)
	}
}

// PutI32 writes a little-endian int32.
func (w *Writer) PutI32(v int32) { w.PutU32(uint32(v)) }

// PutBytes copies p verbatim.
func (w *Writer) PutBytes(p []byte) {
	if b := w.reserve(len(p)); b != nil {
		copy(b, p)
	}
}

// PutZeros writes n zero bytes.
func (w *Writer) PutZeros(n int) {
	if b := w.reserve(n); b != nil {
		clear(b)
	}
}

// PutCString writes s as UTF-8 followed by a NUL terminator.
func (w *Writer) PutCString(s string) {
	if strings.IndexByte(s, 0) >= 0 {
		w.fail(fmt.Errorf("%w: %q", ErrEmbeddedNUL, s))
	}
	if b := w.reserve(len(s) + 1); b != nil {
		copy(b, s)
		b[len(s)] = 0
	}
}

// PutNumeric writes v as a CodeView numeric leaf: values below 0x8000 are
// stored directly, larger ones behind a width-selecting leaf tag.
func (w *Writer) PutNumeric(v uint64) {
	switch {
	case v < 0x8000:
		w.PutU16(uint16(v))
	case v <= 0xFFFF:
		w.PutU16(0x8002) // LF_USHORT
		w.PutU16(uint16(v))
	case v <= 0xFFFFFFFF:
		w.PutU16(0x8004) // LF_ULONG
		w.PutU32(uint32(v))
	default:
		w.PutU16(0x800a) // LF_UQUADWORD
		w.PutU64(v)
	}
}

// Align4 pads to the next multiple of 4 with the LF_PAD bytes F3 F2 F1,
// where each pad byte encodes how many bytes remain to the boundary.
func (w *Writer) Align4() {
	n := (4 - w.pos%4) % 4
	b := w.reserve(n)
	for i := range b {
		b[i] = 0xF0 + byte(n-i)
	}
}

// AlignZero4 pads to the next multiple of 4 with zero bytes.
func (w *Writer) AlignZero4() {
	w.PutZeros((4 - w.pos%4) % 4)
}

// PatchU16 overwrites two bytes at an earlier position.
func (w *Writer) PatchU16(at int, v uint16) {
	if w.buf != nil && at+2 <= len(w.buf) {
		binary.LittleEndian.PutUint16(w.buf[at:], v)
	}
}

// PatchU32 overwrites four bytes at an earlier position.
func (w *Writer) PatchU32(at int, v uint32) {
	if w.buf != nil && at+4 <= len(w.buf) {
		binary.LittleEndian.PutUint32(w.buf[at:], v)
	}
}

// BeginRecord reserves a 16-bit length prefix and returns its position.
func (w *Writer) BeginRecord() int {
	at := w.pos
	w.PutU16(0)
	return at
}

// EndRecord back-patches the length prefix opened at mark. The length
// covers everything after the prefix itself. Oversized records are
// reported in both modes so the measure pass already fails.
func (w *Writer) EndRecord(mark int) {
	n := w.pos - mark - 2
	if n > MaxRecordLength {
		w.fail(fmt.Errorf("%w: %d bytes", ErrRecordTooLarge, n))
		return
	}
	w.PatchU16(mark, uint16(n))
}

// BeginLength32 reserves a 32-bit length field and returns its position.
func (w *Writer) BeginLength32() int {
	at := w.pos
	w.PutU32(0)
	return at
}

// EndLength32 back-patches the length field opened at mark.
func (w *Writer) EndLength32(mark int) {
	w.PatchU32(mark, uint32(w.pos-mark-4))
}

// Relocate requests a fixup of kind against symbol at the current position.
// Requests are only recorded while writing.
func (w *Writer) Relocate(symbol string, kind uint16) {
	if w.buf == nil {
		return
	}
	w.relocs = append(w.relocs, Relocation{Offset: uint32(w.pos), Symbol: symbol, Kind: kind})
}

// Measure runs fn in measure mode and returns the byte count.
func Measure(fn func(*Writer)) (int, error) {
	m := NewMeasurer()
	fn(m)
	return m.pos, m.err
}

// Encode runs fn twice: once to measure, once into a buffer allocated to
// exactly the measured size.
func Encode(fn func(*Writer)) ([]byte, []Relocation, error) {
	size, err := Measure(fn)
	if err != nil {
		return nil, nil, err
	}
	w := NewWriter(make([]byte, size))
	fn(w)
	if w.err != nil {
		return nil, nil, w.err
	}
	if w.pos != size {
		return nil, nil, fmt.Errorf("%w: measured %d, wrote %d", ErrSizeMismatch, size, w.pos)
	}
	return w.buf, w.relocs, nil
}
