package symbols

import (
	"errors"
	"fmt"

	"github.com/skdltmxn/codeview-go/internal/stream"
	"github.com/skdltmxn/codeview-go/internal/tpi"
)

// Errors returned by Decode
var (
	ErrBadSignature  = errors.New("symbols: bad section signature")
	ErrUnknownSymbol = errors.New("symbols: unknown symbol record")
)

// FileChecksum is a decoded DEBUG_S_FILECHKSMS entry.
type FileChecksum struct {
	Offset     uint32
	NameOffset uint32
	Name       string
	Kind       uint8
	Checksum   []byte
}

// HasChecksum reports whether the entry carries an MD5.
func (f *FileChecksum) HasChecksum() bool { return f.Kind == chksumTypeMD5 }

// Section is a decoded .debug$S section. Relocated fields hold their
// in-place addends; symbol names are not recoverable from the bytes.
type Section struct {
	Symbols []Subrecord
	Lines   []*LineRecord
	Files   []FileChecksum
	Strings map[uint32]string
}

// Decode reads back a section produced by Builder.Encode.
func Decode(data []byte) (*Section, error) {
	r := stream.NewReader(data)
	sig, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	if sig != Signature {
		return nil, fmt.Errorf("%w: %d", ErrBadSignature, sig)
	}

	s := &Section{Strings: make(map[uint32]string)}
	for r.Remaining() > 0 {
		kind, err := r.ReadU32()
		if err != nil {
			return nil, err
		}
		length, err := r.ReadU32()
		if err != nil {
			return nil, err
		}
		body, err := r.SubReader(int(length))
		if err != nil {
			return nil, fmt.Errorf("symbols: %s: %w", SubsectionKind(kind), err)
		}
		r.Align(4)

		switch SubsectionKind(kind) {
		case DEBUG_S_SYMBOLS:
			err = s.decodeSymbols(body)
		case DEBUG_S_LINES:
			err = s.decodeLines(body)
		case DEBUG_S_FILECHKSMS:
			err = s.decodeFiles(body)
		case DEBUG_S_STRINGTABLE:
			err = s.decodeStrings(body)
		}
		if err != nil {
			return nil, fmt.Errorf("symbols: %s: %w", SubsectionKind(kind), err)
		}
	}
	for i := range s.Files {
		s.Files[i].Name = s.Strings[s.Files[i].NameOffset]
	}
	return s, nil
}

// FileAt returns the file entry at a checksum-table offset.
func (s *Section) FileAt(offset uint32) (*FileChecksum, bool) {
	i := int(offset / FileEntrySize)
	if offset%FileEntrySize != 0 || i >= len(s.Files) {
		return nil, false
	}
	return &s.Files[i], true
}

func (s *Section) decodeSymbols(r *stream.Reader) error {
	for r.Remaining() > 0 {
		length, err := r.ReadU16()
		if err != nil {
			return err
		}
		body, err := r.SubReader(int(length))
		if err != nil {
			return err
		}
		rec, err := decodeSymbol(&symReader{Reader: body})
		if err != nil {
			return err
		}
		s.Symbols = append(s.Symbols, rec)
	}
	return nil
}

func (s *Section) decodeLines(body *stream.Reader) error {
	r := &symReader{Reader: body}
	lr := &LineRecord{}
	r.u32() // offset
	r.u16() // segment
	r.u16() // flags
	lr.CodeSize = r.u32()
	for r.Remaining() > 0 && r.err == nil {
		b := FileBlock{FileOffset: r.u32()}
		n := r.u32()
		r.u32() // block size
		for i := uint32(0); i < n && r.err == nil; i++ {
			off := r.u32()
			line := r.u32() &^ lineStatement
			b.Lines = append(b.Lines, LineEntry{Offset: off, Line: line})
		}
		lr.Blocks = append(lr.Blocks, b)
	}
	if r.err != nil {
		return r.err
	}
	s.Lines = append(s.Lines, lr)
	return nil
}

func (s *Section) decodeFiles(body *stream.Reader) error {
	r := &symReader{Reader: body}
	for r.Remaining() >= FileEntrySize && r.err == nil {
		f := FileChecksum{Offset: uint32(r.Offset()), NameOffset: r.u32()}
		size := r.u8()
		f.Kind = r.u8()
		sum, err := r.ReadBytes(int(size))
		r.keep(err)
		if f.Kind != chksumTypeNone {
			f.Checksum = sum
		}
		r.keep(r.Skip(FileEntrySize - 6 - int(size)))
		s.Files = append(s.Files, f)
	}
	return r.err
}

func (s *Section) decodeStrings(r *stream.Reader) error {
	for r.Remaining() > 0 {
		off := uint32(r.Offset())
		str, err := r.ReadCString()
		if err != nil {
			return err
		}
		s.Strings[off] = str
	}
	return nil
}

type symReader struct {
	*stream.Reader
	err error
}

func (r *symReader) keep(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *symReader) u8() uint8 {
	v, err := r.ReadU8()
	r.keep(err)
	return v
}

func (r *symReader) u16() uint16 {
	v, err := r.ReadU16()
	r.keep(err)
	return v
}

func (r *symReader) u32() uint32 {
	v, err := r.ReadU32()
	r.keep(err)
	return v
}

func (r *symReader) index() tpi.TypeIndex { return tpi.TypeIndex(r.u32()) }

func (r *symReader) cstring() string {
	v, err := r.ReadCString()
	r.keep(err)
	return v
}

func (r *symReader) addrRange() AddrRange {
	return AddrRange{Offset: r.u32(), Section: r.u16(), Length: r.u16()}
}

func (r *symReader) gaps() []AddrGap {
	var gaps []AddrGap
	for r.Remaining() >= 4 && r.err == nil {
		gaps = append(gaps, AddrGap{Start: r.u16(), Length: r.u16()})
	}
	return gaps
}

func decodeSymbol(r *symReader) (Subrecord, error) {
	kind := SymbolRecordKind(r.u16())
	var rec Subrecord
	switch kind {
	case S_OBJNAME:
		rec = &ObjNameSym{Signature: r.u32(), Name: r.cstring()}
	case S_COMPILE3:
		c := &Compile3Sym{Flags: r.u32(), Machine: r.u16()}
		for i := range c.FrontendVersion {
			c.FrontendVersion[i] = r.u16()
		}
		for i := range c.BackendVersion {
			c.BackendVersion[i] = r.u16()
		}
		c.Version = r.cstring()
		rec = c
	case S_ENVBLOCK:
		e := &EnvBlockSym{}
		r.u8()
		for r.err == nil {
			key := r.cstring()
			if key == "" {
				break
			}
			e.Pairs = append(e.Pairs, EnvPair{Key: key, Value: r.cstring()})
		}
		rec = e
	case S_GPROC32:
		rec = &ProcSym{
			Parent:     r.u32(),
			End:        r.u32(),
			Next:       r.u32(),
			Length:     r.u32(),
			DebugStart: r.u32(),
			DebugEnd:   r.u32(),
			Type:       r.index(),
			Offset:     r.u32(),
			Segment:    r.u16(),
			Flags:      r.u8(),
			Name:       r.cstring(),
		}
	case S_FRAMEPROC:
		rec = &FrameProcSym{
			TotalFrameBytes:             r.u32(),
			PaddingFrameBytes:           r.u32(),
			OffsetToPadding:             r.u32(),
			CalleeSaveBytes:             r.u32(),
			OffsetOfExceptionHandler:    r.u32(),
			SectionIdOfExceptionHandler: r.u16(),
			Flags:                       FrameProcFlags(r.u32()),
		}
	case S_END:
		rec = &EndSym{}
	case S_LOCAL:
		rec = &LocalSym{Type: r.index(), Flags: LocalFlags(r.u16()), Name: r.cstring()}
	case S_DEFRANGE_REGISTER:
		d := &DefRangeRegisterSym{Register: r.u16(), MayHaveNoName: r.u16(), Range: r.addrRange()}
		d.Gaps = r.gaps()
		rec = d
	case S_DEFRANGE_FRAMEPOINTER_REL:
		d := &DefRangeFramePointerRelSym{Offset: int32(r.u32()), Range: r.addrRange()}
		d.Gaps = r.gaps()
		rec = d
	case S_GDATA32:
		rec = &DataSym{Type: r.index(), Offset: r.u32(), Segment: r.u16(), Name: r.cstring()}
	case S_REGREL32:
		rec = &RegRelSym{Offset: r.u32(), Type: r.index(), Register: r.u16(), Name: r.cstring()}
	case S_UDT:
		rec = &UDTSym{Type: r.index(), Name: r.cstring()}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownSymbol, kind)
	}
	if r.err != nil {
		return nil, fmt.Errorf("symbols: %s: %w", kind, r.err)
	}
	return rec, nil
}
