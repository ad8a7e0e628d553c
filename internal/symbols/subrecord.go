package symbols

import (
	"github.com/skdltmxn/codeview-go/internal/stream"
	"github.com/skdltmxn/codeview-go/internal/tpi"
)

// Subrecord is one record of a DEBUG_S_SYMBOLS subsection. The set of
// implementations is closed; encodeSymbol handles every variant.
type Subrecord interface {
	Kind() SymbolRecordKind
	isSubrecord()
}

// ObjNameSym represents an S_OBJNAME record.
type ObjNameSym struct {
	Signature uint32
	Name      string
}

// Compile3Sym represents an S_COMPILE3 record.
type Compile3Sym struct {
	Flags           uint32
	Machine         uint16
	FrontendVersion [4]uint16
	BackendVersion  [4]uint16
	Version         string
}

// Language returns the source language in the low byte of Flags.
func (c *Compile3Sym) Language() uint8 { return uint8(c.Flags) }

// EnvPair is one key/value entry of an environment block.
type EnvPair struct {
	Key   string `yaml:"key"`
	Value string `yaml:"value"`
}

// EnvBlockSym represents an S_ENVBLOCK record.
type EnvBlockSym struct {
	Pairs []EnvPair
}

// ProcSym represents an S_GPROC32 record. The address fields are
// relocated against LinkageName; Name is what the debugger displays.
type ProcSym struct {
	Parent      uint32
	End         uint32
	Next        uint32
	Length      uint32
	DebugStart  uint32
	DebugEnd    uint32
	Type        tpi.TypeIndex
	Offset      uint32
	Segment     uint16
	Flags       uint8
	LinkageName string
	Name        string
}

// FrameProcSym represents an S_FRAMEPROC record.
type FrameProcSym struct {
	TotalFrameBytes             uint32
	PaddingFrameBytes           uint32
	OffsetToPadding             uint32
	CalleeSaveBytes             uint32
	OffsetOfExceptionHandler    uint32
	SectionIdOfExceptionHandler uint16
	Flags                       FrameProcFlags
}

// EndSym represents an S_END record.
type EndSym struct{}

// LocalSym represents an S_LOCAL record. Its live ranges follow it.
type LocalSym struct {
	Type  tpi.TypeIndex
	Flags LocalFlags
	Name  string
}

// AddrRange is the code span a def-range record covers. Offset is stored
// in place and relocated against Symbol.
type AddrRange struct {
	Symbol  string
	Offset  uint32
	Section uint16
	Length  uint16
}

// AddrGap is a sub-span, relative to the range start, where a variable is
// not available.
type AddrGap struct {
	Start  uint16
	Length uint16
}

// DefRangeRegisterSym represents an S_DEFRANGE_REGISTER record.
type DefRangeRegisterSym struct {
	Register      uint16
	MayHaveNoName uint16
	Range         AddrRange
	Gaps          []AddrGap
}

// DefRangeFramePointerRelSym represents an S_DEFRANGE_FRAMEPOINTER_REL record.
type DefRangeFramePointerRelSym struct {
	Offset int32
	Range  AddrRange
	Gaps   []AddrGap
}

// DataSym represents an S_GDATA32 record relocated against Symbol.
type DataSym struct {
	Type    tpi.TypeIndex
	Offset  uint32
	Segment uint16
	Symbol  string
	Name    string
}

// RegRelSym represents an S_REGREL32 record.
type RegRelSym struct {
	Offset   uint32
	Type     tpi.TypeIndex
	Register uint16
	Name     string
}

// UDTSym represents an S_UDT record.
type UDTSym struct {
	Type tpi.TypeIndex
	Name string
}

func (*ObjNameSym) Kind() SymbolRecordKind                 { return S_OBJNAME }
func (*Compile3Sym) Kind() SymbolRecordKind                { return S_COMPILE3 }
func (*EnvBlockSym) Kind() SymbolRecordKind                { return S_ENVBLOCK }
func (*ProcSym) Kind() SymbolRecordKind                    { return S_GPROC32 }
func (*FrameProcSym) Kind() SymbolRecordKind               { return S_FRAMEPROC }
func (*EndSym) Kind() SymbolRecordKind                     { return S_END }
func (*LocalSym) Kind() SymbolRecordKind                   { return S_LOCAL }
func (*DefRangeRegisterSym) Kind() SymbolRecordKind        { return S_DEFRANGE_REGISTER }
func (*DefRangeFramePointerRelSym) Kind() SymbolRecordKind { return S_DEFRANGE_FRAMEPOINTER_REL }
func (*DataSym) Kind() SymbolRecordKind                    { return S_GDATA32 }
func (*RegRelSym) Kind() SymbolRecordKind                  { return S_REGREL32 }
func (*UDTSym) Kind() SymbolRecordKind                     { return S_UDT }

func (*ObjNameSym) isSubrecord()                 {}
func (*Compile3Sym) isSubrecord()                {}
func (*EnvBlockSym) isSubrecord()                {}
func (*ProcSym) isSubrecord()                    {}
func (*FrameProcSym) isSubrecord()               {}
func (*EndSym) isSubrecord()                     {}
func (*LocalSym) isSubrecord()                   {}
func (*DefRangeRegisterSym) isSubrecord()        {}
func (*DefRangeFramePointerRelSym) isSubrecord() {}
func (*DataSym) isSubrecord()                    {}
func (*RegRelSym) isSubrecord()                  {}
func (*UDTSym) isSubrecord()                     {}

// putAddress writes a 32-bit section offset and a 16-bit section index,
// both relocated against symbol.
func putAddress(w *stream.Writer, symbol string, offset uint32, section uint16) {
	w.Relocate(symbol, IMAGE_REL_AMD64_SECREL)
	w.PutU32(offset)
	w.Relocate(symbol, IMAGE_REL_AMD64_SECTION)
	w.PutU16(section)
}

func putRange(w *stream.Writer, r *AddrRange, gaps []AddrGap) {
	putAddress(w, r.Symbol, r.Offset, r.Section)
	w.PutU16(r.Length)
	for _, g := range gaps {
		w.PutU16(g.Start)
		w.PutU16(g.Length)
	}
}

// encodeSymbol writes one length-prefixed symbol record.
func encodeSymbol(w *stream.Writer, rec Subrecord) {
	mark := w.BeginRecord()
	w.PutU16(uint16(rec.Kind()))
	switch s := rec.(type) {
	case *ObjNameSym:
		w.PutU32(s.Signature)
		w.PutCString(s.Name)
	case *Compile3Sym:
		w.PutU32(s.Flags)
		w.PutU16(s.Machine)
		for _, v := range s.FrontendVersion {
			w.PutU16(v)
		}
		for _, v := range s.BackendVersion {
			w.PutU16(v)
		}
		w.PutCString(s.Version)
	case *EnvBlockSym:
		w.PutU8(0)
		for _, p := range s.Pairs {
			w.PutCString(p.Key)
			w.PutCString(p.Value)
		}
		w.PutU8(0)
	case *ProcSym:
		w.PutU32(s.Parent)
		w.PutU32(s.End)
		w.PutU32(s.Next)
		w.PutU32(s.Length)
		w.PutU32(s.DebugStart)
		w.PutU32(s.DebugEnd)
		w.PutU32(uint32(s.Type))
		putAddress(w, s.LinkageName, s.Offset, s.Segment)
		w.PutU8(s.Flags)
		w.PutCString(s.Name)
	case *FrameProcSym:
		w.PutU32(s.TotalFrameBytes)
		w.PutU32(s.PaddingFrameBytes)
		w.PutU32(s.OffsetToPadding)
		w.PutU32(s.CalleeSaveBytes)
		w.PutU32(s.OffsetOfExceptionHandler)
		w.PutU16(s.SectionIdOfExceptionHandler)
		w.PutU32(uint32(s.Flags))
	case *EndSym:
	case *LocalSym:
		w.PutU32(uint32(s.Type))
		w.PutU16(uint16(s.Flags))
		w.PutCString(s.Name)
	case *DefRangeRegisterSym:
		w.PutU16(s.Register)
		w.PutU16(s.MayHaveNoName)
		putRange(w, &s.Range, s.Gaps)
	case *DefRangeFramePointerRelSym:
		w.PutI32(s.Offset)
		putRange(w, &s.Range, s.Gaps)
	case *DataSym:
		w.PutU32(uint32(s.Type))
		putAddress(w, s.Symbol, s.Offset, s.Segment)
		w.PutCString(s.Name)
	case *RegRelSym:
		w.PutU32(s.Offset)
		w.PutU32(uint32(s.Type))
		w.PutU16(s.Register)
		w.PutCString(s.Name)
	case *UDTSym:
		w.PutU32(uint32(s.Type))
		w.PutCString(s.Name)
	}
	w.EndRecord(mark)
}
