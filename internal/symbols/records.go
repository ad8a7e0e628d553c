// Package symbols builds the CodeView .debug$S section: symbol records,
// line tables, the file checksum table and the string table.
package symbols

import "fmt"

// SymbolRecordKind identifies the type of a symbol record.
type SymbolRecordKind uint16

// Symbol record kinds (S_*)
const (
	S_END                       SymbolRecordKind = 0x0006
	S_FRAMEPROC                 SymbolRecordKind = 0x1012
	S_OBJNAME                   SymbolRecordKind = 0x1101
	S_UDT                       SymbolRecordKind = 0x1108
	S_GDATA32                   SymbolRecordKind = 0x110d
	S_GPROC32                   SymbolRecordKind = 0x1110
	S_REGREL32                  SymbolRecordKind = 0x1111
	S_COMPILE3                  SymbolRecordKind = 0x113c
	S_ENVBLOCK                  SymbolRecordKind = 0x113d
	S_LOCAL                     SymbolRecordKind = 0x113e
	S_DEFRANGE_REGISTER         SymbolRecordKind = 0x1141
	S_DEFRANGE_FRAMEPOINTER_REL SymbolRecordKind = 0x1142
)

var symbolNames = map[SymbolRecordKind]string{
	S_END:                       "S_END",
	S_FRAMEPROC:                 "S_FRAMEPROC",
	S_OBJNAME:                   "S_OBJNAME",
	S_UDT:                       "S_UDT",
	S_GDATA32:                   "S_GDATA32",
	S_GPROC32:                   "S_GPROC32",
	S_REGREL32:                  "S_REGREL32",
	S_COMPILE3:                  "S_COMPILE3",
	S_ENVBLOCK:                  "S_ENVBLOCK",
	S_LOCAL:                     "S_LOCAL",
	S_DEFRANGE_REGISTER:         "S_DEFRANGE_REGISTER",
	S_DEFRANGE_FRAMEPOINTER_REL: "S_DEFRANGE_FRAMEPOINTER_REL",
}

func (k SymbolRecordKind) String() string {
	if s, ok := symbolNames[k]; ok {
		return s
	}
	return fmt.Sprintf("S_0x%04x", uint16(k))
}

// SubsectionKind identifies a top-level .debug$S subsection.
type SubsectionKind uint32

const (
	DEBUG_S_SYMBOLS     SubsectionKind = 0xF1
	DEBUG_S_LINES       SubsectionKind = 0xF2
	DEBUG_S_STRINGTABLE SubsectionKind = 0xF3
	DEBUG_S_FILECHKSMS  SubsectionKind = 0xF4
)

func (k SubsectionKind) String() string {
	switch k {
	case DEBUG_S_SYMBOLS:
		return "DEBUG_S_SYMBOLS"
	case DEBUG_S_LINES:
		return "DEBUG_S_LINES"
	case DEBUG_S_STRINGTABLE:
		return "DEBUG_S_STRINGTABLE"
	case DEBUG_S_FILECHKSMS:
		return "DEBUG_S_FILECHKSMS"
	default:
		return fmt.Sprintf("DEBUG_S_0x%x", uint32(k))
	}
}

// Signature is the CodeView C13 version stamp that starts the section.
const Signature uint32 = 4

// COFF relocation types requested for address fields.
const (
	IMAGE_REL_AMD64_SECTION uint16 = 0x000A
	IMAGE_REL_AMD64_SECREL  uint16 = 0x000B
)

// Compile3 constants.
const (
	LanguageCxx    uint32 = 0x01
	MachineAMD64   uint16 = 0xD0
	chksumTypeNone uint8  = 0
	chksumTypeMD5  uint8  = 1
)

// FrameProcFlags is the flag word of S_FRAMEPROC. Bits 14-15 select the
// register used to address locals, bits 16-17 the one for parameters.
type FrameProcFlags uint32

const (
	FrameLocalBasePointerSP FrameProcFlags = 1 << 14
	FrameLocalBasePointerFP FrameProcFlags = 2 << 14
	FrameParamBasePointerSP FrameProcFlags = 1 << 16
	FrameParamBasePointerFP FrameProcFlags = 2 << 16
)

func (f FrameProcFlags) LocalBasePointer() uint8 { return uint8(f>>14) & 0x3 }
func (f FrameProcFlags) ParamBasePointer() uint8 { return uint8(f>>16) & 0x3 }

// LocalFlags is the flag word of S_LOCAL.
type LocalFlags uint16

const LocalIsParam LocalFlags = 0x0001

func (f LocalFlags) IsParam() bool { return f&LocalIsParam != 0 }
