// Package tpi builds the CodeView type table emitted as the .debug$T section.
package tpi

import "fmt"

// TypeIndex is a reference to a type record or a built-in type.
type TypeIndex uint32

// FirstUserTypeIndex is the first index allocated to an emitted record.
// Indices below this are built-in primitive types.
const FirstUserTypeIndex TypeIndex = 0x1000

// IsSimpleType returns true if this is a built-in primitive type.
func (ti TypeIndex) IsSimpleType() bool {
	return ti < FirstUserTypeIndex
}

// Built-in type indices. The low byte is the kind, bits 8-11 the mode.
const (
	TypeNone    TypeIndex = 0x0000
	TypeVoid    TypeIndex = 0x0003
	TypeBool8   TypeIndex = 0x0030
	TypeReal32  TypeIndex = 0x0040
	TypeReal64  TypeIndex = 0x0041
	TypeInt8    TypeIndex = 0x0068 // T_INT1
	TypeWChar   TypeIndex = 0x0071
	TypeInt16   TypeIndex = 0x0072
	TypeInt32   TypeIndex = 0x0074
	TypeInt64   TypeIndex = 0x0076
	TypeUInt64  TypeIndex = 0x0077
	TypePtrVoid TypeIndex = 0x0603 // T_64PVOID

	// ModeNearPointer64 turns a direct primitive into a 64-bit pointer to it.
	ModeNearPointer64 TypeIndex = 0x0600
)

// PointerTo returns the built-in pointer type for a direct primitive.
func (ti TypeIndex) PointerTo() TypeIndex {
	return ti&0xFF | ModeNearPointer64
}

// Primitives maps source-level primitive type names to built-in indices.
var Primitives = map[string]TypeIndex{
	"void":    TypeVoid,
	"byte":    TypeInt8,
	"boolean": TypeBool8,
	"char":    TypeWChar,
	"short":   TypeInt16,
	"int":     TypeInt32,
	"long":    TypeInt64,
	"float":   TypeReal32,
	"double":  TypeReal64,
}

// TypeRecordKind identifies the leaf type of a type record or field.
type TypeRecordKind uint16

const (
	LF_POINTER      TypeRecordKind = 0x1002
	LF_PROCEDURE    TypeRecordKind = 0x1008
	LF_MFUNCTION    TypeRecordKind = 0x1009
	LF_ARGLIST      TypeRecordKind = 0x1201
	LF_FIELDLIST    TypeRecordKind = 0x1203
	LF_METHODLIST   TypeRecordKind = 0x1206
	LF_BCLASS       TypeRecordKind = 0x1400
	LF_INDEX        TypeRecordKind = 0x1404
	LF_ARRAY        TypeRecordKind = 0x1503
	LF_CLASS        TypeRecordKind = 0x1504
	LF_STRUCTURE    TypeRecordKind = 0x1505
	LF_MEMBER       TypeRecordKind = 0x150d
	LF_STMEMBER     TypeRecordKind = 0x150e
	LF_METHOD       TypeRecordKind = 0x150f
	LF_ONEMETHOD    TypeRecordKind = 0x1511
	LF_STRING_ID    TypeRecordKind = 0x1605
	LF_UDT_SRC_LINE TypeRecordKind = 0x1606
)

var kindNames = map[TypeRecordKind]string{
	LF_POINTER:      "LF_POINTER",
	LF_PROCEDURE:    "LF_PROCEDURE",
	LF_MFUNCTION:    "LF_MFUNCTION",
	LF_ARGLIST:      "LF_ARGLIST",
	LF_FIELDLIST:    "LF_FIELDLIST",
	LF_METHODLIST:   "LF_METHODLIST",
	LF_BCLASS:       "LF_BCLASS",
	LF_INDEX:        "LF_INDEX",
	LF_ARRAY:        "LF_ARRAY",
	LF_CLASS:        "LF_CLASS",
	LF_STRUCTURE:    "LF_STRUCTURE",
	LF_MEMBER:       "LF_MEMBER",
	LF_STMEMBER:     "LF_STMEMBER",
	LF_METHOD:       "LF_METHOD",
	LF_ONEMETHOD:    "LF_ONEMETHOD",
	LF_STRING_ID:    "LF_STRING_ID",
	LF_UDT_SRC_LINE: "LF_UDT_SRC_LINE",
}

func (k TypeRecordKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("LF_0x%04x", uint16(k))
}

// CallingConvention of a procedure type. Only near C is emitted.
type CallingConvention uint8

const CallingConvNearC CallingConvention = 0x00

// PointerAttributes is the attribute word of an LF_POINTER record:
// kind in bits 0-4, mode in bits 5-7, size in bits 13-20.
type PointerAttributes uint32

// PointerNear64 is a plain 64-bit pointer of size 8.
const PointerNear64 PointerAttributes = 0x0c | 8<<13

func (pa PointerAttributes) Kind() uint8 { return uint8(pa & 0x1F) }
func (pa PointerAttributes) Mode() uint8 { return uint8((pa >> 5) & 0x07) }
func (pa PointerAttributes) Size() uint8 { return uint8((pa >> 13) & 0xFF) }

// ClassProperties is the property word of a class or structure record.
type ClassProperties uint16

// ClassForwardRef marks an incomplete class record.
const ClassForwardRef ClassProperties = 0x0080

func (cp ClassProperties) IsForwardRef() bool { return cp&ClassForwardRef != 0 }

// MemberAccess is the accessibility in bits 0-1 of a member attribute.
type MemberAccess uint8

const (
	MemberAccessPrivate   MemberAccess = 1
	MemberAccessProtected MemberAccess = 2
	MemberAccessPublic    MemberAccess = 3
)

func (ma MemberAccess) String() string {
	switch ma {
	case MemberAccessPrivate:
		return "private"
	case MemberAccessProtected:
		return "protected"
	case MemberAccessPublic:
		return "public"
	default:
		return ""
	}
}

// MethodKind is the method property in bits 2-4 of a member attribute.
type MethodKind uint8

const (
	MethodKindVanilla      MethodKind = 0x00
	MethodKindVirtual      MethodKind = 0x01
	MethodKindStatic       MethodKind = 0x02
	MethodKindIntroVirtual MethodKind = 0x04
)

// MemberAttributes is the u16 attribute word of field and method records.
type MemberAttributes uint16

// NewMemberAttributes combines an access level and a method kind.
func NewMemberAttributes(access MemberAccess, kind MethodKind) MemberAttributes {
	return MemberAttributes(access) | MemberAttributes(kind)<<2
}

func (ma MemberAttributes) Access() MemberAccess { return MemberAccess(ma & 0x03) }
func (ma MemberAttributes) Kind() MethodKind     { return MethodKind((ma >> 2) & 0x07) }

// IsIntroVirtual reports whether a vtable offset follows the attributes.
func (ma MemberAttributes) IsIntroVirtual() bool {
	return ma.Kind() == MethodKindIntroVirtual
}
