// Package debuginfo defines the input consumed by the CodeView emitter and
// the address-range model built from it.
package debuginfo

import (
	"iter"
	"strings"
)

// Provider supplies compiled methods and declared types for one
// compilation unit.
type Provider interface {
	CompiledMethods() iter.Seq[CompiledMethod]
	Types() iter.Seq[TypeInfo]
}

// Modifiers is a bit set of declaration modifiers.
type Modifiers uint16

const (
	ModPublic Modifiers = 1 << iota
	ModProtected
	ModPrivate
	ModStatic
	ModSynthetic
)

func (m Modifiers) IsStatic() bool    { return m&ModStatic != 0 }
func (m Modifiers) IsSynthetic() bool { return m&ModSynthetic != 0 }

// CompiledMethod describes one compiled method body. Lo and Hi are
// absolute code addresses; Inlined ranges are relative to Lo and must be
// sorted by address.
type CompiledMethod struct {
	File       string      `yaml:"file"`
	ClassName  string      `yaml:"class"`
	MethodName string      `yaml:"method"`
	SymbolName string      `yaml:"symbol"`
	ParamTypes []string    `yaml:"params"`
	ReturnType string      `yaml:"returns"`
	Modifiers  Modifiers   `yaml:"modifiers"`
	Lo         uint64      `yaml:"lo"`
	Hi         uint64      `yaml:"hi"`
	Line       int         `yaml:"line"`
	FrameSize  uint32      `yaml:"frame_size"`
	Inlined    []LineInfo  `yaml:"inlined"`
	Locals     []LocalInfo `yaml:"locals"`
}

// ParamSignature joins the parameter type names with ", ".
func (m *CompiledMethod) ParamSignature() string {
	return strings.Join(m.ParamTypes, ", ")
}

// LineInfo is an inlined code fragment within a compiled method.
type LineInfo struct {
	Lo         uint64 `yaml:"lo"`
	Hi         uint64 `yaml:"hi"`
	File       string `yaml:"file"`
	ClassName  string `yaml:"class"`
	MethodName string `yaml:"method"`
	Line       int    `yaml:"line"`
}

// LocalInfo describes a parameter or local variable and where it lives.
type LocalInfo struct {
	Name     string       `yaml:"name"`
	Type     string       `yaml:"type"`
	Param    bool         `yaml:"param"`
	Constant bool         `yaml:"constant"`
	Ranges   []LocalRange `yaml:"ranges"`
}

// LocalRange places a variable at Location for code offsets [Lo, Hi)
// relative to the method start.
type LocalRange struct {
	Lo       uint64   `yaml:"lo"`
	Hi       uint64   `yaml:"hi"`
	Location Location `yaml:"location"`
}

// LocationKind says whether a value is held in a register or a stack slot.
type LocationKind uint8

const (
	LocationRegister LocationKind = iota
	LocationStack
)

// Location is a register name or a stack-pointer-relative slot.
type Location struct {
	Kind     LocationKind `yaml:"kind"`
	Register string       `yaml:"register"`
	Offset   int32        `yaml:"offset"`
}

// TypeKind classifies a declared type.
type TypeKind uint8

const (
	KindPrimitive TypeKind = iota
	KindPointer
	KindArray
	KindClass
	KindInterface
	KindForeign
	KindHeader
)

func (k TypeKind) String() string {
	switch k {
	case KindPrimitive:
		return "primitive"
	case KindPointer:
		return "pointer"
	case KindArray:
		return "array"
	case KindClass:
		return "class"
	case KindInterface:
		return "interface"
	case KindForeign:
		return "foreign"
	case KindHeader:
		return "header"
	default:
		return "unknown"
	}
}

// TypeInfo describes a declared type. Element names the pointee of a
// pointer type or the component of an array type.
type TypeInfo struct {
	Kind    TypeKind     `yaml:"kind"`
	Name    string       `yaml:"name"`
	Size    uint32       `yaml:"size"`
	Super   string       `yaml:"super"`
	Element string       `yaml:"element"`
	File    string       `yaml:"file"`
	Line    int          `yaml:"line"`
	Fields  []FieldInfo  `yaml:"fields"`
	Methods []MethodInfo `yaml:"methods"`
}

// FieldInfo describes a declared field. A negative Offset marks a field
// with no storage.
type FieldInfo struct {
	Name      string    `yaml:"name"`
	Type      string    `yaml:"type"`
	Offset    int       `yaml:"offset"`
	Modifiers Modifiers `yaml:"modifiers"`
}

// Manifested reports whether the field has storage and should be emitted.
func (f *FieldInfo) Manifested() bool {
	return f.Offset >= 0 && !f.Modifiers.IsSynthetic()
}

// MethodInfo describes a declared method.
type MethodInfo struct {
	Name         string    `yaml:"name"`
	ParamTypes   []string  `yaml:"params"`
	ReturnType   string    `yaml:"returns"`
	Modifiers    Modifiers `yaml:"modifiers"`
	Virtual      bool      `yaml:"virtual"`
	Override     bool      `yaml:"override"`
	VTableOffset int       `yaml:"vtable_offset"`
	Line         int       `yaml:"line"`
}
