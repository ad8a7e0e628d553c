package tpi

import (
	"fmt"

	"github.com/skdltmxn/codeview-go/debuginfo"
)

// HeaderTypeName names the synthesized root of every class hierarchy when
// the provider declares no header type.
const HeaderTypeName = "_objhdr"

// Resolver looks up declared types by name.
type Resolver interface {
	Type(name string) (*debuginfo.TypeInfo, bool)
	Types() []debuginfo.TypeInfo
}

// Builder turns declared types into records of a Table.
type Builder struct {
	table  *Table
	types  Resolver
	built  map[string]TypeIndex
	header TypeIndex
}

// NewBuilder creates a Builder adding records to table.
func NewBuilder(table *Table, types Resolver) *Builder {
	return &Builder{
		table: table,
		types: types,
		built: make(map[string]TypeIndex),
	}
}

// Table returns the underlying type table.
func (b *Builder) Table() *Table { return b.table }

func (b *Builder) leafFor(name string) TypeRecordKind {
	if ti, ok := b.types.Type(name); ok && (ti.Kind == debuginfo.KindForeign || ti.Kind == debuginfo.KindHeader) {
		return LF_STRUCTURE
	}
	return LF_CLASS
}

// IndexFor returns the type index used to refer to a value of the named
// type. Primitives and pointer types map to built-in indices; any other
// type is referenced through a pointer to its class record, which is a
// forward reference until the class is built.
func (b *Builder) IndexFor(name string) (TypeIndex, error) {
	if name == "" {
		return TypeVoid, nil
	}
	if ti, ok := Primitives[name]; ok {
		return ti, nil
	}
	info, ok := b.types.Type(name)
	if ok {
		switch info.Kind {
		case debuginfo.KindPrimitive:
			return 0, fmt.Errorf("%w: primitive %q", ErrUnknownType, name)
		case debuginfo.KindPointer:
			if elem, ok := Primitives[info.Element]; ok && elem != TypeVoid {
				return elem.PointerTo(), nil
			}
			return TypePtrVoid, nil
		}
	}
	class, err := b.table.ForwardRef(name, b.leafFor(name))
	if err != nil {
		return 0, err
	}
	return b.table.PointerTo(class)
}

func accessOf(mods debuginfo.Modifiers) MemberAccess {
	switch {
	case mods&debuginfo.ModPrivate != 0:
		return MemberAccessPrivate
	case mods&debuginfo.ModProtected != 0:
		return MemberAccessProtected
	default:
		return MemberAccessPublic
	}
}

func methodAttributes(m *debuginfo.MethodInfo) MemberAttributes {
	kind := MethodKindVanilla
	switch {
	case m.Modifiers.IsStatic():
		kind = MethodKindStatic
	case m.Virtual && !m.Override:
		kind = MethodKindIntroVirtual
	case m.Virtual:
		kind = MethodKindVirtual
	}
	return NewMemberAttributes(accessOf(m.Modifiers), kind)
}

// MethodType returns the LF_MFUNCTION for a method of class.
func (b *Builder) MethodType(class string, static bool, ret string, params []string) (TypeIndex, error) {
	classIdx, err := b.table.ForwardRef(class, b.leafFor(class))
	if err != nil {
		return 0, err
	}
	var this TypeIndex
	if !static {
		if this, err = b.table.PointerTo(classIdx); err != nil {
			return 0, err
		}
	}
	retIdx, args, err := b.signature(ret, params)
	if err != nil {
		return 0, err
	}
	return b.table.Add(&MFunctionRecord{
		ReturnType:     retIdx,
		ClassType:      classIdx,
		ThisType:       this,
		CallingConv:    CallingConvNearC,
		ParameterCount: uint16(len(params)),
		ArgumentList:   args,
	})
}

// ProcedureType returns the LF_PROCEDURE for a free function.
func (b *Builder) ProcedureType(ret string, params []string) (TypeIndex, error) {
	retIdx, args, err := b.signature(ret, params)
	if err != nil {
		return 0, err
	}
	return b.table.Add(&ProcedureRecord{
		ReturnType:     retIdx,
		CallingConv:    CallingConvNearC,
		ParameterCount: uint16(len(params)),
		ArgumentList:   args,
	})
}

func (b *Builder) signature(ret string, params []string) (TypeIndex, TypeIndex, error) {
	retIdx, err := b.IndexFor(ret)
	if err != nil {
		return 0, 0, err
	}
	argTypes := make([]TypeIndex, 0, len(params))
	for _, p := range params {
		ti, err := b.IndexFor(p)
		if err != nil {
			return 0, 0, err
		}
		argTypes = append(argTypes, ti)
	}
	args, err := b.table.Add(&ArgListRecord{ArgTypes: argTypes})
	return retIdx, args, err
}

// HeaderType returns the object header structure at the root of every
// class hierarchy, building it on first use.
func (b *Builder) HeaderType() (TypeIndex, error) {
	if b.header != 0 {
		return b.header, nil
	}
	for _, t := range b.types.Types() {
		if t.Kind == debuginfo.KindHeader {
			ti, err := b.BuildType(&t)
			if err != nil {
				return 0, err
			}
			b.header = ti
			return ti, nil
		}
	}
	fl, err := b.table.AddFieldList([]Field{&MemberField{
		Attributes: NewMemberAttributes(MemberAccessPublic, MethodKindVanilla),
		Type:       TypePtrVoid,
		Name:       "hub",
	}})
	if err != nil {
		return 0, err
	}
	ti, err := b.table.DefineClass(&ClassRecord{
		Leaf:        LF_STRUCTURE,
		MemberCount: 1,
		FieldList:   fl,
		Size:        8,
		Name:        HeaderTypeName,
	})
	if err != nil {
		return 0, err
	}
	b.header = ti
	return ti, nil
}

// BuildType builds the complete record for a class-like type and returns
// its index. Building the same type again returns the same index.
func (b *Builder) BuildType(info *debuginfo.TypeInfo) (TypeIndex, error) {
	switch info.Kind {
	case debuginfo.KindPrimitive, debuginfo.KindPointer:
		return b.IndexFor(info.Name)
	}
	if ti, ok := b.built[info.Name]; ok {
		return ti, nil
	}

	leaf := LF_CLASS
	if info.Kind == debuginfo.KindForeign || info.Kind == debuginfo.KindHeader {
		leaf = LF_STRUCTURE
	}
	classIdx, err := b.table.ForwardRef(info.Name, leaf)
	if err != nil {
		return 0, err
	}

	var fields []Field
	public := NewMemberAttributes(MemberAccessPublic, MethodKindVanilla)

	// A hierarchy always ends in the object header.
	switch {
	case info.Super != "":
		super, err := b.table.ForwardRef(info.Super, b.leafFor(info.Super))
		if err != nil {
			return 0, err
		}
		fields = append(fields, &BaseClassField{Attributes: public, Type: super})
	case info.Kind == debuginfo.KindClass || info.Kind == debuginfo.KindInterface || info.Kind == debuginfo.KindArray:
		header, err := b.HeaderType()
		if err != nil {
			return 0, err
		}
		fields = append(fields, &BaseClassField{Attributes: public, Type: header})
	}

	for i := range info.Fields {
		f := &info.Fields[i]
		if !f.Manifested() {
			continue
		}
		ti, err := b.IndexFor(f.Type)
		if err != nil {
			return 0, fmt.Errorf("tpi: field %s.%s: %w", info.Name, f.Name, err)
		}
		attrs := NewMemberAttributes(accessOf(f.Modifiers), MethodKindVanilla)
		if f.Modifiers.IsStatic() {
			fields = append(fields, &StaticMemberField{Attributes: attrs, Type: ti, Name: f.Name})
		} else {
			fields = append(fields, &MemberField{Attributes: attrs, Type: ti, Offset: uint64(f.Offset), Name: f.Name})
		}
	}

	if info.Kind == debuginfo.KindArray {
		elem, err := b.IndexFor(info.Element)
		if err != nil {
			return 0, fmt.Errorf("tpi: array %s element: %w", info.Name, err)
		}
		arr, err := b.table.Add(&ArrayRecord{ElementType: elem, IndexType: TypeInt64})
		if err != nil {
			return 0, err
		}
		fields = append(fields, &MemberField{Attributes: public, Type: arr, Offset: uint64(info.Size), Name: "data"})
	}

	methodFields, err := b.methodFields(info)
	if err != nil {
		return 0, err
	}
	fields = append(fields, methodFields...)

	fl, err := b.table.AddFieldList(fields)
	if err != nil {
		return 0, fmt.Errorf("tpi: %s: %w", info.Name, err)
	}
	ti, err := b.table.DefineClass(&ClassRecord{
		Leaf:        leaf,
		MemberCount: uint16(len(fields)),
		FieldList:   fl,
		Size:        uint64(info.Size),
		Name:        info.Name,
	})
	if err != nil {
		return 0, err
	}
	b.built[info.Name] = ti
	if ti != classIdx {
		return 0, fmt.Errorf("tpi: %s defined at 0x%x, forward reference at 0x%x", info.Name, uint32(ti), uint32(classIdx))
	}

	if err := b.sourceLine(info, ti); err != nil {
		return 0, err
	}
	return ti, nil
}

// methodFields emits an LF_METHOD over a method list for every overloaded
// name, then an LF_ONEMETHOD for every unique name.
func (b *Builder) methodFields(info *debuginfo.TypeInfo) ([]Field, error) {
	var order []string
	byName := make(map[string][]*debuginfo.MethodInfo)
	for i := range info.Methods {
		m := &info.Methods[i]
		if _, seen := byName[m.Name]; !seen {
			order = append(order, m.Name)
		}
		byName[m.Name] = append(byName[m.Name], m)
	}

	var overloaded, unique []Field
	for _, name := range order {
		ms := byName[name]
		if len(ms) == 1 {
			m := ms[0]
			ti, err := b.MethodType(info.Name, m.Modifiers.IsStatic(), m.ReturnType, m.ParamTypes)
			if err != nil {
				return nil, fmt.Errorf("tpi: method %s.%s: %w", info.Name, name, err)
			}
			unique = append(unique, &OneMethodField{
				Attributes:   methodAttributes(m),
				Type:         ti,
				VTableOffset: int32(m.VTableOffset),
				Name:         name,
			})
			continue
		}
		entries := make([]MethodListEntry, 0, len(ms))
		for _, m := range ms {
			ti, err := b.MethodType(info.Name, m.Modifiers.IsStatic(), m.ReturnType, m.ParamTypes)
			if err != nil {
				return nil, fmt.Errorf("tpi: method %s.%s: %w", info.Name, name, err)
			}
			entries = append(entries, MethodListEntry{
				Attributes:   methodAttributes(m),
				Type:         ti,
				VTableOffset: int32(m.VTableOffset),
			})
		}
		ml, err := b.table.Add(&MethodListRecord{Methods: entries})
		if err != nil {
			return nil, err
		}
		overloaded = append(overloaded, &OverloadedMethodField{
			Count:      uint16(len(entries)),
			MethodList: ml,
			Name:       name,
		})
	}
	return append(overloaded, unique...), nil
}

// sourceLine binds a class to its declaring file and line when one is
// known, preferring the type's own line over its first method's.
func (b *Builder) sourceLine(info *debuginfo.TypeInfo, class TypeIndex) error {
	line := info.Line
	for i := 0; line <= 0 && i < len(info.Methods); i++ {
		line = info.Methods[i].Line
	}
	if line <= 0 || info.File == "" {
		return nil
	}
	src, err := b.table.Add(&StringIDRecord{Value: info.File})
	if err != nil {
		return err
	}
	_, err = b.table.Add(&UDTSrcLineRecord{Type: class, Source: src, Line: uint32(line)})
	return err
}
