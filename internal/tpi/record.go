package tpi

import "github.com/skdltmxn/codeview-go/internal/stream"

// Record is one type record. The set of implementations is closed; every
// variant is encoded by encodeRecord.
type Record interface {
	Kind() TypeRecordKind
	isRecord()
}

// PointerRecord is an LF_POINTER.
type PointerRecord struct {
	Referent   TypeIndex
	Attributes PointerAttributes
}

// ProcedureRecord is an LF_PROCEDURE function signature.
type ProcedureRecord struct {
	ReturnType     TypeIndex
	CallingConv    CallingConvention
	Options        uint8
	ParameterCount uint16
	ArgumentList   TypeIndex
}

// MFunctionRecord is an LF_MFUNCTION member function signature. ThisType
// is zero for static methods.
type MFunctionRecord struct {
	ReturnType     TypeIndex
	ClassType      TypeIndex
	ThisType       TypeIndex
	CallingConv    CallingConvention
	Options        uint8
	ParameterCount uint16
	ArgumentList   TypeIndex
	ThisAdjust     int32
}

// ArgListRecord is an LF_ARGLIST.
type ArgListRecord struct {
	ArgTypes []TypeIndex
}

// MethodListEntry is one overload inside an LF_METHODLIST.
type MethodListEntry struct {
	Attributes   MemberAttributes
	Type         TypeIndex
	VTableOffset int32
}

// MethodListRecord is an LF_METHODLIST.
type MethodListRecord struct {
	Methods []MethodListEntry
}

// FieldListRecord is one LF_FIELDLIST fragment.
type FieldListRecord struct {
	Fields []Field
}

// ClassRecord is an LF_CLASS or LF_STRUCTURE. Leaf selects which.
type ClassRecord struct {
	Leaf        TypeRecordKind
	MemberCount uint16
	Properties  ClassProperties
	FieldList   TypeIndex
	DerivedFrom TypeIndex
	VShape      TypeIndex
	Size        uint64
	Name        string
}

// ArrayRecord is an LF_ARRAY.
type ArrayRecord struct {
	ElementType TypeIndex
	IndexType   TypeIndex
	Size        uint64
	Name        string
}

// StringIDRecord is an LF_STRING_ID.
type StringIDRecord struct {
	Substrings TypeIndex
	Value      string
}

// UDTSrcLineRecord is an LF_UDT_SRC_LINE.
type UDTSrcLineRecord struct {
	Type   TypeIndex
	Source TypeIndex
	Line   uint32
}

func (*PointerRecord) Kind() TypeRecordKind    { return LF_POINTER }
func (*ProcedureRecord) Kind() TypeRecordKind  { return LF_PROCEDURE }
func (*MFunctionRecord) Kind() TypeRecordKind  { return LF_MFUNCTION }
func (*ArgListRecord) Kind() TypeRecordKind    { return LF_ARGLIST }
func (*MethodListRecord) Kind() TypeRecordKind { return LF_METHODLIST }
func (*FieldListRecord) Kind() TypeRecordKind  { return LF_FIELDLIST }
func (r *ClassRecord) Kind() TypeRecordKind    { return r.Leaf }
func (*ArrayRecord) Kind() TypeRecordKind      { return LF_ARRAY }
func (*StringIDRecord) Kind() TypeRecordKind   { return LF_STRING_ID }
func (*UDTSrcLineRecord) Kind() TypeRecordKind { return LF_UDT_SRC_LINE }

func (*PointerRecord) isRecord()    {}
func (*ProcedureRecord) isRecord()  {}
func (*MFunctionRecord) isRecord()  {}
func (*ArgListRecord) isRecord()    {}
func (*MethodListRecord) isRecord() {}
func (*FieldListRecord) isRecord()  {}
func (*ClassRecord) isRecord()      {}
func (*ArrayRecord) isRecord()      {}
func (*StringIDRecord) isRecord()   {}
func (*UDTSrcLineRecord) isRecord() {}

// Field is one member of a field list.
type Field interface {
	Kind() TypeRecordKind
	isField()
}

// BaseClassField is an LF_BCLASS.
type BaseClassField struct {
	Attributes MemberAttributes
	Type       TypeIndex
	Offset     uint64
}

// IndexField is an LF_INDEX continuation to another field list.
type IndexField struct {
	Continuation TypeIndex
}

// MemberField is an LF_MEMBER.
type MemberField struct {
	Attributes MemberAttributes
	Type       TypeIndex
	Offset     uint64
	Name       string
}

// StaticMemberField is an LF_STMEMBER.
type StaticMemberField struct {
	Attributes MemberAttributes
	Type       TypeIndex
	Name       string
}

// OverloadedMethodField is an LF_METHOD referencing a method list.
type OverloadedMethodField struct {
	Count      uint16
	MethodList TypeIndex
	Name       string
}

// OneMethodField is an LF_ONEMETHOD.
type OneMethodField struct {
	Attributes   MemberAttributes
	Type         TypeIndex
	VTableOffset int32
	Name         string
}

func (*BaseClassField) Kind() TypeRecordKind        { return LF_BCLASS }
func (*IndexField) Kind() TypeRecordKind            { return LF_INDEX }
func (*MemberField) Kind() TypeRecordKind           { return LF_MEMBER }
func (*StaticMemberField) Kind() TypeRecordKind     { return LF_STMEMBER }
func (*OverloadedMethodField) Kind() TypeRecordKind { return LF_METHOD }
func (*OneMethodField) Kind() TypeRecordKind        { return LF_ONEMETHOD }

func (*BaseClassField) isField()        {}
func (*IndexField) isField()            {}
func (*MemberField) isField()           {}
func (*StaticMemberField) isField()     {}
func (*OverloadedMethodField) isField() {}
func (*OneMethodField) isField()        {}

// encodeRecord writes a complete record: length, leaf, contents and
// padding to a 4-byte boundary.
func encodeRecord(w *stream.Writer, rec Record) {
	mark := w.BeginRecord()
	w.PutU16(uint16(rec.Kind()))
	switch r := rec.(type) {
	case *PointerRecord:
		w.PutU32(uint32(r.Referent))
		w.PutU32(uint32(r.Attributes))
	case *ProcedureRecord:
		w.PutU32(uint32(r.ReturnType))
		w.PutU8(uint8(r.CallingConv))
		w.PutU8(r.Options)
		w.PutU16(r.ParameterCount)
		w.PutU32(uint32(r.ArgumentList))
	case *MFunctionRecord:
		w.PutU32(uint32(r.ReturnType))
		w.PutU32(uint32(r.ClassType))
		w.PutU32(uint32(r.ThisType))
		w.PutU8(uint8(r.CallingConv))
		w.PutU8(r.Options)
		w.PutU16(r.ParameterCount)
		w.PutU32(uint32(r.ArgumentList))
		w.PutI32(r.ThisAdjust)
	case *ArgListRecord:
		w.PutU32(uint32(len(r.ArgTypes)))
		for _, a := range r.ArgTypes {
			w.PutU32(uint32(a))
		}
	case *MethodListRecord:
		for _, m := range r.Methods {
			w.PutU16(uint16(m.Attributes))
			w.PutU16(0)
			w.PutU32(uint32(m.Type))
			if m.Attributes.IsIntroVirtual() {
				w.PutI32(m.VTableOffset)
			}
		}
	case *FieldListRecord:
		for _, f := range r.Fields {
			encodeField(w, f)
		}
	case *ClassRecord:
		w.PutU16(r.MemberCount)
		w.PutU16(uint16(r.Properties))
		w.PutU32(uint32(r.FieldList))
		w.PutU32(uint32(r.DerivedFrom))
		w.PutU32(uint32(r.VShape))
		w.PutNumeric(r.Size)
		w.PutCString(r.Name)
	case *ArrayRecord:
		w.PutU32(uint32(r.ElementType))
		w.PutU32(uint32(r.IndexType))
		w.PutNumeric(r.Size)
		w.PutCString(r.Name)
	case *StringIDRecord:
		w.PutU32(uint32(r.Substrings))
		w.PutCString(r.Value)
	case *UDTSrcLineRecord:
		w.PutU32(uint32(r.Type))
		w.PutU32(uint32(r.Source))
		w.PutU32(r.Line)
	}
	w.Align4()
	w.EndRecord(mark)
}

// encodeField writes one field-list member, padded to 4 bytes.
func encodeField(w *stream.Writer, field Field) {
	w.PutU16(uint16(field.Kind()))
	switch f := field.(type) {
	case *BaseClassField:
		w.PutU16(uint16(f.Attributes))
		w.PutU32(uint32(f.Type))
		w.PutNumeric(f.Offset)
	case *IndexField:
		w.PutU16(0)
		w.PutU32(uint32(f.Continuation))
	case *MemberField:
		w.PutU16(uint16(f.Attributes))
		w.PutU32(uint32(f.Type))
		w.PutNumeric(f.Offset)
		w.PutCString(f.Name)
	case *StaticMemberField:
		w.PutU16(uint16(f.Attributes))
		w.PutU32(uint32(f.Type))
		w.PutCString(f.Name)
	case *OverloadedMethodField:
		w.PutU16(f.Count)
		w.PutU32(uint32(f.MethodList))
		w.PutCString(f.Name)
	case *OneMethodField:
		w.PutU16(uint16(f.Attributes))
		w.PutU32(uint32(f.Type))
		if f.Attributes.IsIntroVirtual() {
			w.PutI32(f.VTableOffset)
		}
		w.PutCString(f.Name)
	}
	w.Align4()
}

// EncodeRecord returns the standalone encoding of rec.
func EncodeRecord(rec Record) ([]byte, error) {
	b, _, err := stream.Encode(func(w *stream.Writer) { encodeRecord(w, rec) })
	return b, err
}

// fieldSize returns the padded encoded size of one field.
func fieldSize(f Field) (int, error) {
	return stream.Measure(func(w *stream.Writer) { encodeField(w, f) })
}
