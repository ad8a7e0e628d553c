package tpi

import (
	"errors"
	"fmt"

	"github.com/skdltmxn/codeview-go/internal/stream"
)

// ErrBadSignature indicates a section that does not start with the C13 stamp.
var ErrBadSignature = errors.New("tpi: bad section signature")

// Section is a decoded .debug$T section.
type Section struct {
	Records []Record
}

// Record returns the record at ti.
func (s *Section) Record(ti TypeIndex) (Record, bool) {
	i := int(ti) - int(FirstUserTypeIndex)
	if ti.IsSimpleType() || i >= len(s.Records) {
		return nil, false
	}
	return s.Records[i], true
}

// Decode reads back a section produced by Table.Encode.
func Decode(data []byte) (*Section, error) {
	r := stream.NewReader(data)
	sig, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	if sig != Signature {
		return nil, fmt.Errorf("%w: %d", ErrBadSignature, sig)
	}

	s := &Section{}
	for r.Remaining() > 0 {
		at := r.Offset()
		length, err := r.ReadU16()
		if err != nil {
			return nil, err
		}
		body, err := r.SubReader(int(length))
		if err != nil {
			return nil, fmt.Errorf("tpi: record at 0x%x: %w", at, err)
		}
		rec, err := decodeRecord(body)
		if err != nil {
			return nil, fmt.Errorf("tpi: record 0x%x at 0x%x: %w",
				uint32(FirstUserTypeIndex)+uint32(len(s.Records)), at, err)
		}
		s.Records = append(s.Records, rec)
	}
	return s, nil
}

// recordReader latches the first read error so decoders can read a whole
// layout and check once.
type recordReader struct {
	*stream.Reader
	err error
}

func (r *recordReader) u8() uint8 {
	v, err := r.ReadU8()
	r.keep(err)
	return v
}

func (r *recordReader) u16() uint16 {
	v, err := r.ReadU16()
	r.keep(err)
	return v
}

func (r *recordReader) u32() uint32 {
	v, err := r.ReadU32()
	r.keep(err)
	return v
}

func (r *recordReader) index() TypeIndex { return TypeIndex(r.u32()) }

func (r *recordReader) numeric() uint64 {
	v, err := r.ReadNumeric()
	r.keep(err)
	return v
}

func (r *recordReader) cstring() string {
	v, err := r.ReadCString()
	r.keep(err)
	return v
}

func (r *recordReader) keep(err error) {
	if r.err == nil {
		r.err = err
	}
}

func decodeRecord(body *stream.Reader) (Record, error) {
	r := &recordReader{Reader: body}
	kind := TypeRecordKind(r.u16())
	var rec Record
	switch kind {
	case LF_POINTER:
		rec = &PointerRecord{Referent: r.index(), Attributes: PointerAttributes(r.u32())}
	case LF_PROCEDURE:
		rec = &ProcedureRecord{
			ReturnType:     r.index(),
			CallingConv:    CallingConvention(r.u8()),
			Options:        r.u8(),
			ParameterCount: r.u16(),
			ArgumentList:   r.index(),
		}
	case LF_MFUNCTION:
		rec = &MFunctionRecord{
			ReturnType:     r.index(),
			ClassType:      r.index(),
			ThisType:       r.index(),
			CallingConv:    CallingConvention(r.u8()),
			Options:        r.u8(),
			ParameterCount: r.u16(),
			ArgumentList:   r.index(),
			ThisAdjust:     int32(r.u32()),
		}
	case LF_ARGLIST:
		n := r.u32()
		al := &ArgListRecord{}
		for i := uint32(0); i < n && r.err == nil; i++ {
			al.ArgTypes = append(al.ArgTypes, r.index())
		}
		rec = al
	case LF_METHODLIST:
		ml := &MethodListRecord{}
		for r.Remaining() > 0 && r.err == nil {
			e := MethodListEntry{Attributes: MemberAttributes(r.u16())}
			r.u16()
			e.Type = r.index()
			if e.Attributes.IsIntroVirtual() {
				e.VTableOffset = int32(r.u32())
			}
			ml.Methods = append(ml.Methods, e)
		}
		rec = ml
	case LF_FIELDLIST:
		fl := &FieldListRecord{}
		for r.Remaining() > 0 && r.err == nil {
			f, err := decodeField(r)
			if err != nil {
				return nil, err
			}
			fl.Fields = append(fl.Fields, f)
			r.SkipPadding()
		}
		rec = fl
	case LF_CLASS, LF_STRUCTURE:
		rec = &ClassRecord{
			Leaf:        kind,
			MemberCount: r.u16(),
			Properties:  ClassProperties(r.u16()),
			FieldList:   r.index(),
			DerivedFrom: r.index(),
			VShape:      r.index(),
			Size:        r.numeric(),
			Name:        r.cstring(),
		}
	case LF_ARRAY:
		rec = &ArrayRecord{ElementType: r.index(), IndexType: r.index(), Size: r.numeric(), Name: r.cstring()}
	case LF_STRING_ID:
		rec = &StringIDRecord{Substrings: r.index(), Value: r.cstring()}
	case LF_UDT_SRC_LINE:
		rec = &UDTSrcLineRecord{Type: r.index(), Source: r.index(), Line: r.u32()}
	default:
		return nil, fmt.Errorf("%w: leaf %s", ErrUnknownType, kind)
	}
	if r.err != nil {
		return nil, fmt.Errorf("tpi: %s: %w", kind, r.err)
	}
	return rec, nil
}

func decodeField(r *recordReader) (Field, error) {
	kind := TypeRecordKind(r.u16())
	var f Field
	switch kind {
	case LF_BCLASS:
		f = &BaseClassField{Attributes: MemberAttributes(r.u16()), Type: r.index(), Offset: r.numeric()}
	case LF_INDEX:
		r.u16()
		f = &IndexField{Continuation: r.index()}
	case LF_MEMBER:
		f = &MemberField{Attributes: MemberAttributes(r.u16()), Type: r.index(), Offset: r.numeric(), Name: r.cstring()}
	case LF_STMEMBER:
		f = &StaticMemberField{Attributes: MemberAttributes(r.u16()), Type: r.index(), Name: r.cstring()}
	case LF_METHOD:
		f = &OverloadedMethodField{Count: r.u16(), MethodList: r.index(), Name: r.cstring()}
	case LF_ONEMETHOD:
		m := &OneMethodField{Attributes: MemberAttributes(r.u16()), Type: r.index()}
		if m.Attributes.IsIntroVirtual() {
			m.VTableOffset = int32(r.u32())
		}
		m.Name = r.cstring()
		f = m
	default:
		return nil, fmt.Errorf("%w: field leaf %s", ErrUnknownType, kind)
	}
	if r.err != nil {
		return nil, fmt.Errorf("tpi: %s: %w", kind, r.err)
	}
	return f, nil
}
