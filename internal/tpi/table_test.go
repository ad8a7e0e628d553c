package tpi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddDeduplicates(t *testing.T) {
	tbl := NewTable()
	a, err := tbl.Add(&ArgListRecord{ArgTypes: []TypeIndex{TypeInt32, TypeInt64}})
	require.NoError(t, err)
	b, err := tbl.Add(&ArgListRecord{ArgTypes: []TypeIndex{TypeInt32, TypeInt64}})
	require.NoError(t, err)
	c, err := tbl.Add(&ArgListRecord{ArgTypes: []TypeIndex{TypeInt32, TypeInt32}})
	require.NoError(t, err)

	assert.Equal(t, FirstUserTypeIndex, a)
	assert.Equal(t, a, b)
	assert.Equal(t, a+1, c)
	assert.Equal(t, 2, tbl.Len())
}

func TestPointerToIsCached(t *testing.T) {
	tbl := NewTable()
	p1, err := tbl.PointerTo(0x1234)
	require.NoError(t, err)
	p2, err := tbl.PointerTo(0x1234)
	require.NoError(t, err)
	p3, err := tbl.Add(&PointerRecord{Referent: 0x1234, Attributes: PointerNear64})
	require.NoError(t, err)
	assert.Equal(t, p1, p2)
	assert.Equal(t, p1, p3)
	assert.Equal(t, 1, tbl.Len())
}

func TestPointerPrimitiveCodes(t *testing.T) {
	assert.Equal(t, TypeIndex(0x0674), TypeInt32.PointerTo())
	assert.Equal(t, TypePtrVoid, TypeVoid.PointerTo())
	assert.True(t, TypeInt32.PointerTo().IsSimpleType())
}

func TestForwardRefPromotion(t *testing.T) {
	tests := []struct {
		name        string
		defineFirst bool
	}{
		{"reference then define", false},
		{"define then reference", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := NewTable()
			def := &ClassRecord{Leaf: LF_CLASS, MemberCount: 0, Size: 16, Name: "B"}

			var fwd, defined TypeIndex
			var err error
			if tt.defineFirst {
				_, err = tbl.ForwardRef("B", LF_CLASS)
				require.NoError(t, err)
				defined, err = tbl.DefineClass(def)
				require.NoError(t, err)
				fwd, err = tbl.ForwardRef("B", LF_CLASS)
				require.NoError(t, err)
			} else {
				fwd, err = tbl.ForwardRef("B", LF_CLASS)
				require.NoError(t, err)
				_, err = tbl.PointerTo(fwd)
				require.NoError(t, err)
				defined, err = tbl.DefineClass(def)
				require.NoError(t, err)
			}

			assert.Equal(t, fwd, defined)
			rec, ok := tbl.Record(fwd)
			require.True(t, ok)
			cls := rec.(*ClassRecord)
			assert.False(t, cls.Properties.IsForwardRef())
			assert.Equal(t, uint64(16), cls.Size)
			assert.True(t, tbl.IsDefined("B"))
			assert.NoError(t, tbl.Finalize())

			again, err := tbl.Add(&ClassRecord{Leaf: LF_CLASS, Size: 16, Name: "B"})
			require.NoError(t, err)
			assert.Equal(t, fwd, again)
		})
	}
}

func TestMutualForwardReferences(t *testing.T) {
	tbl := NewTable()
	a, err := tbl.ForwardRef("A", LF_CLASS)
	require.NoError(t, err)
	b, err := tbl.ForwardRef("B", LF_CLASS)
	require.NoError(t, err)
	pa, err := tbl.PointerTo(a)
	require.NoError(t, err)
	pb, err := tbl.PointerTo(b)
	require.NoError(t, err)

	flA, err := tbl.AddFieldList([]Field{&MemberField{Attributes: 3, Type: pb, Name: "b"}})
	require.NoError(t, err)
	flB, err := tbl.AddFieldList([]Field{&MemberField{Attributes: 3, Type: pa, Name: "a"}})
	require.NoError(t, err)

	require.ErrorIs(t, tbl.Finalize(), ErrUnresolvedForwardRef)

	da, err := tbl.DefineClass(&ClassRecord{Leaf: LF_CLASS, MemberCount: 1, FieldList: flA, Size: 8, Name: "A"})
	require.NoError(t, err)
	db, err := tbl.DefineClass(&ClassRecord{Leaf: LF_CLASS, MemberCount: 1, FieldList: flB, Size: 8, Name: "B"})
	require.NoError(t, err)
	assert.Equal(t, a, da)
	assert.Equal(t, b, db)
	assert.NoError(t, tbl.Finalize())
}

func TestFinalizeNamesOpenForwardRefs(t *testing.T) {
	tbl := NewTable()
	_, err := tbl.ForwardRef("Zed", LF_CLASS)
	require.NoError(t, err)
	_, err = tbl.ForwardRef("Alpha", LF_CLASS)
	require.NoError(t, err)
	err = tbl.Finalize()
	require.ErrorIs(t, err, ErrUnresolvedForwardRef)
	assert.Contains(t, err.Error(), "Alpha, Zed")
}

func TestEncodeSectionLayout(t *testing.T) {
	tbl := NewTable()
	_, err := tbl.Add(&PointerRecord{Referent: TypeInt32, Attributes: PointerNear64})
	require.NoError(t, err)

	data, err := tbl.Encode()
	require.NoError(t, err)
	assert.Equal(t, []byte{
		0x04, 0x00, 0x00, 0x00, // C13
		0x0a, 0x00, 0x02, 0x10, // length 10, LF_POINTER
		0x74, 0x00, 0x00, 0x00, // T_INT4
		0x0c, 0x00, 0x01, 0x00, // near64, size 8
	}, data)
}

func TestEncodePadsWithLFPad(t *testing.T) {
	tbl := NewTable()
	_, err := tbl.Add(&StringIDRecord{Value: "ab"})
	require.NoError(t, err)
	data, err := tbl.Encode()
	require.NoError(t, err)
	// 2 len + 2 leaf + 4 substr + "ab\0" = 11, padded to 12
	assert.Len(t, data, 4+12)
	assert.Equal(t, byte(0xf1), data[len(data)-1])
	assert.Equal(t, byte(10), data[4])
}

func TestDecodeRoundTrip(t *testing.T) {
	tbl := NewTable()
	recs := []Record{
		&PointerRecord{Referent: TypeInt32, Attributes: PointerNear64},
		&ArgListRecord{ArgTypes: []TypeIndex{TypeInt32}},
		&ProcedureRecord{ReturnType: TypeVoid, ParameterCount: 1, ArgumentList: 0x1001},
		&MFunctionRecord{ReturnType: TypeVoid, ClassType: 0x1005, ThisType: 0x1000, ParameterCount: 1, ArgumentList: 0x1001},
		&MethodListRecord{Methods: []MethodListEntry{
			{Attributes: NewMemberAttributes(MemberAccessPublic, MethodKindIntroVirtual), Type: 0x1003, VTableOffset: 16},
			{Attributes: NewMemberAttributes(MemberAccessPrivate, MethodKindStatic), Type: 0x1002},
		}},
		&ClassRecord{Leaf: LF_STRUCTURE, MemberCount: 2, FieldList: 0x1006, Size: 0x12345, Name: "S"},
		&FieldListRecord{Fields: []Field{
			&BaseClassField{Attributes: 3, Type: 0x1005},
			&MemberField{Attributes: 3, Type: TypeInt32, Offset: 8, Name: "x"},
			&StaticMemberField{Attributes: 1, Type: TypeInt64, Name: "count"},
			&OverloadedMethodField{Count: 2, MethodList: 0x1004, Name: "m"},
			&OneMethodField{Attributes: NewMemberAttributes(MemberAccessPublic, MethodKindIntroVirtual), Type: 0x1003, VTableOffset: 8, Name: "v"},
			&IndexField{Continuation: 0x1000},
		}},
		&ArrayRecord{ElementType: TypeInt32, IndexType: TypeInt64},
		&StringIDRecord{Value: "Foo.java"},
		&UDTSrcLineRecord{Type: 0x1005, Source: 0x1008, Line: 12},
	}
	for _, r := range recs {
		_, err := tbl.Add(r)
		require.NoError(t, err)
	}
	data, err := tbl.Encode()
	require.NoError(t, err)

	sec, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, recs, sec.Records)
}
