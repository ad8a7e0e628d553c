package symbols

import (
	"testing"

	"github.com/skdltmxn/codeview-go/debuginfo"
	"github.com/skdltmxn/codeview-go/internal/stream"
	"github.com/skdltmxn/codeview-go/internal/tpi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fooProvider() sliceProvider {
	return sliceProvider{
		methods: []debuginfo.CompiledMethod{{
			File:       "Foo.java",
			ClassName:  "Foo",
			MethodName: "bar",
			SymbolName: "Foo_bar_0",
			ReturnType: "void",
			Lo:         0x100,
			Hi:         0x140,
			Line:       10,
			FrameSize:  0x28,
		}},
		types: []debuginfo.TypeInfo{{
			Kind: debuginfo.KindClass,
			Name: "Foo",
			Size: 16,
			File: "Foo.java",
			Fields: []debuginfo.FieldInfo{
				{Name: "x", Type: "int", Offset: 0, Modifiers: debuginfo.ModStatic},
			},
			Methods: []debuginfo.MethodInfo{{Name: "bar", ReturnType: "void", Line: 10}},
		}},
	}
}

func encodeAll(t *testing.T, b *Builder) ([]byte, []stream.Relocation, *Section, *tpi.Section) {
	t.Helper()
	require.NoError(t, b.Build())
	data, relocs, err := b.Encode()
	require.NoError(t, err)
	sec, err := Decode(data)
	require.NoError(t, err)
	tdata, err := b.types.Table().Encode()
	require.NoError(t, err)
	types, err := tpi.Decode(tdata)
	require.NoError(t, err)
	return data, relocs, sec, types
}

func symbolsOfKind[T Subrecord](syms []Subrecord) []T {
	var out []T
	for _, s := range syms {
		if v, ok := s.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

func TestBuildSingleClass(t *testing.T) {
	b := newTestBuilder(t, fooProvider(), Options{
		ObjectName:     "foo.obj",
		CompilerName:   "cvgen",
		HeapBaseSymbol: "__heap_base",
	})
	_, relocs, sec, types := encodeAll(t, b)

	require.GreaterOrEqual(t, len(sec.Symbols), 3)
	assert.Equal(t, "foo.obj", sec.Symbols[0].(*ObjNameSym).Name)
	compile := sec.Symbols[1].(*Compile3Sym)
	assert.Equal(t, uint8(LanguageCxx), compile.Language())
	assert.Equal(t, uint16(MachineAMD64), compile.Machine)
	assert.Equal(t, "cvgen", compile.Version)
	assert.IsType(t, &EnvBlockSym{}, sec.Symbols[2])

	udts := symbolsOfKind[*UDTSym](sec.Symbols)
	require.Len(t, udts, 1)
	assert.Equal(t, "Foo", udts[0].Name)
	rec, ok := types.Record(udts[0].Type)
	require.True(t, ok)
	class := rec.(*tpi.ClassRecord)
	assert.Equal(t, tpi.LF_CLASS, class.Leaf)
	assert.Equal(t, uint16(3), class.MemberCount)
	assert.Zero(t, class.Properties&tpi.ClassForwardRef)
	fields, err := tpi.FlattenFieldList(types.Record, class.FieldList)
	require.NoError(t, err)
	require.Len(t, fields, 3)
	assert.IsType(t, &tpi.BaseClassField{}, fields[0])
	assert.Equal(t, "x", fields[1].(*tpi.StaticMemberField).Name)
	assert.Equal(t, "bar", fields[2].(*tpi.OneMethodField).Name)

	procs := symbolsOfKind[*ProcSym](sec.Symbols)
	require.Len(t, procs, 1)
	assert.Equal(t, "Foo::bar", procs[0].Name)
	assert.Equal(t, uint32(0x40), procs[0].Length)
	assert.Equal(t, uint32(0x40), procs[0].DebugEnd)
	mf, ok := types.Record(procs[0].Type)
	require.True(t, ok)
	assert.Equal(t, udts[0].Type, mf.(*tpi.MFunctionRecord).ClassType)

	frames := symbolsOfKind[*FrameProcSym](sec.Symbols)
	require.Len(t, frames, 1)
	assert.Equal(t, uint32(0x28), frames[0].TotalFrameBytes)
	assert.Equal(t, FrameLocalBasePointerSP|FrameParamBasePointerSP, frames[0].Flags)
	assert.Len(t, symbolsOfKind[*EndSym](sec.Symbols), 1)

	data := symbolsOfKind[*DataSym](sec.Symbols)
	require.Len(t, data, 1)
	assert.Equal(t, "Foo::x", data[0].Name)
	assert.Equal(t, tpi.TypeInt32, data[0].Type)

	require.Len(t, sec.Lines, 1)
	assert.Equal(t, uint32(0x40), sec.Lines[0].CodeSize)
	require.Len(t, sec.Lines[0].Blocks, 1)
	assert.Equal(t, []LineEntry{{Offset: 0, Line: 10}}, sec.Lines[0].Blocks[0].Lines)

	require.Len(t, sec.Files, 1)
	assert.Equal(t, "Foo.java", sec.Files[0].Name)
	assert.False(t, sec.Files[0].HasChecksum())
	f, ok := sec.FileAt(sec.Lines[0].Blocks[0].FileOffset)
	require.True(t, ok)
	assert.Equal(t, "Foo.java", f.Name)

	var names []string
	for _, r := range relocs {
		names = append(names, r.Symbol)
	}
	assert.Equal(t, []string{
		"Foo_bar_0", "Foo_bar_0", // S_GPROC32
		"__heap_base", "__heap_base", // S_GDATA32
		"Foo_bar_0", "Foo_bar_0", // line record
	}, names)
	for i := 0; i < len(relocs); i += 2 {
		assert.Equal(t, IMAGE_REL_AMD64_SECREL, relocs[i].Kind)
		assert.Equal(t, IMAGE_REL_AMD64_SECTION, relocs[i+1].Kind)
		assert.Equal(t, relocs[i].Offset+4, relocs[i+1].Offset)
	}
}

func TestBuildStaticsRelativeToHeapBase(t *testing.T) {
	b := newTestBuilder(t, fooProvider(), Options{UseHeapBase: true})
	_, relocs, sec, _ := encodeAll(t, b)

	assert.Empty(t, symbolsOfKind[*DataSym](sec.Symbols))
	regrels := symbolsOfKind[*RegRelSym](sec.Symbols)
	require.Len(t, regrels, 1)
	assert.Equal(t, CV_AMD64_R14, regrels[0].Register)
	assert.Equal(t, "Foo::x", regrels[0].Name)
	assert.Len(t, relocs, 4)
}

func TestBuildEntryRenameAndOverloadHash(t *testing.T) {
	p := fooProvider()
	second := p.methods[0]
	second.Lo, second.Hi = 0x200, 0x220
	second.ParamTypes = []string{"int"}
	second.SymbolName = "Foo_bar_1"
	p.methods = append(p.methods, second)

	b := newTestBuilder(t, p, Options{
		EntryMethod:   "Foo.bar",
		EntryName:     "main",
		HashOverloads: true,
	})
	_, _, sec, _ := encodeAll(t, b)

	procs := symbolsOfKind[*ProcSym](sec.Symbols)
	require.Len(t, procs, 2)
	assert.Equal(t, "main", procs[0].Name)
	assert.Equal(t, "Foo::bar_"+signatureHash("int"), procs[1].Name)
	assert.Len(t, sec.Lines, 2)
}

func TestBuildCoalescesDuplicateNames(t *testing.T) {
	p := fooProvider()
	dup := p.methods[0]
	dup.Lo, dup.Hi = 0x200, 0x220
	p.methods = append(p.methods, dup)

	b := newTestBuilder(t, p, Options{})
	_, _, sec, _ := encodeAll(t, b)
	assert.Len(t, symbolsOfKind[*ProcSym](sec.Symbols), 1)
	assert.Len(t, sec.Lines, 1)
}

func TestBuildUndeclaredClassUsesProcedure(t *testing.T) {
	p := fooProvider()
	p.types = nil
	b := newTestBuilder(t, p, Options{})
	_, _, sec, types := encodeAll(t, b)

	assert.Empty(t, symbolsOfKind[*UDTSym](sec.Symbols))
	procs := symbolsOfKind[*ProcSym](sec.Symbols)
	require.Len(t, procs, 1)
	rec, ok := types.Record(procs[0].Type)
	require.True(t, ok)
	assert.IsType(t, &tpi.ProcedureRecord{}, rec)
}

func TestBuildUnresolvedForwardRef(t *testing.T) {
	p := fooProvider()
	p.types[0].Fields = append(p.types[0].Fields, debuginfo.FieldInfo{Name: "next", Type: "Bar", Offset: 8})
	b := newTestBuilder(t, p, Options{})
	err := b.Build()
	require.ErrorIs(t, err, tpi.ErrUnresolvedForwardRef)
	assert.Contains(t, err.Error(), "Bar")
}

func TestBuildIsDeterministic(t *testing.T) {
	first, firstRelocs, _, _ := encodeAll(t, newTestBuilder(t, fooProvider(), Options{HashOverloads: true}))
	second, secondRelocs, _, _ := encodeAll(t, newTestBuilder(t, fooProvider(), Options{HashOverloads: true}))
	assert.Equal(t, first, second)
	assert.Equal(t, firstRelocs, secondRelocs)
}
