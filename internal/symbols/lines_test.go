package symbols

import (
	"strings"
	"testing"

	"github.com/skdltmxn/codeview-go/debuginfo"
	"github.com/skdltmxn/codeview-go/internal/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var defaultPolicy = LinePolicy{
	MergeAdjacent: true,
	OmitInternal:  true,
	IsInternal:    func(class string) bool { return strings.HasPrefix(class, "jdk.internal.") },
}

func TestLinesSingleRange(t *testing.T) {
	pe := primaryEntry(t, debuginfo.CompiledMethod{
		File: "Foo.java", ClassName: "Foo", MethodName: "bar", Lo: 0x100, Hi: 0x140, Line: 10,
	})
	lr := BuildLines(pe, defaultPolicy)
	require.NotNil(t, lr)
	require.Len(t, lr.Blocks, 1)
	assert.Equal(t, []LineEntry{{Offset: 0, Line: 10}}, lr.Blocks[0].Lines)
	assert.Equal(t, uint32(0x40), lr.CodeSize)
}

func TestLinesMergeSameLine(t *testing.T) {
	m := debuginfo.CompiledMethod{
		File: "Foo.java", ClassName: "Foo", MethodName: "bar", Lo: 0x100, Hi: 0x140, Line: 10,
		Inlined: []debuginfo.LineInfo{
			{Lo: 0x00, Hi: 0x10, Line: 10},
			{Lo: 0x10, Hi: 0x20, Line: 10},
			{Lo: 0x20, Hi: 0x30, Line: 11},
		},
	}
	lr := BuildLines(primaryEntry(t, m), defaultPolicy)
	require.NotNil(t, lr)
	require.Len(t, lr.Blocks, 1)
	assert.Equal(t, []LineEntry{{0, 10}, {0x20, 11}}, lr.Blocks[0].Lines)

	noMerge := defaultPolicy
	noMerge.MergeAdjacent = false
	lr = BuildLines(primaryEntry(t, m), noMerge)
	assert.Len(t, lr.Blocks[0].Lines, 4)
}

func TestLinesUnknownLineDropped(t *testing.T) {
	lr := BuildLines(primaryEntry(t, debuginfo.CompiledMethod{
		File: "Foo.java", ClassName: "Foo", MethodName: "bar", Lo: 0, Hi: 0x10, Line: -1,
	}), defaultPolicy)
	assert.Nil(t, lr)

	lr = BuildLines(primaryEntry(t, debuginfo.CompiledMethod{
		File: "Foo.java", ClassName: "Foo", MethodName: "bar", Lo: 0, Hi: 0x30, Line: 5,
		Inlined: []debuginfo.LineInfo{
			{Lo: 0x10, Hi: 0x18, Line: -1},
			{Lo: 0x18, Hi: 0x20, File: "Other.java", Line: -1},
			{Lo: 0x20, Hi: 0x30, Line: 6},
		},
	}), defaultPolicy)
	require.NotNil(t, lr)
	require.Len(t, lr.Blocks, 1)
	assert.Equal(t, []LineEntry{{0, 5}, {0x20, 6}}, lr.Blocks[0].Lines)
}

func TestLinesInternalClassAbsorbed(t *testing.T) {
	m := debuginfo.CompiledMethod{
		File: "Foo.java", ClassName: "Foo", MethodName: "bar", Lo: 0x1000, Hi: 0x1100, Line: 10,
		Inlined: []debuginfo.LineInfo{
			{Lo: 0x00, Hi: 0x10, Line: 10},
			{Lo: 0x10, Hi: 0xF0, File: "jdk/internal/Unsafe.java", ClassName: "jdk.internal.Unsafe", MethodName: "get", Line: 99},
		},
	}
	lr := BuildLines(primaryEntry(t, m), LinePolicy{OmitInternal: true, IsInternal: defaultPolicy.IsInternal})
	require.NotNil(t, lr)
	require.Len(t, lr.Blocks, 1)
	assert.Equal(t, "Foo.java", lr.Blocks[0].File.Path())
	assert.Len(t, lr.Blocks[0].Lines, 2)
	assert.Equal(t, uint32(0x100), lr.CodeSize)

	lr = BuildLines(primaryEntry(t, m), LinePolicy{})
	require.Len(t, lr.Blocks, 2)
	assert.Equal(t, "jdk/internal/Unsafe.java", lr.Blocks[1].File.Path())
	assert.Equal(t, []LineEntry{{0x10, 99}}, lr.Blocks[1].Lines)
}

func TestLinesNewBlockOnFileChange(t *testing.T) {
	lr := BuildLines(primaryEntry(t, debuginfo.CompiledMethod{
		File: "A.java", ClassName: "A", MethodName: "m", Lo: 0, Hi: 0x40, Line: 1,
		Inlined: []debuginfo.LineInfo{
			{Lo: 0x08, Hi: 0x10, File: "B.java", ClassName: "B", Line: 7},
			{Lo: 0x10, Hi: 0x18, File: "B.java", ClassName: "B", Line: 8},
			{Lo: 0x18, Hi: 0x20, Line: 2},
		},
	}), defaultPolicy)
	require.Len(t, lr.Blocks, 3)
	assert.Equal(t, "A.java", lr.Blocks[0].File.Path())
	assert.Equal(t, "B.java", lr.Blocks[1].File.Path())
	assert.Len(t, lr.Blocks[1].Lines, 2)
	assert.Equal(t, "A.java", lr.Blocks[2].File.Path())
}

func TestLinesEncodeBackPatchesCodeSize(t *testing.T) {
	lr := BuildLines(primaryEntry(t, debuginfo.CompiledMethod{
		File: "A.java", ClassName: "A", MethodName: "m", Lo: 0x200, Hi: 0x230, Line: 3,
	}), defaultPolicy)
	lr.Symbol = "A_m"
	lr.Blocks[0].FileOffset = 24

	buf, relocs, err := stream.Encode(lr.encode)
	require.NoError(t, err)
	assert.Equal(t, []byte{
		0, 0, 0, 0, // offset, relocated
		0, 0, // segment, relocated
		0, 0, // flags
		0x30, 0, 0, 0, // code size
		24, 0, 0, 0, // file offset
		1, 0, 0, 0, // line count
		20, 0, 0, 0, // block size
		0, 0, 0, 0, // offset
		3, 0, 0, 0x80, // line | statement
	}, buf)
	assert.Equal(t, []stream.Relocation{
		{Offset: 0, Symbol: "A_m", Kind: IMAGE_REL_AMD64_SECREL},
		{Offset: 4, Symbol: "A_m", Kind: IMAGE_REL_AMD64_SECTION},
	}, relocs)
}
