package symbols

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/skdltmxn/codeview-go/debuginfo"
	"github.com/skdltmxn/codeview-go/internal/tpi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reg(name string) debuginfo.Location {
	return debuginfo.Location{Kind: debuginfo.LocationRegister, Register: name}
}

func stack(off int32) debuginfo.Location {
	return debuginfo.Location{Kind: debuginfo.LocationStack, Offset: off}
}

func emit(t *testing.T, b *Builder, l debuginfo.LocalInfo) []Subrecord {
	t.Helper()
	before := len(b.Symbols())
	require.NoError(t, b.emitLocal(&function{name: "Foo::bar", linkage: "Foo_bar"}, &l))
	return b.Symbols()[before:]
}

func TestEmitLocalMergesContiguousRanges(t *testing.T) {
	b := newTestBuilder(t, sliceProvider{}, Options{})
	recs := emit(t, b, debuginfo.LocalInfo{Name: "i", Type: "int", Ranges: []debuginfo.LocalRange{
		{Lo: 0x00, Hi: 0x10, Location: reg("rbx")},
		{Lo: 0x10, Hi: 0x20, Location: reg("rbx")},
		{Lo: 0x20, Hi: 0x30, Location: reg("RBX")},
	}})
	require.Len(t, recs, 2)
	assert.Equal(t, &LocalSym{Type: tpi.TypeInt32, Name: "i"}, recs[0])
	assert.Equal(t, &DefRangeRegisterSym{
		Register: 329,
		Range:    AddrRange{Symbol: "Foo_bar", Offset: 0, Length: 0x30},
	}, recs[1])
}

func TestEmitLocalSplitsOnLocationOrGap(t *testing.T) {
	b := newTestBuilder(t, sliceProvider{}, Options{})
	recs := emit(t, b, debuginfo.LocalInfo{Name: "x", Type: "long", Param: true, Ranges: []debuginfo.LocalRange{
		{Lo: 0x00, Hi: 0x10, Location: reg("rdi")},
		{Lo: 0x10, Hi: 0x20, Location: stack(24)},
		{Lo: 0x28, Hi: 0x30, Location: stack(24)},
		{Lo: 0x30, Hi: 0x30, Location: reg("rax")},
	}})
	require.Len(t, recs, 4)
	assert.True(t, recs[0].(*LocalSym).Flags.IsParam())
	assert.Equal(t, uint16(333), recs[1].(*DefRangeRegisterSym).Register)
	fp := recs[2].(*DefRangeFramePointerRelSym)
	assert.Equal(t, int32(24), fp.Offset)
	assert.Equal(t, AddrRange{Symbol: "Foo_bar", Offset: 0x10, Length: 0x10}, fp.Range)
	assert.Equal(t, uint32(0x28), recs[3].(*DefRangeFramePointerRelSym).Range.Offset)
}

func TestEmitLocalClampsLongRange(t *testing.T) {
	b := newTestBuilder(t, sliceProvider{}, Options{})
	recs := emit(t, b, debuginfo.LocalInfo{Name: "big", Type: "int", Ranges: []debuginfo.LocalRange{
		{Lo: 0x00000, Hi: 0x08000, Location: reg("r12")},
		{Lo: 0x08000, Hi: 0x10000, Location: reg("r12")},
		{Lo: 0x10000, Hi: 0x18000, Location: reg("r12")},
		{Lo: 0x20000, Hi: 0x20010, Location: reg("r13")},
	}})
	require.Len(t, recs, 2)
	assert.Equal(t, uint16(0xFFFF), recs[1].(*DefRangeRegisterSym).Range.Length)

	recs = emit(t, b, debuginfo.LocalInfo{Name: "huge", Type: "int", Ranges: []debuginfo.LocalRange{
		{Lo: 0, Hi: 0x20000, Location: stack(8)},
		{Lo: 0x20000, Hi: 0x20010, Location: stack(16)},
	}})
	require.Len(t, recs, 2)
	assert.Equal(t, uint16(0xFFFF), recs[1].(*DefRangeFramePointerRelSym).Range.Length)
}

func TestEmitLocalSkipsUnmappedRegister(t *testing.T) {
	var logs bytes.Buffer
	b := newTestBuilder(t, sliceProvider{}, Options{Logger: slog.New(slog.NewTextHandler(&logs, nil))})
	recs := emit(t, b, debuginfo.LocalInfo{Name: "v", Type: "double", Ranges: []debuginfo.LocalRange{
		{Lo: 0x00, Hi: 0x10, Location: reg("xmm3")},
		{Lo: 0x10, Hi: 0x20, Location: reg("k1")},
		{Lo: 0x20, Hi: 0x30, Location: reg("xmm3")},
	}})
	require.Len(t, recs, 3)
	assert.Equal(t, uint16(157), recs[1].(*DefRangeRegisterSym).Register)
	assert.Equal(t, uint32(0x20), recs[2].(*DefRangeRegisterSym).Range.Offset)
	assert.Contains(t, logs.String(), "unmapped register")
	assert.Contains(t, logs.String(), "register=k1")
}

func TestEmitLocalSkipsConstants(t *testing.T) {
	b := newTestBuilder(t, sliceProvider{}, Options{})
	recs := emit(t, b, debuginfo.LocalInfo{Name: "K", Type: "int", Constant: true})
	assert.Empty(t, recs)
}

func TestRegisterIDs(t *testing.T) {
	for name, want := range map[string]uint16{
		"rax": 328, "rsp": 335, "r8": 336, "r14": CV_AMD64_R14, "r15": 343,
		"xmm0": 154, "xmm7": 161, "xmm8": 252, "xmm15": 259,
	} {
		got, ok := RegisterID(name)
		require.True(t, ok, name)
		assert.Equal(t, want, got, name)
	}
	_, ok := RegisterID("eax")
	assert.False(t, ok)
}
