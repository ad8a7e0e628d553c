package symbols

import (
	"iter"
	"slices"
	"testing"

	"github.com/skdltmxn/codeview-go/debuginfo"
	"github.com/skdltmxn/codeview-go/internal/tpi"
	"github.com/stretchr/testify/require"
)

type sliceProvider struct {
	methods []debuginfo.CompiledMethod
	types   []debuginfo.TypeInfo
}

func (p sliceProvider) CompiledMethods() iter.Seq[debuginfo.CompiledMethod] {
	return slices.Values(p.methods)
}

func (p sliceProvider) Types() iter.Seq[debuginfo.TypeInfo] { return slices.Values(p.types) }

func buildInfo(t *testing.T, p sliceProvider) *debuginfo.Info {
	t.Helper()
	info, err := debuginfo.Build(p, debuginfo.Options{})
	require.NoError(t, err)
	return info
}

func primaryEntry(t *testing.T, m debuginfo.CompiledMethod) *debuginfo.PrimaryEntry {
	t.Helper()
	info := buildInfo(t, sliceProvider{methods: []debuginfo.CompiledMethod{m}})
	return info.Classes()[0].Primaries()[0]
}

func newTestBuilder(t *testing.T, p sliceProvider, opts Options) *Builder {
	t.Helper()
	info := buildInfo(t, p)
	strs := NewStringTable()
	return NewBuilder(info, tpi.NewBuilder(tpi.NewTable(), info), strs, NewFileTable(strs, nil), opts)
}
