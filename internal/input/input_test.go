package input

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skdltmxn/codeview-go/debuginfo"
)

const hello = `
methods:
  - file: hello/Hello.java
    class: hello.Hello
    method: main
    symbol: hello_Hello_main
    params: ["java.lang.String[]"]
    returns: void
    modifiers: [public, static]
    lo: 0x1000
    hi: 0x1080
    line: 5
    frame_size: 32
    inlined:
      - {lo: 0x10, hi: 0x20, file: hello/Hello.java, class: hello.Hello, method: main, line: 6}
    locals:
      - name: args
        type: "java.lang.String[]"
        param: true
        ranges:
          - lo: 0
            hi: 0x80
            location: {kind: register, register: rdi}
          - lo: 0x80
            hi: 0x90
            location: {kind: stack, offset: 16}
types:
  - kind: class
    name: hello.Hello
    size: 16
    fields:
      - {name: count, type: int, offset: 12, modifiers: [private, static]}
    methods:
      - {name: main, params: ["java.lang.String[]"], returns: void, modifiers: [public, static]}
  - kind: array
    name: "java.lang.String[]"
    element: java.lang.String
    size: 16
`

func TestParse(t *testing.T) {
	u, err := Parse(strings.NewReader(hello))
	require.NoError(t, err)

	methods := slices.Collect(u.CompiledMethods())
	require.Len(t, methods, 1)
	m := methods[0]
	assert.Equal(t, "hello.Hello", m.ClassName)
	assert.Equal(t, uint64(0x1000), m.Lo)
	assert.Equal(t, uint64(0x1080), m.Hi)
	assert.Equal(t, debuginfo.ModPublic|debuginfo.ModStatic, m.Modifiers)
	assert.Equal(t, uint32(32), m.FrameSize)
	require.Len(t, m.Inlined, 1)
	assert.Equal(t, 6, m.Inlined[0].Line)

	require.Len(t, m.Locals, 1)
	ranges := m.Locals[0].Ranges
	require.Len(t, ranges, 2)
	assert.Equal(t, debuginfo.Location{Kind: debuginfo.LocationRegister, Register: "rdi"}, ranges[0].Location)
	assert.Equal(t, debuginfo.Location{Kind: debuginfo.LocationStack, Offset: 16}, ranges[1].Location)

	types := slices.Collect(u.Types())
	require.Len(t, types, 2)
	assert.Equal(t, debuginfo.KindClass, types[0].Kind)
	assert.True(t, types[0].Fields[0].Modifiers.IsStatic())
	assert.Equal(t, debuginfo.KindArray, types[1].Kind)
	assert.Equal(t, "java.lang.String", types[1].Element)

	info, err := debuginfo.Build(u, debuginfo.Options{})
	require.NoError(t, err)
	assert.Len(t, info.Classes(), 1)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty", ""},
		{"no content", "methods: []\n"},
		{"unknown key", "methods:\n  - clas: Foo\n"},
		{"unknown modifier", "types:\n  - {kind: class, name: A, fields: [{name: f, type: int, modifiers: [volatile]}]}\n"},
		{"unknown kind", "types:\n  - {kind: union, name: A}\n"},
		{"unknown location", "methods:\n  - {class: A, method: m, locals: [{name: x, type: int, ranges: [{lo: 0, hi: 1, location: {kind: memory}}]}]}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.doc))
			assert.Error(t, err)
		})
	}

	_, err := Parse(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(hello), 0o644))
	u, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, u.Methods, 1)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
