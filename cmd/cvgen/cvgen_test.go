package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const unit = `
methods:
  - file: Foo.java
    class: Foo
    method: bar
    symbol: Foo_bar
    returns: void
    lo: 0x100
    hi: 0x140
    line: 10
types:
  - kind: class
    name: Foo
    size: 16
    fields:
      - {name: x, type: int, offset: 0, modifiers: [static]}
    methods:
      - {name: bar, returns: void}
`

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(append(args, "--no-color"))
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func resetFlags() {
	buildConfig, buildOutDir, buildWatch = "", ".", false
	inspectTypes, inspectSymbols, inspectLines = false, false, false
}

func TestBuildAndInspect(t *testing.T) {
	t.Cleanup(resetFlags)
	dir := t.TempDir()
	in := filepath.Join(dir, "foo.yaml")
	require.NoError(t, os.WriteFile(in, []byte(unit), 0o644))
	second := filepath.Join(dir, "bar.yaml")
	require.NoError(t, os.WriteFile(second, []byte(unit), 0o644))
	outDir := filepath.Join(dir, "out")

	out := execute(t, "build", "-d", outDir, in, second)
	assert.Contains(t, out, "foo.obj")
	assert.Contains(t, out, "bar.obj")
	assert.Contains(t, out, "6 relocations")
	assert.FileExists(t, filepath.Join(outDir, "foo.obj"))

	out = execute(t, "inspect", filepath.Join(outDir, "foo.obj"))
	for _, want := range []string{".debug$S", ".debug$T", "LF_CLASS", "S_GPROC32", "Foo::bar", "Foo::x", "Foo.java"} {
		assert.Contains(t, out, want)
	}

	out = execute(t, "inspect", "--lines", filepath.Join(outDir, "foo.obj"))
	assert.Contains(t, out, "+0x0")
	assert.NotContains(t, out, "S_GPROC32")
}

func TestBuildWithConfig(t *testing.T) {
	t.Cleanup(resetFlags)
	dir := t.TempDir()
	in := filepath.Join(dir, "foo.yaml")
	require.NoError(t, os.WriteFile(in, []byte(unit), 0o644))
	cfg := filepath.Join(dir, "cvgen.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("use_heap_base: true\nentry_method: Foo.bar\nentry_name: start\n"), 0o644))

	execute(t, "build", "-c", cfg, "-d", dir, in)
	out := execute(t, "inspect", "--symbols", filepath.Join(dir, "foo.obj"))
	assert.Contains(t, out, "S_REGREL32")
	assert.Contains(t, out, "start")
	assert.NotContains(t, out, "Foo::bar")
}

func TestBuildRejectsBadInput(t *testing.T) {
	t.Cleanup(resetFlags)
	dir := t.TempDir()
	in := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(in, []byte("methods: []\n"), 0o644))

	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"build", "-d", dir, in})
	assert.Error(t, rootCmd.Execute())
}

func TestVersion(t *testing.T) {
	out := execute(t, "version")
	assert.Contains(t, out, "cvgen v0.1.0-dev")
	assert.Contains(t, out, "Pre-release: dev")
}
