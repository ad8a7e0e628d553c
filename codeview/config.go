package codeview

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"
)

// EnvPair is one entry of the S_ENVBLOCK environment block.
type EnvPair struct {
	Key   string `yaml:"key"`
	Value string `yaml:"value"`
}

// Config controls how an Emitter names and lays out debug information.
type Config struct {
	ObjectName      string    `yaml:"object_name"`
	CompilerName    string    `yaml:"compiler_name"`
	CompilerVersion string    `yaml:"compiler_version"`
	Environment     []EnvPair `yaml:"environment"`

	// EntryMethod ("Class.method") is displayed as EntryName.
	EntryMethod string `yaml:"entry_method"`
	EntryName   string `yaml:"entry_name"`

	// OmitInternalCode folds line ranges of classes whose name starts
	// with one of InternalPrefixes into the enclosing range.
	OmitInternalCode bool     `yaml:"omit_internal_code"`
	InternalPrefixes []string `yaml:"internal_prefixes"`

	MergeAdjacentLines bool `yaml:"merge_adjacent_lines"`
	HashOverloads      bool `yaml:"hash_overloads"`

	UseHeapBase    bool   `yaml:"use_heap_base"`
	HeapBaseSymbol string `yaml:"heap_base_symbol"`

	SourceRoots []string `yaml:"source_roots"`
	SourcePaths []string `yaml:"source_paths"`

	Logger *slog.Logger `yaml:"-"`
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		ObjectName:         "out.obj",
		CompilerName:       "cvgen",
		CompilerVersion:    "1.0.0",
		EntryName:          "main",
		OmitInternalCode:   true,
		InternalPrefixes:   []string{"jdk.internal.", "sun."},
		MergeAdjacentLines: true,
		HashOverloads:      true,
		HeapBaseSymbol:     "__svm_heap_base",
	}
}

// LoadConfig reads a YAML configuration. Keys absent from the file keep
// their DefaultConfig values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("codeview: read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the fields that are parsed rather than copied.
func (c *Config) Validate() error {
	if _, err := c.versionFields(); err != nil {
		return err
	}
	if c.EntryMethod != "" && c.EntryName == "" {
		return fmt.Errorf("%w: entry_method %q has no entry_name", ErrInvalidConfig, c.EntryMethod)
	}
	if !c.UseHeapBase && c.HeapBaseSymbol == "" {
		return fmt.Errorf("%w: heap_base_symbol is required unless use_heap_base is set", ErrInvalidConfig)
	}
	return nil
}

// versionFields maps the compiler version to the S_COMPILE3
// major/minor/build/QFE quadruple.
func (c *Config) versionFields() ([4]uint16, error) {
	var out [4]uint16
	if c.CompilerVersion == "" {
		return out, nil
	}
	v, err := semver.NewVersion(c.CompilerVersion)
	if err != nil {
		return out, fmt.Errorf("%w: compiler_version %q: %v", ErrInvalidConfig, c.CompilerVersion, err)
	}
	for i, n := range []uint64{v.Major(), v.Minor(), v.Patch()} {
		if n > 0xFFFF {
			return out, fmt.Errorf("%w: compiler_version %q: component exceeds 65535", ErrInvalidConfig, c.CompilerVersion)
		}
		out[i] = uint16(n)
	}
	return out, nil
}

func (c *Config) isInternal(className string) bool {
	for _, p := range c.InternalPrefixes {
		if strings.HasPrefix(className, p) {
			return true
		}
	}
	return false
}

func (c *Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.New(slog.DiscardHandler)
}
