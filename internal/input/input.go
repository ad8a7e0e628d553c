// Package input reads compilation units described in YAML.
package input

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/skdltmxn/codeview-go/debuginfo"
)

// ErrEmpty indicates a document with neither methods nor types.
var ErrEmpty = errors.New("input: document declares no methods or types")

// Unit is one compilation unit: the compiled methods and the types they
// refer to. It implements debuginfo.Provider.
type Unit struct {
	Methods []debuginfo.CompiledMethod `yaml:"methods"`
	TypeSet []debuginfo.TypeInfo       `yaml:"types"`
}

func (u *Unit) CompiledMethods() iter.Seq[debuginfo.CompiledMethod] {
	return slices.Values(u.Methods)
}

func (u *Unit) Types() iter.Seq[debuginfo.TypeInfo] { return slices.Values(u.TypeSet) }

// Load reads a unit from a file.
func Load(path string) (*Unit, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("input: %w", err)
	}
	defer f.Close()

	u, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("input: %s: %w", path, err)
	}
	return u, nil
}

// Parse decodes a unit. Unknown keys are rejected.
func Parse(r io.Reader) (*Unit, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var u Unit
	if err := dec.Decode(&u); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmpty
		}
		return nil, err
	}
	if len(u.Methods) == 0 && len(u.TypeSet) == 0 {
		return nil, ErrEmpty
	}
	return &u, nil
}
