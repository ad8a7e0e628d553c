package codeview

import (
	"io"

	"github.com/skdltmxn/codeview-go/coff"
)

// WriteObject writes s as an AMD64 object file holding the .debug$S and
// .debug$T sections. Relocation symbols become external undefined
// symbols for the linker to resolve.
func (s *Sections) WriteObject(w io.Writer) (int64, error) {
	relocs := make([]coff.Relocation, len(s.Relocations))
	for i, r := range s.Relocations {
		relocs[i] = coff.Relocation{Offset: r.Offset, Symbol: r.Symbol, Type: r.Kind}
	}
	obj := coff.NewWriter()
	obj.AddSection(SymbolsSection, s.Symbols, coff.DebugSectionFlags, relocs)
	obj.AddSection(TypesSection, s.Types, coff.DebugSectionFlags, nil)
	return obj.WriteTo(w)
}
