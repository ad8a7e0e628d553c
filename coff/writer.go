package coff

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// ErrTooManyRelocations indicates a section needing more relocations than
// the 16-bit header count holds.
var ErrTooManyRelocations = errors.New("coff: too many relocations in section")

// Relocation requests a fixup of Type at Offset within a section against
// the external symbol named Symbol.
type Relocation struct {
	Offset uint32
	Symbol string
	Type   uint16
}

type pendingSection struct {
	name            string
	data            []byte
	characteristics uint32
	relocs          []Relocation
}

// Writer assembles an AMD64 object file. Every symbol a relocation names
// becomes an external undefined symbol, numbered in first-use order.
type Writer struct {
	sections []pendingSection
	symbols  []string
	symIndex map[string]uint32
}

// NewWriter creates an empty object file writer.
func NewWriter() *Writer {
	return &Writer{symIndex: make(map[string]uint32)}
}

// AddSection appends a section. Data and relocations are not copied.
func (w *Writer) AddSection(name string, data []byte, characteristics uint32, relocs []Relocation) {
	w.sections = append(w.sections, pendingSection{name, data, characteristics, relocs})
	for _, r := range relocs {
		if _, ok := w.symIndex[r.Symbol]; !ok {
			w.symIndex[r.Symbol] = uint32(len(w.symbols))
			w.symbols = append(w.symbols, r.Symbol)
		}
	}
}

// stringTable is the COFF long-name table. Offsets count the leading
// 4-byte size field.
type stringTable struct {
	buf     bytes.Buffer
	offsets map[string]uint32
}

func (t *stringTable) add(s string) uint32 {
	if off, ok := t.offsets[s]; ok {
		return off
	}
	off := uint32(4 + t.buf.Len())
	t.buf.WriteString(s)
	t.buf.WriteByte(0)
	t.offsets[s] = off
	return off
}

// WriteTo writes the object file: headers, each section's data followed
// by its relocations, the symbol table, then the string table.
func (w *Writer) WriteTo(out io.Writer) (int64, error) {
	strtab := &stringTable{offsets: make(map[string]uint32)}
	headers := make([]SectionHeader, len(w.sections))

	off := uint32(FileHeaderSize + SectionHeaderSize*len(w.sections))
	for i, s := range w.sections {
		if len(s.relocs) > 0xFFFF {
			return 0, fmt.Errorf("%w: %s has %d", ErrTooManyRelocations, s.name, len(s.relocs))
		}
		h := &headers[i]
		if name, ok := inlineName(s.name); ok {
			h.Name = name
		} else {
			copy(h.Name[:], "/"+strconv.FormatUint(uint64(strtab.add(s.name)), 10))
		}
		h.SizeOfRawData = uint32(len(s.data))
		h.Characteristics = s.characteristics
		if len(s.data) > 0 {
			h.PointerToRawData = off
			off += uint32(len(s.data))
		}
		if len(s.relocs) > 0 {
			h.PointerToRelocations = off
			h.NumberOfRelocations = uint16(len(s.relocs))
			off += uint32(RelocationSize * len(s.relocs))
		}
	}

	syms := make([]SymbolEntry, len(w.symbols))
	for i, name := range w.symbols {
		sym := &syms[i]
		if field, ok := inlineName(name); ok {
			sym.Name = field
		} else {
			binary.LittleEndian.PutUint32(sym.Name[4:], strtab.add(name))
		}
		sym.StorageClass = SymClassExternal
	}

	var buf bytes.Buffer
	put := func(v any) {
		// bytes.Buffer writes cannot fail
		_ = binary.Write(&buf, binary.LittleEndian, v)
	}
	put(&FileHeader{
		Machine:              MachineAMD64,
		NumberOfSections:     uint16(len(w.sections)),
		PointerToSymbolTable: off,
		NumberOfSymbols:      uint32(len(syms)),
	})
	put(headers)
	for _, s := range w.sections {
		buf.Write(s.data)
		for _, r := range s.relocs {
			put(&RelocationEntry{VirtualAddress: r.Offset, SymbolTableIndex: w.symIndex[r.Symbol], Type: r.Type})
		}
	}
	put(syms)
	put(uint32(4 + strtab.buf.Len()))
	buf.Write(strtab.buf.Bytes())

	n, err := out.Write(buf.Bytes())
	return int64(n), err
}
