package coff

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// File represents an opened object file.
type File struct {
	FileHeader
	Sections []*Section
	Symbols  []Symbol

	closer io.Closer // nil when opened from a caller's reader
}

// Section is one section of an opened object file.
type Section struct {
	SectionHeader
	Name        string
	Relocations []Relocation

	r io.ReaderAt
}

// Symbol is a resolved symbol table entry.
type Symbol struct {
	Name          string
	Value         uint32
	SectionNumber int16
	StorageClass  uint8
}

// Open opens an object file from the given path.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("coff: failed to open file: %w", err)
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("coff: failed to stat file: %w", err)
	}

	file, err := NewFile(f, stat.Size())
	if err != nil {
		f.Close()
		return nil, err
	}

	file.closer = f
	return file, nil
}

// NewFile reads the headers, symbols and relocations of an object file
// from r. Section data is read on demand.
func NewFile(r io.ReaderAt, size int64) (*File, error) {
	sr := io.NewSectionReader(r, 0, size)
	h, err := ReadFileHeader(sr)
	if err != nil {
		return nil, err
	}
	if _, err := sr.Seek(int64(h.SizeOfOptionalHeader), io.SeekCurrent); err != nil {
		return nil, err
	}

	headers := make([]SectionHeader, h.NumberOfSections)
	if err := binary.Read(sr, binary.LittleEndian, headers); err != nil {
		return nil, ErrTruncatedFile
	}

	f := &File{FileHeader: *h}
	strtab, rawSyms, err := readSymbols(r, size, h)
	if err != nil {
		return nil, err
	}
	for i := range rawSyms {
		s := &rawSyms[i]
		f.Symbols = append(f.Symbols, Symbol{
			Name:          symbolName(s.Name, strtab),
			Value:         s.Value,
			SectionNumber: s.SectionNumber,
			StorageClass:  s.StorageClass,
		})
	}

	for _, sh := range headers {
		sec := &Section{SectionHeader: sh, Name: sectionName(sh.Name, strtab), r: r}
		if int64(sh.PointerToRawData)+int64(sh.SizeOfRawData) > size {
			return nil, fmt.Errorf("%w: section %s data", ErrTruncatedFile, sec.Name)
		}
		if sh.NumberOfRelocations > 0 {
			entries := make([]RelocationEntry, sh.NumberOfRelocations)
			rr := io.NewSectionReader(r, int64(sh.PointerToRelocations), int64(RelocationSize*len(entries)))
			if err := binary.Read(rr, binary.LittleEndian, entries); err != nil {
				return nil, fmt.Errorf("%w: section %s relocations", ErrTruncatedFile, sec.Name)
			}
			for _, e := range entries {
				if int(e.SymbolTableIndex) >= len(f.Symbols) {
					return nil, fmt.Errorf("%w: %d", ErrBadSymbolIndex, e.SymbolTableIndex)
				}
				sec.Relocations = append(sec.Relocations, Relocation{
					Offset: e.VirtualAddress,
					Symbol: f.Symbols[e.SymbolTableIndex].Name,
					Type:   e.Type,
				})
			}
		}
		f.Sections = append(f.Sections, sec)
	}
	return f, nil
}

// readSymbols returns the string table and the raw symbol entries. Aux
// records are kept in place so indices stay valid.
func readSymbols(r io.ReaderAt, size int64, h *FileHeader) ([]byte, []SymbolEntry, error) {
	if h.PointerToSymbolTable == 0 {
		return nil, nil, nil
	}
	symEnd := int64(h.PointerToSymbolTable) + int64(SymbolSize)*int64(h.NumberOfSymbols)
	if symEnd+4 > size {
		return nil, nil, fmt.Errorf("%w: symbol table", ErrTruncatedFile)
	}
	syms := make([]SymbolEntry, h.NumberOfSymbols)
	sr := io.NewSectionReader(r, int64(h.PointerToSymbolTable), symEnd-int64(h.PointerToSymbolTable))
	if err := binary.Read(sr, binary.LittleEndian, syms); err != nil {
		return nil, nil, fmt.Errorf("%w: symbol table", ErrTruncatedFile)
	}

	var sizeField [4]byte
	if _, err := r.ReadAt(sizeField[:], symEnd); err != nil {
		return nil, nil, fmt.Errorf("%w: string table", ErrTruncatedFile)
	}
	n := int64(binary.LittleEndian.Uint32(sizeField[:]))
	if n < 4 || symEnd+n > size {
		return nil, nil, fmt.Errorf("%w: string table", ErrTruncatedFile)
	}
	strtab := make([]byte, n)
	if _, err := r.ReadAt(strtab, symEnd); err != nil {
		return nil, nil, fmt.Errorf("%w: string table", ErrTruncatedFile)
	}
	return strtab, syms, nil
}

func lookupString(strtab []byte, off uint32) string {
	if int(off) >= len(strtab) {
		return ""
	}
	s := strtab[off:]
	if i := bytes.IndexByte(s, 0); i >= 0 {
		s = s[:i]
	}
	return string(s)
}

func symbolName(field [8]byte, strtab []byte) string {
	if binary.LittleEndian.Uint32(field[:4]) == 0 {
		return lookupString(strtab, binary.LittleEndian.Uint32(field[4:]))
	}
	return cString(field[:])
}

func sectionName(field [8]byte, strtab []byte) string {
	name := cString(field[:])
	if off, ok := strings.CutPrefix(name, "/"); ok {
		if n, err := strconv.ParseUint(off, 10, 32); err == nil {
			return lookupString(strtab, uint32(n))
		}
	}
	return name
}

func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

// Close releases resources associated with the file.
func (f *File) Close() error {
	if f.closer != nil {
		return f.closer.Close()
	}
	return nil
}

// Section returns the first section named name.
func (f *File) Section(name string) (*Section, error) {
	for _, s := range f.Sections {
		if s.Name == name {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrSectionNotFound, name)
}

// Data reads the section's raw contents.
func (s *Section) Data() ([]byte, error) {
	data := make([]byte, s.SizeOfRawData)
	if len(data) == 0 {
		return data, nil
	}
	if _, err := s.r.ReadAt(data, int64(s.PointerToRawData)); err != nil {
		return nil, fmt.Errorf("coff: failed to read section %s: %w", s.Name, err)
	}
	return data, nil
}
