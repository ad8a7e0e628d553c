// Package coff reads and writes the AMD64 COFF object files that carry
// CodeView debug sections.
package coff

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// MachineAMD64 is IMAGE_FILE_MACHINE_AMD64.
const MachineAMD64 uint16 = 0x8664

// Sizes of the fixed on-disk structures.
const (
	FileHeaderSize    = 20
	SectionHeaderSize = 40
	RelocationSize    = 10
	SymbolSize        = 18
)

// Section characteristics
const (
	SectionCntInitializedData uint32 = 0x00000040
	SectionAlign1Bytes        uint32 = 0x00100000
	SectionMemDiscardable     uint32 = 0x02000000
	SectionMemRead            uint32 = 0x40000000

	// DebugSectionFlags are the characteristics of .debug$S and .debug$T.
	DebugSectionFlags = SectionCntInitializedData | SectionAlign1Bytes | SectionMemDiscardable | SectionMemRead
)

// Symbol storage classes
const (
	SymClassExternal uint8 = 2
	SymClassStatic   uint8 = 3
)

// Errors returned while reading an object file
var (
	ErrTruncatedFile      = errors.New("coff: file is truncated")
	ErrUnsupportedMachine = errors.New("coff: unsupported machine type")
	ErrSectionNotFound    = errors.New("coff: section not found")
	ErrBadSymbolIndex     = errors.New("coff: relocation symbol index out of range")
)

// FileHeader is the IMAGE_FILE_HEADER at offset 0 of an object file.
type FileHeader struct {
	Machine              uint16
	NumberOfSections     uint16
	TimeDateStamp        uint32
	PointerToSymbolTable uint32
	NumberOfSymbols      uint32
	SizeOfOptionalHeader uint16
	Characteristics      uint16
}

// SectionHeader is an IMAGE_SECTION_HEADER.
type SectionHeader struct {
	// Name holds the name inline, or "/" and a decimal string table
	// offset for names longer than eight bytes.
	Name                 [8]byte
	VirtualSize          uint32
	VirtualAddress       uint32
	SizeOfRawData        uint32
	PointerToRawData     uint32
	PointerToRelocations uint32
	PointerToLinenumbers uint32
	NumberOfRelocations  uint16
	NumberOfLinenumbers  uint16
	Characteristics      uint32
}

// RelocationEntry is an IMAGE_RELOCATION.
type RelocationEntry struct {
	VirtualAddress   uint32
	SymbolTableIndex uint32
	Type             uint16
}

// SymbolEntry is an IMAGE_SYMBOL. A name longer than eight bytes is
// stored as four zero bytes followed by a string table offset.
type SymbolEntry struct {
	Name               [8]byte
	Value              uint32
	SectionNumber      int16
	Type               uint16
	StorageClass       uint8
	NumberOfAuxSymbols uint8
}

// ReadFileHeader reads and validates the file header.
func ReadFileHeader(r io.Reader) (*FileHeader, error) {
	var h FileHeader
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, ErrTruncatedFile
		}
		return nil, fmt.Errorf("coff: failed to read file header: %w", err)
	}
	if h.Machine != MachineAMD64 {
		return nil, fmt.Errorf("%w: 0x%04x", ErrUnsupportedMachine, h.Machine)
	}
	return &h, nil
}

// inlineName reports whether name fits an 8-byte name field, and
// returns that field.
func inlineName(name string) ([8]byte, bool) {
	var field [8]byte
	if len(name) > len(field) {
		return field, false
	}
	copy(field[:], name)
	return field, true
}
