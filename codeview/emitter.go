package codeview

import (
	"log/slog"

	"github.com/dustin/go-humanize"

	"github.com/skdltmxn/codeview-go/debuginfo"
	"github.com/skdltmxn/codeview-go/internal/stream"
	"github.com/skdltmxn/codeview-go/internal/symbols"
	"github.com/skdltmxn/codeview-go/internal/tpi"
)

// Section names in the object file.
const (
	SymbolsSection = ".debug$S"
	TypesSection   = ".debug$T"
)

// AMD64 relocation types requested by the symbol section.
const (
	RelocSection = symbols.IMAGE_REL_AMD64_SECTION
	RelocSecRel  = symbols.IMAGE_REL_AMD64_SECREL
)

// Relocation asks the object writer to patch the .debug$S bytes at Offset
// with the section index (RelocSection) or section-relative offset
// (RelocSecRel) of Symbol.
type Relocation struct {
	Offset uint32
	Symbol string
	Kind   uint16
}

// Sections is the encoded debug information of one compilation unit.
type Sections struct {
	Symbols     []byte
	Types       []byte
	Relocations []Relocation
}

// Emitter encodes compilation units. An Emitter holds no per-unit state
// and may be reused, but a single Encode call is not safe to share.
type Emitter struct {
	cfg     Config
	version [4]uint16
	log     *slog.Logger
}

// NewEmitter validates cfg and returns an Emitter using it.
func NewEmitter(cfg Config) (*Emitter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	version, err := cfg.versionFields()
	if err != nil {
		return nil, err
	}
	return &Emitter{cfg: cfg, version: version, log: cfg.logger()}, nil
}

// Encode builds the intermediate model from p and encodes both sections.
func (e *Emitter) Encode(p debuginfo.Provider) (*Sections, error) {
	info, err := debuginfo.Build(p, debuginfo.Options{SourceRoots: e.cfg.SourceRoots})
	if err != nil {
		return nil, err
	}
	if len(info.Classes()) == 0 && len(info.Types()) == 0 {
		return nil, ErrNoInput
	}

	types := tpi.NewBuilder(tpi.NewTable(), info)
	strs := symbols.NewStringTable()
	var checksum symbols.ChecksumFunc
	if len(e.cfg.SourcePaths) > 0 {
		checksum = symbols.MD5Checksum(e.cfg.SourcePaths)
	}
	files := symbols.NewFileTable(strs, checksum)

	b := symbols.NewBuilder(info, types, strs, files, e.symbolOptions())
	if err := b.Build(); err != nil {
		return nil, encodeError(SymbolsSection, err)
	}
	symData, relocs, err := b.Encode()
	if err != nil {
		return nil, encodeError(SymbolsSection, err)
	}
	typeData, err := types.Table().Encode()
	if err != nil {
		return nil, encodeError(TypesSection, err)
	}

	e.log.Debug("encoded compilation unit",
		slog.String("object", e.cfg.ObjectName),
		slog.Int("classes", len(info.Classes())),
		slog.Int("types", types.Table().Len()),
		slog.String("symbols_size", humanize.Bytes(uint64(len(symData)))),
		slog.String("types_size", humanize.Bytes(uint64(len(typeData)))))

	return &Sections{
		Symbols:     symData,
		Types:       typeData,
		Relocations: convertRelocations(relocs),
	}, nil
}

func (e *Emitter) symbolOptions() symbols.Options {
	env := make([]symbols.EnvPair, len(e.cfg.Environment))
	for i, p := range e.cfg.Environment {
		env[i] = symbols.EnvPair{Key: p.Key, Value: p.Value}
	}
	return symbols.Options{
		ObjectName:      e.cfg.ObjectName,
		CompilerName:    e.cfg.CompilerName,
		FrontendVersion: e.version,
		BackendVersion:  e.version,
		Environment:     env,
		EntryMethod:     e.cfg.EntryMethod,
		EntryName:       e.cfg.EntryName,
		HashOverloads:   e.cfg.HashOverloads,
		Lines: symbols.LinePolicy{
			MergeAdjacent: e.cfg.MergeAdjacentLines,
			OmitInternal:  e.cfg.OmitInternalCode,
			IsInternal:    e.cfg.isInternal,
		},
		UseHeapBase:    e.cfg.UseHeapBase,
		HeapBaseSymbol: e.cfg.HeapBaseSymbol,
		Logger:         e.log,
	}
}

func convertRelocations(in []stream.Relocation) []Relocation {
	out := make([]Relocation, len(in))
	for i, r := range in {
		out[i] = Relocation(r)
	}
	return out
}
