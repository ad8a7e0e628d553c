package symbols

import (
	"fmt"
	"log/slog"

	"github.com/skdltmxn/codeview-go/debuginfo"
	"github.com/skdltmxn/codeview-go/internal/stream"
	"github.com/skdltmxn/codeview-go/internal/tpi"
)

// Options configures the symbol subsection builder.
type Options struct {
	ObjectName      string
	CompilerName    string
	FrontendVersion [4]uint16
	BackendVersion  [4]uint16
	Environment     []EnvPair

	// EntryMethod is the "Class.method" displayed as EntryName.
	EntryMethod   string
	EntryName     string
	HashOverloads bool
	Lines         LinePolicy

	// UseHeapBase addresses static fields relative to the heap base
	// register instead of relocating against HeapBaseSymbol.
	UseHeapBase    bool
	HeapBaseSymbol string

	Logger *slog.Logger
}

// Builder assembles the .debug$S section of one compilation unit.
type Builder struct {
	opts    Options
	info    *debuginfo.Info
	types   *tpi.Builder
	strings *StringTable
	files   *FileTable
	namer   *Namer
	log     *slog.Logger

	symbols []Subrecord
	lines   []*LineRecord
}

type function struct {
	entry   *debuginfo.PrimaryEntry
	name    string
	linkage string
}

// NewBuilder creates a Builder that takes type indices from types and
// registers source files in files.
func NewBuilder(info *debuginfo.Info, types *tpi.Builder, strings *StringTable, files *FileTable, opts Options) *Builder {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Builder{
		opts:    opts,
		info:    info,
		types:   types,
		strings: strings,
		files:   files,
		namer:   NewNamer(opts.EntryMethod, opts.EntryName, opts.HashOverloads),
		log:     log,
	}
}

func (b *Builder) add(rec Subrecord) {
	b.symbols = append(b.symbols, rec)
}

// Symbols returns the records added so far.
func (b *Builder) Symbols() []Subrecord { return b.symbols }

// Lines returns the line records added so far.
func (b *Builder) Lines() []*LineRecord { return b.lines }

// Build emits the prologue, then for every class its type, its functions
// and its static fields, then every declared type not reached through a
// class. It fails if a referenced class was never defined.
func (b *Builder) Build() error {
	b.add(&ObjNameSym{Name: b.opts.ObjectName})
	b.add(&Compile3Sym{
		Flags:           LanguageCxx,
		Machine:         MachineAMD64,
		FrontendVersion: b.opts.FrontendVersion,
		BackendVersion:  b.opts.BackendVersion,
		Version:         b.opts.CompilerName,
	})
	b.add(&EnvBlockSym{Pairs: b.opts.Environment})

	for _, ce := range b.info.Classes() {
		if err := b.emitClass(ce); err != nil {
			return err
		}
	}
	for i := range b.info.Types() {
		t := &b.info.Types()[i]
		if _, done := b.info.Class(t.Name); done {
			continue
		}
		if err := b.emitType(t); err != nil {
			return err
		}
	}
	return b.types.Table().Finalize()
}

func (b *Builder) emitType(t *debuginfo.TypeInfo) error {
	switch t.Kind {
	case debuginfo.KindPrimitive, debuginfo.KindPointer:
		return nil
	}
	ti, err := b.types.BuildType(t)
	if err != nil {
		return fmt.Errorf("symbols: type %s: %w", t.Name, err)
	}
	b.add(&UDTSym{Type: ti, Name: t.Name})
	return nil
}

func (b *Builder) emitClass(ce *debuginfo.ClassEntry) error {
	t, declared := b.info.Type(ce.Name())
	if declared {
		if err := b.emitType(t); err != nil {
			return err
		}
	}

	var last string
	for _, pe := range ce.Primaries() {
		name := b.namer.DisplayName(pe.Primary())
		if name == last {
			continue
		}
		last = name
		if err := b.emitFunction(pe, name, declared); err != nil {
			return fmt.Errorf("symbols: %s: %w", name, err)
		}
	}

	if declared {
		return b.emitStatics(t)
	}
	return nil
}

func (b *Builder) emitFunction(pe *debuginfo.PrimaryEntry, name string, member bool) error {
	m := pe.Method()
	fn := &function{entry: pe, name: name, linkage: m.SymbolName}
	if fn.linkage == "" {
		fn.linkage = name
	}

	var typ tpi.TypeIndex
	var err error
	if member {
		typ, err = b.types.MethodType(m.ClassName, m.Modifiers.IsStatic(), m.ReturnType, m.ParamTypes)
	} else {
		typ, err = b.types.ProcedureType(m.ReturnType, m.ParamTypes)
	}
	if err != nil {
		return err
	}

	size := uint32(pe.Primary().Size())
	b.add(&ProcSym{
		Length:      size,
		DebugEnd:    size,
		Type:        typ,
		LinkageName: fn.linkage,
		Name:        name,
	})
	b.add(&FrameProcSym{
		TotalFrameBytes: m.FrameSize,
		Flags:           FrameLocalBasePointerSP | FrameParamBasePointerSP,
	})
	for i := range m.Locals {
		if err := b.emitLocal(fn, &m.Locals[i]); err != nil {
			return fmt.Errorf("local %s: %w", m.Locals[i].Name, err)
		}
	}
	b.add(&EndSym{})

	lr := BuildLines(pe, b.opts.Lines)
	if lr == nil {
		return nil
	}
	lr.Symbol = fn.linkage
	for i := range lr.Blocks {
		off, err := b.files.Add(lr.Blocks[i].File)
		if err != nil {
			return err
		}
		lr.Blocks[i].FileOffset = off
	}
	b.lines = append(b.lines, lr)
	return nil
}

func (b *Builder) emitStatics(t *debuginfo.TypeInfo) error {
	for i := range t.Fields {
		f := &t.Fields[i]
		if !f.Manifested() || !f.Modifiers.IsStatic() {
			continue
		}
		ti, err := b.types.IndexFor(f.Type)
		if err != nil {
			return fmt.Errorf("symbols: static %s.%s: %w", t.Name, f.Name, err)
		}
		name := t.Name + "::" + f.Name
		if b.opts.UseHeapBase {
			b.add(&RegRelSym{Offset: uint32(f.Offset), Type: ti, Register: CV_AMD64_R14, Name: name})
		} else {
			b.add(&DataSym{Type: ti, Offset: uint32(f.Offset), Symbol: b.opts.HeapBaseSymbol, Name: name})
		}
	}
	return nil
}

// Encode returns the .debug$S section and the relocations it needs.
func (b *Builder) Encode() ([]byte, []stream.Relocation, error) {
	return stream.Encode(func(w *stream.Writer) {
		w.PutU32(Signature)
		subsection(w, DEBUG_S_SYMBOLS, func() {
			for _, rec := range b.symbols {
				encodeSymbol(w, rec)
			}
		})
		for _, lr := range b.lines {
			subsection(w, DEBUG_S_LINES, func() { lr.encode(w) })
		}
		subsection(w, DEBUG_S_FILECHKSMS, func() { b.files.encode(w) })
		subsection(w, DEBUG_S_STRINGTABLE, func() { b.strings.encode(w) })
	})
}

func subsection(w *stream.Writer, kind SubsectionKind, body func()) {
	w.PutU32(uint32(kind))
	mark := w.BeginLength32()
	body()
	w.EndLength32(mark)
	w.AlignZero4()
}
