package debuginfo

import (
	"errors"
	"fmt"
	"strings"
)

// Errors returned while building the model
var (
	ErrFileIDAssigned = errors.New("debuginfo: file id already assigned")
	ErrRangeOrder     = errors.New("debuginfo: ranges not in ascending address order")
)

// Options controls how the model is built.
type Options struct {
	// SourceRoots are directory prefixes that DirEntry paths are resolved
	// against for display.
	SourceRoots []string
}

// Info is the debug-info model of one compilation unit. It is read-only
// once Build returns.
type Info struct {
	classes    []*ClassEntry
	classIndex map[string]*ClassEntry
	files      []*FileEntry
	fileIndex  map[string]*FileEntry
	dirIndex   map[string]*DirEntry
	types      []TypeInfo
	typeIndex  map[string]int
	roots      []string
}

// Build runs one pass over p and returns the populated model.
func Build(p Provider, opts Options) (*Info, error) {
	info := &Info{
		classIndex: make(map[string]*ClassEntry),
		fileIndex:  make(map[string]*FileEntry),
		dirIndex:   make(map[string]*DirEntry),
		typeIndex:  make(map[string]int),
		roots:      opts.SourceRoots,
	}
	for m := range p.CompiledMethods() {
		if err := info.installMethod(m); err != nil {
			return nil, err
		}
	}
	for t := range p.Types() {
		if _, dup := info.typeIndex[t.Name]; dup {
			continue
		}
		info.typeIndex[t.Name] = len(info.types)
		info.types = append(info.types, t)
	}
	return info, nil
}

func (info *Info) installMethod(m CompiledMethod) error {
	if m.Hi < m.Lo {
		return fmt.Errorf("%w: %s.%s [0x%x,0x%x)", ErrRangeOrder, m.ClassName, m.MethodName, m.Lo, m.Hi)
	}
	method := &m
	fe := info.ensureFileEntry(m.File)
	ce := info.ensureClassEntry(m.ClassName, fe)

	sig := m.ParamSignature()
	primary := NewRange(m.Lo, m.Hi, m.File, m.ClassName, m.MethodName, sig, m.ReturnType, m.Line, nil)
	pe := &PrimaryEntry{
		primary:  primary,
		method:   method,
		class:    ce,
		file:     fe,
		subFiles: make(map[*Range]*FileEntry),
	}

	var prevLo uint64
	for i, li := range m.Inlined {
		lo, hi := m.Lo+li.Lo, m.Lo+li.Hi
		if hi < lo || (i > 0 && lo < prevLo) {
			return fmt.Errorf("%w: %s.%s sub-range %d at 0x%x", ErrRangeOrder, m.ClassName, m.MethodName, i, lo)
		}
		prevLo = lo
		file := li.File
		if file == "" {
			file = m.File
		}
		class := li.ClassName
		if class == "" {
			class = m.ClassName
		}
		sub := NewRange(lo, hi, file, class, li.MethodName, "", "", li.Line, primary)
		pe.addSubRange(sub, info.ensureFileEntry(file))
	}
	ce.primaries = append(ce.primaries, pe)
	return nil
}

func (info *Info) ensureClassEntry(name string, fe *FileEntry) *ClassEntry {
	if ce, ok := info.classIndex[name]; ok {
		if ce.file == nil {
			ce.file = fe
		}
		return ce
	}
	ce := &ClassEntry{name: name, file: fe}
	info.classIndex[name] = ce
	info.classes = append(info.classes, ce)
	return ce
}

// ensureFileEntry returns the entry for a '/'-separated path, or nil for
// an empty path.
func (info *Info) ensureFileEntry(p string) *FileEntry {
	if p == "" {
		return nil
	}
	if fe, ok := info.fileIndex[p]; ok {
		return fe
	}
	fe := &FileEntry{name: p, fileID: -1}
	if i := strings.LastIndexByte(p, '/'); i > 0 {
		fe.name = p[i+1:]
		fe.dir = info.ensureDirEntry(p[:i])
	} else if i == 0 {
		fe.name = p[1:]
		fe.dir = info.ensureDirEntry("/")
	}
	info.fileIndex[p] = fe
	info.files = append(info.files, fe)
	return fe
}

func (info *Info) ensureDirEntry(dir string) *DirEntry {
	if dir == "" {
		return nil
	}
	if d, ok := info.dirIndex[dir]; ok {
		return d
	}
	d := newDirEntry(dir, info.roots)
	info.dirIndex[dir] = d
	return d
}

// Classes returns the class entries in first-seen order.
func (info *Info) Classes() []*ClassEntry { return info.classes }

// Class looks up a class entry by name.
func (info *Info) Class(name string) (*ClassEntry, bool) {
	ce, ok := info.classIndex[name]
	return ce, ok
}

// Files returns every file entry in first-seen order.
func (info *Info) Files() []*FileEntry { return info.files }

// File looks up a file entry by path.
func (info *Info) File(p string) (*FileEntry, bool) {
	fe, ok := info.fileIndex[p]
	return fe, ok
}

// Types returns the declared types in provider order, without duplicates.
func (info *Info) Types() []TypeInfo { return info.types }

// Type looks up a declared type by name.
func (info *Info) Type(name string) (*TypeInfo, bool) {
	i, ok := info.typeIndex[name]
	if !ok {
		return nil, false
	}
	return &info.types[i], true
}
