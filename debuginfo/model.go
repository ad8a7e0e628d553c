package debuginfo

import (
	"fmt"
	"path"
	"strings"
)

// Range is an immutable span [Lo, Hi) of generated code attributed to a
// source position. A Range whose Primary is nil is a compiled method body;
// otherwise it is an inlined fragment of that body.
type Range struct {
	lo, hi         uint64
	fileName       string
	className      string
	methodName     string
	paramSignature string
	returnType     string
	line           int
	primary        *Range
}

// NewRange creates a Range. Pass a nil primary for a method body.
func NewRange(lo, hi uint64, fileName, className, methodName, paramSignature, returnType string, line int, primary *Range) *Range {
	return &Range{
		lo:             lo,
		hi:             hi,
		fileName:       fileName,
		className:      className,
		methodName:     methodName,
		paramSignature: paramSignature,
		returnType:     returnType,
		line:           line,
		primary:        primary,
	}
}

func (r *Range) Lo() uint64             { return r.lo }
func (r *Range) Hi() uint64             { return r.hi }
func (r *Range) Size() uint64           { return r.hi - r.lo }
func (r *Range) FileName() string       { return r.fileName }
func (r *Range) ClassName() string      { return r.className }
func (r *Range) MethodName() string     { return r.methodName }
func (r *Range) ParamSignature() string { return r.paramSignature }
func (r *Range) ReturnType() string     { return r.returnType }
func (r *Range) Line() int              { return r.line }
func (r *Range) Primary() *Range        { return r.primary }
func (r *Range) IsPrimary() bool        { return r.primary == nil }

// FullMethodName returns "Class.method".
func (r *Range) FullMethodName() string {
	return r.className + "." + r.methodName
}

func (r *Range) String() string {
	return fmt.Sprintf("%s(%s) [0x%x,0x%x) %s:%d",
		r.FullMethodName(), r.paramSignature, r.lo, r.hi, r.fileName, r.line)
}

// PrimaryEntry groups a method body Range with its inlined sub-ranges.
type PrimaryEntry struct {
	primary   *Range
	method    *CompiledMethod
	class     *ClassEntry
	file      *FileEntry
	subRanges []*Range
	subFiles  map[*Range]*FileEntry
}

func (p *PrimaryEntry) Primary() *Range             { return p.primary }
func (p *PrimaryEntry) Method() *CompiledMethod     { return p.method }
func (p *PrimaryEntry) Class() *ClassEntry          { return p.class }
func (p *PrimaryEntry) File() *FileEntry            { return p.file }
func (p *PrimaryEntry) SubRanges() []*Range         { return p.subRanges }
func (p *PrimaryEntry) SubFile(r *Range) *FileEntry { return p.subFiles[r] }

// FileFor returns the FileEntry of the primary range or of one of its
// sub-ranges.
func (p *PrimaryEntry) FileFor(r *Range) *FileEntry {
	if r == p.primary {
		return p.file
	}
	return p.subFiles[r]
}

func (p *PrimaryEntry) addSubRange(r *Range, fe *FileEntry) {
	p.subRanges = append(p.subRanges, r)
	p.subFiles[r] = fe
}

// ClassEntry holds the compiled methods of one class in address order.
type ClassEntry struct {
	name      string
	file      *FileEntry
	primaries []*PrimaryEntry
}

func (c *ClassEntry) Name() string               { return c.name }
func (c *ClassEntry) File() *FileEntry           { return c.file }
func (c *ClassEntry) Primaries() []*PrimaryEntry { return c.primaries }

// FileEntry is a source file identity. Its file ID is assigned once, when
// the file is first placed in the file table.
type FileEntry struct {
	name   string
	dir    *DirEntry
	fileID int
}

func (f *FileEntry) FileName() string { return f.name }
func (f *FileEntry) Dir() *DirEntry   { return f.dir }

// Path returns the directory and file name joined with '/'.
func (f *FileEntry) Path() string {
	if f.dir == nil {
		return f.name
	}
	return joinPath(f.dir.path, f.name)
}

// DisplayPath returns Path with the directory's source root removed.
func (f *FileEntry) DisplayPath() string {
	if f.dir == nil {
		return f.name
	}
	return joinPath(f.dir.Relative(), f.name)
}

func joinPath(dir, name string) string {
	switch {
	case dir == "":
		return name
	case strings.HasSuffix(dir, "/"):
		return dir + name
	}
	return dir + "/" + name
}

// FileID returns the assigned file ID and whether one has been set.
func (f *FileEntry) FileID() (int, bool) {
	return f.fileID, f.fileID >= 0
}

// SetFileID assigns the file ID. Assigning a second time is an error.
func (f *FileEntry) SetFileID(id int) error {
	if f.fileID >= 0 {
		return fmt.Errorf("%w: %s already has id %d", ErrFileIDAssigned, f.Path(), f.fileID)
	}
	f.fileID = id
	return nil
}

// DirEntry is a source directory, optionally under a known source root.
type DirEntry struct {
	path string
	root string
}

func (d *DirEntry) Path() string { return d.path }
func (d *DirEntry) Root() string { return d.root }

// Relative returns the directory path below its root.
func (d *DirEntry) Relative() string {
	if d.root == "" {
		return d.path
	}
	return strings.TrimPrefix(strings.TrimPrefix(d.path, d.root), "/")
}

func newDirEntry(dir string, roots []string) *DirEntry {
	d := &DirEntry{path: dir}
	for _, root := range roots {
		root = path.Clean(root)
		if dir == root || strings.HasPrefix(dir, strings.TrimSuffix(root, "/")+"/") {
			d.root = root
			break
		}
	}
	return d
}
