package symbols

import (
	"github.com/skdltmxn/codeview-go/debuginfo"
	"github.com/skdltmxn/codeview-go/internal/stream"
)

// lineStatement marks a line entry as a statement boundary.
const lineStatement uint32 = 0x80000000

// LineEntry maps a code offset, relative to the method start, to a line.
type LineEntry struct {
	Offset uint32
	Line   uint32
}

// FileBlock is a run of line entries from one source file.
type FileBlock struct {
	File       *debuginfo.FileEntry
	FileOffset uint32
	Lines      []LineEntry
	maxAddr    uint64
}

// LineRecord is the DEBUG_S_LINES subsection of one method.
type LineRecord struct {
	Symbol   string
	Blocks   []FileBlock
	CodeSize uint32
}

// LinePolicy configures which ranges get their own line entry.
type LinePolicy struct {
	// MergeAdjacent folds a range into the previous one when both have
	// the same file and line.
	MergeAdjacent bool
	// OmitInternal folds ranges of classes matched by IsInternal into
	// the previous range.
	OmitInternal bool
	IsInternal   func(className string) bool
}

// BuildLines returns the line record of a method, or nil when no range
// produced a line entry.
func BuildLines(pe *debuginfo.PrimaryEntry, policy LinePolicy) *LineRecord {
	base := pe.Primary().Lo()
	rec := &LineRecord{}
	var prev *debuginfo.Range
	var prevFile *debuginfo.FileEntry

	candidates := append([]*debuginfo.Range{pe.Primary()}, pe.SubRanges()...)
	for _, r := range candidates {
		fe := pe.FileFor(r)
		if prev != nil && mergeable(r, fe, prev, prevFile, policy) {
			b := &rec.Blocks[len(rec.Blocks)-1]
			b.maxAddr = max(b.maxAddr, r.Hi()-base)
			continue
		}
		if r.Line() < 0 || fe == nil {
			continue
		}
		if prev == nil || fe != prevFile {
			rec.Blocks = append(rec.Blocks, FileBlock{File: fe})
		}
		b := &rec.Blocks[len(rec.Blocks)-1]
		b.Lines = append(b.Lines, LineEntry{Offset: uint32(r.Lo() - base), Line: uint32(r.Line())})
		b.maxAddr = max(b.maxAddr, r.Hi()-base)
		prev, prevFile = r, fe
	}
	if len(rec.Blocks) == 0 {
		return nil
	}
	for _, b := range rec.Blocks {
		rec.CodeSize = max(rec.CodeSize, uint32(b.maxAddr))
	}
	return rec
}

func mergeable(r *debuginfo.Range, fe *debuginfo.FileEntry, prev *debuginfo.Range, prevFile *debuginfo.FileEntry, policy LinePolicy) bool {
	if policy.OmitInternal && policy.IsInternal != nil && policy.IsInternal(r.ClassName()) {
		return true
	}
	if fe != prevFile {
		return false
	}
	return r.Line() < 0 || (policy.MergeAdjacent && r.Line() == prev.Line())
}

// encode writes the subsection body. The code size in the header is
// back-patched with the largest block end once all blocks are written.
func (lr *LineRecord) encode(w *stream.Writer) {
	putAddress(w, lr.Symbol, 0, 0)
	w.PutU16(0) // no column info
	sizeAt := w.Pos()
	w.PutU32(0)

	var size uint64
	for _, b := range lr.Blocks {
		w.PutU32(b.FileOffset)
		w.PutU32(uint32(len(b.Lines)))
		w.PutU32(uint32(12 + 8*len(b.Lines)))
		for _, l := range b.Lines {
			w.PutU32(l.Offset)
			w.PutU32(l.Line | lineStatement)
		}
		size = max(size, b.maxAddr)
	}
	w.PatchU32(sizeAt, uint32(size))
}
