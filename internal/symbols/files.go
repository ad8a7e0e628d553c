package symbols

import (
	"crypto/md5"
	"io"
	"os"
	"path/filepath"

	"github.com/skdltmxn/codeview-go/debuginfo"
	"github.com/skdltmxn/codeview-go/internal/stream"
)

// FileEntrySize is the stride of a DEBUG_S_FILECHKSMS entry.
const FileEntrySize = 24

// ChecksumFunc computes the MD5 of a source file. It returns false when
// the file cannot be read.
type ChecksumFunc func(path string) ([md5.Size]byte, bool)

// MD5Checksum returns a ChecksumFunc that looks for a file as given and
// then below each of roots.
func MD5Checksum(roots []string) ChecksumFunc {
	return func(path string) ([md5.Size]byte, bool) {
		candidates := []string{filepath.FromSlash(path)}
		for _, root := range roots {
			candidates = append(candidates, filepath.Join(root, filepath.FromSlash(path)))
		}
		for _, p := range candidates {
			if sum, ok := md5File(p); ok {
				return sum, true
			}
		}
		return [md5.Size]byte{}, false
	}
}

func md5File(path string) ([md5.Size]byte, bool) {
	var sum [md5.Size]byte
	f, err := os.Open(path)
	if err != nil {
		return sum, false
	}
	defer f.Close()
	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return sum, false
	}
	copy(sum[:], h.Sum(nil))
	return sum, true
}

type fileSlot struct {
	nameOffset uint32
	kind       uint8
	checksum   [md5.Size]byte
}

// FileTable assigns each source file a fixed-stride slot in the
// DEBUG_S_FILECHKSMS subsection.
type FileTable struct {
	strings  *StringTable
	checksum ChecksumFunc
	slots    []fileSlot
	index    map[string]uint32
}

// NewFileTable creates a file table whose names go into strings. A nil
// checksum leaves every checksum empty.
func NewFileTable(strings *StringTable, checksum ChecksumFunc) *FileTable {
	return &FileTable{
		strings:  strings,
		checksum: checksum,
		index:    make(map[string]uint32),
	}
}

// Add returns the slot offset of fe, registering it on first sight and
// assigning its file ID. The slot is named by the display path; the full
// path locates the file to checksum.
func (ft *FileTable) Add(fe *debuginfo.FileEntry) (uint32, error) {
	path := fe.Path()
	if off, ok := ft.index[path]; ok {
		return off, nil
	}
	id := len(ft.slots)
	if err := fe.SetFileID(id); err != nil {
		return 0, err
	}
	slot := fileSlot{nameOffset: ft.strings.Add(fe.DisplayPath())}
	if ft.checksum != nil {
		if sum, ok := ft.checksum(path); ok {
			slot.kind = chksumTypeMD5
			slot.checksum = sum
		}
	}
	off := uint32(id * FileEntrySize)
	ft.slots = append(ft.slots, slot)
	ft.index[path] = off
	return off, nil
}

// Len returns the number of files.
func (ft *FileTable) Len() int { return len(ft.slots) }

func (ft *FileTable) encode(w *stream.Writer) {
	for _, s := range ft.slots {
		w.PutU32(s.nameOffset)
		w.PutU8(md5.Size)
		w.PutU8(s.kind)
		w.PutBytes(s.checksum[:])
		w.PutZeros(FileEntrySize - 6 - md5.Size)
	}
}
