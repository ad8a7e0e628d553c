package symbols

import "github.com/skdltmxn/codeview-go/internal/stream"

// StringTable assigns stable byte offsets to strings in first-seen order.
// The empty string is always at offset 0.
type StringTable struct {
	offsets map[string]uint32
	order   []string
	size    uint32
}

// NewStringTable creates a table holding only the empty string.
func NewStringTable() *StringTable {
	st := &StringTable{offsets: make(map[string]uint32)}
	st.Add("")
	return st
}

// Add returns the offset of s, appending it if it is new.
func (st *StringTable) Add(s string) uint32 {
	if off, ok := st.offsets[s]; ok {
		return off
	}
	off := st.size
	st.offsets[s] = off
	st.order = append(st.order, s)
	st.size += uint32(len(s)) + 1
	return off
}

// Size returns the encoded size in bytes.
func (st *StringTable) Size() uint32 { return st.size }

// Strings returns the strings in offset order.
func (st *StringTable) Strings() []string { return st.order }

func (st *StringTable) encode(w *stream.Writer) {
	for _, s := range st.order {
		w.PutCString(s)
	}
}
