package tpi

import (
	"errors"
	"fmt"
	"iter"
	"slices"
	"strings"

	"github.com/skdltmxn/codeview-go/internal/stream"
)

// Errors returned by the type table
var (
	ErrUnresolvedForwardRef = errors.New("tpi: forward reference never defined")
	ErrFieldTooLarge        = errors.New("tpi: field record exceeds maximum record size")
	ErrUnknownType          = errors.New("tpi: unknown type")
	ErrNotClass             = errors.New("tpi: index is not a class record")
)

// Signature is the CodeView C13 version stamp that starts the section.
const Signature uint32 = 4

// Table is a deduplicated, sequentially numbered set of type records.
// Records live in an arena addressed by index minus FirstUserTypeIndex.
type Table struct {
	records     []Record
	encoded     [][]byte
	index       map[string]TypeIndex
	forwardRefs map[string]TypeIndex
	classes     map[string]TypeIndex
	pointers    map[TypeIndex]TypeIndex
}

// NewTable creates an empty type table.
func NewTable() *Table {
	return &Table{
		index:       make(map[string]TypeIndex),
		forwardRefs: make(map[string]TypeIndex),
		classes:     make(map[string]TypeIndex),
		pointers:    make(map[TypeIndex]TypeIndex),
	}
}

// Add inserts rec unless an identical record is already present, and
// returns the index of the stored record. Identity is the encoded content.
func (t *Table) Add(rec Record) (TypeIndex, error) {
	b, err := EncodeRecord(rec)
	if err != nil {
		return 0, fmt.Errorf("tpi: encode %s: %w", rec.Kind(), err)
	}
	if ti, ok := t.index[string(b)]; ok {
		return ti, nil
	}
	ti := FirstUserTypeIndex + TypeIndex(len(t.records))
	t.records = append(t.records, rec)
	t.encoded = append(t.encoded, b)
	t.index[string(b)] = ti
	return ti, nil
}

// Len returns the number of stored records.
func (t *Table) Len() int { return len(t.records) }

// Record returns the record stored at ti.
func (t *Table) Record(ti TypeIndex) (Record, bool) {
	i := int(ti) - int(FirstUserTypeIndex)
	if ti.IsSimpleType() || i >= len(t.records) {
		return nil, false
	}
	return t.records[i], true
}

// All iterates records in index order.
func (t *Table) All() iter.Seq2[TypeIndex, Record] {
	return func(yield func(TypeIndex, Record) bool) {
		for i, rec := range t.records {
			if !yield(FirstUserTypeIndex+TypeIndex(i), rec) {
				return
			}
		}
	}
}

// ClassIndex returns the index of a class record by name, whether it is
// still a forward reference or already defined.
func (t *Table) ClassIndex(name string) (TypeIndex, bool) {
	ti, ok := t.classes[name]
	return ti, ok
}

// ForwardRef returns the index for class name, creating a forward
// reference record on first mention.
func (t *Table) ForwardRef(name string, leaf TypeRecordKind) (TypeIndex, error) {
	if ti, ok := t.classes[name]; ok {
		return ti, nil
	}
	ti, err := t.Add(&ClassRecord{Leaf: leaf, Properties: ClassForwardRef, Name: name})
	if err != nil {
		return 0, err
	}
	t.classes[name] = ti
	t.forwardRefs[name] = ti
	return ti, nil
}

// PointerTo returns a cached 64-bit LF_POINTER to ti.
func (t *Table) PointerTo(ti TypeIndex) (TypeIndex, error) {
	if p, ok := t.pointers[ti]; ok {
		return p, nil
	}
	p, err := t.Add(&PointerRecord{Referent: ti, Attributes: PointerNear64})
	if err != nil {
		return 0, err
	}
	t.pointers[ti] = p
	return p, nil
}

// DefineClass stores a complete class record. An open forward reference
// with the same name is promoted in place and keeps its index.
func (t *Table) DefineClass(rec *ClassRecord) (TypeIndex, error) {
	fwd, open := t.forwardRefs[rec.Name]
	if !open {
		ti, err := t.Add(rec)
		if err != nil {
			return 0, err
		}
		if _, ok := t.classes[rec.Name]; !ok {
			t.classes[rec.Name] = ti
		}
		return ti, nil
	}

	b, err := EncodeRecord(rec)
	if err != nil {
		return 0, fmt.Errorf("tpi: encode %s %s: %w", rec.Kind(), rec.Name, err)
	}
	slot := int(fwd - FirstUserTypeIndex)
	delete(t.index, string(t.encoded[slot]))
	t.records[slot] = rec
	t.encoded[slot] = b
	if _, dup := t.index[string(b)]; !dup {
		t.index[string(b)] = fwd
	}
	delete(t.forwardRefs, rec.Name)
	return fwd, nil
}

// IsDefined reports whether class name has a complete definition.
func (t *Table) IsDefined(name string) bool {
	_, known := t.classes[name]
	_, open := t.forwardRefs[name]
	return known && !open
}

// Finalize fails if any forward reference was never defined.
func (t *Table) Finalize() error {
	if len(t.forwardRefs) == 0 {
		return nil
	}
	names := make([]string, 0, len(t.forwardRefs))
	for name := range t.forwardRefs {
		names = append(names, name)
	}
	slices.Sort(names)
	return fmt.Errorf("%w: %s", ErrUnresolvedForwardRef, strings.Join(names, ", "))
}

// Encode returns the .debug$T section contents.
func (t *Table) Encode() ([]byte, error) {
	b, _, err := stream.Encode(func(w *stream.Writer) {
		w.PutU32(Signature)
		for _, rec := range t.encoded {
			w.PutBytes(rec)
		}
	})
	return b, err
}
