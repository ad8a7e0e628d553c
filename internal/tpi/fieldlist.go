package tpi

import (
	"fmt"

	"github.com/skdltmxn/codeview-go/internal/stream"
)

const (
	// fieldListHeader covers the record length and leaf of LF_FIELDLIST.
	fieldListHeader = 4
	// indexFieldSize is the space reserved for an LF_INDEX continuation.
	indexFieldSize = 8
)

// AddFieldList stores fields as one or more LF_FIELDLIST records and
// returns the index of the list holding the first field.
//
// Lists that would exceed the record size limit are split. The fragments
// are stored tail first; each fragment after the first stored one starts
// with an LF_INDEX pointing at the fragment stored just before it, so the
// chain from the returned index visits the fields in their original order.
func (t *Table) AddFieldList(fields []Field) (TypeIndex, error) {
	var lists [][]Field
	var cur []Field
	size := fieldListHeader
	for _, f := range fields {
		n, err := fieldSize(f)
		if err != nil {
			return 0, fmt.Errorf("tpi: %s: %w", f.Kind(), err)
		}
		if fieldListHeader+n+indexFieldSize > stream.MaxRecordLength {
			return 0, fmt.Errorf("%w: %s of %d bytes", ErrFieldTooLarge, f.Kind(), n)
		}
		if size+n+indexFieldSize > stream.MaxRecordLength {
			lists = append(lists, cur)
			cur = nil
			size = fieldListHeader
		}
		cur = append(cur, f)
		size += n
	}
	lists = append(lists, cur)

	var prev TypeIndex
	for i := len(lists) - 1; i >= 0; i-- {
		fs := lists[i]
		if i != len(lists)-1 {
			fs = append([]Field{&IndexField{Continuation: prev}}, fs...)
		}
		ti, err := t.Add(&FieldListRecord{Fields: fs})
		if err != nil {
			return 0, err
		}
		prev = ti
	}
	return prev, nil
}

// FlattenFieldList follows the continuation chain starting at ti and
// returns the member fields in order, without LF_INDEX entries.
func FlattenFieldList(lookup func(TypeIndex) (Record, bool), ti TypeIndex) ([]Field, error) {
	var out []Field
	seen := make(map[TypeIndex]bool)
	for ti != 0 {
		if seen[ti] {
			return nil, fmt.Errorf("tpi: field list chain loops at 0x%x", uint32(ti))
		}
		seen[ti] = true
		rec, ok := lookup(ti)
		fl, isList := rec.(*FieldListRecord)
		if !ok || !isList {
			return nil, fmt.Errorf("%w: 0x%x is not a field list", ErrUnknownType, uint32(ti))
		}
		next := TypeIndex(0)
		for _, f := range fl.Fields {
			if idx, ok := f.(*IndexField); ok {
				next = idx.Continuation
				continue
			}
			out = append(out, f)
		}
		ti = next
	}
	return out, nil
}
