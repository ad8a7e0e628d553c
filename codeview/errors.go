// Package codeview encodes CodeView debug information for ahead-of-time
// compiled code into the .debug$S and .debug$T sections of an object file.
package codeview

import (
	"errors"
	"fmt"

	"github.com/skdltmxn/codeview-go/internal/stream"
	"github.com/skdltmxn/codeview-go/internal/tpi"
)

// Sentinel errors for fatal encoding conditions.
var (
	// ErrNoInput indicates a provider with no compiled methods and no types.
	ErrNoInput = errors.New("codeview: nothing to encode")

	// ErrInvalidConfig indicates a configuration that cannot be applied.
	ErrInvalidConfig = errors.New("codeview: invalid configuration")

	// ErrEmbeddedNUL indicates a name containing a NUL byte.
	ErrEmbeddedNUL = stream.ErrEmbeddedNUL

	// ErrRecordTooLarge indicates a record longer than 0xFFFF bytes.
	ErrRecordTooLarge = stream.ErrRecordTooLarge

	// ErrSizeMismatch indicates the measuring and writing passes disagree.
	ErrSizeMismatch = stream.ErrSizeMismatch

	// ErrUnresolvedForwardRef indicates a class referenced but never defined.
	ErrUnresolvedForwardRef = tpi.ErrUnresolvedForwardRef

	// ErrFieldTooLarge indicates a single field that cannot fit any field list.
	ErrFieldTooLarge = tpi.ErrFieldTooLarge
)

// EncodeError reports which section, and where known which record kind,
// failed to encode.
type EncodeError struct {
	Section string // ".debug$S" or ".debug$T"
	Record  string // record kind, empty when not attributable
	Err     error
}

func (e *EncodeError) Error() string {
	if e.Record != "" {
		return fmt.Sprintf("codeview: encode error in %s at %s: %v", e.Section, e.Record, e.Err)
	}
	return fmt.Sprintf("codeview: encode error in %s: %v", e.Section, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

func encodeError(section string, err error) error {
	if err == nil {
		return nil
	}
	e := &EncodeError{Section: section, Err: err}
	switch {
	case errors.Is(err, tpi.ErrFieldTooLarge):
		e.Record = tpi.LF_FIELDLIST.String()
	case errors.Is(err, tpi.ErrUnresolvedForwardRef):
		e.Record = tpi.LF_CLASS.String()
	}
	return e
}
