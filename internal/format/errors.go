package format

import (
	"errors"
	"fmt"
)

var (
	// ErrMagicMismatch indicates a structure had an unexpected magic.
	ErrMagicMismatch = errors.New("format: magic number mismatch")
	// ErrTruncated indicates the buffer lacked the bytes required for a structure.
	ErrTruncated = errors.New("format: truncated buffer")
	// ErrStructuralViolation indicates a structure holds a value the format does not allow.
	ErrStructuralViolation = errors.New("format: structural violation")
	// ErrLayout indicates a layout whose fields disagree with its declared size.
	ErrLayout = errors.New("format: inconsistent layout")
)

// MagicError reports a decoded magic value that differs from the one the
// layout requires. It is the signal used to tell the RLE and empty bitmap
// payloads apart, so callers are expected to handle it.
type MagicError struct {
	Layout   string
	Expected uint64
	Actual   uint64
}

func (e *MagicError) Error() string {
	return fmt.Sprintf("%s magic number mismatch: 0x%x should be 0x%x", e.Layout, e.Actual, e.Expected)
}

func (e *MagicError) Unwrap() error { return ErrMagicMismatch }

// StructuralError reports a field value outside the set the format allows.
type StructuralError struct {
	Structure string
	Field     string
	Value     uint64
	Detail    string // rendered record, optional
}

func (e *StructuralError) Error() string {
	msg := fmt.Sprintf("Unknown %s %s: 0x%x", e.Structure, e.Field, e.Value)
	if e.Detail != "" {
		msg += "\n" + e.Detail
	}
	return msg
}

func (e *StructuralError) Unwrap() error { return ErrStructuralViolation }

// LayoutError reports a layout definition whose field widths do not add up
// to its declared size, or that is otherwise malformed.
type LayoutError struct {
	Layout   string
	Declared int
	Computed int
	Reason   string
}

func (e *LayoutError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("layout %s: %s", e.Layout, e.Reason)
	}
	return fmt.Sprintf("layout %s: fields and size %d disagree (fields need %d bytes)", e.Layout, e.Declared, e.Computed)
}

func (e *LayoutError) Unwrap() error { return ErrLayout }
