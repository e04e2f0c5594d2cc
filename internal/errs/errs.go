package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds surfaced by the package reader, the LSF decoder and the arena.
// Callers match them with errors.Is.
var (
	// ErrIO means the underlying file could not be opened or read
	ErrIO = errors.New("io error")
	// ErrFormat means a header, index or node/attribute encoding is malformed
	ErrFormat = errors.New("format error")
	// ErrNotFound means a requested entry or region does not exist
	ErrNotFound = errors.New("not found")
	// ErrDecompression means a compressed payload failed to inflate or has the wrong size
	ErrDecompression = errors.New("decompression error")
	// ErrIndex means an out-of-bounds arena index was requested
	ErrIndex = errors.New("index out of range")
)

// Error carries the kind of a failure together with where it happened.
type Error struct {
	// Kind is one of the sentinel errors above
	Kind error

	// Stage names the decoding step or operation, e.g. "file list" or "attributes"
	Stage string

	// Name is the entry or region the failure relates to, if any
	Name string

	// Offset is the byte offset being decoded, or -1 when not applicable
	Offset int64

	// Err is the underlying cause, may be nil
	Err error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Stage != "" {
		b.WriteString(": ")
		b.WriteString(e.Stage)
	}
	if e.Offset >= 0 {
		fmt.Fprintf(&b, " at offset 0x%x", e.Offset)
	}
	if e.Name != "" {
		fmt.Fprintf(&b, " (%q)", e.Name)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// IO wraps a file system failure.
func IO(stage, name string, err error) error {
	return &Error{Kind: ErrIO, Stage: stage, Name: name, Offset: -1, Err: err}
}

// Format reports malformed input at a given offset.
func Format(stage string, offset int64, format string, args ...any) error {
	return &Error{Kind: ErrFormat, Stage: stage, Offset: offset, Err: fmt.Errorf(format, args...)}
}

// NotFound reports a missing entry or region.
func NotFound(stage, name string) error {
	return &Error{Kind: ErrNotFound, Stage: stage, Name: name, Offset: -1}
}

// Decompression reports a payload that failed to inflate.
func Decompression(stage string, err error) error {
	return &Error{Kind: ErrDecompression, Stage: stage, Offset: -1, Err: err}
}

// Index reports an arena index outside [0, length).
func Index(index, length int) error {
	return &Error{Kind: ErrIndex, Offset: -1, Err: fmt.Errorf("index %d, arena length %d", index, length)}
}

// WithName attaches an entry or region name to err if it is an *Error
// without one. Other errors are wrapped so the name still shows up.
func WithName(err error, name string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		if e.Name == "" {
			dup := *e
			dup.Name = name
			return &dup
		}
		return err
	}
	return fmt.Errorf("%s: %w", name, err)
}

// KindName returns a stable label for the kind of err, or "error" when err
// does not carry one of the known kinds.
func KindName(err error) string {
	switch {
	case errors.Is(err, ErrIO):
		return "IoError"
	case errors.Is(err, ErrFormat):
		return "FormatError"
	case errors.Is(err, ErrNotFound):
		return "NotFoundError"
	case errors.Is(err, ErrDecompression):
		return "DecompressionError"
	case errors.Is(err, ErrIndex):
		return "IndexError"
	default:
		return "error"
	}
}
