package pdfcombiner

import (
	"errors"
	"fmt"
)

// Sentinel errors for the combine failure taxonomy. Errors returned by the
// subpackages wrap one of these, so callers test with errors.Is.
var (
	ErrEmptyInput     = errors.New("pdfcombiner: no source documents")
	ErrCancelled      = errors.New("pdfcombiner: cancelled by user")
	ErrAuthentication = errors.New("pdfcombiner: incorrect password")
	ErrOpen           = errors.New("pdfcombiner: cannot open document")
	ErrWrite          = errors.New("pdfcombiner: cannot write output")
	ErrInvalidRange   = errors.New("pdfcombiner: invalid page range")
	ErrInvalidFormat  = fmt.Errorf("%w: invalid format", ErrInvalidRange)
	ErrOutOfBounds    = fmt.Errorf("%w: out of bounds", ErrInvalidRange)
	ErrInvalidAngle   = errors.New("pdfcombiner: rotation angle must be 90, 180 or 270")
	ErrInvalidDate    = errors.New("pdfcombiner: invalid date")
	ErrNoSelection    = errors.New("pdfcombiner: no such source entry")
)

// PDFError represents an error that occurred while processing one source or
// the output document. It wraps an underlying error and includes the
// operation name and the file it concerns.
type PDFError struct {
	Op   string // operation name, e.g. "open", "combine", "write"
	Path string // document path, empty when not file specific
	Err  error  // underlying error
}

func (e *PDFError) Error() string {
	msg := "unknown error"
	if e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Path != "" {
		return fmt.Sprintf("pdfcombiner.%s %s: %s", e.Op, e.Path, msg)
	}
	return fmt.Sprintf("pdfcombiner.%s: %s", e.Op, msg)
}

func (e *PDFError) Unwrap() error {
	return e.Err
}

// NewPDFError creates a new PDFError wrapping err with operation context.
func NewPDFError(op, path string, err error) *PDFError {
	return &PDFError{Op: op, Path: path, Err: err}
}

// RangeError reports a page range token that failed validation.
// Err is ErrInvalidFormat or ErrOutOfBounds.
type RangeError struct {
	Token string // offending token after whitespace removal
	Max   int    // page count the range was checked against
	Err   error
}

func (e *RangeError) Error() string {
	if errors.Is(e.Err, ErrOutOfBounds) {
		return fmt.Sprintf("pdfcombiner: page range %q out of bounds (valid: 1-%d)", e.Token, e.Max)
	}
	return fmt.Sprintf("pdfcombiner: invalid page range format %q", e.Token)
}

func (e *RangeError) Unwrap() error {
	return e.Err
}
