package xmlnorm

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by this package matches exactly one of
// these with errors.Is.
var (
	// ErrParse means the input is not well-formed XML.
	ErrParse = errors.New("xmlnorm: malformed document")
	// ErrShape means the document is well-formed but lacks an element the
	// requested extraction needs.
	ErrShape = errors.New("xmlnorm: unexpected document shape")
	// ErrValue means an element is present but its text cannot be converted.
	ErrValue = errors.New("xmlnorm: invalid field value")
)

// DecodeError describes where decoding failed.
type DecodeError struct {
	Kind  error  // ErrParse, ErrShape or ErrValue
	Path  string // slash separated element path, e.g. "objects/object[2]/user-id"
	Value string // offending text for ErrValue
	Err   error  // underlying cause, may be nil
}

func (e *DecodeError) Error() string {
	msg := e.Kind.Error()
	if e.Path != "" {
		msg += " at " + e.Path
	}
	if e.Value != "" {
		msg += fmt.Sprintf(" (%q)", e.Value)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DecodeError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func parseError(err error) error {
	return &DecodeError{Kind: ErrParse, Err: err}
}

func shapeError(path string, format string, args ...any) error {
	return &DecodeError{Kind: ErrShape, Path: path, Err: fmt.Errorf(format, args...)}
}

func valueError(path, value string, err error) error {
	return &DecodeError{Kind: ErrValue, Path: path, Value: value, Err: err}
}
