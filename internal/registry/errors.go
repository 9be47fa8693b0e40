package registry

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a registry error so callers (HTTP, Modbus, BACnet
// gateways) can map it onto their own wire-level error representation
// without string-matching messages.
type ErrorKind string

const (
	// ErrUnknownPoint is returned when a dotted path has no registered point.
	ErrUnknownPoint ErrorKind = "UNKNOWN_POINT"
	// ErrNotWritable is returned when override/release targets a read-only point.
	ErrNotWritable ErrorKind = "NOT_WRITABLE"
	// ErrBadPriority is returned when a priority is outside 1..16.
	ErrBadPriority ErrorKind = "BAD_PRIORITY"
	// ErrBadType is returned when a value's kind or range doesn't match the point.
	ErrBadType ErrorKind = "BAD_TYPE"
)

// Error wraps a registry operation failure with its classification, the
// path it concerns, and an optional underlying cause.
type Error struct {
	Kind ErrorKind
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("registry: %s: %s: %v", e.Kind, e.Path, e.Err)
	}
	return fmt.Sprintf("registry: %s: %s", e.Kind, e.Path)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind ErrorKind, path string, err error) *Error {
	return &Error{Kind: kind, Path: path, Err: err}
}

// KindOf extracts the ErrorKind from err, if err is (or wraps) a *Error.
func KindOf(err error) (ErrorKind, bool) {
	var rerr *Error
	if errors.As(err, &rerr) {
		return rerr.Kind, true
	}
	return "", false
}
