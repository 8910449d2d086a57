// Package canvaserr defines the closed set of error kinds surfaced across the
// REST facade, the WebSocket facade, and the tool gateway.
package canvaserr

import (
	"errors"
	"fmt"
)

// Kind is a stable wire tag for an error category.
type Kind string

const (
	InvalidArgument Kind = "InvalidArgument"
	NotFound        Kind = "NotFound"
	Unavailable     Kind = "Unavailable"
	Timeout         Kind = "Timeout"
	PeerError       Kind = "PeerError"
	Internal        Kind = "Internal"
)

// Error is the canonical error type returned by canvas/binding/correlator
// operations. It carries a stable Kind so transport layers can map it to the
// right HTTP status without inspecting message text.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// New constructs an Error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the Kind from err, defaulting to Internal when err is not
// (or does not wrap) an *Error.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if ok := asError(err, &e); ok {
		return e.Kind
	}
	return Internal
}

func asError(err error, target **Error) bool {
	return errors.As(err, target)
}
