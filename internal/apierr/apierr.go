// Package apierr classifies pipeline failures so the HTTP layer can map
// them to status codes without inspecting stage internals. Every stage
// wraps its failures in an *Error carrying a Kind; anything unclassified
// is treated as an internal error.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind identifies which stage boundary a failure belongs to.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindConfiguration Kind = "configuration"
	KindUpstream      Kind = "upstream"
	KindResponseParse Kind = "response_parse"
	KindImageDecode   Kind = "image_decode"
	KindImageEncode   Kind = "image_encode"
	KindStorage       Kind = "storage"
	KindInternal      Kind = "internal"
)

// Error is a classified failure. Message is safe to return to callers;
// Err (if set) is the underlying cause, reachable via errors.Unwrap.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies an underlying error. A nil err returns nil.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the Kind of err, or KindInternal if err carries no
// classification anywhere in its chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// HTTPStatus maps an error to the response status: caller input problems
// are 400, everything else (config, upstream, codec, storage, unknown) 500.
func HTTPStatus(err error) int {
	if KindOf(err) == KindValidation {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
