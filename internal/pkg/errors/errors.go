package errors

import "errors"

// Sentinels wrapped by remote clients and handlers; the HTTP layer maps them
// to errcode values.
var (
	ErrNotFound    = errors.New("not found")
	ErrInvalid     = errors.New("invalid")
	ErrConflict    = errors.New("conflict")
	ErrAmbiguous   = errors.New("ambiguous")
	ErrTooMany     = errors.New("too many requests")
	ErrUnavailable = errors.New("unavailable")
)
