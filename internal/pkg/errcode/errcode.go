package errcode

// Codes returned in the JSON envelope. Zero means success.
const (
	ErrUnknown = 10000000 + iota
	ErrNotFound
	ErrInvalid
	ErrConflict
	ErrTooMany
	ErrInternal
	ErrAmbiguous
	ErrAIUnavailable
)
