package apperrors

import "errors"

// Engine validation errors. These are raised before any storage I/O begins;
// a caller seeing one can be certain no writes happened. Detail travels in
// the wrapping message, matching is via errors.Is.
var (
	ErrMisconfigured    = errors.New("audit engine misconfigured")
	ErrInvalidAction    = errors.New("invalid audit action")
	ErrInvalidChangeSet = errors.New("invalid change-set")
	ErrUnknownTable     = errors.New("unknown table")
	ErrUnsupportedKey   = errors.New("unsupported primary key")
)

// Service-level errors shared by the read API.
var (
	ErrNotFound = errors.New("not found")
)
