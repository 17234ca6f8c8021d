package domain

import "errors"

// Sentinel errors shared by the module services. Handlers map them to
// HTTP status codes.
var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record already exists")
	ErrInvalid  = errors.New("invalid input")
)
