package errors

import "errors"

var (
	ErrNotFound  = errors.New("object not found")
	ErrInvalidID = errors.New("invalid object ID format")
)
