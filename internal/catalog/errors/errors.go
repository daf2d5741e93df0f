package errors

import "errors"

var (
	ErrSiteNotFound = errors.New("site not found")
	ErrTypeNotFound = errors.New("object type not found")
	ErrInvalidID    = errors.New("invalid catalog ID format")
)
