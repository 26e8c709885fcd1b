package listing

import "errors"

var (
	ErrNotFound  = errors.New("listing not found")
	ErrForbidden = errors.New("forbidden")
)
