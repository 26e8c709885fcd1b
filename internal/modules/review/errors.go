package review

import "errors"

var (
	ErrNotFound  = errors.New("review not found")
	ErrForbidden = errors.New("forbidden")
	ErrExists    = errors.New("user already reviewed this listing")
)
