package payment

import "errors"

var (
	ErrNotFound  = errors.New("payment not found")
	ErrForbidden = errors.New("forbidden")
	ErrExists    = errors.New("booking already has a payment")
)
