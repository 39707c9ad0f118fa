package service

import "errors"

var (
	ErrForbidden   = errors.New("not allowed to access this order")
	ErrAlreadyPaid = errors.New("order is already paid")

	// ErrRetryable tells the webhook handler to answer with a 5xx so the
	// processor redelivers the event.
	ErrRetryable = errors.New("transient failure, retry delivery")
)
