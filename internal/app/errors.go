package service

import "errors"

// Sentinel kinds for handler errors.
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrNotConfirmed   = errors.New("clear not confirmed")
)
