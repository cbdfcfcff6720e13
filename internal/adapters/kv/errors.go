package kv

import "github.com/pkg/errors"

// Sentinel kinds for storage errors.
var (
	ErrClosed         = errors.New("store closed")
	ErrUnknownBackend = errors.New("unknown storage backend")
)
