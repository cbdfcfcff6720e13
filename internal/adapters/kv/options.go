package kv

import (
	"os"
	"time"
)

// Default storage configuration constants.
const (
	defaultOpenTimeout = time.Second
	defaultFileMode    = 0o600
	defaultBucket      = "elotrack"
)

type options struct {
	openTimeout time.Duration
	fileMode    os.FileMode
	bucket      string
}

// Option applies a configuration option to a backend.
type Option func(*options)

// WithOpenTimeout bounds how long bolt waits for the file lock.
func WithOpenTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.openTimeout = d
		}
	}
}

// WithFileMode sets the permissions of newly created store files.
func WithFileMode(mode os.FileMode) Option {
	return func(o *options) {
		if mode != 0 {
			o.fileMode = mode
		}
	}
}

// WithBucket names the bolt bucket (or sqlite namespace) records live in.
func WithBucket(name string) Option {
	return func(o *options) {
		if name != "" {
			o.bucket = name
		}
	}
}

func newOptions(opts ...Option) options {
	o := options{
		openTimeout: defaultOpenTimeout,
		fileMode:    defaultFileMode,
		bucket:      defaultBucket,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
