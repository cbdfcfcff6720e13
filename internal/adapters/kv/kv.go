// Package kv persists named records in a single local key-value store.
//
// A Backend holds opaque byte values under string keys. Writes of several
// records happen in one transaction so readers never observe a half-saved
// state.
package kv

import (
	"context"
	"strings"

	"github.com/pkg/errors"
)

// Kind names a backend implementation.
type Kind string

// Supported backends.
const (
	KindBolt   Kind = "bolt"
	KindSQLite Kind = "sqlite"
	KindFile   Kind = "file"
	KindMemory Kind = "memory"
)

// Backend reads and writes named records.
type Backend interface {
	// Get returns the value stored under key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// PutAll writes every record atomically.
	PutAll(ctx context.Context, records map[string][]byte) error

	// Clear removes every record.
	Clear(ctx context.Context) error

	// Close releases the underlying store.
	Close() error
}

// ParseKind validates a backend name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindBolt, KindSQLite, KindFile, KindMemory:
		return k, nil
	default:
		return "", errors.Wrapf(ErrUnknownBackend, "backend %q", s)
	}
}

// Open opens the backend of the given kind at path. path is ignored for
// the memory backend.
func Open(kind Kind, path string, opts ...Option) (Backend, error) {
	if kind != KindMemory && strings.TrimSpace(path) == "" {
		return nil, errors.New("storage path is required")
	}
	o := newOptions(opts...)

	var (
		b   Backend
		err error
	)
	switch kind {
	case KindBolt:
		b, err = OpenBolt(path, o)
	case KindSQLite:
		b, err = OpenSQLite(path, o)
	case KindFile:
		b, err = OpenFile(path, o)
	case KindMemory:
		b = NewMemory()
	default:
		err = errors.Wrapf(ErrUnknownBackend, "backend %q", kind)
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}
