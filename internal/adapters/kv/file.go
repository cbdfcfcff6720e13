package kv

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// File keeps every record as a string in one JSON object on disk, the way a
// browser's localStorage holds them. Each write replaces the file through a
// rename so a crash leaves either the old or the new state.
type File struct {
	path   string
	mode   os.FileMode
	closed bool
}

var _ Backend = (*File)(nil)

// OpenFile prepares a file backend at path. The file is created lazily on
// the first write; an existing file must hold a JSON object.
func OpenFile(path string, o options) (*File, error) {
	f := &File{path: filepath.Clean(path), mode: o.fileMode}
	if _, err := f.load(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *File) load() (map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read %s", f.path)
	}
	records := map[string]string{}
	if len(data) == 0 {
		return records, nil
	}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, errors.Wrapf(err, "unable to parse %s", f.path)
	}
	return records, nil
}

func (f *File) store(records map[string]string) error {
	data, err := json.Marshal(records)
	if err != nil {
		return errors.Wrap(err, "unable to encode records")
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "unable to create temp file")
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "unable to write temp file")
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "unable to sync temp file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "unable to close temp file")
	}
	if err := os.Chmod(tmp.Name(), f.mode); err != nil {
		return errors.Wrap(err, "unable to set file mode")
	}
	return errors.Wrapf(os.Rename(tmp.Name(), f.path), "unable to replace %s", f.path)
}

// Get returns the value under key.
func (f *File) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if f.closed {
		return nil, false, ErrClosed
	}
	records, err := f.load()
	if err != nil {
		return nil, false, err
	}
	v, ok := records[key]
	if !ok {
		return nil, false, nil
	}
	return []byte(v), true, nil
}

// PutAll merges records into the file and rewrites it.
func (f *File) PutAll(ctx context.Context, records map[string][]byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.closed {
		return ErrClosed
	}
	current, err := f.load()
	if err != nil {
		return err
	}
	for k, v := range records {
		current[k] = string(v)
	}
	return f.store(current)
}

// Clear removes the file.
func (f *File) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.closed {
		return ErrClosed
	}
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "unable to remove %s", f.path)
	}
	return nil
}

// Close marks the backend closed. The file needs no release.
func (f *File) Close() error {
	f.closed = true
	return nil
}
