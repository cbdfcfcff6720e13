package kv

import (
	"context"

	"github.com/boltdb/bolt"
	"github.com/pkg/errors"
)

// Bolt stores records in a single bucket of a bolt database file.
type Bolt struct {
	db     *bolt.DB
	bucket []byte
}

var _ Backend = (*Bolt)(nil)

// OpenBolt opens (or creates) the bolt file at path.
func OpenBolt(path string, o options) (*Bolt, error) {
	db, err := bolt.Open(path, o.fileMode, &bolt.Options{Timeout: o.openTimeout})
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open %s", path)
	}
	return &Bolt{db: db, bucket: []byte(o.bucket)}, nil
}

// Get returns a copy of the value under key.
func (b *Bolt) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if b == nil || b.db == nil {
		return nil, false, ErrClosed
	}

	var out []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(b.bucket)
		if bucket == nil {
			return nil
		}
		// Values are only valid for the life of the transaction.
		if v := bucket.Get([]byte(key)); v != nil {
			out = append([]byte{}, v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, errors.Wrapf(err, "unable to read %q", key)
	}
	return out, out != nil, nil
}

// PutAll writes every record in one update transaction.
func (b *Bolt) PutAll(ctx context.Context, records map[string][]byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b == nil || b.db == nil {
		return ErrClosed
	}

	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(b.bucket)
		if err != nil {
			return errors.Wrap(err, "unable to create bucket")
		}
		for k, v := range records {
			if err := bucket.Put([]byte(k), v); err != nil {
				return errors.Wrapf(err, "error putting %q", k)
			}
		}
		return nil
	})
	return errors.Wrap(err, "unable to write records")
}

// Clear deletes the bucket and everything in it.
func (b *Bolt) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b == nil || b.db == nil {
		return ErrClosed
	}

	err := b.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(b.bucket) == nil {
			return nil
		}
		return errors.Wrap(tx.DeleteBucket(b.bucket), "unable to delete bucket")
	})
	return errors.Wrap(err, "unable to clear records")
}

// Close releases the file lock.
func (b *Bolt) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	err := b.db.Close()
	b.db = nil
	return errors.Wrap(err, "unable to close database")
}
