// Package dbx opens the embedded store and runs functions inside its
// transactions. Repositories receive the *bolt.Tx handed to fn and never
// manage transactions themselves.
package dbx

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/kosync/internal/common"
	"github.com/dmitrijs2005/kosync/internal/filex"
	bolt "go.etcd.io/bbolt"
)

// Options tune how the store file is opened.
type Options struct {
	// Timeout bounds the wait for the file lock held by another process.
	// Zero waits forever.
	Timeout  time.Duration
	ReadOnly bool
}

// Open opens or creates the store file at path, creating missing parent
// directories first.
func Open(path string, opts Options) (*bolt.DB, error) {
	abs, err := filex.EnsureParentDir(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStorage, err)
	}

	db, err := bolt.Open(abs, 0o600, &bolt.Options{
		Timeout:  opts.Timeout,
		ReadOnly: opts.ReadOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", common.ErrStorage, abs, err)
	}

	return db, nil
}

// WithTx begins a transaction, runs fn with it, and then commits on success
// or rolls back on error/panic. Read transactions are always rolled back.
// Panics are rethrown.
//
// Failures of the engine itself wrap common.ErrStorage; errors returned by fn
// are passed through unchanged.
//
//	err := dbx.WithTx(ctx, db, true, func(ctx context.Context, tx *bolt.Tx) error {
//	    return tx.Bucket(name).Put(k, v)
//	})
func WithTx(ctx context.Context, db *bolt.DB, writable bool, fn func(ctx context.Context, tx *bolt.Tx) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	tx, err := db.Begin(writable)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", common.ErrStorage, err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil || !writable {
			_ = tx.Rollback()
			return
		}
		if cerr := tx.Commit(); cerr != nil {
			err = fmt.Errorf("%w: commit: %v", common.ErrStorage, cerr)
		}
	}()

	err = fn(ctx, tx)
	return err
}

// View runs fn in a read-only snapshot transaction.
func View(ctx context.Context, db *bolt.DB, fn func(ctx context.Context, tx *bolt.Tx) error) error {
	return WithTx(ctx, db, false, fn)
}

// Update runs fn in the single write transaction.
func Update(ctx context.Context, db *bolt.DB, fn func(ctx context.Context, tx *bolt.Tx) error) error {
	return WithTx(ctx, db, true, fn)
}

// Bucket returns the named bucket or an ErrStorage if it is missing.
func Bucket(tx *bolt.Tx, name []byte) (*bolt.Bucket, error) {
	b := tx.Bucket(name)
	if b == nil {
		return nil, fmt.Errorf("%w: table %q does not exist", common.ErrStorage, name)
	}
	return b, nil
}

// StorageError wraps an engine error with common.ErrStorage and op.
func StorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %v", common.ErrStorage, op, err)
}
