// Package repomanager owns the table schema and vends repositories bound to
// a transaction.
package repomanager

import (
	"context"

	"github.com/dmitrijs2005/kosync/internal/server/repositories/progress"
	"github.com/dmitrijs2005/kosync/internal/server/repositories/users"
	bolt "go.etcd.io/bbolt"
)

// Stats summarises the store contents.
type Stats struct {
	Users    int
	Progress int
	// Size is the store size in bytes as seen by the transaction.
	Size int64
}

type RepositoryManager interface {
	EnsureSchema(ctx context.Context, db *bolt.DB) error
	Users(tx *bolt.Tx) users.Repository
	Progress(tx *bolt.Tx) progress.Repository
	Stats(ctx context.Context, tx *bolt.Tx) (Stats, error)
}
