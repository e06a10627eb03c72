package repomanager

import (
	"context"

	"github.com/dmitrijs2005/kosync/internal/codec"
	"github.com/dmitrijs2005/kosync/internal/dbx"
	"github.com/dmitrijs2005/kosync/internal/logging"
	"github.com/dmitrijs2005/kosync/internal/server/models"
	"github.com/dmitrijs2005/kosync/internal/server/repositories/progress"
	"github.com/dmitrijs2005/kosync/internal/server/repositories/users"
	bolt "go.etcd.io/bbolt"
)

// Tables lists every bucket of the current schema version.
var Tables = []string{users.TableName, progress.TableName}

// BoltRepositoryManager vends bbolt-backed repositories. Codecs are built
// once and shared by every transaction.
type BoltRepositoryManager struct {
	logger       logging.Logger
	userCodec    *users.Codec
	progressKeys *progress.KeyCodec
	progressVals *progress.ValueCodec
}

func NewBoltRepositoryManager(logger logging.Logger) *BoltRepositoryManager {
	return &BoltRepositoryManager{
		logger:       logger.With("module", "repomanager"),
		userCodec:    codec.New[models.User](logger),
		progressKeys: codec.NewKey[models.ProgressKey](logger),
		progressVals: codec.New[models.Progress](logger),
	}
}

// EnsureSchema creates missing tables in one write transaction. Running it on
// an initialised store changes nothing.
func (m *BoltRepositoryManager) EnsureSchema(ctx context.Context, db *bolt.DB) error {
	return dbx.Update(ctx, db, func(ctx context.Context, tx *bolt.Tx) error {
		for _, name := range Tables {
			if tx.Bucket([]byte(name)) != nil {
				continue
			}
			if _, err := tx.CreateBucket([]byte(name)); err != nil {
				return dbx.StorageError("create table "+name, err)
			}
			m.logger.Info(ctx, "created table", "table", name)
		}
		return nil
	})
}

func (m *BoltRepositoryManager) Users(tx *bolt.Tx) users.Repository {
	return users.NewBoltRepository(tx, m.userCodec)
}

func (m *BoltRepositoryManager) Progress(tx *bolt.Tx) progress.Repository {
	return progress.NewBoltRepository(tx, m.progressKeys, m.progressVals)
}

func (m *BoltRepositoryManager) Stats(ctx context.Context, tx *bolt.Tx) (Stats, error) {
	nUsers, err := m.Users(tx).Count(ctx)
	if err != nil {
		return Stats{}, err
	}
	nProgress, err := m.Progress(tx).Count(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{Users: nUsers, Progress: nProgress, Size: tx.Size()}, nil
}
