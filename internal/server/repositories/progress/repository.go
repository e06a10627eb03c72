package progress

import (
	"context"

	"github.com/dmitrijs2005/kosync/internal/server/models"
)

// TableName is the bucket holding progress keyed by encoded ProgressKey.
const TableName = "progress-v2"

// Entry is a stored progress record with its key.
type Entry struct {
	Key      models.ProgressKey
	Progress models.Progress
}

type Repository interface {
	Get(ctx context.Context, key models.ProgressKey) (*models.Progress, error)
	Put(ctx context.Context, key models.ProgressKey, p models.Progress) error
	Count(ctx context.Context) (int, error)
	ListDocument(ctx context.Context, document string) ([]Entry, error)
}
