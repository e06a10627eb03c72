package users

import (
	"context"

	"github.com/dmitrijs2005/kosync/internal/server/models"
)

// TableName is the bucket holding users keyed by raw username bytes.
const TableName = "users-v2"

type Repository interface {
	Get(ctx context.Context, username string) (*models.User, error)
	Put(ctx context.Context, user models.User) error
	Delete(ctx context.Context, username string) (bool, error)
	List(ctx context.Context) ([]models.User, error)
	Count(ctx context.Context) (int, error)
}
