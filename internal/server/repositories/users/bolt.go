package users

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/kosync/internal/codec"
	"github.com/dmitrijs2005/kosync/internal/common"
	"github.com/dmitrijs2005/kosync/internal/dbx"
	"github.com/dmitrijs2005/kosync/internal/server/models"
	bolt "go.etcd.io/bbolt"
)

// Codec is the value codec of the users table.
type Codec = codec.Codec[models.User, *models.User]

type BoltRepository struct {
	tx    *bolt.Tx
	codec *Codec
}

func NewBoltRepository(tx *bolt.Tx, c *Codec) *BoltRepository {
	return &BoltRepository{tx: tx, codec: c}
}

func (r *BoltRepository) bucket() (*bolt.Bucket, error) {
	return dbx.Bucket(r.tx, []byte(TableName))
}

// Get returns common.ErrorNotFound when no user is stored under username.
// A stored value that fails to decode is returned as a zero User.
func (r *BoltRepository) Get(ctx context.Context, username string) (*models.User, error) {
	b, err := r.bucket()
	if err != nil {
		return nil, err
	}

	data := b.Get([]byte(username))
	if data == nil {
		return nil, common.ErrorNotFound
	}

	user := r.codec.Decode(ctx, data)
	return &user, nil
}

func (r *BoltRepository) Put(ctx context.Context, user models.User) error {
	if user.Username == "" {
		return fmt.Errorf("%w: empty username", common.ErrValidation)
	}

	b, err := r.bucket()
	if err != nil {
		return err
	}

	data, err := r.codec.Encode(user)
	if err != nil {
		return err
	}

	return dbx.StorageError("put user", b.Put([]byte(user.Username), data))
}

// Delete removes username and reports whether it existed.
func (r *BoltRepository) Delete(ctx context.Context, username string) (bool, error) {
	b, err := r.bucket()
	if err != nil {
		return false, err
	}

	key := []byte(username)
	if b.Get(key) == nil {
		return false, nil
	}
	if err := b.Delete(key); err != nil {
		return false, dbx.StorageError("delete user", err)
	}
	return true, nil
}

// List returns every user in key order.
func (r *BoltRepository) List(ctx context.Context) ([]models.User, error) {
	b, err := r.bucket()
	if err != nil {
		return nil, err
	}

	users := make([]models.User, 0, b.Stats().KeyN)
	err = b.ForEach(func(_, v []byte) error {
		users = append(users, r.codec.Decode(ctx, v))
		return nil
	})
	if err != nil {
		return nil, dbx.StorageError("list users", err)
	}
	return users, nil
}

func (r *BoltRepository) Count(ctx context.Context) (int, error) {
	b, err := r.bucket()
	if err != nil {
		return 0, err
	}
	return b.Stats().KeyN, nil
}
