package progress

import (
	"bytes"
	"context"
	"fmt"

	"github.com/dmitrijs2005/kosync/internal/codec"
	"github.com/dmitrijs2005/kosync/internal/common"
	"github.com/dmitrijs2005/kosync/internal/dbx"
	"github.com/dmitrijs2005/kosync/internal/server/models"
	bolt "go.etcd.io/bbolt"
)

type (
	KeyCodec   = codec.KeyCodec[models.ProgressKey, *models.ProgressKey]
	ValueCodec = codec.Codec[models.Progress, *models.Progress]
)

type BoltRepository struct {
	tx     *bolt.Tx
	keys   *KeyCodec
	values *ValueCodec
}

func NewBoltRepository(tx *bolt.Tx, keys *KeyCodec, values *ValueCodec) *BoltRepository {
	return &BoltRepository{tx: tx, keys: keys, values: values}
}

func (r *BoltRepository) bucket() (*bolt.Bucket, error) {
	return dbx.Bucket(r.tx, []byte(TableName))
}

// Get returns common.ErrorNotFound when nothing is stored under key.
func (r *BoltRepository) Get(ctx context.Context, key models.ProgressKey) (*models.Progress, error) {
	b, err := r.bucket()
	if err != nil {
		return nil, err
	}

	k, err := r.keys.Encode(key)
	if err != nil {
		return nil, err
	}

	data := b.Get(k)
	if data == nil {
		return nil, common.ErrorNotFound
	}

	p := r.values.Decode(ctx, data)
	return &p, nil
}

// Put replaces the whole record stored under key.
func (r *BoltRepository) Put(ctx context.Context, key models.ProgressKey, p models.Progress) error {
	b, err := r.bucket()
	if err != nil {
		return err
	}

	k, err := r.keys.Encode(key)
	if err != nil {
		return err
	}
	v, err := r.values.Encode(p)
	if err != nil {
		return err
	}

	return dbx.StorageError("put progress", b.Put(k, v))
}

func (r *BoltRepository) Count(ctx context.Context) (int, error) {
	b, err := r.bucket()
	if err != nil {
		return 0, err
	}
	return b.Stats().KeyN, nil
}

// ListDocument returns every user's progress on document, ordered by user.
// Keys are document-major so the records form one contiguous range.
func (r *BoltRepository) ListDocument(ctx context.Context, document string) ([]Entry, error) {
	b, err := r.bucket()
	if err != nil {
		return nil, err
	}

	prefix := models.DocumentPrefix(document)

	var (
		out  []Entry
		prev []byte
	)
	c := b.Cursor()
	for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
		if prev != nil && r.keys.Compare(prev, k) >= 0 {
			return nil, fmt.Errorf("%w: progress keys out of order at %x", common.ErrStorage, k)
		}
		prev = k

		key, err := r.keys.DecodeStrict(k)
		if err != nil {
			return nil, err
		}
		out = append(out, Entry{Key: key, Progress: r.values.Decode(ctx, v)})
	}
	return out, nil
}
