// Package services contains server-side business logic. This file implements
// the transactional sync service: every operation runs in exactly one
// transaction of the embedded store.
package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/kosync/internal/common"
	"github.com/dmitrijs2005/kosync/internal/dbx"
	"github.com/dmitrijs2005/kosync/internal/logging"
	"github.com/dmitrijs2005/kosync/internal/server/models"
	"github.com/dmitrijs2005/kosync/internal/server/repositories/repomanager"
	bolt "go.etcd.io/bbolt"
)

// SyncService is the persistence seam used by the HTTP layer and the CLI.
//
// Absent records are reported as nil results, never as errors. Storage
// failures wrap common.ErrStorage.
type SyncService interface {
	GetUser(ctx context.Context, username string) (*models.User, error)
	CreateOrUpdateUser(ctx context.Context, user models.User) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	DeleteUser(ctx context.Context, username string) (bool, error)
	UpdateProgress(ctx context.Context, user, document string, p models.Progress) (string, uint64, error)
	GetProgress(ctx context.Context, user, document string) (*models.Progress, error)
}

// Stats is a snapshot of store statistics.
type Stats = repomanager.Stats

// BoltSyncService implements SyncService on a shared *bolt.DB. Writes are
// serialised by the engine; reads see a consistent snapshot. The service
// holds no locks of its own.
type BoltSyncService struct {
	db          *bolt.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

var _ SyncService = (*BoltSyncService)(nil)

// NewBoltSyncService ensures the schema exists and returns a ready service.
func NewBoltSyncService(ctx context.Context, db *bolt.DB, logger logging.Logger) (*BoltSyncService, error) {
	m := repomanager.NewBoltRepositoryManager(logger)
	if err := m.EnsureSchema(ctx, db); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return &BoltSyncService{
		db:          db,
		repomanager: m,
		logger:      logger.With("module", "sync"),
	}, nil
}

func (s *BoltSyncService) GetUser(ctx context.Context, username string) (*models.User, error) {
	var user *models.User
	err := dbx.View(ctx, s.db, func(ctx context.Context, tx *bolt.Tx) error {
		u, err := s.repomanager.Users(tx).Get(ctx, username)
		if err != nil {
			return err
		}
		user = u
		return nil
	})
	if errors.Is(err, common.ErrorNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// CreateOrUpdateUser stores user under its username, replacing any previous
// record, and returns the stored value.
func (s *BoltSyncService) CreateOrUpdateUser(ctx context.Context, user models.User) (*models.User, error) {
	err := dbx.Update(ctx, s.db, func(ctx context.Context, tx *bolt.Tx) error {
		return s.repomanager.Users(tx).Put(ctx, user)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug(ctx, "user stored", "user", user)
	return &user, nil
}

func (s *BoltSyncService) ListUsers(ctx context.Context) ([]models.User, error) {
	var list []models.User
	err := dbx.View(ctx, s.db, func(ctx context.Context, tx *bolt.Tx) error {
		var err error
		list, err = s.repomanager.Users(tx).List(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}

// DeleteUser removes the user and reports whether it existed. Progress
// records of the user are left in place.
func (s *BoltSyncService) DeleteUser(ctx context.Context, username string) (bool, error) {
	var existed bool
	err := dbx.Update(ctx, s.db, func(ctx context.Context, tx *bolt.Tx) error {
		var err error
		existed, err = s.repomanager.Users(tx).Delete(ctx, username)
		return err
	})
	if err != nil {
		return false, err
	}

	if existed {
		s.logger.Info(ctx, "user deleted", "username", username)
	}
	return existed, nil
}

// UpdateProgress replaces the progress of user on document and echoes back
// the document and the caller supplied timestamp.
func (s *BoltSyncService) UpdateProgress(ctx context.Context, user, document string, p models.Progress) (string, uint64, error) {
	key := models.ProgressKey{Document: document, User: user}
	err := dbx.Update(ctx, s.db, func(ctx context.Context, tx *bolt.Tx) error {
		return s.repomanager.Progress(tx).Put(ctx, key, p)
	})
	if err != nil {
		return "", 0, err
	}

	s.logger.Debug(ctx, "progress stored", "user", user, "document", document, "timestamp", p.Timestamp)
	return document, p.Timestamp, nil
}

func (s *BoltSyncService) GetProgress(ctx context.Context, user, document string) (*models.Progress, error) {
	key := models.ProgressKey{Document: document, User: user}

	var p *models.Progress
	err := dbx.View(ctx, s.db, func(ctx context.Context, tx *bolt.Tx) error {
		got, err := s.repomanager.Progress(tx).Get(ctx, key)
		if err != nil {
			return err
		}
		p = got
		return nil
	})
	if errors.Is(err, common.ErrorNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// DocumentProgress lists the progress every user reported for document,
// ordered by username.
func (s *BoltSyncService) DocumentProgress(ctx context.Context, document string) ([]models.ProgressEntry, error) {
	var out []models.ProgressEntry
	err := dbx.View(ctx, s.db, func(ctx context.Context, tx *bolt.Tx) error {
		entries, err := s.repomanager.Progress(tx).ListDocument(ctx, document)
		if err != nil {
			return err
		}
		for _, e := range entries {
			out = append(out, models.ProgressEntry{User: e.Key.User, Progress: e.Progress})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *BoltSyncService) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := dbx.View(ctx, s.db, func(ctx context.Context, tx *bolt.Tx) error {
		var err error
		st, err = s.repomanager.Stats(ctx, tx)
		return err
	})
	return st, err
}

// Backup writes a consistent copy of the whole store to w from a single read
// transaction. Writers are not blocked while it runs.
func (s *BoltSyncService) Backup(ctx context.Context, w io.Writer) (int64, error) {
	var n int64
	err := dbx.View(ctx, s.db, func(ctx context.Context, tx *bolt.Tx) error {
		var err error
		n, err = tx.WriteTo(w)
		if err != nil {
			return fmt.Errorf("%w: write snapshot: %v", common.ErrStorage, err)
		}
		return nil
	})
	if err != nil {
		return n, err
	}

	s.logger.Info(ctx, "backup written", "bytes", n)
	return n, nil
}
