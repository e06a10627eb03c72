package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/kosync/internal/common"
	"github.com/dmitrijs2005/kosync/internal/logging"
	"github.com/dmitrijs2005/kosync/internal/server/models"
)

// AccountService implements the multi-step account flows on top of a
// SyncService. Each step is its own transaction, so the flows as a whole are
// not atomic.
type AccountService struct {
	store  SyncService
	logger logging.Logger
	now    func() time.Time
}

func NewAccountService(store SyncService, logger logging.Logger) *AccountService {
	return &AccountService{
		store:  store,
		logger: logger.With("module", "account"),
		now:    time.Now,
	}
}

// Register creates a user. Two concurrent registrations of the same name can
// both pass the existence check, in which case the later write wins.
func (s *AccountService) Register(ctx context.Context, username, password string) (*models.User, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", common.ErrValidation)
	}

	existing, err := s.store.GetUser(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, common.ErrUserExists
	}

	user, err := models.NewUser(username, password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	created, err := s.store.CreateOrUpdateUser(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "user registered", "username", username)
	return created, nil
}

// Authenticate verifies key against the stored hash and records the activity.
// Unknown users and wrong keys both yield common.ErrorUnauthorized. A stored
// hash that cannot be parsed is an internal error, not a failed login.
func (s *AccountService) Authenticate(ctx context.Context, username, key string) (*models.User, error) {
	user, err := s.store.GetUser(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, common.ErrorUnauthorized
	}

	ok, err := user.Check(key)
	if err != nil {
		s.logger.Error(ctx, "stored credential is unusable", "username", username, "error", err)
		return nil, fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}
	if !ok {
		return nil, common.ErrorUnauthorized
	}

	user.Touch(s.now())
	updated, err := s.store.CreateOrUpdateUser(ctx, *user)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ResetPassword replaces the stored hash of an existing user. The last
// activity is kept.
func (s *AccountService) ResetPassword(ctx context.Context, username, password string) error {
	if password == "" {
		return fmt.Errorf("%w: password is required", common.ErrValidation)
	}

	user, err := s.store.GetUser(ctx, username)
	if err != nil {
		return err
	}
	if user == nil {
		return fmt.Errorf("user %q: %w", username, common.ErrorNotFound)
	}

	fresh, err := models.NewUser(username, password)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	// a corrupt record decodes without its username
	fresh.LastActivity = user.LastActivity
	user = &fresh

	if _, err := s.store.CreateOrUpdateUser(ctx, *user); err != nil {
		return err
	}

	s.logger.Info(ctx, "password reset", "username", username)
	return nil
}

// RemoveUser deletes username. Removing an unknown user is reported as
// common.ErrorNotFound.
func (s *AccountService) RemoveUser(ctx context.Context, username string) error {
	existed, err := s.store.DeleteUser(ctx, username)
	if err != nil {
		return err
	}
	if !existed {
		return fmt.Errorf("user %q: %w", username, common.ErrorNotFound)
	}
	return nil
}

func (s *AccountService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.store.ListUsers(ctx)
}

// IsAuthFailure reports whether err is a rejected credential rather than an
// operational failure.
func IsAuthFailure(err error) bool {
	return errors.Is(err, common.ErrorUnauthorized)
}
