package services

import (
	"context"
	"errors"
	"sync"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/kosync/internal/common"
	"github.com/dmitrijs2005/kosync/internal/logging"
	"github.com/dmitrijs2005/kosync/internal/server/models"
	"github.com/dmitrijs2005/kosync/internal/server/repositories/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"
)

// --- fake store ---

type fakeStore struct {
	mu    sync.Mutex
	users map[string]models.User

	getErr error
	putErr error
	puts   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: map[string]models.User{}}
}

func (f *fakeStore) GetUser(ctx context.Context, username string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.users[username]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (f *fakeStore) CreateOrUpdateUser(ctx context.Context, user models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return nil, f.putErr
	}
	f.puts++
	f.users[user.Username] = user
	return &user, nil
}

func (f *fakeStore) ListUsers(ctx context.Context) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.User
	for _, u := range f.users {
		out = append(out, u)
	}
	return out, nil
}

func (f *fakeStore) DeleteUser(ctx context.Context, username string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.users[username]
	delete(f.users, username)
	return ok, nil
}

func (f *fakeStore) UpdateProgress(ctx context.Context, user, document string, p models.Progress) (string, uint64, error) {
	return document, p.Timestamp, nil
}

func (f *fakeStore) GetProgress(ctx context.Context, user, document string) (*models.Progress, error) {
	return nil, nil
}

func newAccountService(store SyncService, now time.Time) *AccountService {
	s := NewAccountService(store, logging.Discard())
	s.now = func() time.Time { return now }
	return s
}

// --- Register ---

func TestAccountService_Register(t *testing.T) {
	store := newFakeStore()
	s := newAccountService(store, time.Now())
	ctx := context.Background()

	u, err := s.Register(ctx, "alice", "pw1")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.Nil(t, u.LastActivity)
	assert.NotEqual(t, "pw1", u.PasswordHash)

	_, err = s.Register(ctx, "alice", "other")
	assert.ErrorIs(t, err, common.ErrUserExists)
	assert.Equal(t, 1, store.puts)
}

func TestAccountService_RegisterValidation(t *testing.T) {
	s := newAccountService(newFakeStore(), time.Now())

	_, err := s.Register(context.Background(), "", "pw")
	assert.ErrorIs(t, err, common.ErrValidation)
	_, err = s.Register(context.Background(), "alice", "")
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestAccountService_RegisterStorageError(t *testing.T) {
	store := newFakeStore()
	store.getErr = common.ErrStorage
	s := newAccountService(store, time.Now())

	_, err := s.Register(context.Background(), "alice", "pw")
	assert.ErrorIs(t, err, common.ErrStorage)
}

// --- Authenticate ---

func TestAccountService_Authenticate(t *testing.T) {
	store := newFakeStore()
	now := time.UnixMilli(1_700_000_000_000)
	s := newAccountService(store, now)
	ctx := context.Background()

	_, err := s.Register(ctx, "alice", "pw1")
	require.NoError(t, err)

	u, err := s.Authenticate(ctx, "alice", "pw1")
	require.NoError(t, err)
	require.NotNil(t, u.LastActivity)
	assert.Equal(t, now.UnixMilli(), *u.LastActivity)

	stored, _ := store.GetUser(ctx, "alice")
	require.NotNil(t, stored.LastActivity, "activity must be persisted")
	assert.Equal(t, now.UnixMilli(), *stored.LastActivity)
}

func TestAccountService_AuthenticateRejects(t *testing.T) {
	store := newFakeStore()
	s := newAccountService(store, time.Now())
	ctx := context.Background()

	_, err := s.Register(ctx, "alice", "pw1")
	require.NoError(t, err)
	puts := store.puts

	_, err = s.Authenticate(ctx, "alice", "pw2")
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
	assert.True(t, IsAuthFailure(err))

	_, err = s.Authenticate(ctx, "ghost", "pw1")
	assert.ErrorIs(t, err, common.ErrorUnauthorized)

	assert.Equal(t, puts, store.puts, "failed logins must not write")
}

func TestAccountService_AuthenticateMalformedHashIsInternal(t *testing.T) {
	store := newFakeStore()
	store.users["alice"] = models.User{Username: "alice", PasswordHash: "garbage"}
	s := newAccountService(store, time.Now())

	_, err := s.Authenticate(context.Background(), "alice", "pw")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrorInternal)
	assert.ErrorIs(t, err, common.ErrMalformedHash)
	assert.False(t, IsAuthFailure(err))
}

func TestAccountService_AuthenticateStorageErrorIsNotAuthFailure(t *testing.T) {
	store := newFakeStore()
	store.getErr = common.ErrStorage
	s := newAccountService(store, time.Now())

	_, err := s.Authenticate(context.Background(), "alice", "pw")
	assert.ErrorIs(t, err, common.ErrStorage)
	assert.False(t, IsAuthFailure(err))
}

func TestAccountService_AuthenticateTouchFails(t *testing.T) {
	store := newFakeStore()
	s := newAccountService(store, time.Now())
	ctx := context.Background()
	_, err := s.Register(ctx, "alice", "pw")
	require.NoError(t, err)

	store.putErr = errors.New("disk full")
	_, err = s.Authenticate(ctx, "alice", "pw")
	assert.EqualError(t, err, "disk full")
}

// --- ResetPassword / RemoveUser ---

func TestAccountService_ResetPasswordKeepsActivity(t *testing.T) {
	store := newFakeStore()
	s := newAccountService(store, time.UnixMilli(42))
	ctx := context.Background()

	_, err := s.Register(ctx, "alice", "old")
	require.NoError(t, err)
	_, err = s.Authenticate(ctx, "alice", "old")
	require.NoError(t, err)

	require.NoError(t, s.ResetPassword(ctx, "alice", "new"))

	_, err = s.Authenticate(ctx, "alice", "old")
	assert.ErrorIs(t, err, common.ErrorUnauthorized)

	u, err := store.GetUser(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, u.LastActivity)
	assert.Equal(t, int64(42), *u.LastActivity)

	_, err = s.Authenticate(ctx, "alice", "new")
	assert.NoError(t, err)
}

func TestAccountService_ResetPasswordUnknownUser(t *testing.T) {
	s := newAccountService(newFakeStore(), time.Now())

	err := s.ResetPassword(context.Background(), "ghost", "pw")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	err = s.ResetPassword(context.Background(), "ghost", "")
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestAccountService_RemoveUser(t *testing.T) {
	store := newFakeStore()
	s := newAccountService(store, time.Now())
	ctx := context.Background()
	_, err := s.Register(ctx, "alice", "pw")
	require.NoError(t, err)

	require.NoError(t, s.RemoveUser(ctx, "alice"))
	assert.ErrorIs(t, s.RemoveUser(ctx, "alice"), common.ErrorNotFound)

	list, err := s.ListUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

// --- against the real store ---

func TestAccountService_RegisterRaceOverwrites(t *testing.T) {
	store := newStore(t)
	s := newAccountService(store, time.Now())
	ctx := context.Background()

	// Two registrations that both passed the existence check: the second
	// write replaces the first instead of failing.
	u1, err := models.NewUser("alice", "first")
	require.NoError(t, err)
	u2, err := models.NewUser("alice", "second")
	require.NoError(t, err)
	_, err = store.CreateOrUpdateUser(ctx, u1)
	require.NoError(t, err)
	_, err = store.CreateOrUpdateUser(ctx, u2)
	require.NoError(t, err)

	_, err = s.Authenticate(ctx, "alice", "first")
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
	_, err = s.Authenticate(ctx, "alice", "second")
	assert.NoError(t, err)

	list, err := store.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestAccountService_AuthenticatePersistsActivity(t *testing.T) {
	store := newStore(t)
	now := time.UnixMilli(1_700_000_000_000)
	s := newAccountService(store, now)
	ctx := context.Background()

	_, err := s.Register(ctx, "alice", "pw")
	require.NoError(t, err)
	_, err = s.Authenticate(ctx, "alice", "pw")
	require.NoError(t, err)

	u, err := store.GetUser(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, u.LastActivity)
	assert.Equal(t, now.UnixMilli(), *u.LastActivity)
}

func TestAccountService_ResetPasswordRepairsCorruptRecord(t *testing.T) {
	db, store := openStore(t, filepath.Join(t.TempDir(), "kosync.db"))
	defer db.Close()
	s := newAccountService(store, time.Now())
	ctx := context.Background()

	_, err := s.Register(ctx, "alice", "pw")
	require.NoError(t, err)
	require.NoError(t, db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(users.TableName)).Put([]byte("alice"), []byte("garbage"))
	}))

	_, err = s.Authenticate(ctx, "alice", "pw")
	require.ErrorIs(t, err, common.ErrorInternal)

	require.NoError(t, s.ResetPassword(ctx, "alice", "newpw"))

	u, err := s.Authenticate(ctx, "alice", "newpw")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)

	list, err := s.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "alice", list[0].Username)
}
