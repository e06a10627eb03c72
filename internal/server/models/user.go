// Package models defines the records persisted by the sync service.
package models

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrijs2005/kosync/internal/codec"
	"github.com/dmitrijs2005/kosync/internal/cryptox"
	"github.com/pingcap/errors"
)

const (
	userFieldUsername     = 1
	userFieldPasswordHash = 2
	userFieldLastActivity = 3
)

// User is a sync account. Username is the primary key. PasswordHash is a
// self-describing argon2id record, never the plaintext. LastActivity is the
// time of the last successful authentication in Unix milliseconds, nil if the
// user never authenticated.
type User struct {
	Username     string
	PasswordHash string
	LastActivity *int64
}

// NewUser hashes password and returns a user without activity.
func NewUser(username, password string) (User, error) {
	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	return User{Username: username, PasswordHash: hash}, nil
}

// Check reports whether attempt matches the stored hash. A mismatch is
// (false, nil); an error means the stored hash itself is unusable.
func (u User) Check(attempt string) (bool, error) {
	return cryptox.VerifyPassword(u.PasswordHash, attempt)
}

func (u *User) SetLastActivity(ms int64) {
	u.LastActivity = &ms
}

// Touch records now as the last activity.
func (u *User) Touch(now time.Time) {
	u.SetLastActivity(now.UnixMilli())
}

func (u User) String() string {
	return fmt.Sprintf("User{%s}", u.Username)
}

// LogValue keeps the password hash out of structured logs.
func (u User) LogValue() slog.Value {
	attrs := []slog.Attr{slog.String("username", u.Username)}
	if u.LastActivity != nil {
		attrs = append(attrs, slog.Int64("last_activity", *u.LastActivity))
	}
	return slog.GroupValue(attrs...)
}

func (u User) MarshalBinary() ([]byte, error) {
	w := codec.NewRecordWriter()
	w.PutString(userFieldUsername, u.Username)
	w.PutString(userFieldPasswordHash, u.PasswordHash)
	if u.LastActivity != nil {
		w.PutInt64(userFieldLastActivity, *u.LastActivity)
	}
	return w.Bytes(), nil
}

func (u *User) UnmarshalBinary(data []byte) error {
	r, err := codec.NewRecordReader(data)
	if err != nil {
		return err
	}

	var out User
	for r.Next() {
		switch r.Field() {
		case userFieldUsername:
			out.Username, err = r.StringValue()
		case userFieldPasswordHash:
			out.PasswordHash, err = r.StringValue()
		case userFieldLastActivity:
			var ms int64
			if ms, err = r.Int64(); err == nil {
				out.SetLastActivity(ms)
			}
		}
		if err != nil {
			return err
		}
	}
	if err := r.Err(); err != nil {
		return err
	}
	if out.Username == "" {
		return errors.New("user record without username")
	}

	*u = out
	return nil
}
