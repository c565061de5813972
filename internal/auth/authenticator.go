// Package auth implements credential verification and session management.
//
// Authentication and session issuance are deliberately separate steps: the
// Authenticator only proves a credential pair and yields a Principal, the
// session Manager turns a Principal into a persisted token and back.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"piggybank/internal/core"
)

// ErrInvalidCredentials is returned for an unknown username and for a wrong
// password alike; callers must not be able to tell which field was wrong.
var ErrInvalidCredentials = errors.New("incorrect username or password")

// Principal identifies an authenticated user for the rest of a request.
type Principal struct {
	UserID   int64
	Username string
}

// CredentialStore is the user-record collaborator.
type CredentialStore interface {
	GetUserByUsername(ctx context.Context, username string) (core.User, error)
	GetUserByID(ctx context.Context, id int64) (core.User, error)
}

type Authenticator struct {
	users CredentialStore
}

func NewAuthenticator(users CredentialStore) *Authenticator {
	return &Authenticator{users: users}
}

// Authenticate verifies a username/password pair against the credential
// store. Usernames are case-sensitive; the stored secret is compared
// verbatim (constant-time, as hardening against timing probes).
func (a *Authenticator) Authenticate(ctx context.Context, username, password string) (Principal, error) {
	user, err := a.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			return Principal{}, ErrInvalidCredentials
		}
		return Principal{}, fmt.Errorf("look up user: %w", err)
	}
	if subtle.ConstantTimeCompare([]byte(user.Password), []byte(password)) != 1 {
		return Principal{}, ErrInvalidCredentials
	}
	return Principal{UserID: user.ID, Username: user.Username}, nil
}
