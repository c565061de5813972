package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"piggybank/internal/core"
)

// Session maps an opaque token ID to the user it was issued for. The
// principal itself is never serialized into the token: resolving a session
// always rehydrates the user from the credential store.
type Session struct {
	Token     string
	UserID    int64
	ExpiresAt time.Time
}

// SessionStore is a key-value collaborator with per-entry expiry. The
// backing implementation (SQLite, in-memory) is swappable without touching
// the Manager's logic.
type SessionStore interface {
	Put(ctx context.Context, s Session) error
	// Get returns the session for a token, or ok=false when the token is
	// unknown or expired.
	Get(ctx context.Context, token string) (Session, bool, error)
	Delete(ctx context.Context, token string) error
}

// Manager issues, resolves and destroys sessions. Cookie values have the
// form "<id>.<sig>" where sig is an HMAC-SHA256 of the id under the
// configured session secret, so a stolen store token alone is not a valid
// cookie.
type Manager struct {
	store  SessionStore
	users  CredentialStore
	secret []byte
	ttl    time.Duration
}

func NewManager(store SessionStore, users CredentialStore, secret string, ttl time.Duration) *Manager {
	return &Manager{store: store, users: users, secret: []byte(secret), ttl: ttl}
}

// Create persists a fresh session for the principal and returns the signed
// token to hand to the client.
func (m *Manager) Create(ctx context.Context, p Principal) (string, error) {
	id := uuid.NewString()
	s := Session{
		Token:     id,
		UserID:    p.UserID,
		ExpiresAt: time.Now().Add(m.ttl),
	}
	if err := m.store.Put(ctx, s); err != nil {
		return "", err
	}
	return id + "." + m.sign(id), nil
}

// Resolve reconstructs the principal behind a signed token. Every failure
// mode resolves to ok=false: bad signature, unknown or expired token,
// storage error, or a session whose user no longer exists. The session
// layer fails closed, never open.
func (m *Manager) Resolve(ctx context.Context, token string) (Principal, bool) {
	id, ok := m.verify(token)
	if !ok {
		return Principal{}, false
	}
	s, found, err := m.store.Get(ctx, id)
	if err != nil {
		slog.WarnContext(ctx, "Session lookup failed, treating as unauthenticated", "error", err)
		return Principal{}, false
	}
	if !found {
		return Principal{}, false
	}
	if !s.ExpiresAt.IsZero() && time.Now().After(s.ExpiresAt) {
		_ = m.store.Delete(ctx, id)
		return Principal{}, false
	}
	user, err := m.users.GetUserByID(ctx, s.UserID)
	if err != nil {
		// Dangling session: the referenced user is gone. Discard it.
		if errors.Is(err, core.ErrUserNotFound) {
			_ = m.store.Delete(ctx, id)
		}
		return Principal{}, false
	}
	return Principal{UserID: user.ID, Username: user.Username}, true
}

// Destroy invalidates a token. Destroying an unknown or already destroyed
// token is a no-op.
func (m *Manager) Destroy(ctx context.Context, token string) {
	id, ok := m.verify(token)
	if !ok {
		return
	}
	if err := m.store.Delete(ctx, id); err != nil {
		slog.WarnContext(ctx, "Session delete failed", "error", err)
	}
}

// TTL returns the configured session lifetime, used by the transport layer
// to align cookie expiry with store expiry.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

func (m *Manager) sign(id string) string {
	mac := hmac.New(sha256.New, m.secret)
	mac.Write([]byte(id))
	return hex.EncodeToString(mac.Sum(nil))
}

// verify splits a signed token and checks its signature, returning the bare
// store ID.
func (m *Manager) verify(token string) (string, bool) {
	id, sig, found := strings.Cut(token, ".")
	if !found || id == "" {
		return "", false
	}
	if !hmac.Equal([]byte(sig), []byte(m.sign(id))) {
		return "", false
	}
	return id, true
}
