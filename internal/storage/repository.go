package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"piggybank/internal/auth"
	"piggybank/internal/core"
	"piggybank/internal/log"

	_ "modernc.org/sqlite"
)

// Sync states for the savings-report mirror.
const (
	SyncPending = "pending"
	SyncDone    = "synced"
	SyncError   = "error"
)

// SQLiteRepository owns the users, sessions and piggy_banks tables. Every
// piggy-bank operation is scoped by owner: an id that exists under a
// different owner behaves exactly like an id that does not exist.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// --- users ---

// CreateUser inserts a credential record. Registration lives outside the
// request path; only the operator tool and tests call this.
func (r *SQLiteRepository) CreateUser(ctx context.Context, username, password, googleID string) (core.User, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (username, password, google_id) VALUES (?, ?, ?)`,
		username, password, googleID)
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.User{}, fmt.Errorf("user insert id: %w", err)
	}
	return core.User{ID: id, Username: username, Password: password, GoogleID: googleID}, nil
}

func (r *SQLiteRepository) GetUserByUsername(ctx context.Context, username string) (core.User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx,
		`SELECT id, username, password, google_id FROM users WHERE username = ?`, username))
}

func (r *SQLiteRepository) GetUserByID(ctx context.Context, id int64) (core.User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx,
		`SELECT id, username, password, google_id FROM users WHERE id = ?`, id))
}

func (r *SQLiteRepository) scanUser(row *sql.Row) (core.User, error) {
	var u core.User
	err := row.Scan(&u.ID, &u.Username, &u.Password, &u.GoogleID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.ErrUserNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}

// DeleteUser removes a user record; their sessions cascade away. Exists for
// operator cleanup and for exercising dangling-session behavior.
func (r *SQLiteRepository) DeleteUser(ctx context.Context, username string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE username = ?`, username)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrUserNotFound
	}
	return nil
}

// --- sessions ---

// SessionStore is the SQLite-backed auth.SessionStore.
type SessionStore struct {
	db *sql.DB
}

func (r *SQLiteRepository) Sessions() *SessionStore {
	return &SessionStore{db: r.db}
}

func (s *SessionStore) Put(ctx context.Context, sess auth.Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (token, user_id, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(token) DO UPDATE SET user_id = excluded.user_id, expires_at = excluded.expires_at`,
		sess.Token, sess.UserID, sess.ExpiresAt.UTC())
	if err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

func (s *SessionStore) Get(ctx context.Context, token string) (auth.Session, bool, error) {
	var sess auth.Session
	err := s.db.QueryRowContext(ctx,
		`SELECT token, user_id, expires_at FROM sessions WHERE token = ?`, token).
		Scan(&sess.Token, &sess.UserID, &sess.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.Session{}, false, nil
	}
	if err != nil {
		return auth.Session{}, false, fmt.Errorf("get session: %w", err)
	}
	if time.Now().After(sess.ExpiresAt) {
		_ = s.Delete(ctx, token)
		return auth.Session{}, false, nil
	}
	return sess, true, nil
}

func (s *SessionStore) Delete(ctx context.Context, token string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// CleanExpired sweeps sessions past their expiry.
func (s *SessionStore) CleanExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < ?`, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("clean expired sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// --- piggy banks ---

// ListPiggies returns all piggy banks stamped with the given owner, in
// storage order.
func (r *SQLiteRepository) ListPiggies(ctx context.Context, owner string) ([]core.PiggyBank, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, amount_cents, goal_cents, need, owner
		 FROM piggy_banks WHERE owner = ?`, owner)
	if err != nil {
		return nil, fmt.Errorf("list piggy banks: %w", err)
	}
	defer rows.Close()

	var out []core.PiggyBank
	for rows.Next() {
		var p core.PiggyBank
		if err := rows.Scan(&p.ID, &p.Title, &p.AmountCents, &p.GoalCents, &p.Need, &p.Owner); err != nil {
			return nil, fmt.Errorf("scan piggy bank: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate piggy banks: %w", err)
	}
	return out, nil
}

// CreatePiggy inserts a validated piggy bank stamped with its owner and
// returns the stored record including the generated id.
func (r *SQLiteRepository) CreatePiggy(ctx context.Context, p core.PiggyBank) (core.PiggyBank, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO piggy_banks (title, amount_cents, goal_cents, need, owner)
		 VALUES (?, ?, ?, ?, ?)`,
		p.Title, p.AmountCents, p.GoalCents, string(p.Need), p.Owner)
	if err != nil {
		return core.PiggyBank{}, fmt.Errorf("create piggy bank: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.PiggyBank{}, fmt.Errorf("piggy bank insert id: %w", err)
	}
	p.ID = id

	slog.InfoContext(ctx, "Piggy bank saved",
		log.NewFields().
			WithPiggy(p.ID, p.Title, p.AmountCents, p.GoalCents).
			WithUsername(p.Owner).
			ToSlice()...)

	return p, nil
}

// UpdatePiggy overwrites the record matching both id and owner with a single
// conditional statement, so concurrent requests can never cross owners.
// Zero affected rows reports ErrPiggyNotFound whether the id is missing or
// belongs to someone else.
func (r *SQLiteRepository) UpdatePiggy(ctx context.Context, id int64, owner string, p core.PiggyBank) (core.PiggyBank, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE piggy_banks
		 SET title = ?, amount_cents = ?, goal_cents = ?, need = ?,
		     version = version + 1, sync_state = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND owner = ?`,
		p.Title, p.AmountCents, p.GoalCents, string(p.Need), SyncPending, id, owner)
	if err != nil {
		return core.PiggyBank{}, fmt.Errorf("update piggy bank: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return core.PiggyBank{}, fmt.Errorf("update rows affected: %w", err)
	}
	if n == 0 {
		return core.PiggyBank{}, core.ErrPiggyNotFound
	}

	p.ID = id
	p.Owner = owner
	return p, nil
}

// DeletePiggy removes the record matching both id and owner; mismatches
// report ErrPiggyNotFound uniformly.
func (r *SQLiteRepository) DeletePiggy(ctx context.Context, id int64, owner string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM piggy_banks WHERE id = ? AND owner = ?`, id, owner)
	if err != nil {
		return fmt.Errorf("delete piggy bank: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrPiggyNotFound
	}

	slog.InfoContext(ctx, "Piggy bank deleted", "id", id, "owner", owner)
	return nil
}

// --- savings-report sync support ---

// PiggyRow is a stored piggy bank plus its sync bookkeeping.
type PiggyRow struct {
	Piggy     core.PiggyBank
	Version   int64
	SyncState string
	UpdatedAt time.Time
}

// GetPiggyRow loads a piggy bank by bare id for the report worker. Owner
// scoping does not apply here: the worker mirrors every owner's rows.
func (r *SQLiteRepository) GetPiggyRow(ctx context.Context, id int64) (PiggyRow, error) {
	var row PiggyRow
	err := r.db.QueryRowContext(ctx,
		`SELECT id, title, amount_cents, goal_cents, need, owner, version, sync_state, updated_at
		 FROM piggy_banks WHERE id = ?`, id).
		Scan(&row.Piggy.ID, &row.Piggy.Title, &row.Piggy.AmountCents, &row.Piggy.GoalCents,
			&row.Piggy.Need, &row.Piggy.Owner, &row.Version, &row.SyncState, &row.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return PiggyRow{}, core.ErrPiggyNotFound
	}
	if err != nil {
		return PiggyRow{}, fmt.Errorf("get piggy bank row: %w", err)
	}
	return row, nil
}

// GetPendingSync returns rows waiting to be mirrored, oldest first.
func (r *SQLiteRepository) GetPendingSync(ctx context.Context, limit int) ([]PiggyRow, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, amount_cents, goal_cents, need, owner, version, sync_state, updated_at
		 FROM piggy_banks WHERE sync_state = ? ORDER BY updated_at LIMIT ?`,
		SyncPending, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending sync rows: %w", err)
	}
	defer rows.Close()

	var out []PiggyRow
	for rows.Next() {
		var row PiggyRow
		if err := rows.Scan(&row.Piggy.ID, &row.Piggy.Title, &row.Piggy.AmountCents,
			&row.Piggy.GoalCents, &row.Piggy.Need, &row.Piggy.Owner,
			&row.Version, &row.SyncState, &row.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan pending sync row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending sync rows: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id int64) error {
	return r.setSyncState(ctx, id, SyncDone)
}

func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id int64) error {
	return r.setSyncState(ctx, id, SyncError)
}

func (r *SQLiteRepository) setSyncState(ctx context.Context, id int64, state string) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE piggy_banks SET sync_state = ? WHERE id = ?`, state, id); err != nil {
		return fmt.Errorf("set sync state: %w", err)
	}
	return nil
}
