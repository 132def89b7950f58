package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/gatekit/gatekit/internal/model"
)

// Config selects the backing database for the user store.
//
// Driver is one of "sqlite" (default), "postgres", or "mysql". For sqlite,
// DSN is a data directory; pass empty string for in-memory (tests). For
// postgres and mysql, DSN is a full connection string; mysql DSNs must
// include parseTime=true.
type Config struct {
	Driver string
	DSN    string
}

// Store persists user accounts behind a uniform interface regardless of the
// configured SQL backend. Email uniqueness is enforced by a UNIQUE
// constraint, so concurrent signups with the same address cannot both win.
type Store struct {
	db     *sqlx.DB
	driver string
}

// New opens the user store and applies migrations.
func New(cfg Config) (*Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = "sqlite"
	}

	var (
		db  *sqlx.DB
		err error
	)
	switch driver {
	case "sqlite":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = ":memory:?_journal_mode=WAL"
		} else {
			if err := os.MkdirAll(dsn, 0755); err != nil {
				return nil, fmt.Errorf("create data dir: %w", err)
			}
			dsn = filepath.Join(dsn, "gatekit.db") + "?_journal_mode=WAL&_busy_timeout=5000"
		}
		db, err = sqlx.Connect("sqlite", dsn)
		if err == nil {
			db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes
		}
	case "postgres":
		db, err = sqlx.Connect("pgx", cfg.DSN)
	case "mysql":
		db, err = sqlx.Connect("mysql", cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported store driver: %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open user database: %w", err)
	}

	s := &Store{db: db, driver: driver}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate user database: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies database connectivity, used by the readiness probe.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// isUniqueViolation reports whether err is a unique-constraint failure.
// Matched by message because each backend reports it differently.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "duplicate entry")
}

// ---------------------------------------------------------------------------
// User CRUD
// ---------------------------------------------------------------------------

// CreateUser inserts a new user. If the ID is empty a UUIDv7 is assigned, so
// insertion order and lexicographic ID order agree. CreatedAt and UpdatedAt
// are set by the store. Returns ErrDuplicateEmail on an email collision.
func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	if u.ID == "" {
		u.ID = uuid.Must(uuid.NewV7()).String()
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	const q = `INSERT INTO users
		(id, email, full_name, password_hash, role, status, last_login, created_at, updated_at)
		VALUES
		(:id, :email, :full_name, :password_hash, :role, :status, :last_login, :created_at, :updated_at)`

	if _, err := s.db.NamedExecContext(ctx, q, u); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetUser returns a user by ID.
func (s *Store) GetUser(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	q := s.db.Rebind("SELECT * FROM users WHERE id = ?")
	if err := s.db.GetContext(ctx, &u, q, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// GetUserByEmail returns a user by email address. Emails are stored
// lowercased, so the caller is expected to normalize before lookup.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	q := s.db.Rebind("SELECT * FROM users WHERE email = ?")
	if err := s.db.GetContext(ctx, &u, q, email); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return &u, nil
}

// ListUsers returns one page of users, newest first. Requesting a page past
// the end yields an empty slice, not an error.
func (s *Store) ListUsers(ctx context.Context, offset, limit int) ([]model.User, error) {
	var users []model.User
	q := s.db.Rebind("SELECT * FROM users ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?")
	if err := s.db.SelectContext(ctx, &users, q, limit, offset); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// CountUsers returns the total number of registered users.
func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM users"); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

// UpdateProfile sets the full name and email for a user. Returns
// ErrDuplicateEmail if the new email belongs to a different user and
// ErrNotFound if the ID is unknown.
func (s *Store) UpdateProfile(ctx context.Context, id, fullName, email string) error {
	q := s.db.Rebind("UPDATE users SET full_name = ?, email = ?, updated_at = ? WHERE id = ?")
	result, err := s.db.ExecContext(ctx, q, fullName, email, time.Now().UTC(), id)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("update profile: %w", err)
	}
	return checkAffected(result, "update profile")
}

// SetStatus flips a user's status. The operation is idempotent: setting an
// already-active user to active succeeds without side effects.
func (s *Store) SetStatus(ctx context.Context, id string, status model.Status) error {
	q := s.db.Rebind("UPDATE users SET status = ?, updated_at = ? WHERE id = ?")
	result, err := s.db.ExecContext(ctx, q, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	return checkAffected(result, "set status")
}

// UpdateLastLogin sets the last_login timestamp, called on successful login.
func (s *Store) UpdateLastLogin(ctx context.Context, id string) error {
	now := time.Now().UTC()
	q := s.db.Rebind("UPDATE users SET last_login = ?, updated_at = ? WHERE id = ?")
	result, err := s.db.ExecContext(ctx, q, now, now, id)
	if err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return checkAffected(result, "update last login")
}

// UpdatePassword replaces the stored password hash.
func (s *Store) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	q := s.db.Rebind("UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?")
	result, err := s.db.ExecContext(ctx, q, passwordHash, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return checkAffected(result, "update password")
}

// HasAnyAdmin reports whether at least one admin account exists. Used for
// first-run detection at serve time: roles are immutable through the public
// API, so the first admin must come from the CLI.
func (s *Store) HasAnyAdmin(ctx context.Context) (bool, error) {
	var count int
	q := s.db.Rebind("SELECT COUNT(*) FROM users WHERE role = ?")
	if err := s.db.GetContext(ctx, &count, q, model.RoleAdmin); err != nil {
		return false, fmt.Errorf("count admins: %w", err)
	}
	return count > 0, nil
}

// SetRole changes a user's role. Not exposed over HTTP; reserved for the
// admin CLI.
func (s *Store) SetRole(ctx context.Context, id string, role model.Role) error {
	q := s.db.Rebind("UPDATE users SET role = ?, updated_at = ? WHERE id = ?")
	result, err := s.db.ExecContext(ctx, q, role, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("set role: %w", err)
	}
	return checkAffected(result, "set role")
}

func checkAffected(result sql.Result, op string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
