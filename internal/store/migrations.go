package store

import "fmt"

// migrate creates the users table for the configured backend. Statements are
// idempotent so the store can be opened repeatedly against the same database.
func (s *Store) migrate() error {
	var migrations []string

	switch s.driver {
	case "postgres":
		migrations = []string{
			`CREATE TABLE IF NOT EXISTS users (
				id TEXT PRIMARY KEY,
				email TEXT UNIQUE NOT NULL,
				full_name TEXT NOT NULL,
				password_hash TEXT NOT NULL,
				role TEXT NOT NULL DEFAULT 'user',
				status TEXT NOT NULL DEFAULT 'active',
				last_login TIMESTAMPTZ,
				created_at TIMESTAMPTZ NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_users_created_at ON users(created_at)`,
		}
	case "mysql":
		// MySQL has no CREATE INDEX IF NOT EXISTS; the index rides on the
		// table definition instead.
		migrations = []string{
			`CREATE TABLE IF NOT EXISTS users (
				id VARCHAR(36) PRIMARY KEY,
				email VARCHAR(255) UNIQUE NOT NULL,
				full_name VARCHAR(100) NOT NULL,
				password_hash VARCHAR(100) NOT NULL,
				role VARCHAR(10) NOT NULL DEFAULT 'user',
				status VARCHAR(10) NOT NULL DEFAULT 'active',
				last_login DATETIME(6),
				created_at DATETIME(6) NOT NULL,
				updated_at DATETIME(6) NOT NULL,
				INDEX idx_users_created_at (created_at)
			)`,
		}
	default: // sqlite
		migrations = []string{
			`CREATE TABLE IF NOT EXISTS users (
				id TEXT PRIMARY KEY,
				email TEXT UNIQUE NOT NULL,
				full_name TEXT NOT NULL,
				password_hash TEXT NOT NULL,
				role TEXT NOT NULL DEFAULT 'user',
				status TEXT NOT NULL DEFAULT 'active',
				last_login DATETIME,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_users_created_at ON users(created_at)`,
		}
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}
