// Package sqlite implements store.Client on an embedded SQLite database.
//
// WHY AN EMBEDDED BACKEND?
// The real backend is a hosted Postgres behind a REST gateway and an auth
// server. For local development and integration tests we want the same
// observable behaviour without a network:
//   - a session is established by SignIn/SignUp and held process-wide
//   - updated_date is stamped by the database clock, never by the caller
//   - a signed-in user can only see and modify their own profile row
//   - signing up creates the user's (empty) profile row, like the hosted
//     backend's on-signup trigger
//
// Use ":memory:" for a throwaway database.
//
// modernc.org/sqlite is a pure Go translation of SQLite, so no C toolchain
// is needed to build or cross-compile.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"

	"github.com/sakif/easychef/internal/auth"
	"github.com/sakif/easychef/internal/store"
)

// compile-time check that *DB implements store.Client
var _ store.Client = (*DB)(nil)

// DB is the embedded store. It owns the connection pool and the current session.
type DB struct {
	conn      *sql.DB
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger

	mu      sync.RWMutex
	session *store.Session
}

const memoryPath = ":memory:"

// New opens (or creates) the database at dbPath and creates the schema.
//
// dbPath examples:
//   - "data/easychef.db" → file-based database (persistent)
//   - ":memory:"         → in-memory database, gone on Close
func New(dbPath string, tokens *auth.TokenService, passwords *auth.PasswordService, logger *slog.Logger) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every new connection to ":memory:" is a brand-new empty database,
	// so the pool is pinned to a single connection.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// The server holds one connection, so WAL only matters to other
	// processes (a sqlite3 shell, a backup) reading the file meanwhile.
	// An in-memory database has no file and keeps its default journal.
	if dbPath != memoryPath {
		if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
			conn.Close()
			return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
		}
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{
		conn:      conn,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}

	if err := db.createSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: creating schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks the database answers and the profiles table exists.
func (db *DB) Ping(ctx context.Context) error {
	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM user_profiles`).Scan(&n); err != nil {
		return fmt.Errorf("sqlite: ping: %w", err)
	}
	return nil
}

// createSchema creates the tables of the embedded backend.
// CREATE TABLE IF NOT EXISTS makes it safe on every start.
func (db *DB) createSchema() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS auth_users (
			id            TEXT PRIMARY KEY,
			email         TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at    TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
		);
	`)
	if err != nil {
		return fmt.Errorf("creating auth_users table: %w", err)
	}

	// pantry and cuisines hold JSON arrays as text.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS user_profiles (
			user_id      TEXT PRIMARY KEY,
			user_name    TEXT,
			pantry       TEXT NOT NULL DEFAULT '[]',
			diet         TEXT,
			cuisines     TEXT NOT NULL DEFAULT '[]',
			updated_date TEXT
		);
	`)
	if err != nil {
		return fmt.Errorf("creating user_profiles table: %w", err)
	}

	return nil
}
