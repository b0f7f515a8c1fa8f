// Package storage provides the sqlite-backed stores for clients, devices and
// health check history.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// BackendSQLite is the only supported storage backend.
const BackendSQLite = "sqlite"

type handleKey struct {
	backend string
	path    string
}

// Registry hands out one shared database handle per (backend, path) pair.
// It is created by the composition root and closed when the process exits.
type Registry struct {
	mu      sync.Mutex
	handles map[handleKey]*sql.DB
	logger  zerolog.Logger
}

// NewRegistry creates an empty handle registry.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		handles: make(map[handleKey]*sql.DB),
		logger:  logger.With().Str("component", "storage-registry").Logger(),
	}
}

// Open returns the handle for (backend, path), opening and migrating the
// database on first use.
func (r *Registry) Open(backend, path string) (*sql.DB, error) {
	if backend == "" {
		backend = BackendSQLite
	}
	if backend != BackendSQLite {
		return nil, fmt.Errorf("unsupported storage backend: %s", backend)
	}
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database path: %w", err)
	}
	key := handleKey{backend: backend, path: abs}

	r.mu.Lock()
	defer r.mu.Unlock()

	if db, ok := r.handles[key]; ok {
		return db, nil
	}

	db, err := openSQLite(abs)
	if err != nil {
		return nil, err
	}
	r.handles[key] = db

	r.logger.Debug().
		Str("backend", backend).
		Str("path", abs).
		Msg("database opened")

	return db, nil
}

// Len returns the number of open handles.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

// Close closes every handle and empties the registry.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for key, db := range r.handles {
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close %s: %w", key.path, err)
		}
		delete(r.handles, key)
	}
	return firstErr
}

func openSQLite(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000&_txlock=immediate", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works best with a single connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}
