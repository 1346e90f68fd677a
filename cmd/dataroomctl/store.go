package main

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// stateDB is the CLI's local SQLite state.
type stateDB struct {
	db *sql.DB
}

// openStateDB opens (and creates if needed) the state database at path.
func openStateDB(path string) (*stateDB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("create state dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}
	// A single connection keeps :memory: databases alive across calls.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS session (
			server     TEXT PRIMARY KEY,
			token      TEXT NOT NULL,
			updated_at DATETIME NOT NULL
		);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("init state db: %w", err)
	}
	return &stateDB{db: db}, nil
}

func (s *stateDB) Close() error {
	return s.db.Close()
}

// tokenStore returns the session token store for one API server.
func (s *stateDB) tokenStore(server string) *sqliteTokenStore {
	return &sqliteTokenStore{db: s.db, server: server}
}

// sqliteTokenStore keeps one session token per server in the session table.
type sqliteTokenStore struct {
	db     *sql.DB
	server string
}

func (s *sqliteTokenStore) Token() (string, error) {
	var token string
	err := s.db.QueryRow(`SELECT token FROM session WHERE server = ?`, s.server).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read session: %w", err)
	}
	return token, nil
}

func (s *sqliteTokenStore) SetToken(token string) error {
	if token == "" {
		return s.ClearToken()
	}
	_, err := s.db.Exec(`
		INSERT INTO session (server, token, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(server) DO UPDATE SET token = excluded.token, updated_at = excluded.updated_at
	`, s.server, token, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *sqliteTokenStore) ClearToken() error {
	if _, err := s.db.Exec(`DELETE FROM session WHERE server = ?`, s.server); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
