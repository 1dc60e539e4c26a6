// Package cache is the SQLite-backed store for compiled chunks and REPL
// history.
package cache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrMiss indicates the requested entry is not in the store.
var ErrMiss = errors.New("inskrywing nie gevind nie")

// Store keeps compiled chunk images keyed by the SHA-256 of their source,
// plus the REPL's input history.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open creates or opens a store at the given path, creating parent
// directories as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("skep kas-gids: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("maak databasis oop: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("stel besig-tydgrens: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS chunks (
		hash TEXT PRIMARY KEY,
		build_id TEXT NOT NULL,
		image BLOB NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("skep chunks-tabel: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS repl_history (
		session_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		input TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (session_id, seq)
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("skep repl_history-tabel: %w", err)
	}

	return &Store{db: db}, nil
}

// DefaultPath is the per-user store location.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("kry tuisgids: %w", err)
	}
	return filepath.Join(home, ".arkaan", "cache.db"), nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SourceHash is the content key for a compilation unit.
func SourceHash(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])
}

// PutChunk stores a serialized chunk image under its source hash and returns
// the entry's build id.
func (s *Store) PutChunk(hash string, image []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	buildID := uuid.New().String()
	_, err := s.db.Exec(
		`INSERT INTO chunks (hash, build_id, image) VALUES (?, ?, ?)
		 ON CONFLICT(hash) DO UPDATE SET build_id = excluded.build_id, image = excluded.image`,
		hash, buildID, image,
	)
	if err != nil {
		return "", fmt.Errorf("stoor stuk: %w", err)
	}
	return buildID, nil
}

// GetChunk fetches a serialized chunk image by source hash.
func (s *Store) GetChunk(hash string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var image []byte
	err := s.db.QueryRow(`SELECT image FROM chunks WHERE hash = ?`, hash).Scan(&image)
	if err == sql.ErrNoRows {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("lees stuk: %w", err)
	}
	return image, nil
}

// NewSession returns a fresh REPL session id.
func NewSession() string {
	return uuid.New().String()
}

// AppendHistory records one REPL input line for a session.
func (s *Store) AppendHistory(sessionID string, input string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT INTO repl_history (session_id, seq, input)
		 VALUES (?, COALESCE((SELECT MAX(seq) FROM repl_history WHERE session_id = ?), 0) + 1, ?)`,
		sessionID, sessionID, input,
	)
	if err != nil {
		return fmt.Errorf("stoor geskiedenis: %w", err)
	}
	return nil
}

// History returns a session's inputs in order.
func (s *Store) History(sessionID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		`SELECT input FROM repl_history WHERE session_id = ? ORDER BY seq`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("lees geskiedenis: %w", err)
	}
	defer rows.Close()

	var inputs []string
	for rows.Next() {
		var input string
		if err := rows.Scan(&input); err != nil {
			return nil, err
		}
		inputs = append(inputs, input)
	}
	return inputs, rows.Err()
}
