// Package transcript archives finished exchanges to SQLite. The archive is
// write-only: the in-memory session store is never restored from it, it
// exists for offline inspection of past conversations.
package transcript

import (
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"PrettyChat/internal/session"
)

// Store appends committed messages to the transcript database.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
	mu     sync.Mutex
}

// Open opens (creating if needed) the transcript database at path.
func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open transcript database: %w", err)
	}

	createSessionsTable := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		first_seen DATETIME
	);`

	createMessagesTable := `
	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT,
		role TEXT,
		content TEXT,
		timestamp DATETIME,
		FOREIGN KEY(session_id) REFERENCES sessions(id)
	);`

	if _, err := db.Exec(createSessionsTable); err != nil {
		return nil, fmt.Errorf("failed to create sessions table: %w", err)
	}

	if _, err := db.Exec(createMessagesTable); err != nil {
		return nil, fmt.Errorf("failed to create messages table: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// Record appends the finished exchange for sessionID. Failures are logged,
// never propagated: archiving must not disturb the request path.
func (s *Store) Record(sessionID string, messages ...session.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		s.logger.Error("failed to begin transcript transaction", "session_id", sessionID, "error", err)
		return
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		"INSERT OR IGNORE INTO sessions (id, first_seen) VALUES (?, ?)",
		sessionID, time.Now(),
	)
	if err != nil {
		s.logger.Error("failed to record session", "session_id", sessionID, "error", err)
		return
	}

	for _, msg := range messages {
		_, err = tx.Exec(
			"INSERT INTO messages (session_id, role, content, timestamp) VALUES (?, ?, ?, ?)",
			sessionID, msg.Role, msg.Content, msg.Timestamp,
		)
		if err != nil {
			s.logger.Warn("failed to record message", "session_id", sessionID, "error", err)
		}
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("failed to commit transcript", "session_id", sessionID, "error", err)
		return
	}

	s.logger.Info("transcript recorded", "session_id", sessionID, "message_count", len(messages))
}

// MessageCount returns how many messages are archived for sessionID.
func (s *Store) MessageCount(sessionID string) (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM messages WHERE session_id = ?", sessionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return n, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
