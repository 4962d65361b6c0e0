package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/webstylepress/chatbot-backend/internal/model/chat"
)

// SQLiteStore persists messages in a local SQLite database. It is the
// default durable store when no DATABASE_URL is configured.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path, ensuring the
// parent directory exists, and applies the schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create db directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open db at %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping db at %s: %w", path, err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			sender TEXT NOT NULL,
			content TEXT NOT NULL,
			timestamp INTEGER NOT NULL,
			metadata TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_messages_session_time ON messages(session_id, timestamp);
	`)
	if err != nil {
		return fmt.Errorf("failed to init schema: %w", err)
	}
	return nil
}

// Save appends one validated message.
func (s *SQLiteStore) Save(ctx context.Context, msg chat.Message) (chat.Message, error) {
	if err := msg.Validate(); err != nil {
		return chat.Message{}, err
	}

	msg.ID = uuid.NewString()
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	var metadata sql.NullString
	if msg.Metadata != nil {
		raw, err := json.Marshal(msg.Metadata)
		if err != nil {
			return chat.Message{}, fmt.Errorf("failed to marshal metadata: %w", err)
		}
		metadata = sql.NullString{String: string(raw), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, session_id, sender, content, timestamp, metadata) VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ID, string(msg.SessionID), msg.Sender, msg.Content, msg.Timestamp.UnixNano(), metadata,
	)
	if err != nil {
		return chat.Message{}, fmt.Errorf("failed to insert message: %w", err)
	}
	return msg, nil
}

// Find returns a session's messages in ascending timestamp order, rowid
// breaking ties so equal timestamps keep insertion order.
func (s *SQLiteStore) Find(ctx context.Context, sessionID chat.SessionID, offset, limit int) ([]chat.Message, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = -1 // sqlite: no limit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, sender, content, timestamp, metadata
		 FROM messages WHERE session_id = ?
		 ORDER BY timestamp ASC, rowid ASC
		 LIMIT ? OFFSET ?`,
		string(sessionID), limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	messages := make([]chat.Message, 0, 16)
	for rows.Next() {
		var (
			msg      chat.Message
			session  string
			ts       int64
			metadata sql.NullString
		)
		if err := rows.Scan(&msg.ID, &session, &msg.Sender, &msg.Content, &ts, &metadata); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msg.SessionID = chat.SessionID(session)
		msg.Timestamp = time.Unix(0, ts).UTC()
		if metadata.Valid {
			var meta chat.Metadata
			if err := json.Unmarshal([]byte(metadata.String), &meta); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
			}
			msg.Metadata = &meta
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read messages: %w", err)
	}
	return messages, nil
}

// Count reports how many messages a session holds.
func (s *SQLiteStore) Count(ctx context.Context, sessionID chat.SessionID) (int64, error) {
	var total int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE session_id = ?`, string(sessionID),
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return total, nil
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
