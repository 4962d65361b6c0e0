package store

import (
	"context"

	"github.com/webstylepress/chatbot-backend/internal/model/chat"
)

// MessageStore is the append-only record of conversation turns. Messages
// belong to exactly one session and are never edited or deleted.
type MessageStore interface {
	// Save appends one message after validating it, assigning an ID and
	// defaulting the timestamp to write time.
	Save(ctx context.Context, msg chat.Message) (chat.Message, error)

	// Find returns messages for a session ordered by ascending timestamp,
	// insertion order breaking ties, sliced by offset and limit. A limit of
	// zero or less returns everything from offset onward.
	Find(ctx context.Context, sessionID chat.SessionID, offset, limit int) ([]chat.Message, error)

	// Count reports the total number of messages stored for a session.
	Count(ctx context.Context, sessionID chat.SessionID) (int64, error)

	// Close releases any underlying resources.
	Close() error
}
