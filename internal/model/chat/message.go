package chat

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxContentLength bounds the content of a single message, counted in
// characters, not bytes.
const MaxContentLength = 2000

// Sender values for Message.Sender.
const (
	SenderUser = "user"
	SenderBot  = "bot"
)

// Metadata carries generation details recorded on bot messages.
type Metadata struct {
	Model          string `json:"model,omitempty"`
	Tokens         int    `json:"tokens,omitempty"`
	ProcessingTime int    `json:"processingTime,omitempty"`
}

// Message persists a single conversation turn. A message is never mutated
// after it has been saved.
type Message struct {
	ID        string    `json:"id,omitempty"`
	SessionID SessionID `json:"sessionId"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Metadata  *Metadata `json:"metadata,omitempty"`
}

// ValidationError reports a message that violates the store contract.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid message: %s %s", e.Field, e.Reason)
}

// Validate enforces the append contract: a session, bounded non-empty
// content, and a known sender.
func (m Message) Validate() error {
	if m.SessionID == "" {
		return &ValidationError{Field: "sessionId", Reason: "is required"}
	}
	if strings.TrimSpace(m.Content) == "" {
		return &ValidationError{Field: "content", Reason: "is required"}
	}
	if utf8.RuneCountInString(m.Content) > MaxContentLength {
		return &ValidationError{Field: "content", Reason: fmt.Sprintf("exceeds %d characters", MaxContentLength)}
	}
	if m.Sender != SenderUser && m.Sender != SenderBot {
		return &ValidationError{Field: "sender", Reason: fmt.Sprintf("must be %q or %q", SenderUser, SenderBot)}
	}
	return nil
}
