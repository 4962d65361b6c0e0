package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/webstylepress/chatbot-backend/internal/completion"
	"github.com/webstylepress/chatbot-backend/internal/logger"
	"github.com/webstylepress/chatbot-backend/internal/model/chat"
	"github.com/webstylepress/chatbot-backend/internal/store"
)

var (
	// ErrEmptyMessage rejects input that is empty after trimming.
	ErrEmptyMessage = errors.New("chat: message is required")
	// ErrSessionRequired rejects history reads without a session identifier.
	ErrSessionRequired = errors.New("chat: session id is required")
)

// StoreError wraps a persistence failure surfaced at the service boundary.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return "chat: " + e.Op + ": " + e.Err.Error()
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Completer abstracts the upstream completion API.
type Completer interface {
	Complete(ctx context.Context, userText string) (completion.Result, error)
}

// DefaultPageSize is the history page size when the caller does not pick one.
const DefaultPageSize = 50

// Service orchestrates a single chat turn: validate, persist the user turn,
// call upstream once, persist the bot turn. It also serves the paginated
// history read path.
type Service struct {
	store     store.MessageStore
	completer Completer
	model     string
	log       *logger.Logger
}

// NewService wires the chat service to its store and completion client.
func NewService(st store.MessageStore, completer Completer, model string, baseLog *logger.Logger) *Service {
	return &Service{
		store:     st,
		completer: completer,
		model:     model,
		log:       baseLog.With("service", "chat"),
	}
}

// Reply is the outcome of one successful send.
type Reply struct {
	Response       string
	SessionID      chat.SessionID
	ProcessingTime int
	Timestamp      time.Time
}

// SendMessage handles one user turn. The upstream call is attempted exactly
// once; on upstream failure the already-persisted user message is kept and no
// bot message is written.
func (s *Service) SendMessage(ctx context.Context, rawText string, sessionID chat.SessionID) (Reply, error) {
	text := strings.TrimSpace(rawText)
	if text == "" {
		return Reply{}, ErrEmptyMessage
	}

	if sessionID == "" {
		sessionID = chat.NewSessionID()
	}

	// Stored and transmitted text match: the trimmed content is both
	// persisted and sent upstream.
	if _, err := s.store.Save(ctx, chat.Message{
		SessionID: sessionID,
		Sender:    chat.SenderUser,
		Content:   text,
	}); err != nil {
		var verr *chat.ValidationError
		if errors.As(err, &verr) {
			return Reply{}, err
		}
		s.log.Error("failed to save user message", "sessionId", sessionID, "error", err)
		return Reply{}, &StoreError{Op: "save user message", Err: err}
	}

	start := time.Now()
	result, err := s.completer.Complete(ctx, text)
	if err != nil {
		s.log.Warn("completion failed", "sessionId", sessionID, "error", err)
		return Reply{}, err
	}
	elapsed := int(time.Since(start).Milliseconds())

	if _, err := s.store.Save(ctx, chat.Message{
		SessionID: sessionID,
		Sender:    chat.SenderBot,
		Content:   result.Text,
		Metadata: &chat.Metadata{
			Model:          s.model,
			Tokens:         result.TokensUsed,
			ProcessingTime: elapsed,
		},
	}); err != nil {
		s.log.Error("failed to save bot message", "sessionId", sessionID, "error", err)
		return Reply{}, &StoreError{Op: "save bot message", Err: err}
	}

	return Reply{
		Response:       result.Text,
		SessionID:      sessionID,
		ProcessingTime: elapsed,
		Timestamp:      time.Now().UTC(),
	}, nil
}

// HistoryPage is one page of a session's transcript.
type HistoryPage struct {
	Messages      []chat.Message
	CurrentPage   int
	TotalPages    int
	TotalMessages int64
}

// History returns a page of a session's messages in ascending timestamp
// order. Reads have no side effects.
func (s *Service) History(ctx context.Context, sessionID chat.SessionID, page, pageSize int) (HistoryPage, error) {
	if sessionID == "" {
		return HistoryPage{}, ErrSessionRequired
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}

	offset := (page - 1) * pageSize
	messages, err := s.store.Find(ctx, sessionID, offset, pageSize)
	if err != nil {
		s.log.Error("failed to load history", "sessionId", sessionID, "error", err)
		return HistoryPage{}, &StoreError{Op: "find messages", Err: err}
	}

	total, err := s.store.Count(ctx, sessionID)
	if err != nil {
		s.log.Error("failed to count history", "sessionId", sessionID, "error", err)
		return HistoryPage{}, &StoreError{Op: "count messages", Err: err}
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return HistoryPage{
		Messages:      messages,
		CurrentPage:   page,
		TotalPages:    totalPages,
		TotalMessages: total,
	}, nil
}
