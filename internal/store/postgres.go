package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/webstylepress/chatbot-backend/internal/logger"
	"github.com/webstylepress/chatbot-backend/internal/model/chat"
)

// messageRecord is the gorm mapping of chat.Message. Seq is a monotonically
// increasing key that preserves insertion order for equal timestamps.
type messageRecord struct {
	Seq       int64          `gorm:"primaryKey;autoIncrement"`
	ID        string         `gorm:"type:uuid;uniqueIndex"`
	SessionID string         `gorm:"index:idx_chat_messages_session_time,priority:1"`
	Sender    string         `gorm:"not null"`
	Content   string         `gorm:"not null"`
	Timestamp time.Time      `gorm:"not null;index:idx_chat_messages_session_time,priority:2"`
	Metadata  datatypes.JSON `gorm:"null"`
}

func (messageRecord) TableName() string {
	return "chat_messages"
}

// PostgresStore persists messages in Postgres via gorm. Chosen when
// DATABASE_URL is set.
type PostgresStore struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewPostgresStore connects to the given DSN and migrates the schema.
func NewPostgresStore(dsn string, baseLog *logger.Logger) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := db.AutoMigrate(&messageRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate chat_messages: %w", err)
	}
	return &PostgresStore{db: db, log: baseLog.With("store", "postgres")}, nil
}

// Save appends one validated message.
func (s *PostgresStore) Save(ctx context.Context, msg chat.Message) (chat.Message, error) {
	if err := msg.Validate(); err != nil {
		return chat.Message{}, err
	}

	msg.ID = uuid.NewString()
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	record := messageRecord{
		ID:        msg.ID,
		SessionID: string(msg.SessionID),
		Sender:    msg.Sender,
		Content:   msg.Content,
		Timestamp: msg.Timestamp,
	}
	if msg.Metadata != nil {
		raw, err := json.Marshal(msg.Metadata)
		if err != nil {
			return chat.Message{}, fmt.Errorf("failed to marshal metadata: %w", err)
		}
		record.Metadata = datatypes.JSON(raw)
	}

	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		s.log.Error("failed to create chat message", "error", err)
		return chat.Message{}, err
	}
	return msg, nil
}

// Find returns a session's messages in ascending timestamp order, seq
// breaking ties.
func (s *PostgresStore) Find(ctx context.Context, sessionID chat.SessionID, offset, limit int) ([]chat.Message, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = -1 // gorm: no limit
	}

	var records []messageRecord
	err := s.db.WithContext(ctx).
		Where("session_id = ?", string(sessionID)).
		Order("timestamp ASC, seq ASC").
		Offset(offset).
		Limit(limit).
		Find(&records).Error
	if err != nil {
		s.log.Error("failed to get chat messages by sessionID", "error", err)
		return nil, err
	}

	messages := make([]chat.Message, 0, len(records))
	for _, record := range records {
		msg := chat.Message{
			ID:        record.ID,
			SessionID: chat.SessionID(record.SessionID),
			Sender:    record.Sender,
			Content:   record.Content,
			Timestamp: record.Timestamp.UTC(),
		}
		if len(record.Metadata) > 0 {
			var meta chat.Metadata
			if err := json.Unmarshal(record.Metadata, &meta); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
			}
			msg.Metadata = &meta
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// Count reports how many messages a session holds.
func (s *PostgresStore) Count(ctx context.Context, sessionID chat.SessionID) (int64, error) {
	var total int64
	err := s.db.WithContext(ctx).
		Model(&messageRecord{}).
		Where("session_id = ?", string(sessionID)).
		Count(&total).Error
	if err != nil {
		s.log.Error("failed to count chat messages", "error", err)
		return 0, err
	}
	return total, nil
}

// Close closes the underlying connection pool.
func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
