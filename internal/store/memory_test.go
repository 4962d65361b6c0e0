package store_test

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/webstylepress/chatbot-backend/internal/model/chat"
	"github.com/webstylepress/chatbot-backend/internal/store"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	saved, err := s.Save(ctx, chat.Message{SessionID: "session-a", Sender: chat.SenderUser, Content: "hello"})
	if err != nil {
		t.Fatalf("Save err: %v", err)
	}
	if saved.ID == "" {
		t.Fatal("expected assigned message ID")
	}
	if saved.Timestamp.IsZero() {
		t.Fatal("expected defaulted timestamp")
	}

	got, err := s.Find(ctx, "session-a", 0, 10)
	if err != nil {
		t.Fatalf("Find err: %v", err)
	}
	if len(got) != 1 || got[0].Content != "hello" {
		t.Fatalf("unexpected messages: %+v", got)
	}

	other, err := s.Find(ctx, "session-b", 0, 10)
	if err != nil {
		t.Fatalf("Find err: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("message leaked across sessions: %+v", other)
	}
}

func TestMemoryStoreOrdering(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	// Saved out of chronological order on purpose.
	for _, m := range []chat.Message{
		{SessionID: "s", Sender: chat.SenderUser, Content: "third", Timestamp: base.Add(2 * time.Second)},
		{SessionID: "s", Sender: chat.SenderUser, Content: "first", Timestamp: base},
		{SessionID: "s", Sender: chat.SenderBot, Content: "second", Timestamp: base.Add(time.Second)},
	} {
		if _, err := s.Save(ctx, m); err != nil {
			t.Fatalf("Save err: %v", err)
		}
	}

	got, err := s.Find(ctx, "s", 0, 0)
	if err != nil {
		t.Fatalf("Find err: %v", err)
	}
	want := []string{"first", "second", "third"}
	for i, content := range want {
		if got[i].Content != content {
			t.Fatalf("position %d: got %q want %q", i, got[i].Content, content)
		}
	}
}

func TestMemoryStoreTiesKeepInsertionOrder(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for _, content := range []string{"a", "b", "c"} {
		if _, err := s.Save(ctx, chat.Message{SessionID: "s", Sender: chat.SenderUser, Content: content, Timestamp: ts}); err != nil {
			t.Fatalf("Save err: %v", err)
		}
	}

	got, err := s.Find(ctx, "s", 0, 0)
	if err != nil {
		t.Fatalf("Find err: %v", err)
	}
	for i, content := range []string{"a", "b", "c"} {
		if got[i].Content != content {
			t.Fatalf("tie order broken at %d: got %q", i, got[i].Content)
		}
	}
}

func TestMemoryStoreOffsetLimit(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		msg := chat.Message{SessionID: "s", Sender: chat.SenderUser, Content: string(rune('a' + i))}
		if _, err := s.Save(ctx, msg); err != nil {
			t.Fatalf("Save err: %v", err)
		}
	}

	got, err := s.Find(ctx, "s", 2, 2)
	if err != nil {
		t.Fatalf("Find err: %v", err)
	}
	if len(got) != 2 || got[0].Content != "c" || got[1].Content != "d" {
		t.Fatalf("unexpected slice: %+v", got)
	}

	past, err := s.Find(ctx, "s", 10, 2)
	if err != nil {
		t.Fatalf("Find err: %v", err)
	}
	if len(past) != 0 {
		t.Fatalf("expected empty page past the end, got %d", len(past))
	}
}

func TestMemoryStoreCount(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := s.Save(ctx, chat.Message{SessionID: "s", Sender: chat.SenderUser, Content: "x"}); err != nil {
			t.Fatalf("Save err: %v", err)
		}
	}

	total, err := s.Count(ctx, "s")
	if err != nil {
		t.Fatalf("Count err: %v", err)
	}
	if total != 3 {
		t.Fatalf("expected 3, got %d", total)
	}

	none, err := s.Count(ctx, "other")
	if err != nil {
		t.Fatalf("Count err: %v", err)
	}
	if none != 0 {
		t.Fatalf("expected 0, got %d", none)
	}
}

func TestMemoryStoreRejectsInvalidMessage(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	_, err := s.Save(ctx, chat.Message{SessionID: "s", Sender: chat.SenderUser, Content: strings.Repeat("a", chat.MaxContentLength+1)})
	var verr *chat.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	total, err := s.Count(ctx, "s")
	if err != nil {
		t.Fatalf("Count err: %v", err)
	}
	if total != 0 {
		t.Fatalf("rejected message was stored, count=%d", total)
	}
}

func TestMemoryStoreReadsAreIdempotent(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		if _, err := s.Save(ctx, chat.Message{SessionID: "s", Sender: chat.SenderUser, Content: "x"}); err != nil {
			t.Fatalf("Save err: %v", err)
		}
	}

	first, err := s.Find(ctx, "s", 0, 10)
	if err != nil {
		t.Fatalf("Find err: %v", err)
	}
	second, err := s.Find(ctx, "s", 0, 10)
	if err != nil {
		t.Fatalf("Find err: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatal("identical reads returned different results")
	}
}
