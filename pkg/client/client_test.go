package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/webstylepress/chatbot-backend/pkg/client"
)

func TestSendMessage(t *testing.T) {
	var gotBody map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/chat/message" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"response":       "hi there",
			"sessionId":      "session_1700000000000_abc123def",
			"processingTime": 137,
			"timestamp":      "2024-01-01T00:00:00Z",
		})
	}))
	defer srv.Close()

	resp, err := client.New(srv.URL).SendMessage(context.Background(), "hello", "")
	if err != nil {
		t.Fatalf("SendMessage err: %v", err)
	}

	if gotBody["message"] != "hello" {
		t.Fatalf("unexpected payload: %v", gotBody)
	}
	if resp.Response != "hi there" || resp.SessionID != "session_1700000000000_abc123def" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.ProcessingTime != 137 {
		t.Fatalf("unexpected processing time: %d", resp.ProcessingTime)
	}
}

func TestSendMessageDecodesErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]string{"error": "Rate limit exceeded. Please try again later."})
	}))
	defer srv.Close()

	_, err := client.New(srv.URL).SendMessage(context.Background(), "hello", "")
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusTooManyRequests {
		t.Fatalf("unexpected status: %d", apiErr.Status)
	}
	if apiErr.Message != "Rate limit exceeded. Please try again later." {
		t.Fatalf("unexpected message: %q", apiErr.Message)
	}
}

func TestHistoryPassesPagination(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/history/session_1700000000000_abc123def" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("page") != "2" || r.URL.Query().Get("limit") != "10" {
			t.Errorf("pagination lost: %s", r.URL.RawQuery)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"messages": []map[string]any{
				{"content": "hello", "sender": "user", "timestamp": "2024-01-01T00:00:00Z"},
			},
			"currentPage":   2,
			"totalPages":    3,
			"totalMessages": 25,
		})
	}))
	defer srv.Close()

	hist, err := client.New(srv.URL).History(context.Background(), "session_1700000000000_abc123def", 2, 10)
	if err != nil {
		t.Fatalf("History err: %v", err)
	}
	if hist.CurrentPage != 2 || hist.TotalPages != 3 || hist.TotalMessages != 25 {
		t.Fatalf("unexpected pagination: %+v", hist)
	}
	if len(hist.Messages) != 1 || hist.Messages[0].Content != "hello" {
		t.Fatalf("unexpected messages: %+v", hist.Messages)
	}
}
