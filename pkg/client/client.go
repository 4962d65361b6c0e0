package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultTimeout = 30 * time.Second

// Client talks to the chat backend HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the backend at baseURL.
func New(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// APIError is the decoded server error envelope.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// SendResponse is the reply to one sent message.
type SendResponse struct {
	Response       string    `json:"response"`
	SessionID      string    `json:"sessionId"`
	ProcessingTime int       `json:"processingTime"`
	Timestamp      time.Time `json:"timestamp"`
}

// HistoryMessage is one transcript entry as returned by the history endpoint.
type HistoryMessage struct {
	Content   string    `json:"content"`
	Sender    string    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
	Metadata  *struct {
		Model          string `json:"model"`
		Tokens         int    `json:"tokens"`
		ProcessingTime int    `json:"processingTime"`
	} `json:"metadata,omitempty"`
}

// HistoryResponse is one page of a session transcript.
type HistoryResponse struct {
	Messages      []HistoryMessage `json:"messages"`
	CurrentPage   int              `json:"currentPage"`
	TotalPages    int              `json:"totalPages"`
	TotalMessages int64            `json:"totalMessages"`
}

// SendMessage posts one user message; sessionID may be empty to start a new
// conversation.
func (c *Client) SendMessage(ctx context.Context, text, sessionID string) (SendResponse, error) {
	payload, err := json.Marshal(map[string]string{
		"message":   text,
		"sessionId": sessionID,
	})
	if err != nil {
		return SendResponse{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/message", bytes.NewReader(payload))
	if err != nil {
		return SendResponse{}, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var out SendResponse
	if err := c.do(req, &out); err != nil {
		return SendResponse{}, err
	}
	return out, nil
}

// History fetches one page of a session's transcript.
func (c *Client) History(ctx context.Context, sessionID string, page, limit int) (HistoryResponse, error) {
	query := url.Values{}
	if page > 0 {
		query.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	endpoint := c.baseURL + "/chat/history/" + url.PathEscape(sessionID)
	if encoded := query.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return HistoryResponse{}, fmt.Errorf("failed to build request: %w", err)
	}

	var out HistoryResponse
	if err := c.do(req, &out); err != nil {
		return HistoryResponse{}, err
	}
	return out, nil
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var envelope struct {
			Error string `json:"error"`
		}
		message := strings.TrimSpace(string(body))
		if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != "" {
			message = envelope.Error
		}
		return &APIError{Status: resp.StatusCode, Message: message}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
