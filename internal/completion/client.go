package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/webstylepress/chatbot-backend/internal/logger"
)

// FallbackText is returned when the upstream response carries no usable
// content.
const FallbackText = "Sorry, I couldn't process your request."

const (
	defaultTemperature = 0.7
	defaultMaxTokens   = 1000
	defaultTimeout     = 30 * time.Second
)

var (
	// ErrRateLimited marks an HTTP 429 from the completion API.
	ErrRateLimited = errors.New("completion: rate limited")
	// ErrTimeout marks a client-side timeout waiting for the completion API.
	ErrTimeout = errors.New("completion: request timed out")
)

// UpstreamError reports any other completion API failure.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("completion: upstream HTTP %d: %s", e.Status, e.Message)
	}
	return "completion: upstream failure: " + e.Message
}

// Config holds the fixed parameters of the completion API.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Referer     string
	Title       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// Client calls an OpenRouter-style chat completions endpoint. It owns its
// HTTP client; nothing here is a package-level singleton.
type Client struct {
	cfg        Config
	log        *logger.Logger
	httpClient *http.Client
}

// NewClient builds a completion client, filling unset parameters with the
// API defaults.
func NewClient(cfg Config, baseLog *logger.Logger) *Client {
	if cfg.Temperature == 0 {
		cfg.Temperature = defaultTemperature
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &Client{
		cfg:        cfg,
		log:        baseLog.With("service", "completion"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// Result is a single completed turn.
type Result struct {
	Text       string
	TokensUsed int
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// Complete sends a single-turn request and returns the model's reply.
func (c *Client) Complete(ctx context.Context, userText string) (Result, error) {
	payload, err := json.Marshal(chatRequest{
		Model:       c.cfg.Model,
		Messages:    []chatMessage{{Role: "user", Content: userText}},
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	})
	if err != nil {
		return Result{}, fmt.Errorf("failed to marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return Result{}, fmt.Errorf("failed to build completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("HTTP-Referer", c.cfg.Referer)
	req.Header.Set("X-Title", c.cfg.Title)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			c.log.Warn("completion request timed out", "timeout", c.cfg.Timeout)
			return Result{}, ErrTimeout
		}
		c.log.Warn("completion request failed", "error", err)
		return Result{}, &UpstreamError{Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, &UpstreamError{Message: "failed to read response body: " + err.Error()}
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		c.log.Warn("completion API rate limited")
		return Result{}, ErrRateLimited
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Warn("completion API returned non-2xx", "statusCode", resp.StatusCode)
		return Result{}, &UpstreamError{Status: resp.StatusCode, Message: truncate(string(body), 400)}
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Result{}, &UpstreamError{Message: "failed to parse response: " + truncate(string(body), 400)}
	}

	result := Result{TokensUsed: parsed.Usage.TotalTokens}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		result.Text = FallbackText
		return result, nil
	}
	result.Text = parsed.Choices[0].Message.Content
	return result, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func truncate(s string, maxChars int) string {
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	return string(runes[:maxChars])
}
