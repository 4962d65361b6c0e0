package chat

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/webstylepress/chatbot-backend/internal/completion"
	"github.com/webstylepress/chatbot-backend/internal/logger"
	"github.com/webstylepress/chatbot-backend/internal/model/chat"
	chatservice "github.com/webstylepress/chatbot-backend/internal/service/chat"
	"github.com/webstylepress/chatbot-backend/pkg/utils"
)

// Handler serves the chat HTTP surface.
type Handler struct {
	svc         *chatservice.Service
	development bool
	log         *logger.Logger
}

// New creates the chat handler. In development mode, 500 responses include
// the underlying error message.
func New(svc *chatservice.Service, development bool, baseLog *logger.Logger) *Handler {
	return &Handler{
		svc:         svc,
		development: development,
		log:         baseLog.With("handler", "chat"),
	}
}

// RegisterRoutes registers the chat routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat/message", h.handleSendMessage)
	r.Get("/chat/history/{sessionID}", h.handleGetHistory)
}

type sendMessageRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
}

type sendMessageResponse struct {
	Response       string         `json:"response"`
	SessionID      chat.SessionID `json:"sessionId"`
	ProcessingTime int            `json:"processingTime"`
	Timestamp      time.Time      `json:"timestamp"`
}

func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var payload sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Message is required")
		return
	}

	reply, err := h.svc.SendMessage(r.Context(), payload.Message, chat.SessionID(payload.SessionID))
	if err != nil {
		h.respondSendError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, sendMessageResponse{
		Response:       reply.Response,
		SessionID:      reply.SessionID,
		ProcessingTime: reply.ProcessingTime,
		Timestamp:      reply.Timestamp,
	})
}

// respondSendError maps service errors onto the HTTP taxonomy: 400 for
// client mistakes, 429 for upstream throttling, 504 for upstream timeouts,
// 500 otherwise. A StoreError is a server-side failure even when it wraps a
// validation error, so it is matched before the 400 case. Raw details leak
// only in development mode.
func (h *Handler) respondSendError(w http.ResponseWriter, err error) {
	var verr *chat.ValidationError
	var serr *chatservice.StoreError
	switch {
	case errors.Is(err, chatservice.ErrEmptyMessage):
		utils.RespondError(w, http.StatusBadRequest, "Message is required")
	case errors.As(err, &serr):
		h.respondInternal(w, err)
	case errors.As(err, &verr):
		utils.RespondError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, completion.ErrRateLimited):
		utils.RespondError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
	case errors.Is(err, completion.ErrTimeout):
		utils.RespondError(w, http.StatusGatewayTimeout, "Request timeout. Please try again.")
	default:
		h.respondInternal(w, err)
	}
}

func (h *Handler) respondInternal(w http.ResponseWriter, err error) {
	h.log.Error("send message failed", "error", err)
	body := map[string]string{"error": "Failed to get AI response"}
	if h.development {
		body["details"] = err.Error()
	}
	utils.RespondJSON(w, http.StatusInternalServerError, body)
}

// historyMessage is the read projection of a stored message: content,
// sender, timestamp and metadata only.
type historyMessage struct {
	Content   string         `json:"content"`
	Sender    string         `json:"sender"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  *chat.Metadata `json:"metadata,omitempty"`
}

type historyResponse struct {
	Messages      []historyMessage `json:"messages"`
	CurrentPage   int              `json:"currentPage"`
	TotalPages    int              `json:"totalPages"`
	TotalMessages int64            `json:"totalMessages"`
}

func (h *Handler) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		utils.RespondError(w, http.StatusBadRequest, "Session ID is required")
		return
	}

	page := parseQueryInt(r, "page", 1)
	limit := parseQueryInt(r, "limit", chatservice.DefaultPageSize)

	hist, err := h.svc.History(r.Context(), chat.SessionID(sessionID), page, limit)
	if err != nil {
		if errors.Is(err, chatservice.ErrSessionRequired) {
			utils.RespondError(w, http.StatusBadRequest, "Session ID is required")
			return
		}
		h.log.Error("get history failed", "sessionId", sessionID, "error", err)
		utils.RespondError(w, http.StatusInternalServerError, "Failed to retrieve chat history")
		return
	}

	messages := make([]historyMessage, 0, len(hist.Messages))
	for _, msg := range hist.Messages {
		messages = append(messages, historyMessage{
			Content:   msg.Content,
			Sender:    msg.Sender,
			Timestamp: msg.Timestamp,
			Metadata:  msg.Metadata,
		})
	}

	utils.RespondJSON(w, http.StatusOK, historyResponse{
		Messages:      messages,
		CurrentPage:   hist.CurrentPage,
		TotalPages:    hist.TotalPages,
		TotalMessages: hist.TotalMessages,
	})
}

func parseQueryInt(r *http.Request, key string, defaultValue int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return defaultValue
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val < 1 {
		return defaultValue
	}
	return val
}
