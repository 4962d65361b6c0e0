package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	chathandler "github.com/webstylepress/chatbot-backend/internal/handler/chat"
	middlewarePkg "github.com/webstylepress/chatbot-backend/internal/middleware"
	"github.com/webstylepress/chatbot-backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(chatHandler *chathandler.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	chatHandler.RegisterRoutes(r)

	return r
}
