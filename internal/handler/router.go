package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/law-agent/backend/internal/config"
	"github.com/zhouzirui/law-agent/backend/internal/handler/chat"
	"github.com/zhouzirui/law-agent/backend/internal/handler/document"
	"github.com/zhouzirui/law-agent/backend/internal/handler/ws"
	middlewarePkg "github.com/zhouzirui/law-agent/backend/internal/middleware"
	chatService "github.com/zhouzirui/law-agent/backend/internal/service/chat"
	"github.com/zhouzirui/law-agent/backend/internal/service/conversation"
	documentService "github.com/zhouzirui/law-agent/backend/internal/service/document"
	"github.com/zhouzirui/law-agent/backend/internal/service/extract"
	"github.com/zhouzirui/law-agent/backend/pkg/utils"
)

// Services groups the long-lived components the HTTP layer serves.
type Services struct {
	Conversation *conversation.Orchestrator
	Sessions     *chatService.Service
	Documents    *documentService.Store
	Extractor    extract.Extractor
	// ModelName is reported by /health.
	ModelName string
}

// NewRouter wires HTTP routes to core services.
func NewRouter(cfg *config.Config, svc Services) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(cfg.CORS.AllowedOrigins))

	extractor := svc.Extractor
	if extractor == nil {
		extractor = extract.NewTextExtractor()
	}

	chatHandler := chat.New(svc.Conversation, svc.Sessions)
	documentHandler := document.New(svc.Documents, extractor, cfg.Upload.MaxBytes)
	wsHandler := ws.New(svc.Conversation)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]any{
			"status":    "ok",
			"model":     svc.ModelName,
			"timestamp": time.Now().UTC(),
		})
	})

	chatHandler.RegisterRoutes(r)
	documentHandler.RegisterRoutes(r)
	wsHandler.RegisterRoutes(r)

	return r
}
