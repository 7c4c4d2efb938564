package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/personachat/backend/internal/handler/chat"
	"github.com/personachat/backend/internal/handler/events"
	"github.com/personachat/backend/internal/handler/persona"
	middlewarePkg "github.com/personachat/backend/internal/middleware"
	personaModel "github.com/personachat/backend/internal/model/persona"
	chatService "github.com/personachat/backend/internal/service/chat"
)

// NewRouter wires HTTP routes to core services and registers the
// websocket hub as the state machine's change notifier.
func NewRouter(personas personaModel.Store, chatSvc *chatService.Service, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	personaHandler := persona.New(personas)
	chatHandler := chat.New(chatSvc, personas)
	hub := events.NewHub(logger)
	chatSvc.SetNotifier(hub.Notify)

	r.Route("/api", func(api chi.Router) {
		personaHandler.RegisterRoutes(api)
		chatHandler.RegisterRoutes(api)
		hub.RegisterRoutes(api)
	})

	return r
}
