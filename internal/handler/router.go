package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/GerrardTechs/PSTI-ChatBot-Frontend/internal/handler/backend"
	"github.com/GerrardTechs/PSTI-ChatBot-Frontend/internal/handler/chat"
	"github.com/GerrardTechs/PSTI-ChatBot-Frontend/internal/handler/quickreply"
	"github.com/GerrardTechs/PSTI-ChatBot-Frontend/internal/handler/stream"
	"github.com/GerrardTechs/PSTI-ChatBot-Frontend/internal/handler/ws"
	"github.com/GerrardTechs/PSTI-ChatBot-Frontend/internal/logging"
	middlewarePkg "github.com/GerrardTechs/PSTI-ChatBot-Frontend/internal/middleware"
	quickreplyModel "github.com/GerrardTechs/PSTI-ChatBot-Frontend/internal/model/quickreply"
	chatService "github.com/GerrardTechs/PSTI-ChatBot-Frontend/internal/service/chat"
)

// Dependencies groups what the router wires into handlers.
type Dependencies struct {
	Chat         *chatService.Service
	QuickReplies quickreplyModel.Store
	Gateway      backend.Gateway
	// Status is nil when the health monitor is disabled.
	Status backend.StatusSource
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Route("/api", func(api chi.Router) {
		chat.New(deps.Chat).RegisterRoutes(api)
		quickreply.New(deps.QuickReplies).RegisterRoutes(api)
		stream.New(deps.Chat).RegisterRoutes(api)
		ws.New(deps.Chat).RegisterRoutes(api)
		backend.New(deps.Gateway, deps.Status).RegisterRoutes(api)
	})

	return r
}
