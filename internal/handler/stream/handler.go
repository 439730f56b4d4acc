package stream

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/GerrardTechs/PSTI-ChatBot-Frontend/internal/handler/chat"
	"github.com/GerrardTechs/PSTI-ChatBot-Frontend/internal/logging"
	chatService "github.com/GerrardTechs/PSTI-ChatBot-Frontend/internal/service/chat"
	"github.com/GerrardTechs/PSTI-ChatBot-Frontend/pkg/utils"
)

// EventSnapshot names the SSE event carrying a conversation snapshot.
const EventSnapshot = "snapshot"

const defaultKeepAlive = 15 * time.Second

// Handler streams conversation snapshots via Server-Sent Events.
type Handler struct {
	chatSvc   *chatService.Service
	keepAlive time.Duration
	logger    zerolog.Logger
}

// New creates a new stream handler.
func New(chatSvc *chatService.Service) *Handler {
	return &Handler{
		chatSvc:   chatSvc,
		keepAlive: defaultKeepAlive,
		logger:    logging.Component("sse"),
	}
}

// RegisterRoutes registers the stream route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/stream/{sessionID}", h.handleStream)
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	conv, err := h.chatSvc.Conversation(r.Context(), sessionID)
	if err != nil {
		utils.RespondError(w, chat.StatusFor(err), err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	updates, unsubscribe := conv.Subscribe()
	defer unsubscribe()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	ctx := r.Context()
	h.logger.Debug().Str("session", sessionID).Msg("opening stream")

	for {
		select {
		case <-ctx.Done():
			h.logger.Debug().Str("session", sessionID).Msg("closing stream")
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			if err := utils.SendSSEEvent(w, flusher, EventSnapshot, snap); err != nil {
				h.logger.Warn().Err(err).Str("session", sessionID).Msg("failed to write snapshot")
				return
			}
		case <-ticker.C:
			if err := utils.SendSSEComment(w, flusher, "keep-alive"); err != nil {
				return
			}
		}
	}
}
