package quickreply

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/GerrardTechs/PSTI-ChatBot-Frontend/internal/model/quickreply"
	"github.com/GerrardTechs/PSTI-ChatBot-Frontend/pkg/utils"
)

// Handler lists the quick-reply shortcuts.
type Handler struct {
	replies quickreply.Store
}

// New creates a quick-reply handler.
func New(replies quickreply.Store) *Handler {
	return &Handler{replies: replies}
}

// RegisterRoutes registers the quick-reply routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/quick-replies", h.handleList)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.replies.List())
}
