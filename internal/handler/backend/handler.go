package backend

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/GerrardTechs/PSTI-ChatBot-Frontend/internal/service/gateway"
	"github.com/GerrardTechs/PSTI-ChatBot-Frontend/pkg/utils"
)

// Gateway is the part of the backend client exposed for diagnostics.
type Gateway interface {
	CheckHealth(ctx context.Context) gateway.Health
	Info() gateway.Info
}

// StatusSource reports the last cached health probe.
type StatusSource interface {
	Last() (gateway.Health, bool)
}

// Handler exposes backend diagnostics.
type Handler struct {
	gateway Gateway
	status  StatusSource
}

// New creates a backend handler. status may be nil when the monitor is disabled.
func New(gw Gateway, status StatusSource) *Handler {
	return &Handler{gateway: gw, status: status}
}

// RegisterRoutes registers the diagnostic routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/backend", func(r chi.Router) {
		r.Get("/health", h.handleHealth)
		r.Get("/status", h.handleStatus)
		r.Get("/config", h.handleConfig)
	})
}

// handleHealth always answers 200; availability is in the body.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.gateway.CheckHealth(r.Context()))
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	if h.status == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "health monitor disabled")
		return
	}
	health, ok := h.status.Last()
	if !ok {
		utils.RespondError(w, http.StatusServiceUnavailable, "no health probe recorded yet")
		return
	}
	utils.RespondJSON(w, http.StatusOK, health)
}

func (h *Handler) handleConfig(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.gateway.Info())
}
