package voice

import (
	"log/slog"
	"net/http"

	"github.com/scriptura-app/scriptura/internal/api"
	"github.com/scriptura-app/scriptura/internal/identity"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// StartConversation records a voice conversation start for this month.
func (h *Handler) StartConversation(w http.ResponseWriter, r *http.Request) {
	p, ok := identity.FromContext(r.Context())
	if !ok {
		api.HandleError(w, api.ErrAuthenticationRequired)
		return
	}

	rec, err := h.svc.RecordStarted(r.Context(), p.Identity, p.Plan)
	if err != nil {
		slog.Error("recording conversation start", "identity", p.Identity.Key(), "error", err)
		api.HandleError(w, api.ErrUpstreamFailure)
		return
	}

	api.JSON(w, http.StatusCreated, rec)
}

// CompleteConversation records a voice conversation completion.
func (h *Handler) CompleteConversation(w http.ResponseWriter, r *http.Request) {
	p, ok := identity.FromContext(r.Context())
	if !ok {
		api.HandleError(w, api.ErrAuthenticationRequired)
		return
	}

	rec, err := h.svc.RecordCompleted(r.Context(), p.Identity, p.Plan)
	if err != nil {
		slog.Error("recording conversation completion", "identity", p.Identity.Key(), "error", err)
		api.HandleError(w, api.ErrUpstreamFailure)
		return
	}

	api.JSON(w, http.StatusOK, rec)
}

// GetUsage returns the caller's voice usage for the current month.
func (h *Handler) GetUsage(w http.ResponseWriter, r *http.Request) {
	p, ok := identity.FromContext(r.Context())
	if !ok {
		api.HandleError(w, api.ErrAuthenticationRequired)
		return
	}

	rec, err := h.svc.Usage(r.Context(), p.Identity, p.Plan)
	if err != nil {
		slog.Error("fetching voice usage", "identity", p.Identity.Key(), "error", err)
		api.HandleError(w, api.ErrUpstreamFailure)
		return
	}

	api.JSON(w, http.StatusOK, rec)
}
