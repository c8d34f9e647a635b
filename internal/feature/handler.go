package feature

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/scriptura-app/scriptura/internal/api"
	"github.com/scriptura-app/scriptura/internal/identity"
	"github.com/scriptura-app/scriptura/internal/metrics"
)

type Handler struct {
	holder *Holder
}

func NewHandler(holder *Holder) *Handler {
	return &Handler{holder: holder}
}

// CheckAccess resolves the caller's entitlement for one feature key.
func (h *Handler) CheckAccess(w http.ResponseWriter, r *http.Request) {
	p, ok := identity.FromContext(r.Context())
	if !ok {
		api.HandleError(w, api.ErrAuthenticationRequired)
		return
	}

	key := chi.URLParam(r, "featureKey")
	if key == "" {
		api.HandleError(w, api.ErrInvalidRequest)
		return
	}

	access := Resolve(h.holder.Current(), key, p.Plan)

	result := "denied"
	if access.HasAccess {
		result = "granted"
	}
	metrics.FeatureChecksTotal.WithLabelValues(key, result).Inc()

	api.JSON(w, http.StatusOK, access)
}
