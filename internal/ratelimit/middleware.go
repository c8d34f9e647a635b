package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/scriptura-app/scriptura/internal/api"
	"github.com/scriptura-app/scriptura/internal/identity"
	"github.com/scriptura-app/scriptura/internal/metrics"
)

// Middleware enforces the per-identity admission check before any token or
// feature work. On Redis errors it fails open with a warning so a cache
// outage degrades limiting, not the whole product.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := identity.FromContext(r.Context())
		if !ok {
			api.HandleError(w, api.ErrAuthenticationRequired)
			return
		}

		allowed, err := l.Allow(r.Context(), p.Identity.Key(), p.Plan)
		if err != nil {
			slog.Warn("ratelimit: check failed, allowing request", "identity", p.Identity.Key(), "error", err)
			next.ServeHTTP(w, r)
			return
		}

		if !allowed {
			metrics.RateLimitRejectionsTotal.WithLabelValues(p.Plan.String()).Inc()
			w.Header().Set("Retry-After", strconv.Itoa(int(l.window.Seconds())))
			api.HandleError(w, api.ErrRateLimitExceeded)
			return
		}

		next.ServeHTTP(w, r)
	})
}
