package identity

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/scriptura-app/scriptura/internal/api"
	"github.com/scriptura-app/scriptura/internal/auth"
	"github.com/scriptura-app/scriptura/internal/plan"
)

// Principal is an identity together with its resolved subscription plan.
type Principal struct {
	Identity Identity
	Plan     plan.Plan
}

// Resolver turns inbound requests into principals. A bearer token wins over
// a session header; a request with neither is rejected.
type Resolver struct {
	jwt   *auth.JWTManager
	plans plan.Source
}

func NewResolver(jwt *auth.JWTManager, plans plan.Source) *Resolver {
	return &Resolver{jwt: jwt, plans: plans}
}

// Middleware resolves the caller and stores the principal in the request
// context. Authenticated users get their subscription plan; anonymous
// sessions are always on the free tier.
func (rs *Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := rs.Resolve(r)
		if err != nil {
			api.HandleError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), p)))
	})
}

// Resolve inspects the Authorization header, then X-Session-ID.
func (rs *Resolver) Resolve(r *http.Request) (Principal, error) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			return Principal{}, api.ErrAuthenticationRequired
		}

		claims, err := rs.jwt.ValidateAccessToken(parts[1])
		if err != nil {
			return Principal{}, api.ErrAuthenticationRequired
		}

		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			return Principal{}, api.ErrAuthenticationRequired
		}

		p, err := rs.plans.PlanOf(r.Context(), userID)
		if err != nil {
			slog.Warn("identity: plan lookup failed, defaulting to free", "error", err)
			p = plan.Free
		}
		return Principal{Identity: User(claims.UserID), Plan: p}, nil
	}

	if sessionID := r.Header.Get("X-Session-ID"); sessionID != "" {
		return Principal{Identity: Session(sessionID), Plan: plan.Free}, nil
	}

	return Principal{}, api.ErrAuthenticationRequired
}
