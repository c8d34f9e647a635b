// Package identity resolves the caller of a request to exactly one of two
// principals: an authenticated user or an anonymous session. The resolved
// identity is the key for all metering and rate limiting.
package identity

import "context"

// Kind discriminates the two identity variants.
type Kind int

const (
	KindUser    Kind = iota // authenticated user id
	KindSession             // anonymous session id
)

// Identity is the caller's resolved principal. Immutable; resolved fresh
// per request.
type Identity struct {
	Kind Kind
	ID   string
}

// User returns an authenticated identity.
func User(userID string) Identity {
	return Identity{Kind: KindUser, ID: userID}
}

// Session returns an anonymous identity.
func Session(sessionID string) Identity {
	return Identity{Kind: KindSession, ID: sessionID}
}

// Key renders the storage key used by the ledger and rate limiter. The two
// variants never collide.
func (id Identity) Key() string {
	if id.Kind == KindUser {
		return "user:" + id.ID
	}
	return "session:" + id.ID
}

// IsAnonymous reports whether the caller is an unauthenticated session.
func (id Identity) IsAnonymous() bool {
	return id.Kind == KindSession
}

type contextKey string

const identityKey contextKey = "identity"

// WithIdentity stores the resolved identity and plan in the request context.
func WithIdentity(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, identityKey, p)
}

// FromContext returns the resolved principal, or ok=false if the request
// did not pass through the resolver.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(identityKey).(Principal)
	return p, ok
}
