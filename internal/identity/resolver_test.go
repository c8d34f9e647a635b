package identity

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scriptura-app/scriptura/internal/api"
	"github.com/scriptura-app/scriptura/internal/auth"
	"github.com/scriptura-app/scriptura/internal/plan"
)

type stubPlanSource struct {
	plans map[uuid.UUID]plan.Plan
	err   error
}

func (s *stubPlanSource) PlanOf(ctx context.Context, userID uuid.UUID) (plan.Plan, error) {
	if s.err != nil {
		return plan.Free, s.err
	}
	if p, ok := s.plans[userID]; ok {
		return p, nil
	}
	return plan.Free, nil
}

func newTestResolver(plans *stubPlanSource) (*Resolver, *auth.JWTManager) {
	jwtMgr := auth.NewJWTManager("0123456789abcdef0123456789abcdef", 15*time.Minute)
	return NewResolver(jwtMgr, plans), jwtMgr
}

func TestResolve_BearerToken(t *testing.T) {
	userID := uuid.New()
	resolver, jwtMgr := newTestResolver(&stubPlanSource{
		plans: map[uuid.UUID]plan.Plan{userID: plan.Plus},
	})

	token, err := jwtMgr.GenerateAccessToken(userID.String(), "reader@example.com")
	require.NoError(t, err)

	r := httptest.NewRequest("GET", "/api/v1/tokens/balance", nil)
	r.Header.Set("Authorization", "Bearer "+token)

	p, err := resolver.Resolve(r)
	require.NoError(t, err)
	assert.Equal(t, User(userID.String()), p.Identity)
	assert.Equal(t, plan.Plus, p.Plan)
	assert.False(t, p.Identity.IsAnonymous())
}

func TestResolve_SessionHeader(t *testing.T) {
	resolver, _ := newTestResolver(&stubPlanSource{})

	r := httptest.NewRequest("GET", "/api/v1/tokens/balance", nil)
	r.Header.Set("X-Session-ID", "sess-42")

	p, err := resolver.Resolve(r)
	require.NoError(t, err)
	assert.Equal(t, Session("sess-42"), p.Identity)
	assert.Equal(t, plan.Free, p.Plan, "anonymous sessions are always free tier")
	assert.True(t, p.Identity.IsAnonymous())
}

func TestResolve_BearerWinsOverSession(t *testing.T) {
	userID := uuid.New()
	resolver, jwtMgr := newTestResolver(&stubPlanSource{
		plans: map[uuid.UUID]plan.Plan{userID: plan.Standard},
	})

	token, err := jwtMgr.GenerateAccessToken(userID.String(), "")
	require.NoError(t, err)

	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	r.Header.Set("X-Session-ID", "sess-42")

	p, err := resolver.Resolve(r)
	require.NoError(t, err)
	assert.Equal(t, KindUser, p.Identity.Kind)
	assert.Equal(t, plan.Standard, p.Plan)
}

func TestResolve_NoCredentials(t *testing.T) {
	resolver, _ := newTestResolver(&stubPlanSource{})

	r := httptest.NewRequest("GET", "/", nil)
	_, err := resolver.Resolve(r)
	assert.ErrorIs(t, err, api.ErrAuthenticationRequired)
}

func TestResolve_MalformedAuthorizationHeader(t *testing.T) {
	resolver, _ := newTestResolver(&stubPlanSource{})

	for _, header := range []string{"Bearer", "Basic dXNlcjpwYXNz", "garbage"} {
		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("Authorization", header)
		_, err := resolver.Resolve(r)
		assert.ErrorIs(t, err, api.ErrAuthenticationRequired, "header %q", header)
	}
}

func TestResolve_InvalidToken(t *testing.T) {
	resolver, _ := newTestResolver(&stubPlanSource{})

	// Signed with a different secret.
	other := auth.NewJWTManager("ffffffffffffffffffffffffffffffff", 15*time.Minute)
	token, err := other.GenerateAccessToken(uuid.NewString(), "")
	require.NoError(t, err)

	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	_, err = resolver.Resolve(r)
	assert.ErrorIs(t, err, api.ErrAuthenticationRequired)
}

func TestResolve_NonUUIDSubject(t *testing.T) {
	resolver, jwtMgr := newTestResolver(&stubPlanSource{})

	token, err := jwtMgr.GenerateAccessToken("not-a-uuid", "")
	require.NoError(t, err)

	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	_, err = resolver.Resolve(r)
	assert.ErrorIs(t, err, api.ErrAuthenticationRequired)
}

func TestResolve_PlanLookupFailureDefaultsToFree(t *testing.T) {
	userID := uuid.New()
	resolver, jwtMgr := newTestResolver(&stubPlanSource{err: errors.New("db down")})

	token, err := jwtMgr.GenerateAccessToken(userID.String(), "")
	require.NoError(t, err)

	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)

	p, err := resolver.Resolve(r)
	require.NoError(t, err, "a broken subscription lookup must not lock users out")
	assert.Equal(t, plan.Free, p.Plan)
}

func TestIdentityKey(t *testing.T) {
	assert.Equal(t, "user:abc", User("abc").Key())
	assert.Equal(t, "session:abc", Session("abc").Key())
	assert.NotEqual(t, User("x").Key(), Session("x").Key())
}

func TestPrincipalContextRoundTrip(t *testing.T) {
	p := Principal{Identity: User("u1"), Plan: plan.Premium}
	ctx := WithIdentity(context.Background(), p)

	got, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, p, got)

	_, ok = FromContext(context.Background())
	assert.False(t, ok)
}
