//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/scriptura-app/scriptura/internal/api"
	"github.com/scriptura-app/scriptura/internal/auth"
	"github.com/scriptura-app/scriptura/internal/feature"
	"github.com/scriptura-app/scriptura/internal/identity"
	"github.com/scriptura-app/scriptura/internal/plan"
	"github.com/scriptura-app/scriptura/internal/ratelimit"
	"github.com/scriptura-app/scriptura/internal/tokens"
	"github.com/scriptura-app/scriptura/internal/voice"
)

type TestEnv struct {
	Pool        *pgxpool.Pool
	RedisClient *redis.Client
	Server      *httptest.Server
	JWT         *auth.JWTManager
}

var testEnv *TestEnv

func SetupTestEnv(t *testing.T) *TestEnv {
	t.Helper()
	if testEnv != nil {
		return testEnv
	}

	ctx := context.Background()

	// Start PostgreSQL container
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "scriptura_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("starting postgres container: %v", err)
	}
	t.Cleanup(func() { pgContainer.Terminate(ctx) })

	pgHost, _ := pgContainer.Host(ctx)
	pgPort, _ := pgContainer.MappedPort(ctx, "5432")

	// Start Redis container
	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("starting redis container: %v", err)
	}
	t.Cleanup(func() { redisContainer.Terminate(ctx) })

	redisHost, _ := redisContainer.Host(ctx)
	redisPort, _ := redisContainer.MappedPort(ctx, "6379")

	// Connect to PostgreSQL
	dsn := fmt.Sprintf("postgres://test:test@%s:%s/scriptura_test?sslmode=disable", pgHost, pgPort.Port())
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connecting to postgres: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	// Run migrations
	m, err := migrate.New(
		fmt.Sprintf("file://%s", getMigrationsPath()),
		dsn,
	)
	if err != nil {
		t.Fatalf("creating migrator: %v", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		t.Fatalf("running migrations: %v", err)
	}

	// Connect to Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%s", redisHost, redisPort.Port()),
	})
	t.Cleanup(func() { redisClient.Close() })

	// Wire services the way cmd/api does, with small allowances so the
	// metering paths are easy to exhaust in tests.
	catalog := plan.NewCatalog(map[plan.Plan]int{
		plan.Free:     30,
		plan.Standard: 100,
		plan.Plus:     200,
	})
	jwtManager := auth.NewJWTManager("test-access-secret-32-chars-long!!", 15*time.Minute)
	resolver := identity.NewResolver(jwtManager, plan.NewSource(pool))

	tokenSvc := tokens.NewService(tokens.NewStore(pool), catalog)
	tokenHandler := tokens.NewHandler(tokenSvc)

	flagHolder, err := feature.NewHolder(ctx, feature.NewLoader(pool), time.Minute)
	if err != nil {
		t.Fatalf("loading feature flags: %v", err)
	}
	featureHandler := feature.NewHandler(flagHolder)

	limiter := ratelimit.NewLimiter(redisClient, ratelimit.Limits{
		plan.Free:     5,
		plan.Standard: 30,
		plan.Plus:     60,
		plan.Premium:  120,
	})

	voiceSvc := voice.NewService(voice.NewStore(pool))
	voiceHandler := voice.NewHandler(voiceSvc)

	router := api.NewRouter(pool, api.RouterConfig{}, api.HandlerSet{
		GetBalance:     tokenHandler.GetBalance,
		ConsumeTokens:  tokenHandler.Consume,
		PurchaseTokens: tokenHandler.Purchase,

		CheckFeatureAccess: featureHandler.CheckAccess,

		StartConversation:    voiceHandler.StartConversation,
		CompleteConversation: voiceHandler.CompleteConversation,
		GetVoiceUsage:        voiceHandler.GetUsage,

		IdentityMiddleware:  resolver.Middleware,
		RateLimitMiddleware: limiter.Middleware,
	})

	server := httptest.NewServer(router)
	t.Cleanup(func() { server.Close() })

	testEnv = &TestEnv{
		Pool:        pool,
		RedisClient: redisClient,
		Server:      server,
		JWT:         jwtManager,
	}

	return testEnv
}

func getMigrationsPath() string {
	paths := []string{
		"../../migrations",
		"../../../migrations",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	log.Fatal("migrations directory not found")
	return ""
}

// Helper functions

// SubscribeUser inserts an active subscription and returns an access token
// for the user.
func SubscribeUser(t *testing.T, env *TestEnv, planName string) (uuid.UUID, string) {
	t.Helper()
	userID := uuid.New()
	_, err := env.Pool.Exec(context.Background(),
		`INSERT INTO user_subscriptions (user_id, plan, status) VALUES ($1, $2, 'active')`,
		userID, planName)
	if err != nil {
		t.Fatalf("inserting subscription: %v", err)
	}

	token, err := env.JWT.GenerateAccessToken(userID.String(), userID.String()+"@example.com")
	if err != nil {
		t.Fatalf("generating token: %v", err)
	}
	return userID, token
}

func DoRequest(t *testing.T, env *TestEnv, method, path string, body any, headers map[string]string) *http.Response {
	t.Helper()
	var bodyReader io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, env.Server.URL+path, bodyReader)
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("doing request: %v", err)
	}
	return resp
}

func AsUser(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func AsSession(sessionID string) map[string]string {
	return map[string]string{"X-Session-ID": sessionID}
}

func ParseResponse(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var result map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("parsing response: %v", err)
	}
	return result
}
