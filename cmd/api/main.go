package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/scriptura-app/scriptura/internal/api"
	"github.com/scriptura-app/scriptura/internal/auth"
	"github.com/scriptura-app/scriptura/internal/config"
	"github.com/scriptura-app/scriptura/internal/database"
	"github.com/scriptura-app/scriptura/internal/feature"
	"github.com/scriptura-app/scriptura/internal/identity"
	"github.com/scriptura-app/scriptura/internal/plan"
	"github.com/scriptura-app/scriptura/internal/ratelimit"
	iredis "github.com/scriptura-app/scriptura/internal/redis"
	"github.com/scriptura-app/scriptura/internal/server"
	"github.com/scriptura-app/scriptura/internal/tokens"
	"github.com/scriptura-app/scriptura/internal/voice"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	if err := cfg.Validate(); err != nil {
		slog.Error("validating config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.DB.AutoMigrate {
		if err := database.RunMigrations(cfg.DB.DSN(), cfg.DB.MigrationsPath); err != nil {
			slog.Error("running migrations", "error", err)
			os.Exit(1)
		}
	}

	// PostgreSQL
	pool, err := database.NewPostgresPool(ctx, cfg.DB)
	if err != nil {
		slog.Error("connecting to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Redis
	redisClient, err := iredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		slog.Error("connecting to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// Plan catalog and identity resolution
	catalog := plan.NewCatalog(map[plan.Plan]int{
		plan.Free:     cfg.Metering.FreeDailyTokens,
		plan.Standard: cfg.Metering.StandardDailyTokens,
		plan.Plus:     cfg.Metering.PlusDailyTokens,
	})
	jwtManager := auth.NewJWTManager(cfg.JWT.AccessSecret, cfg.JWT.AccessExpiry)
	resolver := identity.NewResolver(jwtManager, plan.NewSource(pool))

	// Token ledger
	tokenSvc := tokens.NewService(tokens.NewStore(pool), catalog)
	tokenHandler := tokens.NewHandler(tokenSvc)

	// Feature flags: initial snapshot now, refresh in the background
	flagHolder, err := feature.NewHolder(ctx, feature.NewLoader(pool), cfg.Metering.FlagRefreshInterval)
	if err != nil {
		slog.Warn("loading initial feature flags, serving empty snapshot until refresh", "error", err)
	}
	go flagHolder.Run(ctx)
	featureHandler := feature.NewHandler(flagHolder)

	// Rate limiter
	limiter := ratelimit.NewLimiter(redisClient, ratelimit.Limits{
		plan.Free:     cfg.Metering.FreeRequestsPerMinute,
		plan.Standard: cfg.Metering.StandardRequestsPerMinute,
		plan.Plus:     cfg.Metering.PlusRequestsPerMinute,
		plan.Premium:  cfg.Metering.PremiumRequestsPerMinute,
	})

	// Voice usage
	voiceSvc := voice.NewService(voice.NewStore(pool))
	voiceHandler := voice.NewHandler(voiceSvc)

	// Router
	router := api.NewRouter(pool, api.RouterConfig{
		CORSAllowedOrigins: cfg.CORS.AllowedOrigins,
	}, api.HandlerSet{
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

	// Start server
	srv := server.New(cfg.Server, router)
	if err := srv.Start(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(cfg config.LogConfig) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "info":
		opts.Level = slog.LevelInfo
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
