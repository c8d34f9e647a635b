// meterjob runs the monthly voice-usage lifecycle once and exits. It is
// meant to be invoked by cron on the first day of each month; re-running
// it within the same month is safe.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/scriptura-app/scriptura/internal/config"
	"github.com/scriptura-app/scriptura/internal/database"
	"github.com/scriptura-app/scriptura/internal/voice"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg.DB)
	if err != nil {
		slog.Error("connecting to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	job := voice.NewLifecycleJob(voice.NewStore(pool))
	if err := job.Run(ctx); err != nil {
		slog.Error("monthly usage job failed", "error", err)
		os.Exit(1)
	}

	slog.Info("monthly usage job finished")
}
