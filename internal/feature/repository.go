package feature

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scriptura-app/scriptura/internal/plan"
)

type postgresLoader struct {
	pool *pgxpool.Pool
}

// NewLoader creates a Loader backed by the feature_flags table.
func NewLoader(pool *pgxpool.Pool) Loader {
	return &postgresLoader{pool: pool}
}

func (l *postgresLoader) LoadAll(ctx context.Context) ([]Flag, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT feature_key, is_enabled, display_mode, enabled_plans
		FROM feature_flags`)
	if err != nil {
		return nil, fmt.Errorf("querying feature flags: %w", err)
	}
	defer rows.Close()

	var flags []Flag
	for rows.Next() {
		var (
			f         Flag
			mode      string
			planNames []string
		)
		if err := rows.Scan(&f.Key, &f.Enabled, &mode, &planNames); err != nil {
			return nil, fmt.Errorf("scanning feature flag: %w", err)
		}

		f.DisplayMode = DisplayMode(mode)
		if f.DisplayMode != DisplayLock {
			f.DisplayMode = DisplayHide
		}

		for _, name := range planNames {
			p, err := plan.Parse(name)
			if err != nil {
				slog.Warn("feature: skipping unknown plan in flag", "feature", f.Key, "plan", name)
				continue
			}
			f.Plans = append(f.Plans, p)
		}

		flags = append(flags, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading feature flags: %w", err)
	}

	return flags, nil
}
