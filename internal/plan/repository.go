package plan

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Source resolves the subscription plan for an authenticated user.
type Source interface {
	PlanOf(ctx context.Context, userID uuid.UUID) (Plan, error)
}

type postgresSource struct {
	pool *pgxpool.Pool
}

// NewSource creates a plan Source backed by the user_subscriptions table.
func NewSource(pool *pgxpool.Pool) Source {
	return &postgresSource{pool: pool}
}

// PlanOf returns the user's active subscription plan. Users without an
// active subscription are on the free tier.
func (s *postgresSource) PlanOf(ctx context.Context, userID uuid.UUID) (Plan, error) {
	query := `
		SELECT plan FROM user_subscriptions
		WHERE user_id = $1 AND status = 'active'
		  AND (expires_at IS NULL OR expires_at > NOW())
		ORDER BY expires_at DESC NULLS FIRST
		LIMIT 1`

	var name string
	err := s.pool.QueryRow(ctx, query, userID).Scan(&name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Free, nil
		}
		return Free, fmt.Errorf("querying subscription: %w", err)
	}

	p, err := Parse(name)
	if err != nil {
		return Free, fmt.Errorf("resolving subscription plan: %w", err)
	}
	return p, nil
}
