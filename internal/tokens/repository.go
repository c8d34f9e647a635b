package tokens

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the ledger's persistence boundary. Implementations must make
// Consume a single atomic conditional update; read-then-write from the
// application would let two concurrent requests both pass the balance check.
type Store interface {
	// EnsureDay materializes the day's row if absent, carrying the
	// purchased-token balance forward from the most recent prior day.
	// Safe to call concurrently; losers of the insert race are no-ops.
	EnsureDay(ctx context.Context, identityKey string, day time.Time) error

	// Get returns the day's row. EnsureDay must have run for the day.
	Get(ctx context.Context, identityKey string, day time.Time) (*BalanceRecord, error)

	// Consume atomically applies the balance check and increment. Returns
	// ok=false with no mutation when the check fails.
	Consume(ctx context.Context, identityKey string, day time.Time, amount, dailyLimit int) (*BalanceRecord, bool, error)

	// AddPurchased credits purchased tokens to the day's row.
	AddPurchased(ctx context.Context, identityKey string, day time.Time, amount int) (*BalanceRecord, error)
}

type postgresStore struct {
	pool *pgxpool.Pool
}

// NewStore creates a ledger Store backed by the token_balances table.
func NewStore(pool *pgxpool.Pool) Store {
	return &postgresStore{pool: pool}
}

func (s *postgresStore) EnsureDay(ctx context.Context, identityKey string, day time.Time) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO token_balances (identity_key, day, consumed_today, purchased_tokens, last_reset_at)
		SELECT $1, $2, 0,
		       COALESCE((SELECT purchased_tokens FROM token_balances
		                 WHERE identity_key = $1 AND day < $2
		                 ORDER BY day DESC LIMIT 1), 0),
		       NOW()
		ON CONFLICT (identity_key, day) DO NOTHING`,
		identityKey, day)
	if err != nil {
		return fmt.Errorf("ensuring day row: %w", err)
	}
	return nil
}

func (s *postgresStore) Get(ctx context.Context, identityKey string, day time.Time) (*BalanceRecord, error) {
	var rec BalanceRecord
	err := s.pool.QueryRow(ctx, `
		SELECT identity_key, day, consumed_today, purchased_tokens, last_reset_at, updated_at
		FROM token_balances WHERE identity_key = $1 AND day = $2`,
		identityKey, day,
	).Scan(&rec.IdentityKey, &rec.Day, &rec.ConsumedToday, &rec.PurchasedTokens, &rec.LastResetAt, &rec.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("fetching balance row: %w", err)
	}
	return &rec, nil
}

// Consume runs the whole check-and-increment as one conditional UPDATE, so
// concurrent requests serialize on the row and at most the real balance is
// spent. The daily allowance is drawn first: consumed_today saturates at
// the limit and only the overflow comes out of purchased_tokens.
func (s *postgresStore) Consume(ctx context.Context, identityKey string, day time.Time, amount, dailyLimit int) (*BalanceRecord, bool, error) {
	var rec BalanceRecord
	err := s.pool.QueryRow(ctx, `
		UPDATE token_balances
		SET purchased_tokens = purchased_tokens - GREATEST(0, $3 - GREATEST(0, $4 - consumed_today)),
		    consumed_today   = LEAST($4, consumed_today + $3),
		    updated_at       = NOW()
		WHERE identity_key = $1 AND day = $2
		  AND consumed_today + $3 <= $4 + purchased_tokens
		RETURNING identity_key, day, consumed_today, purchased_tokens, last_reset_at, updated_at`,
		identityKey, day, amount, dailyLimit,
	).Scan(&rec.IdentityKey, &rec.Day, &rec.ConsumedToday, &rec.PurchasedTokens, &rec.LastResetAt, &rec.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("consuming tokens: %w", err)
	}
	return &rec, true, nil
}

func (s *postgresStore) AddPurchased(ctx context.Context, identityKey string, day time.Time, amount int) (*BalanceRecord, error) {
	var rec BalanceRecord
	err := s.pool.QueryRow(ctx, `
		UPDATE token_balances
		SET purchased_tokens = purchased_tokens + $3,
		    updated_at       = NOW()
		WHERE identity_key = $1 AND day = $2
		RETURNING identity_key, day, consumed_today, purchased_tokens, last_reset_at, updated_at`,
		identityKey, day, amount,
	).Scan(&rec.IdentityKey, &rec.Day, &rec.ConsumedToday, &rec.PurchasedTokens, &rec.LastResetAt, &rec.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("crediting purchased tokens: %w", err)
	}
	return &rec, nil
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
