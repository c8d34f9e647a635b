package voice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the usage counters' persistence boundary. Increments are
// upsert-increments so the first conversation of a new month creates the
// row and concurrent firsts never lose a write.
type Store interface {
	IncrementStarted(ctx context.Context, identityKey string, month time.Time, tier string) (*UsageRecord, error)
	IncrementCompleted(ctx context.Context, identityKey string, month time.Time, tier string) (*UsageRecord, error)
	Get(ctx context.Context, identityKey string, month time.Time) (*UsageRecord, error)

	// AggregateMonth computes per-tier totals for one month.
	AggregateMonth(ctx context.Context, month time.Time) ([]ArchiveSummary, error)

	// UpsertArchive persists summaries keyed by (month, tier); re-running
	// the same month overwrites with identical values.
	UpsertArchive(ctx context.Context, summaries []ArchiveSummary) error

	// DeleteOlderThan removes usage rows for months before cutoff and
	// returns how many went away.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type postgresStore struct {
	pool *pgxpool.Pool
}

// NewStore creates a Store backed by voice_usage and voice_usage_archive.
func NewStore(pool *pgxpool.Pool) Store {
	return &postgresStore{pool: pool}
}

func (s *postgresStore) IncrementStarted(ctx context.Context, identityKey string, month time.Time, tier string) (*UsageRecord, error) {
	return s.increment(ctx, identityKey, month, tier, 1, 0)
}

func (s *postgresStore) IncrementCompleted(ctx context.Context, identityKey string, month time.Time, tier string) (*UsageRecord, error) {
	return s.increment(ctx, identityKey, month, tier, 0, 1)
}

func (s *postgresStore) increment(ctx context.Context, identityKey string, month time.Time, tier string, started, completed int) (*UsageRecord, error) {
	var rec UsageRecord
	err := s.pool.QueryRow(ctx, `
		INSERT INTO voice_usage (identity_key, month, conversations_started, conversations_completed, tier)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (identity_key, month) DO UPDATE
		SET conversations_started   = voice_usage.conversations_started + $3,
		    conversations_completed = voice_usage.conversations_completed + $4,
		    tier                    = $5,
		    updated_at              = NOW()
		RETURNING identity_key, month, conversations_started, conversations_completed, tier, updated_at`,
		identityKey, month, started, completed, tier,
	).Scan(&rec.IdentityKey, &rec.Month, &rec.ConversationsStarted, &rec.ConversationsCompleted, &rec.Tier, &rec.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("incrementing voice usage: %w", err)
	}
	return &rec, nil
}

func (s *postgresStore) Get(ctx context.Context, identityKey string, month time.Time) (*UsageRecord, error) {
	var rec UsageRecord
	err := s.pool.QueryRow(ctx, `
		SELECT identity_key, month, conversations_started, conversations_completed, tier, updated_at
		FROM voice_usage WHERE identity_key = $1 AND month = $2`,
		identityKey, month,
	).Scan(&rec.IdentityKey, &rec.Month, &rec.ConversationsStarted, &rec.ConversationsCompleted, &rec.Tier, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetching voice usage: %w", err)
	}
	return &rec, nil
}

func (s *postgresStore) AggregateMonth(ctx context.Context, month time.Time) ([]ArchiveSummary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT tier,
		       COALESCE(SUM(conversations_started), 0),
		       COALESCE(SUM(conversations_completed), 0)
		FROM voice_usage WHERE month = $1
		GROUP BY tier ORDER BY tier`,
		month)
	if err != nil {
		return nil, fmt.Errorf("aggregating voice usage: %w", err)
	}
	defer rows.Close()

	var summaries []ArchiveSummary
	for rows.Next() {
		sum := ArchiveSummary{Month: month}
		if err := rows.Scan(&sum.Tier, &sum.ConversationsStarted, &sum.ConversationsCompleted); err != nil {
			return nil, fmt.Errorf("scanning usage aggregate: %w", err)
		}
		if sum.ConversationsStarted > 0 {
			sum.CompletionRate = float64(sum.ConversationsCompleted) / float64(sum.ConversationsStarted)
		}
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading usage aggregates: %w", err)
	}
	return summaries, nil
}

func (s *postgresStore) UpsertArchive(ctx context.Context, summaries []ArchiveSummary) error {
	for _, sum := range summaries {
		_, err := s.pool.Exec(ctx, `
			INSERT INTO voice_usage_archive (month, tier, conversations_started, conversations_completed, completion_rate)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (month, tier) DO UPDATE
			SET conversations_started   = $3,
			    conversations_completed = $4,
			    completion_rate         = $5,
			    archived_at             = NOW()`,
			sum.Month, sum.Tier, sum.ConversationsStarted, sum.ConversationsCompleted, sum.CompletionRate)
		if err != nil {
			return fmt.Errorf("upserting archive row for tier %s: %w", sum.Tier, err)
		}
	}
	return nil
}

func (s *postgresStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM voice_usage WHERE month < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sweeping expired voice usage: %w", err)
	}
	return tag.RowsAffected(), nil
}
