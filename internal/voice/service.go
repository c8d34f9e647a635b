package voice

import (
	"context"
	"time"

	"github.com/scriptura-app/scriptura/internal/identity"
	"github.com/scriptura-app/scriptura/internal/metrics"
	"github.com/scriptura-app/scriptura/internal/plan"
)

// Service records per-identity voice conversation counters.
type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// RecordStarted counts a new conversation in the current month, creating
// the month's row on first use.
func (s *Service) RecordStarted(ctx context.Context, id identity.Identity, p plan.Plan) (*UsageRecord, error) {
	rec, err := s.store.IncrementStarted(ctx, id.Key(), MonthOf(s.now()), p.String())
	if err != nil {
		return nil, err
	}
	metrics.VoiceConversationsTotal.WithLabelValues("started", p.String()).Inc()
	return rec, nil
}

// RecordCompleted counts a finished conversation in the current month.
func (s *Service) RecordCompleted(ctx context.Context, id identity.Identity, p plan.Plan) (*UsageRecord, error) {
	rec, err := s.store.IncrementCompleted(ctx, id.Key(), MonthOf(s.now()), p.String())
	if err != nil {
		return nil, err
	}
	metrics.VoiceConversationsTotal.WithLabelValues("completed", p.String()).Inc()
	return rec, nil
}

// Usage returns the caller's counters for the current month. A caller with
// no conversations yet gets zero counters, not an error.
func (s *Service) Usage(ctx context.Context, id identity.Identity, p plan.Plan) (*UsageRecord, error) {
	month := MonthOf(s.now())
	rec, err := s.store.Get(ctx, id.Key(), month)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return &UsageRecord{
			IdentityKey: id.Key(),
			Month:       month,
			Tier:        p.String(),
		}, nil
	}
	return rec, nil
}
