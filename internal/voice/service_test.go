package voice

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scriptura-app/scriptura/internal/identity"
	"github.com/scriptura-app/scriptura/internal/plan"
)

// memStore is an in-memory Store with the same upsert-increment and
// idempotent-archive semantics as the Postgres one.
type memStore struct {
	mu      sync.Mutex
	usage   map[string]*UsageRecord
	archive map[string]ArchiveSummary

	aggregateErr error
	archiveErr   error
	sweepErr     error
}

func newMemStore() *memStore {
	return &memStore{
		usage:   make(map[string]*UsageRecord),
		archive: make(map[string]ArchiveSummary),
	}
}

func usageKey(identityKey string, month time.Time) string {
	return identityKey + "@" + month.Format("2006-01")
}

func (m *memStore) increment(identityKey string, month time.Time, tier string, started, completed int) (*UsageRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := usageKey(identityKey, month)
	rec, ok := m.usage[key]
	if !ok {
		rec = &UsageRecord{IdentityKey: identityKey, Month: month}
		m.usage[key] = rec
	}
	rec.ConversationsStarted += started
	rec.ConversationsCompleted += completed
	rec.Tier = tier
	rec.UpdatedAt = time.Now().UTC()

	cp := *rec
	return &cp, nil
}

func (m *memStore) IncrementStarted(ctx context.Context, identityKey string, month time.Time, tier string) (*UsageRecord, error) {
	return m.increment(identityKey, month, tier, 1, 0)
}

func (m *memStore) IncrementCompleted(ctx context.Context, identityKey string, month time.Time, tier string) (*UsageRecord, error) {
	return m.increment(identityKey, month, tier, 0, 1)
}

func (m *memStore) Get(ctx context.Context, identityKey string, month time.Time) (*UsageRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.usage[usageKey(identityKey, month)]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (m *memStore) AggregateMonth(ctx context.Context, month time.Time) ([]ArchiveSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.aggregateErr != nil {
		return nil, m.aggregateErr
	}

	byTier := make(map[string]*ArchiveSummary)
	for _, rec := range m.usage {
		if !rec.Month.Equal(month) {
			continue
		}
		sum, ok := byTier[rec.Tier]
		if !ok {
			sum = &ArchiveSummary{Month: month, Tier: rec.Tier}
			byTier[rec.Tier] = sum
		}
		sum.ConversationsStarted += rec.ConversationsStarted
		sum.ConversationsCompleted += rec.ConversationsCompleted
	}

	var out []ArchiveSummary
	for _, sum := range byTier {
		if sum.ConversationsStarted > 0 {
			sum.CompletionRate = float64(sum.ConversationsCompleted) / float64(sum.ConversationsStarted)
		}
		out = append(out, *sum)
	}
	return out, nil
}

func (m *memStore) UpsertArchive(ctx context.Context, summaries []ArchiveSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.archiveErr != nil {
		return m.archiveErr
	}
	for _, sum := range summaries {
		m.archive[sum.Month.Format("2006-01")+"/"+sum.Tier] = sum
	}
	return nil
}

func (m *memStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sweepErr != nil {
		return 0, m.sweepErr
	}
	var deleted int64
	for key, rec := range m.usage {
		if rec.Month.Before(cutoff) {
			delete(m.usage, key)
			deleted++
		}
	}
	return deleted, nil
}

func fixedNow() time.Time {
	return time.Date(2026, time.August, 30, 10, 0, 0, 0, time.UTC)
}

func newTestVoiceService(store Store) *Service {
	svc := NewService(store)
	svc.now = fixedNow
	return svc
}

func TestMonthOf(t *testing.T) {
	got := MonthOf(time.Date(2026, time.August, 30, 23, 59, 0, 0, time.FixedZone("IST", 5*3600+1800)))
	assert.Equal(t, time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC), got)
}

func TestRecordStarted_CreatesMonthRow(t *testing.T) {
	store := newMemStore()
	svc := newTestVoiceService(store)
	ctx := context.Background()

	rec, err := svc.RecordStarted(ctx, identity.User("u1"), plan.Plus)
	require.NoError(t, err)

	assert.Equal(t, "user:u1", rec.IdentityKey)
	assert.Equal(t, MonthOf(fixedNow()), rec.Month)
	assert.Equal(t, 1, rec.ConversationsStarted)
	assert.Equal(t, 0, rec.ConversationsCompleted)
	assert.Equal(t, "plus", rec.Tier)
}

func TestRecordCompleted_Increments(t *testing.T) {
	store := newMemStore()
	svc := newTestVoiceService(store)
	ctx := context.Background()
	id := identity.User("u1")

	_, err := svc.RecordStarted(ctx, id, plan.Plus)
	require.NoError(t, err)
	_, err = svc.RecordStarted(ctx, id, plan.Plus)
	require.NoError(t, err)
	rec, err := svc.RecordCompleted(ctx, id, plan.Plus)
	require.NoError(t, err)

	assert.Equal(t, 2, rec.ConversationsStarted)
	assert.Equal(t, 1, rec.ConversationsCompleted)
}

func TestRecordStarted_TierFollowsPlanChange(t *testing.T) {
	store := newMemStore()
	svc := newTestVoiceService(store)
	ctx := context.Background()
	id := identity.User("u1")

	_, err := svc.RecordStarted(ctx, id, plan.Plus)
	require.NoError(t, err)
	rec, err := svc.RecordStarted(ctx, id, plan.Premium)
	require.NoError(t, err)

	assert.Equal(t, "premium", rec.Tier)
}

func TestUsage_NoRowsYieldsZeroCounters(t *testing.T) {
	svc := newTestVoiceService(newMemStore())

	rec, err := svc.Usage(context.Background(), identity.Session("s1"), plan.Free)
	require.NoError(t, err)

	assert.Equal(t, "session:s1", rec.IdentityKey)
	assert.Equal(t, MonthOf(fixedNow()), rec.Month)
	assert.Zero(t, rec.ConversationsStarted)
	assert.Zero(t, rec.ConversationsCompleted)
	assert.Equal(t, "free", rec.Tier)
}

func TestUsage_IsolatedPerMonth(t *testing.T) {
	store := newMemStore()
	svc := newTestVoiceService(store)
	ctx := context.Background()
	id := identity.User("u1")

	_, err := svc.RecordStarted(ctx, id, plan.Plus)
	require.NoError(t, err)

	// Next month: counters start from zero without any reset pass.
	svc.now = func() time.Time {
		return time.Date(2026, time.September, 2, 8, 0, 0, 0, time.UTC)
	}
	rec, err := svc.Usage(ctx, id, plan.Plus)
	require.NoError(t, err)
	assert.Zero(t, rec.ConversationsStarted)
}
