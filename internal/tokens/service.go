package tokens

import (
	"context"
	"fmt"
	"time"

	"github.com/scriptura-app/scriptura/internal/identity"
	"github.com/scriptura-app/scriptura/internal/metrics"
	"github.com/scriptura-app/scriptura/internal/plan"
)

// Service is the token ledger.
type Service struct {
	store   Store
	catalog *plan.Catalog
	now     func() time.Time
}

func NewService(store Store, catalog *plan.Catalog) *Service {
	return &Service{store: store, catalog: catalog, now: time.Now}
}

// CostOf returns the token price of one operation in the given language.
func (s *Service) CostOf(languageCode string) (int, error) {
	return CostOf(languageCode)
}

// IsUnlimitedPlan reports whether the tier is unmetered.
func (s *Service) IsUnlimitedPlan(p plan.Plan) bool {
	return s.catalog.IsUnlimited(p)
}

// CanPurchaseTokens reports whether the tier may buy extra tokens.
func (s *Service) CanPurchaseTokens(p plan.Plan) bool {
	return s.catalog.CanPurchaseTokens(p)
}

// GetBalance returns the caller's balance for today, materializing the
// day's row on first access. Unlimited plans have no row to materialize.
func (s *Service) GetBalance(ctx context.Context, id identity.Identity, p plan.Plan) (*BalanceStatus, error) {
	if s.catalog.IsUnlimited(p) {
		return &BalanceStatus{
			UserPlan:       p.String(),
			IsPremium:      p == plan.Premium,
			UnlimitedUsage: true,
		}, nil
	}

	day := s.today()
	rec, err := s.ensureAndGet(ctx, id.Key(), day)
	if err != nil {
		return nil, err
	}
	return s.status(rec, p, day), nil
}

// Consume charges amount tokens against the caller's daily allowance, then
// the purchased balance. All-or-nothing: a failed check mutates nothing.
// Unlimited plans always succeed without touching the ledger.
func (s *Service) Consume(ctx context.Context, id identity.Identity, p plan.Plan, amount int) (*BalanceStatus, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("consume amount must be positive, got %d", amount)
	}

	if s.catalog.IsUnlimited(p) {
		return &BalanceStatus{
			UserPlan:       p.String(),
			IsPremium:      p == plan.Premium,
			UnlimitedUsage: true,
		}, nil
	}

	day := s.today()
	key := id.Key()
	if err := s.store.EnsureDay(ctx, key, day); err != nil {
		return nil, err
	}

	limit := s.catalog.DailyAllowance(p)
	rec, ok, err := s.store.Consume(ctx, key, day, amount, limit)
	if err != nil {
		return nil, err
	}
	if !ok {
		metrics.TokenDenialsTotal.WithLabelValues(p.String()).Inc()
		return nil, ErrInsufficientTokens
	}

	metrics.TokensConsumedTotal.WithLabelValues(p.String()).Add(float64(amount))
	return s.status(rec, p, day), nil
}

// Purchase credits purchased tokens. Only purchasable tiers qualify.
func (s *Service) Purchase(ctx context.Context, id identity.Identity, p plan.Plan, amount int) (*BalanceStatus, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("purchase amount must be positive, got %d", amount)
	}
	if !s.catalog.CanPurchaseTokens(p) {
		return nil, ErrPurchaseNotAllowed
	}

	day := s.today()
	key := id.Key()
	if err := s.store.EnsureDay(ctx, key, day); err != nil {
		return nil, err
	}

	rec, err := s.store.AddPurchased(ctx, key, day, amount)
	if err != nil {
		return nil, err
	}
	return s.status(rec, p, day), nil
}

func (s *Service) ensureAndGet(ctx context.Context, key string, day time.Time) (*BalanceRecord, error) {
	if err := s.store.EnsureDay(ctx, key, day); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, key, day)
}

func (s *Service) status(rec *BalanceRecord, p plan.Plan, day time.Time) *BalanceStatus {
	limit := s.catalog.DailyAllowance(p)
	available := limit - rec.ConsumedToday
	if available < 0 {
		available = 0
	}
	nextReset := day.AddDate(0, 0, 1)

	return &BalanceStatus{
		AvailableTokens:    available,
		PurchasedTokens:    rec.PurchasedTokens,
		TotalTokens:        available + rec.PurchasedTokens,
		DailyLimit:         limit,
		TotalConsumedToday: rec.ConsumedToday,
		LastReset:          rec.LastResetAt,
		UserPlan:           p.String(),
		IsPremium:          p == plan.Premium,
		UnlimitedUsage:     false,
		CanPurchaseTokens:  s.catalog.CanPurchaseTokens(p),
		NextResetTime:      &nextReset,
	}
}

// today returns the current UTC calendar day, the ledger row key.
func (s *Service) today() time.Time {
	now := s.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
