// Package tokens is the token ledger: it prices operations, consumes
// tokens from a daily allowance plus a purchased balance, and reports the
// caller's current balance.
package tokens

import (
	"errors"
	"time"
)

var (
	ErrUnsupportedLanguage = errors.New("unsupported language")
	ErrInsufficientTokens  = errors.New("insufficient tokens")
	ErrPurchaseNotAllowed  = errors.New("plan cannot purchase tokens")
)

// BalanceRecord matches a token_balances row: one per (identity, UTC day).
// A new day gets a fresh row; the previous day's row is never touched again.
type BalanceRecord struct {
	IdentityKey     string    `json:"identity_key"`
	Day             time.Time `json:"day"`
	ConsumedToday   int       `json:"consumed_today"`
	PurchasedTokens int       `json:"purchased_tokens"`
	LastResetAt     time.Time `json:"last_reset_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// BalanceStatus is the API response for the balance endpoint.
type BalanceStatus struct {
	AvailableTokens    int        `json:"available_tokens"`
	PurchasedTokens    int        `json:"purchased_tokens"`
	TotalTokens        int        `json:"total_tokens"`
	DailyLimit         int        `json:"daily_limit"`
	TotalConsumedToday int        `json:"total_consumed_today"`
	LastReset          time.Time  `json:"last_reset"`
	UserPlan           string     `json:"user_plan"`
	IsPremium          bool       `json:"is_premium"`
	UnlimitedUsage     bool       `json:"unlimited_usage"`
	CanPurchaseTokens  bool       `json:"can_purchase_tokens"`
	NextResetTime      *time.Time `json:"next_reset_time,omitempty"`
}
