// Package voice tracks monthly voice-conversation usage per identity and
// runs the month-end lifecycle: archive aggregates, sweep expired rows,
// and let the new month's counters appear lazily on first use.
package voice

import "time"

// UsageRecord matches a voice_usage row: one per (identity, UTC month).
// Tier is snapshotted at time of use so archives reflect the plan the
// conversations actually ran under.
type UsageRecord struct {
	IdentityKey            string    `json:"identity_key"`
	Month                  time.Time `json:"month"`
	ConversationsStarted   int       `json:"conversations_started"`
	ConversationsCompleted int       `json:"conversations_completed"`
	Tier                   string    `json:"tier"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// ArchiveSummary is one per-tier aggregate row persisted by the monthly job.
type ArchiveSummary struct {
	Month                  time.Time `json:"month"`
	Tier                   string    `json:"tier"`
	ConversationsStarted   int       `json:"conversations_started"`
	ConversationsCompleted int       `json:"conversations_completed"`
	CompletionRate         float64   `json:"completion_rate"`
}

// MonthOf truncates t to the first instant of its UTC calendar month.
func MonthOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC)
}
