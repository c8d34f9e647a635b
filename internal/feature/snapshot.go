package feature

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Loader produces the full flag set from the backing store.
type Loader interface {
	LoadAll(ctx context.Context) ([]Flag, error)
}

// Snapshot is an immutable view of all flags. Request handling only ever
// reads a snapshot; refreshes swap in a whole new one.
type Snapshot struct {
	flags map[string]Flag
}

// NewSnapshot builds a snapshot from a flag list.
func NewSnapshot(flags []Flag) *Snapshot {
	m := make(map[string]Flag, len(flags))
	for _, f := range flags {
		m[f.Key] = f
	}
	return &Snapshot{flags: m}
}

// Flag returns the named flag.
func (s *Snapshot) Flag(key string) (Flag, bool) {
	f, ok := s.flags[key]
	return f, ok
}

// Len returns the number of flags in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.flags)
}

// Holder owns the current snapshot and refreshes it on a timer. A failed
// refresh keeps serving the previous snapshot.
type Holder struct {
	loader   Loader
	current  atomic.Pointer[Snapshot]
	interval time.Duration
}

// NewHolder loads the initial snapshot and returns the holder. The caller
// decides whether a failed initial load is fatal; an empty snapshot is
// installed either way so reads never see nil.
func NewHolder(ctx context.Context, loader Loader, interval time.Duration) (*Holder, error) {
	h := &Holder{loader: loader, interval: interval}
	h.current.Store(NewSnapshot(nil))

	flags, err := loader.LoadAll(ctx)
	if err != nil {
		return h, err
	}
	h.current.Store(NewSnapshot(flags))
	return h, nil
}

// Current returns the latest snapshot. Never nil.
func (h *Holder) Current() *Snapshot {
	return h.current.Load()
}

// Run refreshes the snapshot every interval until ctx is cancelled.
func (h *Holder) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			flags, err := h.loader.LoadAll(ctx)
			if err != nil {
				slog.Warn("feature: snapshot refresh failed, keeping previous", "error", err)
				continue
			}
			h.current.Store(NewSnapshot(flags))
			slog.Debug("feature: snapshot refreshed", "flags", len(flags))
		}
	}
}
