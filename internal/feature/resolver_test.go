package feature

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scriptura-app/scriptura/internal/plan"
)

func testSnapshot() *Snapshot {
	return NewSnapshot([]Flag{
		{
			Key:         "voice_conversation",
			Enabled:     true,
			Plans:       []plan.Plan{plan.Plus, plan.Premium},
			DisplayMode: DisplayLock,
		},
		{
			Key:         "study_guide",
			Enabled:     true,
			Plans:       []plan.Plan{plan.Standard, plan.Plus, plan.Premium},
			DisplayMode: DisplayLock,
		},
		{
			Key:         "offline_reading",
			Enabled:     true,
			Plans:       []plan.Plan{plan.Premium},
			DisplayMode: DisplayHide,
		},
		{
			Key:         "beta_notes",
			Enabled:     false,
			Plans:       []plan.Plan{plan.Free, plan.Standard, plan.Plus, plan.Premium},
			DisplayMode: DisplayLock,
		},
	})
}

func TestResolve_Granted(t *testing.T) {
	access := Resolve(testSnapshot(), "voice_conversation", plan.Plus)

	assert.True(t, access.HasAccess)
	assert.False(t, access.IsLocked)
	assert.Equal(t, DisplayLock, access.DisplayMode)
	assert.Equal(t, "plus", access.CurrentPlan)
	assert.Nil(t, access.UpgradePlan)
}

func TestResolve_LockedWithCheapestUpgrade(t *testing.T) {
	access := Resolve(testSnapshot(), "voice_conversation", plan.Standard)

	assert.False(t, access.HasAccess)
	assert.True(t, access.IsLocked)
	assert.Equal(t, DisplayLock, access.DisplayMode)
	assert.ElementsMatch(t, []string{"plus", "premium"}, access.RequiredPlans)
	require.NotNil(t, access.UpgradePlan)
	assert.Equal(t, "plus", *access.UpgradePlan)
}

func TestResolve_HiddenNotLocked(t *testing.T) {
	access := Resolve(testSnapshot(), "offline_reading", plan.Plus)

	assert.False(t, access.HasAccess)
	assert.False(t, access.IsLocked, "hide mode never shows a lock")
	assert.Equal(t, DisplayHide, access.DisplayMode)
	require.NotNil(t, access.UpgradePlan)
	assert.Equal(t, "premium", *access.UpgradePlan)
}

func TestResolve_UnknownFeature(t *testing.T) {
	access := Resolve(testSnapshot(), "time_travel", plan.Premium)

	assert.False(t, access.HasAccess)
	assert.False(t, access.IsLocked)
	assert.Equal(t, DisplayHide, access.DisplayMode)
	assert.Equal(t, []string{}, access.RequiredPlans)
	assert.Equal(t, "premium", access.CurrentPlan)
	assert.Nil(t, access.UpgradePlan)
}

func TestResolve_DisabledFeature(t *testing.T) {
	// Disabled flags are indistinguishable from unknown ones: hidden for
	// everyone, even plans the flag lists.
	access := Resolve(testSnapshot(), "beta_notes", plan.Premium)

	assert.False(t, access.HasAccess)
	assert.Equal(t, DisplayHide, access.DisplayMode)
	assert.Empty(t, access.RequiredPlans)
}

func TestResolve_NoUpgradeAbovePremium(t *testing.T) {
	snap := NewSnapshot([]Flag{{
		Key:         "legacy_only",
		Enabled:     true,
		Plans:       []plan.Plan{plan.Free},
		DisplayMode: DisplayLock,
	}})

	access := Resolve(snap, "legacy_only", plan.Premium)
	assert.False(t, access.HasAccess)
	assert.Nil(t, access.UpgradePlan, "no tier above premium can unlock it")
}

type stubLoader struct {
	flags []Flag
	err   error
	calls int
}

func (s *stubLoader) LoadAll(ctx context.Context) ([]Flag, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.flags, nil
}

func TestNewHolder(t *testing.T) {
	loader := &stubLoader{flags: []Flag{{Key: "study_guide", Enabled: true}}}

	h, err := NewHolder(context.Background(), loader, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, h.Current().Len())

	_, ok := h.Current().Flag("study_guide")
	assert.True(t, ok)
}

func TestNewHolder_LoadFailureStillUsable(t *testing.T) {
	loader := &stubLoader{err: errors.New("db down")}

	h, err := NewHolder(context.Background(), loader, time.Minute)
	require.Error(t, err)
	require.NotNil(t, h)

	// Empty snapshot installed, so lookups deny instead of panicking.
	access := Resolve(h.Current(), "voice_conversation", plan.Premium)
	assert.False(t, access.HasAccess)
}

func TestHolder_RefreshSwapsSnapshot(t *testing.T) {
	loader := &stubLoader{flags: []Flag{{Key: "a", Enabled: true}}}

	h, err := NewHolder(context.Background(), loader, 10*time.Millisecond)
	require.NoError(t, err)

	loader.flags = []Flag{{Key: "a", Enabled: true}, {Key: "b", Enabled: true}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return h.Current().Len() == 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

func TestHolder_RefreshFailureKeepsPrevious(t *testing.T) {
	loader := &stubLoader{flags: []Flag{{Key: "a", Enabled: true}}}

	h, err := NewHolder(context.Background(), loader, 10*time.Millisecond)
	require.NoError(t, err)

	loader.err = errors.New("db down")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return loader.calls >= 3
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, 1, h.Current().Len())

	cancel()
	<-done
}
