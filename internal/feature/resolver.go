package feature

import "github.com/scriptura-app/scriptura/internal/plan"

// Resolve computes the entitlement decision for featureKey under p using
// the given snapshot. Unknown or disabled features resolve to hidden and
// denied; denial is the only failure mode, never an accidental grant.
func Resolve(snap *Snapshot, featureKey string, p plan.Plan) Access {
	flag, ok := snap.Flag(featureKey)
	if !ok || !flag.Enabled {
		return Access{
			HasAccess:     false,
			IsLocked:      false,
			DisplayMode:   DisplayHide,
			RequiredPlans: []string{},
			CurrentPlan:   p.String(),
			UpgradePlan:   nil,
		}
	}

	required := make([]string, 0, len(flag.Plans))
	for _, q := range flag.Plans {
		required = append(required, q.String())
	}

	access := Access{
		HasAccess:     flag.enabledFor(p),
		DisplayMode:   flag.DisplayMode,
		RequiredPlans: required,
		CurrentPlan:   p.String(),
	}
	access.IsLocked = !access.HasAccess && flag.DisplayMode == DisplayLock

	if !access.HasAccess {
		access.UpgradePlan = cheapestUpgrade(flag, p)
	}
	return access
}

// cheapestUpgrade scans ascending from the caller's plan and returns the
// first tier that unlocks the feature, so the suggestion is always the
// cheapest one rather than the most featured.
func cheapestUpgrade(flag Flag, p plan.Plan) *string {
	for _, q := range plan.Above(p) {
		if flag.enabledFor(q) {
			name := q.String()
			return &name
		}
	}
	return nil
}
