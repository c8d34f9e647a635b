// Package feature decides feature availability per plan: full access, a
// locked teaser with an upgrade suggestion, or nothing at all.
package feature

import "github.com/scriptura-app/scriptura/internal/plan"

// DisplayMode tells the client what to render when access is denied.
type DisplayMode string

const (
	DisplayHide DisplayMode = "hide" // feature absent from the UI
	DisplayLock DisplayMode = "lock" // feature shown locked with upgrade prompt
)

// Flag is one feature's configuration. Flags are read-only snapshots here;
// editing happens in the admin service.
type Flag struct {
	Key         string      `json:"feature_key"`
	Enabled     bool        `json:"is_enabled"`
	Plans       []plan.Plan `json:"enabled_for_plans"`
	DisplayMode DisplayMode `json:"display_mode"`
}

// enabledFor reports whether the flag grants access to the given plan.
func (f Flag) enabledFor(p plan.Plan) bool {
	for _, q := range f.Plans {
		if q == p {
			return true
		}
	}
	return false
}

// Access is the entitlement decision for one feature and one caller.
type Access struct {
	HasAccess     bool        `json:"has_access"`
	IsLocked      bool        `json:"is_locked"`
	DisplayMode   DisplayMode `json:"display_mode"`
	RequiredPlans []string    `json:"required_plans"`
	CurrentPlan   string      `json:"current_plan"`
	UpgradePlan   *string     `json:"upgrade_plan"`
}
