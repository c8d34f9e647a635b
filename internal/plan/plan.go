// Package plan defines the subscription tier catalog. Plans form an
// ordered hierarchy; ordering is always done through the integer enum,
// never by comparing plan names.
package plan

import "fmt"

// Plan is a subscription tier. The declaration order defines the upgrade
// direction: free < standard < plus < premium.
type Plan int

const (
	Free Plan = iota
	Standard
	Plus
	Premium
)

var names = [...]string{"free", "standard", "plus", "premium"}

func (p Plan) String() string {
	if p < Free || p > Premium {
		return "unknown"
	}
	return names[p]
}

// Parse resolves a plan name to its enum value.
func Parse(s string) (Plan, error) {
	for i, n := range names {
		if n == s {
			return Plan(i), nil
		}
	}
	return Free, fmt.Errorf("unknown plan %q", s)
}

// MarshalText renders the plan name for JSON responses.
func (p Plan) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Plan) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Attributes holds the per-tier metering settings.
type Attributes struct {
	DailyTokenAllowance int
	Unlimited           bool
	Purchasable         bool
}

// Catalog is the static plan hierarchy. Allowances can be overridden from
// config at startup; flags are fixed.
type Catalog struct {
	attrs map[Plan]Attributes
}

// DefaultCatalog returns the catalog with built-in allowances.
func DefaultCatalog() *Catalog {
	return NewCatalog(map[Plan]int{
		Free:     100,
		Standard: 500,
		Plus:     2000,
	})
}

// NewCatalog builds a catalog with the given daily allowances for metered
// tiers. Premium is always the unlimited tier; standard and plus are the
// purchasable ones.
func NewCatalog(allowances map[Plan]int) *Catalog {
	return &Catalog{attrs: map[Plan]Attributes{
		Free:     {DailyTokenAllowance: allowances[Free]},
		Standard: {DailyTokenAllowance: allowances[Standard], Purchasable: true},
		Plus:     {DailyTokenAllowance: allowances[Plus], Purchasable: true},
		Premium:  {Unlimited: true},
	}}
}

// Attributes returns the settings for a tier.
func (c *Catalog) Attributes(p Plan) Attributes {
	return c.attrs[p]
}

// DailyAllowance returns the daily token allowance for a tier. Zero for the
// unlimited tier, where the allowance is never consulted.
func (c *Catalog) DailyAllowance(p Plan) int {
	return c.attrs[p].DailyTokenAllowance
}

// IsUnlimited reports whether the tier has unmetered usage.
func (c *Catalog) IsUnlimited(p Plan) bool {
	return c.attrs[p].Unlimited
}

// CanPurchaseTokens reports whether the tier may buy extra tokens.
func (c *Catalog) CanPurchaseTokens(p Plan) bool {
	return c.attrs[p].Purchasable
}

// Above returns the plans strictly above p in ascending order. The cheapest
// upgrade candidate comes first.
func Above(p Plan) []Plan {
	var out []Plan
	for q := p + 1; q <= Premium; q++ {
		out = append(out, q)
	}
	return out
}

// All returns every plan in ascending order.
func All() []Plan {
	return []Plan{Free, Standard, Plus, Premium}
}
