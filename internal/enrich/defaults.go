package enrich

import "github.com/brightpath-abroad/counsel-engine/internal/normalize"

// baseline holds the per-country cost assumptions behind default
// records, in USD per year.
type baseline struct {
	tuition float64
	living  float64
}

// countryBaselines covers the destinations counsellors most commonly
// shortlist. Anything else falls back to the global baseline.
var countryBaselines = map[string]baseline{
	"usa":            {38000, 15000},
	"united states":  {38000, 15000},
	"uk":             {28000, 13000},
	"united kingdom": {28000, 13000},
	"canada":         {25000, 12000},
	"australia":      {27000, 14000},
	"germany":        {3000, 11000},
	"netherlands":    {14000, 12000},
	"ireland":        {18000, 12000},
	"singapore":      {30000, 14000},
	"new zealand":    {22000, 13000},
}

var globalBaseline = baseline{20000, 12000}

// DefaultPayload returns the deterministic fallback payload for an
// entity when no model answer is available. Same country always yields
// the same payload.
func DefaultPayload(country string) map[string]any {
	b, ok := countryBaselines[normalize.Fold(country)]
	if !ok {
		b = globalBaseline
	}
	return map[string]any{
		"tuition_estimate":     b.tuition,
		"living_cost_estimate": b.living,
		"estimate_basis":       "country_default",
	}
}
