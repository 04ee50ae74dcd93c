package analysis

// RequiredSections are the sections every usable analysis carries. An
// analysis missing any of them is incomplete and gets re-generated.
var RequiredSections = []string{
	"profile_fit",
	"cost_analysis",
	"preference_match",
	"admission_chance",
	"risk_level",
}

// Complete reports whether the payload carries all required sections.
func Complete(payload map[string]any) bool {
	for _, s := range RequiredSections {
		if payload[s] == nil {
			return false
		}
	}
	return true
}

// DefaultPayload returns the neutral analysis used when no profile or
// model answer is available. Every required section is present.
func DefaultPayload() map[string]any {
	return map[string]any{
		"profile_fit": map[string]any{
			"score":   50,
			"summary": "No academic profile on record. Add grades and test scores for a personalised fit assessment.",
		},
		"cost_analysis": map[string]any{
			"affordability": "unknown",
			"summary":       "Budget information missing. Costs shown are estimates only.",
		},
		"preference_match": map[string]any{
			"score":   50,
			"summary": "Preferences not captured yet.",
		},
		"admission_chance": map[string]any{
			"band":    "moderate",
			"summary": "Insufficient data for an admission estimate.",
		},
		"risk_level": "moderate",
	}
}

// WithDefaults fills any missing required section of payload from the
// neutral default, leaving present sections untouched. The input map is
// not modified.
func WithDefaults(payload map[string]any) map[string]any {
	defaults := DefaultPayload()
	merged := make(map[string]any, len(payload)+len(RequiredSections))
	for k, v := range payload {
		merged[k] = v
	}
	for _, s := range RequiredSections {
		if merged[s] == nil {
			merged[s] = defaults[s]
		}
	}
	return merged
}
