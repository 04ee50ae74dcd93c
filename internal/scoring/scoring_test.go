package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func fullPayload() map[string]any {
	return map[string]any{
		"tuition_estimate":     55000.0,
		"living_cost_estimate": 18000.0,
		"acceptance_rate":      4.0,
		"ranking":              1.0,
		"min_gpa":              3.9,
		"ielts_requirement":    7.5,
		"application_deadline": "January",
	}
}

func TestScoreBounds(t *testing.T) {
	tests := []struct {
		name     string
		payload  map[string]any
		source   Source
		verified bool
	}{
		{"empty unknown source", map[string]any{}, Source("scraper"), false},
		{"full verified", fullPayload(), SourceVerified, true},
		{"default source", map[string]any{"estimate_basis": "country_default"}, SourceDefault, false},
		{"nil payload", nil, SourceAnthropic, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(tt.payload, tt.source, tt.verified)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 1.0)
		})
	}
}

func TestScoreValues(t *testing.T) {
	// Perfect record: every component contributes its full weight.
	assert.Equal(t, 1.0, Score(fullPayload(), SourceVerified, true))

	// Full payload, counsellor-entered but unverified.
	// 0.4*1 + 0.3*0.9 + 0 + 0.1 = 0.77
	assert.Equal(t, 0.77, Score(fullPayload(), SourceManual, false))

	// Empty payload, unknown tag scores at the floor reliability.
	// 0 + 0.3*0.3 + 0 + 0.1 = 0.19
	assert.Equal(t, 0.19, Score(map[string]any{}, Source("scraper"), false))

	// Two of seven fields, primary vendor.
	// 0.4*(2/7) + 0.3*0.75 + 0 + 0.1 = 0.4393 -> 0.44
	partial := map[string]any{
		"tuition_estimate": 30000.0,
		"ranking":          120.0,
	}
	assert.Equal(t, 0.44, Score(partial, SourceAnthropic, false))
}

func TestScoreDeterministic(t *testing.T) {
	p := fullPayload()
	first := Score(p, SourcePerplexity, false)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Score(p, SourcePerplexity, false))
	}
}

func TestCompleteness(t *testing.T) {
	assert.Equal(t, 0.0, Completeness(nil))
	assert.Equal(t, 0.0, Completeness(map[string]any{}))
	assert.Equal(t, 1.0, Completeness(fullPayload()))

	// Schema echoes do not count as present.
	hollow := map[string]any{
		"tuition_estimate":     0.0,
		"living_cost_estimate": nil,
		"application_deadline": "",
		"ranking":              250.0,
	}
	assert.InDelta(t, 1.0/7.0, Completeness(hollow), 1e-9)

	// Extra fields neither help nor hurt.
	extra := fullPayload()
	extra["campus_size"] = "large"
	assert.Equal(t, 1.0, Completeness(extra))
}
