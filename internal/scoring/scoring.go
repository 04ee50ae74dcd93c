// Package scoring computes confidence scores for enrichment records.
//
// The score is a weighted sum over completeness, source reliability,
// verification and recency. It is recomputed at every write from the
// record's current payload and metadata; it is never carried forward, so a
// stored score can always be reproduced from its inputs.
package scoring

import "math"

// Source identifies where an enrichment payload came from. The set is
// closed: unknown tags score at the floor reliability.
type Source string

const (
	// SourceAnthropic marks records enriched by the primary model vendor.
	SourceAnthropic Source = "anthropic"
	// SourcePerplexity marks records enriched by the fallback model vendor.
	SourcePerplexity Source = "perplexity"
	// SourceManual marks records entered by a counsellor.
	SourceManual Source = "manual"
	// SourceVerified marks records reviewed and confirmed by a counsellor.
	SourceVerified Source = "verified"
	// SourceDefault marks deterministic fallback records written when no
	// vendor answered. Scores at the floor reliability.
	SourceDefault Source = "default"
)

// Weights for the score components. They sum to 1.0 so a perfect record
// scores exactly 1.0 before rounding.
const (
	weightCompleteness = 0.4
	weightReliability  = 0.3
	weightVerification = 0.2
	weightRecency      = 0.1
)

// RequiredFields is the checklist used for the completeness component.
// A field counts as present when it is non-nil, non-empty and non-zero.
var RequiredFields = []string{
	"tuition_estimate",
	"living_cost_estimate",
	"acceptance_rate",
	"ranking",
	"min_gpa",
	"ielts_requirement",
	"application_deadline",
}

// sourceReliability maps source tags to their reliability constant.
var sourceReliability = map[Source]float64{
	SourceVerified:   1.0,
	SourceManual:     0.9,
	SourceAnthropic:  0.75,
	SourcePerplexity: 0.65,
}

// unknownSourceReliability is the floor for tags outside the closed set.
const unknownSourceReliability = 0.3

// Score computes the confidence for an enrichment payload at write time.
// The result is clamped to [0,1] and rounded to two decimals. Recency
// always contributes its full weight: scores are computed when the record
// is written, not decayed retroactively on read.
func Score(payload map[string]any, source Source, verified bool) float64 {
	completeness := Completeness(payload)

	reliability, ok := sourceReliability[source]
	if !ok {
		reliability = unknownSourceReliability
	}

	verification := 0.0
	if verified {
		verification = 1.0
	}

	score := weightCompleteness*completeness +
		weightReliability*reliability +
		weightVerification*verification +
		weightRecency*1.0

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return math.Round(score*100) / 100
}

// Completeness returns the fraction of RequiredFields present in payload.
func Completeness(payload map[string]any) float64 {
	if len(payload) == 0 {
		return 0
	}
	present := 0
	for _, f := range RequiredFields {
		if fieldPresent(payload[f]) {
			present++
		}
	}
	return float64(present) / float64(len(RequiredFields))
}

// fieldPresent reports whether a payload value carries real information.
// Zero numbers and empty strings come back from models that echo the
// schema without data, so they do not count.
func fieldPresent(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return x != ""
	case float64:
		return x != 0
	case int:
		return x != 0
	case int64:
		return x != 0
	case bool:
		return x
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	default:
		return true
	}
}
