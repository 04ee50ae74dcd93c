package analysis

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/brightpath-abroad/counsel-engine/internal/config"
	"github.com/brightpath-abroad/counsel-engine/internal/llm"
	"github.com/brightpath-abroad/counsel-engine/internal/model"
)

// Subject is the applicant an analysis is generated for. ProfileSummary
// is the counsellor-facing text rendering of the applicant's profile; an
// empty summary means no profile exists yet.
type Subject struct {
	ID             string `yaml:"id" json:"id"`
	ProfileSummary string `yaml:"profile_summary" json:"profile_summary"`
}

// HasProfile reports whether the subject has any profile data to
// personalise on.
func (s Subject) HasProfile() bool {
	return strings.TrimSpace(s.ProfileSummary) != ""
}

// Target identifies one university to analyse.
type Target struct {
	UniversityID string `yaml:"university_id" json:"university_id"`
	Name         string `yaml:"name" json:"name"`
	Country      string `yaml:"country" json:"country"`
}

// Analyzer fills the analysis cache from model calls. A subject without
// a profile never triggers a model call: their analyses are neutral
// placeholders written straight to the cache.
type Analyzer struct {
	cache         *Cache
	router        *llm.Router
	call          llm.CallConfig
	maxEntities   int
	maxConcurrent int
}

// NewAnalyzer creates an analyzer writing through cache.
func NewAnalyzer(cache *Cache, router *llm.Router, cfg config.BatchConfig) *Analyzer {
	maxEntities := cfg.MaxEntities
	if maxEntities <= 0 {
		maxEntities = 50
	}
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 10
	}
	return &Analyzer{
		cache:         cache,
		router:        router,
		maxEntities:   maxEntities,
		maxConcurrent: maxConcurrent,
	}
}

// WithCall sets a per-analyzer provider/model override.
func (a *Analyzer) WithCall(call llm.CallConfig) *Analyzer {
	a.call = call
	return a
}

// Analyze returns the analysis for one (subject, university) pair, using
// the cache when usable and calling the model otherwise. It never fails:
// total upstream failure yields a stored neutral analysis.
func (a *Analyzer) Analyze(ctx context.Context, sub Subject, t Target) *model.AnalysisRecord {
	hasProfile := sub.HasProfile()
	if rec, ok := a.cache.Lookup(ctx, sub.ID, t.UniversityID, hasProfile); ok {
		return rec
	}

	if !hasProfile {
		rec, _ := a.cache.Store(ctx, sub.ID, t.UniversityID, DefaultPayload(), true)
		return rec
	}

	resp := a.router.Generate(ctx, llm.GenerateRequest{
		System: analysisSystemText,
		Turns:  []llm.Turn{{Role: "user", Content: buildSinglePrompt(sub.ProfileSummary, t)}},
	}, a.call)

	payload := a.payloadFromResponse(resp)
	rec, err := a.cache.Store(ctx, sub.ID, t.UniversityID, payload, false)
	if err != nil {
		zap.L().Warn("analysis: store failed for pair",
			zap.String("user_id", sub.ID),
			zap.String("university_id", t.UniversityID),
			zap.Error(err),
		)
	}
	return rec
}

// AnalyzeAll analyses up to the batch cap of universities with a single
// model call and fans the indexed array response back out to one cache
// write per pair. For a subject without a profile no model call is made
// at all; every pair receives a placeholder.
func (a *Analyzer) AnalyzeAll(ctx context.Context, sub Subject, targets []Target) []*model.AnalysisRecord {
	if len(targets) == 0 {
		return nil
	}

	payloads := make([]map[string]any, len(targets))
	placeholder := !sub.HasProfile()
	for i := range targets {
		payloads[i] = DefaultPayload()
	}

	if !placeholder {
		head := targets
		if len(head) > a.maxEntities {
			zap.L().Warn("analysis: batch exceeds cap, overflow receives defaults",
				zap.Int("targets", len(targets)),
				zap.Int("cap", a.maxEntities),
			)
			head = targets[:a.maxEntities]
		}

		resp := a.router.Generate(ctx, llm.GenerateRequest{
			System: analysisSystemText,
			Turns:  []llm.Turn{{Role: "user", Content: buildBatchPrompt(sub.ProfileSummary, head)}},
		}, a.call)

		if !resp.Degraded {
			byIndex, invalid, err := llm.IndexedArray(resp.Text, len(head))
			if err != nil {
				zap.L().Warn("analysis: batch response unparseable, using defaults",
					zap.Int("targets", len(head)),
					zap.Error(err),
				)
			} else {
				if invalid > 0 {
					zap.L().Warn("analysis: batch elements with invalid index",
						zap.Int("invalid", invalid),
						zap.Int("expected", len(head)),
					)
				}
				for i := range head {
					if p, ok := byIndex[i+1]; ok {
						payloads[i] = p
					}
				}
			}
		}
	}

	records := make([]*model.AnalysisRecord, len(targets))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(a.maxConcurrent)
	for i := range targets {
		g.Go(func() error {
			rec, err := a.cache.Store(gCtx, sub.ID, targets[i].UniversityID, payloads[i], placeholder)
			if err != nil {
				zap.L().Warn("analysis: batch write failed for pair",
					zap.String("university_id", targets[i].UniversityID),
					zap.Error(err),
				)
			}
			records[i] = rec
			return nil
		})
	}
	_ = g.Wait()

	return records
}

// payloadFromResponse turns a router response into an analysis payload,
// falling back to the neutral default on degradation or parse failure.
func (a *Analyzer) payloadFromResponse(resp *llm.Response) map[string]any {
	if resp.Degraded {
		return DefaultPayload()
	}
	obj, err := llm.ExtractObject(resp.Text)
	if err != nil {
		zap.L().Warn("analysis: response unparseable, using default", zap.Error(err))
		return DefaultPayload()
	}
	return obj
}
