package enrich

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/brightpath-abroad/counsel-engine/internal/config"
	"github.com/brightpath-abroad/counsel-engine/internal/llm"
	"github.com/brightpath-abroad/counsel-engine/internal/model"
	"github.com/brightpath-abroad/counsel-engine/internal/scoring"
)

// Descriptor identifies one entity to enrich.
type Descriptor struct {
	Name    string `yaml:"name" json:"name"`
	Country string `yaml:"country" json:"country"`
}

// Enricher fills the enrichment cache from model calls. Every path
// resolves to a stored record: a real model answer, or the deterministic
// country default when the model output is missing or unusable.
type Enricher struct {
	cache         *Cache
	router        *llm.Router
	call          llm.CallConfig
	maxEntities   int
	maxConcurrent int
}

// NewEnricher creates an enricher writing through cache.
func NewEnricher(cache *Cache, router *llm.Router, cfg config.BatchConfig) *Enricher {
	maxEntities := cfg.MaxEntities
	if maxEntities <= 0 {
		maxEntities = 50
	}
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 10
	}
	return &Enricher{
		cache:         cache,
		router:        router,
		maxEntities:   maxEntities,
		maxConcurrent: maxConcurrent,
	}
}

// WithCall sets a per-enricher provider/model override.
func (e *Enricher) WithCall(call llm.CallConfig) *Enricher {
	e.call = call
	return e
}

// Enrich returns the enrichment record for one entity, using the cache
// when fresh and calling the model otherwise. It never fails: total
// upstream failure yields the stored country default.
func (e *Enricher) Enrich(ctx context.Context, name, country string) *model.EnrichmentRecord {
	if rec, ok := e.cache.Lookup(ctx, name, country); ok {
		return rec
	}

	resp := e.router.Generate(ctx, llm.GenerateRequest{
		System: enrichSystemText,
		Turns:  []llm.Turn{{Role: "user", Content: buildSinglePrompt(name, country)}},
	}, e.call)

	payload, source := e.payloadFromResponse(resp, country)
	rec, err := e.cache.Store(ctx, name, country, payload, source)
	if err != nil {
		zap.L().Warn("enrich: store failed for entity",
			zap.String("name", name),
			zap.String("country", country),
			zap.Error(err),
		)
	}
	return rec
}

// EnrichAll enriches up to the batch cap of entities with a single model
// call and fans the indexed array response back out to one cache write
// per entity. Entities beyond the cap are not sent to the model; they
// receive the country default unconditionally.
func (e *Enricher) EnrichAll(ctx context.Context, entities []Descriptor) []*model.EnrichmentRecord {
	if len(entities) == 0 {
		return nil
	}

	head := entities
	if len(head) > e.maxEntities {
		zap.L().Warn("enrich: batch exceeds cap, overflow receives defaults",
			zap.Int("entities", len(entities)),
			zap.Int("cap", e.maxEntities),
		)
		head = entities[:e.maxEntities]
	}

	payloads := make([]map[string]any, len(entities))
	sources := make([]scoring.Source, len(entities))
	for i := range entities {
		payloads[i] = DefaultPayload(entities[i].Country)
		sources[i] = scoring.SourceDefault
	}

	resp := e.router.Generate(ctx, llm.GenerateRequest{
		System: enrichSystemText,
		Turns:  []llm.Turn{{Role: "user", Content: buildBatchPrompt(head)}},
	}, e.call)

	if !resp.Degraded {
		byIndex, invalid, err := llm.IndexedArray(resp.Text, len(head))
		if err != nil {
			// Whole-batch parse failure: every entity keeps its default.
			zap.L().Warn("enrich: batch response unparseable, using defaults",
				zap.Int("entities", len(head)),
				zap.Error(err),
			)
		} else {
			if invalid > 0 {
				zap.L().Warn("enrich: batch elements with invalid index",
					zap.Int("invalid", invalid),
					zap.Int("expected", len(head)),
				)
			}
			src := sourceForProvider(resp.Provider)
			for i := range head {
				if p, ok := byIndex[i+1]; ok {
					payloads[i] = p
					sources[i] = src
				}
			}
		}
	}

	// Independent writes: a failure for one entity never blocks siblings.
	records := make([]*model.EnrichmentRecord, len(entities))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(e.maxConcurrent)
	for i := range entities {
		g.Go(func() error {
			rec, err := e.cache.Store(gCtx, entities[i].Name, entities[i].Country, payloads[i], sources[i])
			if err != nil {
				zap.L().Warn("enrich: batch write failed for entity",
					zap.String("name", entities[i].Name),
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

// payloadFromResponse turns a router response into a payload and source
// tag, falling back to the country default on degradation or parse
// failure.
func (e *Enricher) payloadFromResponse(resp *llm.Response, country string) (map[string]any, scoring.Source) {
	if resp.Degraded {
		return DefaultPayload(country), scoring.SourceDefault
	}
	obj, err := llm.ExtractObject(resp.Text)
	if err != nil {
		zap.L().Warn("enrich: response unparseable, using default", zap.Error(err))
		return DefaultPayload(country), scoring.SourceDefault
	}
	return obj, sourceForProvider(resp.Provider)
}

// sourceForProvider maps a router provenance tag to a scoring source.
func sourceForProvider(provider string) scoring.Source {
	switch provider {
	case llm.ProviderAnthropic:
		return scoring.SourceAnthropic
	case llm.ProviderPerplexity:
		return scoring.SourcePerplexity
	default:
		return scoring.SourceDefault
	}
}
