// Package enrich implements the university enrichment cache and the
// batch enricher that fills it from model calls.
//
// The cache is read-through/write-through over the external store.
// Freshness is tiered: counsellor-verified rows live longest, manually
// entered rows an intermediate span, machine-enriched rows the shortest.
// Store outages degrade to "always re-enrich" — a cache I/O error is
// never surfaced to the enrichment flow.
package enrich

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/brightpath-abroad/counsel-engine/internal/config"
	"github.com/brightpath-abroad/counsel-engine/internal/model"
	"github.com/brightpath-abroad/counsel-engine/internal/resilience"
	"github.com/brightpath-abroad/counsel-engine/internal/scoring"
	"github.com/brightpath-abroad/counsel-engine/internal/store"
)

// TTL holds the freshness tiers for cached enrichment records.
type TTL struct {
	Verified time.Duration
	Manual   time.Duration
	Machine  time.Duration
}

// TTLFromConfig converts configured day counts into durations.
func TTLFromConfig(cfg config.EnrichConfig) TTL {
	days := func(n, fallback int) time.Duration {
		if n <= 0 {
			n = fallback
		}
		return time.Duration(n) * 24 * time.Hour
	}
	return TTL{
		Verified: days(cfg.VerifiedTTLDays, 180),
		Manual:   days(cfg.ManualTTLDays, 90),
		Machine:  days(cfg.MachineTTLDays, 30),
	}
}

// For selects the tier for a record: verification beats source.
func (t TTL) For(rec *model.EnrichmentRecord) time.Duration {
	switch {
	case rec.Verified:
		return t.Verified
	case rec.Source == scoring.SourceManual || rec.Source == scoring.SourceVerified:
		return t.Manual
	default:
		return t.Machine
	}
}

// Longest returns the maximum tier; the expiry sweep uses it as the
// cutoff so no tier is swept early.
func (t TTL) Longest() time.Duration {
	longest := t.Verified
	if t.Manual > longest {
		longest = t.Manual
	}
	if t.Machine > longest {
		longest = t.Machine
	}
	return longest
}

// Cache is the enrichment record cache keyed by normalized
// (name, country).
type Cache struct {
	store store.Store
	ttl   TTL
	retry resilience.Policy
	now   func() time.Time
}

// NewCache creates an enrichment cache over st.
func NewCache(st store.Store, ttl TTL) *Cache {
	return &Cache{
		store: st,
		ttl:   ttl,
		retry: resilience.Policy{Attempts: 2, BaseDelay: 200 * time.Millisecond},
		now:   time.Now,
	}
}

// WithNow fixes the clock for testing.
func (c *Cache) WithNow(now func() time.Time) *Cache {
	c.now = now
	return c
}

// Lookup fetches a record by (name, country). Stale records and store
// read errors both come back as a miss; a fresh hit bumps access stats.
func (c *Cache) Lookup(ctx context.Context, name, country string) (*model.EnrichmentRecord, bool) {
	rec, err := c.store.GetEnrichment(ctx, name, country)
	if err != nil {
		zap.L().Warn("enrich: cache read failed, treating as miss",
			zap.String("name", name),
			zap.String("country", country),
			zap.Error(err),
		)
		return nil, false
	}
	if rec == nil {
		return nil, false
	}

	now := c.now()
	if now.Sub(rec.CreatedAt) > c.ttl.For(rec) {
		return nil, false
	}

	if err := resilience.Do(ctx, c.retry, func(ctx context.Context) error {
		return c.store.TouchEnrichment(ctx, name, country, now)
	}); err != nil {
		zap.L().Warn("enrich: access stat bump failed", zap.Error(err))
	} else {
		rec.AccessCount++
		rec.LastAccessedAt = now
	}
	return rec, true
}

// Store writes an enrichment record through to the store. Confidence is
// always recomputed from the payload at write time; the write fully
// replaces any prior row for the key. A failed write is logged and
// reported but must not abort the caller's flow — the returned record is
// valid either way.
func (c *Cache) Store(ctx context.Context, name, country string, payload map[string]any, source scoring.Source) (*model.EnrichmentRecord, error) {
	now := c.now()
	rec := &model.EnrichmentRecord{
		ID:             uuid.New().String(),
		Name:           strings.TrimSpace(name),
		Country:        strings.TrimSpace(country),
		Payload:        payload,
		Confidence:     scoring.Score(payload, source, false),
		Source:         source,
		Verified:       false,
		CreatedAt:      now,
		LastAccessedAt: now,
		AccessCount:    1,
	}

	err := resilience.Do(ctx, c.retry, func(ctx context.Context) error {
		return c.store.UpsertEnrichment(ctx, rec)
	})
	if err != nil {
		zap.L().Warn("enrich: cache write failed",
			zap.String("name", rec.Name),
			zap.String("country", rec.Country),
			zap.Error(err),
		)
	}
	return rec, err
}

// SweepExpired deletes unverified records older than the longest TTL
// tier. Verified records are never auto-deleted.
func (c *Cache) SweepExpired(ctx context.Context) (int64, error) {
	cutoff := c.now().Add(-c.ttl.Longest())
	return c.store.DeleteExpiredEnrichments(ctx, cutoff)
}
