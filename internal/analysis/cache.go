// Package analysis implements the per-user analysis cache and the batch
// analyzer that fills it from model calls.
//
// Analyses are personal: a cached row belongs to one (user, university)
// pair and is invalidated wholesale when the user's profile changes.
// Rows generated before the user had a profile are marked placeholders
// and stop being served the moment a profile exists.
package analysis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/brightpath-abroad/counsel-engine/internal/config"
	"github.com/brightpath-abroad/counsel-engine/internal/model"
	"github.com/brightpath-abroad/counsel-engine/internal/resilience"
	"github.com/brightpath-abroad/counsel-engine/internal/store"
)

// Cache is the per-user analysis cache.
type Cache struct {
	store store.Store
	ttl   time.Duration
	retry resilience.Policy
	now   func() time.Time
}

// NewCache creates an analysis cache over st.
func NewCache(st store.Store, cfg config.AnalysisConfig) *Cache {
	days := cfg.TTLDays
	if days <= 0 {
		days = 7
	}
	return &Cache{
		store: st,
		ttl:   time.Duration(days) * 24 * time.Hour,
		retry: resilience.Policy{Attempts: 2, BaseDelay: 200 * time.Millisecond},
		now:   time.Now,
	}
}

// WithNow fixes the clock for testing.
func (c *Cache) WithNow(now func() time.Time) *Cache {
	c.now = now
	return c
}

// Lookup fetches a cached analysis for (userID, universityID). Stale
// rows, incomplete rows, store read errors, and placeholder rows for a
// user who now has a profile all come back as a miss.
func (c *Cache) Lookup(ctx context.Context, userID, universityID string, userHasProfile bool) (*model.AnalysisRecord, bool) {
	rec, err := c.store.GetAnalysis(ctx, userID, universityID)
	if err != nil {
		zap.L().Warn("analysis: cache read failed, treating as miss",
			zap.String("user_id", userID),
			zap.String("university_id", universityID),
			zap.Error(err),
		)
		return nil, false
	}
	if rec == nil {
		return nil, false
	}
	if c.now().Sub(rec.CreatedAt) > c.ttl {
		return nil, false
	}
	if rec.IsPlaceholder && userHasProfile {
		// The user gained a profile after this row was generated; a
		// personalised analysis supersedes it.
		return nil, false
	}
	if !Complete(rec.Payload) {
		zap.L().Warn("analysis: cached row incomplete, regenerating",
			zap.String("user_id", userID),
			zap.String("university_id", universityID),
		)
		return nil, false
	}
	return rec, true
}

// Store writes an analysis through to the store, filling any missing
// required section from the neutral default first. The write fully
// replaces any prior row for the pair. A failed write is logged and
// reported but the returned record is valid either way.
func (c *Cache) Store(ctx context.Context, userID, universityID string, payload map[string]any, placeholder bool) (*model.AnalysisRecord, error) {
	rec := &model.AnalysisRecord{
		ID:            uuid.New().String(),
		UserID:        userID,
		UniversityID:  universityID,
		Payload:       WithDefaults(payload),
		IsPlaceholder: placeholder,
		CreatedAt:     c.now(),
	}

	err := resilience.Do(ctx, c.retry, func(ctx context.Context) error {
		return c.store.UpsertAnalysis(ctx, rec)
	})
	if err != nil {
		zap.L().Warn("analysis: cache write failed",
			zap.String("user_id", userID),
			zap.String("university_id", universityID),
			zap.Error(err),
		)
	}
	return rec, err
}

// InvalidateAll deletes every cached analysis for a user. Called after a
// profile change, since every cached row was derived from the old
// profile.
func (c *Cache) InvalidateAll(ctx context.Context, userID string) (int64, error) {
	n, err := c.store.DeleteAnalysesByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	zap.L().Info("analysis: invalidated cached analyses",
		zap.String("user_id", userID),
		zap.Int64("deleted", n),
	)
	return n, nil
}
