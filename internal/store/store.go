// Package store provides the persistence layer behind the enrichment and
// analysis caches. Two drivers implement the same interface: Postgres for
// production and SQLite for local development.
package store

import (
	"context"
	"time"

	"github.com/brightpath-abroad/counsel-engine/internal/model"
)

// Store is the persistence interface the cache layers depend on. All
// writes are full-replace upserts keyed by the record's identity; there
// is no field-level merge and no locking — last write wins.
type Store interface {
	// Enrichment records, keyed by normalized (name, country).
	GetEnrichment(ctx context.Context, name, country string) (*model.EnrichmentRecord, error)
	UpsertEnrichment(ctx context.Context, rec *model.EnrichmentRecord) error
	// TouchEnrichment bumps access stats for a cache hit.
	TouchEnrichment(ctx context.Context, name, country string, at time.Time) error
	// DeleteExpiredEnrichments removes unverified rows created before
	// cutoff. Verified rows are never swept.
	DeleteExpiredEnrichments(ctx context.Context, cutoff time.Time) (int64, error)

	// Analysis records, keyed by (user, university).
	GetAnalysis(ctx context.Context, userID, universityID string) (*model.AnalysisRecord, error)
	UpsertAnalysis(ctx context.Context, rec *model.AnalysisRecord) error
	DeleteAnalysesByUser(ctx context.Context, userID string) (int64, error)

	// Counts returns row totals for operational status reporting.
	Counts(ctx context.Context) (enrichments, analyses int64, err error)

	// Lifecycle.
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
