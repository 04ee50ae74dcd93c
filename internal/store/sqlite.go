package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/brightpath-abroad/counsel-engine/internal/model"
	"github.com/brightpath-abroad/counsel-engine/internal/normalize"
)

// SQLiteStore implements Store using modernc.org/sqlite. It exists for
// local development and tests; semantics match the Postgres driver.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path in WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS university_enrichment (
	id               TEXT PRIMARY KEY,
	name_key         TEXT NOT NULL,
	country_key      TEXT NOT NULL,
	name             TEXT NOT NULL,
	country          TEXT NOT NULL,
	payload          TEXT NOT NULL,
	confidence       REAL NOT NULL DEFAULT 0,
	source           TEXT NOT NULL,
	verified         INTEGER NOT NULL DEFAULT 0,
	created_at       DATETIME NOT NULL,
	last_accessed_at DATETIME NOT NULL,
	access_count     INTEGER NOT NULL DEFAULT 1,
	UNIQUE (name_key, country_key)
);

CREATE INDEX IF NOT EXISTS idx_enrichment_expiry ON university_enrichment(verified, created_at);

CREATE TABLE IF NOT EXISTS user_analysis (
	id             TEXT PRIMARY KEY,
	user_id        TEXT NOT NULL,
	university_id  TEXT NOT NULL,
	payload        TEXT NOT NULL,
	is_placeholder INTEGER NOT NULL DEFAULT 0,
	created_at     DATETIME NOT NULL,
	UNIQUE (user_id, university_id)
);

CREATE INDEX IF NOT EXISTS idx_user_analysis_user ON user_analysis(user_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetEnrichment(ctx context.Context, name, country string) (*model.EnrichmentRecord, error) {
	var rec model.EnrichmentRecord
	var payloadJSON string

	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, country, payload, confidence, source, verified, created_at, last_accessed_at, access_count
		 FROM university_enrichment WHERE name_key = ? AND country_key = ?`,
		normalize.Fold(name), normalize.Fold(country),
	).Scan(
		&rec.ID, &rec.Name, &rec.Country, &payloadJSON, &rec.Confidence,
		&rec.Source, &rec.Verified, &rec.CreatedAt, &rec.LastAccessedAt, &rec.AccessCount,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get enrichment")
	}

	if err := json.Unmarshal([]byte(payloadJSON), &rec.Payload); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal enrichment payload")
	}
	return &rec, nil
}

func (s *SQLiteStore) UpsertEnrichment(ctx context.Context, rec *model.EnrichmentRecord) error {
	payloadJSON, err := json.Marshal(rec.Payload)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal enrichment payload")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO university_enrichment
		 (id, name_key, country_key, name, country, payload, confidence, source, verified, created_at, last_accessed_at, access_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (name_key, country_key) DO UPDATE SET
			name = excluded.name,
			country = excluded.country,
			payload = excluded.payload,
			confidence = excluded.confidence,
			source = excluded.source,
			verified = excluded.verified,
			created_at = excluded.created_at,
			last_accessed_at = excluded.last_accessed_at,
			access_count = excluded.access_count`,
		rec.ID, normalize.Fold(rec.Name), normalize.Fold(rec.Country),
		rec.Name, rec.Country, string(payloadJSON), rec.Confidence, string(rec.Source),
		rec.Verified, rec.CreatedAt, rec.LastAccessedAt, rec.AccessCount,
	)
	return eris.Wrap(err, "sqlite: upsert enrichment")
}

func (s *SQLiteStore) TouchEnrichment(ctx context.Context, name, country string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE university_enrichment
		 SET access_count = access_count + 1, last_accessed_at = ?
		 WHERE name_key = ? AND country_key = ?`,
		at, normalize.Fold(name), normalize.Fold(country),
	)
	return eris.Wrap(err, "sqlite: touch enrichment")
}

func (s *SQLiteStore) DeleteExpiredEnrichments(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM university_enrichment WHERE verified = 0 AND created_at < ?`, cutoff)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired enrichments")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: rows affected")
	}
	return n, nil
}

func (s *SQLiteStore) GetAnalysis(ctx context.Context, userID, universityID string) (*model.AnalysisRecord, error) {
	var rec model.AnalysisRecord
	var payloadJSON string

	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, university_id, payload, is_placeholder, created_at
		 FROM user_analysis WHERE user_id = ? AND university_id = ?`,
		userID, universityID,
	).Scan(&rec.ID, &rec.UserID, &rec.UniversityID, &payloadJSON, &rec.IsPlaceholder, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get analysis")
	}

	if err := json.Unmarshal([]byte(payloadJSON), &rec.Payload); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal analysis payload")
	}
	return &rec, nil
}

func (s *SQLiteStore) UpsertAnalysis(ctx context.Context, rec *model.AnalysisRecord) error {
	payloadJSON, err := json.Marshal(rec.Payload)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal analysis payload")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO user_analysis (id, user_id, university_id, payload, is_placeholder, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, university_id) DO UPDATE SET
			payload = excluded.payload,
			is_placeholder = excluded.is_placeholder,
			created_at = excluded.created_at`,
		rec.ID, rec.UserID, rec.UniversityID, string(payloadJSON), rec.IsPlaceholder, rec.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: upsert analysis")
}

func (s *SQLiteStore) DeleteAnalysesByUser(ctx context.Context, userID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM user_analysis WHERE user_id = ?`, userID)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete analyses by user")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: rows affected")
	}
	return n, nil
}

func (s *SQLiteStore) Counts(ctx context.Context) (int64, int64, error) {
	var enrichments, analyses int64
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM university_enrichment`).Scan(&enrichments); err != nil {
		return 0, 0, eris.Wrap(err, "sqlite: count enrichments")
	}
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM user_analysis`).Scan(&analyses); err != nil {
		return 0, 0, eris.Wrap(err, "sqlite: count analyses")
	}
	return enrichments, analyses, nil
}
