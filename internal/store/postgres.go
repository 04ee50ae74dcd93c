package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/brightpath-abroad/counsel-engine/internal/model"
	"github.com/brightpath-abroad/counsel-engine/internal/normalize"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies
// it for unit tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store on pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists the hot-path queries prepared on each new
// connection.
var preparedStatements = map[string]string{
	"get_enrichment":   sqlGetEnrichment,
	"touch_enrichment": sqlTouchEnrichment,
	"get_analysis":     sqlGetAnalysis,
}

const (
	sqlGetEnrichment = `SELECT id, name, country, payload, confidence, source, verified, created_at, last_accessed_at, access_count
		FROM university_enrichment WHERE name_key = $1 AND country_key = $2`

	sqlUpsertEnrichment = `INSERT INTO university_enrichment
		(id, name_key, country_key, name, country, payload, confidence, source, verified, created_at, last_accessed_at, access_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (name_key, country_key) DO UPDATE SET
			name = EXCLUDED.name,
			country = EXCLUDED.country,
			payload = EXCLUDED.payload,
			confidence = EXCLUDED.confidence,
			source = EXCLUDED.source,
			verified = EXCLUDED.verified,
			created_at = EXCLUDED.created_at,
			last_accessed_at = EXCLUDED.last_accessed_at,
			access_count = EXCLUDED.access_count`

	sqlTouchEnrichment = `UPDATE university_enrichment
		SET access_count = access_count + 1, last_accessed_at = $3
		WHERE name_key = $1 AND country_key = $2`

	sqlDeleteExpiredEnrichments = `DELETE FROM university_enrichment
		WHERE verified = false AND created_at < $1`

	sqlGetAnalysis = `SELECT id, user_id, university_id, payload, is_placeholder, created_at
		FROM user_analysis WHERE user_id = $1 AND university_id = $2`

	sqlUpsertAnalysis = `INSERT INTO user_analysis
		(id, user_id, university_id, payload, is_placeholder, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, university_id) DO UPDATE SET
			payload = EXCLUDED.payload,
			is_placeholder = EXCLUDED.is_placeholder,
			created_at = EXCLUDED.created_at`

	sqlDeleteAnalysesByUser = `DELETE FROM user_analysis WHERE user_id = $1`
)

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS university_enrichment (
	id               TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name_key         TEXT NOT NULL,
	country_key      TEXT NOT NULL,
	name             TEXT NOT NULL,
	country          TEXT NOT NULL,
	payload          JSONB NOT NULL,
	confidence       DOUBLE PRECISION NOT NULL DEFAULT 0,
	source           TEXT NOT NULL,
	verified         BOOLEAN NOT NULL DEFAULT false,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	last_accessed_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	access_count     INTEGER NOT NULL DEFAULT 1,
	UNIQUE (name_key, country_key)
);

CREATE INDEX IF NOT EXISTS idx_enrichment_expiry ON university_enrichment(verified, created_at);

CREATE TABLE IF NOT EXISTS user_analysis (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	user_id        TEXT NOT NULL,
	university_id  TEXT NOT NULL,
	payload        JSONB NOT NULL,
	is_placeholder BOOLEAN NOT NULL DEFAULT false,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (user_id, university_id)
);

CREATE INDEX IF NOT EXISTS idx_user_analysis_user ON user_analysis(user_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) GetEnrichment(ctx context.Context, name, country string) (*model.EnrichmentRecord, error) {
	var rec model.EnrichmentRecord
	var payloadJSON []byte

	err := s.pool.QueryRow(ctx, sqlGetEnrichment, normalize.Fold(name), normalize.Fold(country)).Scan(
		&rec.ID, &rec.Name, &rec.Country, &payloadJSON, &rec.Confidence,
		&rec.Source, &rec.Verified, &rec.CreatedAt, &rec.LastAccessedAt, &rec.AccessCount,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get enrichment")
	}

	if err := json.Unmarshal(payloadJSON, &rec.Payload); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal enrichment payload")
	}
	return &rec, nil
}

func (s *PostgresStore) UpsertEnrichment(ctx context.Context, rec *model.EnrichmentRecord) error {
	payloadJSON, err := json.Marshal(rec.Payload)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal enrichment payload")
	}

	_, err = s.pool.Exec(ctx, sqlUpsertEnrichment,
		rec.ID, normalize.Fold(rec.Name), normalize.Fold(rec.Country),
		rec.Name, rec.Country, payloadJSON, rec.Confidence, string(rec.Source),
		rec.Verified, rec.CreatedAt, rec.LastAccessedAt, rec.AccessCount,
	)
	return eris.Wrap(err, "postgres: upsert enrichment")
}

func (s *PostgresStore) TouchEnrichment(ctx context.Context, name, country string, at time.Time) error {
	_, err := s.pool.Exec(ctx, sqlTouchEnrichment, normalize.Fold(name), normalize.Fold(country), at)
	return eris.Wrap(err, "postgres: touch enrichment")
}

func (s *PostgresStore) DeleteExpiredEnrichments(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, sqlDeleteExpiredEnrichments, cutoff)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete expired enrichments")
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) GetAnalysis(ctx context.Context, userID, universityID string) (*model.AnalysisRecord, error) {
	var rec model.AnalysisRecord
	var payloadJSON []byte

	err := s.pool.QueryRow(ctx, sqlGetAnalysis, userID, universityID).Scan(
		&rec.ID, &rec.UserID, &rec.UniversityID, &payloadJSON, &rec.IsPlaceholder, &rec.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get analysis")
	}

	if err := json.Unmarshal(payloadJSON, &rec.Payload); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal analysis payload")
	}
	return &rec, nil
}

func (s *PostgresStore) UpsertAnalysis(ctx context.Context, rec *model.AnalysisRecord) error {
	payloadJSON, err := json.Marshal(rec.Payload)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal analysis payload")
	}

	_, err = s.pool.Exec(ctx, sqlUpsertAnalysis,
		rec.ID, rec.UserID, rec.UniversityID, payloadJSON, rec.IsPlaceholder, rec.CreatedAt,
	)
	return eris.Wrap(err, "postgres: upsert analysis")
}

func (s *PostgresStore) DeleteAnalysesByUser(ctx context.Context, userID string) (int64, error) {
	tag, err := s.pool.Exec(ctx, sqlDeleteAnalysesByUser, userID)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete analyses by user")
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) Counts(ctx context.Context) (int64, int64, error) {
	var enrichments, analyses int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM university_enrichment`).Scan(&enrichments); err != nil {
		return 0, 0, eris.Wrap(err, "postgres: count enrichments")
	}
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM user_analysis`).Scan(&analyses); err != nil {
		return 0, 0, eris.Wrap(err, "postgres: count analyses")
	}
	return enrichments, analyses, nil
}
