package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightpath-abroad/counsel-engine/internal/model"
	"github.com/brightpath-abroad/counsel-engine/internal/scoring"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return &PostgresStore{pool: mock}, mock
}

func TestGetEnrichmentFoldsKeys(t *testing.T) {
	st, mock := newMockStore(t)
	now := time.Now()

	rows := pgxmock.NewRows([]string{
		"id", "name", "country", "payload", "confidence", "source",
		"verified", "created_at", "last_accessed_at", "access_count",
	}).AddRow(
		"id-1", "MIT", "USA", []byte(`{"tuition_estimate": 55000}`), 0.62, "anthropic",
		false, now, now, 3,
	)

	mock.ExpectQuery(`SELECT .+ FROM university_enrichment WHERE name_key = \$1 AND country_key = \$2`).
		WithArgs("mit", "usa").
		WillReturnRows(rows)

	rec, err := st.GetEnrichment(context.Background(), " MIT ", "Usa")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "id-1", rec.ID)
	assert.Equal(t, "MIT", rec.Name)
	assert.Equal(t, 55000.0, rec.Payload["tuition_estimate"])
	assert.Equal(t, scoring.Source("anthropic"), rec.Source)
	assert.Equal(t, 3, rec.AccessCount)
}

func TestGetEnrichmentNotFound(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT .+ FROM university_enrichment`).
		WithArgs("nowhere", "atlantis").
		WillReturnError(pgx.ErrNoRows)

	rec, err := st.GetEnrichment(context.Background(), "Nowhere", "Atlantis")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestUpsertEnrichment(t *testing.T) {
	st, mock := newMockStore(t)
	now := time.Now()

	rec := &model.EnrichmentRecord{
		ID: "id-1", Name: "MIT", Country: "USA",
		Payload:    map[string]any{"tuition_estimate": 55000.0},
		Confidence: 0.62, Source: scoring.SourceAnthropic,
		CreatedAt: now, LastAccessedAt: now, AccessCount: 1,
	}

	mock.ExpectExec(`INSERT INTO university_enrichment .+ ON CONFLICT \(name_key, country_key\) DO UPDATE`).
		WithArgs("id-1", "mit", "usa", "MIT", "USA", []byte(`{"tuition_estimate":55000}`),
			0.62, "anthropic", false, now, now, 1).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, st.UpsertEnrichment(context.Background(), rec))
}

func TestTouchEnrichment(t *testing.T) {
	st, mock := newMockStore(t)
	at := time.Now()

	mock.ExpectExec(`UPDATE university_enrichment\s+SET access_count = access_count \+ 1`).
		WithArgs("mit", "usa", at).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, st.TouchEnrichment(context.Background(), "MIT", "USA", at))
}

func TestDeleteExpiredEnrichments(t *testing.T) {
	st, mock := newMockStore(t)
	cutoff := time.Now().Add(-180 * 24 * time.Hour)

	mock.ExpectExec(`DELETE FROM university_enrichment\s+WHERE verified = false AND created_at < \$1`).
		WithArgs(cutoff).
		WillReturnResult(pgxmock.NewResult("DELETE", 7))

	n, err := st.DeleteExpiredEnrichments(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
}

func TestGetAnalysis(t *testing.T) {
	st, mock := newMockStore(t)
	now := time.Now()

	rows := pgxmock.NewRows([]string{
		"id", "user_id", "university_id", "payload", "is_placeholder", "created_at",
	}).AddRow("a-1", "u1", "uni1", []byte(`{"risk_level": "low"}`), true, now)

	mock.ExpectQuery(`SELECT .+ FROM user_analysis WHERE user_id = \$1 AND university_id = \$2`).
		WithArgs("u1", "uni1").
		WillReturnRows(rows)

	rec, err := st.GetAnalysis(context.Background(), "u1", "uni1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.True(t, rec.IsPlaceholder)
	assert.Equal(t, "low", rec.Payload["risk_level"])
}

func TestUpsertAnalysis(t *testing.T) {
	st, mock := newMockStore(t)
	now := time.Now()

	rec := &model.AnalysisRecord{
		ID: "a-1", UserID: "u1", UniversityID: "uni1",
		Payload:       map[string]any{"risk_level": "low"},
		IsPlaceholder: false, CreatedAt: now,
	}

	mock.ExpectExec(`INSERT INTO user_analysis .+ ON CONFLICT \(user_id, university_id\) DO UPDATE`).
		WithArgs("a-1", "u1", "uni1", []byte(`{"risk_level":"low"}`), false, now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, st.UpsertAnalysis(context.Background(), rec))
}

func TestDeleteAnalysesByUser(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectExec(`DELETE FROM user_analysis WHERE user_id = \$1`).
		WithArgs("u1").
		WillReturnResult(pgxmock.NewResult("DELETE", 4))

	n, err := st.DeleteAnalysesByUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}

func TestCounts(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT count\(\*\) FROM university_enrichment`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(12)))
	mock.ExpectQuery(`SELECT count\(\*\) FROM user_analysis`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(5)))

	enrichments, analyses, err := st.Counts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(12), enrichments)
	assert.Equal(t, int64(5), analyses)
}

func TestMigrate(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS university_enrichment`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, st.Migrate(context.Background()))
}
