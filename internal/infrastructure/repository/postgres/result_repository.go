package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/google/uuid"

	"github.com/avolkov/document-analyzer/internal/core/domain"
)

// ResultRepository is the postgres-backed result store, used when several
// analyzer instances need to share one store.
type ResultRepository struct {
	db *sql.DB
}

func NewResultRepository(db *sql.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *ResultRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026040201)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS analysis_results (
	id TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	category TEXT NOT NULL,
	classification_confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	fields JSONB NOT NULL DEFAULT '{}'::jsonb,
	processing_time DOUBLE PRECISION NOT NULL DEFAULT 0,
	errors JSONB NOT NULL DEFAULT '[]'::jsonb,
	stored_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_analysis_results_stored_at ON analysis_results(stored_at DESC);
CREATE INDEX IF NOT EXISTS idx_analysis_results_category ON analysis_results(category);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *ResultRepository) Put(ctx context.Context, result *domain.AnalysisResult) (string, error) {
	if result == nil {
		return "", fmt.Errorf("postgres: nil result")
	}
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	result.StoredAt = time.Now().UTC()

	fieldsJSON, err := json.Marshal(result.Fields)
	if err != nil {
		return "", fmt.Errorf("marshal fields: %w", err)
	}
	errorsJSON, err := json.Marshal(result.Errors)
	if err != nil {
		return "", fmt.Errorf("marshal errors: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO analysis_results (
	id, filename, category, classification_confidence, fields, processing_time, errors, stored_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO UPDATE SET
	filename = EXCLUDED.filename,
	category = EXCLUDED.category,
	classification_confidence = EXCLUDED.classification_confidence,
	fields = EXCLUDED.fields,
	processing_time = EXCLUDED.processing_time,
	errors = EXCLUDED.errors,
	stored_at = EXCLUDED.stored_at
`,
		result.ID, result.Filename, result.Category, result.ClassificationConfidence,
		fieldsJSON, result.ProcessingTime, errorsJSON, result.StoredAt,
	)
	if err != nil {
		return "", fmt.Errorf("upsert analysis result: %w", err)
	}
	return result.ID, nil
}

func (r *ResultRepository) Get(ctx context.Context, id string) (*domain.AnalysisResult, bool, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, filename, category, classification_confidence, fields, processing_time, errors, stored_at
FROM analysis_results
WHERE id = $1
`, id)

	var result domain.AnalysisResult
	var fieldsRaw, errorsRaw []byte

	err := row.Scan(
		&result.ID, &result.Filename, &result.Category, &result.ClassificationConfidence,
		&fieldsRaw, &result.ProcessingTime, &errorsRaw, &result.StoredAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("select analysis result: %w", err)
	}

	if err := json.Unmarshal(fieldsRaw, &result.Fields); err != nil {
		return nil, false, fmt.Errorf("decode fields for %s: %w", id, err)
	}
	if err := json.Unmarshal(errorsRaw, &result.Errors); err != nil {
		return nil, false, fmt.Errorf("decode errors for %s: %w", id, err)
	}
	return &result, true, nil
}

func (r *ResultRepository) List(ctx context.Context) ([]domain.ResultSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, filename, category, classification_confidence, stored_at, octet_length(fields::text)
FROM analysis_results
ORDER BY stored_at DESC
`)
	if err != nil {
		return nil, fmt.Errorf("list analysis results: %w", err)
	}
	defer rows.Close()

	summaries := []domain.ResultSummary{}
	for rows.Next() {
		var summary domain.ResultSummary
		if err := rows.Scan(&summary.ID, &summary.Filename, &summary.Category, &summary.Confidence, &summary.StoredAt, &summary.SizeBytes); err != nil {
			return nil, fmt.Errorf("scan analysis result row: %w", err)
		}
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate analysis result rows: %w", err)
	}
	return summaries, nil
}

func (r *ResultRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM analysis_results WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete analysis result: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

func (r *ResultRepository) Stats(ctx context.Context) (domain.StoreStats, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT COUNT(*), COALESCE(SUM(octet_length(fields::text)), 0)
FROM analysis_results
`)

	var stats domain.StoreStats
	if err := row.Scan(&stats.Count, &stats.TotalSizeBytes); err != nil {
		return domain.StoreStats{}, fmt.Errorf("select store stats: %w", err)
	}
	return stats, nil
}
