// internal/adapter/storage/explanation_archive.go

package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"trendlens/internal/domain/trend"
)

const archiveSchema = `
	CREATE TABLE IF NOT EXISTS explanations (
		id             UUID PRIMARY KEY,
		cache_key      TEXT NOT NULL,
		keywords       TEXT[] NOT NULL,
		explanation    TEXT NOT NULL,
		peak_summaries JSONB NOT NULL DEFAULT '[]',
		generated_at   TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS explanations_cache_key_idx
		ON explanations (cache_key, generated_at DESC);
`

// ExplanationArchive keeps every generated explanation in Postgres. The
// cache only holds the latest one per keyword set.
type ExplanationArchive struct {
	db *pgxpool.Pool
}

// NewExplanationArchive creates a new explanation archive
func NewExplanationArchive(db *pgxpool.Pool) *ExplanationArchive {
	return &ExplanationArchive{
		db: db,
	}
}

// EnsureSchema creates the archive table if needed
func (s *ExplanationArchive) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, archiveSchema); err != nil {
		return fmt.Errorf("error creating explanations schema: %w", err)
	}
	return nil
}

// SaveExplanation appends an explanation to the archive
func (s *ExplanationArchive) SaveExplanation(ctx context.Context, e trend.ArchivedExplanation) error {
	query := `
		INSERT INTO explanations (
			id, cache_key, keywords, explanation, peak_summaries, generated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6
		)
		ON CONFLICT (id) DO NOTHING
	`

	if e.GeneratedAt.IsZero() {
		e.GeneratedAt = time.Now()
	}

	summariesJSON, err := json.Marshal(e.PeakSummaries)
	if err != nil {
		return fmt.Errorf("error marshaling peak summaries: %w", err)
	}

	_, err = s.db.Exec(
		ctx,
		query,
		e.ID,
		e.CacheKey,
		e.Keywords,
		e.Explanation,
		summariesJSON,
		e.GeneratedAt,
	)
	if err != nil {
		return fmt.Errorf("error executing query: %w", err)
	}

	return nil
}

// History returns the newest explanations stored under a cache key
func (s *ExplanationArchive) History(ctx context.Context, cacheKey string, limit int) ([]trend.ArchivedExplanation, error) {
	query := `
		SELECT id, cache_key, keywords, explanation, peak_summaries, generated_at
		FROM explanations
		WHERE cache_key = $1
		ORDER BY generated_at DESC
		LIMIT $2
	`

	rows, err := s.db.Query(ctx, query, cacheKey, limit)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	history := []trend.ArchivedExplanation{}
	for rows.Next() {
		var e trend.ArchivedExplanation
		var summariesJSON []byte

		if err := rows.Scan(
			&e.ID,
			&e.CacheKey,
			&e.Keywords,
			&e.Explanation,
			&summariesJSON,
			&e.GeneratedAt,
		); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}

		if len(summariesJSON) > 0 {
			if err := json.Unmarshal(summariesJSON, &e.PeakSummaries); err != nil {
				return nil, fmt.Errorf("error unmarshaling peak summaries: %w", err)
			}
		}

		history = append(history, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return history, nil
}
