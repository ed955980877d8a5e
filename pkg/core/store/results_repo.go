package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"portfolio_extraction/pkg/models"
)

// ResultsRepo stores extraction results keyed by document id.
type ResultsRepo struct{}

// NewResultsRepo creates a new repository instance.
func NewResultsRepo() *ResultsRepo {
	return &ResultsRepo{}
}

// Save persists an extraction result. Re-running a document upserts its row.
//
// Schema assumption:
//
//	CREATE TABLE IF NOT EXISTS extraction_results (
//	  document_id TEXT PRIMARY KEY,
//	  record_count INT,
//	  total_value NUMERIC,
//	  accuracy DOUBLE PRECISION,
//	  result_json JSONB,
//	  updated_at TIMESTAMPTZ
//	);
func (r *ResultsRepo) Save(ctx context.Context, result *models.PortfolioResult) error {
	pool := GetPool()
	if pool == nil {
		return fmt.Errorf("database pool not initialized")
	}

	jsonData, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	query := `
		INSERT INTO extraction_results (document_id, record_count, total_value, accuracy, result_json, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (document_id)
		DO UPDATE SET
			record_count = EXCLUDED.record_count,
			total_value = EXCLUDED.total_value,
			accuracy = EXCLUDED.accuracy,
			result_json = EXCLUDED.result_json,
			updated_at = EXCLUDED.updated_at;
	`

	_, err = pool.Exec(ctx, query,
		result.DocumentID, len(result.Records), result.TotalValue.String(), result.Accuracy, jsonData, time.Now())
	if err != nil {
		return fmt.Errorf("failed to save result: %w", err)
	}

	return nil
}

// Load retrieves a stored result by document id. Returns nil without error
// when the document has not been processed.
func (r *ResultsRepo) Load(ctx context.Context, documentID string) (*models.PortfolioResult, error) {
	pool := GetPool()
	if pool == nil {
		return nil, fmt.Errorf("database pool not initialized")
	}

	var jsonData []byte
	query := `SELECT result_json FROM extraction_results WHERE document_id = $1;`
	err := pool.QueryRow(ctx, query, documentID).Scan(&jsonData)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load result: %w", err)
	}

	var result models.PortfolioResult
	if err := json.Unmarshal(jsonData, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stored result: %w", err)
	}
	return &result, nil
}

// Recent lists the most recently updated results, newest first.
func (r *ResultsRepo) Recent(ctx context.Context, limit int) ([]models.PortfolioResult, error) {
	pool := GetPool()
	if pool == nil {
		return nil, fmt.Errorf("database pool not initialized")
	}
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT result_json FROM extraction_results ORDER BY updated_at DESC LIMIT $1;`
	rows, err := pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	defer rows.Close()

	var out []models.PortfolioResult
	for rows.Next() {
		var jsonData []byte
		if err := rows.Scan(&jsonData); err != nil {
			return nil, fmt.Errorf("failed to scan result row: %w", err)
		}
		var result models.PortfolioResult
		if err := json.Unmarshal(jsonData, &result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal stored result: %w", err)
		}
		out = append(out, result)
	}
	return out, rows.Err()
}
