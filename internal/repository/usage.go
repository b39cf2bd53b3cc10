package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dieai/dieai/internal/model"
)

// UsageRepository provides database access for usage log records.
type UsageRepository struct {
	repo *Repository
}

// NewUsageRepository creates a new UsageRepository.
func NewUsageRepository(repo *Repository) *UsageRepository {
	return &UsageRepository{repo: repo}
}

// BulkInsert inserts multiple usage records with idempotency via ON CONFLICT DO NOTHING.
// Records are queued by the usage pipeline and flushed in batches, so replays
// after a consumer crash must not double-count.
func (r *UsageRepository) BulkInsert(ctx context.Context, records []*model.UsageRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}

	query := `
		INSERT INTO usage_log (
			id, event_id, api_key_id, user_id, endpoint,
			prompt_tokens, completion_tokens, status_code, duration_ms,
			requested_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		ON CONFLICT (event_id) DO NOTHING
	`

	for _, rec := range records {
		batch.Queue(query,
			rec.ID,
			rec.EventID,
			rec.APIKeyID,
			rec.UserID,
			rec.Endpoint,
			rec.PromptTokens,
			rec.CompletionTokens,
			rec.StatusCode,
			rec.DurationMS,
			rec.RequestedAt,
		)
	}

	results := r.repo.pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < len(records); i++ {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("batch insert usage record %d: %w", i, err)
		}
	}

	return nil
}

// GetKeyUsage aggregates usage for a single API key since the given time.
func (r *UsageRepository) GetKeyUsage(ctx context.Context, apiKeyID string, since time.Time) (*model.UsageWindow, error) {
	query := `
		SELECT COUNT(*),
			   COALESCE(SUM(prompt_tokens + completion_tokens), 0)
		FROM usage_log
		WHERE api_key_id = $1 AND requested_at >= $2
	`

	window := &model.UsageWindow{}
	err := r.repo.pool.QueryRow(ctx, query, apiKeyID, since).Scan(
		&window.Requests,
		&window.TotalTokens,
	)
	if err != nil {
		return nil, fmt.Errorf("query key usage: %w", err)
	}

	byEndpoint, err := r.endpointBreakdown(ctx, apiKeyID, since)
	if err != nil {
		return nil, err
	}
	window.ByEndpoint = byEndpoint

	return window, nil
}

// endpointBreakdown aggregates per-endpoint request and token counts.
func (r *UsageRepository) endpointBreakdown(ctx context.Context, apiKeyID string, since time.Time) ([]model.EndpointUsage, error) {
	query := `
		SELECT endpoint,
			   COUNT(*),
			   COALESCE(SUM(prompt_tokens + completion_tokens), 0)
		FROM usage_log
		WHERE api_key_id = $1 AND requested_at >= $2
		GROUP BY endpoint
		ORDER BY COUNT(*) DESC
	`

	rows, err := r.repo.pool.Query(ctx, query, apiKeyID, since)
	if err != nil {
		return nil, fmt.Errorf("query endpoint breakdown: %w", err)
	}
	defer rows.Close()

	var breakdown []model.EndpointUsage
	for rows.Next() {
		var eu model.EndpointUsage
		if err := rows.Scan(&eu.Endpoint, &eu.Requests, &eu.TotalTokens); err != nil {
			return nil, fmt.Errorf("scan endpoint usage: %w", err)
		}
		breakdown = append(breakdown, eu)
	}

	return breakdown, rows.Err()
}

// GetUserUsage aggregates usage across all of a user's keys since the given time.
// Powers the dashboard usage summary.
func (r *UsageRepository) GetUserUsage(ctx context.Context, userID string, since time.Time) (*model.UsageWindow, error) {
	query := `
		SELECT COUNT(*),
			   COALESCE(SUM(prompt_tokens + completion_tokens), 0)
		FROM usage_log
		WHERE user_id = $1 AND requested_at >= $2
	`

	window := &model.UsageWindow{}
	err := r.repo.pool.QueryRow(ctx, query, userID, since).Scan(
		&window.Requests,
		&window.TotalTokens,
	)
	if err != nil {
		return nil, fmt.Errorf("query user usage: %w", err)
	}

	return window, nil
}

// ListRecentByKey returns the most recent usage records for a key, newest first.
func (r *UsageRepository) ListRecentByKey(ctx context.Context, apiKeyID string, limit int) ([]*model.UsageRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	query := `
		SELECT id, event_id, api_key_id, user_id, endpoint,
			   prompt_tokens, completion_tokens, status_code, duration_ms,
			   requested_at, created_at
		FROM usage_log
		WHERE api_key_id = $1
		ORDER BY requested_at DESC
		LIMIT $2
	`

	rows, err := r.repo.pool.Query(ctx, query, apiKeyID, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent usage: %w", err)
	}
	defer rows.Close()

	var records []*model.UsageRecord
	for rows.Next() {
		var rec model.UsageRecord
		err := rows.Scan(
			&rec.ID,
			&rec.EventID,
			&rec.APIKeyID,
			&rec.UserID,
			&rec.Endpoint,
			&rec.PromptTokens,
			&rec.CompletionTokens,
			&rec.StatusCode,
			&rec.DurationMS,
			&rec.RequestedAt,
			&rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan usage record: %w", err)
		}
		records = append(records, &rec)
	}

	return records, rows.Err()
}
