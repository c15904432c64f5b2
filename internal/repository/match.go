package repository

import (
	"context"
	"errors"
	"fmt"

	"facematch-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MatchRepository handles database operations for attendee match records
type MatchRepository struct {
	db *pgxpool.Pool
}

// NewMatchRepository creates a new match repository
func NewMatchRepository(db *pgxpool.Pool) *MatchRepository {
	return &MatchRepository{db: db}
}

// Upsert writes a match record, overwriting any existing record for the
// same (user, event) pair. Last write wins.
func (r *MatchRepository) Upsert(ctx context.Context, record *models.MatchRecord) error {
	query := `
		INSERT INTO match_records (user_id, event_id, selfie_url, matched_urls, uploaded_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, event_id)
		DO UPDATE SET selfie_url = EXCLUDED.selfie_url,
			matched_urls = EXCLUDED.matched_urls,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.Exec(ctx, query,
		record.UserID, record.EventID, record.SelfieURL, record.MatchedURLs,
		record.UploadedAt, record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert match record: %w", err)
	}
	return nil
}

// GetByUserAndEvent retrieves the match record for a (user, event) pair
func (r *MatchRepository) GetByUserAndEvent(ctx context.Context, userID, eventID string) (*models.MatchRecord, error) {
	query := `
		SELECT user_id, event_id, selfie_url, matched_urls, uploaded_at, updated_at
		FROM match_records
		WHERE user_id = $1 AND event_id = $2
	`
	var record models.MatchRecord
	err := r.db.QueryRow(ctx, query, userID, eventID).Scan(
		&record.UserID, &record.EventID, &record.SelfieURL,
		&record.MatchedURLs, &record.UploadedAt, &record.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get match record: %w", err)
	}
	return &record, nil
}

// GetAllByUser retrieves every per-event match record for a user, newest
// first. The reserved default-selfie record is excluded.
func (r *MatchRepository) GetAllByUser(ctx context.Context, userID string) ([]*models.MatchRecord, error) {
	query := `
		SELECT user_id, event_id, selfie_url, matched_urls, uploaded_at, updated_at
		FROM match_records
		WHERE user_id = $1 AND event_id <> $2
		ORDER BY updated_at DESC
	`
	rows, err := r.db.Query(ctx, query, userID, models.DefaultSelfieEventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get match records: %w", err)
	}
	defer rows.Close()

	var records []*models.MatchRecord
	for rows.Next() {
		var record models.MatchRecord
		err := rows.Scan(
			&record.UserID, &record.EventID, &record.SelfieURL,
			&record.MatchedURLs, &record.UploadedAt, &record.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match record: %w", err)
		}
		records = append(records, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating match records: %w", err)
	}
	return records, nil
}

// GetStatistics computes aggregate statistics over a user's match records
func (r *MatchRepository) GetStatistics(ctx context.Context, userID string) (*models.MatchStatistics, error) {
	records, err := r.GetAllByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	stats := &models.MatchStatistics{}
	for _, record := range records {
		stats.EventCount++
		stats.PhotoCount += len(record.MatchedURLs)
		uploaded := record.UploadedAt
		if stats.FirstDate == nil || uploaded.Before(*stats.FirstDate) {
			t := uploaded
			stats.FirstDate = &t
		}
		if stats.LastDate == nil || uploaded.After(*stats.LastDate) {
			t := uploaded
			stats.LastDate = &t
		}
	}
	return stats, nil
}

// GetDefaultSelfie returns the user's default selfie URL, if one is set
func (r *MatchRepository) GetDefaultSelfie(ctx context.Context, userID string) (string, error) {
	record, err := r.GetByUserAndEvent(ctx, userID, models.DefaultSelfieEventID)
	if err != nil {
		return "", err
	}
	return record.SelfieURL, nil
}

// PropagateSelfieUpdate updates the selfie reference on every existing
// record for the user, the reserved default-selfie record included.
func (r *MatchRepository) PropagateSelfieUpdate(ctx context.Context, userID, selfieURL string) error {
	query := `UPDATE match_records SET selfie_url = $1, updated_at = now() WHERE user_id = $2`
	_, err := r.db.Exec(ctx, query, selfieURL, userID)
	if err != nil {
		return fmt.Errorf("failed to propagate selfie update: %w", err)
	}
	return nil
}
