package repository

import (
	"context"
	"errors"
	"fmt"

	"facematch-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EventRepository handles database operations for events
type EventRepository struct {
	db *pgxpool.Pool
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

const eventColumns = `id, name, date, description, cover_url, owner_id,
	photo_count, video_count, guest_count, share_url, created_at, updated_at`

// Create creates a new event. The owner id is written to the legacy
// organizer_id and user_email columns as well so that readers of the old
// attributes keep working.
func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	query := `
		INSERT INTO events (id, name, date, description, cover_url, owner_id,
			organizer_id, user_email, photo_count, video_count, guest_count,
			share_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.db.Exec(ctx, query,
		event.ID, event.Name, event.Date, event.Description, event.CoverURL,
		event.OwnerID, event.PhotoCount, event.VideoCount, event.GuestCount,
		event.ShareURL, event.CreatedAt, event.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

// GetByID retrieves an event by its code
func (r *EventRepository) GetByID(ctx context.Context, id string) (*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	event, err := r.scanOne(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return event, nil
}

// GetByAnyOwnerAttribute retrieves every event whose canonical owner_id or
// one of the legacy owner columns matches the given value. Compatibility
// shim for records written before owner_id existed; results are returned
// de-duplicated by event id.
func (r *EventRepository) GetByAnyOwnerAttribute(ctx context.Context, owner string) ([]*models.Event, error) {
	query := `
		SELECT DISTINCT ON (id) ` + eventColumns + `
		FROM events
		WHERE owner_id = $1 OR organizer_id = $1 OR user_email = $1
		ORDER BY id, created_at DESC
	`
	rows, err := r.db.Query(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to get events by owner: %w", err)
	}
	defer rows.Close()

	var events []*models.Event
	for rows.Next() {
		event, err := r.scanOne(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}
	return events, nil
}

// Delete deletes an event by ID
func (r *EventRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateCoverURL sets the cover image URL for an event
func (r *EventRepository) UpdateCoverURL(ctx context.Context, id, coverURL string) error {
	query := `UPDATE events SET cover_url = $1, updated_at = now() WHERE id = $2`
	result, err := r.db.Exec(ctx, query, coverURL, id)
	if err != nil {
		return fmt.Errorf("failed to update cover url: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AddPhotoCount increments the photo counter for an event
func (r *EventRepository) AddPhotoCount(ctx context.Context, id string, n int) error {
	query := `UPDATE events SET photo_count = photo_count + $1, updated_at = now() WHERE id = $2`
	result, err := r.db.Exec(ctx, query, n, id)
	if err != nil {
		return fmt.Errorf("failed to update photo count: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AddGuestCount increments the guest counter for an event
func (r *EventRepository) AddGuestCount(ctx context.Context, id string, n int) error {
	query := `UPDATE events SET guest_count = guest_count + $1, updated_at = now() WHERE id = $2`
	result, err := r.db.Exec(ctx, query, n, id)
	if err != nil {
		return fmt.Errorf("failed to update guest count: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *EventRepository) scanOne(row pgx.Row) (*models.Event, error) {
	var event models.Event
	err := row.Scan(
		&event.ID, &event.Name, &event.Date, &event.Description,
		&event.CoverURL, &event.OwnerID, &event.PhotoCount, &event.VideoCount,
		&event.GuestCount, &event.ShareURL, &event.CreatedAt, &event.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &event, nil
}
