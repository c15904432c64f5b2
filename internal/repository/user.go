package repository

import (
	"context"
	"errors"
	"fmt"

	"facematch-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository handles database operations for users
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// Upsert inserts or updates a user keyed by email. The created-events
// list is merged as a set union so concurrent writers cannot drop each
// other's entries; role and profile fields are last-write-wins.
func (r *UserRepository) Upsert(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, name, mobile, role, created_events, push_token, created_at, updated_at)
		VALUES ($1, $2, $3, $4, COALESCE($5, '{}'), $6, $7, $8)
		ON CONFLICT (id)
		DO UPDATE SET
			name = CASE WHEN EXCLUDED.name <> '' THEN EXCLUDED.name ELSE users.name END,
			mobile = CASE WHEN EXCLUDED.mobile <> '' THEN EXCLUDED.mobile ELSE users.mobile END,
			role = CASE WHEN EXCLUDED.role <> '' THEN EXCLUDED.role ELSE users.role END,
			created_events = (
				SELECT COALESCE(array_agg(DISTINCT e), '{}')
				FROM unnest(COALESCE(users.created_events, '{}') || COALESCE(EXCLUDED.created_events, '{}')) AS e
			),
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.Exec(ctx, query,
		user.ID, user.Name, user.Mobile, string(user.Role),
		user.CreatedEvents, user.PushToken, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by email
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `
		SELECT id, name, mobile, role, created_events, push_token, created_at, updated_at
		FROM users
		WHERE id = $1
	`
	var user models.User
	var role string
	err := r.db.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.Name, &user.Mobile, &role,
		&user.CreatedEvents, &user.PushToken, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	user.Role = models.Role(role)
	return &user, nil
}

// AddCreatedEvent appends an event id to the user's created-events list,
// skipping duplicates
func (r *UserRepository) AddCreatedEvent(ctx context.Context, userID, eventID string) error {
	query := `
		UPDATE users
		SET created_events = array_append(created_events, $1), updated_at = now()
		WHERE id = $2 AND NOT ($1 = ANY(created_events))
	`
	_, err := r.db.Exec(ctx, query, eventID, userID)
	if err != nil {
		return fmt.Errorf("failed to add created event: %w", err)
	}
	return nil
}

// UpdatePushToken updates the push token for a user
func (r *UserRepository) UpdatePushToken(ctx context.Context, userID string, pushToken *string) error {
	query := `UPDATE users SET push_token = $1, updated_at = now() WHERE id = $2`
	_, err := r.db.Exec(ctx, query, pushToken, userID)
	if err != nil {
		return fmt.Errorf("failed to update push token: %w", err)
	}
	return nil
}
