package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"facematch-backend/internal/models"
	"facematch-backend/internal/repository"

	"github.com/golang-jwt/jwt/v5"
)

const jwtExpDays = 365

// UserStore is the persistence interface the user service depends on
type UserStore interface {
	Upsert(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	AddCreatedEvent(ctx context.Context, userID, eventID string) error
	UpdatePushToken(ctx context.Context, userID string, pushToken *string) error
}

// UserService handles user and session business logic
type UserService struct {
	users     UserStore
	jwtSecret string
}

// NewUserService creates a new user service
func NewUserService(users UserStore, jwtSecret string) *UserService {
	return &UserService{
		users:     users,
		jwtSecret: jwtSecret,
	}
}

// SignIn upserts the user record for an email and issues a session token.
// Every sign-in refreshes the profile fields; the role is left untouched
// until a role-changing action occurs.
func (s *UserService) SignIn(ctx context.Context, email, name, mobile string) (*models.User, string, error) {
	if email == "" {
		return nil, "", fmt.Errorf("email is required")
	}

	now := time.Now()
	user := &models.User{
		ID:        email,
		Name:      name,
		Mobile:    mobile,
		Role:      models.RoleUnset,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.users.Upsert(ctx, user); err != nil {
		return nil, "", fmt.Errorf("failed to upsert user: %w", err)
	}

	// Read back so merged fields (role, created events) are returned
	stored, err := s.users.GetByID(ctx, email)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load user: %w", err)
	}

	token, err := s.GenerateJWT(email)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}
	return stored, token, nil
}

// Get retrieves a user by email
func (s *UserService) Get(ctx context.Context, email string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

// SetRole records a role transition for a user, e.g. opening the create
// event flow marks the user an organizer
func (s *UserService) SetRole(ctx context.Context, email string, role models.Role) error {
	now := time.Now()
	user := &models.User{
		ID:        email,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.users.Upsert(ctx, user); err != nil {
		return fmt.Errorf("failed to set role: %w", err)
	}
	return nil
}

// RecordCreatedEvent adds an event id to the user's created-events list.
// The list is a set; recording the same id twice is a no-op.
func (s *UserService) RecordCreatedEvent(ctx context.Context, email, eventID string) error {
	if err := s.users.AddCreatedEvent(ctx, email, eventID); err != nil {
		return fmt.Errorf("failed to record created event: %w", err)
	}
	return nil
}

// RegisterPushToken stores a device push token for match notifications
func (s *UserService) RegisterPushToken(ctx context.Context, email string, token *string) error {
	if err := s.users.UpdatePushToken(ctx, email, token); err != nil {
		return fmt.Errorf("failed to register push token: %w", err)
	}
	return nil
}

// GenerateJWT generates a session token carrying the user's email
func (s *UserService) GenerateJWT(userID string) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().AddDate(0, 0, jwtExpDays).Unix(),
		"iat":     time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// ValidateJWT validates a session token and returns the user's email
func (s *UserService) ValidateJWT(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})

	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return "", fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid token claims")
	}

	userID, ok := claims["user_id"].(string)
	if !ok {
		return "", fmt.Errorf("user_id not found in token")
	}

	return userID, nil
}
