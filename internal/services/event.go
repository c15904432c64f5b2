package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"facematch-backend/internal/models"
	"facematch-backend/internal/repository"

	"github.com/rs/zerolog/log"
	"github.com/skip2/go-qrcode"
)

const (
	eventCodeLength     = 6
	codeGenMaxAttempts  = 10
	defaultQRCodePixels = 256
)

// EventStore is the persistence interface the event service depends on
type EventStore interface {
	Create(ctx context.Context, event *models.Event) error
	GetByID(ctx context.Context, id string) (*models.Event, error)
	GetByAnyOwnerAttribute(ctx context.Context, owner string) ([]*models.Event, error)
	Delete(ctx context.Context, id string) error
	UpdateCoverURL(ctx context.Context, id, coverURL string) error
	AddPhotoCount(ctx context.Context, id string, n int) error
	AddGuestCount(ctx context.Context, id string, n int) error
}

// EventService handles event directory business logic
type EventService struct {
	events        EventStore
	publicBaseURL string
}

// NewEventService creates a new event service
func NewEventService(events EventStore, publicBaseURL string) *EventService {
	return &EventService{
		events:        events,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

// CreateEventRequest represents a request to create an event
type CreateEventRequest struct {
	Name        string    `json:"name"`
	Date        time.Time `json:"date"`
	Description string    `json:"description,omitempty"`
}

// Create creates an event for the given owner with a freshly generated
// unique code
func (s *EventService) Create(ctx context.Context, ownerID string, req CreateEventRequest) (*models.Event, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("event name is required")
	}

	code, err := s.generateUniqueCode(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	event := &models.Event{
		ID:          code,
		Name:        req.Name,
		Date:        req.Date,
		Description: req.Description,
		OwnerID:     ownerID,
		ShareURL:    s.ShareURL(code),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.events.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}
	return event, nil
}

// generateUniqueCode produces a random 6-digit numeric code, checking the
// directory for collisions. When every attempt collides the last
// generated code is used anyway; with a 6-digit space the residual
// collision risk is accepted and known.
func (s *EventService) generateUniqueCode(ctx context.Context) (string, error) {
	var code string
	for i := 0; i < codeGenMaxAttempts; i++ {
		code = generateEventCode()
		_, err := s.events.GetByID(ctx, code)
		if errors.Is(err, repository.ErrNotFound) {
			return code, nil
		}
		if err != nil {
			return "", fmt.Errorf("failed to check code existence: %w", err)
		}
	}
	log.Warn().Str("event_id", code).Msg("Event code attempts exhausted, proceeding with last candidate")
	return code, nil
}

// generateEventCode generates a random 6-digit numeric string. The
// reserved default-selfie id is never returned.
func generateEventCode() string {
	for {
		n, _ := rand.Int(rand.Reader, big.NewInt(1000000))
		code := fmt.Sprintf("%0*d", eventCodeLength, n.Int64())
		if code != models.DefaultSelfieEventID {
			return code
		}
	}
}

// Get resolves an event code to an event. On a miss the code is
// length-normalized (left-padded with zeros, then stripped of leading
// zeros) before giving up with ErrNotFound.
func (s *EventService) Get(ctx context.Context, code string) (*models.Event, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrNotFound
	}

	tried := map[string]bool{}
	for _, candidate := range codeVariants(code) {
		if tried[candidate] {
			continue
		}
		tried[candidate] = true

		event, err := s.events.GetByID(ctx, candidate)
		if err == nil {
			return event, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("failed to look up event %s: %w", candidate, err)
		}
	}
	return nil, ErrNotFound
}

// codeVariants returns the code itself plus its zero-padded and
// zero-stripped forms
func codeVariants(code string) []string {
	variants := []string{code}
	if len(code) < eventCodeLength {
		variants = append(variants, strings.Repeat("0", eventCodeLength-len(code))+code)
	}
	if stripped := strings.TrimLeft(code, "0"); stripped != "" && stripped != code {
		variants = append(variants, stripped)
	}
	return variants
}

// Delete removes an event. Only the recorded owner may delete; anyone
// else gets ErrForbidden and the event stays retrievable.
func (s *EventService) Delete(ctx context.Context, id, requesterID string) error {
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to get event: %w", err)
	}

	if event.OwnerID != requesterID {
		return ErrForbidden
	}

	if err := s.events.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	return nil
}

// ListByOwner returns every event owned by the given user, across the
// canonical and legacy owner attributes, de-duplicated by event id
func (s *EventService) ListByOwner(ctx context.Context, ownerID string) ([]*models.Event, error) {
	events, err := s.events.GetByAnyOwnerAttribute(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}

// SetCover updates an event's cover image URL
func (s *EventService) SetCover(ctx context.Context, id, coverURL string) error {
	if err := s.events.UpdateCoverURL(ctx, id, coverURL); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// AddPhotoCount bumps an event's photo counter
func (s *EventService) AddPhotoCount(ctx context.Context, id string, n int) error {
	return s.events.AddPhotoCount(ctx, id, n)
}

// AddGuestCount bumps an event's guest counter
func (s *EventService) AddGuestCount(ctx context.Context, id string, n int) error {
	return s.events.AddGuestCount(ctx, id, n)
}

// ShareURL builds the attendee-facing share link for an event code
func (s *EventService) ShareURL(eventID string) string {
	return fmt.Sprintf("%s/attendee-dashboard?eventId=%s", s.publicBaseURL, eventID)
}

// UploadRedirectURL builds the organizer upload link for an event code
func (s *EventService) UploadRedirectURL(eventID string) string {
	return fmt.Sprintf("%s/upload-image?eventId=%s", s.publicBaseURL, eventID)
}

// ShareQR renders the share link for an event as a QR code PNG
func (s *EventService) ShareQR(ctx context.Context, eventID string, size int) ([]byte, error) {
	event, err := s.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if size <= 0 {
		size = defaultQRCodePixels
	}

	png, err := qrcode.Encode(event.ShareURL, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR code: %w", err)
	}
	return png, nil
}
