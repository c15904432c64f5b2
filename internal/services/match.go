package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	appconfig "facematch-backend/internal/config"
	"facematch-backend/internal/models"
	"facematch-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// MatchState is a stage of the matching workflow
type MatchState int

const (
	StateLookupEvent MatchState = iota
	StateCheckExisting
	StateRunComparison
	StatePersistResult
	StateDone
	StateError
)

func (s MatchState) String() string {
	switch s {
	case StateLookupEvent:
		return "lookup_event"
	case StateCheckExisting:
		return "check_existing"
	case StateRunComparison:
		return "run_comparison"
	case StatePersistResult:
		return "persist_result"
	case StateDone:
		return "done"
	default:
		return "error"
	}
}

// MatchStore is the persistence interface for attendee match records
type MatchStore interface {
	Upsert(ctx context.Context, record *models.MatchRecord) error
	GetByUserAndEvent(ctx context.Context, userID, eventID string) (*models.MatchRecord, error)
	GetAllByUser(ctx context.Context, userID string) ([]*models.MatchRecord, error)
	GetStatistics(ctx context.Context, userID string) (*models.MatchStatistics, error)
	GetDefaultSelfie(ctx context.Context, userID string) (string, error)
	PropagateSelfieUpdate(ctx context.Context, userID, selfieURL string) error
}

// ObjectGateway is the slice of the object store the orchestrator needs
type ObjectGateway interface {
	Put(ctx context.Context, key string, body []byte, contentType string) (string, error)
	List(ctx context.Context, prefix string) ([]string, error)
	PublicURL(key string) string
	KeyFromURL(url string) string
}

// PushSender delivers a match-ready push notification to a device token
type PushSender interface {
	Push(deviceToken, title, body string) error
}

// MatchResult is the outcome of one matching pass
type MatchResult struct {
	EventID   string                  `json:"event_id"`
	EventName string                  `json:"event_name"`
	SelfieURL string                  `json:"selfie_url"`
	Matches   []models.MatchCandidate `json:"matches"`
	Cached    bool                    `json:"cached"`
}

// MatchService drives the end-to-end face matching workflow
type MatchService struct {
	records  MatchStore
	events   *EventService
	objects  ObjectGateway
	comparer FaceComparer
	users    UserStore
	hub      *ProgressHub
	push     PushSender
	cfg      appconfig.MatchingConfig

	// sleep is swapped out in tests
	sleep func(time.Duration)
}

// NewMatchService creates a new matching orchestrator. push may be nil
// when notifications are disabled.
func NewMatchService(
	records MatchStore,
	events *EventService,
	objects ObjectGateway,
	comparer FaceComparer,
	users UserStore,
	hub *ProgressHub,
	push PushSender,
	cfg appconfig.MatchingConfig,
) *MatchService {
	return &MatchService{
		records:  records,
		events:   events,
		objects:  objects,
		comparer: comparer,
		users:    users,
		hub:      hub,
		push:     push,
		cfg:      cfg,
		sleep:    time.Sleep,
	}
}

// FindMatches resolves an event code, compares the user's selfie against
// every event image and persists the surviving matches. selfie may be nil,
// in which case the user's default selfie is used. An existing record for
// the (user, event) pair short-circuits the whole run.
func (s *MatchService) FindMatches(ctx context.Context, userID, eventCode string, selfie []byte, selfieName string) (*MatchResult, error) {
	s.reportState(userID, eventCode, StateLookupEvent)

	event, err := s.events.Get(ctx, eventCode)
	if err != nil {
		s.reportError(userID, eventCode, err)
		return nil, err
	}

	s.reportState(userID, event.ID, StateCheckExisting)

	if record, err := s.records.GetByUserAndEvent(ctx, userID, event.ID); err == nil {
		result := &MatchResult{
			EventID:   event.ID,
			EventName: event.Name,
			SelfieURL: record.SelfieURL,
			Matches:   urlsToCandidates(record.MatchedURLs),
			Cached:    true,
		}
		s.reportDone(userID, event.ID, len(result.Matches))
		return result, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		s.reportError(userID, event.ID, err)
		return nil, fmt.Errorf("failed to check existing match: %w", err)
	}

	selfieURL, err := s.resolveSelfie(ctx, userID, event.ID, selfie, selfieName)
	if err != nil {
		s.reportError(userID, event.ID, err)
		return nil, err
	}

	s.reportState(userID, event.ID, StateRunComparison)

	candidates, err := s.runComparison(ctx, userID, event.ID, s.objects.KeyFromURL(selfieURL))
	if err != nil {
		s.reportError(userID, event.ID, err)
		return nil, err
	}
	if len(candidates) == 0 {
		s.reportError(userID, event.ID, ErrNoMatches)
		return nil, ErrNoMatches
	}

	s.reportState(userID, event.ID, StatePersistResult)

	// Soft fail: a persistence error is logged but the computed result is
	// still returned, accepting the inconsistency.
	now := time.Now()
	record := &models.MatchRecord{
		UserID:      userID,
		EventID:     event.ID,
		SelfieURL:   selfieURL,
		MatchedURLs: candidateURLs(candidates),
		UploadedAt:  now,
		UpdatedAt:   now,
	}
	if err := s.records.Upsert(ctx, record); err != nil {
		log.Error().Err(err).
			Str("user_id", userID).
			Str("event_id", event.ID).
			Msg("Failed to persist match record")
	} else if err := s.events.AddGuestCount(ctx, event.ID, 1); err != nil {
		log.Warn().Err(err).Str("event_id", event.ID).Msg("Failed to bump guest count")
	}

	s.reportDone(userID, event.ID, len(candidates))
	s.notifyMatchReady(ctx, userID, event.Name, len(candidates))

	return &MatchResult{
		EventID:   event.ID,
		EventName: event.Name,
		SelfieURL: selfieURL,
		Matches:   candidates,
	}, nil
}

// resolveSelfie uploads the supplied selfie under the event's selfie
// prefix, or falls back to the user's default selfie
func (s *MatchService) resolveSelfie(ctx context.Context, userID, eventID string, selfie []byte, selfieName string) (string, error) {
	if len(selfie) > 0 {
		key := EventSelfieKey(eventID, uniqueFilename(selfieName))
		url, err := s.objects.Put(ctx, key, selfie, "image/jpeg")
		if err != nil {
			return "", fmt.Errorf("failed to upload selfie: %w", err)
		}
		return url, nil
	}

	url, err := s.records.GetDefaultSelfie(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrNoSelfie
		}
		return "", fmt.Errorf("failed to load default selfie: %w", err)
	}
	return url, nil
}

// runComparison lists the event's images and compares the selfie against
// each of them in fixed-size batches. Comparisons within a batch run
// concurrently; batches are separated by a pause to avoid overwhelming
// the comparison service. Candidates at or above the acceptance threshold
// are returned sorted by descending similarity.
func (s *MatchService) runComparison(ctx context.Context, userID, eventID, selfieKey string) ([]models.MatchCandidate, error) {
	keys, err := s.objects.List(ctx, EventImagePrefix(eventID))
	if err != nil {
		return nil, fmt.Errorf("failed to list event images: %w", err)
	}
	if len(keys) == 0 {
		return nil, ErrNoImages
	}

	var (
		mu         sync.Mutex
		candidates []models.MatchCandidate
		seen       = make(map[string]bool)
	)

	total := len(keys)
	completed := 0

	for start := 0; start < total; start += s.cfg.BatchSize {
		if start > 0 {
			s.sleep(s.cfg.BatchDelay())
		}

		end := start + s.cfg.BatchSize
		if end > total {
			end = total
		}

		var wg sync.WaitGroup
		for _, key := range keys[start:end] {
			wg.Add(1)
			go func(key string) {
				defer wg.Done()

				similarity, ok, err := s.comparer.Compare(ctx, selfieKey, key)
				if err != nil {
					// One failed comparison never aborts the batch
					log.Debug().Err(err).Str("key", key).Msg("Comparison failed, treating as no match")
					return
				}
				if !ok || similarity < s.cfg.AcceptThreshold {
					return
				}

				url := s.objects.PublicURL(key)
				mu.Lock()
				if !seen[url] {
					seen[url] = true
					candidates = append(candidates, models.MatchCandidate{URL: url, Similarity: similarity})
				}
				mu.Unlock()
			}(key)
		}
		wg.Wait()

		completed = end
		s.hub.SendToUser(userID, ProgressMessage{
			Type:      MsgMatchState,
			EventID:   eventID,
			State:     StateRunComparison.String(),
			Completed: completed,
			Total:     total,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Similarity > candidates[j].Similarity
	})
	return candidates, nil
}

// GetMatches returns the persisted match record for a (user, event) pair
func (s *MatchService) GetMatches(ctx context.Context, userID, eventID string) (*models.MatchRecord, error) {
	record, err := s.records.GetByUserAndEvent(ctx, userID, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return record, nil
}

// ListMatches returns every match record for a user
func (s *MatchService) ListMatches(ctx context.Context, userID string) ([]*models.MatchRecord, error) {
	return s.records.GetAllByUser(ctx, userID)
}

// Statistics returns aggregate match statistics for a user
func (s *MatchService) Statistics(ctx context.Context, userID string) (*models.MatchStatistics, error) {
	return s.records.GetStatistics(ctx, userID)
}

// DefaultSelfie returns the user's default selfie URL
func (s *MatchService) DefaultSelfie(ctx context.Context, userID string) (string, error) {
	url, err := s.records.GetDefaultSelfie(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}
	return url, nil
}

// UpdateDefaultSelfie uploads a new default selfie for the user and
// propagates the new reference to every existing match record
func (s *MatchService) UpdateDefaultSelfie(ctx context.Context, userID string, selfie []byte, filename string) (string, error) {
	key := UserSelfieKey(userID, uniqueFilename(filename))
	url, err := s.objects.Put(ctx, key, selfie, "image/jpeg")
	if err != nil {
		return "", fmt.Errorf("failed to upload selfie: %w", err)
	}

	now := time.Now()
	record := &models.MatchRecord{
		UserID:      userID,
		EventID:     models.DefaultSelfieEventID,
		SelfieURL:   url,
		MatchedURLs: []string{},
		UploadedAt:  now,
		UpdatedAt:   now,
	}
	if err := s.records.Upsert(ctx, record); err != nil {
		return "", fmt.Errorf("failed to store default selfie: %w", err)
	}

	if err := s.records.PropagateSelfieUpdate(ctx, userID, url); err != nil {
		return "", fmt.Errorf("failed to propagate selfie update: %w", err)
	}
	return url, nil
}

func (s *MatchService) reportState(userID, eventID string, state MatchState) {
	s.hub.SendToUser(userID, ProgressMessage{
		Type:    MsgMatchState,
		EventID: eventID,
		State:   state.String(),
	})
}

func (s *MatchService) reportDone(userID, eventID string, count int) {
	s.hub.SendToUser(userID, ProgressMessage{
		Type:    MsgMatchDone,
		EventID: eventID,
		State:   StateDone.String(),
		Total:   count,
	})
}

func (s *MatchService) reportError(userID, eventID string, err error) {
	s.hub.SendToUser(userID, ProgressMessage{
		Type:    MsgError,
		EventID: eventID,
		State:   StateError.String(),
		Message: err.Error(),
	})
}

func (s *MatchService) notifyMatchReady(ctx context.Context, userID, eventName string, count int) {
	if s.push == nil {
		return
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil || user.PushToken == nil {
		return
	}
	body := fmt.Sprintf("%d photos of you found at %s", count, eventName)
	if err := s.push.Push(*user.PushToken, "Your photos are ready", body); err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("Failed to send match push")
	}
}

func urlsToCandidates(urls []string) []models.MatchCandidate {
	candidates := make([]models.MatchCandidate, 0, len(urls))
	for _, url := range urls {
		candidates = append(candidates, models.MatchCandidate{URL: url})
	}
	return candidates
}

func candidateURLs(candidates []models.MatchCandidate) []string {
	urls := make([]string, 0, len(candidates))
	for _, c := range candidates {
		urls = append(urls, c.URL)
	}
	return urls
}

// uniqueFilename prefixes a client-supplied filename with a UUID so
// concurrent uploads cannot clobber each other
func uniqueFilename(name string) string {
	ext := filepath.Ext(name)
	if ext == "" {
		ext = ".jpg"
	}
	return uuid.New().String() + ext
}
