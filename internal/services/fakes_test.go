package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"facematch-backend/internal/models"
	"facematch-backend/internal/repository"
)

// In-memory fakes for the store and gateway interfaces. All of them are
// safe for concurrent use since the orchestrator fans out within batches.

type fakeEventStore struct {
	mu     sync.Mutex
	events map[string]*models.Event
}

func newFakeEventStore() *fakeEventStore {
	return &fakeEventStore{events: make(map[string]*models.Event)}
}

func (f *fakeEventStore) Create(_ context.Context, event *models.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.events[event.ID]; ok {
		return fmt.Errorf("duplicate event id %s", event.ID)
	}
	copied := *event
	f.events[event.ID] = &copied
	return nil
}

func (f *fakeEventStore) GetByID(_ context.Context, id string) (*models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	event, ok := f.events[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *event
	return &copied, nil
}

func (f *fakeEventStore) GetByAnyOwnerAttribute(_ context.Context, owner string) ([]*models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var events []*models.Event
	for _, event := range f.events {
		if event.OwnerID == owner {
			copied := *event
			events = append(events, &copied)
		}
	}
	return events, nil
}

func (f *fakeEventStore) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.events[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.events, id)
	return nil
}

func (f *fakeEventStore) UpdateCoverURL(_ context.Context, id, coverURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	event, ok := f.events[id]
	if !ok {
		return repository.ErrNotFound
	}
	event.CoverURL = coverURL
	return nil
}

func (f *fakeEventStore) AddPhotoCount(_ context.Context, id string, n int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	event, ok := f.events[id]
	if !ok {
		return repository.ErrNotFound
	}
	event.PhotoCount += n
	return nil
}

func (f *fakeEventStore) AddGuestCount(_ context.Context, id string, n int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	event, ok := f.events[id]
	if !ok {
		return repository.ErrNotFound
	}
	event.GuestCount += n
	return nil
}

type fakeMatchStore struct {
	mu        sync.Mutex
	records   map[string]*models.MatchRecord
	upsertErr error
}

func newFakeMatchStore() *fakeMatchStore {
	return &fakeMatchStore{records: make(map[string]*models.MatchRecord)}
}

func matchKey(userID, eventID string) string {
	return userID + "|" + eventID
}

func (f *fakeMatchStore) Upsert(_ context.Context, record *models.MatchRecord) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *record
	f.records[matchKey(record.UserID, record.EventID)] = &copied
	return nil
}

func (f *fakeMatchStore) GetByUserAndEvent(_ context.Context, userID, eventID string) (*models.MatchRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[matchKey(userID, eventID)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *record
	return &copied, nil
}

func (f *fakeMatchStore) GetAllByUser(_ context.Context, userID string) ([]*models.MatchRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var records []*models.MatchRecord
	for _, record := range f.records {
		if record.UserID == userID && record.EventID != models.DefaultSelfieEventID {
			copied := *record
			records = append(records, &copied)
		}
	}
	return records, nil
}

func (f *fakeMatchStore) GetStatistics(ctx context.Context, userID string) (*models.MatchStatistics, error) {
	records, err := f.GetAllByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	stats := &models.MatchStatistics{}
	for _, record := range records {
		stats.EventCount++
		stats.PhotoCount += len(record.MatchedURLs)
		t := record.UploadedAt
		if stats.FirstDate == nil || t.Before(*stats.FirstDate) {
			first := t
			stats.FirstDate = &first
		}
		if stats.LastDate == nil || t.After(*stats.LastDate) {
			last := t
			stats.LastDate = &last
		}
	}
	return stats, nil
}

func (f *fakeMatchStore) GetDefaultSelfie(ctx context.Context, userID string) (string, error) {
	record, err := f.GetByUserAndEvent(ctx, userID, models.DefaultSelfieEventID)
	if err != nil {
		return "", err
	}
	return record.SelfieURL, nil
}

func (f *fakeMatchStore) PropagateSelfieUpdate(_ context.Context, userID, selfieURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, record := range f.records {
		if record.UserID == userID {
			record.SelfieURL = selfieURL
		}
	}
	return nil
}

type fakeObjectStore struct {
	mu       sync.Mutex
	objects  map[string][]byte
	listKeys []string
	putErrOn string // filename substring that fails the put
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: make(map[string][]byte)}
}

const fakeURLPrefix = "https://test-bucket.s3.us-east-1.amazonaws.com/"

func (f *fakeObjectStore) Put(_ context.Context, key string, body []byte, _ string) (string, error) {
	if f.putErrOn != "" && strings.Contains(key, f.putErrOn) {
		return "", fmt.Errorf("simulated put failure for %s", key)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = body
	return fakeURLPrefix + key, nil
}

func (f *fakeObjectStore) List(_ context.Context, prefix string) ([]string, error) {
	var keys []string
	for _, key := range f.listKeys {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (f *fakeObjectStore) PublicURL(key string) string {
	return fakeURLPrefix + key
}

func (f *fakeObjectStore) KeyFromURL(url string) string {
	return strings.TrimPrefix(url, fakeURLPrefix)
}

func (f *fakeObjectStore) putCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

type fakeComparer struct {
	mu     sync.Mutex
	scores map[string]float64 // target key -> similarity; absent = no face match
	errOn  string             // target key substring that fails the call
	calls  int
}

func (f *fakeComparer) Compare(_ context.Context, _, targetKey string) (float64, bool, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.errOn != "" && strings.Contains(targetKey, f.errOn) {
		return 0, false, fmt.Errorf("simulated comparison failure for %s", targetKey)
	}
	score, ok := f.scores[targetKey]
	return score, ok, nil
}

func (f *fakeComparer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]*models.User)}
}

func (f *fakeUserStore) Upsert(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.users[user.ID]
	if !ok {
		copied := *user
		if copied.CreatedEvents == nil {
			copied.CreatedEvents = []string{}
		}
		f.users[user.ID] = &copied
		return nil
	}
	if user.Name != "" {
		existing.Name = user.Name
	}
	if user.Mobile != "" {
		existing.Mobile = user.Mobile
	}
	if user.Role != models.RoleUnset {
		existing.Role = user.Role
	}
	for _, id := range user.CreatedEvents {
		if !contains(existing.CreatedEvents, id) {
			existing.CreatedEvents = append(existing.CreatedEvents, id)
		}
	}
	existing.UpdatedAt = user.UpdatedAt
	return nil
}

func (f *fakeUserStore) GetByID(_ context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (f *fakeUserStore) AddCreatedEvent(_ context.Context, userID, eventID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[userID]
	if !ok {
		return nil
	}
	if !contains(user.CreatedEvents, eventID) {
		user.CreatedEvents = append(user.CreatedEvents, eventID)
	}
	return nil
}

func (f *fakeUserStore) UpdatePushToken(_ context.Context, userID string, pushToken *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if user, ok := f.users[userID]; ok {
		user.PushToken = pushToken
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
