package services

import (
	"context"
	"regexp"
	"testing"
	"time"

	"facematch-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var eventCodePattern = regexp.MustCompile(`^\d{6}$`)

func newTestEventService(store *fakeEventStore) *EventService {
	return NewEventService(store, "https://photos.example.com")
}

func TestCreateEvent_GeneratesSixDigitCode(t *testing.T) {
	store := newFakeEventStore()
	svc := newTestEventService(store)

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		event, err := svc.Create(context.Background(), "owner@example.com", CreateEventRequest{
			Name: "Summer Party",
			Date: time.Now(),
		})
		require.NoError(t, err)

		assert.Regexp(t, eventCodePattern, event.ID)
		assert.NotEqual(t, models.DefaultSelfieEventID, event.ID)
		assert.False(t, seen[event.ID], "code %s issued twice", event.ID)
		seen[event.ID] = true

		assert.Equal(t, "https://photos.example.com/attendee-dashboard?eventId="+event.ID, event.ShareURL)
		assert.Equal(t, "owner@example.com", event.OwnerID)
	}
}

func TestGenerateEventCode_NeverReserved(t *testing.T) {
	for i := 0; i < 1000; i++ {
		code := generateEventCode()
		assert.Regexp(t, eventCodePattern, code)
		assert.NotEqual(t, models.DefaultSelfieEventID, code)
	}
}

func TestGet_NormalizesShortCodes(t *testing.T) {
	store := newFakeEventStore()
	svc := newTestEventService(store)

	event, err := svc.Create(context.Background(), "owner@example.com", CreateEventRequest{
		Name: "Gala", Date: time.Now(),
	})
	require.NoError(t, err)

	// Force a known code with a leading zero
	store.events["042913"] = &models.Event{ID: "042913", Name: "Leading Zero", OwnerID: "owner@example.com"}

	// Exact lookup
	got, err := svc.Get(context.Background(), event.ID)
	require.NoError(t, err)
	assert.Equal(t, event.ID, got.ID)

	// A client that dropped the leading zero still resolves
	got, err = svc.Get(context.Background(), "42913")
	require.NoError(t, err)
	assert.Equal(t, "042913", got.ID)
}

func TestGet_NotFound(t *testing.T) {
	svc := newTestEventService(newFakeEventStore())

	_, err := svc.Get(context.Background(), "999999")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Get(context.Background(), "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelete_NonOwnerFails(t *testing.T) {
	store := newFakeEventStore()
	svc := newTestEventService(store)

	event, err := svc.Create(context.Background(), "owner@example.com", CreateEventRequest{
		Name: "Wedding", Date: time.Now(),
	})
	require.NoError(t, err)

	err = svc.Delete(context.Background(), event.ID, "intruder@example.com")
	assert.ErrorIs(t, err, ErrForbidden)

	// The event must remain retrievable after the failed delete
	got, err := svc.Get(context.Background(), event.ID)
	require.NoError(t, err)
	assert.Equal(t, event.ID, got.ID)
}

func TestDelete_OwnerSucceeds(t *testing.T) {
	store := newFakeEventStore()
	svc := newTestEventService(store)

	event, err := svc.Create(context.Background(), "owner@example.com", CreateEventRequest{
		Name: "Wedding", Date: time.Now(),
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), event.ID, "owner@example.com"))

	_, err = svc.Get(context.Background(), event.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListByOwner(t *testing.T) {
	store := newFakeEventStore()
	svc := newTestEventService(store)

	for i := 0; i < 3; i++ {
		_, err := svc.Create(context.Background(), "owner@example.com", CreateEventRequest{
			Name: "Event", Date: time.Now(),
		})
		require.NoError(t, err)
	}
	_, err := svc.Create(context.Background(), "other@example.com", CreateEventRequest{
		Name: "Other", Date: time.Now(),
	})
	require.NoError(t, err)

	events, err := svc.ListByOwner(context.Background(), "owner@example.com")
	require.NoError(t, err)
	assert.Len(t, events, 3)
}

func TestShareQR(t *testing.T) {
	store := newFakeEventStore()
	svc := newTestEventService(store)

	event, err := svc.Create(context.Background(), "owner@example.com", CreateEventRequest{
		Name: "Concert", Date: time.Now(),
	})
	require.NoError(t, err)

	png, err := svc.ShareQR(context.Background(), event.ID, 0)
	require.NoError(t, err)
	assert.NotEmpty(t, png)
	// PNG magic bytes
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, png[:4])
}
