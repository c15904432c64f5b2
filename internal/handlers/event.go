package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"facematch-backend/internal/middleware"
	"facematch-backend/internal/models"
	"facematch-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// EventHandler handles event directory HTTP requests
type EventHandler struct {
	eventService *services.EventService
	userService  *services.UserService
}

// NewEventHandler creates a new event handler
func NewEventHandler(eventService *services.EventService, userService *services.UserService) *EventHandler {
	return &EventHandler{
		eventService: eventService,
		userService:  userService,
	}
}

// CreateEvent handles POST /api/v1/events
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req services.CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		respondError(w, "name is required", http.StatusBadRequest)
		return
	}

	event, err := h.eventService.Create(ctx, userID, req)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to create event")
		respondError(w, "Failed to create event", http.StatusInternalServerError)
		return
	}

	// Creating an event is the organizer action: mark the role and record
	// the event against the user. Best effort; the event itself is created.
	if err := h.userService.SetRole(ctx, userID, models.RoleOrganizer); err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("Failed to mark organizer role")
	}
	if err := h.userService.RecordCreatedEvent(ctx, userID, event.ID); err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("Failed to record created event")
	}

	log.Info().Str("user_id", userID).Str("event_id", event.ID).Msg("Event created")
	respondJSON(w, map[string]interface{}{
		"event":      event,
		"upload_url": h.eventService.UploadRedirectURL(event.ID),
	}, http.StatusCreated)
}

// ListEvents handles GET /api/v1/events
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	events, err := h.eventService.ListByOwner(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to list events")
		respondError(w, "Failed to list events", http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []*models.Event{}
	}
	respondJSON(w, map[string]interface{}{"events": events, "total": len(events)}, http.StatusOK)
}

// GetEvent handles GET /api/v1/events/{event_id}
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	eventID := chi.URLParam(r, "event_id")

	event, err := h.eventService.Get(ctx, eventID)
	if err != nil {
		respondError(w, err.Error(), statusFor(err))
		return
	}
	respondJSON(w, event, http.StatusOK)
}

// DeleteEvent handles DELETE /api/v1/events/{event_id}
func (h *EventHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	eventID := chi.URLParam(r, "event_id")

	if err := h.eventService.Delete(ctx, eventID, userID); err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("event_id", eventID).Msg("Failed to delete event")
		respondError(w, err.Error(), statusFor(err))
		return
	}

	log.Info().Str("user_id", userID).Str("event_id", eventID).Msg("Event deleted")
	w.WriteHeader(http.StatusNoContent)
}

// EventQR handles GET /api/v1/events/{event_id}/qr
func (h *EventHandler) EventQR(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	eventID := chi.URLParam(r, "event_id")

	size := 0
	if sizeStr := r.URL.Query().Get("size"); sizeStr != "" {
		if parsed, err := strconv.Atoi(sizeStr); err == nil {
			size = parsed
		}
	}

	png, err := h.eventService.ShareQR(ctx, eventID, size)
	if err != nil {
		respondError(w, err.Error(), statusFor(err))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}
