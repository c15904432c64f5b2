package handlers

import (
	"io"
	"net/http"

	"facematch-backend/internal/middleware"
	"facematch-backend/internal/models"
	"facematch-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// MatchHandler handles face-matching HTTP requests
type MatchHandler struct {
	matchService *services.MatchService
}

// NewMatchHandler creates a new match handler
func NewMatchHandler(matchService *services.MatchService) *MatchHandler {
	return &MatchHandler{
		matchService: matchService,
	}
}

// RunMatch handles POST /api/v1/matches. The request is multipart with
// an event_code field and an optional selfie file; without a selfie the
// user's default selfie is used.
func (h *MatchHandler) RunMatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		respondError(w, "Invalid multipart body", http.StatusBadRequest)
		return
	}

	eventCode := r.FormValue("event_code")
	if eventCode == "" {
		respondError(w, "event_code is required", http.StatusBadRequest)
		return
	}

	var selfie []byte
	var selfieName string
	if file, fh, err := r.FormFile("selfie"); err == nil {
		defer file.Close()
		selfie, err = io.ReadAll(file)
		if err != nil {
			respondError(w, "failed to read selfie", http.StatusBadRequest)
			return
		}
		selfieName = fh.Filename
	}

	result, err := h.matchService.FindMatches(ctx, userID, eventCode, selfie, selfieName)
	if err != nil {
		log.Error().Err(err).
			Str("user_id", userID).
			Str("event_code", eventCode).
			Msg("Match run failed")
		respondError(w, err.Error(), statusFor(err))
		return
	}

	log.Info().
		Str("user_id", userID).
		Str("event_id", result.EventID).
		Int("matches", len(result.Matches)).
		Bool("cached", result.Cached).
		Msg("Match run finished")
	respondJSON(w, result, http.StatusOK)
}

// ListMatches handles GET /api/v1/matches
func (h *MatchHandler) ListMatches(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	records, err := h.matchService.ListMatches(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to list matches")
		respondError(w, "Failed to list matches", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []*models.MatchRecord{}
	}
	respondJSON(w, map[string]interface{}{"records": records, "total": len(records)}, http.StatusOK)
}

// GetMatches handles GET /api/v1/matches/{event_id}
func (h *MatchHandler) GetMatches(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	eventID := chi.URLParam(r, "event_id")

	record, err := h.matchService.GetMatches(ctx, userID, eventID)
	if err != nil {
		respondError(w, err.Error(), statusFor(err))
		return
	}
	respondJSON(w, record, http.StatusOK)
}

// Statistics handles GET /api/v1/matches/stats
func (h *MatchHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	stats, err := h.matchService.Statistics(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to compute statistics")
		respondError(w, "Failed to compute statistics", http.StatusInternalServerError)
		return
	}
	respondJSON(w, stats, http.StatusOK)
}

// GetDefaultSelfie handles GET /api/v1/selfie
func (h *MatchHandler) GetDefaultSelfie(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	url, err := h.matchService.DefaultSelfie(ctx, userID)
	if err != nil {
		respondError(w, err.Error(), statusFor(err))
		return
	}
	respondJSON(w, map[string]string{"selfie_url": url}, http.StatusOK)
}

// UpdateDefaultSelfie handles PUT /api/v1/selfie. The new selfie is
// propagated to every existing match record for the user.
func (h *MatchHandler) UpdateDefaultSelfie(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		respondError(w, "Invalid multipart body", http.StatusBadRequest)
		return
	}

	file, fh, err := r.FormFile("selfie")
	if err != nil {
		respondError(w, "selfie file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, "failed to read selfie", http.StatusBadRequest)
		return
	}

	url, err := h.matchService.UpdateDefaultSelfie(ctx, userID, data, fh.Filename)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to update default selfie")
		respondError(w, err.Error(), statusFor(err))
		return
	}

	log.Info().Str("user_id", userID).Msg("Default selfie updated")
	respondJSON(w, map[string]string{"selfie_url": url}, http.StatusOK)
}
