package handlers

import (
	"encoding/json"
	"net/http"

	"facematch-backend/internal/middleware"
	"facematch-backend/internal/models"
	"facematch-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// UserHandler handles user-related HTTP requests
type UserHandler struct {
	userService *services.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// SignInRequest represents a sign-in request
type SignInRequest struct {
	Email  string `json:"email"`
	Name   string `json:"name"`
	Mobile string `json:"mobile,omitempty"`
}

// SignInResponse carries the session token and the upserted user
type SignInResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// SignIn handles POST /api/v1/users/signin
func (h *UserHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Email == "" {
		respondError(w, "email is required", http.StatusBadRequest)
		return
	}

	user, token, err := h.userService.SignIn(r.Context(), req.Email, req.Name, req.Mobile)
	if err != nil {
		log.Error().Err(err).Str("email", req.Email).Msg("Failed to sign in user")
		respondError(w, "Failed to sign in", http.StatusInternalServerError)
		return
	}

	log.Info().Str("user_id", user.ID).Msg("User signed in")
	respondJSON(w, SignInResponse{Token: token, User: user}, http.StatusOK)
}

// Me handles GET /api/v1/users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	user, err := h.userService.Get(ctx, userID)
	if err != nil {
		respondError(w, err.Error(), statusFor(err))
		return
	}
	respondJSON(w, user, http.StatusOK)
}

// SetRoleRequest represents a role change request
type SetRoleRequest struct {
	Role models.Role `json:"role"`
}

// SetRole handles POST /api/v1/users/role
func (h *UserHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req SetRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Role != models.RoleOrganizer && req.Role != models.RoleAttendee {
		respondError(w, "role must be organizer or attendee", http.StatusBadRequest)
		return
	}

	if err := h.userService.SetRole(ctx, userID, req.Role); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to set role")
		respondError(w, "Failed to set role", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PushTokenRequest represents a push token registration
type PushTokenRequest struct {
	Token *string `json:"token"`
}

// RegisterPushToken handles POST /api/v1/users/push-token
func (h *UserHandler) RegisterPushToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req PushTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.userService.RegisterPushToken(ctx, userID, req.Token); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to register push token")
		respondError(w, "Failed to register push token", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
