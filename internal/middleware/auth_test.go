package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"facematch-backend/internal/middleware"
	"facematch-backend/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthedRouter(t *testing.T, userService *services.UserService) http.Handler {
	t.Helper()
	var handler http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(middleware.GetUserID(r.Context())))
	})
	return middleware.AuthMiddleware(userService)(handler)
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	userService := services.NewUserService(nil, "test-secret")
	token, err := userService.GenerateJWT("user@example.com")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	newAuthedRouter(t, userService).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user@example.com", rec.Body.String())
}

func TestAuthMiddleware_MissingHeader(t *testing.T) {
	userService := services.NewUserService(nil, "test-secret")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	newAuthedRouter(t, userService).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddleware_MalformedHeader(t *testing.T) {
	userService := services.NewUserService(nil, "test-secret")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Token abc")
	rec := httptest.NewRecorder()

	newAuthedRouter(t, userService).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	userService := services.NewUserService(nil, "test-secret")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer bogus")
	rec := httptest.NewRecorder()

	newAuthedRouter(t, userService).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestValidateWebSocketToken(t *testing.T) {
	userService := services.NewUserService(nil, "test-secret")
	token, err := userService.GenerateJWT("user@example.com")
	require.NoError(t, err)

	userID, err := middleware.ValidateWebSocketToken(token, userService)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", userID)

	_, err = middleware.ValidateWebSocketToken("", userService)
	assert.Error(t, err)
}
