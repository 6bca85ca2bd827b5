package handler_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mindful-youth-api/internal/dto"
	"github.com/noah-isme/mindful-youth-api/internal/handler"
	"github.com/noah-isme/mindful-youth-api/internal/middleware"
	"github.com/noah-isme/mindful-youth-api/internal/repository"
	"github.com/noah-isme/mindful-youth-api/internal/service"
)

func newAuthApp(t *testing.T) *fiber.App {
	t.Helper()
	db := setupHandlerDB(t)
	auth := service.NewAuthService(repository.NewUserRepository(db), nil, service.AuthConfig{
		AccessSecret:  "access",
		RefreshSecret: "refresh",
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
	}, testValidator(), testLogger())

	app := fiber.New()
	handler.NewAuthHandler(auth, nil, testLogger()).Register(app.Group("/api/v1/auth"), middleware.JWTProtected("access", auth))
	return app
}

func bearerRequest(method, path, token string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestAuthHandler_SignUpMeLogout(t *testing.T) {
	app := newAuthApp(t)

	resp := doJSON(t, app, http.MethodPost, "/api/v1/auth/signup", "", dto.SignUpRequest{Email: "ana@example.com", Password: "secret123", DisplayName: "Ana"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var signed envelope[dto.AuthResponse]
	decodeResponse(t, resp, &signed)
	token := signed.Data.Tokens.AccessToken
	require.NotEmpty(t, token)

	resp, err := app.Test(bearerRequest(http.MethodGet, "/api/v1/auth/me", token))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var me envelope[dto.ProfileResponse]
	decodeResponse(t, resp, &me)
	require.Equal(t, "ana@example.com", me.Data.Email)

	resp, err = app.Test(bearerRequest(http.MethodPost, "/api/v1/auth/logout", token))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(bearerRequest(http.MethodGet, "/api/v1/auth/me", token))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestAuthHandler_ErrorMapping(t *testing.T) {
	app := newAuthApp(t)

	signup := dto.SignUpRequest{Email: "ana@example.com", Password: "secret123", DisplayName: "Ana"}
	resp := doJSON(t, app, http.MethodPost, "/api/v1/auth/signup", "", signup)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp = doJSON(t, app, http.MethodPost, "/api/v1/auth/signup", "", signup)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp = doJSON(t, app, http.MethodPost, "/api/v1/auth/login", "", dto.LoginRequest{Email: "ana@example.com", Password: "nope"})
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp = doJSON(t, app, http.MethodPost, "/api/v1/auth/signup", "", dto.SignUpRequest{Email: "bad", Password: "1", DisplayName: ""})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	var invalid envelope[interface{}]
	decodeResponse(t, resp, &invalid)
	require.Contains(t, invalid.Details, "email")
	require.Contains(t, invalid.Details, "password")

	resp = doJSON(t, app, http.MethodPost, "/api/v1/auth/refresh", "", dto.RefreshRequest{RefreshToken: "garbage"})
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
