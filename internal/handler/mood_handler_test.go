package handler_test

import (
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mindful-youth-api/internal/dto"
	"github.com/noah-isme/mindful-youth-api/internal/handler"
	"github.com/noah-isme/mindful-youth-api/internal/models"
	"github.com/noah-isme/mindful-youth-api/internal/repository"
	"github.com/noah-isme/mindful-youth-api/internal/service"
)

func newMoodApp(t *testing.T) *fiber.App {
	t.Helper()
	svc := service.NewMoodService(repository.NewMoodRepository(setupHandlerDB(t)), nil, testValidator(), testLogger())

	app := fiber.New()
	handler.NewMoodHandler(svc, nil, testLogger(), 0).Register(app.Group("/api/v1/moods", fakeAuth))
	return app
}

func TestMoodHandler_CreateListStreak(t *testing.T) {
	app := newMoodApp(t)

	resp := doJSON(t, app, http.MethodGet, "/api/v1/moods/streak", "user-1", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var empty envelope[dto.MoodStreakResponse]
	decodeResponse(t, resp, &empty)
	require.Zero(t, empty.Data.Streak)

	for _, mood := range []string{"Okay", "Great"} {
		resp = doJSON(t, app, http.MethodPost, "/api/v1/moods", "user-1", dto.MoodCreateRequest{Mood: mood, Journal: "note"})
		require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	}

	resp = doJSON(t, app, http.MethodGet, "/api/v1/moods", "user-1", nil)
	var list envelope[[]dto.MoodEntryResponse]
	decodeResponse(t, resp, &list)
	require.Len(t, list.Data, 2)
	require.Equal(t, models.MoodGreat, list.Data[0].Mood)

	resp = doJSON(t, app, http.MethodGet, "/api/v1/moods/streak", "user-1", nil)
	var streak envelope[dto.MoodStreakResponse]
	decodeResponse(t, resp, &streak)
	require.Equal(t, 2, streak.Data.Streak)

	resp = doJSON(t, app, http.MethodGet, "/api/v1/moods", "user-2", nil)
	decodeResponse(t, resp, &list)
	require.Empty(t, list.Data)
}

func TestMoodHandler_Rejections(t *testing.T) {
	app := newMoodApp(t)

	resp := doJSON(t, app, http.MethodPost, "/api/v1/moods", "user-1", dto.MoodCreateRequest{Mood: "Meh"})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	var invalid envelope[interface{}]
	decodeResponse(t, resp, &invalid)
	require.Equal(t, "oneof", invalid.Details["mood"])

	resp = doJSON(t, app, http.MethodGet, "/api/v1/moods", "", nil)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp = doJSON(t, app, http.MethodGet, "/api/v1/moods?limit=abc", "user-1", nil)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
