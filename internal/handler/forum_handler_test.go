package handler_test

import (
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mindful-youth-api/internal/dto"
	"github.com/noah-isme/mindful-youth-api/internal/handler"
	"github.com/noah-isme/mindful-youth-api/internal/repository"
	"github.com/noah-isme/mindful-youth-api/internal/service"
)

func newForumApp(t *testing.T) *fiber.App {
	t.Helper()
	db := setupHandlerDB(t)
	svc := service.NewForumService(repository.NewPostRepository(db), nil, testValidator(), testLogger())

	app := fiber.New()
	handler.NewForumHandler(svc, nil, testLogger(), 0).Register(app.Group("/api/v1/forum", fakeAuth))
	return app
}

func TestForumHandler_LikeScenario(t *testing.T) {
	app := newForumApp(t)

	resp := doJSON(t, app, http.MethodPost, "/api/v1/forum/posts", "user-a", dto.PostCreateRequest{Content: "hello"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var created envelope[dto.PostResponse]
	decodeResponse(t, resp, &created)
	require.Equal(t, "Anonymous", created.Data.Author)
	require.Zero(t, created.Data.Likes)

	likePath := "/api/v1/forum/posts/" + created.Data.ID + "/like"

	resp = doJSON(t, app, http.MethodPost, likePath, "user-b", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var liked envelope[dto.LikeResponse]
	decodeResponse(t, resp, &liked)
	require.Equal(t, 1, liked.Data.Likes)
	require.Equal(t, []string{"user-b"}, liked.Data.LikedBy)

	resp = doJSON(t, app, http.MethodPost, likePath, "user-b", nil)
	var unliked envelope[dto.LikeResponse]
	decodeResponse(t, resp, &unliked)
	require.Zero(t, unliked.Data.Likes)
	require.Empty(t, unliked.Data.LikedBy)

	resp = doJSON(t, app, http.MethodGet, "/api/v1/forum/posts", "user-b", nil)
	var list envelope[[]dto.PostResponse]
	decodeResponse(t, resp, &list)
	require.Len(t, list.Data, 1)
	require.Equal(t, 1, list.Meta["total"])
}

func TestForumHandler_ErrorMapping(t *testing.T) {
	app := newForumApp(t)

	resp := doJSON(t, app, http.MethodPost, "/api/v1/forum/posts", "", dto.PostCreateRequest{Content: "hello"})
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp = doJSON(t, app, http.MethodPost, "/api/v1/forum/posts", "user-a", dto.PostCreateRequest{})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	var invalid envelope[interface{}]
	decodeResponse(t, resp, &invalid)
	require.Equal(t, "validation failed", invalid.Message)
	require.Equal(t, "required", invalid.Details["content"])

	resp = doJSON(t, app, http.MethodGet, "/api/v1/forum/posts/missing", "user-a", nil)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp = doJSON(t, app, http.MethodPost, "/api/v1/forum/posts", "user-a", dto.PostCreateRequest{Content: "mine"})
	var created envelope[dto.PostResponse]
	decodeResponse(t, resp, &created)

	resp = doJSON(t, app, http.MethodDelete, "/api/v1/forum/posts/"+created.Data.ID, "user-b", nil)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = doJSON(t, app, http.MethodDelete, "/api/v1/forum/posts/"+created.Data.ID, "user-a", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestForumHandler_Comments(t *testing.T) {
	app := newForumApp(t)

	resp := doJSON(t, app, http.MethodPost, "/api/v1/forum/posts", "user-a", dto.PostCreateRequest{Content: "hello"})
	var created envelope[dto.PostResponse]
	decodeResponse(t, resp, &created)
	commentsPath := "/api/v1/forum/posts/" + created.Data.ID + "/comments"

	resp = doJSON(t, app, http.MethodPost, commentsPath, "user-b", dto.CommentCreateRequest{Content: "you are not alone"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp = doJSON(t, app, http.MethodGet, commentsPath, "user-a", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var comments envelope[[]dto.CommentResponse]
	decodeResponse(t, resp, &comments)
	require.Len(t, comments.Data, 1)
	require.False(t, comments.Data[0].IsOwner)

	resp = doJSON(t, app, http.MethodGet, "/api/v1/forum/posts/missing/comments", "user-a", nil)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestForumHandler_StreamWithoutHub(t *testing.T) {
	app := newForumApp(t)

	resp := doJSON(t, app, http.MethodGet, "/api/v1/forum/stream", "user-a", nil)
	require.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}
