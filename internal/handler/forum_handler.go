package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/mindful-youth-api/internal/dto"
	"github.com/noah-isme/mindful-youth-api/internal/realtime"
	"github.com/noah-isme/mindful-youth-api/internal/service"
	"github.com/noah-isme/mindful-youth-api/internal/utils"
)

// ForumHandler provides HTTP endpoints for the anonymous forum.
type ForumHandler struct {
	service   service.ForumService
	hub       *realtime.Hub
	logger    zerolog.Logger
	keepAlive time.Duration
}

// NewForumHandler constructs a handler instance. hub may be nil, which disables the streams.
func NewForumHandler(service service.ForumService, hub *realtime.Hub, logger zerolog.Logger, keepAlive time.Duration) *ForumHandler {
	return &ForumHandler{
		service:   service,
		hub:       hub,
		logger:    logger.With().Str("component", "forum_handler").Logger(),
		keepAlive: keepAlive,
	}
}

// Register binds the forum routes.
func (h *ForumHandler) Register(router fiber.Router) {
	router.Get("/posts", h.listPosts)
	router.Post("/posts", h.createPost)
	router.Get("/posts/:id", h.getPost)
	router.Delete("/posts/:id", h.deletePost)
	router.Post("/posts/:id/like", h.toggleLike)
	router.Get("/posts/:id/comments", h.listComments)
	router.Post("/posts/:id/comments", h.createComment)

	router.Get("/stream", h.streamPosts)
	router.Get("/posts/:id/stream", h.streamPost)
}

func (h *ForumHandler) listPosts(c *fiber.Ctx) error {
	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}

	posts, err := h.service.ListPosts(withRequestContext(c), userIDStringFromContext(c), limit)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to load posts")
	}

	return utils.OK(c, posts, "posts", fiber.Map{"total": len(posts)})
}

func (h *ForumHandler) createPost(c *fiber.Ctx) error {
	userID := userIDStringFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	var payload dto.PostCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	post, err := h.service.CreatePost(withRequestContext(c), userID, payload)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to create post")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "post created", post)
}

func (h *ForumHandler) getPost(c *fiber.Ctx) error {
	detail, err := h.service.GetPost(withRequestContext(c), userIDStringFromContext(c), c.Params("id"))
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to load post")
	}

	return utils.SendSuccess(c, "post", detail)
}

func (h *ForumHandler) deletePost(c *fiber.Ctx) error {
	userID := userIDStringFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	if err := h.service.DeletePost(withRequestContext(c), userID, c.Params("id")); err != nil {
		return sendServiceError(c, h.logger, err, "failed to delete post")
	}

	return utils.SendSuccess(c, "post deleted", nil)
}

func (h *ForumHandler) toggleLike(c *fiber.Ctx) error {
	userID := userIDStringFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	like, err := h.service.ToggleLike(withRequestContext(c), userID, c.Params("id"))
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to update like")
	}

	return utils.SendSuccess(c, "like updated", like)
}

func (h *ForumHandler) listComments(c *fiber.Ctx) error {
	comments, err := h.service.ListComments(withRequestContext(c), userIDStringFromContext(c), c.Params("id"))
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to load comments")
	}

	return utils.OK(c, comments, "comments", fiber.Map{"total": len(comments)})
}

func (h *ForumHandler) createComment(c *fiber.Ctx) error {
	userID := userIDStringFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	var payload dto.CommentCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	comment, err := h.service.AddComment(withRequestContext(c), userID, c.Params("id"), payload)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to add comment")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "comment added", comment)
}

func (h *ForumHandler) streamPosts(c *fiber.Ctx) error {
	if h.hub == nil {
		return utils.SendError(c, fiber.StatusServiceUnavailable, "live updates unavailable")
	}
	userID := userIDStringFromContext(c)
	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}

	ctx, cancel := streamContext(c)
	updates := realtime.Watch(ctx, h.hub, realtime.TopicPosts, func(ctx context.Context) ([]dto.PostResponse, error) {
		return h.service.ListPosts(ctx, userID, limit)
	})
	streamSnapshots(c, h.logger, "posts", h.keepAlive, cancel, updates)
	return nil
}

func (h *ForumHandler) streamPost(c *fiber.Ctx) error {
	if h.hub == nil {
		return utils.SendError(c, fiber.StatusServiceUnavailable, "live updates unavailable")
	}
	userID := userIDStringFromContext(c)
	postID := c.Params("id")

	if _, err := h.service.GetPost(withRequestContext(c), userID, postID); err != nil {
		return sendServiceError(c, h.logger, err, "failed to load post")
	}

	ctx, cancel := streamContext(c)
	updates := realtime.Watch(ctx, h.hub, realtime.PostTopic(postID), func(ctx context.Context) (dto.PostDetailResponse, error) {
		return h.service.GetPost(ctx, userID, postID)
	})
	streamSnapshots(c, h.logger, "post", h.keepAlive, cancel, updates)
	return nil
}
