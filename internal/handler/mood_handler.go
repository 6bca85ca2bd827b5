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

// MoodHandler serves the mood tracker.
type MoodHandler struct {
	service   service.MoodService
	hub       *realtime.Hub
	logger    zerolog.Logger
	keepAlive time.Duration
}

// NewMoodHandler constructs a handler instance. hub may be nil, which disables the stream.
func NewMoodHandler(service service.MoodService, hub *realtime.Hub, logger zerolog.Logger, keepAlive time.Duration) *MoodHandler {
	return &MoodHandler{
		service:   service,
		hub:       hub,
		logger:    logger.With().Str("component", "mood_handler").Logger(),
		keepAlive: keepAlive,
	}
}

// Register binds the mood routes.
func (h *MoodHandler) Register(router fiber.Router) {
	router.Get("/", h.list)
	router.Post("/", h.create)
	router.Get("/streak", h.streak)
	router.Get("/stream", h.stream)
}

func (h *MoodHandler) list(c *fiber.Ctx) error {
	userID := userIDStringFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}
	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}

	entries, err := h.service.List(withRequestContext(c), userID, limit)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to load mood entries")
	}

	return utils.OK(c, entries, "mood entries", fiber.Map{"total": len(entries)})
}

func (h *MoodHandler) create(c *fiber.Ctx) error {
	userID := userIDStringFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	var payload dto.MoodCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	entry, err := h.service.Create(withRequestContext(c), userID, payload)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to save mood entry")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "mood saved", entry)
}

func (h *MoodHandler) streak(c *fiber.Ctx) error {
	userID := userIDStringFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	streak, err := h.service.Streak(withRequestContext(c), userID)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to compute streak")
	}

	return utils.SendSuccess(c, "mood streak", streak)
}

func (h *MoodHandler) stream(c *fiber.Ctx) error {
	userID := userIDStringFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}
	if h.hub == nil {
		return utils.SendError(c, fiber.StatusServiceUnavailable, "live updates unavailable")
	}

	ctx, cancel := streamContext(c)
	updates := realtime.Watch(ctx, h.hub, realtime.MoodTopic(userID), func(ctx context.Context) ([]dto.MoodEntryResponse, error) {
		return h.service.List(ctx, userID, 0)
	})
	streamSnapshots(c, h.logger, "moods", h.keepAlive, cancel, updates)
	return nil
}
