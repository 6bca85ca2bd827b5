package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/mindful-youth-api/internal/dto"
	"github.com/noah-isme/mindful-youth-api/internal/service"
	"github.com/noah-isme/mindful-youth-api/internal/utils"
)

// AccountHandler serves the account settings page.
type AccountHandler struct {
	service service.ProfileService
	logger  zerolog.Logger
}

// NewAccountHandler constructs an account handler.
func NewAccountHandler(service service.ProfileService, logger zerolog.Logger) *AccountHandler {
	return &AccountHandler{
		service: service,
		logger:  logger.With().Str("component", "account_handler").Logger(),
	}
}

// Register binds the account routes.
func (h *AccountHandler) Register(router fiber.Router) {
	router.Get("/", h.get)
	router.Put("/", h.update)
	router.Post("/photo", h.uploadPhoto)
}

func (h *AccountHandler) get(c *fiber.Ctx) error {
	userID := userIDStringFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	profile, err := h.service.Get(withRequestContext(c), userID)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to load account")
	}

	return utils.SendSuccess(c, "account", profile)
}

func (h *AccountHandler) update(c *fiber.Ctx) error {
	userID := userIDStringFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	var payload dto.ProfileUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	profile, err := h.service.Update(withRequestContext(c), userID, payload)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to update account")
	}

	return utils.SendSuccess(c, "account updated", profile)
}

func (h *AccountHandler) uploadPhoto(c *fiber.Ctx) error {
	userID := userIDStringFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	file, err := c.FormFile("photo")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, service.ErrAvatarRequired.Error())
	}

	profile, err := h.service.UploadPhoto(withRequestContext(c), userID, file)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to upload profile picture")
	}

	return utils.SendSuccess(c, "profile picture updated", profile)
}
