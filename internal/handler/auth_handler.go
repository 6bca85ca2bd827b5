package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/mindful-youth-api/internal/dto"
	"github.com/noah-isme/mindful-youth-api/internal/middleware"
	"github.com/noah-isme/mindful-youth-api/internal/service"
	"github.com/noah-isme/mindful-youth-api/internal/utils"
)

// AuthHandler exposes sign-up, sign-in and token management.
type AuthHandler struct {
	service  service.AuthService
	registry *service.ChatStoreRegistry
	logger   zerolog.Logger
}

// NewAuthHandler constructs an auth handler. registry may be nil; when set, the
// caller's chat store is dropped on sign-out.
func NewAuthHandler(service service.AuthService, registry *service.ChatStoreRegistry, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		service:  service,
		registry: registry,
		logger:   logger.With().Str("component", "auth_handler").Logger(),
	}
}

// Register binds the auth routes. protect guards the routes that need a signed-in user.
func (h *AuthHandler) Register(router fiber.Router, protect fiber.Handler) {
	router.Post("/signup", h.signUp)
	router.Post("/login", h.login)
	router.Post("/refresh", h.refresh)

	router.Post("/logout", protect, h.logout)
	router.Get("/me", protect, h.me)
}

func (h *AuthHandler) signUp(c *fiber.Ctx) error {
	var payload dto.SignUpRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	response, err := h.service.SignUp(withRequestContext(c), payload)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to create account")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "account created", response)
}

func (h *AuthHandler) login(c *fiber.Ctx) error {
	var payload dto.LoginRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	response, err := h.service.Login(withRequestContext(c), payload)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to sign in")
	}

	return utils.SendSuccess(c, "signed in", response)
}

func (h *AuthHandler) refresh(c *fiber.Ctx) error {
	var payload dto.RefreshRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	response, err := h.service.Refresh(withRequestContext(c), payload)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to refresh token")
	}

	return utils.SendSuccess(c, "token refreshed", response)
}

func (h *AuthHandler) logout(c *fiber.Ctx) error {
	userID := userIDStringFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	var payload struct {
		RefreshToken string `json:"refresh_token"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payload); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
		}
	}

	err := h.service.Logout(withRequestContext(c), middleware.TokenIDFromContext(c), middleware.TokenExpiryFromContext(c), payload.RefreshToken)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to sign out")
	}

	if h.registry != nil {
		h.registry.Evict(userID)
	}
	requestLogger(h.logger, c).Info().Str("user_id", userID).Msg("signed out")

	return utils.SendSuccess(c, "signed out", nil)
}

func (h *AuthHandler) me(c *fiber.Ctx) error {
	userID := userIDStringFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	profile, err := h.service.Me(withRequestContext(c), userID)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to load account")
	}

	return utils.SendSuccess(c, "current user", profile)
}
