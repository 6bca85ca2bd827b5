package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/mindful-youth-api/internal/service"
	"github.com/noah-isme/mindful-youth-api/internal/utils"
)

// SeedHandler exposes tooling endpoints for seeding data.
type SeedHandler struct {
	service service.SeedService
	logger  zerolog.Logger
}

// NewSeedHandler constructs a seed handler.
func NewSeedHandler(service service.SeedService, logger zerolog.Logger) *SeedHandler {
	return &SeedHandler{
		service: service,
		logger:  logger.With().Str("component", "seed_handler").Logger(),
	}
}

// Register wires seed routes.
func (h *SeedHandler) Register(router fiber.Router) {
	router.Post("/sample", h.sample)
	router.Post("/bundle", h.bundle)
}

func (h *SeedHandler) sample(c *fiber.Ctx) error {
	result, err := h.service.SeedSample(withRequestContext(c), c.Get("X-Seed-Token"))
	if err != nil {
		return h.seedError(c, err)
	}

	return utils.SendSuccess(c, "sample data seeded", result)
}

func (h *SeedHandler) bundle(c *fiber.Ctx) error {
	body := c.Body()
	if len(body) == 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	result, err := h.service.SeedBundle(withRequestContext(c), c.Get("X-Seed-Token"), body)
	if err != nil {
		return h.seedError(c, err)
	}

	return utils.SendSuccess(c, "bundle seeded", result)
}

func (h *SeedHandler) seedError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrSeedDisabled):
		return utils.SendError(c, fiber.StatusForbidden, "seeding disabled")
	case errors.Is(err, service.ErrSeedUnauthorized):
		return utils.SendError(c, fiber.StatusForbidden, "invalid token")
	case errors.Is(err, service.ErrSeedInvalidBundle):
		return utils.Fail(c, fiber.StatusBadRequest, "invalid seed bundle", fiber.Map{"reason": err.Error()})
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("seed operation failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "seed operation failed")
	}
}
