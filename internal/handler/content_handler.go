package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/mindful-youth-api/internal/service"
	"github.com/noah-isme/mindful-youth-api/internal/utils"
)

// ContentHandler serves the knowledge base and the resource directory.
type ContentHandler struct {
	service service.ContentService
	logger  zerolog.Logger
}

// NewContentHandler constructs a content handler.
func NewContentHandler(service service.ContentService, logger zerolog.Logger) *ContentHandler {
	return &ContentHandler{
		service: service,
		logger:  logger.With().Str("component", "content_handler").Logger(),
	}
}

// Register binds the public content routes.
func (h *ContentHandler) Register(router fiber.Router) {
	router.Get("/knowledge-base", h.knowledgeBase)
	router.Get("/resources", h.resources)
}

func (h *ContentHandler) knowledgeBase(c *fiber.Ctx) error {
	response, err := h.service.KnowledgeBase(withRequestContext(c), c.Query("q"))
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to load knowledge base")
	}

	return utils.OK(c, response, "knowledge base", fiber.Map{"total": response.Total})
}

func (h *ContentHandler) resources(c *fiber.Ctx) error {
	resources, err := h.service.Resources(withRequestContext(c))
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to load resources")
	}

	return utils.OK(c, resources, "resources", fiber.Map{"total": len(resources)})
}
