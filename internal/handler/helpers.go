package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/mindful-youth-api/internal/middleware"
	"github.com/noah-isme/mindful-youth-api/internal/service"
	"github.com/noah-isme/mindful-youth-api/internal/utils"
)

const defaultKeepAlive = 30 * time.Second

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

func userIDStringFromContext(c *fiber.Ctx) string {
	if v := c.Locals("user_id"); v != nil {
		switch id := v.(type) {
		case string:
			return strings.TrimSpace(id)
		case fmt.Stringer:
			return strings.TrimSpace(id.String())
		}
	}
	return ""
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func withRequestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
}

// streamContext outlives the handler call; the body stream writer runs after the
// handler has returned and fasthttp recycles the request context.
func streamContext(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	ctx := middleware.ContextWithCorrelation(context.Background(), middleware.GetCorrelationID(c))
	return context.WithCancel(ctx)
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

// validationDetails lists the failing fields as field -> rule.
func validationDetails(err error) map[string]string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}
	details := make(map[string]string, len(validationErrors))
	for _, fieldErr := range validationErrors {
		details[strings.ToLower(fieldErr.Field())] = fieldErr.Tag()
	}
	return details
}

// statusForError maps service errors onto HTTP statuses.
func statusForError(err error) int {
	switch {
	case isValidationError(err),
		errors.Is(err, service.ErrChatMessageEmpty),
		errors.Is(err, service.ErrChatRoleInvalid),
		errors.Is(err, service.ErrForumContentEmpty),
		errors.Is(err, service.ErrAvatarRequired),
		errors.Is(err, service.ErrSeedInvalidBundle):
		return fiber.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidToken):
		return fiber.StatusUnauthorized
	case errors.Is(err, service.ErrForumForbidden),
		errors.Is(err, service.ErrSeedDisabled),
		errors.Is(err, service.ErrSeedUnauthorized):
		return fiber.StatusForbidden
	case errors.Is(err, gorm.ErrRecordNotFound),
		errors.Is(err, service.ErrChatSessionNotLoaded):
		return fiber.StatusNotFound
	case errors.Is(err, service.ErrEmailTaken):
		return fiber.StatusConflict
	case errors.Is(err, service.ErrAvatarTooLarge):
		return fiber.StatusRequestEntityTooLarge
	case errors.Is(err, service.ErrAvatarTypeNotAllowed):
		return fiber.StatusUnsupportedMediaType
	case errors.Is(err, service.ErrAvatarStorageUnavailable):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// sendServiceError writes the envelope for err. Backend failures are logged and
// reported with a generic message.
func sendServiceError(c *fiber.Ctx, logger zerolog.Logger, err error, fallback string) error {
	status := statusForError(err)
	switch {
	case status == fiber.StatusBadRequest && isValidationError(err):
		return utils.Fail(c, status, "validation failed", validationDetails(err))
	case errors.Is(err, gorm.ErrRecordNotFound):
		return utils.SendError(c, status, "not found")
	case status >= fiber.StatusInternalServerError && status != fiber.StatusServiceUnavailable:
		requestLogger(logger, c).Error().Err(err).Msg(fallback)
		return utils.SendError(c, status, fallback)
	default:
		return utils.SendError(c, status, err.Error())
	}
}

func setEventStreamHeaders(c *fiber.Ctx) {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")
}

// streamSnapshots writes every value from updates as an SSE event until the
// client goes away or updates closes.
func streamSnapshots[T any](c *fiber.Ctx, logger zerolog.Logger, event string, keepAlive time.Duration, cancel context.CancelFunc, updates <-chan T) {
	if keepAlive <= 0 {
		keepAlive = defaultKeepAlive
	}

	setEventStreamHeaders(c)
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()

		ticker := time.NewTicker(keepAlive)
		defer ticker.Stop()

		for {
			select {
			case snapshot, ok := <-updates:
				if !ok {
					return
				}
				if err := writeEvent(w, event, snapshot); err != nil {
					logger.Debug().Err(err).Str("event", event).Msg("failed to write stream event")
					return
				}
			case <-ticker.C:
				if err := writeKeepAlive(w); err != nil {
					logger.Debug().Err(err).Str("event", event).Msg("failed to write stream keepalive")
					return
				}
			}
		}
	})
}

func writeEvent(w *bufio.Writer, event string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "event: %s\n", event); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	return w.Flush()
}

func writeKeepAlive(w *bufio.Writer) error {
	if _, err := fmt.Fprintf(w, ": keep-alive %s\n\n", time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	return w.Flush()
}
