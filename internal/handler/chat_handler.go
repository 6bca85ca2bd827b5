package handler

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/mindful-youth-api/internal/dto"
	"github.com/noah-isme/mindful-youth-api/internal/middleware"
	"github.com/noah-isme/mindful-youth-api/internal/service"
	"github.com/noah-isme/mindful-youth-api/internal/utils"
)

// ChatHandler wires the support chat: session management, sending messages and
// the websocket stream of chat-store snapshots.
type ChatHandler struct {
	registry     *service.ChatStoreRegistry
	conversation service.ConversationService
	validator    *validator.Validate
	logger       zerolog.Logger
	pingInterval time.Duration
}

// NewChatHandler creates a chat handler instance.
func NewChatHandler(registry *service.ChatStoreRegistry, conversation service.ConversationService, validator *validator.Validate, logger zerolog.Logger, pingInterval time.Duration) *ChatHandler {
	if pingInterval <= 0 {
		pingInterval = defaultKeepAlive
	}
	return &ChatHandler{
		registry:     registry,
		conversation: conversation,
		validator:    validator,
		logger:       logger.With().Str("component", "chat_handler").Logger(),
		pingInterval: pingInterval,
	}
}

// Register binds chat routes under the provided router group.
func (h *ChatHandler) Register(router fiber.Router) {
	router.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	router.Get("/ws", middleware.WithAuth(websocket.New(h.handleConnection), middleware.AuthOptions{RequireUser: true}))

	router.Get("/state", h.state)
	router.Post("/messages", h.send)

	router.Get("/sessions", h.listSessions)
	router.Post("/sessions", h.createSession)
	router.Post("/sessions/:id/select", h.selectSession)
	router.Patch("/sessions/:id", h.renameSession)
	router.Delete("/sessions/:id", h.deleteSession)
}

func (h *ChatHandler) store(c *fiber.Ctx) (*service.ChatSessionStore, error) {
	userID := userIDStringFromContext(c)
	if userID == "" {
		return nil, utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}
	store, err := h.registry.Store(withRequestContext(c), userID)
	if err != nil {
		return nil, sendServiceError(c, h.logger, err, "failed to load chat sessions")
	}
	return store, nil
}

func (h *ChatHandler) state(c *fiber.Ctx) error {
	store, err := h.store(c)
	if store == nil {
		return err
	}
	return utils.SendSuccess(c, "chat state", store.Snapshot())
}

func (h *ChatHandler) send(c *fiber.Ctx) error {
	userID := userIDStringFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	var payload dto.ChatSendRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	response, err := h.conversation.Send(withRequestContext(c), userID, payload)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to send message")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "message sent", response)
}

// listSessions reloads from storage so sessions written by other nodes show up.
func (h *ChatHandler) listSessions(c *fiber.Ctx) error {
	store, err := h.store(c)
	if store == nil {
		return err
	}
	if err := store.LoadSessions(withRequestContext(c)); err != nil {
		return sendServiceError(c, h.logger, err, "failed to load chat sessions")
	}

	state := store.Snapshot()
	return utils.OK(c, state, "chat sessions", fiber.Map{"total": len(state.Sessions)})
}

func (h *ChatHandler) createSession(c *fiber.Ctx) error {
	store, err := h.store(c)
	if store == nil {
		return err
	}
	if _, err := store.CreateSession(withRequestContext(c)); err != nil {
		return sendServiceError(c, h.logger, err, "failed to create chat session")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "chat session created", store.Snapshot())
}

func (h *ChatHandler) selectSession(c *fiber.Ctx) error {
	store, err := h.store(c)
	if store == nil {
		return err
	}
	if err := store.SelectSession(c.Params("id")); err != nil {
		return sendServiceError(c, h.logger, err, "failed to select chat session")
	}
	return utils.SendSuccess(c, "chat session selected", store.Snapshot())
}

func (h *ChatHandler) renameSession(c *fiber.Ctx) error {
	store, err := h.store(c)
	if store == nil {
		return err
	}

	var payload dto.ChatRenameRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	if err := h.validator.Struct(payload); err != nil {
		return sendServiceError(c, h.logger, err, "invalid session name")
	}

	if err := store.RenameSession(withRequestContext(c), c.Params("id"), payload.Name); err != nil {
		return sendServiceError(c, h.logger, err, "failed to rename chat session")
	}
	return utils.SendSuccess(c, "chat session renamed", store.Snapshot())
}

func (h *ChatHandler) deleteSession(c *fiber.Ctx) error {
	store, err := h.store(c)
	if store == nil {
		return err
	}
	if err := store.DeleteSession(withRequestContext(c), c.Params("id")); err != nil {
		return sendServiceError(c, h.logger, err, "failed to delete chat session")
	}
	return utils.SendSuccess(c, "chat session deleted", store.Snapshot())
}

func (h *ChatHandler) handleConnection(conn *websocket.Conn) {
	userID, _ := conn.Locals("user_id").(string)
	correlation, _ := conn.Locals("correlation_id").(string)
	logger := h.logger.With().Str("user_id", userID).Str("correlation_id", correlation).Logger()

	ctx, cancel := context.WithCancel(middleware.ContextWithCorrelation(context.Background(), correlation))
	defer cancel()

	store, err := h.registry.Store(ctx, userID)
	if err != nil {
		logger.Error().Err(err).Msg("failed to load chat store for websocket")
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "chat unavailable"))
		_ = conn.Close()
		return
	}

	// Inbound frames are ignored; reading detects the client closing the socket.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	logger.Info().Msg("chat websocket connected")
	defer logger.Info().Msg("chat websocket disconnected")

	updates := store.Subscribe(ctx)
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case state, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(chatStreamEvent{Type: "state", Data: state}); err != nil {
				logger.Debug().Err(err).Msg("failed to write chat snapshot")
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

type chatStreamEvent struct {
	Type string        `json:"type"`
	Data dto.ChatState `json:"data"`
}
