package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/mindful-youth-api/internal/dto"
	"github.com/noah-isme/mindful-youth-api/internal/middleware"
	"github.com/noah-isme/mindful-youth-api/internal/models"
	"github.com/noah-isme/mindful-youth-api/internal/observability"
	"github.com/noah-isme/mindful-youth-api/pkg/ai"
)

// EmotionalStateMetadataKey records the last emotional state used in a session.
const EmotionalStateMetadataKey = "emotional_state"

// ConversationService runs one chat exchange: the user's message is appended to
// the active session, the support flow is asked for a reply and the reply, or the
// apology when generation fails, is appended after it.
type ConversationService interface {
	Send(ctx context.Context, userID string, req dto.ChatSendRequest) (dto.ChatSendResponse, error)
}

type conversationService struct {
	registry  *ChatStoreRegistry
	support   SupportChatService
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewConversationService constructs the conversation service.
func NewConversationService(registry *ChatStoreRegistry, support SupportChatService, validate *validator.Validate, logger zerolog.Logger) ConversationService {
	return &conversationService{
		registry:  registry,
		support:   support,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "conversation_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/mindful-youth-api/internal/service/conversation"),
	}
}

func (s *conversationService) Send(ctx context.Context, userID string, req dto.ChatSendRequest) (dto.ChatSendResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.ChatSendResponse{}, err
	}

	content := sanitizeText(s.sanitizer, req.Content)
	if content == "" {
		return dto.ChatSendResponse{}, ErrChatMessageEmpty
	}
	emotionalState := sanitizeText(s.sanitizer, req.EmotionalState)

	ctx, span := s.tracer.Start(ctx, "chat.send", trace.WithAttributes(
		attribute.String("chat.user_id", userID),
		attribute.String("correlation_id", middleware.CorrelationIDFromContext(ctx)),
	))
	defer span.End()

	store, err := s.registry.Store(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return dto.ChatSendResponse{}, err
	}

	userMessage, err := store.AppendMessage(ctx, models.ChatRoleUser, content)
	if err != nil {
		span.RecordError(err)
		return dto.ChatSendResponse{}, err
	}

	// Other clients of the same user may switch or delete sessions while the model
	// is answering, so everything below is pinned to the session that got the message.
	sessionID := userMessage.SessionID
	span.SetAttributes(attribute.String("chat.session_id", sessionID))

	prior, err := store.SessionMessages(sessionID)
	if err != nil {
		span.RecordError(err)
		return dto.ChatSendResponse{}, err
	}
	history := historyTurns(priorMessages(prior, userMessage.ID))

	if emotionalState != "" {
		if err := store.SetSessionMetadata(ctx, sessionID, EmotionalStateMetadataKey, emotionalState); err != nil {
			s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("failed to record emotional state")
		}
	}

	fallback := false
	reply, err := s.support.Reply(ctx, SupportChatRequest{
		Message:        content,
		History:        history,
		EmotionalState: emotionalState,
	})
	if err != nil || strings.TrimSpace(reply) == "" {
		if err != nil {
			span.RecordError(err)
		}
		s.logger.Error().Err(err).
			Str("correlation_id", middleware.CorrelationIDFromContext(ctx)).
			Msg("support reply unavailable, sending apology")
		observability.ChatFallbacks().Inc()
		reply = ApologyMessage
		fallback = true
	}

	replyMessage, err := store.AppendMessageTo(ctx, sessionID, models.ChatRoleAssistant, reply)
	if err != nil {
		span.RecordError(err)
		return dto.ChatSendResponse{}, fmt.Errorf("store assistant reply: %w", err)
	}

	return dto.ChatSendResponse{
		UserMessage: userMessage,
		Reply:       replyMessage,
		Fallback:    fallback,
		State:       store.Snapshot(),
	}, nil
}

// priorMessages drops the message being answered; an otherwise empty session
// falls back to the greeting the user is replying to.
func priorMessages(messages []dto.ChatMessageView, currentID string) []dto.ChatMessageView {
	out := make([]dto.ChatMessageView, 0, len(messages))
	for _, message := range messages {
		if message.ID != currentID {
			out = append(out, message)
		}
	}
	if len(out) == 0 {
		return greetingMessages()
	}
	return out
}

// historyTurns converts the displayed conversation into model history. The greeting
// placeholder is kept so the model sees what the user is answering.
func historyTurns(messages []dto.ChatMessageView) []ai.Turn {
	turns := make([]ai.Turn, 0, len(messages))
	for _, message := range messages {
		if message.Status == dto.SyncFailed {
			continue
		}
		role := ai.RoleUser
		if message.Role == models.ChatRoleAssistant {
			role = ai.RoleAssistant
		}
		turns = append(turns, ai.Turn{Role: role, Text: message.Content})
	}
	return turns
}
