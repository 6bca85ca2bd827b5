package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/mindful-youth-api/pkg/ai"
)

// SupportSystemInstruction frames every support conversation.
const SupportSystemInstruction = `You are an AI-powered support chat assistant designed to provide immediate emotional support to young people. You understand natural language, remember past interactions, and adapt your responses to the user's emotional state. You maintain the user's anonymity and create a safe, judgment-free space.

Here are some guidelines:
- Always be supportive, empathetic, and encouraging.
- Acknowledge and validate the user's feelings.
- Provide comprehensive, open, and thoughtful responses. Avoid short, simple answers.
- Be proactive in offering insights, different perspectives, and gentle guidance.
- Ask clarifying questions only when truly necessary to understand the core issue. Your goal is to support, not to interrogate.
- If the user is in crisis, provide crisis hotline information.
- Maintain a non-clinical, humanized, and conversational approach.
`

// ApologyMessage replaces the assistant reply when generation fails.
const ApologyMessage = "I'm having a little trouble connecting right now. Please try again in a moment."

// SupportChatRequest is the input for one assistant reply.
type SupportChatRequest struct {
	Message        string
	History        []ai.Turn
	EmotionalState string
}

// SupportChatService produces a single assistant reply.
type SupportChatService interface {
	Reply(ctx context.Context, req SupportChatRequest) (string, error)
}

type supportChatService struct {
	generator ai.Generator
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewSupportChatService wires the support flow to a generation backend.
func NewSupportChatService(generator ai.Generator, logger zerolog.Logger) SupportChatService {
	return &supportChatService{
		generator: generator,
		logger:    logger.With().Str("component", "support_chat_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/mindful-youth-api/internal/service/support_chat"),
	}
}

// BuildSystemInstruction appends the emotional-state sentence when a state is given.
func BuildSystemInstruction(emotionalState string) string {
	instruction := SupportSystemInstruction
	if state := strings.TrimSpace(emotionalState); state != "" {
		instruction += fmt.Sprintf("\nThe user's current emotional state is: %s. Please tailor your response to be mindful of this.", state)
	}
	return instruction
}

// NormalizeTurns drops empty turns and merges consecutive turns of the same role
// with a blank line so the history strictly alternates.
func NormalizeTurns(turns []ai.Turn) []ai.Turn {
	out := make([]ai.Turn, 0, len(turns))
	for _, turn := range turns {
		text := strings.TrimSpace(turn.Text)
		if text == "" {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Role == turn.Role {
			out[n-1].Text += "\n\n" + text
			continue
		}
		out = append(out, ai.Turn{Role: turn.Role, Text: text})
	}
	return out
}

func (s *supportChatService) Reply(ctx context.Context, req SupportChatRequest) (string, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return "", ErrChatMessageEmpty
	}

	history := NormalizeTurns(req.History)
	ctx, span := s.tracer.Start(ctx, "support_chat.reply", trace.WithAttributes(
		attribute.String("ai.model", s.generator.Model()),
		attribute.Int("chat.history_turns", len(history)),
		attribute.Bool("chat.emotional_state", strings.TrimSpace(req.EmotionalState) != ""),
	))
	defer span.End()

	reply, err := s.generator.Generate(ctx, ai.Prompt{
		SystemInstruction: BuildSystemInstruction(req.EmotionalState),
		History:           history,
		Message:           message,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		return "", fmt.Errorf("generate support reply: %w", err)
	}

	return reply, nil
}
