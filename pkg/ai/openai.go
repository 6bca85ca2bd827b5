package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OpenAIConfig defines configuration options for the OpenAI generator.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	MaxTokens   int
	Temperature float32
	Logger      zerolog.Logger
}

// OpenAIGenerator implements Generator against the OpenAI chat completion API.
type OpenAIGenerator struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIGenerator builds a new generator using the provided configuration.
func NewOpenAIGenerator(cfg OpenAIConfig) (*OpenAIGenerator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 1024
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	return &OpenAIGenerator{
		client: openai.NewClientWithConfig(config),
		cfg:    cfg,
		tracer: otel.Tracer("github.com/noah-isme/mindful-youth-api/pkg/ai/openai"),
		logger: cfg.Logger.With().Str("component", "openai_generator").Logger(),
	}, nil
}

// Model returns the configured model name.
func (g *OpenAIGenerator) Model() string {
	return g.cfg.Model
}

// Generate sends the conversation to OpenAI and returns the reply text verbatim.
func (g *OpenAIGenerator) Generate(parent context.Context, prompt Prompt) (string, error) {
	ctx, span := g.tracer.Start(parent, "openai.generate", trace.WithAttributes(
		attribute.String("model", g.cfg.Model),
		attribute.Int("history_turns", len(prompt.History)),
	))
	defer span.End()

	messages := make([]openai.ChatCompletionMessage, 0, len(prompt.History)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: prompt.SystemInstruction,
	})
	for _, turn := range prompt.History {
		role := openai.ChatMessageRoleUser
		if turn.Role == RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: turn.Text})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt.Message,
	})

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.cfg.Model,
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
		Messages:    messages,
	})
	generationDuration.WithLabelValues("openai", g.cfg.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		return "", g.fail(span, fmt.Errorf("openai generate: %w", err))
	}

	if len(resp.Choices) == 0 {
		return "", g.fail(span, fmt.Errorf("no choices returned from openai"))
	}

	g.logger.Debug().Int("total_tokens", resp.Usage.TotalTokens).Msg("openai reply generated")

	return resp.Choices[0].Message.Content, nil
}

func (g *OpenAIGenerator) fail(span trace.Span, err error) error {
	generationFailures.WithLabelValues("openai", g.cfg.Model).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
