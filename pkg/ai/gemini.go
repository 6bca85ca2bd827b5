package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"
)

// GeminiConfig defines configuration options for the Gemini generator.
type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Logger  zerolog.Logger
}

// GeminiGenerator implements Generator against the Gemini API.
type GeminiGenerator struct {
	client *genai.Client
	model  string
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewGeminiGenerator creates a Gemini client for the configured model.
func NewGeminiGenerator(ctx context.Context, cfg GeminiConfig) (*GeminiGenerator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiGenerator{
		client: client,
		model:  cfg.Model,
		tracer: otel.Tracer("github.com/noah-isme/mindful-youth-api/pkg/ai/gemini"),
		logger: cfg.Logger.With().Str("component", "gemini_generator").Logger(),
	}, nil
}

// Model returns the configured model name.
func (g *GeminiGenerator) Model() string {
	return g.model
}

// Generate sends the conversation to Gemini and returns the reply text verbatim.
func (g *GeminiGenerator) Generate(parent context.Context, prompt Prompt) (string, error) {
	ctx, span := g.tracer.Start(parent, "gemini.generate", trace.WithAttributes(
		attribute.String("model", g.model),
		attribute.Int("history_turns", len(prompt.History)),
	))
	defer span.End()

	contents := make([]*genai.Content, 0, len(prompt.History)+1)
	for _, turn := range prompt.History {
		role := genai.Role(genai.RoleUser)
		if turn.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(turn.Text, role))
	}
	contents = append(contents, genai.NewContentFromText(prompt.Message, genai.RoleUser))

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(prompt.SystemInstruction, genai.RoleUser),
	}

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	generationDuration.WithLabelValues("gemini", g.model).Observe(time.Since(start).Seconds())
	if err != nil {
		return "", g.fail(span, fmt.Errorf("gemini generate: %w", err))
	}

	text := resp.Text()
	if text == "" {
		return "", g.fail(span, fmt.Errorf("no text returned from gemini"))
	}

	g.logger.Debug().Int("candidates", len(resp.Candidates)).Msg("gemini reply generated")

	return text, nil
}

func (g *GeminiGenerator) fail(span trace.Span, err error) error {
	generationFailures.WithLabelValues("gemini", g.model).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
