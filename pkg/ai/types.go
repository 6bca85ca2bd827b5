package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message of prior conversation history.
type Turn struct {
	Role Role
	Text string
}

// Prompt is everything a generator needs for a single completion.
type Prompt struct {
	SystemInstruction string
	History           []Turn
	Message           string
}

// Generator produces a reply for a prompt with one call to a hosted model.
type Generator interface {
	Generate(ctx context.Context, prompt Prompt) (string, error)
	Model() string
}

// Config selects and configures a generator implementation.
type Config struct {
	Provider     string
	Model        string
	OpenAIAPIKey string
	GeminiAPIKey string
	Logger       zerolog.Logger
}

// NewGenerator builds the generator for the configured provider.
func NewGenerator(ctx context.Context, cfg Config) (Generator, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "gemini":
		return NewGeminiGenerator(ctx, GeminiConfig{
			APIKey: cfg.GeminiAPIKey,
			Model:  cfg.Model,
			Logger: cfg.Logger,
		})
	case "openai":
		return NewOpenAIGenerator(OpenAIConfig{
			APIKey: cfg.OpenAIAPIKey,
			Model:  cfg.Model,
			Logger: cfg.Logger,
		})
	default:
		return nil, fmt.Errorf("unsupported ai provider %q", cfg.Provider)
	}
}

// ErrUnavailable is returned by the generator used when no provider could be configured.
var ErrUnavailable = errors.New("ai generator unavailable")

type unavailableGenerator struct {
	reason error
}

// Unavailable returns a generator that fails every call, so chat degrades to its
// fallback reply instead of the server refusing to start.
func Unavailable(reason error) Generator {
	return unavailableGenerator{reason: reason}
}

func (g unavailableGenerator) Generate(context.Context, Prompt) (string, error) {
	if g.reason != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, g.reason)
	}
	return "", ErrUnavailable
}

func (unavailableGenerator) Model() string {
	return "unavailable"
}
