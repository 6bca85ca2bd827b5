package service

import (
	"context"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/mindful-youth-api/internal/models"
	"github.com/noah-isme/mindful-youth-api/pkg/ai"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func testValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

type publisherStub struct {
	mu     sync.Mutex
	topics []string
}

func (p *publisherStub) Publish(_ context.Context, topics ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topics...)
}

func (p *publisherStub) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.topics...)
}

type generatorStub struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []ai.Prompt
}

func (g *generatorStub) Generate(_ context.Context, prompt ai.Prompt) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	return g.reply, nil
}

func (g *generatorStub) Model() string {
	return "stub-model"
}

func (g *generatorStub) lastPrompt() ai.Prompt {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.prompts) == 0 {
		return ai.Prompt{}
	}
	return g.prompts[len(g.prompts)-1]
}
