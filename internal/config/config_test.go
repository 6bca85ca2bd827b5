package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("MINDFUL_JWT_SECRET", "access")
	t.Setenv("MINDFUL_JWT_REFRESH_SECRET", "refresh")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "Mindful Youth API", cfg.AppName)
	require.Equal(t, ":8080", cfg.HTTPAddress())
	require.Equal(t, "gemini", cfg.AIProvider)
	require.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	require.Equal(t, 5, cfg.AvatarMaxSizeMB)
	require.Equal(t, 10, cfg.AuthRateLimit)
	require.Equal(t, 30*time.Minute, cfg.ChatStoreIdleTTL)
	require.False(t, cfg.SeedEnabled)
}

func TestLoadRequiresJWTSecrets(t *testing.T) {
	t.Setenv("MINDFUL_JWT_SECRET", "")
	t.Setenv("MINDFUL_JWT_REFRESH_SECRET", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	t.Setenv("MINDFUL_JWT_SECRET", "access")
	t.Setenv("MINDFUL_JWT_REFRESH_SECRET", "refresh")
	t.Setenv("MINDFUL_AI_PROVIDER", "Parrot")

	_, err := Load()
	require.ErrorContains(t, err, "unsupported ai provider")
}

func TestLoadParsesDurations(t *testing.T) {
	t.Setenv("MINDFUL_JWT_SECRET", "access")
	t.Setenv("MINDFUL_JWT_REFRESH_SECRET", "refresh")
	t.Setenv("MINDFUL_JWT_ACCESS_TTL", "bogus")

	_, err := Load()
	require.ErrorContains(t, err, "invalid jwt.access_ttl")
}
