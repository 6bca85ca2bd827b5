package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName                string
	AppEnv                 string
	AppPort                string
	DatabaseURL            string
	RedisURL               string
	NATSURL                string
	RealtimeChannel        string
	JWTSecret              string
	JWTRefreshSecret       string
	AccessTokenTTL         time.Duration
	RefreshTokenTTL        time.Duration
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
	AvatarMaxSizeMB        int
	AIProvider             string
	AIModel                string
	OpenAIAPIKey           string
	GeminiAPIKey           string
	ChatRateLimit          int
	ChatRateWindow         time.Duration
	ChatStoreIdleTTL       time.Duration
	AuthRateLimit          int
	AuthRateWindow         time.Duration
	StreamKeepAlive        time.Duration
	SeedEnabled            bool
	SeedToken              string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// IsProduction reports whether the service runs with production settings.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("MINDFUL")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Mindful Youth API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("database.url", "sqlite://mindful.db")
	v.SetDefault("realtime.channel", "mindful")
	v.SetDefault("jwt.access_ttl", "15m")
	v.SetDefault("jwt.refresh_ttl", "720h")
	v.SetDefault("cloudinary.folder", "mindful/avatars")
	v.SetDefault("avatar.max_size_mb", 5)
	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("chat.rate_limit", 20)
	v.SetDefault("chat.rate_window", "1m")
	v.SetDefault("chat.store_idle_ttl", "30m")
	v.SetDefault("auth.rate_limit", 10)
	v.SetDefault("auth.rate_window", "1m")
	v.SetDefault("stream.keepalive", "30s")
	v.SetDefault("seed.enabled", false)

	accessTTL, err := parseDuration(v, "jwt.access_ttl", 15*time.Minute)
	if err != nil {
		return Config{}, err
	}
	refreshTTL, err := parseDuration(v, "jwt.refresh_ttl", 30*24*time.Hour)
	if err != nil {
		return Config{}, err
	}
	chatWindow, err := parseDuration(v, "chat.rate_window", time.Minute)
	if err != nil {
		return Config{}, err
	}
	storeIdle, err := parseDuration(v, "chat.store_idle_ttl", 30*time.Minute)
	if err != nil {
		return Config{}, err
	}
	authWindow, err := parseDuration(v, "auth.rate_window", time.Minute)
	if err != nil {
		return Config{}, err
	}
	keepAlive, err := parseDuration(v, "stream.keepalive", 30*time.Second)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		NATSURL:                v.GetString("nats.url"),
		RealtimeChannel:        v.GetString("realtime.channel"),
		JWTSecret:              v.GetString("jwt.secret"),
		JWTRefreshSecret:       v.GetString("jwt.refresh_secret"),
		AccessTokenTTL:         accessTTL,
		RefreshTokenTTL:        refreshTTL,
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
		AvatarMaxSizeMB:        v.GetInt("avatar.max_size_mb"),
		AIProvider:             strings.ToLower(strings.TrimSpace(v.GetString("ai.provider"))),
		AIModel:                v.GetString("ai.model"),
		OpenAIAPIKey:           v.GetString("openai_api_key"),
		GeminiAPIKey:           v.GetString("gemini_api_key"),
		ChatRateLimit:          v.GetInt("chat.rate_limit"),
		ChatRateWindow:         chatWindow,
		ChatStoreIdleTTL:       storeIdle,
		AuthRateLimit:          v.GetInt("auth.rate_limit"),
		AuthRateWindow:         authWindow,
		StreamKeepAlive:        keepAlive,
		SeedEnabled:            v.GetBool("seed.enabled"),
		SeedToken:              v.GetString("seed.token"),
	}

	if cfg.JWTSecret == "" || cfg.JWTRefreshSecret == "" {
		return Config{}, fmt.Errorf("jwt secrets must be provided")
	}

	switch cfg.AIProvider {
	case "gemini", "openai":
	default:
		return Config{}, fmt.Errorf("unsupported ai provider %q", cfg.AIProvider)
	}

	if cfg.AvatarMaxSizeMB <= 0 {
		cfg.AvatarMaxSizeMB = 5
	}

	if cfg.ChatRateLimit <= 0 {
		cfg.ChatRateLimit = 20
	}

	if cfg.AuthRateLimit <= 0 {
		cfg.AuthRateLimit = 10
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return fallback, nil
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if parsed <= 0 {
		return fallback, nil
	}

	return parsed, nil
}
