package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/mindful-youth-api/internal/config"
	"github.com/noah-isme/mindful-youth-api/internal/database"
	"github.com/noah-isme/mindful-youth-api/internal/handler"
	"github.com/noah-isme/mindful-youth-api/internal/middleware"
	"github.com/noah-isme/mindful-youth-api/internal/models"
	"github.com/noah-isme/mindful-youth-api/internal/realtime"
	"github.com/noah-isme/mindful-youth-api/internal/repository"
	"github.com/noah-isme/mindful-youth-api/internal/router"
	"github.com/noah-isme/mindful-youth-api/internal/service"
	"github.com/noah-isme/mindful-youth-api/pkg/ai"
	cloud "github.com/noah-isme/mindful-youth-api/pkg/cloudinary"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("app", cfg.AppName).Logger()
	if !cfg.IsProduction() {
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}

	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(models.All()...); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(rootCtx, cfg.RedisURL)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, continuing without cache and shared revocations")
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable, realtime fan-out limited")
			natsConn = nil
		} else {
			defer natsConn.Close()
		}
	}

	hub := realtime.NewHub(redisClient, cfg.RealtimeChannel, natsConn, logger)
	hub.Start(rootCtx)

	generator, err := ai.NewGenerator(rootCtx, ai.Config{
		Provider:     cfg.AIProvider,
		Model:        cfg.AIModel,
		OpenAIAPIKey: cfg.OpenAIAPIKey,
		GeminiAPIKey: cfg.GeminiAPIKey,
		Logger:       logger,
	})
	if err != nil {
		logger.Warn().Err(err).Str("provider", cfg.AIProvider).Msg("ai provider not configured, chat replies use the fallback message")
		generator = ai.Unavailable(err)
	}

	var storage service.FileStorage
	uploader, err := cloud.New(cloud.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryUploadFolder,
	}, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("cloudinary not configured, profile picture uploads disabled")
	} else {
		storage = uploader
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	userRepo := repository.NewUserRepository(db)
	chatRepo := repository.NewChatRepository(db)
	postRepo := repository.NewPostRepository(db)
	moodRepo := repository.NewMoodRepository(db)

	var blocklist service.TokenBlocklist
	if redisClient != nil {
		blocklist = service.NewRedisTokenBlocklist(redisClient, cfg.RealtimeChannel)
	} else {
		blocklist = service.NewMemoryTokenBlocklist()
	}

	authService := service.NewAuthService(userRepo, blocklist, service.AuthConfig{
		AccessSecret:  cfg.JWTSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
		Issuer:        cfg.AppName,
	}, validate, logger)

	chatRegistry := service.NewChatStoreRegistry(chatRepo, logger)
	chatRegistry.StartSweeper(rootCtx, cfg.ChatStoreIdleTTL)
	supportChat := service.NewSupportChatService(generator, logger)
	conversationService := service.NewConversationService(chatRegistry, supportChat, validate, logger)
	forumService := service.NewForumService(postRepo, hub, validate, logger)
	moodService := service.NewMoodService(moodRepo, hub, validate, logger)
	profileService := service.NewProfileService(userRepo, storage, cfg.AvatarMaxSizeMB, validate, logger)

	contentService, err := service.NewContentService(redisClient, cfg.RealtimeChannel, logger)
	if err != nil {
		log.Fatalf("failed to load content: %v", err)
	}

	seedService, err := service.NewSeedService(postRepo, moodRepo, hub, cfg.SeedEnabled, cfg.SeedToken, logger)
	if err != nil {
		log.Fatalf("failed to create seed service: %v", err)
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		AuthHandler:    handler.NewAuthHandler(authService, chatRegistry, logger),
		AccountHandler: handler.NewAccountHandler(profileService, logger),
		ChatHandler:    handler.NewChatHandler(chatRegistry, conversationService, validate, logger, cfg.StreamKeepAlive),
		ForumHandler:   handler.NewForumHandler(forumService, hub, logger, cfg.StreamKeepAlive),
		MoodHandler:    handler.NewMoodHandler(moodService, hub, logger, cfg.StreamKeepAlive),
		ContentHandler: handler.NewContentHandler(contentService, logger),
		SeedHandler:    handler.NewSeedHandler(seedService, logger),
		JWTMiddleware:  middleware.JWTProtected(cfg.JWTSecret, authService),
		ChatLimiter:    middleware.RateLimit("chat", cfg.ChatRateLimit, cfg.ChatRateWindow),
		AuthLimiter:    middleware.RateLimit("auth", cfg.AuthRateLimit, cfg.AuthRateWindow),
	})

	go func() {
		logger.Info().Str("address", cfg.HTTPAddress()).Str("env", cfg.AppEnv).Msg("server starting")
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, cancelRoot)
}

func waitForShutdown(app *fiber.App, stopBackground context.CancelFunc) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()
	stopBackground()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
