package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/mindful-youth-api/internal/config"
	"github.com/noah-isme/mindful-youth-api/internal/handler"
	"github.com/noah-isme/mindful-youth-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AuthHandler    *handler.AuthHandler
	AccountHandler *handler.AccountHandler
	ChatHandler    *handler.ChatHandler
	ForumHandler   *handler.ForumHandler
	MoodHandler    *handler.MoodHandler
	ContentHandler *handler.ContentHandler
	SeedHandler    *handler.SeedHandler
	JWTMiddleware  fiber.Handler
	ChatLimiter    fiber.Handler
	AuthLimiter    fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	api.Get("/metrics", observability.MetricsHandler())

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.ContentHandler != nil {
		deps.ContentHandler.Register(api)
	}

	if deps.AuthHandler != nil {
		auth := api.Group("/auth")
		if deps.AuthLimiter != nil {
			auth.Use("/signup", deps.AuthLimiter)
			auth.Use("/login", deps.AuthLimiter)
		}
		deps.AuthHandler.Register(auth, jwtMiddleware)
	}

	if deps.AccountHandler != nil {
		deps.AccountHandler.Register(api.Group("/account", jwtMiddleware))
	}

	if deps.ChatHandler != nil {
		chat := api.Group("/chat", jwtMiddleware)
		if deps.ChatLimiter != nil {
			chat.Use("/messages", deps.ChatLimiter)
		}
		deps.ChatHandler.Register(chat)
	}

	if deps.ForumHandler != nil {
		deps.ForumHandler.Register(api.Group("/forum", jwtMiddleware))
	}

	if deps.MoodHandler != nil {
		deps.MoodHandler.Register(api.Group("/moods", jwtMiddleware))
	}

	// Seed routes check the X-Seed-Token header themselves.
	if deps.SeedHandler != nil {
		deps.SeedHandler.Register(api.Group("/seed"))
	}
}
