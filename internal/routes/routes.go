package routes

import (
	"time"

	"thomas-backend/internal/config"
	"thomas-backend/internal/handlers"
	"thomas-backend/internal/middleware"
	"thomas-backend/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	audit *services.Audit,
	authHandler *handlers.AuthHandler,
	chatHandler *handlers.ChatHandler,
	convHandler *handlers.ConversationHandler,
	auditHandler *handlers.AuditHandler,
	systemHandler *handlers.SystemHandler,
) {
	// ─── Public ──────────────────────────────────────────────────────────
	app.Get("/api/health", systemHandler.Health)

	// Rate limits apply before credentials are even read, so exceeding them
	// fails identically for valid and invalid credentials.
	app.Post("/api/auth/signup", authLimiter(cfg.SignupLimitPerHour, time.Hour, audit), authHandler.Signup)
	app.Post("/api/auth/login", authLimiter(cfg.LoginLimitPerMinute, time.Minute, audit), authHandler.Login)

	// ─── Protected routes ────────────────────────────────────────────────
	api := app.Group("/api", middleware.SessionProtected(cfg.SessionSecret))

	api.Get("/auth/logout", authHandler.Logout)
	api.Get("/auth/me", authHandler.Me)

	api.Post("/chat", chatHandler.Chat)
	api.Post("/news", chatHandler.News)

	api.Get("/conversations", convHandler.List)
	api.Post("/conversations/new", convHandler.New)
	api.Get("/conversations/:id", convHandler.Get)
	api.Delete("/conversations/:id", convHandler.Delete)
	api.Put("/conversations/:id/rename", convHandler.Rename)

	api.Get("/audit", auditHandler.List)
}

// authLimiter caps attempts per source address over the window.
func authLimiter(max int, window time.Duration, audit *services.Audit) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			audit.Record(nil, "rate_limited", c.IP(), map[string]interface{}{"path": c.Path()})
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":   true,
				"message": "Too many attempts, please try again later",
			})
		},
	})
}
