package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/tasknest/tasknest-backend/internal/config"
	"github.com/tasknest/tasknest-backend/internal/handlers"
	"github.com/tasknest/tasknest-backend/internal/middleware"
	"gorm.io/gorm"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	db *gorm.DB,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	groupHandler *handlers.GroupHandler,
	taskHandler *handlers.TaskHandler,
	notificationHandler *handlers.NotificationHandler,
	healthHandler *handlers.HealthHandler,
) {
	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", healthHandler.Check)

	// Auth — public, with a stricter 10 req/min limit
	auth := api.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/refresh", authHandler.Refresh)

	// Auth — protected
	api.Get("/auth/verify", middleware.JWTProtected(cfg), authHandler.Verify)
	api.Post("/auth/logout", middleware.JWTProtected(cfg), authHandler.Logout)
	api.Post("/auth/change-password", middleware.JWTProtected(cfg), authHandler.ChangePassword)

	// Users
	users := api.Group("/users", middleware.JWTProtected(cfg))
	users.Get("/profile", userHandler.Profile)
	users.Put("/profile", userHandler.UpdateProfile)
	users.Delete("/profile", userHandler.Deactivate)
	users.Get("/dashboard", userHandler.Dashboard)
	users.Get("/search", userHandler.Search)
	users.Get("/notification-settings", userHandler.Settings)
	users.Put("/notification-settings", userHandler.UpdateSettings)

	// Groups + membership sub-resources
	groups := api.Group("/groups", middleware.JWTProtected(cfg))
	groups.Post("/", groupHandler.Create)
	groups.Get("/", groupHandler.List)
	groups.Get("/:id", groupHandler.Get)
	groups.Put("/:id", groupHandler.Update)
	groups.Delete("/:id", groupHandler.Delete)
	groups.Post("/:id/members", groupHandler.AddMember)
	groups.Get("/:id/members", groupHandler.ListMembers)
	groups.Delete("/:id/members/:userID", groupHandler.RemoveMember)

	// Tasks + status/audit sub-resources
	tasks := api.Group("/tasks", middleware.JWTProtected(cfg))
	tasks.Post("/sweep", middleware.SuperadminRequired(db), taskHandler.Sweep)
	tasks.Post("/", taskHandler.Create)
	tasks.Get("/", taskHandler.List)
	tasks.Get("/:id", taskHandler.Get)
	tasks.Put("/:id", taskHandler.Update)
	tasks.Delete("/:id", taskHandler.Delete)
	tasks.Patch("/:id/status", taskHandler.UpdateStatus)
	tasks.Get("/:id/updates", taskHandler.ListUpdates)

	// Notifications
	notifications := api.Group("/notifications", middleware.JWTProtected(cfg))
	notifications.Get("/logs", notificationHandler.List)
	notifications.Get("/stats", notificationHandler.Stats)
	notifications.Post("/test", notificationHandler.TestSend)
	notifications.Post("/:id/retry", notificationHandler.Retry)
}
