package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/sd-tech/leetai-api/internal/config"
	"github.com/sd-tech/leetai-api/internal/handler"
	"github.com/sd-tech/leetai-api/internal/middleware"
	"github.com/sd-tech/leetai-api/internal/models"
	"github.com/sd-tech/leetai-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ProblemHandler    *handler.ProblemHandler
	SubmissionHandler *handler.SubmissionHandler
	UserHandler       *handler.UserHandler
	JWTMiddleware     fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	app.Get("/metrics", observability.MetricsHandler())

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	if deps.UserHandler != nil {
		deps.UserHandler.RegisterAuth(api.Group("/auth"))
		deps.UserHandler.Register(api.Group("/users", jwtMiddleware))
		deps.UserHandler.RegisterAdmin(api.Group("/admin/users", jwtMiddleware, adminOnly))
	}

	if deps.ProblemHandler != nil {
		deps.ProblemHandler.Register(api.Group("/problems"))
		deps.ProblemHandler.RegisterAI(api.Group("/ai", jwtMiddleware))
		deps.ProblemHandler.RegisterAdmin(api.Group("/admin/problems", jwtMiddleware, adminOnly))
	}

	if deps.SubmissionHandler != nil {
		deps.SubmissionHandler.Register(api.Group("/submissions", jwtMiddleware))
	}
}
