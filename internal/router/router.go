package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-evidence-api/internal/config"
	"github.com/noah-isme/gema-evidence-api/internal/handler"
	"github.com/noah-isme/gema-evidence-api/internal/middleware"
	"github.com/noah-isme/gema-evidence-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ReportHandler           *handler.ReportHandler
	StudentDirectoryHandler *handler.StudentDirectoryHandler
	AccessDateHandler       *handler.AccessDateHandler
	ActivityHandler         *handler.ActivityHandler
	HookHandler             *handler.HookHandler
	CheckboxHandler         *handler.CheckboxHandler
	JWTMiddleware           fiber.Handler
	LearnerRateLimit        fiber.Handler
	HookRateLimit           fiber.Handler
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
		jwtMiddleware = passThrough
	}
	rateLimit := deps.LearnerRateLimit
	if rateLimit == nil {
		rateLimit = passThrough
	}
	hookLimit := deps.HookRateLimit
	if hookLimit == nil {
		hookLimit = passThrough
	}

	admin := app.Group("/api/v2/admin", jwtMiddleware, middleware.RequireRole(middleware.StaffRoles...))
	if deps.ReportHandler != nil {
		deps.ReportHandler.Register(admin.Group("/reports"))
	}
	if deps.StudentDirectoryHandler != nil {
		deps.StudentDirectoryHandler.Register(admin)
	}
	if deps.AccessDateHandler != nil {
		deps.AccessDateHandler.Register(admin)
	}
	if deps.ActivityHandler != nil {
		deps.ActivityHandler.Register(admin.Group("/activities"))
	}

	if deps.HookHandler != nil {
		hooks := app.Group("/api/v2/hooks", jwtMiddleware, middleware.RequireRole(middleware.StaffRoles...), hookLimit)
		deps.HookHandler.Register(hooks)
	}

	if deps.CheckboxHandler != nil {
		requireUser := middleware.WithAuth(passThrough, middleware.AuthOptions{Role: middleware.AuthRoleAny, RequireUser: true})
		learn := app.Group("/api/v2/learn", jwtMiddleware, requireUser, rateLimit)
		deps.CheckboxHandler.Register(learn)
	}
}

func passThrough(c *fiber.Ctx) error {
	return c.Next()
}
