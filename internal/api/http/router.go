package http

import (
	"os"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/todo-service/internal/api/http/handlers"
	"github.com/spec-kit/todo-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Todos          *handlers.TodosHandler
	AuthMiddleware *auth.AuthMiddleware
	LoginLimiter   *auth.LoginLimiter
	StaticDir      string
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	app.Post("/sign-up", cfg.Users.SignUp)
	app.Post("/token", cfg.LoginLimiter.Middleware(), cfg.Users.Token)
	app.Get("/verify-token", cfg.Users.VerifyToken)

	todos := app.Group("/todos", cfg.AuthMiddleware.Handle, auth.RequireUser())
	todos.Get("", cfg.Todos.List)
	todos.Post("", cfg.Todos.Create)
	todos.Patch("/:id", cfg.Todos.Update)

	registerStatic(app, cfg.StaticDir)
}

// registerStatic serves the bundled frontend when its directory exists.
func registerStatic(app *fiber.App, dir string) {
	if dir == "" {
		return
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return
	}
	app.Static("/static", dir)
	app.Static("/", dir)
}
