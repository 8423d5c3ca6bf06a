package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/todo-service/internal/config"
	"github.com/spec-kit/todo-service/internal/observability"
)

// ServerOptions configures NewApp.
type ServerOptions struct {
	AppName        string
	Logger         *zap.Logger
	Metrics        *observability.Metrics
	CORS           config.CORSConfig
	RequestTimeout time.Duration
}

// NewApp builds a Fiber app with the service's error envelope and global
// middlewares installed. Routes are added with RegisterRoutes.
func NewApp(opts ServerOptions) *fiber.App {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	app := fiber.New(fiber.Config{
		AppName:               opts.AppName,
		DisableStartupMessage: true,
		ReadTimeout:           15 * time.Second,
		WriteTimeout:          15 * time.Second,
		BodyLimit:             64 * 1024,
		ErrorHandler:          ErrorHandler(logger, opts.Metrics),
	})
	RegisterMiddlewares(app, logger, opts.Metrics, opts.CORS, opts.RequestTimeout)
	return app
}
