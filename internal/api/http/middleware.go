package http

import (
	"context"
	"errors"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"go.uber.org/zap"

	"github.com/spec-kit/todo-service/internal/config"
	"github.com/spec-kit/todo-service/internal/observability"
	apperrors "github.com/spec-kit/todo-service/pkg/util/errorutil"
)

// RegisterMiddlewares attaches global middlewares. The request logger wraps
// the error handler so it observes the final status code.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, corsCfg config.CORSConfig, timeout time.Duration) {
	app.Use(corsMiddleware(corsCfg))
	app.Use(observability.RequestLogger(logger, metrics))
	app.Use(errorHandlingMiddleware(logger, metrics))
	if timeout > 0 {
		app.Use(requestTimeoutMiddleware(timeout))
	}
}

func corsMiddleware(cfg config.CORSConfig) fiber.Handler {
	origins := strings.Join(cfg.AllowedOrigins, ",")
	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     "GET,POST,PATCH,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization," + observability.HeaderRequestID,
		ExposeHeaders:    observability.HeaderRequestID,
		AllowCredentials: !strings.Contains(origins, "*"),
	})
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

func errorHandlingMiddleware(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(nil)
			}
			if err != nil {
				writeError(c, logger, metrics, err)
				err = nil
			}
		}()
		return c.Next()
	}
}

// ErrorHandler is installed as the Fiber app error handler for errors raised
// outside the middleware chain.
func ErrorHandler(logger *zap.Logger, metrics *observability.Metrics) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		writeError(c, logger, metrics, err)
		return nil
	}
}

func writeError(c *fiber.Ctx, logger *zap.Logger, metrics *observability.Metrics, err error) {
	domainErr := toDomainError(err)
	metrics.RecordError(c.Route().Path, c.Method(), domainErr.Code)

	body := fiber.Map{
		"code":    domainErr.Code,
		"message": domainErr.Message,
	}
	if len(domainErr.Details) > 0 {
		body["details"] = domainErr.Details
	}
	if domainErr.HTTPStatus >= http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("request_id", observability.RequestID(c)),
			zap.Error(domainErr))
	}
	if domainErr.HTTPStatus == http.StatusUnauthorized {
		c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
	}
	c.Status(domainErr.HTTPStatus)
	_ = c.JSON(fiber.Map{
		"detail": domainErr.Message,
		"error":  body,
	})
}

// toDomainError also maps Fiber's own errors, such as unmatched routes or
// unsupported methods, to their HTTP status.
func toDomainError(err error) *apperrors.DomainError {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		switch fiberErr.Code {
		case http.StatusNotFound:
			return apperrors.NewDomainError(apperrors.CodeNotFound, "Not Found", fiberErr.Code, nil)
		case http.StatusMethodNotAllowed:
			return apperrors.NewDomainError("METHOD_NOT_ALLOWED", "Method Not Allowed", fiberErr.Code, nil)
		case http.StatusRequestEntityTooLarge:
			return apperrors.NewDomainError(apperrors.CodeValidationFailed, "request body too large", fiberErr.Code, nil)
		}
		if fiberErr.Code < http.StatusInternalServerError {
			return apperrors.NewDomainError(apperrors.CodeValidationFailed, fiberErr.Message, fiberErr.Code, nil)
		}
	}
	return apperrors.ToDomainError(err)
}
