package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	httptransport "github.com/spec-kit/todo-service/internal/api/http"
	"github.com/spec-kit/todo-service/internal/api/http/handlers"
	"github.com/spec-kit/todo-service/internal/auth"
	"github.com/spec-kit/todo-service/internal/config"
	"github.com/spec-kit/todo-service/internal/events"
	"github.com/spec-kit/todo-service/internal/observability"
	"github.com/spec-kit/todo-service/internal/persistence"
	"github.com/spec-kit/todo-service/internal/repository"
	"github.com/spec-kit/todo-service/internal/service"
	"github.com/spec-kit/todo-service/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if pg.Configured() && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	var (
		userRepo repository.UserRepository
		todoRepo repository.TodoRepository
	)
	if pg.Configured() {
		userRepo = repository.NewUserRepository(pg.PoolHandle())
		todoRepo = repository.NewTodoRepository(pg.PoolHandle())
	} else {
		store := repository.NewMemoryStore()
		userRepo = store.Users()
		todoRepo = store.Todos()
	}

	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL(), cfg.Auth.JWTAlgorithm)
	if err != nil {
		logger.Fatal("failed to init token manager", zap.Error(err))
	}

	dispatcher := events.NewInMemoryDispatcher(logger)
	worker.StartAuditWorker(service.NewAuditService(dispatcher, logger))

	authService := service.NewAuthService(service.AuthDependencies{
		UserRepo:   userRepo,
		Hasher:     auth.NewPasswordHasher(cfg.Auth.BcryptCost),
		Tokens:     tokens,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	todoService := service.NewTodoService(todoRepo, dispatcher)

	resolver := auth.NewResolver(authService.TokenManager(), userRepo, logger)
	limiter := auth.NewLoginLimiter(redis.Client, cfg.Auth.LoginMaxAttempts, cfg.Auth.LoginWindow(), logger)

	metrics := observability.NewMetrics()
	app := httptransport.NewApp(httptransport.ServerOptions{
		AppName:        cfg.App.Name,
		Logger:         logger,
		Metrics:        metrics,
		CORS:           cfg.CORS,
		RequestTimeout: cfg.App.RequestTimeout(),
	})

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, metrics),
		Users:          handlers.NewUsersHandler(authService),
		Todos:          handlers.NewTodosHandler(todoService),
		AuthMiddleware: auth.NewAuthMiddleware(resolver),
		LoginLimiter:   limiter,
		StaticDir:      cfg.App.StaticDir,
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Warn("shutdown incomplete", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
