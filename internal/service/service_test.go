package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/todo-service/internal/auth"
	"github.com/spec-kit/todo-service/internal/events"
	"github.com/spec-kit/todo-service/internal/repository"
)

const testSecret = "service-test-secret"

type testEnv struct {
	store      *repository.MemoryStore
	dispatcher events.Dispatcher
	tokens     *auth.TokenManager
	auth       *AuthService
	todos      *TodoService
	logs       *observer.ObservedLogs
	published  *[]events.Event
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)

	store := repository.NewMemoryStore()
	dispatcher := events.NewInMemoryDispatcher(logger)
	tokens, err := auth.NewTokenManager(testSecret, 30*time.Minute, "HS256")
	require.NoError(t, err)

	published := make([]events.Event, 0)
	record := func(_ context.Context, e events.Event) error {
		published = append(published, e)
		return nil
	}
	for _, typ := range []events.EventType{
		events.EventUserRegistered, events.EventUserLoggedIn,
		events.EventTodoCreated, events.EventTodoUpdated,
	} {
		dispatcher.Subscribe(typ, record)
	}
	NewAuditService(dispatcher, logger).RegisterHandlers()

	return testEnv{
		store:      store,
		dispatcher: dispatcher,
		tokens:     tokens,
		auth: NewAuthService(AuthDependencies{
			UserRepo:   store.Users(),
			Hasher:     auth.NewPasswordHasher(bcrypt.MinCost),
			Tokens:     tokens,
			Dispatcher: dispatcher,
			Logger:     logger,
		}),
		todos:     NewTodoService(store.Todos(), dispatcher),
		logs:      logs,
		published: &published,
	}
}

// assertNotLogged fails if secret appears in any message or field.
func assertNotLogged(t *testing.T, logs *observer.ObservedLogs, secret string) {
	t.Helper()
	for _, entry := range logs.All() {
		require.NotContains(t, entry.Message, secret)
		for key, val := range entry.ContextMap() {
			require.NotContains(t, fmt.Sprint(val), secret, "field %q leaks a secret", key)
			require.False(t, strings.Contains(key, secret))
		}
	}
}
