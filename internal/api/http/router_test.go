package http

import (
	"encoding/json"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/todo-service/internal/api/http/handlers"
	"github.com/spec-kit/todo-service/internal/auth"
	"github.com/spec-kit/todo-service/internal/config"
	"github.com/spec-kit/todo-service/internal/events"
	"github.com/spec-kit/todo-service/internal/observability"
	"github.com/spec-kit/todo-service/internal/persistence"
	"github.com/spec-kit/todo-service/internal/repository"
	"github.com/spec-kit/todo-service/internal/service"
)

type testServer struct {
	app    *fiber.App
	store  *repository.MemoryStore
	tokens *auth.TokenManager
}

type serverOption func(*RouteConfig)

func newTestServer(t *testing.T, opts ...serverOption) testServer {
	t.Helper()
	logger := zap.NewNop()
	store := repository.NewMemoryStore()
	tokens, err := auth.NewTokenManager("router-test-secret", 30*time.Minute, "HS256")
	require.NoError(t, err)

	dispatcher := events.NewInMemoryDispatcher(logger)
	authService := service.NewAuthService(service.AuthDependencies{
		UserRepo:   store.Users(),
		Hasher:     auth.NewPasswordHasher(bcrypt.MinCost),
		Tokens:     tokens,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	metrics := observability.NewMetrics()

	app := NewApp(ServerOptions{
		AppName:        "todo-service-test",
		Logger:         logger,
		Metrics:        metrics,
		CORS:           config.CORSConfig{AllowedOrigins: []string{"http://localhost:5173"}},
		RequestTimeout: 5 * time.Second,
	})
	routes := RouteConfig{
		Health:         handlers.NewHealthHandler("todo-service", "test", &persistence.Postgres{}, &persistence.Redis{}, metrics),
		Users:          handlers.NewUsersHandler(authService),
		Todos:          handlers.NewTodosHandler(service.NewTodoService(store.Todos(), dispatcher)),
		AuthMiddleware: auth.NewAuthMiddleware(auth.NewResolver(tokens, store.Users(), logger)),
	}
	for _, opt := range opts {
		opt(&routes)
	}
	RegisterRoutes(app, routes)
	return testServer{app: app, store: store, tokens: tokens}
}

func (s testServer) do(t *testing.T, req *nethttp.Request) (*nethttp.Response, []byte) {
	t.Helper()
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func jsonRequest(method, target, body, token string) *nethttp.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func formLogin(email, password string) *nethttp.Request {
	form := url.Values{"username": {email}, "password": {password}}
	req := httptest.NewRequest(nethttp.MethodPost, "/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func (s testServer) signUp(t *testing.T, email, password string) {
	t.Helper()
	resp, body := s.do(t, jsonRequest(nethttp.MethodPost, "/sign-up", `{"email":"`+email+`","password":"`+password+`"}`, ""))
	require.Equal(t, nethttp.StatusCreated, resp.StatusCode, string(body))
}

func (s testServer) login(t *testing.T, email, password string) string {
	t.Helper()
	resp, body := s.do(t, formLogin(email, password))
	require.Equal(t, nethttp.StatusOK, resp.StatusCode, string(body))
	var out map[string]string
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "bearer", out["token_type"])
	return out["access_token"]
}

type errorBody struct {
	Detail string `json:"detail"`
	Error  struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func decodeError(t *testing.T, body []byte) errorBody {
	t.Helper()
	var out errorBody
	require.NoError(t, json.Unmarshal(body, &out), string(body))
	return out
}

type todoBody struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	IsCompleted bool   `json:"is_completed"`
	OwnerID     int64  `json:"owner_id"`
}

func TestTodoFlow(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.do(t, jsonRequest(nethttp.MethodPost, "/sign-up",
		`{"email":"alice@example.com","password":"pw123","full_name":"Alice"}`, ""))
	require.Equal(t, nethttp.StatusCreated, resp.StatusCode, string(body))
	var user map[string]any
	require.NoError(t, json.Unmarshal(body, &user))
	assert.Equal(t, "alice@example.com", user["email"])
	assert.Equal(t, "Alice", user["full_name"])
	assert.Equal(t, true, user["is_active"])
	assert.NotContains(t, string(body), "pw123")
	assert.NotContains(t, string(body), "hashed_password")

	token := s.login(t, "alice@example.com", "pw123")

	resp, body = s.do(t, jsonRequest(nethttp.MethodGet, "/todos", "", token))
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(body))

	resp, body = s.do(t, jsonRequest(nethttp.MethodPost, "/todos", `{"title":"buy milk"}`, token))
	require.Equal(t, nethttp.StatusOK, resp.StatusCode, string(body))
	var created todoBody
	require.NoError(t, json.Unmarshal(body, &created))
	assert.Equal(t, "buy milk", created.Title)
	assert.False(t, created.IsCompleted)

	target := "/todos/" + strconv.FormatInt(created.ID, 10)
	resp, body = s.do(t, jsonRequest(nethttp.MethodPatch, target, `{"is_completed":true}`, token))
	require.Equal(t, nethttp.StatusOK, resp.StatusCode, string(body))
	var patched todoBody
	require.NoError(t, json.Unmarshal(body, &patched))
	assert.True(t, patched.IsCompleted)
	assert.Equal(t, "buy milk", patched.Title)
	assert.Equal(t, created.OwnerID, patched.OwnerID)

	resp, body = s.do(t, jsonRequest(nethttp.MethodGet, "/todos", "", token))
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	var list []todoBody
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list, 1)
	assert.True(t, list[0].IsCompleted)

	s.signUp(t, "bob@example.com", "hunter2")
	bobToken := s.login(t, "bob@example.com", "hunter2")

	resp, body = s.do(t, jsonRequest(nethttp.MethodPatch, target, `{"title":"hijacked"}`, bobToken))
	assert.Equal(t, nethttp.StatusNotFound, resp.StatusCode)
	foreign := decodeError(t, body)
	assert.Equal(t, "Todo not found or not authorized", foreign.Detail)

	resp, body = s.do(t, jsonRequest(nethttp.MethodPatch, "/todos/9999", `{"title":"ghost"}`, bobToken))
	assert.Equal(t, nethttp.StatusNotFound, resp.StatusCode)
	assert.Equal(t, foreign, decodeError(t, body))

	resp, body = s.do(t, jsonRequest(nethttp.MethodGet, "/todos", "", bobToken))
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(body))

	resp, body = s.do(t, jsonRequest(nethttp.MethodGet, "/todos", "", token))
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Equal(t, "buy milk", list[0].Title)
}

func TestSignUp_DuplicateEmail(t *testing.T) {
	s := newTestServer(t)
	s.signUp(t, "alice@example.com", "pw123")

	resp, body := s.do(t, jsonRequest(nethttp.MethodPost, "/sign-up", `{"email":"alice@example.com","password":"other"}`, ""))
	assert.Equal(t, nethttp.StatusBadRequest, resp.StatusCode)
	errBody := decodeError(t, body)
	assert.Equal(t, "Email already registered", errBody.Detail)
	assert.Equal(t, "CONFLICT", errBody.Error.Code)
}

func TestSignUp_InvalidBody(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.do(t, jsonRequest(nethttp.MethodPost, "/sign-up", `{"email":"not-an-email","password":"pw"}`, ""))
	assert.Equal(t, nethttp.StatusBadRequest, resp.StatusCode)
	errBody := decodeError(t, body)
	assert.Equal(t, "VALIDATION_FAILED", errBody.Error.Code)
	assert.Contains(t, errBody.Error.Details, "email")
}

func TestToken_Failures(t *testing.T) {
	s := newTestServer(t)
	s.signUp(t, "alice@example.com", "pw123")

	resp, wrongPassword := s.do(t, formLogin("alice@example.com", "wrong"))
	assert.Equal(t, nethttp.StatusBadRequest, resp.StatusCode)
	resp, unknownEmail := s.do(t, formLogin("ghost@example.com", "pw123"))
	assert.Equal(t, nethttp.StatusBadRequest, resp.StatusCode)

	assert.JSONEq(t, string(wrongPassword), string(unknownEmail))
	assert.Equal(t, "Incorrect email or password", decodeError(t, wrongPassword).Detail)
}

func TestToken_AcceptsJSON(t *testing.T) {
	s := newTestServer(t)
	s.signUp(t, "alice@example.com", "pw123")

	resp, body := s.do(t, jsonRequest(nethttp.MethodPost, "/token", `{"username":"alice@example.com","password":"pw123"}`, ""))
	require.Equal(t, nethttp.StatusOK, resp.StatusCode, string(body))
	assert.Contains(t, string(body), "access_token")
}

func TestProtectedRoutes_RejectBadTokens(t *testing.T) {
	s := newTestServer(t)
	s.signUp(t, "alice@example.com", "pw123")
	valid := s.login(t, "alice@example.com", "pw123")

	other, err := auth.NewTokenManager("some-other-secret", time.Minute, "HS256")
	require.NoError(t, err)
	forged, _, err := other.Issue(auth.NewClaims("alice@example.com"))
	require.NoError(t, err)

	s.signUp(t, "carol@example.com", "pw123")
	carolToken := s.login(t, "carol@example.com", "pw123")
	carol, err := s.store.Users().GetByEmail(t.Context(), "carol@example.com")
	require.NoError(t, err)
	s.store.DeleteUser(carol.ID)

	cases := map[string]string{
		"missing":      "",
		"malformed":    "not-a-jwt",
		"foreign key":  forged,
		"deleted user": carolToken,
	}

	var first []byte
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			resp, body := s.do(t, jsonRequest(nethttp.MethodGet, "/todos", "", token))
			assert.Equal(t, nethttp.StatusUnauthorized, resp.StatusCode)
			assert.Equal(t, "Bearer", resp.Header.Get("WWW-Authenticate"))
			assert.Equal(t, "Could not validate credentials", decodeError(t, body).Detail)
			if first == nil {
				first = body
			}
			assert.JSONEq(t, string(first), string(body))
		})
	}

	req := jsonRequest(nethttp.MethodGet, "/todos", "", "")
	req.Header.Set("Authorization", "Basic "+valid)
	resp, _ := s.do(t, req)
	assert.Equal(t, nethttp.StatusUnauthorized, resp.StatusCode)
}

func TestPatch_RejectsUnknownFields(t *testing.T) {
	s := newTestServer(t)
	s.signUp(t, "alice@example.com", "pw123")
	token := s.login(t, "alice@example.com", "pw123")

	resp, body := s.do(t, jsonRequest(nethttp.MethodPost, "/todos", `{"title":"buy milk"}`, token))
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	var created todoBody
	require.NoError(t, json.Unmarshal(body, &created))
	target := "/todos/" + strconv.FormatInt(created.ID, 10)

	resp, body = s.do(t, jsonRequest(nethttp.MethodPatch, target, `{"owner_id":999}`, token))
	assert.Equal(t, nethttp.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, decodeError(t, body).Detail, "owner_id")

	resp, _ = s.do(t, jsonRequest(nethttp.MethodPatch, "/todos/abc", `{"title":"x"}`, token))
	assert.Equal(t, nethttp.StatusBadRequest, resp.StatusCode)

	resp, body = s.do(t, jsonRequest(nethttp.MethodPatch, target, `{"title":"  "}`, token))
	assert.Equal(t, nethttp.StatusBadRequest, resp.StatusCode, string(body))
}

func TestVerifyToken(t *testing.T) {
	s := newTestServer(t)
	s.signUp(t, "alice@example.com", "pw123")
	token := s.login(t, "alice@example.com", "pw123")

	resp, body := s.do(t, jsonRequest(nethttp.MethodGet, "/verify-token", "", token))
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"message":"Token is valid","user":"alice@example.com"}`, string(body))

	resp, invalid := s.do(t, jsonRequest(nethttp.MethodGet, "/verify-token", "", "garbage"))
	assert.Equal(t, nethttp.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Invalid token", decodeError(t, invalid).Detail)

	resp, missing := s.do(t, jsonRequest(nethttp.MethodGet, "/verify-token", "", ""))
	assert.Equal(t, nethttp.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Bearer", resp.Header.Get("WWW-Authenticate"))
	assert.JSONEq(t, string(invalid), string(missing))
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.do(t, httptest.NewRequest(nethttp.MethodGet, "/health/live", nil))
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "alive")

	resp, body = s.do(t, httptest.NewRequest(nethttp.MethodGet, "/health/ready", nil))
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode, string(body))
	assert.Contains(t, string(body), "disabled")

	resp, body = s.do(t, httptest.NewRequest(nethttp.MethodGet, "/metrics", nil))
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
	var snap observability.MetricsSnapshot
	require.NoError(t, json.Unmarshal(body, &snap))
	assert.Equal(t, int64(1), snap.Requests["/health/live|GET|200"])
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.do(t, httptest.NewRequest(nethttp.MethodGet, "/nope", nil))
	assert.Equal(t, nethttp.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", decodeError(t, body).Error.Code)
}

func TestLoginThrottling(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	s := newTestServer(t, func(rc *RouteConfig) {
		rc.LoginLimiter = auth.NewLoginLimiter(rdb, 2, time.Minute, nil)
	})
	s.signUp(t, "alice@example.com", "pw123")

	for i := 0; i < 2; i++ {
		resp, _ := s.do(t, formLogin("alice@example.com", "wrong"))
		assert.Equal(t, nethttp.StatusBadRequest, resp.StatusCode)
	}

	resp, body := s.do(t, formLogin("alice@example.com", "pw123"))
	assert.Equal(t, nethttp.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
	assert.Equal(t, "TOO_MANY_REQUESTS", decodeError(t, body).Error.Code)

	mr.FastForward(2 * time.Minute)
	resp, _ = s.do(t, formLogin("alice@example.com", "pw123"))
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
}

func TestStaticFrontend(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>todos</h1>"), 0o600))

	s := newTestServer(t, func(rc *RouteConfig) { rc.StaticDir = dir })

	resp, body := s.do(t, httptest.NewRequest(nethttp.MethodGet, "/", nil))
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "todos")

	resp, body = s.do(t, httptest.NewRequest(nethttp.MethodGet, "/static/index.html", nil))
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "todos")
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(nethttp.MethodOptions, "/todos", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "GET")
	resp, _ := s.do(t, req)
	assert.Equal(t, nethttp.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
}
