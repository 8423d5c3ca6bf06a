package auth

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	apperrors "github.com/spec-kit/todo-service/pkg/util/errorutil"
)

const loginFailurePrefix = "login:fail:"

// LoginLimiter counts failed logins per client in a fixed Redis window.
// A nil client or a non-positive limit disables it. Redis errors fail open.
type LoginLimiter struct {
	rdb         *redis.Client
	maxAttempts int
	window      time.Duration
	logger      *zap.Logger
}

// NewLoginLimiter constructs a limiter.
func NewLoginLimiter(rdb *redis.Client, maxAttempts int, window time.Duration, logger *zap.Logger) *LoginLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoginLimiter{rdb: rdb, maxAttempts: maxAttempts, window: window, logger: logger}
}

// Enabled reports whether attempts are being counted.
func (l *LoginLimiter) Enabled() bool {
	return l != nil && l.rdb != nil && l.maxAttempts > 0 && l.window > 0
}

// Blocked reports whether key has used up its failures for the current window.
func (l *LoginLimiter) Blocked(ctx context.Context, key string) bool {
	if !l.Enabled() {
		return false
	}
	count, err := l.rdb.Get(ctx, loginFailurePrefix+key).Int()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			l.logger.Warn("login limiter lookup failed", zap.Error(err))
		}
		return false
	}
	if count < l.maxAttempts {
		return false
	}
	// A counter left without an expiry would block key forever.
	if err := l.rdb.ExpireNX(ctx, loginFailurePrefix+key, l.window).Err(); err != nil {
		l.logger.Warn("login limiter expire failed", zap.Error(err))
	}
	return true
}

// RecordFailure counts one failed attempt. The window starts at the first
// failure; the expiry is re-asserted with NX on every increment so a key can
// never be left without one.
func (l *LoginLimiter) RecordFailure(ctx context.Context, key string) {
	if !l.Enabled() {
		return
	}
	redisKey := loginFailurePrefix + key
	_, err := l.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, redisKey)
		pipe.ExpireNX(ctx, redisKey, l.window)
		return nil
	})
	if err != nil {
		l.logger.Warn("login limiter increment failed", zap.Error(err))
	}
}

// Reset clears the failures for key.
func (l *LoginLimiter) Reset(ctx context.Context, key string) {
	if !l.Enabled() {
		return
	}
	if err := l.rdb.Del(ctx, loginFailurePrefix+key).Err(); err != nil {
		l.logger.Warn("login limiter reset failed", zap.Error(err))
	}
}

// Middleware throttles the login route by client IP.
func (l *LoginLimiter) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !l.Enabled() {
			return c.Next()
		}
		key := c.IP()
		ctx := c.UserContext()
		if l.Blocked(ctx, key) {
			c.Set(fiber.HeaderRetryAfter, retryAfterSeconds(l.ttl(ctx, key)))
			return apperrors.NewTooManyRequests("Too many failed login attempts")
		}

		err := c.Next()
		switch {
		case err == nil:
			l.Reset(ctx, key)
		case apperrors.HasCode(err, apperrors.CodeInvalidCredentials):
			l.RecordFailure(ctx, key)
		}
		return err
	}
}

func (l *LoginLimiter) ttl(ctx context.Context, key string) time.Duration {
	ttl, err := l.rdb.TTL(ctx, loginFailurePrefix+key).Result()
	if err != nil || ttl <= 0 {
		return l.window
	}
	return ttl
}

func retryAfterSeconds(d time.Duration) string {
	secs := int64(d / time.Second)
	if d%time.Second != 0 {
		secs++
	}
	if secs < 1 {
		secs = 1
	}
	return strconv.FormatInt(secs, 10)
}
