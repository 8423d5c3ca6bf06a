package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/todo-service/internal/domain"
	apperrors "github.com/spec-kit/todo-service/pkg/util/errorutil"
)

const userKey = "auth_user"

// AuthMiddleware validates bearer tokens and loads the calling user.
type AuthMiddleware struct {
	resolver *Resolver
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(resolver *Resolver) *AuthMiddleware {
	return &AuthMiddleware{resolver: resolver}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	token, ok := BearerToken(c)
	if !ok {
		return apperrors.NewUnauthorized()
	}

	user, err := m.resolver.Resolve(c.UserContext(), token)
	if err != nil {
		return err
	}

	c.Locals(userKey, user)
	return c.Next()
}

// BearerToken extracts the token from the Authorization header.
func BearerToken(c *fiber.Ctx) (string, bool) {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}

// UserFromContext retrieves the authenticated user.
func UserFromContext(c *fiber.Ctx) (*domain.User, bool) {
	val := c.Locals(userKey)
	if val == nil {
		return nil, false
	}
	user, ok := val.(*domain.User)
	return user, ok
}

// RequireUser guards handlers mounted without Handle in front of them.
func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := UserFromContext(c); !ok {
			return apperrors.NewUnauthorized()
		}
		return c.Next()
	}
}
