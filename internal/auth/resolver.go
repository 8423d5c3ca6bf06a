package auth

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spec-kit/todo-service/internal/domain"
	"github.com/spec-kit/todo-service/internal/repository"
	apperrors "github.com/spec-kit/todo-service/pkg/util/errorutil"
)

// UserFinder looks users up by email.
type UserFinder interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// Resolver turns a bearer token into the user it was issued for.
type Resolver struct {
	tokens *TokenManager
	users  UserFinder
	logger *zap.Logger
}

// NewResolver constructs a resolver.
func NewResolver(tokens *TokenManager, users UserFinder, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{tokens: tokens, users: users, logger: logger}
}

// Resolve verifies token and loads its subject. Bad signature, expiry, a
// missing subject and an unknown user all yield the same Unauthorized error.
func (r *Resolver) Resolve(ctx context.Context, token string) (*domain.User, error) {
	claims, err := r.tokens.Verify(token)
	if err != nil {
		r.logger.Debug("token rejected", zap.String("outcome", "invalid"))
		return nil, apperrors.NewUnauthorized()
	}
	if claims.Subject == "" {
		r.logger.Debug("token rejected", zap.String("outcome", "missing_subject"))
		return nil, apperrors.NewUnauthorized()
	}

	user, err := r.users.GetByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			r.logger.Debug("token rejected", zap.String("outcome", "unknown_subject"))
			return nil, apperrors.NewUnauthorized()
		}
		return nil, apperrors.NewInternalError(err)
	}
	return user, nil
}
