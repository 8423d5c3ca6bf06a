package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/todo-service/internal/auth"
	"github.com/spec-kit/todo-service/internal/domain"
	"github.com/spec-kit/todo-service/internal/events"
	"github.com/spec-kit/todo-service/internal/repository"
	apperrors "github.com/spec-kit/todo-service/pkg/util/errorutil"
)

// RegisterInput carries sign-up data. Password is plaintext and must not outlive the call.
type RegisterInput struct {
	Email    string
	Password string
	FullName *string
}

// AuthService coordinates registration and login flows.
type AuthService struct {
	users      repository.UserRepository
	hasher     *auth.PasswordHasher
	tokenMgr   *auth.TokenManager
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// AuthDependencies bundles collaborators for the auth service.
type AuthDependencies struct {
	UserRepo   repository.UserRepository
	Hasher     *auth.PasswordHasher
	Tokens     *auth.TokenManager
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:      deps.UserRepo,
		hasher:     deps.Hasher,
		tokenMgr:   deps.Tokens,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}

// Register creates a new active account. The plaintext password is hashed
// before anything is stored.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	if _, err := s.users.GetByEmail(ctx, input.Email); err == nil {
		return nil, apperrors.NewConflict("Email already registered")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewInternalError(err)
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		Email:        input.Email,
		PasswordHash: hash,
		FullName:     input.FullName,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, apperrors.NewConflict("Email already registered")
		}
		return nil, apperrors.NewInternalError(err)
	}

	s.logger.Info("user registered", zap.Int64("user_id", user.ID))
	s.publish(ctx, events.NewEvent(events.EventUserRegistered, user.ID, s.now()))
	return user, nil
}

// Login checks credentials and issues a bearer token whose subject is the
// account email. Unknown email and wrong password are indistinguishable.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.AccessToken, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewInternalError(err)
		}
		s.hasher.VerifyDecoy(password)
		s.logger.Debug("login rejected", zap.String("outcome", "invalid_credentials"))
		return nil, apperrors.NewInvalidCredentials()
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		s.logger.Debug("login rejected", zap.String("outcome", "invalid_credentials"))
		return nil, apperrors.NewInvalidCredentials()
	}

	token, exp, err := s.tokenMgr.Issue(auth.NewClaims(user.Email))
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	s.publish(ctx, events.NewEvent(events.EventUserLoggedIn, user.ID, s.now()))
	return &domain.AccessToken{Value: token, Type: domain.TokenTypeBearer, ExpiresAt: exp}, nil
}

// VerifyToken returns the subject of a valid token.
func (s *AuthService) VerifyToken(token string) (string, error) {
	claims, err := s.tokenMgr.Verify(token)
	if err != nil || claims.Subject == "" {
		return "", apperrors.NewInvalidToken()
	}
	return claims.Subject, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, event)
}
