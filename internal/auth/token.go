package auth

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is the only error Verify returns.
var ErrInvalidToken = errors.New("invalid token")

// ErrMissingSubject is returned by Issue when the claims carry no subject.
var ErrMissingSubject = errors.New("token subject required")

// TokenManager handles issuing and validating JWT tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	method jwt.SigningMethod
	now    func() time.Time
}

// TokenOption customizes a TokenManager.
type TokenOption func(*TokenManager)

// WithClock replaces time.Now for issuance and expiry checks.
func WithClock(now func() time.Time) TokenOption {
	return func(tm *TokenManager) {
		if now != nil {
			tm.now = now
		}
	}
}

// NewTokenManager builds a new manager. Only HMAC algorithms are accepted.
func NewTokenManager(secret string, ttl time.Duration, algorithm string, opts ...TokenOption) (*TokenManager, error) {
	if secret == "" {
		return nil, errors.New("token secret must not be empty")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token ttl must be positive, got %s", ttl)
	}
	method, ok := jwt.GetSigningMethod(algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported signing algorithm %q", algorithm)
	}

	tm := &TokenManager{
		secret: []byte(secret),
		ttl:    ttl,
		method: method,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(tm)
	}
	return tm, nil
}

// Claims describes JWT payload. The subject is the user's email.
type Claims struct {
	jwt.RegisteredClaims
}

// NewClaims returns claims for subject.
func NewClaims(subject string) Claims {
	return Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: subject}}
}

// Issue stamps expiry, issue time and a token id onto a copy of claims and signs it.
// JWT dates have whole-second precision, so the issue time is truncated to the
// second and exp is exactly iat plus the TTL. The returned time equals the
// encoded exp.
func (tm *TokenManager) Issue(claims Claims) (string, time.Time, error) {
	if claims.Subject == "" {
		return "", time.Time{}, ErrMissingSubject
	}

	now := tm.now().Truncate(time.Second)
	expiresAt := now.Add(tm.ttl)
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(expiresAt)
	claims.ID = uuid.NewString()

	token := jwt.NewWithClaims(tm.method, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, claims.ExpiresAt.Time, nil
}

// Verify checks signature, algorithm and expiry and returns the decoded claims.
func (tm *TokenManager) Verify(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return tm.secret, nil
	},
		jwt.WithValidMethods([]string{tm.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(tm.now),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
