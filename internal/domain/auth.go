package domain

import "time"

// TokenTypeBearer is the only token type issued.
const TokenTypeBearer = "bearer"

// AccessToken is the result of a successful login.
type AccessToken struct {
	Value     string
	Type      string
	ExpiresAt time.Time
}
