package auth

import (
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordBytes is the longest password bcrypt hashes without truncation.
const MaxPasswordBytes = 72

// PasswordHasher hashes and checks passwords with bcrypt at a fixed cost.
type PasswordHasher struct {
	cost int

	decoyOnce sync.Once
	decoyHash []byte
}

// NewPasswordHasher builds a hasher. Costs outside bcrypt's range fall back to bcrypt.DefaultCost.
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &PasswordHasher{cost: cost}
}

// Hash returns a salted, self-describing bcrypt hash of password.
func (h *PasswordHasher) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify reports whether password matches hashed. Any failure, including a
// malformed hash, is a mismatch. Passwords longer than MaxPasswordBytes never
// match, since bcrypt would compare only their prefix.
func (h *PasswordHasher) Verify(password, hashed string) bool {
	if hashed == "" {
		return false
	}
	match := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(password)) == nil
	return match && len(password) <= MaxPasswordBytes
}

// VerifyDecoy burns the same time as Verify against a real hash and always
// fails. Used when the account does not exist.
func (h *PasswordHasher) VerifyDecoy(password string) bool {
	h.decoyOnce.Do(func() {
		h.decoyHash, _ = bcrypt.GenerateFromPassword([]byte("decoy-password"), h.cost)
	})
	_ = bcrypt.CompareHashAndPassword(h.decoyHash, []byte(password))
	return false
}
