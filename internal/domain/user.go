package domain

import "time"

// User is an account that owns todos.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	FullName     *string
	IsActive     bool
	CreatedAt    time.Time
}
