package dto

import "github.com/spec-kit/todo-service/internal/domain"

// SignUpRequest payload for new users.
type SignUpRequest struct {
	Email    string  `json:"email" validate:"required,email,max=255"`
	Password string  `json:"password" validate:"required,bcrypt_len"`
	FullName *string `json:"full_name" validate:"omitempty,max=100"`
}

// TokenRequest carries OAuth2 password-grant style credentials. The email
// travels in the username field.
type TokenRequest struct {
	Username string `json:"username" form:"username" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

// TokenResponse is returned by the token endpoint.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// UserResponse is the public view of an account. It never carries the hash.
type UserResponse struct {
	ID       int64   `json:"id"`
	Email    string  `json:"email"`
	FullName *string `json:"full_name"`
	IsActive bool    `json:"is_active"`
}

// VerifyTokenResponse confirms a token and names its subject.
type VerifyTokenResponse struct {
	Message string `json:"message"`
	User    string `json:"user"`
}

// NewUserResponse maps a domain user.
func NewUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:       user.ID,
		Email:    user.Email,
		FullName: user.FullName,
		IsActive: user.IsActive,
	}
}

// NewTokenResponse maps an issued token.
func NewTokenResponse(token *domain.AccessToken) TokenResponse {
	return TokenResponse{AccessToken: token.Value, TokenType: token.Type}
}
