package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/todo-service/internal/api/dto"
	"github.com/spec-kit/todo-service/internal/auth"
	"github.com/spec-kit/todo-service/internal/service"
	apperrors "github.com/spec-kit/todo-service/pkg/util/errorutil"
)

// UsersHandler exposes sign-up and token endpoints.
type UsersHandler struct {
	auth *service.AuthService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(authService *service.AuthService) *UsersHandler {
	return &UsersHandler{auth: authService}
}

// SignUp handles POST /sign-up.
func (h *UsersHandler) SignUp(c *fiber.Ctx) error {
	var req dto.SignUpRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	user, err := h.auth.Register(c.UserContext(), service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.NewUserResponse(user))
}

// Token handles POST /token. Accepts form-encoded or JSON credentials.
func (h *UsersHandler) Token(c *fiber.Ctx) error {
	var req dto.TokenRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	token, err := h.auth.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTokenResponse(token))
}

// VerifyToken handles GET /verify-token. A missing header and a bad token
// both answer "Invalid token".
func (h *UsersHandler) VerifyToken(c *fiber.Ctx) error {
	token, ok := auth.BearerToken(c)
	if !ok {
		return apperrors.NewInvalidToken()
	}
	subject, err := h.auth.VerifyToken(token)
	if err != nil {
		return err
	}
	return c.JSON(dto.VerifyTokenResponse{Message: "Token is valid", User: subject})
}
