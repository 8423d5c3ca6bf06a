package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/todo-service/internal/api/dto"
	"github.com/spec-kit/todo-service/internal/auth"
	"github.com/spec-kit/todo-service/internal/service"
	apperrors "github.com/spec-kit/todo-service/pkg/util/errorutil"
)

// TodosHandler manages the caller's todo endpoints.
type TodosHandler struct {
	service *service.TodoService
}

// NewTodosHandler constructs handler.
func NewTodosHandler(todoService *service.TodoService) *TodosHandler {
	return &TodosHandler{service: todoService}
}

// List GET /todos.
func (h *TodosHandler) List(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized()
	}
	todos, err := h.service.List(c.UserContext(), user)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTodoListResponse(todos))
}

// Create POST /todos.
func (h *TodosHandler) Create(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized()
	}
	var req dto.TodoCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	todo, err := h.service.Create(c.UserContext(), user, service.TodoCreateInput{
		Title:       req.Title,
		IsCompleted: req.IsCompleted,
	})
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTodoResponse(todo))
}

// Update PATCH /todos/:id.
func (h *TodosHandler) Update(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized()
	}
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return apperrors.NewValidationError("id must be an integer", nil)
	}

	var req dto.TodoUpdateRequest
	if err := dto.DecodeStrict(c.Body(), &req); err != nil {
		return err
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	todo, err := h.service.Update(c.UserContext(), user, id, req.Patch())
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTodoResponse(todo))
}
