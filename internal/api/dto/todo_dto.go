package dto

import "github.com/spec-kit/todo-service/internal/domain"

// TodoCreateRequest payload for POST /todos.
type TodoCreateRequest struct {
	Title       string `json:"title" validate:"required,notblank,max=255"`
	IsCompleted bool   `json:"is_completed"`
}

// TodoUpdateRequest payload for PATCH /todos/:id. Absent or null fields are left unchanged.
type TodoUpdateRequest struct {
	Title       *string `json:"title" validate:"omitempty,notblank,max=255"`
	IsCompleted *bool   `json:"is_completed"`
}

// Patch converts the request to a domain patch.
func (r TodoUpdateRequest) Patch() domain.TodoPatch {
	return domain.TodoPatch{Title: r.Title, IsCompleted: r.IsCompleted}
}

// TodoResponse is the public view of a todo.
type TodoResponse struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	IsCompleted bool   `json:"is_completed"`
	OwnerID     int64  `json:"owner_id"`
}

// NewTodoResponse maps a domain todo.
func NewTodoResponse(todo *domain.Todo) TodoResponse {
	return TodoResponse{
		ID:          todo.ID,
		Title:       todo.Title,
		IsCompleted: todo.IsCompleted,
		OwnerID:     todo.OwnerID,
	}
}

// NewTodoListResponse maps a slice of todos, never returning nil.
func NewTodoListResponse(todos []domain.Todo) []TodoResponse {
	out := make([]TodoResponse, 0, len(todos))
	for i := range todos {
		out = append(out, NewTodoResponse(&todos[i]))
	}
	return out
}
