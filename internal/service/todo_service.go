package service

import (
	"context"
	"errors"
	"time"

	"github.com/spec-kit/todo-service/internal/domain"
	"github.com/spec-kit/todo-service/internal/events"
	"github.com/spec-kit/todo-service/internal/repository"
	apperrors "github.com/spec-kit/todo-service/pkg/util/errorutil"
)

const todoNotFoundMessage = "Todo not found or not authorized"

// TodoCreateInput describes todo creation payload.
type TodoCreateInput struct {
	Title       string
	IsCompleted bool
}

// TodoService coordinates todo workflows for an authenticated owner.
type TodoService struct {
	todos      repository.TodoRepository
	dispatcher events.Dispatcher
	now        func() time.Time
}

// NewTodoService constructs the service.
func NewTodoService(todos repository.TodoRepository, dispatcher events.Dispatcher) *TodoService {
	return &TodoService{todos: todos, dispatcher: dispatcher, now: time.Now}
}

// List returns the owner's todos.
func (s *TodoService) List(ctx context.Context, owner *domain.User) ([]domain.Todo, error) {
	todos, err := s.todos.ListByOwner(ctx, owner.ID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return todos, nil
}

// Create stores a todo owned by owner.
func (s *TodoService) Create(ctx context.Context, owner *domain.User, input TodoCreateInput) (*domain.Todo, error) {
	todo := &domain.Todo{
		OwnerID:     owner.ID,
		Title:       input.Title,
		IsCompleted: input.IsCompleted,
	}
	if err := s.todos.Create(ctx, todo); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	s.publish(ctx, events.NewEvent(events.EventTodoCreated, owner.ID, s.now()).ForTodo(todo.ID))
	return todo, nil
}

// Update applies patch to one of owner's todos. Todos owned by someone else
// are reported exactly like missing ones.
func (s *TodoService) Update(ctx context.Context, owner *domain.User, id int64, patch domain.TodoPatch) (*domain.Todo, error) {
	todo, err := s.todos.UpdateForOwner(ctx, id, owner.ID, patch)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound(todoNotFoundMessage)
		}
		return nil, apperrors.NewInternalError(err)
	}
	if !patch.Empty() {
		event := events.NewEvent(events.EventTodoUpdated, owner.ID, s.now()).ForTodo(todo.ID)
		event.Payload = events.TodoUpdatedPayload{
			TitleChanged:     patch.Title != nil,
			CompletedChanged: patch.IsCompleted != nil,
		}
		s.publish(ctx, event)
	}
	return todo, nil
}

func (s *TodoService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, event)
}
