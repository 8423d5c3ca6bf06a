package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/spec-kit/todo-service/internal/domain"
)

// MemoryStore keeps users and todos in process memory. It backs the service
// when no database is configured and in tests.
type MemoryStore struct {
	mu         sync.RWMutex
	users      map[int64]domain.User
	emails     map[string]int64
	todos      map[int64]domain.Todo
	nextUserID int64
	nextTodoID int64
	now        func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:  make(map[int64]domain.User),
		emails: make(map[string]int64),
		todos:  make(map[int64]domain.Todo),
		now:    time.Now,
	}
}

// Users returns a UserRepository view of the store.
func (s *MemoryStore) Users() UserRepository {
	return memoryUsers{s}
}

// Todos returns a TodoRepository view of the store.
func (s *MemoryStore) Todos() TodoRepository {
	return memoryTodos{s}
}

// DeleteUser removes a user and their todos.
func (s *MemoryStore) DeleteUser(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return
	}
	delete(s.emails, user.Email)
	delete(s.users, id)
	for todoID, todo := range s.todos {
		if todo.OwnerID == id {
			delete(s.todos, todoID)
		}
	}
}

type memoryUsers struct {
	s *MemoryStore
}

func (m memoryUsers) Create(_ context.Context, user *domain.User) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, exists := m.s.emails[user.Email]; exists {
		return ErrDuplicateEmail
	}
	m.s.nextUserID++
	user.ID = m.s.nextUserID
	user.CreatedAt = m.s.now()
	m.s.users[user.ID] = *user
	m.s.emails[user.Email] = user.ID
	return nil
}

func (m memoryUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	id, ok := m.s.emails[email]
	if !ok {
		return nil, ErrNotFound
	}
	user := m.s.users[id]
	return &user, nil
}

type memoryTodos struct {
	s *MemoryStore
}

func (m memoryTodos) Create(_ context.Context, todo *domain.Todo) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.nextTodoID++
	now := m.s.now()
	todo.ID = m.s.nextTodoID
	todo.CreatedAt = now
	todo.UpdatedAt = now
	m.s.todos[todo.ID] = *todo
	return nil
}

func (m memoryTodos) ListByOwner(_ context.Context, ownerID int64) ([]domain.Todo, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	todos := make([]domain.Todo, 0)
	for _, todo := range m.s.todos {
		if todo.OwnerID == ownerID {
			todos = append(todos, todo)
		}
	}
	sort.Slice(todos, func(i, j int) bool { return todos[i].ID < todos[j].ID })
	return todos, nil
}

func (m memoryTodos) UpdateForOwner(_ context.Context, id, ownerID int64, patch domain.TodoPatch) (*domain.Todo, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	todo, ok := m.s.todos[id]
	if !ok || todo.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	if !patch.Empty() {
		patch.Apply(&todo)
		todo.UpdatedAt = m.s.now()
		m.s.todos[id] = todo
	}
	return &todo, nil
}
