package domain

import "time"

// Todo is a single task owned by one user.
type Todo struct {
	ID          int64
	OwnerID     int64
	Title       string
	IsCompleted bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TodoPatch is a partial update. Nil fields are left untouched.
type TodoPatch struct {
	Title       *string
	IsCompleted *bool
}

// Empty reports whether the patch changes nothing.
func (p TodoPatch) Empty() bool {
	return p.Title == nil && p.IsCompleted == nil
}

// Apply copies the set fields onto todo.
func (p TodoPatch) Apply(todo *Todo) {
	if p.Title != nil {
		todo.Title = *p.Title
	}
	if p.IsCompleted != nil {
		todo.IsCompleted = *p.IsCompleted
	}
}
