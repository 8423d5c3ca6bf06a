package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/todo-service/internal/domain"
)

// TodoRepository encapsulates todo persistence. Every read and write is scoped to an owner.
type TodoRepository interface {
	Create(ctx context.Context, todo *domain.Todo) error
	ListByOwner(ctx context.Context, ownerID int64) ([]domain.Todo, error)
	UpdateForOwner(ctx context.Context, id, ownerID int64, patch domain.TodoPatch) (*domain.Todo, error)
}

type todoRepository struct {
	db DB
}

// NewTodoRepository instantiates repository.
func NewTodoRepository(db DB) TodoRepository {
	return &todoRepository{db: db}
}

func (r *todoRepository) Create(ctx context.Context, todo *domain.Todo) error {
	const query = `
        INSERT INTO todos (owner_id, title, is_completed)
        VALUES ($1, $2, $3)
        RETURNING id, created_at, updated_at`
	if err := r.db.QueryRow(ctx, query,
		todo.OwnerID,
		todo.Title,
		todo.IsCompleted,
	).Scan(&todo.ID, &todo.CreatedAt, &todo.UpdatedAt); err != nil {
		return fmt.Errorf("insert todo: %w", err)
	}
	return nil
}

func (r *todoRepository) ListByOwner(ctx context.Context, ownerID int64) ([]domain.Todo, error) {
	const query = `
        SELECT id, owner_id, title, is_completed, created_at, updated_at
        FROM todos WHERE owner_id=$1
        ORDER BY id`
	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	defer rows.Close()

	todos := make([]domain.Todo, 0)
	for rows.Next() {
		var todo domain.Todo
		if err := rows.Scan(
			&todo.ID,
			&todo.OwnerID,
			&todo.Title,
			&todo.IsCompleted,
			&todo.CreatedAt,
			&todo.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan todo: %w", err)
		}
		todos = append(todos, todo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	return todos, nil
}

// UpdateForOwner locks the row, applies patch and commits. Any failure rolls
// the transaction back.
func (r *todoRepository) UpdateForOwner(ctx context.Context, id, ownerID int64, patch domain.TodoPatch) (*domain.Todo, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin todo update: %w", err)
	}

	todo, err := r.updateInTx(ctx, tx, id, ownerID, patch)
	if err != nil {
		_ = tx.Rollback(ctx)
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit todo update: %w", err)
	}
	return todo, nil
}

func (r *todoRepository) updateInTx(ctx context.Context, tx pgx.Tx, id, ownerID int64, patch domain.TodoPatch) (*domain.Todo, error) {
	const selectQuery = `
        SELECT id, owner_id, title, is_completed, created_at, updated_at
        FROM todos WHERE id=$1 AND owner_id=$2
        FOR UPDATE`
	const updateQuery = `
        UPDATE todos SET title=$1, is_completed=$2, updated_at=NOW()
        WHERE id=$3 AND owner_id=$4
        RETURNING updated_at`

	var todo domain.Todo
	if err := tx.QueryRow(ctx, selectQuery, id, ownerID).Scan(
		&todo.ID,
		&todo.OwnerID,
		&todo.Title,
		&todo.IsCompleted,
		&todo.CreatedAt,
		&todo.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select todo: %w", err)
	}

	if patch.Empty() {
		return &todo, nil
	}
	patch.Apply(&todo)

	if err := tx.QueryRow(ctx, updateQuery,
		todo.Title,
		todo.IsCompleted,
		todo.ID,
		todo.OwnerID,
	).Scan(&todo.UpdatedAt); err != nil {
		return nil, fmt.Errorf("update todo: %w", err)
	}
	return &todo, nil
}
