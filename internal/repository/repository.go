package repository

import (
	"context"

	"taskmanager/internal/model"
	"taskmanager/internal/query"
)

// TaskRepository is the persistence boundary for tasks. Every operation is
// scoped by a predicate built in the query package.
type TaskRepository interface {
	Create(ctx context.Context, task model.NewTask, ownerID *string) (*model.Task, error)
	// List returns matching tasks, newest first.
	List(ctx context.Context, p query.Predicate) ([]model.Task, error)
	GetOne(ctx context.Context, id string, p query.Predicate) (*model.Task, error)
	Update(ctx context.Context, id string, p query.Predicate, patch model.TaskPatch) (*model.Task, error)
	Delete(ctx context.Context, id string, p query.Predicate) error
}

type UserRepository interface {
	// Create stores the user and fills in ID and CreatedAt.
	Create(ctx context.Context, user *model.User) error
	// FindByEmail returns nil, nil when no user has the email.
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	// GetByID returns nil, nil when the user does not exist.
	GetByID(ctx context.Context, id string) (*model.User, error)
}
