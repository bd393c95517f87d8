package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"taskmanager/internal/model"
	"taskmanager/internal/query"
)

// TaskRow is the Postgres representation of a task.
type TaskRow struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Title       string    `gorm:"size:120;not null"`
	Description string    `gorm:"size:2000;not null"`
	Status      string    `gorm:"not null;index"`
	DueDate     time.Time `gorm:"not null"`
	OwnerID     *string   `gorm:"index"`
	CreatedAt   time.Time `gorm:"not null;index"`
	UpdatedAt   time.Time `gorm:"not null"`
}

func (TaskRow) TableName() string {
	return "tasks"
}

func (r TaskRow) toModel() model.Task {
	return model.Task{
		ID:          r.ID.String(),
		Title:       r.Title,
		Description: r.Description,
		Status:      model.Status(r.Status),
		DueDate:     r.DueDate.UTC(),
		OwnerID:     r.OwnerID,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

type GormTaskRepository struct {
	db  *gorm.DB
	now func() time.Time
}

var _ TaskRepository = (*GormTaskRepository)(nil)

func NewGormTaskRepository(db *gorm.DB) *GormTaskRepository {
	return &GormTaskRepository{db: db, now: time.Now}
}

// Create adds a new task to the database
func (r *GormTaskRepository) Create(ctx context.Context, task model.NewTask, ownerID *string) (*model.Task, error) {
	// Postgres timestamps keep microsecond precision
	now := r.now().UTC().Truncate(time.Microsecond)
	row := TaskRow{
		Title:       task.Title,
		Description: task.Description,
		Status:      string(task.Status),
		DueDate:     task.DueDate.UTC().Truncate(time.Microsecond),
		OwnerID:     ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, err
	}

	created := row.toModel()
	return &created, nil
}

// List retrieves all matching tasks, newest first
func (r *GormTaskRepository) List(ctx context.Context, p query.Predicate) ([]model.Task, error) {
	var rows []TaskRow
	result := r.db.WithContext(ctx).
		Scopes(predicateScope(p)).
		Order("created_at DESC").
		Find(&rows)
	if result.Error != nil {
		return nil, result.Error
	}

	tasks := make([]model.Task, 0, len(rows))
	for _, row := range rows {
		tasks = append(tasks, row.toModel())
	}
	return tasks, nil
}

// GetOne retrieves a task by its ID within the predicate
func (r *GormTaskRepository) GetOne(ctx context.Context, id string, p query.Predicate) (*model.Task, error) {
	taskID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrInvalidID
	}

	var row TaskRow
	result := r.db.WithContext(ctx).Where("id = ?", taskID).Scopes(predicateScope(p)).First(&row)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, result.Error
	}

	task := row.toModel()
	return &task, nil
}

// Update applies the patch in a single UPDATE ... RETURNING statement
func (r *GormTaskRepository) Update(ctx context.Context, id string, p query.Predicate, patch model.TaskPatch) (*model.Task, error) {
	taskID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrInvalidID
	}

	values := map[string]interface{}{
		"updated_at": r.now().UTC().Truncate(time.Microsecond),
	}
	if patch.Title != nil {
		values["title"] = *patch.Title
	}
	if patch.Description != nil {
		values["description"] = *patch.Description
	}
	if patch.Status != nil {
		values["status"] = string(*patch.Status)
	}
	if patch.DueDate != nil {
		values["due_date"] = patch.DueDate.UTC().Truncate(time.Microsecond)
	}

	var row TaskRow
	result := r.db.WithContext(ctx).
		Model(&row).
		Clauses(clause.Returning{}).
		Where("id = ?", taskID).
		Scopes(predicateScope(p)).
		Updates(values)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrTaskNotFound
	}

	task := row.toModel()
	return &task, nil
}

// Delete removes a task by its ID within the predicate
func (r *GormTaskRepository) Delete(ctx context.Context, id string, p query.Predicate) error {
	taskID, err := uuid.Parse(id)
	if err != nil {
		return ErrInvalidID
	}

	result := r.db.WithContext(ctx).Where("id = ?", taskID).Scopes(predicateScope(p)).Delete(&TaskRow{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

func predicateScope(p query.Predicate) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if p.Status != nil {
			db = db.Where("status = ?", string(*p.Status))
		}
		if p.Search != "" {
			like := "%" + escapeLike(p.Search) + "%"
			db = db.Where("title ILIKE ? OR description ILIKE ?", like, like)
		}
		if p.OwnerID != nil {
			db = db.Where("owner_id = ?", *p.OwnerID)
		}
		return db
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes LIKE wildcards in user input match literally.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
