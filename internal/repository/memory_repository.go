package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"taskmanager/internal/model"
	"taskmanager/internal/query"
)

type memoryTask struct {
	task model.Task
	seq  uint64
}

// MemoryTaskRepository keeps tasks in process memory. It backs
// STORE_DRIVER=memory and the handler tests.
type MemoryTaskRepository struct {
	mu    sync.RWMutex
	tasks map[string]memoryTask
	seq   uint64
	now   func() time.Time
}

var _ TaskRepository = (*MemoryTaskRepository)(nil)

func NewMemoryTaskRepository() *MemoryTaskRepository {
	return &MemoryTaskRepository{tasks: make(map[string]memoryTask), now: time.Now}
}

// WithClock replaces the time source used for timestamps.
func (r *MemoryTaskRepository) WithClock(now func() time.Time) *MemoryTaskRepository {
	r.now = now
	return r
}

func (r *MemoryTaskRepository) Create(_ context.Context, task model.NewTask, ownerID *string) (*model.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now().UTC()
	created := model.Task{
		ID:          uuid.NewString(),
		Title:       task.Title,
		Description: task.Description,
		Status:      task.Status,
		DueDate:     task.DueDate.UTC(),
		OwnerID:     cloneString(ownerID),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	r.seq++
	r.tasks[created.ID] = memoryTask{task: created, seq: r.seq}
	return copyTask(created), nil
}

func (r *MemoryTaskRepository) List(_ context.Context, p query.Predicate) ([]model.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]memoryTask, 0, len(r.tasks))
	for _, t := range r.tasks {
		if p.Matches(t.task) {
			matched = append(matched, t)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.task.CreatedAt.Equal(b.task.CreatedAt) {
			return a.task.CreatedAt.After(b.task.CreatedAt)
		}
		return a.seq > b.seq
	})

	tasks := make([]model.Task, 0, len(matched))
	for _, t := range matched {
		tasks = append(tasks, *copyTask(t.task))
	}
	return tasks, nil
}

func (r *MemoryTaskRepository) GetOne(_ context.Context, id string, p query.Predicate) (*model.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, err := r.lookup(id, p)
	if err != nil {
		return nil, err
	}
	return copyTask(t.task), nil
}

func (r *MemoryTaskRepository) Update(_ context.Context, id string, p query.Predicate, patch model.TaskPatch) (*model.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, err := r.lookup(id, p)
	if err != nil {
		return nil, err
	}

	patch.Apply(&t.task)
	t.task.DueDate = t.task.DueDate.UTC()
	if now := r.now().UTC(); now.After(t.task.UpdatedAt) {
		t.task.UpdatedAt = now
	}

	r.tasks[t.task.ID] = t
	return copyTask(t.task), nil
}

func (r *MemoryTaskRepository) Delete(_ context.Context, id string, p query.Predicate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, err := r.lookup(id, p)
	if err != nil {
		return err
	}
	delete(r.tasks, t.task.ID)
	return nil
}

// lookup must be called with r.mu held.
func (r *MemoryTaskRepository) lookup(id string, p query.Predicate) (memoryTask, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return memoryTask{}, ErrInvalidID
	}

	t, ok := r.tasks[parsed.String()]
	if !ok || !p.Matches(t.task) {
		return memoryTask{}, ErrTaskNotFound
	}
	return t, nil
}

// MemoryUserRepository keeps users in process memory.
type MemoryUserRepository struct {
	mu      sync.RWMutex
	byID    map[string]model.User
	byEmail map[string]string
	now     func() time.Time
}

var _ UserRepository = (*MemoryUserRepository)(nil)

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		byID:    make(map[string]model.User),
		byEmail: make(map[string]string),
		now:     time.Now,
	}
}

func (r *MemoryUserRepository) Create(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(user.Email)
	if _, exists := r.byEmail[key]; exists {
		return ErrEmailTaken
	}

	user.ID = uuid.NewString()
	user.CreatedAt = r.now().UTC()
	r.byID[user.ID] = *user
	r.byEmail[key] = user.ID
	return nil
}

func (r *MemoryUserRepository) FindByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, nil
	}
	user := r.byID[id]
	return &user, nil
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

func copyTask(t model.Task) *model.Task {
	t.OwnerID = cloneString(t.OwnerID)
	return &t
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
