package memory

import (
	"sync"

	"github.com/SpaciousAbhi/Web-ig-auto/internal/domain"
)

// TaskRepository is an in-memory implementation of domain.TaskRepository
type TaskRepository struct {
	mu    sync.RWMutex
	tasks map[string]*domain.Task
}

// NewTaskRepository creates a new in-memory task repository
func NewTaskRepository() *TaskRepository {
	return &TaskRepository{
		tasks: make(map[string]*domain.Task),
	}
}

// GetAll returns all tasks keyed by id
func (r *TaskRepository) GetAll() (map[string]*domain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tasks := make(map[string]*domain.Task, len(r.tasks))
	for id, task := range r.tasks {
		c := *task
		tasks[id] = &c
	}
	return tasks, nil
}

// GetByID returns a task by its ID, nil if absent
func (r *TaskRepository) GetByID(id string) (*domain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	task, exists := r.tasks[id]
	if !exists {
		return nil, nil
	}

	c := *task
	return &c, nil
}

// Save creates or updates a task
func (r *TaskRepository) Save(task *domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := *task
	r.tasks[task.ID] = &c
	return nil
}
