// Package jsonstore persists the task registry and monitoring state as
// JSON files, the default backend for single-node deployments.
package jsonstore

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/SpaciousAbhi/Web-ig-auto/internal/domain"
)

const (
	tasksFile  = "tasks.json"
	statesFile = "monitoring_state.json"
)

// Dir extracts the data directory from a json: database URL.
func Dir(databaseURL string) string {
	dir := strings.TrimPrefix(strings.TrimSpace(databaseURL), "json:")
	if dir == "" {
		dir = "./data"
	}
	return dir
}

// store handles locking and whole-file rewrites for one JSON document.
type store struct {
	mu   sync.Mutex
	fs   afero.Fs
	path string
}

func (s *store) load(out any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	exists, err := afero.Exists(s.fs, s.path)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		return fmt.Errorf("read %s: %w", s.path, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", s.path, err)
	}
	return nil
}

func (s *store) save(in any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(in, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", s.path, err)
	}
	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	return afero.WriteFile(s.fs, s.path, data, 0o644)
}

type taskRecord struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	SourceAccounts      []string  `json:"source_accounts"`
	DestinationAccounts []string  `json:"destination_accounts"`
	ContentTypes        []string  `json:"content_types"`
	Enabled             bool      `json:"enabled"`
	CreatedAt           time.Time `json:"created_at"`
	LastRun             time.Time `json:"last_run,omitempty"`
	LastProcessedCount  int       `json:"last_processed_count"`
	TotalProcessed      int       `json:"total_processed"`
	ErrorCount          int       `json:"error_count"`
}

// TaskRepository is a JSON-file implementation of domain.TaskRepository.
type TaskRepository struct {
	store store
}

// NewTaskRepository creates a task repository writing tasks.json under dir.
func NewTaskRepository(fs afero.Fs, dir string) *TaskRepository {
	return &TaskRepository{store: store{fs: fs, path: filepath.Join(dir, tasksFile)}}
}

// GetAll returns all tasks keyed by id.
func (r *TaskRepository) GetAll() (map[string]*domain.Task, error) {
	var records map[string]*taskRecord
	if err := r.store.load(&records); err != nil {
		return nil, err
	}

	tasks := make(map[string]*domain.Task, len(records))
	for id, rec := range records {
		tasks[id] = rec.toTask()
	}
	return tasks, nil
}

// GetByID returns a task by id, nil if absent.
func (r *TaskRepository) GetByID(id string) (*domain.Task, error) {
	tasks, err := r.GetAll()
	if err != nil {
		return nil, err
	}
	return tasks[id], nil
}

// Save creates or updates a task, rewriting the whole file.
func (r *TaskRepository) Save(task *domain.Task) error {
	var records map[string]*taskRecord
	if err := r.store.load(&records); err != nil {
		return err
	}
	if records == nil {
		records = map[string]*taskRecord{}
	}
	records[task.ID] = fromTask(task)
	return r.store.save(records)
}

func (t *taskRecord) toTask() *domain.Task {
	return &domain.Task{
		ID:                  t.ID,
		Name:                t.Name,
		SourceAccounts:      t.SourceAccounts,
		DestinationAccounts: t.DestinationAccounts,
		ContentTypes:        t.ContentTypes,
		Enabled:             t.Enabled,
		CreatedAt:           t.CreatedAt,
		LastRun:             t.LastRun,
		LastProcessedCount:  t.LastProcessedCount,
		TotalProcessed:      t.TotalProcessed,
		ErrorCount:          t.ErrorCount,
	}
}

func fromTask(task *domain.Task) *taskRecord {
	return &taskRecord{
		ID:                  task.ID,
		Name:                task.Name,
		SourceAccounts:      task.SourceAccounts,
		DestinationAccounts: task.DestinationAccounts,
		ContentTypes:        task.ContentTypes,
		Enabled:             task.Enabled,
		CreatedAt:           task.CreatedAt,
		LastRun:             task.LastRun,
		LastProcessedCount:  task.LastProcessedCount,
		TotalProcessed:      task.TotalProcessed,
		ErrorCount:          task.ErrorCount,
	}
}

type stateRecord struct {
	ContentTypes   []string          `json:"content_types"`
	Cursors        map[string]string `json:"cursors"`
	LastCheck      time.Time         `json:"last_check,omitempty"`
	TotalMonitored int               `json:"total_monitored"`
	ErrorCount     int               `json:"error_count"`
	Active         bool              `json:"active"`
}

// StateRepository is a JSON-file implementation of domain.StateRepository.
type StateRepository struct {
	store store
}

// NewStateRepository creates a state repository writing
// monitoring_state.json under dir.
func NewStateRepository(fs afero.Fs, dir string) *StateRepository {
	return &StateRepository{store: store{fs: fs, path: filepath.Join(dir, statesFile)}}
}

// GetAll returns all monitoring states keyed by source account.
func (r *StateRepository) GetAll() (map[string]*domain.MonitoringState, error) {
	var records map[string]*stateRecord
	if err := r.store.load(&records); err != nil {
		return nil, err
	}

	states := make(map[string]*domain.MonitoringState, len(records))
	for account, rec := range records {
		states[account] = rec.toState()
	}
	return states, nil
}

// Get returns the state for one source account, nil if absent.
func (r *StateRepository) Get(account string) (*domain.MonitoringState, error) {
	states, err := r.GetAll()
	if err != nil {
		return nil, err
	}
	return states[account], nil
}

// Save creates or updates the state for one account, rewriting the
// whole file.
func (r *StateRepository) Save(account string, state *domain.MonitoringState) error {
	var records map[string]*stateRecord
	if err := r.store.load(&records); err != nil {
		return err
	}
	if records == nil {
		records = map[string]*stateRecord{}
	}
	records[account] = fromState(state)
	return r.store.save(records)
}

func (s *stateRecord) toState() *domain.MonitoringState {
	cursors := s.Cursors
	if cursors == nil {
		cursors = map[string]string{}
	}
	return &domain.MonitoringState{
		ContentTypes:   s.ContentTypes,
		Cursors:        cursors,
		LastCheck:      s.LastCheck,
		TotalMonitored: s.TotalMonitored,
		ErrorCount:     s.ErrorCount,
		Active:         s.Active,
	}
}

func fromState(state *domain.MonitoringState) *stateRecord {
	return &stateRecord{
		ContentTypes:   state.ContentTypes,
		Cursors:        state.Cursors,
		LastCheck:      state.LastCheck,
		TotalMonitored: state.TotalMonitored,
		ErrorCount:     state.ErrorCount,
		Active:         state.Active,
	}
}
