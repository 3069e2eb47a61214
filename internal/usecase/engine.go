package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/SpaciousAbhi/Web-ig-auto/config"
	"github.com/SpaciousAbhi/Web-ig-auto/internal/domain"
	"github.com/SpaciousAbhi/Web-ig-auto/internal/infrastructure/downloader"
	"github.com/SpaciousAbhi/Web-ig-auto/internal/infrastructure/instagram"
	"github.com/SpaciousAbhi/Web-ig-auto/internal/logger"
)

// TaskResult summarizes one task run.
type TaskResult struct {
	TaskID     string    `json:"task_id"`
	Success    bool      `json:"success"`
	NewItems   int       `json:"new_items"`
	Downloaded int       `json:"downloaded"`
	Uploaded   int       `json:"uploaded"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// SessionFactory authenticates one account and returns a live session.
// Indirection lets tests inject fake sessions without network access.
type SessionFactory func(ctx context.Context, username, password string) (instagram.Session, error)

// Engine ties monitoring, downloading and uploading together and runs
// synchronization tasks against the registered accounts.
type Engine struct {
	cfg        *config.Config
	taskRepo   domain.TaskRepository
	monitor    *ContentMonitor
	download   *downloader.Service
	uploader   *ContentUploader
	newSession SessionFactory

	now     domain.Clock
	sleeper domain.Sleeper

	mu       sync.Mutex
	sessions map[string]instagram.Session
	running  map[string]bool
}

// NewEngine creates the orchestration engine. The default session
// factory performs a real login against the configured endpoint.
func NewEngine(cfg *config.Config, taskRepo domain.TaskRepository, monitor *ContentMonitor, download *downloader.Service, uploader *ContentUploader, newSession SessionFactory) *Engine {
	return &Engine{
		cfg:        cfg,
		taskRepo:   taskRepo,
		monitor:    monitor,
		download:   download,
		uploader:   uploader,
		newSession: newSession,
		now:        time.Now,
		sleeper:    domain.RealSleeper{},
		sessions:   map[string]instagram.Session{},
		running:    map[string]bool{},
	}
}

// SetClock overrides the wall clock, for tests.
func (e *Engine) SetClock(now domain.Clock) {
	e.now = now
}

// SetSleeper overrides the delay implementation, for tests.
func (e *Engine) SetSleeper(sleeper domain.Sleeper) {
	e.sleeper = sleeper
}

// AddAccount authenticates the account and keeps the session for use
// as a monitoring or publishing identity.
func (e *Engine) AddAccount(ctx context.Context, username, password string) error {
	session, err := e.newSession(ctx, username, password)
	if err != nil {
		return fmt.Errorf("authenticate %s: %w", username, err)
	}

	e.mu.Lock()
	e.sessions[username] = session
	e.mu.Unlock()

	logger.Info().Printf("Account %s added", username)
	return nil
}

// Accounts lists the authenticated account names, sorted.
func (e *Engine) Accounts() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	names := make([]string, 0, len(e.sessions))
	for name := range e.sessions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (e *Engine) session(account string) (instagram.Session, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions[account]
	return s, ok
}

// CreateTask registers a new synchronization task. Every destination
// must already be an authenticated account; sources are registered
// with the monitor as a side effect.
func (e *Engine) CreateTask(name string, sources, destinations, contentTypes []string) (*domain.Task, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("task needs at least one source account")
	}
	if len(destinations) == 0 {
		return nil, fmt.Errorf("task needs at least one destination account")
	}
	for _, dest := range destinations {
		if _, ok := e.session(dest); !ok {
			return nil, fmt.Errorf("destination %s is not an authenticated account", dest)
		}
	}
	if len(contentTypes) == 0 {
		contentTypes = []string{domain.ContentClassPosts, domain.ContentClassStories, domain.ContentClassReels}
	}

	task := &domain.Task{
		ID:                  uuid.New().String(),
		Name:                name,
		SourceAccounts:      sources,
		DestinationAccounts: destinations,
		ContentTypes:        contentTypes,
		Enabled:             true,
		CreatedAt:           e.now(),
	}
	if err := e.taskRepo.Save(task); err != nil {
		return nil, fmt.Errorf("save task: %w", err)
	}

	for _, source := range sources {
		if err := e.monitor.Register(source, contentTypes); err != nil {
			logger.Warn().Printf("Failed to register monitoring for %s: %v", source, err)
		}
	}

	logger.Info().Printf("Created task %s (%s): %d source(s) -> %d destination(s)", task.ID, name, len(sources), len(destinations))
	return task, nil
}

// ToggleTask sets the enabled flag to the given state and returns the
// resulting value. Setting the current state again is a no-op.
func (e *Engine) ToggleTask(taskID string, enabled bool) (bool, error) {
	task, err := e.GetTask(taskID)
	if err != nil {
		return false, err
	}
	if task.Enabled != enabled {
		task.Enabled = enabled
		if err := e.taskRepo.Save(task); err != nil {
			return false, err
		}
		logger.Info().Printf("Task %s enabled=%v", taskID, enabled)
	}
	return task.Enabled, nil
}

// GetTask returns a single task.
func (e *Engine) GetTask(taskID string) (*domain.Task, error) {
	task, err := e.taskRepo.GetByID(taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, fmt.Errorf("task %s not found", taskID)
	}
	return task, nil
}

// Tasks returns all registered tasks ordered by creation time.
func (e *Engine) Tasks() ([]*domain.Task, error) {
	byID, err := e.taskRepo.GetAll()
	if err != nil {
		return nil, err
	}
	tasks := make([]*domain.Task, 0, len(byID))
	for _, task := range byID {
		tasks = append(tasks, task)
	}
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].ID < tasks[j].ID
		}
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
	return tasks, nil
}

// tryLock marks the task as running. Second callers get false until
// the first run releases.
func (e *Engine) tryLock(taskID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running[taskID] {
		return false
	}
	e.running[taskID] = true
	return true
}

func (e *Engine) unlock(taskID string) {
	e.mu.Lock()
	delete(e.running, taskID)
	e.mu.Unlock()
}

// RunTask executes one full cycle of a task: poll every source,
// download the new items and publish each to every destination. Task
// bookkeeping is persisted whether the run succeeds or fails.
func (e *Engine) RunTask(ctx context.Context, taskID string) (result *TaskResult, err error) {
	task, err := e.GetTask(taskID)
	if err != nil {
		return nil, err
	}
	if !task.Enabled {
		return nil, fmt.Errorf("task %s is disabled", taskID)
	}
	if !e.tryLock(taskID) {
		return nil, fmt.Errorf("task %s is already running", taskID)
	}
	defer e.unlock(taskID)

	result = &TaskResult{TaskID: taskID, StartedAt: e.now()}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panicked: %v", taskID, r)
		}
		result.FinishedAt = e.now()
		if err != nil {
			result.Success = false
			result.Error = err.Error()
			task.ErrorCount++
		}
		task.LastRun = result.FinishedAt
		if saveErr := e.taskRepo.Save(task); saveErr != nil {
			logger.Error().Printf("Failed to persist task %s after run: %v", taskID, saveErr)
		}
	}()

	logger.Info().Printf("Running task %s (%s)", taskID, task.Name)

	var newItems []*domain.ContentItem
	for _, source := range task.SourceAccounts {
		session, ok := e.session(source)
		if !ok {
			// Sources without their own login are read through
			// any destination session.
			session, ok = e.anyDestinationSession(task)
		}
		if !ok {
			logger.Warn().Printf("No session available to poll %s, skipping", source)
			continue
		}

		items, pollErr := e.monitor.Poll(ctx, source, session)
		if pollErr != nil {
			logger.Error().Printf("Polling %s failed: %v", source, pollErr)
			continue
		}
		newItems = append(newItems, items...)
	}

	result.NewItems = len(newItems)
	if len(newItems) == 0 {
		logger.Info().Printf("Task %s: no new content", taskID)
		result.Success = true
		task.LastProcessedCount = 0
		return result, nil
	}

	paths := e.download.DownloadBatch(ctx, newItems)

	var ready []*domain.ContentItem
	for _, item := range newItems {
		if paths[item.MediaID] == "" {
			continue
		}
		ready = append(ready, item)
	}
	result.Downloaded = len(ready)

	for _, item := range ready {
		for _, dest := range task.DestinationAccounts {
			session, ok := e.session(dest)
			if !ok {
				logger.Error().Printf("Destination %s has no session, skipping", dest)
				continue
			}
			if e.uploader.Publish(ctx, item, dest, session) {
				result.Uploaded++
			}
			e.sleeper.Sleep(ctx, e.cfg.InterUploadDelay)
		}
	}

	result.Success = true
	task.LastProcessedCount = result.Uploaded
	task.TotalProcessed += result.Uploaded
	logger.Info().Printf("Task %s done: %d new, %d downloaded, %d uploaded", taskID, result.NewItems, result.Downloaded, result.Uploaded)
	return result, nil
}

func (e *Engine) anyDestinationSession(task *domain.Task) (instagram.Session, bool) {
	for _, dest := range task.DestinationAccounts {
		if s, ok := e.session(dest); ok {
			return s, true
		}
	}
	return nil, false
}

// RunAllEnabled runs every enabled task in sequence with a pause
// between tasks. One failing task never stops the sweep.
func (e *Engine) RunAllEnabled(ctx context.Context) []*TaskResult {
	tasks, err := e.Tasks()
	if err != nil {
		logger.Error().Printf("Failed to list tasks: %v", err)
		return nil
	}

	var results []*TaskResult
	first := true
	for _, task := range tasks {
		if !task.Enabled {
			continue
		}
		if !first {
			e.sleeper.Sleep(ctx, e.cfg.InterTaskDelay)
		}
		first = false

		result, runErr := e.RunTask(ctx, task.ID)
		if runErr != nil {
			logger.Error().Printf("Task %s failed: %v", task.ID, runErr)
			if result == nil {
				result = &TaskResult{TaskID: task.ID, Error: runErr.Error()}
			}
		}
		results = append(results, result)
	}
	return results
}

// MonitoringStats returns the persisted per-source monitoring state.
func (e *Engine) MonitoringStats() (map[string]*domain.MonitoringState, error) {
	return e.monitor.States()
}

// UploadStats returns per-destination upload statistics.
func (e *Engine) UploadStats() map[string]*AccountUploadStats {
	return e.uploader.Stats()
}

// DownloadStats returns cumulative download counters.
func (e *Engine) DownloadStats() downloader.Stats {
	return e.download.Stats()
}
