package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/SpaciousAbhi/Web-ig-auto/internal/domain"
)

// TaskRepository is a SQLite implementation of domain.TaskRepository.
type TaskRepository struct {
	db *sql.DB
}

// NewTaskRepository creates a new TaskRepository backed by SQLite.
func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// GetAll returns all tasks keyed by id.
func (r *TaskRepository) GetAll() (map[string]*domain.Task, error) {
	rows, err := r.db.Query(`SELECT id, name, source_accounts, destination_accounts, content_types,
		enabled, created_at, last_run, last_processed_count, total_processed, error_count
		FROM tasks ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := map[string]*domain.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks[task.ID] = task
	}
	return tasks, rows.Err()
}

// GetByID returns a task by id, nil if absent.
func (r *TaskRepository) GetByID(id string) (*domain.Task, error) {
	row := r.db.QueryRow(`SELECT id, name, source_accounts, destination_accounts, content_types,
		enabled, created_at, last_run, last_processed_count, total_processed, error_count
		FROM tasks WHERE id = ?`, id)
	return scanTask(row)
}

// Save inserts or updates a task.
func (r *TaskRepository) Save(task *domain.Task) error {
	sources, err := json.Marshal(task.SourceAccounts)
	if err != nil {
		return fmt.Errorf("encode source accounts: %w", err)
	}
	destinations, err := json.Marshal(task.DestinationAccounts)
	if err != nil {
		return fmt.Errorf("encode destination accounts: %w", err)
	}
	contentTypes, err := json.Marshal(task.ContentTypes)
	if err != nil {
		return fmt.Errorf("encode content types: %w", err)
	}

	_, err = r.db.Exec(`INSERT INTO tasks
		(id, name, source_accounts, destination_accounts, content_types,
		enabled, created_at, last_run, last_processed_count, total_processed, error_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			source_accounts = excluded.source_accounts,
			destination_accounts = excluded.destination_accounts,
			content_types = excluded.content_types,
			enabled = excluded.enabled,
			last_run = excluded.last_run,
			last_processed_count = excluded.last_processed_count,
			total_processed = excluded.total_processed,
			error_count = excluded.error_count`,
		task.ID, task.Name, string(sources), string(destinations), string(contentTypes),
		boolToInt(task.Enabled), task.CreatedAt.UTC(), nullableTime(task.LastRun),
		task.LastProcessedCount, task.TotalProcessed, task.ErrorCount)
	return err
}

func scanTask(scanner interface {
	Scan(dest ...any) error
}) (*domain.Task, error) {
	var (
		sources      string
		destinations string
		contentTypes string
		enabled      int
		lastRun      sql.NullTime
		task         domain.Task
	)

	if err := scanner.Scan(
		&task.ID,
		&task.Name,
		&sources,
		&destinations,
		&contentTypes,
		&enabled,
		&task.CreatedAt,
		&lastRun,
		&task.LastProcessedCount,
		&task.TotalProcessed,
		&task.ErrorCount,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	if err := json.Unmarshal([]byte(sources), &task.SourceAccounts); err != nil {
		return nil, fmt.Errorf("decode source accounts: %w", err)
	}
	if err := json.Unmarshal([]byte(destinations), &task.DestinationAccounts); err != nil {
		return nil, fmt.Errorf("decode destination accounts: %w", err)
	}
	if err := json.Unmarshal([]byte(contentTypes), &task.ContentTypes); err != nil {
		return nil, fmt.Errorf("decode content types: %w", err)
	}
	task.Enabled = enabled == 1
	if lastRun.Valid {
		task.LastRun = lastRun.Time
	}
	return &task, nil
}

func nullableTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
