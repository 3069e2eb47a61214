package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/SpaciousAbhi/Web-ig-auto/internal/domain"
)

// StateRepository is a SQLite implementation of domain.StateRepository.
type StateRepository struct {
	db *sql.DB
}

// NewStateRepository creates a new StateRepository backed by SQLite.
func NewStateRepository(db *sql.DB) *StateRepository {
	return &StateRepository{db: db}
}

// GetAll returns all monitoring states keyed by source account.
func (r *StateRepository) GetAll() (map[string]*domain.MonitoringState, error) {
	rows, err := r.db.Query(`SELECT account, content_types, cursors, last_check,
		total_monitored, error_count, active FROM monitoring_states`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	states := map[string]*domain.MonitoringState{}
	for rows.Next() {
		account, state, err := scanState(rows)
		if err != nil {
			return nil, err
		}
		states[account] = state
	}
	return states, rows.Err()
}

// Get returns the state for one source account, nil if absent.
func (r *StateRepository) Get(account string) (*domain.MonitoringState, error) {
	row := r.db.QueryRow(`SELECT account, content_types, cursors, last_check,
		total_monitored, error_count, active FROM monitoring_states WHERE account = ?`, account)
	_, state, err := scanState(row)
	return state, err
}

// Save inserts or updates the state for one source account.
func (r *StateRepository) Save(account string, state *domain.MonitoringState) error {
	contentTypes, err := json.Marshal(state.ContentTypes)
	if err != nil {
		return fmt.Errorf("encode content types: %w", err)
	}
	cursors, err := json.Marshal(state.Cursors)
	if err != nil {
		return fmt.Errorf("encode cursors: %w", err)
	}

	_, err = r.db.Exec(`INSERT INTO monitoring_states
		(account, content_types, cursors, last_check, total_monitored, error_count, active)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(account) DO UPDATE SET
			content_types = excluded.content_types,
			cursors = excluded.cursors,
			last_check = excluded.last_check,
			total_monitored = excluded.total_monitored,
			error_count = excluded.error_count,
			active = excluded.active`,
		account, string(contentTypes), string(cursors), nullableTime(state.LastCheck),
		state.TotalMonitored, state.ErrorCount, boolToInt(state.Active))
	return err
}

func scanState(scanner interface {
	Scan(dest ...any) error
}) (string, *domain.MonitoringState, error) {
	var (
		account      string
		contentTypes string
		cursors      string
		lastCheck    sql.NullTime
		active       int
		state        domain.MonitoringState
	)

	if err := scanner.Scan(
		&account,
		&contentTypes,
		&cursors,
		&lastCheck,
		&state.TotalMonitored,
		&state.ErrorCount,
		&active,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil, nil
		}
		return "", nil, err
	}

	if err := json.Unmarshal([]byte(contentTypes), &state.ContentTypes); err != nil {
		return "", nil, fmt.Errorf("decode content types: %w", err)
	}
	if err := json.Unmarshal([]byte(cursors), &state.Cursors); err != nil {
		return "", nil, fmt.Errorf("decode cursors: %w", err)
	}
	if state.Cursors == nil {
		state.Cursors = map[string]string{}
	}
	if lastCheck.Valid {
		state.LastCheck = lastCheck.Time
	}
	state.Active = active == 1
	return account, &state, nil
}
