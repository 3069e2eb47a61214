package memory

import (
	"sync"

	"github.com/SpaciousAbhi/Web-ig-auto/internal/domain"
)

// StateRepository is an in-memory implementation of domain.StateRepository
type StateRepository struct {
	mu     sync.RWMutex
	states map[string]*domain.MonitoringState
}

// NewStateRepository creates a new in-memory state repository
func NewStateRepository() *StateRepository {
	return &StateRepository{
		states: make(map[string]*domain.MonitoringState),
	}
}

// GetAll returns all monitoring states keyed by source account
func (r *StateRepository) GetAll() (map[string]*domain.MonitoringState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	states := make(map[string]*domain.MonitoringState, len(r.states))
	for account, state := range r.states {
		states[account] = copyState(state)
	}
	return states, nil
}

// Get returns the state for one source account, nil if absent
func (r *StateRepository) Get(account string) (*domain.MonitoringState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, exists := r.states[account]
	if !exists {
		return nil, nil
	}
	return copyState(state), nil
}

// Save creates or updates the state for one source account
func (r *StateRepository) Save(account string, state *domain.MonitoringState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.states[account] = copyState(state)
	return nil
}

func copyState(state *domain.MonitoringState) *domain.MonitoringState {
	c := *state
	c.ContentTypes = append([]string(nil), state.ContentTypes...)
	c.Cursors = make(map[string]string, len(state.Cursors))
	for class, cursor := range state.Cursors {
		c.Cursors[class] = cursor
	}
	return &c
}
