package domain

import "time"

// Task links a set of source accounts to a set of destination accounts
// for a chosen set of content classes. Tasks are created externally and
// mutated by the engine on every run.
type Task struct {
	// ID is the unique identifier for the task.
	ID string

	// Name is a human-readable task label.
	Name string

	// SourceAccounts are the usernames monitored for new content.
	SourceAccounts []string

	// DestinationAccounts are the authenticated accounts content is
	// republished to.
	DestinationAccounts []string

	// ContentTypes are the content classes watched for this task
	// (posts, stories, reels).
	ContentTypes []string

	// Enabled gates both scheduled and manual execution.
	Enabled bool

	// CreatedAt is when the task was created.
	CreatedAt time.Time

	// LastRun is when the task last executed, zero if never.
	LastRun time.Time

	// LastProcessedCount is the number of successful publishes on the
	// most recent run.
	LastProcessedCount int

	// TotalProcessed is the cumulative successful publish count.
	TotalProcessed int

	// ErrorCount counts failed runs.
	ErrorCount int
}

// MonitoringState tracks incremental detection progress for one source
// account. Mutated only by the content monitor after a poll.
type MonitoringState struct {
	// ContentTypes are the content classes watched on this account.
	ContentTypes []string

	// Cursors holds the last-seen newest media id per content class.
	// A cursor only ever advances to the newest item's id and only
	// when new items were found. Stories carry no cursor.
	Cursors map[string]string

	// LastCheck is when the account was last polled successfully, zero
	// if never.
	LastCheck time.Time

	// TotalMonitored is the cumulative number of items detected.
	TotalMonitored int

	// ErrorCount counts failed polls.
	ErrorCount int

	// Active gates polling of this account.
	Active bool
}

// WatchesClass reports whether the given content class is enabled for
// this state.
func (s *MonitoringState) WatchesClass(class string) bool {
	for _, c := range s.ContentTypes {
		if c == class {
			return true
		}
	}
	return false
}

// TaskRepository defines persistence for the task registry.
type TaskRepository interface {
	// GetAll returns all tasks keyed by id.
	GetAll() (map[string]*Task, error)

	// GetByID returns a task by id, nil if absent.
	GetByID(id string) (*Task, error)

	// Save creates or updates a task.
	Save(task *Task) error
}

// StateRepository defines persistence for per-source monitoring state.
type StateRepository interface {
	// GetAll returns all monitoring states keyed by source account.
	GetAll() (map[string]*MonitoringState, error)

	// Get returns the state for one source account, nil if absent.
	Get(account string) (*MonitoringState, error)

	// Save creates or updates the state for one source account.
	Save(account string, state *MonitoringState) error
}
