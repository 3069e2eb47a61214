package instagram

import (
	"errors"
	"fmt"
	"strings"
)

// Platform error taxonomy. Callers branch with errors.Is; everything
// that is not one of these is a generic transport error.
var (
	// ErrBadCredentials indicates a rejected username/password pair.
	ErrBadCredentials = errors.New("instagram: bad credentials")

	// ErrChallengeRequired indicates the platform demands a security
	// challenge before the call can proceed. Eligible for exactly one
	// automatic resolution attempt.
	ErrChallengeRequired = errors.New("instagram: challenge required")

	// ErrActionBlocked indicates the account is blocked from the
	// attempted action. Fatal at the account level.
	ErrActionBlocked = errors.New("instagram: action blocked")

	// ErrRateLimited indicates the platform asked us to back off.
	ErrRateLimited = errors.New("instagram: rate limited")
)

// APIError carries the raw platform response alongside the classified
// sentinel it unwraps to.
type APIError struct {
	StatusCode int
	Message    string
	kind       error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("instagram api error (HTTP %d): %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.kind
}

// classifyAPIError maps a platform response onto the error taxonomy.
func classifyAPIError(statusCode int, message string) error {
	err := &APIError{StatusCode: statusCode, Message: message}
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "bad_password") || strings.Contains(lower, "invalid_user"):
		err.kind = ErrBadCredentials
	case strings.Contains(lower, "challenge_required"):
		err.kind = ErrChallengeRequired
	case strings.Contains(lower, "feedback_required"):
		err.kind = ErrActionBlocked
	case statusCode == 429 || strings.Contains(lower, "please wait a few minutes"):
		err.kind = ErrRateLimited
	}
	return err
}
