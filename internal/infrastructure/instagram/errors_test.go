package instagram

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyAPIError(t *testing.T) {
	testCases := []struct {
		name       string
		statusCode int
		message    string
		want       error
	}{
		{"bad password", 400, "bad_password", ErrBadCredentials},
		{"invalid user", 400, "invalid_user", ErrBadCredentials},
		{"challenge", 400, "challenge_required", ErrChallengeRequired},
		{"action blocked", 400, "feedback_required", ErrActionBlocked},
		{"http 429", 429, "", ErrRateLimited},
		{"soft rate limit", 200, "Please wait a few minutes before you try again.", ErrRateLimited},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := classifyAPIError(tc.statusCode, tc.message)
			require.ErrorIs(t, err, tc.want)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			require.Equal(t, tc.statusCode, apiErr.StatusCode)
		})
	}
}

func TestClassifyAPIErrorUnknownStaysGeneric(t *testing.T) {
	err := classifyAPIError(500, "something else")
	require.NotErrorIs(t, err, ErrBadCredentials)
	require.NotErrorIs(t, err, ErrChallengeRequired)
	require.NotErrorIs(t, err, ErrActionBlocked)
	require.NotErrorIs(t, err, ErrRateLimited)
	require.Contains(t, err.Error(), "HTTP 500")
}
