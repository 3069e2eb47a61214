package instagram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	httpclient "github.com/SpaciousAbhi/Web-ig-auto/internal/infrastructure/http"
	"github.com/SpaciousAbhi/Web-ig-auto/internal/logger"
)

// Authenticator logs an account in and hands out authenticated
// sessions. Session settings are persisted under the session directory
// so restarts reuse cookies instead of triggering fresh logins.
type Authenticator struct {
	username   string
	password   string
	sessionDir string
	baseURL    string
	httpClient *httpclient.HTTPClient
}

// NewAuthenticator creates an authenticator for one account.
func NewAuthenticator(username, password, sessionDir, baseURL string, httpClient *httpclient.HTTPClient) *Authenticator {
	return &Authenticator{
		username:   username,
		password:   password,
		sessionDir: sessionDir,
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

// Authenticate returns an authenticated session, preferring a persisted
// session file over a fresh login. A challenge demand during fresh
// login gets exactly one automatic resolution attempt.
func (a *Authenticator) Authenticate(ctx context.Context) (*Client, error) {
	if state, err := a.loadSession(); err == nil && state != nil {
		client := newClient(a.username, a.baseURL, a.httpClient, state)
		if a.validateSession(ctx, client) {
			logger.Info().Printf("Authenticated %s from saved session", a.username)
			return client, nil
		}
		logger.Info().Printf("Saved session for %s is stale, performing fresh login", a.username)
	}

	return a.freshLogin(ctx)
}

func (a *Authenticator) sessionFile() string {
	return filepath.Join(a.sessionDir, a.username+"_session.json")
}

func (a *Authenticator) loadSession() (*sessionState, error) {
	data, err := os.ReadFile(a.sessionFile())
	if err != nil {
		return nil, err
	}
	var state sessionState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse session file for %s: %w", a.username, err)
	}
	return &state, nil
}

func (a *Authenticator) saveSession(state *sessionState) error {
	if err := os.MkdirAll(a.sessionDir, 0755); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(a.sessionFile(), data, 0600); err != nil {
		return fmt.Errorf("write session file for %s: %w", a.username, err)
	}
	return nil
}

// validateSession makes a cheap authenticated call to confirm the
// persisted cookies are still accepted.
func (a *Authenticator) validateSession(ctx context.Context, client *Client) bool {
	var result struct {
		Status string `json:"status"`
	}
	err := client.getJSON(ctx, a.baseURL+"/api/v1/feed/timeline/", &result)
	if err != nil {
		logger.Warn().Printf("Session validation failed for %s: %v", a.username, err)
		return false
	}
	return result.Status == "ok"
}

// freshLogin performs a credentialed login and persists the resulting
// session state.
func (a *Authenticator) freshLogin(ctx context.Context) (*Client, error) {
	state, err := a.postLogin(ctx)
	if err != nil {
		if errors.Is(err, ErrChallengeRequired) {
			logger.Warn().Printf("Challenge required for %s, attempting automatic resolution", a.username)
			state, err = a.resolveChallenge(ctx)
			if err != nil {
				return nil, fmt.Errorf("challenge resolution for %s: %w", a.username, err)
			}
		} else {
			return nil, err
		}
	}

	if err := a.saveSession(state); err != nil {
		logger.Error().Printf("Failed to persist session for %s: %v", a.username, err)
	}
	logger.Info().Printf("Fresh login successful for %s", a.username)
	return newClient(a.username, a.baseURL, a.httpClient, state), nil
}

func (a *Authenticator) postLogin(ctx context.Context) (*sessionState, error) {
	form := url.Values{}
	form.Set("username", a.username)
	form.Set("password", a.password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.baseURL+"/api/v1/accounts/login/", bytes.NewBufferString(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("login request for %s: %w", a.username, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, classifyAPIError(resp.StatusCode, string(body))
	}

	var result struct {
		Status   string `json:"status"`
		LoggedIn struct {
			PK json.Number `json:"pk"`
		} `json:"logged_in_user"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode login response: %w", err)
	}
	if result.Status != "ok" {
		return nil, classifyAPIError(resp.StatusCode, string(body))
	}

	state := &sessionState{
		Username: a.username,
		UserID:   result.LoggedIn.PK.String(),
		Cookies:  map[string]string{},
	}
	for _, cookie := range resp.Cookies() {
		state.Cookies[cookie.Name] = cookie.Value
		if cookie.Name == "csrftoken" {
			state.CSRFToken = cookie.Value
		}
	}
	return state, nil
}

// resolveChallenge makes the single automatic attempt at clearing a
// security challenge, then retries the login once.
func (a *Authenticator) resolveChallenge(ctx context.Context) (*sessionState, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.baseURL+"/api/v1/challenge/resolve/", bytes.NewBufferString(url.Values{
			"username": {a.username},
			"choice":   {"0"},
		}.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("challenge request: %w", err)
	}
	defer resp.Body.Close()

	if err := checkResponse(resp); err != nil {
		return nil, err
	}
	return a.postLogin(ctx)
}
