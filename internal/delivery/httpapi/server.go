package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/SpaciousAbhi/Web-ig-auto/config"
	"github.com/SpaciousAbhi/Web-ig-auto/internal/domain"
	"github.com/SpaciousAbhi/Web-ig-auto/internal/logger"
	"github.com/SpaciousAbhi/Web-ig-auto/internal/usecase"
)

// Server exposes a lightweight REST API for account and task management.
type Server struct {
	cfg    *config.Config
	engine *usecase.Engine
	server *http.Server
}

// NewServer creates a new HTTP server.
func NewServer(cfg *config.Config, engine *usecase.Engine) *Server {
	mux := http.NewServeMux()
	s := &Server{
		cfg:    cfg,
		engine: engine,
	}

	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/accounts", s.handleAccounts)
	mux.HandleFunc("/api/tasks", s.handleTasks)
	mux.HandleFunc("/api/tasks/", s.handleTaskActions)
	mux.HandleFunc("/api/stats", s.handleStats)

	s.server = &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: loggingMiddleware(mux),
	}
	return s
}

// Start begins serving HTTP requests in a separate goroutine.
func (s *Server) Start() error {
	if s.cfg.ServerPort == "" {
		return fmt.Errorf("server port is not configured")
	}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Printf("http api server stopped with error: %v", err)
		}
	}()
	logger.Info().Printf("HTTP API server listening on %s", s.server.Addr)
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAccounts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		respondJSON(w, http.StatusOK, map[string]any{"accounts": s.engine.Accounts()})
	case http.MethodPost:
		s.addAccount(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) addAccount(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.Username == "" || payload.Password == "" {
		respondError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	if err := s.engine.AddAccount(r.Context(), payload.Username, payload.Password); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"status": "added", "username": payload.Username})
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listTasks(w, r)
	case http.MethodPost:
		s.createTask(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.engine.Tasks()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := make([]*taskResponse, 0, len(tasks))
	for _, task := range tasks {
		resp = append(resp, toTaskResponse(task))
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name         string   `json:"name"`
		Sources      []string `json:"source_accounts"`
		Destinations []string `json:"destination_accounts"`
		ContentTypes []string `json:"content_types"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	task, err := s.engine.CreateTask(payload.Name, payload.Sources, payload.Destinations, payload.ContentTypes)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, toTaskResponse(task))
}

func (s *Server) handleTaskActions(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/tasks/")
	if path == "" {
		http.NotFound(w, r)
		return
	}

	parts := strings.Split(path, "/")
	id := parts[0]

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		task, err := s.engine.GetTask(id)
		if err != nil {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		respondJSON(w, http.StatusOK, toTaskResponse(task))
		return
	}

	if len(parts) == 2 && r.Method == http.MethodPost {
		switch parts[1] {
		case "run":
			s.runTask(w, r, id)
			return
		case "toggle":
			var payload struct {
				Enabled *bool `json:"enabled"`
			}
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Enabled == nil {
				respondError(w, http.StatusBadRequest, "enabled flag is required")
				return
			}
			enabled, err := s.engine.ToggleTask(id, *payload.Enabled)
			if err != nil {
				respondError(w, http.StatusBadRequest, err.Error())
				return
			}
			respondJSON(w, http.StatusOK, map[string]any{"id": id, "enabled": enabled})
			return
		}
	}

	http.NotFound(w, r)
}

// runTask launches the run in the background; a task run can take many
// minutes because of pacing delays.
func (s *Server) runTask(w http.ResponseWriter, r *http.Request, id string) {
	task, err := s.engine.GetTask(id)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	if !task.Enabled {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("task %s is disabled", id))
		return
	}

	go func() {
		if _, runErr := s.engine.RunTask(context.Background(), id); runErr != nil {
			logger.Error().Printf("Manual run of task %s failed: %v", id, runErr)
		}
	}()
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "started", "id": id})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	monitoring, err := s.engine.MonitoringStats()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"monitoring": monitoring,
		"uploads":    s.engine.UploadStats(),
		"downloads":  s.engine.DownloadStats(),
	})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func methodNotAllowed(w http.ResponseWriter) {
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Info().Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

type taskResponse struct {
	ID                  string     `json:"id"`
	Name                string     `json:"name"`
	SourceAccounts      []string   `json:"source_accounts"`
	DestinationAccounts []string   `json:"destination_accounts"`
	ContentTypes        []string   `json:"content_types"`
	Enabled             bool       `json:"enabled"`
	CreatedAt           time.Time  `json:"created_at"`
	LastRun             *time.Time `json:"last_run,omitempty"`
	LastProcessedCount  int        `json:"last_processed_count"`
	TotalProcessed      int        `json:"total_processed"`
	ErrorCount          int        `json:"error_count"`
}

func toTaskResponse(task *domain.Task) *taskResponse {
	resp := &taskResponse{
		ID:                  task.ID,
		Name:                task.Name,
		SourceAccounts:      task.SourceAccounts,
		DestinationAccounts: task.DestinationAccounts,
		ContentTypes:        task.ContentTypes,
		Enabled:             task.Enabled,
		CreatedAt:           task.CreatedAt,
		LastProcessedCount:  task.LastProcessedCount,
		TotalProcessed:      task.TotalProcessed,
		ErrorCount:          task.ErrorCount,
	}
	if !task.LastRun.IsZero() {
		t := task.LastRun
		resp.LastRun = &t
	}
	return resp
}
