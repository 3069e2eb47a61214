package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"

	"github.com/SpaciousAbhi/Web-ig-auto/config"
	"github.com/SpaciousAbhi/Web-ig-auto/internal/delivery/cron"
	"github.com/SpaciousAbhi/Web-ig-auto/internal/delivery/httpapi"
	"github.com/SpaciousAbhi/Web-ig-auto/internal/domain"
	"github.com/SpaciousAbhi/Web-ig-auto/internal/infrastructure/downloader"
	httpclient "github.com/SpaciousAbhi/Web-ig-auto/internal/infrastructure/http"
	"github.com/SpaciousAbhi/Web-ig-auto/internal/infrastructure/instagram"
	"github.com/SpaciousAbhi/Web-ig-auto/internal/logger"
	"github.com/SpaciousAbhi/Web-ig-auto/internal/repository/jsonstore"
	"github.com/SpaciousAbhi/Web-ig-auto/internal/repository/memory"
	sqliterepo "github.com/SpaciousAbhi/Web-ig-auto/internal/repository/sqlite"
	"github.com/SpaciousAbhi/Web-ig-auto/internal/usecase"
)

func main() {
	// Optional .env for credentials referenced from config.yaml
	_ = godotenv.Load()

	// Load configuration from YAML file
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if _, err := logger.Initialize(cfg); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer func() {
		if err := logger.Close(); err != nil {
			log.Printf("Failed to close log files: %v", err)
		}
	}()

	fs := afero.NewOsFs()

	// Initialize HTTP client
	httpClient := httpclient.NewHTTPClient(cfg)

	// Initialize persistent repositories
	taskRepo, stateRepo, closeRepos, err := openRepositories(cfg, fs)
	if err != nil {
		logger.Error().Fatalf("Failed to open storage: %v", err)
	}
	defer closeRepos()

	// Initialize services
	downloadService, err := downloader.NewService(cfg, httpClient, fs)
	if err != nil {
		logger.Error().Fatalf("Failed to create download service: %v", err)
	}

	monitor := usecase.NewContentMonitor(cfg, stateRepo)
	uploader := usecase.NewContentUploader(cfg, fs)

	newSession := func(ctx context.Context, username, password string) (instagram.Session, error) {
		auth := instagram.NewAuthenticator(username, password, cfg.SessionDir, cfg.InstagramBaseURL, httpClient)
		return auth.Authenticate(ctx)
	}

	engine := usecase.NewEngine(cfg, taskRepo, monitor, downloadService, uploader, newSession)

	bootstrap(cfg, engine)

	// Initialize and start cron scheduler
	scheduler := cron.NewScheduler(cfg, engine)
	if err := scheduler.Start(); err != nil {
		logger.Error().Fatalf("Failed to start scheduler: %v", err)
	}

	// Start HTTP API server for runtime management
	apiServer := httpapi.NewServer(cfg, engine)
	if err := apiServer.Start(); err != nil {
		logger.Error().Fatalf("Failed to start HTTP API server: %v", err)
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info().Println("Application started. Press Ctrl+C to stop.")
	<-sigChan

	// Graceful shutdown
	logger.Info().Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	scheduler.Stop()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Printf("HTTP API shutdown error: %v", err)
	}
	logger.Info().Println("Application stopped.")
}

// openRepositories selects the storage backend from the database URL
// scheme: json: (default), sqlite:/sqlite3:/file:, or memory:.
func openRepositories(cfg *config.Config, fs afero.Fs) (domain.TaskRepository, domain.StateRepository, func(), error) {
	url := strings.TrimSpace(cfg.DatabaseURL)
	switch {
	case strings.HasPrefix(url, "memory:"):
		return memory.NewTaskRepository(), memory.NewStateRepository(), func() {}, nil
	case strings.HasPrefix(url, "sqlite"), strings.HasPrefix(url, "file:"):
		db, err := sqliterepo.Open(url)
		if err != nil {
			return nil, nil, nil, err
		}
		closeDB := func() {
			if err := db.Close(); err != nil {
				logger.Error().Printf("Failed to close database: %v", err)
			}
		}
		return sqliterepo.NewTaskRepository(db), sqliterepo.NewStateRepository(db), closeDB, nil
	default:
		dir := jsonstore.Dir(url)
		return jsonstore.NewTaskRepository(fs, dir), jsonstore.NewStateRepository(fs, dir), func() {}, nil
	}
}

// bootstrap authenticates configured accounts and ensures configured
// tasks exist. A failing entry is logged and skipped.
func bootstrap(cfg *config.Config, engine *usecase.Engine) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	for _, acc := range cfg.BootstrapAccounts {
		if acc.Username == "" || acc.Password == "" {
			logger.Error().Printf("Skipping bootstrap account with missing credentials: %q", acc.Username)
			continue
		}
		if err := engine.AddAccount(ctx, acc.Username, acc.Password); err != nil {
			logger.Error().Printf("Failed to bootstrap account %s: %v", acc.Username, err)
		}
	}

	if len(cfg.BootstrapTasks) == 0 {
		return
	}

	existing, err := engine.Tasks()
	if err != nil {
		logger.Error().Printf("Failed to list tasks during bootstrap: %v", err)
		return
	}
	byName := map[string]bool{}
	for _, task := range existing {
		byName[task.Name] = true
	}

	for _, t := range cfg.BootstrapTasks {
		if byName[t.Name] {
			continue
		}
		if _, err := engine.CreateTask(t.Name, t.SourceAccounts, t.DestinationAccounts, t.ContentTypes); err != nil {
			logger.Error().Printf("Failed to bootstrap task %q: %v", t.Name, err)
		}
	}
}
