package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerPort string

	// Instagram API configuration
	InstagramBaseURL   string
	InstagramUserAgent string
	SessionDir         string

	// Cron schedule configuration
	CronSchedule string

	// Data / storage configuration
	DataDir     string
	DatabaseURL string

	// Download configuration
	DownloadDir            string
	MaxConcurrentDownloads int
	DownloadTimeout        time.Duration
	DownloadBufferSize     int
	MaxImageDimension      int
	JPEGQuality            int

	// Monitoring configuration
	PostsWindow int
	ReelsWindow int

	// Upload configuration
	PostsPerHour     int
	StoriesPerHour   int
	MaxHashtags      int
	AddCredit        bool
	CreditFormat     string
	AddCallToAction  bool
	CallToActionText string
	InterUploadDelay time.Duration
	InterTaskDelay   time.Duration

	// Performance tuning
	HTTPClientTimeout time.Duration
	MaxIdleConns      int
	MaxConnsPerHost   int

	// Logging configuration
	LogDirectory  string
	LogOutputFile string
	LogErrorFile  string

	// Bootstrap entries applied on startup
	BootstrapAccounts []BootstrapAccount
	BootstrapTasks    []BootstrapTask
}

// BootstrapAccount declares an account to authenticate on startup.
// Passwords may reference environment variables with a $ prefix.
type BootstrapAccount struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// BootstrapTask declares a synchronization task ensured on startup.
type BootstrapTask struct {
	Name                string   `yaml:"name"`
	SourceAccounts      []string `yaml:"source_accounts"`
	DestinationAccounts []string `yaml:"destination_accounts"`
	ContentTypes        []string `yaml:"content_types"`
}

// configFile represents the YAML structure
type configFile struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Instagram struct {
		BaseURL    string `yaml:"base_url"`
		UserAgent  string `yaml:"user_agent"`
		SessionDir string `yaml:"session_dir"`
	} `yaml:"instagram"`
	Cron struct {
		Schedule string `yaml:"schedule"`
	} `yaml:"cron"`
	Data struct {
		Dir string `yaml:"dir"`
	} `yaml:"data"`
	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`
	Download struct {
		Dir               string `yaml:"dir"`
		MaxConcurrent     int    `yaml:"max_concurrent"`
		Timeout           string `yaml:"timeout"`
		BufferSize        int    `yaml:"buffer_size"`
		MaxImageDimension int    `yaml:"max_image_dimension"`
		JPEGQuality       int    `yaml:"jpeg_quality"`
	} `yaml:"download"`
	Monitor struct {
		PostsWindow int `yaml:"posts_window"`
		ReelsWindow int `yaml:"reels_window"`
	} `yaml:"monitor"`
	Upload struct {
		PostsPerHour     int    `yaml:"posts_per_hour"`
		StoriesPerHour   int    `yaml:"stories_per_hour"`
		MaxHashtags      int    `yaml:"max_hashtags"`
		AddCredit        *bool  `yaml:"add_credit"`
		CreditFormat     string `yaml:"credit_format"`
		AddCallToAction  bool   `yaml:"add_call_to_action"`
		CallToActionText string `yaml:"cta_text"`
		InterUploadDelay string `yaml:"inter_upload_delay"`
		InterTaskDelay   string `yaml:"inter_task_delay"`
	} `yaml:"upload"`
	Performance struct {
		HTTPClientTimeout string `yaml:"http_client_timeout"`
		MaxIdleConns      int    `yaml:"max_idle_conns"`
		MaxConnsPerHost   int    `yaml:"max_conns_per_host"`
	} `yaml:"performance"`
	Logging struct {
		Directory  string `yaml:"dir"`
		OutputFile string `yaml:"output_file"`
		ErrorFile  string `yaml:"error_file"`
	} `yaml:"logging"`
	Accounts []BootstrapAccount `yaml:"accounts"`
	Tasks    []BootstrapTask    `yaml:"tasks"`
}

// Manager handles configuration loading and saving
type Manager struct {
	mu         sync.RWMutex
	config     *Config
	configPath string
}

// NewManager creates a new configuration manager
func NewManager(configPath string) *Manager {
	if configPath == "" {
		configPath = "config.yaml"
	}
	return &Manager{
		configPath: configPath,
	}
}

// Load reads configuration from YAML file
func (m *Manager) Load() (*Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(m.configPath)
	if err != nil {
		// If file doesn't exist, run on defaults
		if os.IsNotExist(err) {
			cfg := defaults()
			m.config = cfg
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfgFile configFile
	if err := yaml.Unmarshal(data, &cfgFile); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg := defaults()

	if cfgFile.Server.Port != "" {
		cfg.ServerPort = cfgFile.Server.Port
	}
	if cfgFile.Instagram.BaseURL != "" {
		cfg.InstagramBaseURL = cfgFile.Instagram.BaseURL
	}
	if cfgFile.Instagram.UserAgent != "" {
		cfg.InstagramUserAgent = cfgFile.Instagram.UserAgent
	}
	if cfgFile.Instagram.SessionDir != "" {
		cfg.SessionDir = cfgFile.Instagram.SessionDir
	}
	if cfgFile.Cron.Schedule != "" {
		cfg.CronSchedule = cfgFile.Cron.Schedule
	}
	if cfgFile.Data.Dir != "" {
		cfg.DataDir = cfgFile.Data.Dir
	}
	if cfgFile.Database.URL != "" {
		cfg.DatabaseURL = cfgFile.Database.URL
	}
	if cfgFile.Download.Dir != "" {
		cfg.DownloadDir = cfgFile.Download.Dir
	}
	if cfgFile.Download.MaxConcurrent > 0 {
		cfg.MaxConcurrentDownloads = cfgFile.Download.MaxConcurrent
	}
	if cfgFile.Download.BufferSize > 0 {
		cfg.DownloadBufferSize = cfgFile.Download.BufferSize
	}
	if cfgFile.Download.MaxImageDimension > 0 {
		cfg.MaxImageDimension = cfgFile.Download.MaxImageDimension
	}
	if cfgFile.Download.JPEGQuality > 0 {
		cfg.JPEGQuality = cfgFile.Download.JPEGQuality
	}
	if cfgFile.Monitor.PostsWindow > 0 {
		cfg.PostsWindow = cfgFile.Monitor.PostsWindow
	}
	if cfgFile.Monitor.ReelsWindow > 0 {
		cfg.ReelsWindow = cfgFile.Monitor.ReelsWindow
	}
	if cfgFile.Upload.PostsPerHour > 0 {
		cfg.PostsPerHour = cfgFile.Upload.PostsPerHour
	}
	if cfgFile.Upload.StoriesPerHour > 0 {
		cfg.StoriesPerHour = cfgFile.Upload.StoriesPerHour
	}
	if cfgFile.Upload.MaxHashtags > 0 {
		cfg.MaxHashtags = cfgFile.Upload.MaxHashtags
	}
	if cfgFile.Upload.AddCredit != nil {
		cfg.AddCredit = *cfgFile.Upload.AddCredit
	}
	if cfgFile.Upload.CreditFormat != "" {
		cfg.CreditFormat = cfgFile.Upload.CreditFormat
	}
	cfg.AddCallToAction = cfgFile.Upload.AddCallToAction
	if cfgFile.Upload.CallToActionText != "" {
		cfg.CallToActionText = cfgFile.Upload.CallToActionText
	}
	if cfgFile.Performance.MaxIdleConns > 0 {
		cfg.MaxIdleConns = cfgFile.Performance.MaxIdleConns
	}
	if cfgFile.Performance.MaxConnsPerHost > 0 {
		cfg.MaxConnsPerHost = cfgFile.Performance.MaxConnsPerHost
	}
	if cfgFile.Logging.Directory != "" {
		cfg.LogDirectory = cfgFile.Logging.Directory
	}
	if cfgFile.Logging.OutputFile != "" {
		cfg.LogOutputFile = cfgFile.Logging.OutputFile
	}
	if cfgFile.Logging.ErrorFile != "" {
		cfg.LogErrorFile = cfgFile.Logging.ErrorFile
	}

	cfg.BootstrapAccounts = cfgFile.Accounts
	cfg.BootstrapTasks = cfgFile.Tasks
	for i, acc := range cfg.BootstrapAccounts {
		if strings.HasPrefix(acc.Password, "$") {
			cfg.BootstrapAccounts[i].Password = os.Getenv(strings.TrimPrefix(acc.Password, "$"))
		}
	}

	cfg.DownloadTimeout = parseDuration(cfgFile.Download.Timeout, cfg.DownloadTimeout)
	cfg.InterUploadDelay = parseDuration(cfgFile.Upload.InterUploadDelay, cfg.InterUploadDelay)
	cfg.InterTaskDelay = parseDuration(cfgFile.Upload.InterTaskDelay, cfg.InterTaskDelay)
	cfg.HTTPClientTimeout = parseDuration(cfgFile.Performance.HTTPClientTimeout, cfg.HTTPClientTimeout)

	m.config = cfg
	return cfg, nil
}

// Get returns the current configuration (thread-safe)
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// Reload reloads configuration from file
func (m *Manager) Reload() (*Config, error) {
	return m.Load()
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return fallback
}

func defaults() *Config {
	return &Config{
		ServerPort:             "8080",
		InstagramBaseURL:       "https://i.instagram.com",
		InstagramUserAgent:     "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
		SessionDir:             "./data/sessions",
		CronSchedule:           "*/30 * * * *",
		DataDir:                "./data",
		DatabaseURL:            "json:./data",
		DownloadDir:            "./data/downloads",
		MaxConcurrentDownloads: 3,
		DownloadTimeout:        5 * time.Minute,
		DownloadBufferSize:     1024 * 1024,
		MaxImageDimension:      1080,
		JPEGQuality:            90,
		PostsWindow:            5,
		ReelsWindow:            10,
		PostsPerHour:           3,
		StoriesPerHour:         8,
		MaxHashtags:            25,
		AddCredit:              true,
		CreditFormat:           "📸 @{username}",
		AddCallToAction:        false,
		CallToActionText:       "Follow for more! 🔥",
		InterUploadDelay:       30 * time.Second,
		InterTaskDelay:         60 * time.Second,
		HTTPClientTimeout:      60 * time.Second,
		MaxIdleConns:           100,
		MaxConnsPerHost:        20,
		LogDirectory:           "./logs",
		LogOutputFile:          "app.log",
		LogErrorFile:           "app.error.log",
	}
}

// Global config manager instance
var globalManager *Manager

// Load loads configuration from YAML file (backward compatibility)
func Load() (*Config, error) {
	if globalManager == nil {
		configPath := "config.yaml"
		if _, err := os.Stat("config/config.yaml"); err == nil {
			configPath = "config/config.yaml"
		}
		globalManager = NewManager(configPath)
	}
	return globalManager.Load()
}

// GetManager returns the global config manager
func GetManager() *Manager {
	if globalManager == nil {
		configPath := "config.yaml"
		if _, err := os.Stat("config/config.yaml"); err == nil {
			configPath = "config/config.yaml"
		}
		globalManager = NewManager(configPath)
	}
	return globalManager
}
