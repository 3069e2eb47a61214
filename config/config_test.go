package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	manager := NewManager(filepath.Join(t.TempDir(), "absent.yaml"))
	cfg, err := manager.Load()
	require.NoError(t, err)

	require.Equal(t, "8080", cfg.ServerPort)
	require.Equal(t, "json:./data", cfg.DatabaseURL)
	require.Equal(t, 5, cfg.PostsWindow)
	require.Equal(t, 10, cfg.ReelsWindow)
	require.Equal(t, 3, cfg.PostsPerHour)
	require.Equal(t, 8, cfg.StoriesPerHour)
	require.Equal(t, 25, cfg.MaxHashtags)
	require.True(t, cfg.AddCredit)
	require.Equal(t, "📸 @{username}", cfg.CreditFormat)
	require.Equal(t, 30*time.Second, cfg.InterUploadDelay)
	require.Equal(t, 60*time.Second, cfg.InterTaskDelay)
}

func TestLoadOverridesFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: "9090"
database:
  url: sqlite:./state.db
monitor:
  posts_window: 8
upload:
  posts_per_hour: 2
  add_credit: false
  inter_upload_delay: 45s
accounts:
  - username: mirror_account
    password: $MIRROR_PASSWORD
tasks:
  - name: wildlife
    source_accounts: [natgeo]
    destination_accounts: [mirror_account]
    content_types: [posts, reels]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("MIRROR_PASSWORD", "hunter2")

	cfg, err := NewManager(path).Load()
	require.NoError(t, err)

	require.Equal(t, "9090", cfg.ServerPort)
	require.Equal(t, "sqlite:./state.db", cfg.DatabaseURL)
	require.Equal(t, 8, cfg.PostsWindow)
	require.Equal(t, 2, cfg.PostsPerHour)
	require.False(t, cfg.AddCredit)
	require.Equal(t, 45*time.Second, cfg.InterUploadDelay)

	// Untouched values keep their defaults.
	require.Equal(t, 10, cfg.ReelsWindow)
	require.Equal(t, 8, cfg.StoriesPerHour)

	require.Len(t, cfg.BootstrapAccounts, 1)
	require.Equal(t, "mirror_account", cfg.BootstrapAccounts[0].Username)
	require.Equal(t, "hunter2", cfg.BootstrapAccounts[0].Password)

	require.Len(t, cfg.BootstrapTasks, 1)
	require.Equal(t, []string{"natgeo"}, cfg.BootstrapTasks[0].SourceAccounts)
	require.Equal(t, []string{"posts", "reels"}, cfg.BootstrapTasks[0].ContentTypes)
}

func TestParseDurationFallsBack(t *testing.T) {
	require.Equal(t, 5*time.Second, parseDuration("", 5*time.Second))
	require.Equal(t, 5*time.Second, parseDuration("garbage", 5*time.Second))
	require.Equal(t, 90*time.Second, parseDuration("90s", 5*time.Second))
}
