package usecase

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/SpaciousAbhi/Web-ig-auto/internal/domain"
	"github.com/SpaciousAbhi/Web-ig-auto/internal/infrastructure/downloader"
	httpclient "github.com/SpaciousAbhi/Web-ig-auto/internal/infrastructure/http"
	"github.com/SpaciousAbhi/Web-ig-auto/internal/infrastructure/instagram"
	"github.com/SpaciousAbhi/Web-ig-auto/internal/repository/memory"
)

type engineFixture struct {
	engine   *Engine
	sessions map[string]*fakeSession
	sleeper  *fakeSleeper
	taskRepo *memory.TaskRepository
	server   *httptest.Server
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("media-bytes"))
	}))
	t.Cleanup(server.Close)

	cfg := testConfig()
	cfg.DownloadDir = "/downloads"
	cfg.MaxConcurrentDownloads = 2
	cfg.HTTPClientTimeout = 10 * time.Second

	fs := afero.NewMemMapFs()
	client := httpclient.NewHTTPClient(cfg)

	download, err := downloader.NewService(cfg, client, fs)
	require.NoError(t, err)

	monitor := NewContentMonitor(cfg, memory.NewStateRepository())
	uploader := NewContentUploader(cfg, fs)
	uploader.SetSleeper(&fakeSleeper{})

	sessions := map[string]*fakeSession{}
	newSession := func(_ context.Context, username, password string) (instagram.Session, error) {
		s := &fakeSession{username: username}
		sessions[username] = s
		return s, nil
	}

	taskRepo := memory.NewTaskRepository()
	sleeper := &fakeSleeper{}
	engine := NewEngine(cfg, taskRepo, monitor, download, uploader, newSession)
	engine.SetSleeper(sleeper)

	return &engineFixture{
		engine:   engine,
		sessions: sessions,
		sleeper:  sleeper,
		taskRepo: taskRepo,
		server:   server,
	}
}

func TestCreateTaskRequiresAuthenticatedDestinations(t *testing.T) {
	f := newEngineFixture(t)

	_, err := f.engine.CreateTask("mirror", []string{"alpha"}, []string{"ghost"}, nil)
	require.Error(t, err)

	require.NoError(t, f.engine.AddAccount(context.Background(), "dest", "secret"))
	task, err := f.engine.CreateTask("mirror", []string{"alpha"}, []string{"dest"}, nil)
	require.NoError(t, err)
	require.NotEmpty(t, task.ID)
	require.True(t, task.Enabled)
	require.ElementsMatch(t, []string{domain.ContentClassPosts, domain.ContentClassStories, domain.ContentClassReels}, task.ContentTypes)
}

func TestRunTaskPublishesToEveryDestination(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	require.NoError(t, f.engine.AddAccount(ctx, "dest1", "secret"))
	require.NoError(t, f.engine.AddAccount(ctx, "dest2", "secret"))

	// The source has no login of its own; it is read through a
	// destination session.
	f.sessions["dest1"].feed = []instagram.Media{{
		PK:        "900",
		MediaKind: 1,
		Caption:   "hello",
		ImageURL:  f.server.URL + "/900.jpg",
	}}

	task, err := f.engine.CreateTask("mirror", []string{"alpha"}, []string{"dest1", "dest2"}, []string{domain.ContentClassPosts})
	require.NoError(t, err)

	result, err := f.engine.RunTask(ctx, task.ID)
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, 1, result.NewItems)
	require.Equal(t, 1, result.Downloaded)
	require.Equal(t, 2, result.Uploaded)

	require.Len(t, f.sessions["dest1"].calls(), 1)
	require.Len(t, f.sessions["dest2"].calls(), 1)

	// One inter-upload pause per destination attempt.
	require.Len(t, f.sleeper.delays(), 2)
	require.Equal(t, 30*time.Second, f.sleeper.delays()[0])

	saved, err := f.taskRepo.GetByID(task.ID)
	require.NoError(t, err)
	require.Equal(t, 2, saved.TotalProcessed)
	require.Equal(t, 2, saved.LastProcessedCount)
	require.False(t, saved.LastRun.IsZero())
}

func TestRunTaskWithNoNewContent(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	require.NoError(t, f.engine.AddAccount(ctx, "dest", "secret"))
	task, err := f.engine.CreateTask("mirror", []string{"alpha"}, []string{"dest"}, []string{domain.ContentClassPosts})
	require.NoError(t, err)

	result, err := f.engine.RunTask(ctx, task.ID)
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Zero(t, result.NewItems)
	require.Zero(t, result.Uploaded)
}

func TestRunTaskRejectsDisabledAndUnknown(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	_, err := f.engine.RunTask(ctx, "no-such-task")
	require.Error(t, err)

	require.NoError(t, f.engine.AddAccount(ctx, "dest", "secret"))
	task, err := f.engine.CreateTask("mirror", []string{"alpha"}, []string{"dest"}, nil)
	require.NoError(t, err)

	enabled, err := f.engine.ToggleTask(task.ID, false)
	require.NoError(t, err)
	require.False(t, enabled)

	_, err = f.engine.RunTask(ctx, task.ID)
	require.Error(t, err)
	require.Contains(t, err.Error(), "disabled")
}

func TestToggleTaskSetsTargetState(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	require.NoError(t, f.engine.AddAccount(ctx, "dest", "secret"))
	task, err := f.engine.CreateTask("mirror", []string{"alpha"}, []string{"dest"}, nil)
	require.NoError(t, err)

	enabled, err := f.engine.ToggleTask(task.ID, false)
	require.NoError(t, err)
	require.False(t, enabled)

	// Repeating the same target state stays disabled instead of
	// flipping back.
	enabled, err = f.engine.ToggleTask(task.ID, false)
	require.NoError(t, err)
	require.False(t, enabled)

	enabled, err = f.engine.ToggleTask(task.ID, true)
	require.NoError(t, err)
	require.True(t, enabled)

	saved, err := f.taskRepo.GetByID(task.ID)
	require.NoError(t, err)
	require.True(t, saved.Enabled)
}

func TestRunAllEnabledSkipsDisabledTasks(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	require.NoError(t, f.engine.AddAccount(ctx, "dest", "secret"))

	first, err := f.engine.CreateTask("first", []string{"alpha"}, []string{"dest"}, []string{domain.ContentClassPosts})
	require.NoError(t, err)
	second, err := f.engine.CreateTask("second", []string{"beta"}, []string{"dest"}, []string{domain.ContentClassPosts})
	require.NoError(t, err)
	third, err := f.engine.CreateTask("third", []string{"gamma"}, []string{"dest"}, []string{domain.ContentClassPosts})
	require.NoError(t, err)

	_, err = f.engine.ToggleTask(second.ID, false)
	require.NoError(t, err)

	results := f.engine.RunAllEnabled(ctx)
	require.Len(t, results, 2)
	require.Equal(t, first.ID, results[0].TaskID)
	require.Equal(t, third.ID, results[1].TaskID)

	// One inter-task pause between the two enabled runs.
	require.Contains(t, f.sleeper.delays(), 60*time.Second)
}
