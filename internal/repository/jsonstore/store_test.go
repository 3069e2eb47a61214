package jsonstore

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/SpaciousAbhi/Web-ig-auto/internal/domain"
)

func TestDir(t *testing.T) {
	require.Equal(t, "./data", Dir("json:./data"))
	require.Equal(t, "/var/lib/app", Dir("json:/var/lib/app"))
	require.Equal(t, "./data", Dir("json:"))
	require.Equal(t, "plain-dir", Dir("plain-dir"))
}

func TestTaskRepositoryRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	repo := NewTaskRepository(fs, "/data")

	missing, err := repo.GetByID("nope")
	require.NoError(t, err)
	require.Nil(t, missing)

	task := &domain.Task{
		ID:                  "t1",
		Name:                "mirror",
		SourceAccounts:      []string{"alpha"},
		DestinationAccounts: []string{"dest"},
		ContentTypes:        []string{domain.ContentClassPosts},
		Enabled:             true,
		CreatedAt:           time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.Save(task))

	loaded, err := repo.GetByID("t1")
	require.NoError(t, err)
	require.Equal(t, task, loaded)

	// Updates persist across a fresh repository on the same files.
	task.TotalProcessed = 7
	task.LastRun = time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)
	require.NoError(t, repo.Save(task))

	reopened := NewTaskRepository(fs, "/data")
	all, err := reopened.GetAll()
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, 7, all["t1"].TotalProcessed)
	require.Equal(t, task.LastRun, all["t1"].LastRun)
}

func TestStateRepositoryRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	repo := NewStateRepository(fs, "/data")

	missing, err := repo.Get("alpha")
	require.NoError(t, err)
	require.Nil(t, missing)

	state := &domain.MonitoringState{
		ContentTypes:   []string{domain.ContentClassPosts, domain.ContentClassReels},
		Cursors:        map[string]string{domain.ContentClassPosts: "103"},
		LastCheck:      time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		TotalMonitored: 5,
		Active:         true,
	}
	require.NoError(t, repo.Save("alpha", state))

	loaded, err := repo.Get("alpha")
	require.NoError(t, err)
	require.Equal(t, state, loaded)

	all, err := NewStateRepository(fs, "/data").GetAll()
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, "103", all["alpha"].Cursors[domain.ContentClassPosts])
}

func TestStateRepositoryNormalizesNilCursors(t *testing.T) {
	fs := afero.NewMemMapFs()
	repo := NewStateRepository(fs, "/data")

	require.NoError(t, repo.Save("alpha", &domain.MonitoringState{Active: true}))

	loaded, err := repo.Get("alpha")
	require.NoError(t, err)
	require.NotNil(t, loaded.Cursors)
}
