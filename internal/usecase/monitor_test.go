package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/SpaciousAbhi/Web-ig-auto/internal/domain"
	"github.com/SpaciousAbhi/Web-ig-auto/internal/infrastructure/instagram"
	"github.com/SpaciousAbhi/Web-ig-auto/internal/repository/memory"
)

func photo(pk string) instagram.Media {
	return instagram.Media{PK: pk, MediaKind: 1, ImageURL: "https://cdn.example/" + pk + ".jpg"}
}

func clip(pk string) instagram.Media {
	return instagram.Media{PK: pk, MediaKind: 2, HasClipsMetadata: true, VideoURL: "https://cdn.example/" + pk + ".mp4"}
}

func TestPollEmitsOnlyNewPosts(t *testing.T) {
	stateRepo := memory.NewStateRepository()
	monitor := NewContentMonitor(testConfig(), stateRepo)
	require.NoError(t, monitor.Register("alpha", []string{domain.ContentClassPosts}))

	session := &fakeSession{
		feed: []instagram.Media{photo("103"), photo("102"), photo("101"), photo("100"), photo("99")},
	}

	// Seed the cursor by an initial poll over an older feed.
	seed := &fakeSession{feed: []instagram.Media{photo("100"), photo("99")}}
	items, err := monitor.Poll(context.Background(), "alpha", seed)
	require.NoError(t, err)
	require.Len(t, items, 2)

	items, err = monitor.Poll(context.Background(), "alpha", session)
	require.NoError(t, err)
	require.Len(t, items, 3)
	require.Equal(t, "103", items[0].MediaID)
	require.Equal(t, "102", items[1].MediaID)
	require.Equal(t, "101", items[2].MediaID)

	state, err := stateRepo.Get("alpha")
	require.NoError(t, err)
	require.Equal(t, "103", state.Cursors[domain.ContentClassPosts])
	require.Equal(t, 5, state.TotalMonitored)
}

func TestPollIsIdempotent(t *testing.T) {
	stateRepo := memory.NewStateRepository()
	monitor := NewContentMonitor(testConfig(), stateRepo)

	session := &fakeSession{feed: []instagram.Media{photo("3"), photo("2"), photo("1")}}

	first, err := monitor.Poll(context.Background(), "alpha", session)
	require.NoError(t, err)
	require.Len(t, first, 3)

	second, err := monitor.Poll(context.Background(), "alpha", session)
	require.NoError(t, err)
	require.Empty(t, second)

	state, err := stateRepo.Get("alpha")
	require.NoError(t, err)
	require.Equal(t, "3", state.Cursors[domain.ContentClassPosts])
}

func TestPollCursorSurvivesEmptyFeed(t *testing.T) {
	stateRepo := memory.NewStateRepository()
	monitor := NewContentMonitor(testConfig(), stateRepo)

	_, err := monitor.Poll(context.Background(), "alpha", &fakeSession{feed: []instagram.Media{photo("7")}})
	require.NoError(t, err)

	_, err = monitor.Poll(context.Background(), "alpha", &fakeSession{})
	require.NoError(t, err)

	state, err := stateRepo.Get("alpha")
	require.NoError(t, err)
	require.Equal(t, "7", state.Cursors[domain.ContentClassPosts])
}

func TestPollSplitsReelsFromPosts(t *testing.T) {
	stateRepo := memory.NewStateRepository()
	monitor := NewContentMonitor(testConfig(), stateRepo)
	require.NoError(t, monitor.Register("alpha", []string{domain.ContentClassPosts, domain.ContentClassReels}))

	session := &fakeSession{feed: []instagram.Media{clip("5"), photo("4"), clip("3")}}

	items, err := monitor.Poll(context.Background(), "alpha", session)
	require.NoError(t, err)
	require.Len(t, items, 3)

	var reels, posts int
	for _, item := range items {
		switch item.MediaType {
		case domain.MediaTypeReel:
			reels++
		case domain.MediaTypePhoto:
			posts++
		}
	}
	require.Equal(t, 2, reels)
	require.Equal(t, 1, posts)

	state, err := stateRepo.Get("alpha")
	require.NoError(t, err)
	require.Equal(t, "4", state.Cursors[domain.ContentClassPosts])
	require.Equal(t, "5", state.Cursors[domain.ContentClassReels])
}

func TestPollStoriesHaveNoCursor(t *testing.T) {
	stateRepo := memory.NewStateRepository()
	monitor := NewContentMonitor(testConfig(), stateRepo)
	require.NoError(t, monitor.Register("alpha", []string{domain.ContentClassStories}))

	session := &fakeSession{stories: []instagram.StoryItem{
		{PK: "s2", ImageURL: "https://cdn.example/s2.jpg", TakenAt: time.Now()},
		{PK: "s1", VideoURL: "https://cdn.example/s1.mp4", TakenAt: time.Now()},
	}}

	for range 2 {
		items, err := monitor.Poll(context.Background(), "alpha", session)
		require.NoError(t, err)
		require.Len(t, items, 2)
		require.Equal(t, domain.MediaTypeStory, items[0].MediaType)
	}
}

func TestPollFailureLeavesCursorsUntouched(t *testing.T) {
	stateRepo := memory.NewStateRepository()
	monitor := NewContentMonitor(testConfig(), stateRepo)
	require.NoError(t, monitor.Register("alpha", []string{domain.ContentClassPosts, domain.ContentClassStories}))

	// The posts scan succeeds, then the stories scan fails.
	broken := &fakeSession{
		feed:     []instagram.Media{photo("104")},
		storyErr: errors.New("stories unavailable"),
	}
	items, err := monitor.Poll(context.Background(), "alpha", broken)
	require.Error(t, err)
	require.Empty(t, items)

	state, err := stateRepo.Get("alpha")
	require.NoError(t, err)
	require.Empty(t, state.Cursors[domain.ContentClassPosts])
	require.Equal(t, 1, state.ErrorCount)

	// The next successful poll still emits the post seen during the
	// failed one.
	recovered := &fakeSession{feed: []instagram.Media{photo("104")}}
	items, err = monitor.Poll(context.Background(), "alpha", recovered)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "104", items[0].MediaID)

	state, err = stateRepo.Get("alpha")
	require.NoError(t, err)
	require.Equal(t, "104", state.Cursors[domain.ContentClassPosts])
}

func TestPollRecordsErrors(t *testing.T) {
	stateRepo := memory.NewStateRepository()
	monitor := NewContentMonitor(testConfig(), stateRepo)
	require.NoError(t, monitor.Register("alpha", []string{domain.ContentClassPosts}))

	session := &fakeSession{feedErr: errors.New("boom")}

	items, err := monitor.Poll(context.Background(), "alpha", session)
	require.Error(t, err)
	require.Empty(t, items)

	state, err := stateRepo.Get("alpha")
	require.NoError(t, err)
	require.Equal(t, 1, state.ErrorCount)
}

func TestPollSkipsInactiveAccounts(t *testing.T) {
	stateRepo := memory.NewStateRepository()
	monitor := NewContentMonitor(testConfig(), stateRepo)
	require.NoError(t, stateRepo.Save("alpha", &domain.MonitoringState{
		ContentTypes: []string{domain.ContentClassPosts},
		Cursors:      map[string]string{},
		Active:       false,
	}))

	items, err := monitor.Poll(context.Background(), "alpha", &fakeSession{feed: []instagram.Media{photo("1")}})
	require.NoError(t, err)
	require.Empty(t, items)
}

func TestPollAutoRegistersUnknownAccounts(t *testing.T) {
	stateRepo := memory.NewStateRepository()
	monitor := NewContentMonitor(testConfig(), stateRepo)

	items, err := monitor.Poll(context.Background(), "fresh", &fakeSession{feed: []instagram.Media{photo("1")}})
	require.NoError(t, err)
	require.Len(t, items, 1)

	state, err := stateRepo.Get("fresh")
	require.NoError(t, err)
	require.NotNil(t, state)
	require.True(t, state.Active)
	require.True(t, state.WatchesClass(domain.ContentClassPosts))
	require.True(t, state.WatchesClass(domain.ContentClassStories))
	require.True(t, state.WatchesClass(domain.ContentClassReels))
}
