package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/SpaciousAbhi/Web-ig-auto/config"
	"github.com/SpaciousAbhi/Web-ig-auto/internal/infrastructure/instagram"
)

func testConfig() *config.Config {
	return &config.Config{
		PostsWindow:      5,
		ReelsWindow:      10,
		PostsPerHour:     3,
		StoriesPerHour:   8,
		MaxHashtags:      25,
		AddCredit:        true,
		CreditFormat:     "📸 @{username}",
		InterUploadDelay: 30 * time.Second,
		InterTaskDelay:   60 * time.Second,
	}
}

type publishCall struct {
	kind    string
	path    string
	caption string
}

// fakeSession records publishes and serves canned listings.
type fakeSession struct {
	mu sync.Mutex

	username   string
	feed       []instagram.Media
	stories    []instagram.StoryItem
	resolveErr error
	feedErr    error
	storyErr   error
	publishErr error

	published []publishCall
}

func (f *fakeSession) Username() string { return f.username }

func (f *fakeSession) ResolveAccountID(_ context.Context, username string) (string, error) {
	if f.resolveErr != nil {
		return "", f.resolveErr
	}
	return "id_" + username, nil
}

func (f *fakeSession) ListRecentMedia(_ context.Context, _ string, count int) ([]instagram.Media, error) {
	if f.feedErr != nil {
		return nil, f.feedErr
	}
	if count > len(f.feed) {
		count = len(f.feed)
	}
	return f.feed[:count], nil
}

func (f *fakeSession) ListStories(_ context.Context, _ string) ([]instagram.StoryItem, error) {
	if f.storyErr != nil {
		return nil, f.storyErr
	}
	return f.stories, nil
}

func (f *fakeSession) record(kind, path, caption string) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.mu.Lock()
	f.published = append(f.published, publishCall{kind: kind, path: path, caption: caption})
	f.mu.Unlock()
	return nil
}

func (f *fakeSession) PublishPhoto(_ context.Context, path, caption string) error {
	return f.record("photo", path, caption)
}

func (f *fakeSession) PublishVideo(_ context.Context, path, caption string) error {
	return f.record("video", path, caption)
}

func (f *fakeSession) PublishReel(_ context.Context, path, caption string) error {
	return f.record("reel", path, caption)
}

func (f *fakeSession) PublishStory(_ context.Context, path string) error {
	return f.record("story", path, "")
}

func (f *fakeSession) calls() []publishCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]publishCall(nil), f.published...)
}

// fakeSleeper records requested delays without sleeping.
type fakeSleeper struct {
	mu    sync.Mutex
	slept []time.Duration
}

func (f *fakeSleeper) Sleep(_ context.Context, d time.Duration) {
	f.mu.Lock()
	f.slept = append(f.slept, d)
	f.mu.Unlock()
}

func (f *fakeSleeper) delays() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Duration(nil), f.slept...)
}

// fakeClock is a settable wall clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
