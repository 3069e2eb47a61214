package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/SpaciousAbhi/Web-ig-auto/config"
	"github.com/SpaciousAbhi/Web-ig-auto/internal/domain"
	"github.com/SpaciousAbhi/Web-ig-auto/internal/infrastructure/instagram"
	"github.com/SpaciousAbhi/Web-ig-auto/internal/logger"
)

// ReelClassifier decides whether a feed item is a short-form clip
// rather than a generic video. The platform signals behind this are
// heuristic, so the predicate is pluggable.
type ReelClassifier func(m instagram.Media) bool

// DefaultReelClassifier checks the platform product type and clip
// metadata.
func DefaultReelClassifier(m instagram.Media) bool {
	if m.HasClipsMetadata {
		return true
	}
	return m.ProductType == "clips"
}

// ContentMonitor tracks per-source, per-class cursors and turns raw
// platform listings into new-content events.
type ContentMonitor struct {
	cfg          *config.Config
	stateRepo    domain.StateRepository
	classifyReel ReelClassifier
	now          domain.Clock
}

// NewContentMonitor creates a content monitor.
func NewContentMonitor(cfg *config.Config, stateRepo domain.StateRepository) *ContentMonitor {
	return &ContentMonitor{
		cfg:          cfg,
		stateRepo:    stateRepo,
		classifyReel: DefaultReelClassifier,
		now:          time.Now,
	}
}

// SetClock overrides the wall clock, for tests.
func (m *ContentMonitor) SetClock(now domain.Clock) {
	m.now = now
}

// SetReelClassifier overrides the short-form clip heuristic.
func (m *ContentMonitor) SetReelClassifier(classify ReelClassifier) {
	m.classifyReel = classify
}

// States returns the persisted monitoring state of every registered
// source account.
func (m *ContentMonitor) States() (map[string]*domain.MonitoringState, error) {
	return m.stateRepo.GetAll()
}

// Register creates or overwrites the monitoring state for a source
// account.
func (m *ContentMonitor) Register(account string, contentTypes []string) error {
	if len(contentTypes) == 0 {
		contentTypes = []string{domain.ContentClassPosts, domain.ContentClassStories, domain.ContentClassReels}
	}
	state := &domain.MonitoringState{
		ContentTypes: contentTypes,
		Cursors:      map[string]string{},
		Active:       true,
	}
	if err := m.stateRepo.Save(account, state); err != nil {
		return fmt.Errorf("save monitoring state for %s: %w", account, err)
	}
	logger.Info().Printf("Registered source account %s for monitoring: %v", account, contentTypes)
	return nil
}

// Poll fetches the recent windows for every enabled content class of
// the account and returns the items strictly newer than the stored
// cursors, newest first. Any fetch failure is recorded on the account
// and yields an empty result; it never aborts other accounts.
func (m *ContentMonitor) Poll(ctx context.Context, account string, session instagram.Session) ([]*domain.ContentItem, error) {
	state, err := m.stateRepo.Get(account)
	if err != nil {
		return nil, fmt.Errorf("load monitoring state for %s: %w", account, err)
	}
	if state == nil {
		if err := m.Register(account, nil); err != nil {
			return nil, err
		}
		if state, err = m.stateRepo.Get(account); err != nil {
			return nil, err
		}
	}
	if !state.Active {
		return nil, nil
	}
	if state.Cursors == nil {
		state.Cursors = map[string]string{}
	}

	items, cursors, pollErr := m.pollAccount(ctx, account, session, state)
	if pollErr != nil {
		state.ErrorCount++
		if saveErr := m.stateRepo.Save(account, state); saveErr != nil {
			logger.Error().Printf("Failed to persist monitoring state for %s: %v", account, saveErr)
		}
		return nil, pollErr
	}

	// Cursors only move once every enabled scan succeeded; a failing
	// scan must not strand a sibling scan's items behind an advanced
	// cursor.
	for class, cursor := range cursors {
		state.Cursors[class] = cursor
	}

	state.LastCheck = m.now()
	if len(items) > 0 {
		state.TotalMonitored += len(items)
		logger.Info().Printf("Found %d new items from %s", len(items), account)
	}
	if err := m.stateRepo.Save(account, state); err != nil {
		logger.Error().Printf("Failed to persist monitoring state for %s: %v", account, err)
	}
	return items, nil
}

func (m *ContentMonitor) pollAccount(ctx context.Context, account string, session instagram.Session, state *domain.MonitoringState) ([]*domain.ContentItem, map[string]string, error) {
	accountID, err := session.ResolveAccountID(ctx, account)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve %s: %w", account, err)
	}

	var items []*domain.ContentItem
	cursors := map[string]string{}

	if state.WatchesClass(domain.ContentClassPosts) {
		posts, cursor, err := m.scanPosts(ctx, account, accountID, session, state)
		if err != nil {
			return nil, nil, fmt.Errorf("posts for %s: %w", account, err)
		}
		if cursor != "" {
			cursors[domain.ContentClassPosts] = cursor
		}
		items = append(items, posts...)
	}

	if state.WatchesClass(domain.ContentClassStories) {
		stories, err := m.scanStories(ctx, account, accountID, session)
		if err != nil {
			return nil, nil, fmt.Errorf("stories for %s: %w", account, err)
		}
		items = append(items, stories...)
	}

	if state.WatchesClass(domain.ContentClassReels) {
		reels, cursor, err := m.scanReels(ctx, account, accountID, session, state)
		if err != nil {
			return nil, nil, fmt.Errorf("reels for %s: %w", account, err)
		}
		if cursor != "" {
			cursors[domain.ContentClassReels] = cursor
		}
		items = append(items, reels...)
	}

	return items, cursors, nil
}

// scanPosts walks the recent feed window newest to oldest, stopping at
// the stored cursor. Items the reel heuristic claims are left to the
// reels scan when that class is enabled. The returned cursor is the
// newest emitted item's id, empty when nothing was emitted; the caller
// applies it only after the whole poll succeeds.
func (m *ContentMonitor) scanPosts(ctx context.Context, account, accountID string, session instagram.Session, state *domain.MonitoringState) ([]*domain.ContentItem, string, error) {
	window := m.cfg.PostsWindow
	if window <= 0 {
		window = 5
	}

	medias, err := session.ListRecentMedia(ctx, accountID, window)
	if err != nil {
		return nil, "", err
	}

	cursor := state.Cursors[domain.ContentClassPosts]
	reelsEnabled := state.WatchesClass(domain.ContentClassReels)

	var posts []*domain.ContentItem
	for _, media := range medias {
		if cursor != "" && media.PK == cursor {
			break
		}
		if m.classifyReel(media) && reelsEnabled {
			continue
		}
		posts = append(posts, mediaToItem(media, account, mediaTypeFor(media)))
	}

	if len(posts) == 0 {
		return nil, "", nil
	}
	return posts, posts[0].MediaID, nil
}

// scanStories returns every currently visible story. Stories are
// short-lived, so they carry no cursor.
func (m *ContentMonitor) scanStories(ctx context.Context, account, accountID string, session instagram.Session) ([]*domain.ContentItem, error) {
	stories, err := session.ListStories(ctx, accountID)
	if err != nil {
		return nil, err
	}

	items := make([]*domain.ContentItem, 0, len(stories))
	for _, story := range stories {
		mediaURL := story.VideoURL
		if mediaURL == "" {
			mediaURL = story.ImageURL
		}
		if mediaURL == "" {
			mediaURL = story.ThumbnailURL
		}
		items = append(items, &domain.ContentItem{
			MediaID:       story.PK,
			SourceAccount: account,
			MediaType:     domain.MediaTypeStory,
			MediaURL:      mediaURL,
			ThumbnailURL:  story.ThumbnailURL,
			Timestamp:     story.TakenAt,
			ViewCount:     story.ViewCount,
		})
	}
	return items, nil
}

// scanReels walks a wider feed window for short-form clips under the
// reels cursor. The returned cursor follows the same contract as
// scanPosts.
func (m *ContentMonitor) scanReels(ctx context.Context, account, accountID string, session instagram.Session, state *domain.MonitoringState) ([]*domain.ContentItem, string, error) {
	window := m.cfg.ReelsWindow
	if window <= 0 {
		window = 10
	}

	medias, err := session.ListRecentMedia(ctx, accountID, window)
	if err != nil {
		return nil, "", err
	}

	cursor := state.Cursors[domain.ContentClassReels]

	var reels []*domain.ContentItem
	for _, media := range medias {
		if cursor != "" && media.PK == cursor {
			break
		}
		if !m.classifyReel(media) {
			continue
		}
		reels = append(reels, mediaToItem(media, account, domain.MediaTypeReel))
	}

	if len(reels) == 0 {
		return nil, "", nil
	}
	return reels, reels[0].MediaID, nil
}

func mediaTypeFor(media instagram.Media) domain.MediaType {
	if media.MediaKind == 1 {
		return domain.MediaTypePhoto
	}
	return domain.MediaTypeVideo
}

func mediaToItem(media instagram.Media, account string, mediaType domain.MediaType) *domain.ContentItem {
	mediaURL := media.VideoURL
	if mediaURL == "" {
		mediaURL = media.ImageURL
	}
	if mediaURL == "" {
		mediaURL = media.ThumbnailURL
	}
	return &domain.ContentItem{
		MediaID:       media.PK,
		SourceAccount: account,
		MediaType:     mediaType,
		Caption:       media.Caption,
		MediaURL:      mediaURL,
		ThumbnailURL:  media.ThumbnailURL,
		Timestamp:     media.TakenAt,
		ViewCount:     media.ViewCount,
		LikeCount:     media.LikeCount,
		CommentCount:  media.CommentCount,
	}
}
