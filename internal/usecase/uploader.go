package usecase

import (
	"context"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/SpaciousAbhi/Web-ig-auto/config"
	"github.com/SpaciousAbhi/Web-ig-auto/internal/domain"
	"github.com/SpaciousAbhi/Web-ig-auto/internal/infrastructure/instagram"
	"github.com/SpaciousAbhi/Web-ig-auto/internal/logger"
)

const (
	// maxCaptionLength is the platform caption ceiling.
	maxCaptionLength = 2200

	// captionTruncateAt is where over-long captions are cut so the
	// truncation marker still fits.
	captionTruncateAt = 2180

	// maxOriginalCaptionLength bounds how long a source caption may be
	// to still be carried over, leaving room for the other parts.
	maxOriginalCaptionLength = 1500

	// rateWindowRetention is how long publish timestamps are kept.
	// Twice the enforcement window gives slack for clock drift.
	rateWindowRetention = 2 * time.Hour
)

// pacingRanges are the post-success delay bounds per content class,
// longer for heavier media. This is a human-pacing throttle, not a
// retry wait.
var pacingRanges = map[domain.MediaType][2]time.Duration{
	domain.MediaTypePhoto: {60 * time.Second, 180 * time.Second},
	domain.MediaTypeVideo: {90 * time.Second, 240 * time.Second},
	domain.MediaTypeReel:  {75 * time.Second, 200 * time.Second},
	domain.MediaTypeStory: {30 * time.Second, 90 * time.Second},
}

var typeHashtags = map[domain.MediaType][]string{
	domain.MediaTypePhoto: {"#photography", "#photooftheday", "#beautiful", "#amazing"},
	domain.MediaTypeVideo: {"#video", "#videos", "#awesome", "#cool"},
	domain.MediaTypeReel:  {"#reels", "#reelsinstagram", "#trending", "#viral"},
	domain.MediaTypeStory: {"#story", "#stories", "#daily", "#update"},
}

var sourceHashtags = map[string][]string{
	"natgeo":             {"#nature", "#wildlife", "#earth", "#planet"},
	"bbcearth":           {"#earth", "#planet", "#documentary", "#nature"},
	"travel":             {"#travel", "#wanderlust", "#adventure", "#explore"},
	"food":               {"#food", "#foodie", "#delicious", "#cooking"},
	"nationalgeographic": {"#nature", "#wildlife", "#photography", "#earth"},
}

var engagementHashtags = []string{
	"#love", "#instagood", "#follow", "#like4like",
	"#followme", "#explore", "#discover", "#amazing",
}

// TypeUploadStats counts publish outcomes for one content class.
type TypeUploadStats struct {
	Success int `json:"success"`
	Failed  int `json:"failed"`
}

// AccountUploadStats aggregates publish outcomes for one destination.
type AccountUploadStats struct {
	TotalUploads      int                                   `json:"total_uploads"`
	SuccessfulUploads int                                   `json:"successful_uploads"`
	FailedUploads     int                                   `json:"failed_uploads"`
	ByType            map[domain.MediaType]*TypeUploadStats `json:"by_type"`
}

// ContentUploader publishes downloaded items to destination accounts
// under per-destination sliding-window rate limits, with caption
// synthesis and human-pacing delays.
type ContentUploader struct {
	cfg     *config.Config
	fs      afero.Fs
	now     domain.Clock
	sleeper domain.Sleeper

	mu          sync.Mutex
	rateWindows map[string]map[domain.RateBucket][]time.Time
	stats       map[string]*AccountUploadStats
}

// NewContentUploader creates a content uploader.
func NewContentUploader(cfg *config.Config, fs afero.Fs) *ContentUploader {
	return &ContentUploader{
		cfg:         cfg,
		fs:          fs,
		now:         time.Now,
		sleeper:     domain.RealSleeper{},
		rateWindows: map[string]map[domain.RateBucket][]time.Time{},
		stats:       map[string]*AccountUploadStats{},
	}
}

// SetClock overrides the wall clock, for tests.
func (u *ContentUploader) SetClock(now domain.Clock) {
	u.now = now
}

// SetSleeper overrides the pacing delay implementation, for tests.
func (u *ContentUploader) SetSleeper(sleeper domain.Sleeper) {
	u.sleeper = sleeper
}

// Publish uploads one item to one destination. A rejected rate check
// returns false with no side effect; a publish failure is recorded and
// never propagates.
func (u *ContentUploader) Publish(ctx context.Context, item *domain.ContentItem, destination string, session instagram.Session) bool {
	bucket := item.MediaType.Bucket()

	if !u.allowPublish(destination, bucket) {
		logger.Warn().Printf("Rate limit reached for %s, skipping upload of %s", destination, item.MediaID)
		return false
	}

	if item.DownloadPath == "" {
		logger.Error().Printf("No local file for %s, cannot upload", item.MediaID)
		return false
	}
	if exists, err := afero.Exists(u.fs, item.DownloadPath); err != nil || !exists {
		logger.Error().Printf("File not found for %s: %s", item.MediaID, item.DownloadPath)
		return false
	}

	caption := u.BuildCaption(item)

	logger.Info().Printf("Uploading %s from %s to %s", item.MediaType, item.SourceAccount, destination)

	var err error
	switch item.MediaType {
	case domain.MediaTypePhoto:
		err = session.PublishPhoto(ctx, item.DownloadPath, caption)
	case domain.MediaTypeVideo:
		err = session.PublishVideo(ctx, item.DownloadPath, caption)
	case domain.MediaTypeReel:
		err = session.PublishReel(ctx, item.DownloadPath, caption)
	case domain.MediaTypeStory:
		err = session.PublishStory(ctx, item.DownloadPath)
	default:
		logger.Error().Printf("Unknown media type %q for %s", item.MediaType, item.MediaID)
		u.recordOutcome(destination, item.MediaType, false)
		return false
	}

	if err != nil {
		logger.Error().Printf("Failed to upload %s to %s: %v", item.MediaID, destination, err)
		u.recordOutcome(destination, item.MediaType, false)
		return false
	}

	u.recordOutcome(destination, item.MediaType, true)
	u.recordAction(destination, bucket)
	logger.Info().Printf("Successfully uploaded %s to %s", item.MediaID, destination)

	u.pace(ctx, item.MediaType)
	return true
}

// allowPublish tests the trailing-hour action count for the bucket
// against the configured ceiling. Read-only: the window is only
// mutated after a successful publish.
func (u *ContentUploader) allowPublish(destination string, bucket domain.RateBucket) bool {
	ceiling := u.cfg.PostsPerHour
	if bucket == domain.RateBucketStories {
		ceiling = u.cfg.StoriesPerHour
	}
	if ceiling <= 0 {
		return true
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	hourAgo := u.now().Add(-time.Hour)
	var recent int
	for _, at := range u.rateWindows[destination][bucket] {
		if at.After(hourAgo) {
			recent++
		}
	}
	return recent < ceiling
}

// recordAction appends the publish timestamp and prunes entries older
// than the retention horizon.
func (u *ContentUploader) recordAction(destination string, bucket domain.RateBucket) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.rateWindows[destination] == nil {
		u.rateWindows[destination] = map[domain.RateBucket][]time.Time{}
	}

	now := u.now()
	window := append(u.rateWindows[destination][bucket], now)

	cutoff := now.Add(-rateWindowRetention)
	pruned := window[:0]
	for _, at := range window {
		if at.After(cutoff) {
			pruned = append(pruned, at)
		}
	}
	u.rateWindows[destination][bucket] = pruned
}

func (u *ContentUploader) recordOutcome(destination string, mediaType domain.MediaType, success bool) {
	u.mu.Lock()
	defer u.mu.Unlock()

	stats := u.stats[destination]
	if stats == nil {
		stats = &AccountUploadStats{ByType: map[domain.MediaType]*TypeUploadStats{}}
		u.stats[destination] = stats
	}
	stats.TotalUploads++

	byType := stats.ByType[mediaType]
	if byType == nil {
		byType = &TypeUploadStats{}
		stats.ByType[mediaType] = byType
	}

	if success {
		stats.SuccessfulUploads++
		byType.Success++
	} else {
		stats.FailedUploads++
		byType.Failed++
	}
}

// pace sleeps for a randomized duration in the class range after a
// successful publish.
func (u *ContentUploader) pace(ctx context.Context, mediaType domain.MediaType) {
	bounds, ok := pacingRanges[mediaType]
	if !ok {
		bounds = [2]time.Duration{60 * time.Second, 120 * time.Second}
	}
	delay := bounds[0] + time.Duration(rand.Int63n(int64(bounds[1]-bounds[0])))
	logger.Info().Printf("Pacing %.0fs after %s upload", delay.Seconds(), mediaType)
	u.sleeper.Sleep(ctx, delay)
}

// BuildCaption synthesizes the destination caption: cleaned original,
// attribution, call to action and a hashtag line, joined by blank
// lines and bounded by the platform caption ceiling.
func (u *ContentUploader) BuildCaption(item *domain.ContentItem) string {
	var parts []string

	if cleaned := cleanCaption(item.Caption); cleaned != "" && len([]rune(cleaned)) <= maxOriginalCaptionLength {
		parts = append(parts, cleaned)
	}

	if u.cfg.AddCredit && u.cfg.CreditFormat != "" {
		parts = append(parts, strings.ReplaceAll(u.cfg.CreditFormat, "{username}", item.SourceAccount))
	}

	if u.cfg.AddCallToAction && u.cfg.CallToActionText != "" {
		parts = append(parts, u.cfg.CallToActionText)
	}

	if tags := u.buildHashtags(item); tags != "" {
		parts = append(parts, tags)
	}

	caption := strings.Join(parts, "\n\n")

	if runes := []rune(caption); len(runes) > maxCaptionLength {
		caption = string(runes[:captionTruncateAt]) + "..."
	}
	return caption
}

// cleanCaption collapses whitespace, strips invisible separators and
// drops hashtag lines so tags are not duplicated.
func cleanCaption(caption string) string {
	caption = strings.ReplaceAll(caption, "⁣", "")

	var lines []string
	for _, line := range strings.Split(caption, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// buildHashtags combines class tags, source-keyword tags and a random
// sample of engagement tags, deduplicated and capped.
func (u *ContentUploader) buildHashtags(item *domain.ContentItem) string {
	var tags []string
	tags = append(tags, typeHashtags[item.MediaType]...)
	tags = append(tags, matchSourceHashtags(item.SourceAccount)...)

	sample := make([]string, len(engagementHashtags))
	copy(sample, engagementHashtags)
	rand.Shuffle(len(sample), func(i, j int) { sample[i], sample[j] = sample[j], sample[i] })
	n := 4
	if n > len(sample) {
		n = len(sample)
	}
	tags = append(tags, sample[:n]...)

	seen := map[string]bool{}
	unique := tags[:0]
	for _, tag := range tags {
		if seen[tag] {
			continue
		}
		seen[tag] = true
		unique = append(unique, tag)
	}

	maxTags := u.cfg.MaxHashtags
	if maxTags <= 0 {
		maxTags = 25
	}
	if len(unique) > maxTags {
		unique = unique[:maxTags]
	}
	return strings.Join(unique, " ")
}

// matchSourceHashtags returns the tag set of the longest source keyword
// contained in the account name; ties resolve lexicographically.
func matchSourceHashtags(source string) []string {
	keys := make([]string, 0, len(sourceHashtags))
	for key := range sourceHashtags {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})

	lower := strings.ToLower(source)
	for _, key := range keys {
		if strings.Contains(lower, key) {
			return sourceHashtags[key]
		}
	}
	return nil
}

// Stats returns a deep copy of per-destination upload statistics.
func (u *ContentUploader) Stats() map[string]*AccountUploadStats {
	u.mu.Lock()
	defer u.mu.Unlock()

	out := make(map[string]*AccountUploadStats, len(u.stats))
	for account, stats := range u.stats {
		byType := make(map[domain.MediaType]*TypeUploadStats, len(stats.ByType))
		for mediaType, ts := range stats.ByType {
			c := *ts
			byType[mediaType] = &c
		}
		out[account] = &AccountUploadStats{
			TotalUploads:      stats.TotalUploads,
			SuccessfulUploads: stats.SuccessfulUploads,
			FailedUploads:     stats.FailedUploads,
			ByType:            byType,
		}
	}
	return out
}
