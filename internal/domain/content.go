package domain

import (
	"path/filepath"
	"strings"
	"time"
)

// MediaType classifies a piece of content for routing, rate-limit
// bucketing and hashtag selection.
type MediaType string

const (
	// MediaTypePhoto is a single feed image.
	MediaTypePhoto MediaType = "photo"

	// MediaTypeVideo is a generic feed video.
	MediaTypeVideo MediaType = "video"

	// MediaTypeReel is a short-form clip.
	MediaTypeReel MediaType = "reel"

	// MediaTypeStory is an ephemeral story item.
	MediaTypeStory MediaType = "story"
)

// ContentClasses are the monitorable content classes as they appear in
// task and monitoring-state filters.
const (
	ContentClassPosts   = "posts"
	ContentClassStories = "stories"
	ContentClassReels   = "reels"
)

// RateBucket groups media types for rate limiting. Feed posts of any
// kind share one window, stories get their own.
type RateBucket string

const (
	RateBucketPosts   RateBucket = "posts"
	RateBucketStories RateBucket = "stories"
)

// Bucket returns the rate-limit bucket for the media type.
func (t MediaType) Bucket() RateBucket {
	if t == MediaTypeStory {
		return RateBucketStories
	}
	return RateBucketPosts
}

// ContentItem represents a single piece of content detected on a source
// account. Identity is (MediaID, SourceAccount); MediaID is unique
// within one source account.
type ContentItem struct {
	// MediaID is the platform media identifier.
	MediaID string

	// SourceAccount is the username the item was detected on.
	SourceAccount string

	// MediaType is the content class of the item.
	MediaType MediaType

	// Caption is the original caption text, empty for stories.
	Caption string

	// MediaURL is the direct URL of the media file.
	MediaURL string

	// ThumbnailURL is the preview image URL, optional.
	ThumbnailURL string

	// Timestamp is when the item was published on the platform.
	Timestamp time.Time

	// Engagement counters as reported by the platform, optional.
	ViewCount    int
	LikeCount    int
	CommentCount int

	// IsDownloaded reports whether the media was materialized locally.
	// DownloadPath is set if and only if IsDownloaded is true.
	IsDownloaded bool

	// DownloadPath is the local path of the downloaded (and possibly
	// post-processed) media file.
	DownloadPath string
}

// MarkDownloaded records the local file for the item. The two fields
// always change together.
func (c *ContentItem) MarkDownloaded(path string) {
	c.DownloadPath = path
	c.IsDownloaded = true
}

var videoExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".avi":  true,
	".mkv":  true,
	".webm": true,
	".m4v":  true,
}

// IsVideoFile reports whether the path looks like a video file. Used to
// split story publishing into photo vs video dispatch.
func IsVideoFile(path string) bool {
	return videoExtensions[strings.ToLower(filepath.Ext(path))]
}
