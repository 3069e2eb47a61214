package instagram

import (
	"context"
	"time"
)

// Media is one entry of a recent-media listing.
type Media struct {
	// PK is the platform media identifier.
	PK string

	// MediaKind is the platform media kind: 1 photo, 2 video.
	MediaKind int

	// ProductType is the platform product classification; "clips"
	// marks short-form video.
	ProductType string

	// HasClipsMetadata is set when the item carries clip metadata.
	HasClipsMetadata bool

	// Caption is the caption text, empty when absent.
	Caption string

	// VideoURL is the direct video URL, empty for photos.
	VideoURL string

	// ImageURL is the highest-quality image candidate URL.
	ImageURL string

	// ThumbnailURL is the preview image URL.
	ThumbnailURL string

	// TakenAt is the publish timestamp.
	TakenAt time.Time

	ViewCount    int
	LikeCount    int
	CommentCount int
}

// StoryItem is one entry of a story listing. Stories carry no caption
// and no like/comment counters.
type StoryItem struct {
	PK           string
	VideoURL     string
	ImageURL     string
	ThumbnailURL string
	TakenAt      time.Time
	ViewCount    int
}

// Session is the authenticated platform capability consumed by the
// pipeline. One Session maps to one logged-in account; any session
// suffices for read access to public sources.
type Session interface {
	// Username returns the account the session is logged in as.
	Username() string

	// ResolveAccountID maps a username to the platform account id.
	ResolveAccountID(ctx context.Context, username string) (string, error)

	// ListRecentMedia returns up to count most recent feed items for
	// the account, newest first.
	ListRecentMedia(ctx context.Context, accountID string, count int) ([]Media, error)

	// ListStories returns all currently visible stories for the
	// account, newest first.
	ListStories(ctx context.Context, accountID string) ([]StoryItem, error)

	// PublishPhoto posts an image to the feed.
	PublishPhoto(ctx context.Context, path, caption string) error

	// PublishVideo posts a video to the feed.
	PublishVideo(ctx context.Context, path, caption string) error

	// PublishReel posts a short-form clip.
	PublishReel(ctx context.Context, path, caption string) error

	// PublishStory posts a story; photo vs video is decided by the
	// caller from the file extension.
	PublishStory(ctx context.Context, path string) error
}
