package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBucketGroupsFeedContent(t *testing.T) {
	require.Equal(t, RateBucketPosts, MediaTypePhoto.Bucket())
	require.Equal(t, RateBucketPosts, MediaTypeVideo.Bucket())
	require.Equal(t, RateBucketPosts, MediaTypeReel.Bucket())
	require.Equal(t, RateBucketStories, MediaTypeStory.Bucket())
}

func TestIsVideoFile(t *testing.T) {
	require.True(t, IsVideoFile("/data/clip.mp4"))
	require.True(t, IsVideoFile("/data/CLIP.MOV"))
	require.False(t, IsVideoFile("/data/photo.jpg"))
	require.False(t, IsVideoFile("/data/noext"))
}

func TestMarkDownloaded(t *testing.T) {
	item := &ContentItem{MediaID: "1"}
	require.False(t, item.IsDownloaded)

	item.MarkDownloaded("/data/1.jpg")
	require.True(t, item.IsDownloaded)
	require.Equal(t, "/data/1.jpg", item.DownloadPath)
}

func TestWatchesClass(t *testing.T) {
	state := &MonitoringState{ContentTypes: []string{ContentClassPosts, ContentClassReels}}
	require.True(t, state.WatchesClass(ContentClassPosts))
	require.True(t, state.WatchesClass(ContentClassReels))
	require.False(t, state.WatchesClass(ContentClassStories))
}
