package downloader

import (
	"context"
	"crypto/md5"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/disintegration/imaging"
	"github.com/spf13/afero"

	"github.com/SpaciousAbhi/Web-ig-auto/config"
	"github.com/SpaciousAbhi/Web-ig-auto/internal/domain"
	httpclient "github.com/SpaciousAbhi/Web-ig-auto/internal/infrastructure/http"
	"github.com/SpaciousAbhi/Web-ig-auto/internal/logger"
)

// Stats are the running batch counters. A dedup hit counts as skipped,
// never as success.
type Stats struct {
	Success int
	Failed  int
	Skipped int
}

// Service downloads media for detected content items under bounded
// concurrency and normalizes images for republishing.
type Service struct {
	cfg         *config.Config
	fs          afero.Fs
	httpClient  *httpclient.HTTPClient
	downloadDir string
	sem         chan struct{}

	mu    sync.Mutex
	stats Stats
}

var contentSubdirs = map[domain.MediaType]string{
	domain.MediaTypePhoto: "images",
	domain.MediaTypeVideo: "videos",
	domain.MediaTypeReel:  "reels",
	domain.MediaTypeStory: "stories",
}

// NewService creates a download service rooted at the configured
// download directory.
func NewService(cfg *config.Config, httpClient *httpclient.HTTPClient, fs afero.Fs) (*Service, error) {
	width := cfg.MaxConcurrentDownloads
	if width <= 0 {
		width = 3
	}

	for _, subdir := range []string{"images", "videos", "reels", "stories", "thumbnails"} {
		if err := fs.MkdirAll(filepath.Join(cfg.DownloadDir, subdir), 0755); err != nil {
			return nil, fmt.Errorf("create download directory: %w", err)
		}
	}

	return &Service{
		cfg:         cfg,
		fs:          fs,
		httpClient:  httpClient,
		downloadDir: cfg.DownloadDir,
		sem:         make(chan struct{}, width),
	}, nil
}

// DownloadBatch downloads all items concurrently and returns a map of
// media id to local path. Failed items map to the empty string; no item
// failure cancels its siblings.
func (s *Service) DownloadBatch(ctx context.Context, items []*domain.ContentItem) map[string]string {
	results := make(map[string]string, len(items))
	var resultsMu sync.Mutex
	var wg sync.WaitGroup

	for _, item := range items {
		wg.Add(1)
		go func(it *domain.ContentItem) {
			defer wg.Done()

			// Acquire a pool slot before any network I/O.
			select {
			case s.sem <- struct{}{}:
			case <-ctx.Done():
				resultsMu.Lock()
				results[it.MediaID] = ""
				resultsMu.Unlock()
				s.count(func(st *Stats) { st.Failed++ })
				return
			}
			defer func() { <-s.sem }()

			localPath, skipped, err := s.downloadItem(ctx, it)
			resultsMu.Lock()
			defer resultsMu.Unlock()
			if err != nil {
				logger.Error().Printf("Download failed for %s: %v", it.MediaID, err)
				results[it.MediaID] = ""
				s.count(func(st *Stats) { st.Failed++ })
				return
			}
			results[it.MediaID] = localPath
			if skipped {
				s.count(func(st *Stats) { st.Skipped++ })
			} else {
				s.count(func(st *Stats) { st.Success++ })
			}
		}(item)
	}

	wg.Wait()
	return results
}

// downloadItem materializes one item. The bool result reports a dedup
// hit (file already on disk).
func (s *Service) downloadItem(ctx context.Context, item *domain.ContentItem) (string, bool, error) {
	filename := s.targetFilename(item)
	targetPath := filepath.Join(s.downloadDir, contentSubdirs[item.MediaType], filename)

	if exists, err := afero.Exists(s.fs, targetPath); err == nil && exists {
		logger.Info().Printf("Skipping %s, already downloaded at %s", item.MediaID, targetPath)
		item.MarkDownloaded(targetPath)
		return targetPath, true, nil
	}

	if err := s.fetchFile(ctx, item.MediaURL, targetPath); err != nil {
		return "", false, err
	}

	// Thumbnail is best effort; its failure never fails the item.
	if item.ThumbnailURL != "" && item.ThumbnailURL != item.MediaURL {
		thumbPath := filepath.Join(s.downloadDir, "thumbnails", "thumb_"+filename)
		if err := s.fetchFile(ctx, item.ThumbnailURL, thumbPath); err != nil {
			logger.Warn().Printf("Thumbnail download failed for %s: %v", item.MediaID, err)
		}
	}

	finalPath := s.postProcess(targetPath, item)
	item.MarkDownloaded(finalPath)
	logger.Info().Printf("Downloaded %s to %s", item.MediaID, finalPath)
	return finalPath, false, nil
}

// targetFilename derives the deterministic on-disk name for an item
// from its identity, so re-downloads dedup by construction.
func (s *Service) targetFilename(item *domain.ContentItem) string {
	sum := md5.Sum([]byte(item.MediaID + "_" + item.MediaURL))
	contentHash := fmt.Sprintf("%x", sum)[:8]

	ext := ".jpg"
	if parsed, err := url.Parse(item.MediaURL); err == nil {
		if e := path.Ext(parsed.Path); e != "" && e != "." {
			ext = strings.ToLower(e)
		}
	}

	stamp := item.Timestamp.UTC().Format("20060102_150405")
	return fmt.Sprintf("%s_%s_%s%s", item.SourceAccount, stamp, contentHash, ext)
}

// fetchFile streams a URL to the target path, retrying transient
// transport failures.
func (s *Service) fetchFile(ctx context.Context, rawURL, targetPath string) error {
	fetchCtx := ctx
	if s.cfg.DownloadTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, s.cfg.DownloadTimeout)
		defer cancel()
	}

	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, rawURL, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}

			resp, err := s.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("HTTP %d fetching %s", resp.StatusCode, rawURL)
			}

			file, err := s.fs.Create(targetPath)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			defer file.Close()

			bufferSize := s.cfg.DownloadBufferSize
			if bufferSize <= 0 {
				bufferSize = 1024 * 1024
			}
			buffer := make([]byte, bufferSize)
			if _, err := io.CopyBuffer(file, resp.Body, buffer); err != nil {
				return fmt.Errorf("stream to %s: %w", targetPath, err)
			}
			return nil
		},
		retry.Attempts(3),
		retry.Delay(2*time.Second),
		retry.Context(fetchCtx),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn().Printf("Retrying download of %s (attempt %d): %v", rawURL, n+1, err)
		}),
	)
	if err != nil {
		// A truncated file left behind would satisfy the dedup check
		// on the next emission of the same item.
		_ = s.fs.Remove(targetPath)
		return err
	}
	return nil
}

// postProcess normalizes photo-like content for republishing. Video and
// reel files pass through unmodified; any processing failure falls back
// to the unprocessed original.
func (s *Service) postProcess(filePath string, item *domain.ContentItem) string {
	switch item.MediaType {
	case domain.MediaTypePhoto:
		return s.processImage(filePath)
	case domain.MediaTypeStory:
		if domain.IsVideoFile(filePath) {
			return filePath
		}
		return s.processImage(filePath)
	default:
		return filePath
	}
}

// processImage re-encodes an image as high-quality JPEG, fitting it
// into the maximum square dimension and applying a small sharpness and
// saturation boost.
func (s *Service) processImage(filePath string) string {
	file, err := s.fs.Open(filePath)
	if err != nil {
		logger.Error().Printf("Image processing failed for %s: %v", filePath, err)
		return filePath
	}
	img, err := imaging.Decode(file, imaging.AutoOrientation(true))
	file.Close()
	if err != nil {
		logger.Error().Printf("Image processing failed for %s: %v", filePath, err)
		return filePath
	}

	maxDim := s.cfg.MaxImageDimension
	if maxDim <= 0 {
		maxDim = 1080
	}
	bounds := img.Bounds()
	if bounds.Dx() > maxDim || bounds.Dy() > maxDim {
		img = imaging.Fit(img, maxDim, maxDim, imaging.Lanczos)
	}

	img = imaging.Sharpen(img, 0.3)
	img = imaging.AdjustSaturation(img, 2)

	quality := s.cfg.JPEGQuality
	if quality <= 0 {
		quality = 90
	}

	processedPath := strings.TrimSuffix(filePath, filepath.Ext(filePath)) + ".jpg"
	out, err := s.fs.Create(processedPath)
	if err != nil {
		logger.Error().Printf("Image processing failed for %s: %v", filePath, err)
		return filePath
	}
	if err := imaging.Encode(out, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		out.Close()
		logger.Error().Printf("Image processing failed for %s: %v", filePath, err)
		return filePath
	}
	out.Close()

	if processedPath != filePath {
		if err := s.fs.Remove(filePath); err != nil {
			logger.Warn().Printf("Failed to remove unprocessed file %s: %v", filePath, err)
		}
	}
	return processedPath
}

// CleanupOldDownloads removes downloaded files older than maxAge.
func (s *Service) CleanupOldDownloads(maxAge time.Duration) error {
	now := time.Now()
	for _, subdir := range []string{"images", "videos", "reels", "stories", "thumbnails"} {
		dir := filepath.Join(s.downloadDir, subdir)
		entries, err := afero.ReadDir(s.fs, dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if now.Sub(entry.ModTime()) > maxAge {
				_ = s.fs.Remove(filepath.Join(dir, entry.Name()))
			}
		}
	}
	return nil
}

// Stats returns a copy of the running counters.
func (s *Service) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func (s *Service) count(update func(*Stats)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	update(&s.stats)
}
