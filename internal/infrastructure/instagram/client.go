package instagram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	httpclient "github.com/SpaciousAbhi/Web-ig-auto/internal/infrastructure/http"
)

// Client is the HTTP implementation of Session against the private web
// API. All calls carry the session cookies captured at login.
type Client struct {
	username string
	client   *httpclient.HTTPClient
	baseURL  string
	state    *sessionState
}

// sessionState is the persisted part of an authenticated session.
type sessionState struct {
	Username  string            `json:"username"`
	UserID    string            `json:"user_id"`
	CSRFToken string            `json:"csrf_token"`
	Cookies   map[string]string `json:"cookies"`
}

func newClient(username, baseURL string, httpClient *httpclient.HTTPClient, state *sessionState) *Client {
	return &Client{
		username: username,
		client:   httpClient,
		baseURL:  baseURL,
		state:    state,
	}
}

// Username returns the account the session is logged in as.
func (c *Client) Username() string {
	return c.username
}

// ResolveAccountID maps a username to the platform account id.
func (c *Client) ResolveAccountID(ctx context.Context, username string) (string, error) {
	endpoint := fmt.Sprintf("%s/api/v1/users/web_profile_info/?username=%s", c.baseURL, url.QueryEscape(username))

	var result struct {
		Data struct {
			User struct {
				ID string `json:"id"`
			} `json:"user"`
		} `json:"data"`
	}
	if err := c.getJSON(ctx, endpoint, &result); err != nil {
		return "", fmt.Errorf("resolve account id for %s: %w", username, err)
	}
	if result.Data.User.ID == "" {
		return "", fmt.Errorf("account %s not found", username)
	}
	return result.Data.User.ID, nil
}

// feedItem is the wire shape shared by feed and story listings.
type feedItem struct {
	PK          json.Number `json:"pk"`
	MediaType   int         `json:"media_type"`
	ProductType string      `json:"product_type"`
	TakenAt     int64       `json:"taken_at"`
	Caption     *struct {
		Text string `json:"text"`
	} `json:"caption"`
	ClipsMetadata  map[string]any `json:"clips_metadata"`
	ViewCount      int            `json:"view_count"`
	LikeCount      int            `json:"like_count"`
	CommentCount   int            `json:"comment_count"`
	VideoVersions  []wireVersion  `json:"video_versions"`
	ImageVersions2 struct {
		Candidates []wireVersion `json:"candidates"`
	} `json:"image_versions2"`
}

type wireVersion struct {
	URL string `json:"url"`
}

// ListRecentMedia returns up to count most recent feed items, newest first.
func (c *Client) ListRecentMedia(ctx context.Context, accountID string, count int) ([]Media, error) {
	endpoint := fmt.Sprintf("%s/api/v1/feed/user/%s/?count=%d", c.baseURL, url.PathEscape(accountID), count)

	var result struct {
		Items []feedItem `json:"items"`
	}
	if err := c.getJSON(ctx, endpoint, &result); err != nil {
		return nil, fmt.Errorf("list recent media for %s: %w", accountID, err)
	}

	media := make([]Media, 0, len(result.Items))
	for _, item := range result.Items {
		media = append(media, item.toMedia())
	}
	return media, nil
}

// ListStories returns all currently visible stories, newest first.
func (c *Client) ListStories(ctx context.Context, accountID string) ([]StoryItem, error) {
	endpoint := fmt.Sprintf("%s/api/v1/feed/user/%s/story/", c.baseURL, url.PathEscape(accountID))

	var result struct {
		Reel struct {
			Items []feedItem `json:"items"`
		} `json:"reel"`
	}
	if err := c.getJSON(ctx, endpoint, &result); err != nil {
		return nil, fmt.Errorf("list stories for %s: %w", accountID, err)
	}

	stories := make([]StoryItem, 0, len(result.Reel.Items))
	for _, item := range result.Reel.Items {
		m := item.toMedia()
		stories = append(stories, StoryItem{
			PK:           m.PK,
			VideoURL:     m.VideoURL,
			ImageURL:     m.ImageURL,
			ThumbnailURL: m.ThumbnailURL,
			TakenAt:      m.TakenAt,
			ViewCount:    m.ViewCount,
		})
	}
	return stories, nil
}

func (i feedItem) toMedia() Media {
	m := Media{
		PK:               i.PK.String(),
		MediaKind:        i.MediaType,
		ProductType:      i.ProductType,
		HasClipsMetadata: len(i.ClipsMetadata) > 0,
		TakenAt:          time.Unix(i.TakenAt, 0).UTC(),
		ViewCount:        i.ViewCount,
		LikeCount:        i.LikeCount,
		CommentCount:     i.CommentCount,
	}
	if i.Caption != nil {
		m.Caption = i.Caption.Text
	}
	if len(i.VideoVersions) > 0 {
		m.VideoURL = i.VideoVersions[0].URL
	}
	if len(i.ImageVersions2.Candidates) > 0 {
		m.ImageURL = i.ImageVersions2.Candidates[0].URL
		m.ThumbnailURL = i.ImageVersions2.Candidates[len(i.ImageVersions2.Candidates)-1].URL
	}
	return m
}

// PublishPhoto posts an image to the feed.
func (c *Client) PublishPhoto(ctx context.Context, path, caption string) error {
	uploadID, err := c.uploadMedia(ctx, path, "photo")
	if err != nil {
		return err
	}
	return c.configureMedia(ctx, "/api/v1/media/configure/", uploadID, caption)
}

// PublishVideo posts a video to the feed.
func (c *Client) PublishVideo(ctx context.Context, path, caption string) error {
	uploadID, err := c.uploadMedia(ctx, path, "video")
	if err != nil {
		return err
	}
	return c.configureMedia(ctx, "/api/v1/media/configure_video/", uploadID, caption)
}

// PublishReel posts a short-form clip.
func (c *Client) PublishReel(ctx context.Context, path, caption string) error {
	uploadID, err := c.uploadMedia(ctx, path, "video")
	if err != nil {
		return err
	}
	return c.configureMedia(ctx, "/api/v1/media/configure_to_clips/", uploadID, caption)
}

// PublishStory posts a story item.
func (c *Client) PublishStory(ctx context.Context, path string) error {
	kind := "photo"
	if isVideoPath(path) {
		kind = "video"
	}
	uploadID, err := c.uploadMedia(ctx, path, kind)
	if err != nil {
		return err
	}
	return c.configureMedia(ctx, "/api/v1/media/configure_to_story/", uploadID, "")
}

// uploadMedia streams a local file to the upload endpoint and returns
// the upload id to configure with.
func (c *Client) uploadMedia(ctx context.Context, path, kind string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open media file: %w", err)
	}
	defer file.Close()

	uploadID := strconv.FormatInt(time.Now().UnixMilli(), 10)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("upload_id", uploadID); err != nil {
		return "", err
	}
	if err := writer.WriteField("media_type", kind); err != nil {
		return "", err
	}
	part, err := writer.CreateFormFile("media", filepath.Base(path))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("buffer media file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/rupload_ig%s/%s", c.baseURL, kind, uploadID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	c.decorate(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload media: %w", err)
	}
	defer resp.Body.Close()

	if err := checkResponse(resp); err != nil {
		return "", err
	}
	return uploadID, nil
}

// configureMedia attaches the uploaded media to the account.
func (c *Client) configureMedia(ctx context.Context, configurePath, uploadID, caption string) error {
	payload := map[string]any{
		"upload_id":    uploadID,
		"caption":      caption,
		"source_type":  "library",
		"disable_like": false,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+configurePath, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.decorate(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("configure media: %w", err)
	}
	defer resp.Body.Close()

	return checkResponse(resp)
}

// getJSON performs an authenticated GET and decodes the JSON body.
func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	c.decorate(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return classifyAPIError(resp.StatusCode, string(body))
	}
	return json.Unmarshal(body, out)
}

// decorate attaches session cookies and headers to a request.
func (c *Client) decorate(req *http.Request) {
	if c.state == nil {
		return
	}
	if c.state.CSRFToken != "" {
		req.Header.Set("X-CSRFToken", c.state.CSRFToken)
	}
	if len(c.state.Cookies) > 0 {
		pairs := make([]string, 0, len(c.state.Cookies))
		for name, value := range c.state.Cookies {
			pairs = append(pairs, name+"="+value)
		}
		req.Header.Set("Cookie", strings.Join(pairs, "; "))
	}
}

// checkResponse maps non-OK platform responses onto the error taxonomy.
func checkResponse(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return classifyAPIError(resp.StatusCode, string(body))
}

func isVideoPath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp4", ".mov", ".avi", ".mkv", ".webm", ".m4v":
		return true
	}
	return false
}
