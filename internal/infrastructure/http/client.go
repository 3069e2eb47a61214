package infrastructure

import (
	"crypto/tls"
	"net/http"
	"time"

	"github.com/SpaciousAbhi/Web-ig-auto/config"
)

// HTTPClient provides a shared HTTP client with connection pooling,
// used for both platform API calls and media downloads.
type HTTPClient struct {
	client    *http.Client
	userAgent string
}

// NewHTTPClient creates a new pooled HTTP client for I/O bound operations
func NewHTTPClient(cfg *config.Config) *HTTPClient {
	transport := &http.Transport{
		MaxIdleConns:          cfg.MaxIdleConns,
		MaxIdleConnsPerHost:   cfg.MaxConnsPerHost,
		MaxConnsPerHost:       cfg.MaxConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: false,
		},
		DisableKeepAlives: false,
		ForceAttemptHTTP2: true,
		WriteBufferSize:   64 * 1024,
		ReadBufferSize:    64 * 1024,
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   cfg.HTTPClientTimeout,
	}

	return &HTTPClient{
		client:    client,
		userAgent: cfg.InstagramUserAgent,
	}
}

// Get performs a GET request with the configured user agent.
func (c *HTTPClient) Get(url string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}

// Do performs a custom HTTP request
func (c *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" && c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return c.client.Do(req)
}

// GetClient returns the underlying HTTP client
func (c *HTTPClient) GetClient() *http.Client {
	return c.client
}
