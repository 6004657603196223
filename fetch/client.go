// Package fetch is the HTTP side of a download: every page, manifest and segment request goes through a Client so
// that it carries the same Referer and User-Agent and reports failures as media.FetchError.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"golang.org/x/time/rate"

	"github.com/alanbriolat/stream-archiver/media"
)

const (
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) " +
		"Chrome/100.0.4844.84 Safari/537.36"
	DefaultReferer = "https://xhamster.com/"
	DefaultTimeout = 60 * time.Second
)

// Maximum size of a page or manifest body; segments are streamed to disk instead.
const maxTextBody = 16 << 20

type Config struct {
	UserAgent string
	Referer   string
	Timeout   time.Duration
	// RequestsPerSecond limits outbound requests across all workers; 0 means unlimited.
	RequestsPerSecond float64
}

func DefaultConfig() Config {
	return Config{
		UserAgent: DefaultUserAgent,
		Referer:   DefaultReferer,
		Timeout:   DefaultTimeout,
	}
}

type Client struct {
	config  Config
	http    *http.Client
	limiter *rate.Limiter
}

func NewClient(config Config) *Client {
	return NewClientWith(&http.Client{Timeout: config.Timeout}, config)
}

// NewClientWith uses an existing http.Client, e.g. one from httptest.
func NewClientWith(client *http.Client, config Config) *Client {
	c := &Client{config: config, http: client}
	if config.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), 1)
	}
	return c
}

func (c *Client) do(ctx context.Context, url string) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &media.FetchError{URL: url, Err: err}
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &media.FetchError{URL: url, Err: err}
	}
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}
	if c.config.Referer != "" {
		req.Header.Set("Referer", c.config.Referer)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &media.FetchError{URL: url, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &media.FetchError{URL: url, StatusCode: resp.StatusCode}
	}
	return resp, nil
}

// GetText fetches a page or manifest into memory.
func (c *Client) GetText(ctx context.Context, url string) (string, error) {
	resp, err := c.do(ctx, url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTextBody))
	if err != nil {
		return "", &media.FetchError{URL: url, Err: err}
	}
	return string(body), nil
}

// SaveURL streams the response body into path, truncating any existing file, and returns the number of bytes
// written.
func (c *Client) SaveURL(ctx context.Context, url string, path string) (int64, error) {
	resp, err := c.do(ctx, url)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open target file: %w", err)
	}
	n, err := io.Copy(f, resp.Body)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return n, &media.FetchError{URL: url, Err: fmt.Errorf("failed to save stream: %w", err)}
	}
	return n, nil
}
