// Package httpapi downloads AniDB documents: the anime title dump and the
// per-series anime documents of the AniDB HTTP API.
package httpapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	"shamal/internal/anidb/series"
)

const (
	defaultTimeout = 30 * time.Second
	// maxDocumentBytes bounds a single download after decompression.
	maxDocumentBytes = 64 << 20
	protocolVersion  = "1"
)

// StatusError reports a non-200 response.
type StatusError struct {
	URL        string
	StatusCode int
	Latency    time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("anidb request %s returned %d (latency=%v)", e.URL, e.StatusCode, e.Latency)
}

// APIError reports an AniDB <error> payload delivered with HTTP 200.
type APIError struct {
	URL     string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("anidb request %s refused: %s", e.URL, e.Message)
}

// Client fetches AniDB documents.
type Client struct {
	titlesURL     string
	apiURL        string
	clientName    string
	clientVersion int
	userAgent     string
	httpClient    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		if ua := strings.TrimSpace(userAgent); ua != "" {
			c.userAgent = ua
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// New creates a client. clientName and clientVersion identify the registered
// AniDB HTTP API client.
func New(titlesURL, apiURL, clientName string, clientVersion int, opts ...Option) (*Client, error) {
	titlesURL = strings.TrimSpace(titlesURL)
	if titlesURL == "" {
		return nil, errors.New("anidb titles url required")
	}
	apiURL = strings.TrimSpace(apiURL)
	if apiURL == "" {
		return nil, errors.New("anidb api url required")
	}
	clientName = strings.TrimSpace(clientName)
	if clientName == "" {
		return nil, errors.New("anidb client name required")
	}
	c := &Client{
		titlesURL:     titlesURL,
		apiURL:        apiURL,
		clientName:    clientName,
		clientVersion: clientVersion,
		userAgent:     "shamal",
		httpClient:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SeriesURL builds the HTTP API URL of the anime document for seriesID.
func (c *Client) SeriesURL(seriesID string) (string, error) {
	endpoint, err := url.Parse(c.apiURL)
	if err != nil {
		return "", fmt.Errorf("parse anidb api url: %w", err)
	}
	params := endpoint.Query()
	params.Set("request", "anime")
	params.Set("client", c.clientName)
	params.Set("clientver", strconv.Itoa(c.clientVersion))
	params.Set("protover", protocolVersion)
	params.Set("aid", strings.TrimSpace(seriesID))
	endpoint.RawQuery = params.Encode()
	return endpoint.String(), nil
}

// FetchTitles downloads the anime title dump, decompressed.
func (c *Client) FetchTitles(ctx context.Context) ([]byte, error) {
	return c.Fetch(ctx, c.titlesURL)
}

// FetchSeries downloads the anime document of seriesID.
func (c *Client) FetchSeries(ctx context.Context, seriesID string) ([]byte, error) {
	if _, err := series.CacheKey(seriesID); err != nil {
		return nil, err
	}
	endpoint, err := c.SeriesURL(seriesID)
	if err != nil {
		return nil, err
	}
	return c.Fetch(ctx, endpoint)
}

// Fetch performs a GET and returns the decompressed body. Gzip bodies are
// decoded whether or not the server labels them. An AniDB <error> payload is
// returned as *APIError so it never reaches the cache.
func (c *Client) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept-Encoding", "gzip")

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return nil, fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: rawURL, StatusCode: resp.StatusCode, Latency: latency}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	body, err = decompress(body)
	if err != nil {
		return nil, err
	}
	if len(body) > maxDocumentBytes {
		return nil, fmt.Errorf("anidb response exceeds %d bytes", maxDocumentBytes)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, fmt.Errorf("anidb request %s returned an empty body", rawURL)
	}
	if msg, ok := series.ErrorMessage(body); ok {
		return nil, &APIError{URL: rawURL, Message: msg}
	}
	return body, nil
}

func decompress(body []byte) ([]byte, error) {
	if len(body) < 2 || body[0] != 0x1f || body[1] != 0x8b {
		return body, nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("open gzip body: %w", err)
	}
	defer zr.Close()
	out, err := io.ReadAll(io.LimitReader(zr, maxDocumentBytes+1))
	if err != nil {
		return nil, fmt.Errorf("decompress body: %w", err)
	}
	return out, nil
}
