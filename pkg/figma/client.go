// Package figma resolves design links to rendered frame images.
package figma

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"thoreinstein.com/designcheck/pkg/config"
	rigerrors "thoreinstein.com/designcheck/pkg/errors"
	"thoreinstein.com/designcheck/pkg/imaging"
	"thoreinstein.com/designcheck/pkg/links"
)

const (
	defaultBaseURL   = "https://api.figma.com"
	defaultTimeout   = 60 * time.Second
	defaultMaxFrames = 5
	memoSize         = 128
)

// Resolver turns a design link into one or more images.
type Resolver interface {
	ResolveDesignURL(ctx context.Context, rawURL string) ([]imaging.Image, error)
}

// Compile-time interface check
var _ Resolver = (*Client)(nil)

// Client talks to the Figma REST API. Every request goes through do, which
// retries rate-limited responses and nothing else.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	patterns   links.Patterns
	maxFrames  int
	scale      float64
	mock       bool

	retry rigerrors.RetryConfig
	cache *Cache
	memo  *lru.Cache[string, []imaging.Image]

	logger *slog.Logger
}

// NewClient creates a Figma client from configuration.
func NewClient(cfg *config.FigmaConfig, logger *slog.Logger) (*Client, error) {
	if cfg.Token == "" && !cfg.Mock {
		return nil, rigerrors.NewConfigError("figma.token", "Figma token is required (set FIGMA_ACCESS_TOKEN)")
	}

	if logger == nil {
		logger = slog.Default()
	}

	memo, err := lru.New[string, []imaging.Image](memoSize)
	if err != nil {
		return nil, rigerrors.Wrap(err, "failed to create design memo")
	}

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	maxFrames := cfg.MaxFrames
	if maxFrames <= 0 {
		maxFrames = defaultMaxFrames
	}
	scale := cfg.Scale
	if scale <= 0 {
		scale = 1
	}

	return &Client{
		baseURL:    baseURL,
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: defaultTimeout},
		patterns:   links.Patterns{DesignHosts: cfg.Hosts},
		maxFrames:  maxFrames,
		scale:      scale,
		mock:       cfg.Mock,
		retry:      rigerrors.RateLimitRetryConfig(),
		cache:      NewCache(cfg.CacheDir, cfg.CacheTTL),
		memo:       memo,
		logger:     logger,
	}, nil
}

// SetHTTPClient replaces the HTTP client (used by tests).
func (c *Client) SetHTTPClient(hc *http.Client) {
	c.httpClient = hc
}

// ResolveDesignURL renders the frames a design link points at. A link with
// a node-id yields that node; a link to a whole file yields the first
// frames of its first page. Each URL is resolved at most once per client.
func (c *Client) ResolveDesignURL(ctx context.Context, rawURL string) ([]imaging.Image, error) {
	d, ok := c.patterns.ParseDesignURL(rawURL)
	if !ok {
		return nil, rigerrors.NewFigmaError("Resolve", "", "not a design URL: "+rawURL)
	}
	key := d.Canonical()

	if images, ok := c.memo.Get(key); ok {
		c.logDebug("design memo hit", "url", key)
		return images, nil
	}

	var images []imaging.Image
	var err error
	if c.mock {
		images = c.mockImages(d)
	} else {
		images, err = c.resolve(ctx, d)
		if err != nil {
			return nil, err
		}
	}

	c.memo.Add(key, images)
	return images, nil
}

func (c *Client) mockImages(d links.DesignURL) []imaging.Image {
	label := "mock design " + d.FileKey
	if d.NodeID != "" {
		label += " " + d.NodeID
	}
	img := imaging.Placeholder(800, 600, label)
	img.SourceURL = d.Canonical()
	c.logDebug("using mock design image", "url", img.SourceURL)
	return []imaging.Image{img}
}

func (c *Client) resolve(ctx context.Context, d links.DesignURL) ([]imaging.Image, error) {
	ids := []string{d.NodeID}
	if d.NodeID == "" {
		var err error
		ids, err = c.firstPageFrames(ctx, d.FileKey)
		if err != nil {
			return nil, err
		}
	}

	imageURLs, err := c.renderNodes(ctx, d.FileKey, ids)
	if err != nil {
		return nil, err
	}

	var images []imaging.Image
	for _, id := range ids {
		src := imageURLs[id]
		if src == "" {
			c.logger.Warn("figma returned no render for node", "file", d.FileKey, "node", id)
			continue
		}
		data, err := c.do(ctx, "Download", d.FileKey, src, false)
		if err != nil {
			return nil, err
		}
		img := imaging.New(data, d.Canonical())
		images = append(images, img)
	}

	if len(images) == 0 {
		return nil, rigerrors.NewFigmaError("Resolve", d.FileKey, "no renderable frames")
	}

	c.logDebug("resolved design", "url", d.Canonical(), "images", len(images))
	return images, nil
}

type fileResponse struct {
	Document struct {
		Children []struct {
			ID       string `json:"id"`
			Type     string `json:"type"`
			Children []struct {
				ID   string `json:"id"`
				Type string `json:"type"`
			} `json:"children"`
		} `json:"children"`
	} `json:"document"`
}

var frameTypes = map[string]bool{
	"FRAME":         true,
	"COMPONENT":     true,
	"COMPONENT_SET": true,
	"SECTION":       true,
	"INSTANCE":      true,
}

// firstPageFrames returns up to maxFrames top-level frame ids of the first page.
// GET /v1/files/{key}?depth=2
func (c *Client) firstPageFrames(ctx context.Context, fileKey string) ([]string, error) {
	endpoint := fmt.Sprintf("%s/v1/files/%s?depth=2", c.baseURL, url.PathEscape(fileKey))

	body, err := c.do(ctx, "GetFile", fileKey, endpoint, true)
	if err != nil {
		return nil, err
	}

	var resp fileResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, rigerrors.NewFigmaErrorWithCause("GetFile", fileKey, "failed to parse file response", err)
	}
	if len(resp.Document.Children) == 0 {
		return nil, rigerrors.NewFigmaError("GetFile", fileKey, "file has no pages")
	}

	var ids []string
	for _, child := range resp.Document.Children[0].Children {
		if !frameTypes[child.Type] {
			continue
		}
		ids = append(ids, child.ID)
		if len(ids) == c.maxFrames {
			break
		}
	}
	if len(ids) == 0 {
		return nil, rigerrors.NewFigmaError("GetFile", fileKey, "first page has no frames")
	}
	return ids, nil
}

type imagesResponse struct {
	Err    *string            `json:"err"`
	Images map[string]*string `json:"images"`
}

// renderNodes asks Figma to render nodes and returns node id to image URL.
// GET /v1/images/{key}?ids=...&format=png&scale=...
func (c *Client) renderNodes(ctx context.Context, fileKey string, ids []string) (map[string]string, error) {
	q := url.Values{}
	q.Set("ids", strings.Join(ids, ","))
	q.Set("format", "png")
	q.Set("scale", strconv.FormatFloat(c.scale, 'f', -1, 64))
	endpoint := fmt.Sprintf("%s/v1/images/%s?%s", c.baseURL, url.PathEscape(fileKey), q.Encode())

	body, err := c.do(ctx, "GetImages", fileKey, endpoint, true)
	if err != nil {
		return nil, err
	}

	var resp imagesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, rigerrors.NewFigmaErrorWithCause("GetImages", fileKey, "failed to parse images response", err)
	}
	if resp.Err != nil && *resp.Err != "" {
		return nil, rigerrors.NewFigmaError("GetImages", fileKey, *resp.Err)
	}

	result := make(map[string]string, len(resp.Images))
	for id, u := range resp.Images {
		if u != nil {
			result[id] = *u
		}
	}
	return result, nil
}

// do performs a GET through the disk cache and the rate-limit retry policy.
// Only successful bodies are cached.
func (c *Client) do(ctx context.Context, op, fileKey, endpoint string, authenticated bool) ([]byte, error) {
	if body, ok := c.cache.Get(endpoint); ok {
		c.logDebug("figma cache hit", "op", op, "file", fileKey)
		return body, nil
	}

	body, err := rigerrors.RetryWithResult(ctx, c.retry, func() ([]byte, error) {
		return c.doOnce(ctx, op, fileKey, endpoint, authenticated)
	})
	if err != nil {
		return nil, err
	}

	if err := c.cache.Put(endpoint, body); err != nil {
		c.logger.Warn("failed to write figma cache", "error", err)
	}
	return body, nil
}

func (c *Client) doOnce(ctx context.Context, op, fileKey, endpoint string, authenticated bool) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, rigerrors.NewFigmaErrorWithCause(op, fileKey, "failed to create request", err)
	}
	if authenticated {
		req.Header.Set("X-Figma-Token", c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, rigerrors.NewFigmaErrorWithCause(op, fileKey, "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, rigerrors.NewFigmaErrorWithCause(op, fileKey, "failed to read response body", err)
	}

	if resp.StatusCode == http.StatusOK {
		return body, nil
	}

	figmaErr := rigerrors.NewFigmaErrorWithStatus(op, fileKey, resp.StatusCode, errorMessage(resp.StatusCode, body))
	if resp.StatusCode == http.StatusTooManyRequests {
		figmaErr.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
		c.logger.Warn("figma rate limited", "op", op, "file", fileKey, "retry_after", figmaErr.RetryAfter)
	}
	return nil, figmaErr
}

// errorMessage extracts Figma's {"status":..,"err":".."} message when present.
func errorMessage(status int, body []byte) string {
	var e struct {
		Err     string `json:"err"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &e); err == nil {
		if e.Err != "" {
			return e.Err
		}
		if e.Message != "" {
			return e.Message
		}
	}
	return http.StatusText(status)
}

// parseRetryAfter extracts the delay from a Retry-After header.
// Returns the duration if present and valid, otherwise returns 0.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(header); err == nil {
		return time.Duration(seconds) * time.Second
	}

	if t, err := time.Parse(time.RFC1123, header); err == nil {
		delay := time.Until(t)
		if delay > 0 {
			return delay
		}
	}

	return 0
}

// logDebug logs a debug message if a logger is configured.
func (c *Client) logDebug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}
