package imaging

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	rigerrors "thoreinstein.com/designcheck/pkg/errors"
)

const (
	// DefaultMaxBytes bounds a single downloaded image.
	DefaultMaxBytes = 20 << 20

	defaultDownloadTimeout = 60 * time.Second
)

// Downloader fetches images over HTTP. GitHub-hosted attachments of private
// repositories need the workflow token, which is only sent to GitHub hosts.
type Downloader struct {
	httpClient  *http.Client
	githubToken string
	maxBytes    int64
	logger      *slog.Logger
}

// DownloaderOption configures a Downloader.
type DownloaderOption func(*Downloader)

// WithHTTPClient sets the HTTP client used for downloads.
func WithHTTPClient(c *http.Client) DownloaderOption {
	return func(d *Downloader) {
		d.httpClient = c
	}
}

// WithGitHubToken sets the token sent to GitHub attachment hosts.
func WithGitHubToken(token string) DownloaderOption {
	return func(d *Downloader) {
		d.githubToken = token
	}
}

// WithMaxBytes overrides DefaultMaxBytes.
func WithMaxBytes(n int64) DownloaderOption {
	return func(d *Downloader) {
		d.maxBytes = n
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) DownloaderOption {
	return func(d *Downloader) {
		d.logger = logger
	}
}

// NewDownloader creates a Downloader.
func NewDownloader(opts ...DownloaderOption) *Downloader {
	d := &Downloader{
		httpClient: &http.Client{Timeout: defaultDownloadTimeout},
		maxBytes:   DefaultMaxBytes,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Download fetches one image.
func (d *Downloader) Download(ctx context.Context, rawURL string) (Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Image{}, rigerrors.Wrapf(err, "invalid image URL %q", rawURL)
	}
	req.Header.Set("Accept", "image/*")
	if d.githubToken != "" && isGitHubHost(req.URL) {
		req.Header.Set("Authorization", "token "+d.githubToken)
	}

	d.logger.Debug("downloading image", "url", rawURL)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return Image{}, rigerrors.Wrapf(err, "failed to download %s", rawURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Image{}, rigerrors.Newf("failed to download %s: HTTP %d", rawURL, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, d.maxBytes+1))
	if err != nil {
		return Image{}, rigerrors.Wrapf(err, "failed to read %s", rawURL)
	}
	if int64(len(data)) > d.maxBytes {
		return Image{}, rigerrors.Newf("image %s exceeds %d bytes", rawURL, d.maxBytes)
	}
	if len(data) == 0 {
		return Image{}, rigerrors.Newf("image %s is empty", rawURL)
	}

	img := New(data, rawURL)
	if ct := resp.Header.Get("Content-Type"); strings.HasPrefix(ct, "image/") {
		img.MediaType = strings.TrimSpace(strings.SplitN(ct, ";", 2)[0])
	}
	return img, nil
}

// DownloadAll fetches every URL, skipping failures. It returns the images in
// input order together with the errors of the failed downloads.
func (d *Downloader) DownloadAll(ctx context.Context, urls []string) ([]Image, []error) {
	var images []Image
	var errs []error
	for _, u := range urls {
		img, err := d.Download(ctx, u)
		if err != nil {
			d.logger.Warn("skipping image", "url", u, "error", err)
			errs = append(errs, err)
			continue
		}
		images = append(images, img)
	}
	return images, errs
}

func isGitHubHost(u *url.URL) bool {
	host := strings.ToLower(u.Hostname())
	return host == "github.com" || strings.HasSuffix(host, ".githubusercontent.com")
}
