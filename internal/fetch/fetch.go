// Package fetch retrieves the raw content behind a theme resource locator,
// either a local path / file:// URL or an http(s):// URL.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"

	"golang.org/x/time/rate"

	"github.com/jmylchreest/themectl/internal/httpclient"
)

// URL scheme constants.
const (
	SchemeHTTP  = "http"
	SchemeHTTPS = "https"
	SchemeFile  = "file"
)

// IsRemote reports whether the locator is fetched over the network.
func IsRemote(locator string) bool {
	switch Scheme(locator) {
	case SchemeHTTP, SchemeHTTPS:
		return true
	default:
		return false
	}
}

// Scheme returns the lower-cased URL scheme of the locator, or "" for plain
// paths. Single-letter schemes are treated as Windows drive letters.
func Scheme(locator string) string {
	i := strings.Index(locator, "://")
	if i <= 1 {
		return ""
	}
	u, err := url.Parse(locator)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Scheme)
}

// LocalPath returns the filesystem path for a local locator.
func LocalPath(locator string) (string, error) {
	if Scheme(locator) != SchemeFile {
		return locator, nil
	}
	u, err := url.Parse(locator)
	if err != nil {
		return "", fmt.Errorf("invalid file URL: %w", err)
	}
	if u.Path == "" {
		return "", fmt.Errorf("empty path in file URL: %s", locator)
	}
	return u.Path, nil
}

// Options configures a Fetcher.
type Options struct {
	HTTP      httpclient.Config
	RateLimit float64 // Remote requests per second; 0 disables limiting
	Burst     int
	Logger    *slog.Logger
}

// Fetcher reads local files and downloads remote resources. It does not cache;
// each call performs exactly one read or one request.
type Fetcher struct {
	client  *httpclient.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// New creates a Fetcher.
func New(opts Options) *Fetcher {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.HTTP.Logger == nil {
		opts.HTTP.Logger = logger
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RateLimit > 0 {
		burst := max(opts.Burst, 1)
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	return &Fetcher{
		client:  httpclient.New(opts.HTTP),
		limiter: limiter,
		logger:  logger,
	}
}

// Fetch returns the raw content behind locator. Errors from the filesystem,
// the network or ctx are returned wrapped but otherwise uninterpreted.
func (f *Fetcher) Fetch(ctx context.Context, locator string) ([]byte, error) {
	switch scheme := Scheme(locator); scheme {
	case "", SchemeFile:
		path, err := LocalPath(locator)
		if err != nil {
			return nil, err
		}
		return readFile(ctx, path)
	case SchemeHTTP, SchemeHTTPS:
		return f.fetchRemote(ctx, locator)
	default:
		return nil, fmt.Errorf("unsupported URL scheme %q: %s", scheme, locator)
	}
}

// fetchRemote performs a single GET request.
func (f *Fetcher) fetchRemote(ctx context.Context, locator string) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	resp, err := f.client.Get(ctx, locator)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", locator, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: locator, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", locator, err)
	}

	f.logger.Debug("fetched remote resource", "url", locator, "bytes", len(data))
	return data, nil
}

// StatusError is returned when a remote resource answers with a non-200 status.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d fetching %s", e.StatusCode, e.URL)
}

// readFile reads path, checking ctx between chunks.
func readFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	return io.ReadAll(&contextReader{ctx: ctx, r: file})
}

// contextReader stops reading once its context is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
