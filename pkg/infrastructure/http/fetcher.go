package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var (
	// ErrUnexpectedStatus is returned for non-2xx responses
	ErrUnexpectedStatus = errors.New("unexpected status code")
	// ErrResponseTooLarge is returned once a body exceeds MaxResponseSize
	ErrResponseTooLarge = errors.New("response exceeds maximum size")
)

// Fetcher implements service.SourceOpener for http(s) URLs, file URLs and local paths
type Fetcher struct {
	client *http.Client
	config Config
	logger *slog.Logger
}

// Config holds fetcher configuration
type Config struct {
	Timeout time.Duration
	// MaxResponseSize caps a single body in bytes; 0 disables the cap
	MaxResponseSize int64
	UserAgent       string
	// Retries is the number of extra attempts after a transport error, 429 or 5xx
	Retries        int
	BackoffInitial time.Duration
	BackoffMax     time.Duration
	Logger         *slog.Logger
}

// NewFetcher creates a new fetcher
func NewFetcher(config Config) *Fetcher {
	if config.BackoffInitial <= 0 {
		config.BackoffInitial = 500 * time.Millisecond
	}
	if config.BackoffMax <= 0 {
		config.BackoffMax = 10 * time.Second
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Fetcher{
		client: &http.Client{
			Timeout: config.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		config: config,
		logger: logger,
	}
}

// Open returns a reader for uri. http and https are downloaded, file URLs and
// anything without a scheme are read from disk.
func (f *Fetcher) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	if !strings.Contains(uri, "://") {
		return f.openFile(uri)
	}

	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("invalid source uri %q: %w", uri, err)
	}
	switch u.Scheme {
	case "http", "https":
		return f.openHTTP(ctx, uri)
	case "file":
		return f.openFile(filepath.FromSlash(u.Path))
	}
	return nil, fmt.Errorf("unsupported scheme %q in %s", u.Scheme, uri)
}

func (f *Fetcher) openFile(path string) (io.ReadCloser, error) {
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return f.limit(file), nil
}

func (f *Fetcher) openHTTP(ctx context.Context, uri string) (io.ReadCloser, error) {
	var lastErr error
	for attempt := 0; attempt <= f.config.Retries; attempt++ {
		if attempt > 0 {
			backoff := calcBackoff(f.config.BackoffInitial, f.config.BackoffMax, attempt)
			f.logger.Warn("retrying source", "uri", uri, "attempt", attempt, "backoff", backoff, "error", lastErr)

			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, fmt.Errorf("failed to fetch %s: %w", uri, ctx.Err())
			case <-timer.C:
			}
		}

		body, retry, err := f.get(ctx, uri)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retry {
			break
		}
	}
	return nil, fmt.Errorf("failed to fetch %s: %w", uri, lastErr)
}

// get performs one request. retry reports whether a failure is worth another attempt.
func (f *Fetcher) get(ctx context.Context, uri string) (body io.ReadCloser, retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, false, err
	}
	if f.config.UserAgent != "" {
		req.Header.Set("User-Agent", f.config.UserAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		retry = resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return nil, retry, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	return f.limit(resp.Body), false, nil
}

func (f *Fetcher) limit(rc io.ReadCloser) io.ReadCloser {
	if f.config.MaxResponseSize <= 0 {
		return rc
	}
	return &limitedBody{ReadCloser: rc, remaining: f.config.MaxResponseSize}
}

// limitedBody fails with ErrResponseTooLarge instead of truncating silently.
type limitedBody struct {
	io.ReadCloser
	remaining int64
}

func (b *limitedBody) Read(p []byte) (int, error) {
	if b.remaining <= 0 {
		var probe [1]byte
		n, err := b.ReadCloser.Read(probe[:])
		if n > 0 {
			return 0, ErrResponseTooLarge
		}
		return 0, err
	}

	if int64(len(p)) > b.remaining {
		p = p[:b.remaining]
	}
	n, err := b.ReadCloser.Read(p)
	b.remaining -= int64(n)
	return n, err
}

// calcBackoff doubles initial per failure up to max, with +-20% jitter.
func calcBackoff(initial, max time.Duration, failures int) time.Duration {
	pow := math.Pow(2, float64(failures-1))
	backoff := time.Duration(float64(initial) * pow)
	if backoff > max {
		backoff = max
	}

	jitterFrac := 0.2
	jitter := time.Duration(rand.Float64()*2*jitterFrac*float64(backoff)) -
		time.Duration(jitterFrac*float64(backoff))

	return backoff + jitter
}
