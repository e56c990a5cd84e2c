package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ppiankov/papercheck/internal/util"
	"github.com/ppiankov/papercheck/internal/worker"
)

// ErrDisallowed is returned when robots.txt forbids fetching a document URL
var ErrDisallowed = errors.New("disallowed by robots.txt")

const maxFetchAttempts = 3

// fetchSleepFunc is overridden in tests
var fetchSleepFunc = time.Sleep

// Fetcher downloads documents given by URL
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	robots     *util.RobotsChecker // nil skips the robots.txt check
	limiter    *worker.Limiter
}

// NewFetcher creates a fetcher. robots and limiter may be nil.
func NewFetcher(client *http.Client, userAgent string, maxBytes int64, robots *util.RobotsChecker, limiter *worker.Limiter) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	fetchClient := *client
	fetchClient.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= 3 {
			return fmt.Errorf("stopped after 3 redirects")
		}
		return nil
	}
	if maxBytes <= 0 {
		maxBytes = 10_000_000
	}
	return &Fetcher{
		httpClient: &fetchClient,
		userAgent:  userAgent,
		maxBytes:   maxBytes,
		robots:     robots,
		limiter:    limiter,
	}
}

// FetchResult is a downloaded document
type FetchResult struct {
	Body        []byte
	ContentType string // Media type without parameters
	Title       string // Best-effort name derived from the URL
	FinalURL    string
}

// Fetch retrieves rawURL once
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/pdf,text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.8")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status: %d %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		contentType = mediaType
	}

	finalURL := resp.Request.URL.String()
	return &FetchResult{
		Body:        body,
		ContentType: contentType,
		Title:       titleFromURL(finalURL),
		FinalURL:    finalURL,
	}, nil
}

// FetchWithRetry checks robots.txt, waits for the host's rate limit and
// fetches rawURL, retrying transient failures with exponential backoff
func (f *Fetcher) FetchWithRetry(ctx context.Context, rawURL string) (*FetchResult, error) {
	var crawlDelay time.Duration
	if f.robots != nil {
		allowed, delay, err := f.robots.CanFetch(ctx, rawURL)
		if err != nil {
			return nil, fmt.Errorf("robots check: %w", err)
		}
		if !allowed {
			return nil, fmt.Errorf("%s: %w", rawURL, ErrDisallowed)
		}
		crawlDelay = delay
	}

	var lastErr error
	for attempt := 0; attempt < maxFetchAttempts; attempt++ {
		if attempt > 0 {
			fetchSleepFunc(time.Duration(1<<(attempt-1)) * time.Second)
		}
		if err := f.limiter.WaitWithDelay(ctx, rawURL, crawlDelay); err != nil {
			return nil, err
		}

		result, err := f.Fetch(ctx, rawURL)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !isRetryableFetchError(err) || ctx.Err() != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

// isRetryableFetchError reports whether a Fetch error is worth another attempt:
// network failures, 429 and 5xx
func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if strings.HasPrefix(msg, "fetch: ") {
		return true
	}
	if rest, ok := strings.CutPrefix(msg, "unexpected status: "); ok {
		return strings.HasPrefix(rest, "429") || strings.HasPrefix(rest, "5")
	}
	return false
}

// titleFromURL derives a readable name from the last path segment
func titleFromURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	path := strings.Trim(parsed.Path, "/")
	if path == "" {
		return parsed.Host
	}

	segments := strings.Split(path, "/")
	last := segments[len(segments)-1]
	if idx := strings.LastIndex(last, "."); idx > 0 {
		last = last[:idx]
	}
	last = strings.ReplaceAll(last, "_", " ")
	last = strings.ReplaceAll(last, "-", " ")
	return last
}
