package citation

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ppiankov/papercheck/internal/worker"
)

const linkMaxRetries = 3

// linkSleepFunc is the sleep function used between retries (injectable for tests)
var linkSleepFunc = time.Sleep

// LinkStatus is the outcome of checking one reference URL
type LinkStatus struct {
	URL         string
	StatusCode  int
	Accessible  bool
	Dead        bool
	RedirectURL string
	Error       string
}

// LinkChecker checks reference URLs concurrently
type LinkChecker struct {
	httpClient *http.Client
	limiter    *worker.Limiter
	userAgent  string
	maxWorkers int
}

// NewLinkChecker creates a link checker. The client should already carry
// proxy settings; redirects are capped at three.
func NewLinkChecker(client *http.Client, limiter *worker.Limiter, userAgent string, maxWorkers int) *LinkChecker {
	if maxWorkers <= 0 {
		maxWorkers = 4
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	capped := *client
	capped.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= 3 {
			return fmt.Errorf("stopped after 3 redirects")
		}
		return nil
	}

	return &LinkChecker{
		httpClient: &capped,
		limiter:    limiter,
		userAgent:  userAgent,
		maxWorkers: maxWorkers,
	}
}

// Check requests every URL and returns the statuses keyed by URL
func (l *LinkChecker) Check(ctx context.Context, urls []string) map[string]LinkStatus {
	results := make(map[string]LinkStatus, len(urls))
	var mu sync.Mutex
	var wg sync.WaitGroup

	semaphore := make(chan struct{}, l.maxWorkers)

	for _, u := range urls {
		wg.Add(1)
		go func(rawURL string) {
			defer wg.Done()

			var status LinkStatus
			select {
			case <-ctx.Done():
				status = LinkStatus{URL: rawURL, Error: "context cancelled"}
			case semaphore <- struct{}{}:
				status = l.checkWithRetry(ctx, rawURL)
				<-semaphore
			}

			mu.Lock()
			results[rawURL] = status
			mu.Unlock()
		}(u)
	}

	wg.Wait()
	return results
}

func (l *LinkChecker) checkOnce(ctx context.Context, rawURL string) LinkStatus {
	result := LinkStatus{URL: rawURL}

	if err := l.limiter.Wait(ctx, rawURL); err != nil {
		result.Error = err.Error()
		return result
	}

	resp, err := l.do(ctx, http.MethodHead, rawURL)
	if err == nil && (resp.StatusCode == http.StatusMethodNotAllowed || resp.StatusCode == http.StatusNotImplemented) {
		_ = resp.Body.Close()
		resp, err = l.do(ctx, http.MethodGet, rawURL)
	}
	if err != nil {
		result.Error = fmt.Sprintf("request failed: %v", err)
		result.Dead = true
		return result
	}
	defer func() { _ = resp.Body.Close() }()

	result.StatusCode = resp.StatusCode
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 400:
		result.Accessible = true
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		result.Dead = true
	}

	if final := resp.Request.URL.String(); final != rawURL {
		result.RedirectURL = final
	}
	return result
}

func (l *LinkChecker) do(ctx context.Context, method, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, err
	}
	if l.userAgent != "" {
		req.Header.Set("User-Agent", l.userAgent)
	}
	return l.httpClient.Do(req)
}

// checkWithRetry retries transient failures with exponential backoff
func (l *LinkChecker) checkWithRetry(ctx context.Context, rawURL string) LinkStatus {
	var result LinkStatus
	for attempt := 0; attempt < linkMaxRetries; attempt++ {
		result = l.checkOnce(ctx, rawURL)
		if !isRetryableLink(result) || ctx.Err() != nil {
			return result
		}
		if attempt < linkMaxRetries-1 {
			linkSleepFunc(time.Duration(1<<uint(attempt)) * time.Second)
		}
	}
	return result
}

// isRetryableLink reports 5xx, 429 and transient network errors
func isRetryableLink(result LinkStatus) bool {
	if result.StatusCode >= 500 || result.StatusCode == http.StatusTooManyRequests {
		return true
	}
	s := strings.ToLower(result.Error)
	return strings.Contains(s, "timeout") ||
		strings.Contains(s, "connection refused") ||
		strings.Contains(s, "connection reset")
}
