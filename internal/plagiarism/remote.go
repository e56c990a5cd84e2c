package plagiarism

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ppiankov/papercheck/internal/httputil"
	"github.com/ppiankov/papercheck/internal/model"
	"github.com/ppiankov/papercheck/internal/normalize"
	"github.com/ppiankov/papercheck/internal/worker"
)

// RemoteScorer delegates scoring to an external similarity service.
// The service receives {"text": ...} and may answer with a record
// ({"plagiarism_score": 0.3, "matching_sources": [...]}) or a bare percentage.
type RemoteScorer struct {
	url       string
	client    *http.Client
	limiter   *worker.Limiter
	userAgent string
}

// NewRemoteScorer creates a scorer posting to serviceURL
func NewRemoteScorer(serviceURL string, client *http.Client, limiter *worker.Limiter, userAgent string) *RemoteScorer {
	if client == nil {
		client = http.DefaultClient
	}
	return &RemoteScorer{url: serviceURL, client: client, limiter: limiter, userAgent: userAgent}
}

// Name returns the scorer identifier
func (s *RemoteScorer) Name() string { return "remote" }

// Score posts the text and normalizes whatever shape the service returns
func (s *RemoteScorer) Score(ctx context.Context, text string) (model.PlagiarismResult, error) {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return model.PlagiarismResult{}, fmt.Errorf("encode request: %w", err)
	}

	if err := s.limiter.Wait(ctx, s.url); err != nil {
		return model.PlagiarismResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return model.PlagiarismResult{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, s.client, req, 0)
	if err != nil {
		return model.PlagiarismResult{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return model.PlagiarismResult{}, fmt.Errorf("%w: service returned HTTP %d", ErrUnavailable, resp.StatusCode)
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return model.PlagiarismResult{}, fmt.Errorf("parsing similarity response: %w", err)
	}

	entry := normalize.Plagiarism(raw)
	return model.PlagiarismResult{Score: entry.Score, MatchingSources: entry.MatchingSources}, nil
}
