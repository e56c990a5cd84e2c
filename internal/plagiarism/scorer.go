// Package plagiarism scores how much of a document repeats itself or a
// reference corpus. Strategies are pluggable behind Scorer.
package plagiarism

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/papercheck/internal/logging"
	"github.com/ppiankov/papercheck/internal/model"
	"github.com/ppiankov/papercheck/internal/worker"
)

// ErrUnavailable is returned when a scorer cannot produce a score
var ErrUnavailable = errors.New("plagiarism scorer unavailable")

// Scorer computes a similarity score for a text
type Scorer interface {
	Name() string
	Score(ctx context.Context, text string) (model.PlagiarismResult, error)
}

// NewScorerFromConfig selects a strategy: remote service, then SQLite corpus,
// then the offline shingle heuristic. A corpus that cannot be opened is an error.
func NewScorerFromConfig(cfg model.PlagiarismConfig, client *http.Client, limiter *worker.Limiter, userAgent string) (Scorer, error) {
	switch {
	case cfg.ServiceURL != "":
		return NewRemoteScorer(cfg.ServiceURL, client, limiter, userAgent), nil
	case cfg.CorpusPath != "":
		corpus, err := OpenCorpus(cfg.CorpusPath)
		if err != nil {
			return nil, fmt.Errorf("open plagiarism corpus: %w", err)
		}
		return NewCorpusScorer(corpus, cfg.ShingleSize, cfg.MinOverlap), nil
	}
	return NewShingleScorer(cfg.ShingleSize), nil
}

// Checker runs a scorer and never fails: any error yields the safe default
type Checker struct {
	scorer Scorer
	logger *zap.Logger
}

// NewChecker wraps scorer. A nil scorer means the shingle heuristic.
func NewChecker(scorer Scorer, logger *zap.Logger) *Checker {
	if scorer == nil {
		scorer = NewShingleScorer(DefaultShingleSize)
	}
	return &Checker{
		scorer: scorer,
		logger: logging.OrNop(logger).With(zap.String("component", "plagiarism"), zap.String("scorer", scorer.Name())),
	}
}

// Check scores text, returning {0, []} on empty input, error or panic
func (c *Checker) Check(ctx context.Context, text string) (result model.PlagiarismResult) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn("plagiarism scorer panicked", zap.Any("panic", r))
			result = model.SafePlagiarism()
		}
	}()

	if strings.TrimSpace(text) == "" {
		return model.SafePlagiarism()
	}

	result, err := c.scorer.Score(ctx, text)
	if err != nil {
		c.logger.Warn("plagiarism scoring failed", zap.Error(err))
		return model.SafePlagiarism()
	}
	if result.MatchingSources == nil {
		result.MatchingSources = []string{}
	}

	c.logger.Debug("plagiarism scored", zap.Float64("score", result.Score), zap.Int("sources", len(result.MatchingSources)))
	return result
}

// Close releases the scorer's resources when it holds any
func (c *Checker) Close() error {
	if closer, ok := c.scorer.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
