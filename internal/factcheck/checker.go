// Package factcheck labels extracted claims with verdicts from a published
// fact-check search service.
package factcheck

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/papercheck/internal/cache"
	"github.com/ppiankov/papercheck/internal/logging"
	"github.com/ppiankov/papercheck/internal/model"
)

// ErrNotConfigured is returned when no fact-check credential is present
var ErrNotConfigured = errors.New("fact-check service not configured")

// NoteNotConfigured explains the verdict of every claim when checking is off
const NoteNotConfigured = "Fact-check not configured (no service account or API key)"

// Searcher finds published reviews of a claim
type Searcher interface {
	Search(ctx context.Context, claim string) ([]model.Review, error)
}

// Options carries the collaborators a Checker needs besides its config section
type Options struct {
	Searcher Searcher // nil when not configured
	Cache    cache.Cache
	CacheTTL time.Duration
	Workers  int
	Logger   *zap.Logger
}

// Checker fact-checks claims one lookup per claim
type Checker struct {
	searcher  Searcher
	cache     cache.Cache
	cacheTTL  time.Duration
	timeout   time.Duration
	maxClaims int
	workers   int
	logger    *zap.Logger
}

// NewChecker creates a checker
func NewChecker(cfg model.FactCheckConfig, opts Options) *Checker {
	c := &Checker{
		searcher:  opts.Searcher,
		cache:     opts.Cache,
		cacheTTL:  opts.CacheTTL,
		timeout:   cfg.LookupTimeout,
		maxClaims: cfg.MaxClaims,
		workers:   opts.Workers,
		logger:    logging.OrNop(opts.Logger).With(zap.String("component", "fact_checks")),
	}
	if c.timeout <= 0 {
		c.timeout = 10 * time.Second
	}
	if c.maxClaims <= 0 {
		c.maxClaims = 5
	}
	if c.workers <= 0 {
		c.workers = 4
	}
	return c
}

// Configured reports whether claims will actually be looked up
func (c *Checker) Configured() bool {
	return c.searcher != nil
}

// CheckClaims returns one result per claim (at most maxClaims), in claim order.
// A failed lookup marks only its own claim api_error.
func (c *Checker) CheckClaims(ctx context.Context, claims []model.Claim) []model.FactCheckResult {
	if len(claims) > c.maxClaims {
		claims = claims[:c.maxClaims]
	}
	results := make([]model.FactCheckResult, len(claims))

	if c.searcher == nil {
		for i, claim := range claims {
			results[i] = model.FactCheckResult{Claim: claim, Verdict: model.VerdictNoVerdict, Note: NoteNotConfigured}
		}
		return results
	}

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, c.workers)

	for i, claim := range claims {
		wg.Add(1)
		go func(idx int, cl model.Claim) {
			defer wg.Done()

			select {
			case <-ctx.Done():
				results[idx] = apiError(cl, ctx.Err())
				return
			case semaphore <- struct{}{}:
			}
			defer func() { <-semaphore }()
			if err := ctx.Err(); err != nil {
				results[idx] = apiError(cl, err)
				return
			}

			results[idx] = c.checkOne(ctx, cl)
		}(i, claim)
	}

	wg.Wait()
	return results
}

func (c *Checker) checkOne(ctx context.Context, claim model.Claim) (result model.FactCheckResult) {
	defer func() {
		if r := recover(); r != nil {
			result = apiError(claim, fmt.Errorf("lookup panicked: %v", r))
		}
	}()

	key := cache.CacheKey("factcheck", claim.Text)
	var reviews []model.Review
	if !cache.GetJSON(c.cache, key, &reviews) {
		lookupCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		var err error
		reviews, err = c.searcher.Search(lookupCtx, claim.Text)
		if err != nil {
			c.logger.Warn("fact check lookup failed", zap.String("claim", claim.Text), zap.Error(err))
			return apiError(claim, err)
		}
		if err := cache.SetJSON(c.cache, key, reviews, c.cacheTTL); err != nil {
			c.logger.Debug("cache write failed", zap.Error(err))
		}
	}

	result = model.FactCheckResult{Claim: claim, Verdict: Verdict(reviews), Reviews: reviews}
	if len(reviews) == 0 {
		result.Note = "No published fact checks found"
	}
	return result
}

func apiError(claim model.Claim, err error) model.FactCheckResult {
	return model.FactCheckResult{Claim: claim, Verdict: model.VerdictAPIError, Note: err.Error()}
}

var (
	contradictingWords = []string{"false", "incorrect", "misleading", "untrue", "not true", "pants on fire", "fake", "wrong", "inaccurate"}
	supportingWords    = []string{"true", "correct", "accurate", "verified"}
)

// Verdict reduces review ratings to a verdict. Each rating counts as
// contradicting if it contains a contradicting word (checked first, so
// "mostly false" and "not true" never count as support), else supporting if
// it contains a supporting word. The majority wins; ties and empty sets
// have no verdict.
func Verdict(reviews []model.Review) model.Verdict {
	var support, contradict int
	for _, r := range reviews {
		rating := strings.ToLower(r.Rating)
		switch {
		case containsAny(rating, contradictingWords):
			contradict++
		case containsAny(rating, supportingWords):
			support++
		}
	}

	switch {
	case support > contradict:
		return model.VerdictVerified
	case contradict > support:
		return model.VerdictContradicted
	}
	return model.VerdictNoVerdict
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
