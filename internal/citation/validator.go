package citation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/papercheck/internal/cache"
	"github.com/ppiankov/papercheck/internal/logging"
	"github.com/ppiankov/papercheck/internal/model"
	"github.com/ppiankov/papercheck/internal/worker"
)

// Options carries the collaborators a Validator needs besides its config section
type Options struct {
	Resolver Resolver     // nil when no metadata service is configured
	Links    *LinkChecker // nil disables URL checks
	Cache    cache.Cache
	CacheTTL time.Duration
	Workers  int
	Logger   *zap.Logger
}

// Validator parses citations and resolves bibliography entries
type Validator struct {
	parser        *Parser
	resolver      Resolver
	links         *LinkChecker
	cache         cache.Cache
	cacheTTL      time.Duration
	maxLookups    int
	lookupTimeout time.Duration
	workers       int
	logger        *zap.Logger
}

// NewValidator creates a validator
func NewValidator(cfg model.CitationConfig, opts Options) *Validator {
	v := &Validator{
		parser:        NewParser(),
		resolver:      opts.Resolver,
		links:         opts.Links,
		cache:         opts.Cache,
		cacheTTL:      opts.CacheTTL,
		maxLookups:    cfg.MaxLookups,
		lookupTimeout: cfg.LookupTimeout,
		workers:       opts.Workers,
		logger:        logging.OrNop(opts.Logger).With(zap.String("component", "citations")),
	}
	if v.maxLookups <= 0 {
		v.maxLookups = 25
	}
	if v.lookupTimeout <= 0 {
		v.lookupTimeout = 10 * time.Second
	}
	if v.workers <= 0 {
		v.workers = 4
	}
	return v
}

// NewResolverFromConfig chains the resolvers that have credentials:
// Semantic Scholar first, then OpenAlex. It returns nil when none do.
func NewResolverFromConfig(cfg model.CitationConfig, client *http.Client, limiter *worker.Limiter, userAgent string) Resolver {
	var resolvers []Resolver
	if cfg.SemanticScholarAPIKey != "" {
		resolvers = append(resolvers, NewSemanticScholarResolver(client, limiter, userAgent, cfg.SemanticScholarAPIKey))
	}
	if cfg.OpenAlexEmail != "" {
		resolvers = append(resolvers, NewOpenAlexResolver(client, limiter, userAgent, cfg.OpenAlexEmail))
	}
	return NewChainResolver(resolvers...)
}

// Configured reports whether a metadata resolver is available
func (v *Validator) Configured() bool {
	return v.resolver != nil
}

// Validate finds the citations in text and resolves what it can. It never
// fails: lookup errors leave the citation unresolved, and without a resolver
// a placeholder record is appended so there is always something to render.
// Empty text yields an empty slice.
func (v *Validator) Validate(ctx context.Context, text string) (citations []model.Citation) {
	defer func() {
		if r := recover(); r != nil {
			v.logger.Warn("citation validation failed", zap.Any("panic", r))
			placeholder := model.PlaceholderCitation(model.PlaceholderValidationError)
			placeholder.CleanedTitle = "Unable to validate citations"
			citations = []model.Citation{placeholder}
		}
	}()

	if strings.TrimSpace(text) == "" {
		return []model.Citation{}
	}

	citations = v.parser.Parse(text)
	v.logger.Debug("citations parsed", zap.Int("count", len(citations)))

	if v.links != nil {
		v.checkLinks(ctx, citations)
	}

	if v.resolver == nil {
		return append(citations, model.PlaceholderCitation(model.PlaceholderNotConfigured))
	}
	if len(citations) == 0 {
		return []model.Citation{model.PlaceholderCitation(model.PlaceholderNoneDetected)}
	}

	v.resolveAll(ctx, citations)
	return citations
}

// resolveAll resolves bibliography entries in place, bounded by maxLookups and workers
func (v *Validator) resolveAll(ctx context.Context, citations []model.Citation) {
	var targets []int
	for i, c := range citations {
		if c.Kind != model.CitationKindBibliography || (c.DOI == "" && c.CleanedTitle == "") {
			continue
		}
		targets = append(targets, i)
		if len(targets) >= v.maxLookups {
			break
		}
	}
	if len(targets) == 0 {
		return
	}

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, v.workers)

	for _, idx := range targets {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					v.logger.Warn("citation lookup panicked", zap.String("citation", citations[i].Raw), zap.Any("panic", r))
				}
			}()

			select {
			case <-ctx.Done():
				return
			case semaphore <- struct{}{}:
			}
			defer func() { <-semaphore }()
			// select picks randomly when both are ready
			if ctx.Err() != nil {
				return
			}

			meta, err := v.resolveOne(ctx, citations[i])
			switch {
			case err == nil:
				citations[i].Source = meta
				citations[i].Valid = true
				if citations[i].DOI == "" {
					citations[i].DOI = meta.DOI
				}
			case errors.Is(err, ErrNotFound):
				v.logger.Debug("citation not found", zap.String("citation", citations[i].Raw))
			default:
				v.logger.Warn("citation lookup failed", zap.String("citation", citations[i].Raw), zap.Error(err))
			}
		}(idx)
	}

	wg.Wait()
}

func (v *Validator) resolveOne(ctx context.Context, c model.Citation) (*model.SourceMetadata, error) {
	key := cache.CacheKey("citation", lookupKey(c))

	var cached model.SourceMetadata
	if cache.GetJSON(v.cache, key, &cached) {
		return &cached, nil
	}

	lookupCtx, cancel := context.WithTimeout(ctx, v.lookupTimeout)
	defer cancel()

	meta, err := v.resolver.Resolve(lookupCtx, c)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, fmt.Errorf("%s returned no metadata", v.resolver.Name())
	}

	if err := cache.SetJSON(v.cache, key, meta, v.cacheTTL); err != nil {
		v.logger.Debug("cache write failed", zap.Error(err))
	}
	return meta, nil
}

// checkLinks marks DOI-less entries with a URL valid only if the URL answers
func (v *Validator) checkLinks(ctx context.Context, citations []model.Citation) {
	var urls []string
	for _, c := range citations {
		if c.Kind == model.CitationKindBibliography && c.DOI == "" && c.URL != "" {
			urls = append(urls, c.URL)
		}
	}
	if len(urls) == 0 {
		return
	}

	statuses := v.links.Check(ctx, urls)
	for i, c := range citations {
		status, ok := statuses[c.URL]
		if !ok || c.DOI != "" || c.Kind != model.CitationKindBibliography {
			continue
		}
		citations[i].Valid = status.Accessible
		if !status.Accessible {
			v.logger.Debug("reference link unreachable", zap.String("url", c.URL), zap.Int("status", status.StatusCode), zap.String("error", status.Error))
		}
	}
}

func lookupKey(c model.Citation) string {
	if c.DOI != "" {
		return "doi:" + bareDOI(c.DOI)
	}
	return "title:" + c.CleanedTitle
}
