// Package pipeline wires configuration into the analysis components and
// connects them to document loading and report rendering.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ppiankov/papercheck/internal/analysis"
	"github.com/ppiankov/papercheck/internal/cache"
	"github.com/ppiankov/papercheck/internal/citation"
	"github.com/ppiankov/papercheck/internal/extract"
	"github.com/ppiankov/papercheck/internal/factcheck"
	"github.com/ppiankov/papercheck/internal/llm"
	"github.com/ppiankov/papercheck/internal/logging"
	"github.com/ppiankov/papercheck/internal/model"
	"github.com/ppiankov/papercheck/internal/plagiarism"
	"github.com/ppiankov/papercheck/internal/summarize"
	"github.com/ppiankov/papercheck/internal/util"
	"github.com/ppiankov/papercheck/internal/worker"
	"go.uber.org/zap"
)

// Pipeline loads documents, analyzes them and renders the results
type Pipeline struct {
	loader     *Loader
	analyzer   *analysis.Analyzer
	renderer   *Renderer
	plagiarism *plagiarism.Checker
	cache      cache.Cache
	config     *model.Config
	logger     *zap.Logger
}

// NewPipeline builds every component from cfg. Optional services that fail
// to initialize are logged and left out; only a broken cache backend is an error.
func NewPipeline(ctx context.Context, cfg *model.Config, logger *zap.Logger) (*Pipeline, error) {
	if cfg == nil {
		cfg = model.DefaultConfig()
	}
	logger = logging.OrNop(logger)

	lookupCache, err := cache.New(cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}

	limiter := worker.NewLimiterFromConfig(cfg.RateLimiting)
	client := util.NewHTTPClient(cfg.HTTP, 0)
	ua := cfg.HTTP.UserAgent

	var robots *util.RobotsChecker
	if cfg.HTTP.RespectRobots {
		robots = util.NewRobotsChecker(ua, util.NewHTTPClient(cfg.HTTP, 10*time.Second))
	}
	fetcher := NewFetcher(client, ua, cfg.HTTP.MaxBodyBytes, robots, limiter)

	// Citations
	citationOpts := citation.Options{
		Resolver: citation.NewResolverFromConfig(cfg.Citations, client, limiter, ua),
		Cache:    lookupCache,
		CacheTTL: cfg.Cache.DiskTTL,
		Workers:  cfg.Concurrency.LookupWorkers,
		Logger:   logger,
	}
	if cfg.Citations.CheckLinks {
		citationOpts.Links = citation.NewLinkChecker(client, limiter, ua, cfg.Concurrency.LookupWorkers)
	}
	validator := citation.NewValidator(cfg.Citations, citationOpts)

	// Fact checks
	factOpts := factcheck.Options{
		Cache:    lookupCache,
		CacheTTL: cfg.Cache.MemoryTTL,
		Workers:  cfg.Concurrency.LookupWorkers,
		Logger:   logger,
	}
	if cfg.FactCheck.Configured() {
		gc, err := factcheck.NewGoogleClient(ctx, cfg.FactCheck, client, limiter, ua)
		if err != nil {
			logger.Warn("fact-check client unavailable", zap.Error(err))
		} else {
			factOpts.Searcher = gc
		}
	}
	checker := factcheck.NewChecker(cfg.FactCheck, factOpts)

	// Plagiarism
	scorer, err := plagiarism.NewScorerFromConfig(cfg.Plagiarism, client, limiter, ua)
	if err != nil {
		logger.Warn("plagiarism scorer unavailable, using shingle heuristic", zap.Error(err))
		scorer = nil
	}
	plag := plagiarism.NewChecker(scorer, logger)

	// Summaries
	var provider llm.Provider
	if cfg.Summarizer.UseModel {
		provider, err = llm.NewProvider(llm.ConfigFromModel(cfg.LLM, cfg.HTTP, logger))
		if err != nil && !errors.Is(err, llm.ErrNoProvider) {
			logger.Warn("LLM provider unavailable, using heuristic summaries", zap.Error(err))
		}
	}
	summarizer := summarize.New(provider, cfg.Summarizer, logger)

	analyzer := analysis.New(analysis.Components{
		Claims:     extract.NewClaimExtractor(cfg.FactCheck.MaxClaims),
		Citations:  validator,
		FactChecks: checker,
		Plagiarism: plag,
		Summary:    summarizer,
	}, analysis.Options{
		Workers:          cfg.Concurrency.Components,
		ComponentTimeout: cfg.Analysis.ComponentTimeout,
		Logger:           logger,
	})

	logger.Debug("pipeline ready",
		zap.Bool("citation_resolver", validator.Configured()),
		zap.Bool("fact_check", checker.Configured()),
		zap.String("llm", summarizer.ProviderName()),
		zap.Bool("cache", lookupCache != nil))

	return &Pipeline{
		loader:     NewLoader(fetcher),
		analyzer:   analyzer,
		renderer:   NewRenderer(),
		plagiarism: plag,
		cache:      lookupCache,
		config:     cfg,
		logger:     logger,
	}, nil
}

// Analyze loads source and analyzes it. Only loading can fail; analysis
// itself always produces a complete result.
func (p *Pipeline) Analyze(ctx context.Context, source string) (*analysis.Result, error) {
	doc, err := p.loader.Load(ctx, source)
	if err != nil {
		return nil, err
	}
	p.logger.Info("analyzing document",
		zap.String("source", doc.Source),
		zap.String("document_id", doc.ID),
		zap.Int("words", doc.WordCount()))

	result := p.analyzer.AnalyzeDocument(ctx, doc)
	return &result, nil
}

// AnalyzeText analyzes raw text
func (p *Pipeline) AnalyzeText(ctx context.Context, text string) model.AnalysisReport {
	return p.analyzer.Analyze(ctx, text)
}

// RenderReport writes the JSON report (stdout when jsonPath is "" or "-") and,
// when mdPath is set, a Markdown report
func (p *Pipeline) RenderReport(result *analysis.Result, jsonPath, mdPath string) error {
	if err := p.renderer.RenderJSON(result.Report, jsonPath); err != nil {
		return fmt.Errorf("render JSON: %w", err)
	}
	if mdPath != "" {
		if err := p.renderer.RenderMarkdown(*result, mdPath); err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
	}
	if p.config.Output.Verbose {
		p.renderer.RenderSummary(*result)
	}
	return nil
}

// Close releases the corpus database and cache connections
func (p *Pipeline) Close() error {
	var errs []error
	if err := p.plagiarism.Close(); err != nil {
		errs = append(errs, err)
	}
	if closer, ok := p.cache.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
