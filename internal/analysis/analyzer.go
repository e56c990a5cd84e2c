// Package analysis runs the sub-analyses of one document and assembles the
// normalized report.
package analysis

import (
	"context"
	"time"

	"github.com/ppiankov/papercheck/internal/logging"
	"github.com/ppiankov/papercheck/internal/model"
	"github.com/ppiankov/papercheck/internal/normalize"
	"github.com/ppiankov/papercheck/internal/worker"
	"go.uber.org/zap"
)

// Branch names, in report order
const (
	ComponentSummary    = "summary"
	ComponentCitations  = "citations"
	ComponentFactChecks = "fact_checks"
	ComponentPlagiarism = "plagiarism"
)

var componentOrder = []string{ComponentSummary, ComponentCitations, ComponentFactChecks, ComponentPlagiarism}

// ClaimExtractor picks checkable sentences out of text
type ClaimExtractor interface {
	Extract(text string) []model.Claim
}

// CitationValidator finds and resolves citations
type CitationValidator interface {
	Validate(ctx context.Context, text string) []model.Citation
}

// FactChecker labels claims with verdicts
type FactChecker interface {
	CheckClaims(ctx context.Context, claims []model.Claim) []model.FactCheckResult
}

// PlagiarismChecker scores text similarity
type PlagiarismChecker interface {
	Check(ctx context.Context, text string) model.PlagiarismResult
}

// Summarizer condenses text
type Summarizer interface {
	Summarize(ctx context.Context, text string) string
}

// Components are the sub-analyses. A nil component leaves its slot at the
// safe default and is reported as degraded.
type Components struct {
	Claims     ClaimExtractor
	Citations  CitationValidator
	FactChecks FactChecker
	Plagiarism PlagiarismChecker
	Summary    Summarizer
}

// Options tunes the analyzer
type Options struct {
	Workers          int           // Branches run in parallel; 1 runs them one by one
	ComponentTimeout time.Duration // Per-branch deadline; 0 disables it
	Logger           *zap.Logger
}

// ComponentStatus records how one branch went
type ComponentStatus struct {
	Name     string        `json:"name"`
	Degraded bool          `json:"degraded"`
	Error    string        `json:"error,omitempty"`
	Elapsed  time.Duration `json:"elapsed_ns"`
}

// Result is a report plus per-branch diagnostics for one document
type Result struct {
	DocumentID string               `json:"document_id,omitempty"`
	Source     string               `json:"source,omitempty"`
	Report     model.AnalysisReport `json:"report"`
	Components []ComponentStatus    `json:"components"`
}

// Analyzer fans out to the sub-analyses and assembles their normalized output
type Analyzer struct {
	components Components
	workers    int
	timeout    time.Duration
	logger     *zap.Logger
}

// New creates an analyzer
func New(components Components, opts Options) *Analyzer {
	if opts.Workers <= 0 {
		opts.Workers = len(componentOrder)
	}
	return &Analyzer{
		components: components,
		workers:    opts.Workers,
		timeout:    opts.ComponentTimeout,
		logger:     logging.OrNop(opts.Logger).With(zap.String("component", "analysis")),
	}
}

// Analyze returns the report for text. It never fails; the worst case is a
// report holding only default values.
func (a *Analyzer) Analyze(ctx context.Context, text string) model.AnalysisReport {
	return a.AnalyzeDocument(ctx, model.Document{Text: text}).Report
}

// branchResult carries one branch's normalized value back from the pool
type branchResult struct {
	status ComponentStatus
	apply  func(*model.AnalysisReport)
}

func (r *branchResult) GetError() error { return nil }

type branchJob func(ctx context.Context) *branchResult

func (f branchJob) Execute(ctx context.Context) worker.Result { return f(ctx) }

// AnalyzeDocument runs every branch for doc and reports how each went
func (a *Analyzer) AnalyzeDocument(ctx context.Context, doc model.Document) Result {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	text := doc.Text

	jobs := []worker.Job{
		branchJob(func(ctx context.Context) *branchResult { return a.summaryBranch(ctx, text) }),
		branchJob(func(ctx context.Context) *branchResult { return a.citationBranch(ctx, text) }),
		branchJob(func(ctx context.Context) *branchResult { return a.factCheckBranch(ctx, text) }),
		branchJob(func(ctx context.Context) *branchResult { return a.plagiarismBranch(ctx, text) }),
	}

	workers := a.workers
	if workers > len(jobs) {
		workers = len(jobs)
	}
	results := worker.NewPool(ctx, workers).Run(jobs)

	report := model.EmptyReport()
	if text == "" {
		report.Summary = model.SummaryNoContent
	} else {
		report.Summary = model.SummaryUnavailable
	}

	statuses := make(map[string]ComponentStatus, len(componentOrder))
	for _, r := range results {
		br, ok := r.(*branchResult)
		if !ok {
			// the pool only reports something else when a branch escaped its guard
			a.logger.Warn("analysis branch failed outside its guard", zap.Error(r.GetError()))
			continue
		}
		br.apply(&report)
		statuses[br.status.Name] = br.status
	}

	components := make([]ComponentStatus, 0, len(componentOrder))
	for _, name := range componentOrder {
		st, ok := statuses[name]
		if !ok {
			st = ComponentStatus{Name: name, Degraded: true, Error: "not run"}
			if err := ctx.Err(); err != nil {
				st.Error = "not run: " + err.Error()
			}
		}
		components = append(components, st)
	}

	a.logger.Debug("analysis complete",
		zap.String("document_id", doc.ID),
		zap.Int("citations", len(report.Citations)),
		zap.Int("fact_checks", len(report.FactChecks)),
		zap.Float64("plagiarism_score", report.Plagiarism.Score),
		zap.Duration("elapsed", time.Since(start)))

	return Result{
		DocumentID: doc.ID,
		Source:     doc.Source,
		Report:     report,
		Components: components,
	}
}

func (a *Analyzer) summaryBranch(ctx context.Context, text string) *branchResult {
	out := Guard(ctx, a.timeout, "", func(ctx context.Context) (string, error) {
		if a.components.Summary == nil {
			return "", errNotConfigured
		}
		return a.components.Summary.Summarize(ctx, text), nil
	})
	summary := out.Value
	if summary == "" && text == "" {
		summary = model.SummaryNoContent
	}
	return &branchResult{
		status: a.status(ComponentSummary, out.Degraded, out.Err, out.Elapsed),
		apply: func(r *model.AnalysisReport) {
			r.Summary = normalize.Summary(summary)
		},
	}
}

func (a *Analyzer) citationBranch(ctx context.Context, text string) *branchResult {
	def := []model.Citation{}
	if text != "" {
		def = []model.Citation{model.PlaceholderCitation(model.PlaceholderValidationError)}
	}
	out := Guard(ctx, a.timeout, def, func(ctx context.Context) ([]model.Citation, error) {
		if a.components.Citations == nil {
			return nil, errNotConfigured
		}
		return a.components.Citations.Validate(ctx, text), nil
	})
	return &branchResult{
		status: a.status(ComponentCitations, out.Degraded, out.Err, out.Elapsed),
		apply: func(r *model.AnalysisReport) {
			r.Citations = normalize.Citations(out.Value)
		},
	}
}

func (a *Analyzer) factCheckBranch(ctx context.Context, text string) *branchResult {
	out := Guard(ctx, a.timeout, []model.FactCheckResult{}, func(ctx context.Context) ([]model.FactCheckResult, error) {
		if a.components.Claims == nil || a.components.FactChecks == nil {
			return nil, errNotConfigured
		}
		claims := a.components.Claims.Extract(text)
		if len(claims) == 0 {
			return []model.FactCheckResult{}, nil
		}
		return a.components.FactChecks.CheckClaims(ctx, claims), nil
	})
	return &branchResult{
		status: a.status(ComponentFactChecks, out.Degraded, out.Err, out.Elapsed),
		apply: func(r *model.AnalysisReport) {
			r.FactChecks = normalize.FactChecks(out.Value)
		},
	}
}

func (a *Analyzer) plagiarismBranch(ctx context.Context, text string) *branchResult {
	out := Guard(ctx, a.timeout, model.SafePlagiarism(), func(ctx context.Context) (model.PlagiarismResult, error) {
		if a.components.Plagiarism == nil {
			return model.PlagiarismResult{}, errNotConfigured
		}
		return a.components.Plagiarism.Check(ctx, text), nil
	})
	return &branchResult{
		status: a.status(ComponentPlagiarism, out.Degraded, out.Err, out.Elapsed),
		apply: func(r *model.AnalysisReport) {
			r.Plagiarism = normalize.Plagiarism(out.Value)
		},
	}
}

func (a *Analyzer) status(name string, degraded bool, err error, elapsed time.Duration) ComponentStatus {
	st := ComponentStatus{Name: name, Degraded: degraded, Elapsed: elapsed}
	if err != nil {
		st.Error = err.Error()
	}
	if degraded {
		a.logger.Warn("analysis branch degraded",
			zap.String("branch", name),
			zap.Error(err),
			zap.Duration("elapsed", elapsed))
	} else {
		a.logger.Debug("analysis branch done", zap.String("branch", name), zap.Duration("elapsed", elapsed))
	}
	return st
}
