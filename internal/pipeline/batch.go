package pipeline

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/papercheck/internal/analysis"
	"github.com/ppiankov/papercheck/internal/worker"
)

// DocumentAnalyzer analyzes one source
type DocumentAnalyzer interface {
	Analyze(ctx context.Context, source string) (*analysis.Result, error)
}

// AnalyzeJob analyzes one source on the worker pool
type AnalyzeJob struct {
	Index    int
	Source   string
	Analyzer DocumentAnalyzer
}

// Execute executes the job. A panic is reported as that source's error.
func (j *AnalyzeJob) Execute(ctx context.Context) (res worker.Result) {
	defer func() {
		if r := recover(); r != nil {
			res = &BatchResult{index: j.Index, Source: j.Source, Error: fmt.Errorf("analysis panicked: %v", r)}
		}
	}()

	result, err := j.Analyzer.Analyze(ctx, j.Source)
	return &BatchResult{
		index:  j.Index,
		Source: j.Source,
		Result: result,
		Error:  err,
	}
}

// BatchResult is the outcome for one source
type BatchResult struct {
	index  int
	Source string
	Result *analysis.Result
	Error  error
}

// GetError returns the load error, if any
func (r *BatchResult) GetError() error {
	return r.Error
}

// BatchProcessor analyzes many sources concurrently
type BatchProcessor struct {
	analyzer    DocumentAnalyzer
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(analyzer DocumentAnalyzer, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		analyzer:    analyzer,
		concurrency: concurrency,
	}
}

// ProcessSources analyzes sources and returns one result per source, in input order.
// Sources that never ran because ctx ended carry ctx's error.
func (b *BatchProcessor) ProcessSources(ctx context.Context, sources []string) []*BatchResult {
	out := make([]*BatchResult, len(sources))
	if len(sources) == 0 {
		return out
	}

	jobs := make([]worker.Job, len(sources))
	for i, source := range sources {
		jobs[i] = &AnalyzeJob{Index: i, Source: source, Analyzer: b.analyzer}
	}

	pool := worker.NewPool(ctx, b.concurrency)
	for _, r := range pool.Run(jobs) {
		if res, ok := r.(*BatchResult); ok {
			out[res.index] = res
		}
	}

	for i, r := range out {
		if r != nil {
			continue
		}
		err := ctx.Err()
		if err == nil {
			err = fmt.Errorf("analysis of %s did not complete", sources[i])
		}
		out[i] = &BatchResult{index: i, Source: sources[i], Error: err}
	}
	return out
}

// ProcessFile reads sources from a file and analyzes them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*BatchResult, error) {
	sources, err := ReadSourcesFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read sources: %w", err)
	}
	return b.ProcessSources(ctx, sources), nil
}

// ReadSourcesFromFile reads sources (paths or URLs) from a file, one per line.
// Blank lines and # comments are skipped; duplicates are dropped.
func ReadSourcesFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var sources []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !seen[line] {
			seen[line] = true
			sources = append(sources, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return sources, nil
}
