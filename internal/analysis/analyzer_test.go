package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/papercheck/internal/citation"
	"github.com/ppiankov/papercheck/internal/extract"
	"github.com/ppiankov/papercheck/internal/factcheck"
	"github.com/ppiankov/papercheck/internal/llm"
	"github.com/ppiankov/papercheck/internal/model"
	"github.com/ppiankov/papercheck/internal/plagiarism"
	"github.com/ppiankov/papercheck/internal/summarize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unconfigured wires every real component with no credentials
func unconfigured() Components {
	cfg := model.DefaultConfig()
	return Components{
		Claims:     extract.NewClaimExtractor(cfg.FactCheck.MaxClaims),
		Citations:  citation.NewValidator(cfg.Citations, citation.Options{}),
		FactChecks: factcheck.NewChecker(cfg.FactCheck, factcheck.Options{}),
		Plagiarism: plagiarism.NewChecker(nil, nil),
		Summary:    summarize.New(nil, cfg.Summarizer, nil),
	}
}

type panickingValidator struct{}

func (panickingValidator) Validate(context.Context, string) []model.Citation {
	panic("metadata client exploded")
}

type slowPlagiarism struct{}

func (slowPlagiarism) Check(ctx context.Context, _ string) model.PlagiarismResult {
	<-ctx.Done()
	time.Sleep(50 * time.Millisecond)
	return model.PlagiarismResult{Score: 0.9, MatchingSources: []string{"late"}}
}

type rawPlagiarism struct{ result model.PlagiarismResult }

func (r rawPlagiarism) Check(context.Context, string) model.PlagiarismResult { return r.result }

// blockingProvider, blockingResolver and blockingSearcher hang until their
// lookup context ends, like an upstream API that never answers
type blockingProvider struct{}

func (blockingProvider) Name() string { return "blocking" }

func (blockingProvider) Summarize(ctx context.Context, _ llm.SummarizeRequest) (*llm.SummarizeResponse, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (blockingProvider) IsAvailable(context.Context) bool { return false }

type blockingResolver struct{}

func (blockingResolver) Name() string { return "blocking" }

func (blockingResolver) Resolve(ctx context.Context, _ model.Citation) (*model.SourceMetadata, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type blockingSearcher struct{}

func (blockingSearcher) Search(ctx context.Context, _ string) ([]model.Review, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func componentStatus(t *testing.T, res Result, name string) ComponentStatus {
	t.Helper()
	for _, st := range res.Components {
		if st.Name == name {
			return st
		}
	}
	t.Fatalf("no status for %s", name)
	return ComponentStatus{}
}

func assertSchema(t *testing.T, report model.AnalysisReport) {
	t.Helper()
	assert.NotEmpty(t, report.Summary)
	assert.NotNil(t, report.Citations)
	assert.NotNil(t, report.FactChecks)
	assert.NotNil(t, report.Plagiarism.MatchingSources)
	assert.GreaterOrEqual(t, report.Plagiarism.Score, 0.0)
	assert.LessOrEqual(t, report.Plagiarism.Score, 1.0)

	raw, err := json.Marshal(report)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	for _, key := range []string{"summary", "citations", "fact_checks", "plagiarism"} {
		assert.Contains(t, decoded, key)
	}
	plag, ok := decoded["plagiarism"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, plag, "plagiarism_score")
	assert.Contains(t, plag, "matching_sources")
}

func TestAnalyze_EmptyText(t *testing.T) {
	a := New(unconfigured(), Options{})
	report := a.Analyze(context.Background(), "")

	assertSchema(t, report)
	assert.Equal(t, model.SummaryNoContent, report.Summary)
	assert.Empty(t, report.Citations)
	assert.Empty(t, report.FactChecks)
	assert.Equal(t, 0.0, report.Plagiarism.Score)
}

func TestAnalyze_ShortTextNoCredentials(t *testing.T) {
	text := "Study A [1] shows X. Study B [2] shows Y."
	a := New(unconfigured(), Options{})
	report := a.Analyze(context.Background(), text)

	assertSchema(t, report)
	assert.Equal(t, text, report.Summary)
	assert.Contains(t, report.Citations, model.CitationEntry{Reference: model.PlaceholderNotConfigured, Valid: false})
	assert.Empty(t, report.FactChecks)
	assert.Equal(t, model.PlagiarismEntry{Score: 0, MatchingSources: []string{}}, report.Plagiarism)
}

func TestAnalyze_ClaimsUnverifiedWithoutCredentials(t *testing.T) {
	text := "The treatment reduced symptom duration by two days in the trial group. " +
		"Participants in the control group reported no change over the same period. " +
		"Ok."
	a := New(unconfigured(), Options{})
	report := a.Analyze(context.Background(), text)

	require.Len(t, report.FactChecks, 2)
	for _, fc := range report.FactChecks {
		assert.Equal(t, model.StatusUnverified, fc.Status)
	}
	assert.Equal(t, "The treatment reduced symptom duration by two days in the trial group.", report.FactChecks[0].Claim)
}

func TestAnalyze_PanickingComponentIsIsolated(t *testing.T) {
	comps := unconfigured()
	comps.Citations = panickingValidator{}
	a := New(comps, Options{})

	text := "The treatment reduced symptom duration by two days in the trial group."
	res := a.AnalyzeDocument(context.Background(), model.NewDocument("paper.txt", text))

	assertSchema(t, res.Report)
	assert.Equal(t, []model.CitationEntry{{Reference: model.PlaceholderValidationError, Valid: false}}, res.Report.Citations)
	require.Len(t, res.Report.FactChecks, 1)
	assert.Equal(t, model.StatusUnverified, res.Report.FactChecks[0].Status)
	assert.Equal(t, text, res.Report.Summary)

	require.Len(t, res.Components, 4)
	for _, st := range res.Components {
		if st.Name == ComponentCitations {
			assert.True(t, st.Degraded)
			assert.Contains(t, st.Error, "metadata client exploded")
		} else {
			assert.False(t, st.Degraded, st.Name)
		}
	}
	assert.NotEmpty(t, res.DocumentID)
	assert.Equal(t, "paper.txt", res.Source)
}

func TestAnalyze_SlowComponentTimesOut(t *testing.T) {
	comps := unconfigured()
	comps.Plagiarism = slowPlagiarism{}
	a := New(comps, Options{ComponentTimeout: 30 * time.Millisecond})

	res := a.AnalyzeDocument(context.Background(), model.Document{Text: "Study A [1] shows X."})

	assert.Equal(t, model.PlagiarismEntry{Score: 0, MatchingSources: []string{}}, res.Report.Plagiarism)
	for _, st := range res.Components {
		if st.Name == ComponentPlagiarism {
			assert.True(t, st.Degraded)
			assert.Equal(t, ErrTimeout.Error(), st.Error)
		}
	}
}

func TestAnalyze_NormalizesRawOutput(t *testing.T) {
	comps := unconfigured()
	comps.Plagiarism = rawPlagiarism{result: model.PlagiarismResult{Score: 3.2}}
	a := New(comps, Options{})

	report := a.Analyze(context.Background(), "Some text to score.")
	assert.Equal(t, 1.0, report.Plagiarism.Score)
	assert.Equal(t, []string{}, report.Plagiarism.MatchingSources)
}

func TestAnalyze_NilComponents(t *testing.T) {
	a := New(Components{}, Options{Workers: 1})
	res := a.AnalyzeDocument(context.Background(), model.Document{Text: "Some text."})

	assertSchema(t, res.Report)
	assert.Equal(t, model.SummaryUnavailable, res.Report.Summary)
	assert.Equal(t, []model.CitationEntry{{Reference: model.PlaceholderValidationError, Valid: false}}, res.Report.Citations)
	assert.Empty(t, res.Report.FactChecks)
	for _, st := range res.Components {
		assert.True(t, st.Degraded, st.Name)
	}
}

func TestAnalyze_SequentialMatchesParallel(t *testing.T) {
	text := strings.Repeat("Results demonstrate a significant improvement of the proposed method over baselines. ", 3)
	parallel := New(unconfigured(), Options{Workers: 4}).Analyze(context.Background(), text)
	sequential := New(unconfigured(), Options{Workers: 1}).Analyze(context.Background(), text)
	assert.Equal(t, parallel, sequential)
}

func TestAnalyze_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := New(unconfigured(), Options{}).AnalyzeDocument(ctx, model.Document{Text: "Study A [1] shows X."})
	assertSchema(t, res.Report)
	require.Len(t, res.Components, 4)
}

func TestAnalyze_SummaryTimeoutKeepsHeuristic(t *testing.T) {
	cfg := model.DefaultConfig()
	require.True(t, cfg.Summarizer.UseModel)
	comps := unconfigured()
	comps.Summary = summarize.New(blockingProvider{}, cfg.Summarizer, nil)
	a := New(comps, Options{ComponentTimeout: 200 * time.Millisecond})

	text := strings.Repeat("The proposed estimator reduces variance by a wide margin across every benchmark we tried. ", 5)
	res := a.AnalyzeDocument(context.Background(), model.Document{Text: text})

	assert.Equal(t, summarize.Heuristic(strings.TrimSpace(text), cfg.Summarizer.MaxWords), res.Report.Summary)
	assert.NotEqual(t, model.SummaryUnavailable, res.Report.Summary)
	st := componentStatus(t, res, ComponentSummary)
	assert.True(t, st.Degraded)
	assert.Equal(t, ErrTimeout.Error(), st.Error)
}

func TestAnalyze_CitationTimeoutKeepsParsedEntries(t *testing.T) {
	comps := unconfigured()
	comps.Citations = citation.NewValidator(
		model.CitationConfig{LookupTimeout: 100 * time.Millisecond, MaxLookups: 25},
		citation.Options{Resolver: blockingResolver{}, Workers: 1},
	)
	a := New(comps, Options{ComponentTimeout: 300 * time.Millisecond})

	var b strings.Builder
	b.WriteString("Prior work [1] and [2] motivates this study.\n\nReferences\n")
	for i := 1; i <= 10; i++ {
		fmt.Fprintf(&b, "[%d] Doe, J. (20%02d). A sufficiently long reference title number %d. Journal of Tests.\n", i, i+10, i)
	}
	res := a.AnalyzeDocument(context.Background(), model.Document{Text: b.String()})

	require.Greater(t, len(res.Report.Citations), 10)
	for _, c := range res.Report.Citations {
		assert.NotEqual(t, model.PlaceholderValidationError, c.Reference)
		assert.False(t, c.Valid, c.Reference)
	}
	st := componentStatus(t, res, ComponentCitations)
	assert.True(t, st.Degraded)
	assert.Equal(t, ErrTimeout.Error(), st.Error)
}

func TestAnalyze_FactCheckTimeoutKeepsClaims(t *testing.T) {
	cfg := model.DefaultConfig()
	comps := unconfigured()
	comps.FactChecks = factcheck.NewChecker(
		model.FactCheckConfig{MaxClaims: 5, LookupTimeout: 100 * time.Millisecond},
		factcheck.Options{Searcher: blockingSearcher{}, Workers: 1},
	)
	a := New(comps, Options{ComponentTimeout: 300 * time.Millisecond})

	text := "Sleep deprivation reduces working memory capacity in adults. " +
		"Regular exercise lowers resting heart rate over several months. " +
		"Coffee consumption is associated with a lower risk of liver disease. " +
		"Urban trees measurably reduce summer surface temperatures. " +
		"Bilingual children outperform peers on attention switching tasks."
	claims := extract.NewClaimExtractor(cfg.FactCheck.MaxClaims).Extract(text)
	require.Len(t, claims, 5)

	res := a.AnalyzeDocument(context.Background(), model.Document{Text: text})

	require.Len(t, res.Report.FactChecks, 5)
	for i, fc := range res.Report.FactChecks {
		assert.Equal(t, claims[i].Text, fc.Claim)
		assert.Equal(t, model.StatusUnverified, fc.Status)
	}
	st := componentStatus(t, res, ComponentFactChecks)
	assert.True(t, st.Degraded)
	assert.Equal(t, ErrTimeout.Error(), st.Error)
}
