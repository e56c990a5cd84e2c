package pipeline

import (
	"context"
	"testing"

	"github.com/ppiankov/papercheck/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPipeline_Defaults(t *testing.T) {
	p, err := NewPipeline(context.Background(), nil, nil)
	require.NoError(t, err)
	defer func() { _ = p.Close() }()

	report := p.AnalyzeText(context.Background(), "Study A [1] shows X. Study B [2] shows Y.")
	assert.Contains(t, report.Citations, model.CitationEntry{Reference: model.PlaceholderNotConfigured})
	assert.Empty(t, report.FactChecks)
	assert.Equal(t, model.PlagiarismEntry{Score: 0, MatchingSources: []string{}}, report.Plagiarism)
	assert.NotEmpty(t, report.Summary)
}

func TestNewPipeline_BadCacheBackend(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Cache.Backend = "memcached"
	_, err := NewPipeline(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestNewPipeline_UnavailableServicesDegrade(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.LLM.Provider = "openai"             // no key: provider construction fails
	cfg.Plagiarism.CorpusPath = t.TempDir() // a directory is not a database
	cfg.FactCheck.ServiceAccountFile = "/nonexistent/sa.json"

	p, err := NewPipeline(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer func() { _ = p.Close() }()

	report := p.AnalyzeText(context.Background(), "")
	assert.Equal(t, model.SummaryNoContent, report.Summary)
}

func TestPipeline_AnalyzeFile(t *testing.T) {
	p, err := NewPipeline(context.Background(), nil, nil)
	require.NoError(t, err)
	defer func() { _ = p.Close() }()

	path := writeTemp(t, "paper.txt", "The treatment reduced symptom duration by two days in the trial group.")
	res, err := p.Analyze(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, path, res.Source)
	require.Len(t, res.Report.FactChecks, 1)
	assert.Equal(t, model.StatusUnverified, res.Report.FactChecks[0].Status)
	assert.Len(t, res.Components, 4)
}

func TestPipeline_AnalyzeUnsupported(t *testing.T) {
	p, err := NewPipeline(context.Background(), nil, nil)
	require.NoError(t, err)
	defer func() { _ = p.Close() }()

	_, err = p.Analyze(context.Background(), writeTemp(t, "paper.odt", "x"))
	assert.ErrorIs(t, err, ErrUnsupportedSource)
}
