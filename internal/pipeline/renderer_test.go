package pipeline

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/ppiankov/papercheck/internal/analysis"
	"github.com/ppiankov/papercheck/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() analysis.Result {
	return analysis.Result{
		DocumentID: "doc-1",
		Source:     "paper.pdf",
		Report: model.AnalysisReport{
			Summary:    "A short summary.",
			Citations:  []model.CitationEntry{{Reference: "Smith | Jones (2020)", Valid: true}},
			FactChecks: []model.FactCheckEntry{{Claim: "Water boils at 100 degrees Celsius at sea level.", Status: model.StatusVerified}},
			Plagiarism: model.PlagiarismEntry{Score: 0.125, MatchingSources: []string{"corpus-paper"}},
		},
		Components: []analysis.ComponentStatus{
			{Name: analysis.ComponentSummary},
			{Name: analysis.ComponentCitations, Degraded: true, Error: "component timed out"},
		},
	}
}

func TestRenderer_JSONShape(t *testing.T) {
	var buf bytes.Buffer
	r := &Renderer{stdout: &buf, stderr: &bytes.Buffer{}}
	require.NoError(t, r.RenderJSON(model.EmptyReport(), "-"))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, model.SummaryNoContent, decoded["summary"])
	assert.Equal(t, []any{}, decoded["citations"])
	assert.Equal(t, []any{}, decoded["fact_checks"])
	assert.Equal(t, map[string]any{"plagiarism_score": 0.0, "matching_sources": []any{}}, decoded["plagiarism"])
}

func TestRenderer_JSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "report.json")
	require.NoError(t, NewRenderer().RenderJSON(sampleResult().Report, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var report model.AnalysisReport
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, sampleResult().Report, report)
}

func TestMarkdown(t *testing.T) {
	md := Markdown(sampleResult())
	assert.Contains(t, md, "# Analysis: paper.pdf")
	assert.Contains(t, md, "A short summary.")
	assert.Contains(t, md, "12.5%")
	assert.Contains(t, md, `Smith \| Jones (2020) | yes`)
	assert.Contains(t, md, "| Verified |")
	assert.Contains(t, md, "- corpus-paper")
	assert.Contains(t, md, "citations used its default result: component timed out")
}

func TestMarkdown_Empty(t *testing.T) {
	md := Markdown(analysis.Result{Report: model.EmptyReport()})
	assert.Contains(t, md, "_None found._")
	assert.Contains(t, md, "_No checkable claims._")
	assert.NotContains(t, md, "## Notes")
}

func TestRenderSummary(t *testing.T) {
	var stderr bytes.Buffer
	r := &Renderer{stdout: &bytes.Buffer{}, stderr: &stderr}
	r.RenderSummary(sampleResult())
	assert.Contains(t, stderr.String(), "citations:   1 (1 valid)")
	assert.Contains(t, stderr.String(), "! citations degraded")
}
