package model

import (
	"strings"

	"github.com/google/uuid"
)

// Document is the unit of analysis: an identifier plus raw extracted text
type Document struct {
	ID     string `json:"id"`
	Source string `json:"source,omitempty"` // File path or URL the text came from
	Title  string `json:"title,omitempty"`
	Text   string `json:"-"`
}

// NewDocument creates a document with a fresh identifier
func NewDocument(source, text string) Document {
	return Document{
		ID:     uuid.NewString(),
		Source: source,
		Text:   text,
	}
}

// WordCount returns the number of whitespace-separated words in the document
func (d Document) WordCount() int {
	return len(strings.Fields(d.Text))
}

// PlagiarismResult is the raw output of a plagiarism scorer
type PlagiarismResult struct {
	Score           float64  `json:"plagiarism_score"` // Similarity in [0, 1]
	MatchingSources []string `json:"matching_sources"` // Ordered, possibly empty
}

// SafePlagiarism is the result reported whenever scoring is unavailable
func SafePlagiarism() PlagiarismResult {
	return PlagiarismResult{Score: 0.0, MatchingSources: []string{}}
}

// AnalysisReport is the normalized, fixed-shape result handed to the rendering layer.
// The JSON keys are a compatibility contract and must not change.
type AnalysisReport struct {
	Summary    string           `json:"summary"`
	Citations  []CitationEntry  `json:"citations"`
	FactChecks []FactCheckEntry `json:"fact_checks"`
	Plagiarism PlagiarismEntry  `json:"plagiarism"`
}

// CitationEntry is a normalized citation
type CitationEntry struct {
	Reference string `json:"reference"`
	Valid     bool   `json:"valid"`
}

// FactCheckEntry is a normalized fact-check with a display label as status
type FactCheckEntry struct {
	Claim  string `json:"claim"`
	Status string `json:"status"`
}

// PlagiarismEntry is a normalized plagiarism result
type PlagiarismEntry struct {
	Score           float64  `json:"plagiarism_score"`
	MatchingSources []string `json:"matching_sources"`
}

// Fact-check display labels
const (
	StatusVerified     = "Verified"
	StatusContradicted = "Contradicted"
	StatusUnverified   = "Unverified"
)

// Summary placeholders
const (
	SummaryNoContent   = "No content to summarize."
	SummaryUnavailable = "Unable to generate summary."
)

// EmptyReport returns a report holding the documented default of every slot
func EmptyReport() AnalysisReport {
	return AnalysisReport{
		Summary:    SummaryNoContent,
		Citations:  []CitationEntry{},
		FactChecks: []FactCheckEntry{},
		Plagiarism: PlagiarismEntry{Score: 0.0, MatchingSources: []string{}},
	}
}
