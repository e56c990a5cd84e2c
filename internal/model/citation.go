package model

// Citation represents a reference found in a document
type Citation struct {
	Raw          string          `json:"raw"`                     // Reference text as it appears in the document
	CleanedTitle string          `json:"cleaned_title,omitempty"` // Best-effort title guess
	DOI          string          `json:"doi,omitempty"`
	URL          string          `json:"url,omitempty"`
	Kind         CitationKind    `json:"kind"`
	Valid        bool            `json:"valid"`
	Source       *SourceMetadata `json:"source,omitempty"` // Set when resolved against a metadata API
}

// CitationKind classifies how a citation was found
type CitationKind string

const (
	CitationKindBibliography CitationKind = "bibliography" // Entry in the references section
	CitationKindAuthorYear   CitationKind = "author_year"  // In-text (Smith, 2017)
	CitationKindNumeric      CitationKind = "numeric"      // In-text [1] or [1, 2]
	CitationKindPlaceholder  CitationKind = "placeholder"  // Stand-in record, never a real reference
)

// SourceMetadata is what a scholarly metadata service knows about a reference
type SourceMetadata struct {
	Title    string   `json:"title,omitempty"`
	Authors  []string `json:"authors,omitempty"`
	Year     int      `json:"year,omitempty"`
	Venue    string   `json:"venue,omitempty"`
	DOI      string   `json:"doi,omitempty"`
	Resolver string   `json:"resolver"` // Which service resolved it (semantic_scholar, openalex)
}

// Placeholder raw values used when no real citation can be reported
const (
	PlaceholderNotConfigured   = "Mock Citation (API not configured)"
	PlaceholderNoneDetected    = "No citations detected"
	PlaceholderValidationError = "Citation validation error"
)

// PlaceholderCitation returns an invalid stand-in record with the given raw text
func PlaceholderCitation(raw string) Citation {
	return Citation{
		Raw:          raw,
		CleanedTitle: "Citation validation not available",
		Kind:         CitationKindPlaceholder,
		Valid:        false,
	}
}
