// Package citation finds references in document text and resolves them
// against scholarly metadata services.
package citation

import (
	"regexp"
	"strings"

	"github.com/ppiankov/papercheck/internal/model"
)

var (
	doiRe = regexp.MustCompile(`(?i)\b10\.\d{4,9}/[-._;()/:A-Z0-9]+\b`)
	urlRe = regexp.MustCompile(`(?i)https?://[^\s<>")]+`)

	// (Smith, 2017), (Smith & Jones, 2019), [Smith et al., 2020]
	authorYearRe = regexp.MustCompile(`[(\[]([A-Z][A-Za-z\-]+(?:\s+et\s+al\.)?(?:\s*&\s*[A-Z][A-Za-z\-]+)?(?:,\s*[A-Z][A-Za-z\-]+)*)\s*,\s*(\d{4}[a-z]?)[)\]]`)
	// [12], [1, 2, 3]
	numericRe = regexp.MustCompile(`\[(\d+(?:\s*,\s*\d+)*)\]`)

	sectionHeadRe  = regexp.MustCompile(`(?i)^\s*(references|bibliography|works\s+cited)\s*:?\s*$`)
	nextSectionRe  = regexp.MustCompile(`^[A-Z][A-Z0-9 ._-]{3,}$`)
	numberedItemRe = regexp.MustCompile(`^\s*\[\d+\]\s+`)

	quotedTitleRe = regexp.MustCompile(`"([^"]+)"|“([^”]+)”`)
	afterYearRe   = regexp.MustCompile(`\((\d{4}[a-z]?)\)\.?\s*(.+?)\.`)
	sentenceGapRe = regexp.MustCompile(`\.\s+`)
)

// minEntryLength drops bibliography fragments that are too short to be a reference
const minEntryLength = 20

// Pattern is one citation grammar. Patterns are pluggable: the parser runs
// each in turn and concatenates what they find.
type Pattern interface {
	Name() string
	Find(text string) []model.Citation
}

// Parser runs a set of patterns over text and de-duplicates by raw text
type Parser struct {
	patterns []Pattern
}

// NewParser creates a parser. With no patterns it uses DefaultPatterns.
func NewParser(patterns ...Pattern) *Parser {
	if len(patterns) == 0 {
		patterns = DefaultPatterns()
	}
	return &Parser{patterns: patterns}
}

// DefaultPatterns returns bibliography entries, author-year and numeric markers, in that order
func DefaultPatterns() []Pattern {
	return []Pattern{BibliographyPattern{}, AuthorYearPattern{}, NumericPattern{}}
}

// Parse returns every citation found, in pattern order then document order
func (p *Parser) Parse(text string) []model.Citation {
	citations := []model.Citation{}
	if strings.TrimSpace(text) == "" {
		return citations
	}

	seen := make(map[string]bool)
	for _, pattern := range p.patterns {
		for _, c := range pattern.Find(text) {
			key := strings.ToLower(strings.TrimSpace(c.Raw))
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			citations = append(citations, c)
		}
	}
	return citations
}

// BibliographyPattern reads entries from a References / Bibliography / Works Cited section
type BibliographyPattern struct{}

// Name returns the pattern identifier
func (BibliographyPattern) Name() string { return string(model.CitationKindBibliography) }

// Find returns one citation per bibliography entry. An entry is locally
// valid when it carries a DOI or a URL.
func (BibliographyPattern) Find(text string) []model.Citation {
	var citations []model.Citation
	for _, entry := range chunkReferences(referencesBlock(text)) {
		c := model.Citation{
			Raw:          entry,
			CleanedTitle: titleGuess(entry),
			DOI:          strings.TrimRight(doiRe.FindString(entry), "."),
			URL:          strings.TrimRight(urlRe.FindString(entry), ".,;"),
			Kind:         model.CitationKindBibliography,
		}
		c.Valid = c.DOI != "" || c.URL != ""
		citations = append(citations, c)
	}
	return citations
}

// AuthorYearPattern matches APA-like in-text citations
type AuthorYearPattern struct{}

// Name returns the pattern identifier
func (AuthorYearPattern) Name() string { return string(model.CitationKindAuthorYear) }

// Find returns every author-year marker in document order
func (AuthorYearPattern) Find(text string) []model.Citation {
	return markers(authorYearRe, text, model.CitationKindAuthorYear)
}

// NumericPattern matches bracketed numeric markers
type NumericPattern struct{}

// Name returns the pattern identifier
func (NumericPattern) Name() string { return string(model.CitationKindNumeric) }

// Find returns every numeric marker in document order
func (NumericPattern) Find(text string) []model.Citation {
	return markers(numericRe, text, model.CitationKindNumeric)
}

func markers(re *regexp.Regexp, text string, kind model.CitationKind) []model.Citation {
	var citations []model.Citation
	for _, raw := range re.FindAllString(text, -1) {
		citations = append(citations, model.Citation{Raw: raw, Kind: kind})
	}
	return citations
}

// referencesBlock returns the trimmed lines after the references heading,
// up to the next short ALL-CAPS heading.
func referencesBlock(text string) []string {
	lines := strings.Split(text, "\n")
	start := -1
	for i, ln := range lines {
		if sectionHeadRe.MatchString(ln) {
			start = i + 1
			break
		}
	}
	if start < 0 {
		return nil
	}

	var block []string
	for _, ln := range lines[start:] {
		ln = strings.TrimSpace(ln)
		if ln != "" && nextSectionRe.MatchString(ln) && len(strings.Fields(ln)) <= 6 {
			break
		}
		block = append(block, ln)
	}
	return block
}

// chunkReferences groups lines into entries; a blank line or an "[n] " prefix starts a new one
func chunkReferences(lines []string) []string {
	var entries, buf []string
	flush := func() {
		if len(buf) > 0 {
			entries = append(entries, strings.TrimSpace(strings.Join(buf, " ")))
			buf = nil
		}
	}

	for _, ln := range lines {
		switch {
		case ln == "":
			flush()
		case numberedItemRe.MatchString(ln):
			flush()
			buf = append(buf, ln)
		default:
			buf = append(buf, ln)
		}
	}
	flush()

	var kept []string
	for _, e := range entries {
		if len(e) > minEntryLength {
			kept = append(kept, e)
		}
	}
	return kept
}

// titleGuess picks a quoted title, else the text after "(YYYY).", else the second sentence
func titleGuess(ref string) string {
	cleaned := urlRe.ReplaceAllString(doiRe.ReplaceAllString(ref, ""), "")

	if m := quotedTitleRe.FindStringSubmatch(cleaned); m != nil {
		if m[1] != "" {
			return strings.TrimSpace(m[1])
		}
		return strings.TrimSpace(m[2])
	}

	if m := afterYearRe.FindStringSubmatch(cleaned); m != nil {
		return strings.TrimSpace(m[2])
	}

	var parts []string
	for _, p := range sentenceGapRe.Split(cleaned, -1) {
		if p = strings.TrimSpace(p); len(p) > 5 {
			parts = append(parts, p)
		}
	}
	switch {
	case len(parts) > 1:
		return parts[1]
	case len(parts) == 1:
		return parts[0]
	}
	if r := []rune(cleaned); len(r) > 120 {
		return strings.TrimSpace(string(r[:120]))
	}
	return strings.TrimSpace(cleaned)
}
