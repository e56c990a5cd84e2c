// Package extract turns raw document text into sentences and checkable claims.
package extract

import (
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/papercheck/internal/model"
)

// Claim length bounds in characters, inclusive
const (
	MinClaimLength = 40
	MaxClaimLength = 220
	MaxClaims      = 5
)

// ClaimExtractor picks short declarative sentences worth fact-checking
type ClaimExtractor struct {
	maxClaims int
	skipWords []string
}

// NewClaimExtractor creates a claim extractor returning at most maxClaims claims
// (MaxClaims when maxClaims is not positive).
func NewClaimExtractor(maxClaims int) *ClaimExtractor {
	if maxClaims <= 0 || maxClaims > MaxClaims {
		maxClaims = MaxClaims
	}
	return &ClaimExtractor{
		maxClaims: maxClaims,
		// Front and back matter rarely states a finding
		skipWords: []string{"abstract", "keywords", "references", "appendix"},
	}
}

// Extract returns claims in document order. Empty text yields an empty slice.
func (e *ClaimExtractor) Extract(text string) []model.Claim {
	claims := []model.Claim{}
	if strings.TrimSpace(text) == "" {
		return claims
	}

	for i, sentence := range SplitSentences(NormalizeText(text)) {
		n := utf8.RuneCountInString(sentence)
		if n < MinClaimLength || n > MaxClaimLength {
			continue
		}
		if e.isFrontMatter(sentence) {
			continue
		}

		claims = append(claims, model.Claim{Text: sentence, Sentence: i})
		if len(claims) >= e.maxClaims {
			break
		}
	}

	return claims
}

func (e *ClaimExtractor) isFrontMatter(sentence string) bool {
	lower := strings.ToLower(sentence)
	for _, w := range e.skipWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// ExtractClaims extracts at most MaxClaims claims with the default extractor
func ExtractClaims(text string) []model.Claim {
	return NewClaimExtractor(MaxClaims).Extract(text)
}
