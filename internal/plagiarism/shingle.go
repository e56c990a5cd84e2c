package plagiarism

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strings"

	"github.com/ppiankov/papercheck/internal/extract"
	"github.com/ppiankov/papercheck/internal/model"
)

// DefaultShingleSize is the word n-gram length used for shingling
const DefaultShingleSize = 7

const (
	minTextLength     = 200 // Shorter texts score 0
	minSentenceLength = 25  // Shorter sentences are boilerplate
	minSentences      = 5
)

var tokenRe = regexp.MustCompile(`[A-Za-z0-9']+`)

// ShingleScorer measures internal repetition: the share of word shingles that
// occur more than once. It needs no corpus and never leaves the process.
type ShingleScorer struct {
	size int
}

// NewShingleScorer creates a scorer using size-word shingles
func NewShingleScorer(size int) *ShingleScorer {
	if size <= 0 {
		size = DefaultShingleSize
	}
	return &ShingleScorer{size: size}
}

// Name returns the scorer identifier
func (s *ShingleScorer) Name() string { return "shingle" }

// Score returns duplicated shingle occurrences over all shingle occurrences
func (s *ShingleScorer) Score(_ context.Context, text string) (model.PlagiarismResult, error) {
	if len(text) < minTextLength {
		return model.SafePlagiarism(), nil
	}

	sentences := longSentences(text)
	if len(sentences) < minSentences {
		return model.SafePlagiarism(), nil
	}

	counts := make(map[string]int)
	total := 0
	for _, sentence := range sentences {
		for _, sh := range ngrams(tokenize(sentence), s.size) {
			counts[sh]++
			total++
		}
	}
	if total == 0 {
		return model.SafePlagiarism(), nil
	}

	dup := 0
	for _, n := range counts {
		if n > 1 {
			dup += n
		}
	}

	return model.PlagiarismResult{
		Score:           math.Min(1, float64(dup)/float64(total)),
		MatchingSources: []string{},
	}, nil
}

// Shingles returns the size-word shingles of every non-boilerplate sentence in text
func Shingles(text string, size int) []string {
	if size <= 0 {
		size = DefaultShingleSize
	}
	var out []string
	for _, sentence := range longSentences(text) {
		out = append(out, ngrams(tokenize(sentence), size)...)
	}
	return out
}

// HashShingles returns the distinct FNV-64a hashes of shingles
func HashShingles(shingles []string) []int64 {
	seen := make(map[int64]bool, len(shingles))
	var out []int64
	for _, sh := range shingles {
		h := fnv.New64a()
		_, _ = h.Write([]byte(sh))
		// SQLite integers are signed
		v := int64(h.Sum64())
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func longSentences(text string) []string {
	var out []string
	for _, s := range extract.SplitSentences(text) {
		if len(s) > minSentenceLength {
			out = append(out, s)
		}
	}
	return out
}

func tokenize(s string) []string {
	return tokenRe.FindAllString(strings.ToLower(s), -1)
}

func ngrams(tokens []string, n int) []string {
	if len(tokens) < n {
		return nil
	}
	out := make([]string, 0, len(tokens)-n+1)
	for i := 0; i+n <= len(tokens); i++ {
		out = append(out, strings.Join(tokens[i:i+n], " "))
	}
	return out
}
