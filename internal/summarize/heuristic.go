package summarize

import (
	"sort"
	"strings"

	"github.com/ppiankov/papercheck/internal/extract"
)

const (
	maxSummarySentences = 7
	minSentenceChars    = 10
	minScoredWords      = 5
)

var summaryKeywords = []string{
	"study", "result", "method", "conclude", "finding", "research",
	"analysis", "experiment", "data", "significant", "demonstrate",
	"propose", "novel", "approach", "framework", "model", "algorithm",
}

type scoredSentence struct {
	index int
	words int
	score int
}

// Heuristic builds an extractive summary of at most maxWords words: sentences
// are scored on research keywords, length and position, the best are kept and
// emitted in document order.
func Heuristic(text string, maxWords int) string {
	if maxWords <= 0 {
		maxWords = defaultMaxWords
	}

	var sentences []string
	for _, s := range extract.SplitSentences(extract.NormalizeText(text)) {
		if len(s) > minSentenceChars {
			sentences = append(sentences, s)
		}
	}
	if len(sentences) == 0 {
		return firstWords(text, maxWords)
	}

	n := float64(len(sentences))
	var scored []scoredSentence
	for i, s := range sentences {
		words := wordCount(s)
		if words < minScoredWords {
			continue
		}
		scored = append(scored, scoredSentence{index: i, words: words, score: scoreSentence(s, words, float64(i), n)})
	}
	sort.SliceStable(scored, func(a, b int) bool { return scored[a].score > scored[b].score })

	selected := make(map[int]bool)
	total := 0
	for _, s := range scored {
		if total+s.words <= maxWords {
			selected[s.index] = true
			total += s.words
		}
		if len(selected) >= maxSummarySentences || total >= maxWords*9/10 {
			break
		}
	}

	if len(selected) == 0 {
		for i := 0; i < len(sentences) && i < 3; i++ {
			selected[i] = true
		}
	}

	out := make([]string, 0, len(selected))
	for i, s := range sentences {
		if selected[i] {
			out = append(out, s)
		}
	}
	return firstWords(strings.Join(out, " "), maxWords)
}

func scoreSentence(sentence string, words int, idx, n float64) int {
	score := 0
	switch {
	case words >= 15 && words <= 30:
		score += 2
	case words >= 10 && words <= 40:
		score++
	}

	lower := strings.ToLower(sentence)
	for _, kw := range summaryKeywords {
		if strings.Contains(lower, kw) {
			score++
		}
	}

	if idx < n*0.2 || idx > n*0.8 {
		score++
	}
	return score
}
