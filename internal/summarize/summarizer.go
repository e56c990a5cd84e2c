// Package summarize produces a paper summary with a language model when one is
// configured, and an extractive heuristic summary otherwise.
package summarize

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/papercheck/internal/llm"
	"github.com/ppiankov/papercheck/internal/logging"
	"github.com/ppiankov/papercheck/internal/model"
	"go.uber.org/zap"
)

const (
	// MinModelChars is the shortest text worth summarizing; shorter text is its own summary
	MinModelChars = 100

	minChunkChars     = 50
	maxCombinedWords  = 250
	defaultChunkChars = 6000
	defaultMaxWords   = 200
)

// Summarizer condenses document text
type Summarizer struct {
	provider llm.Provider
	config   model.SummarizerConfig
	logger   *zap.Logger
}

// New creates a summarizer. provider may be nil, in which case only the
// heuristic path is used.
func New(provider llm.Provider, config model.SummarizerConfig, logger *zap.Logger) *Summarizer {
	if config.ChunkChars <= 0 {
		config.ChunkChars = defaultChunkChars
	}
	if config.MaxWords <= 0 {
		config.MaxWords = defaultMaxWords
	}
	return &Summarizer{
		provider: provider,
		config:   config,
		logger:   logging.OrNop(logger),
	}
}

// ProviderName returns the model backend name, or "" when only the heuristic runs
func (s *Summarizer) ProviderName() string {
	if !s.modelEnabled() {
		return ""
	}
	return s.provider.Name()
}

func (s *Summarizer) modelEnabled() bool {
	return s.provider != nil && s.config.UseModel
}

// Summarize returns a non-empty summary for non-empty text and the
// "no content" placeholder for blank text. It never fails: model errors and
// timeouts fall back to the heuristic.
func (s *Summarizer) Summarize(ctx context.Context, text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.SummaryNoContent
	}
	if len(text) < MinModelChars {
		return text
	}

	if s.modelEnabled() {
		start := time.Now()
		summary, err := s.abstractive(ctx, text)
		if err == nil {
			s.logger.Debug("model summary generated",
				zap.String("provider", s.provider.Name()),
				zap.Duration("elapsed", time.Since(start)))
			return summary
		}
		s.logger.Warn("model summary failed, using heuristic",
			zap.String("provider", s.provider.Name()),
			zap.Error(err))
	}

	return Heuristic(text, s.config.MaxWords)
}

// abstractive summarizes each chunk with the model, then condenses the
// combined result if it is still long
func (s *Summarizer) abstractive(ctx context.Context, text string) (string, error) {
	allowed := llm.ExtractURLs(text)

	var parts []string
	for i, chunk := range Chunk(text, s.config.ChunkChars) {
		if len(chunk) < minChunkChars {
			continue
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}
		resp, err := s.provider.Summarize(ctx, llm.SummarizeRequest{Text: chunk, AllowedURLs: allowed})
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			s.logger.Warn("chunk summary failed", zap.Int("chunk", i), zap.Error(err))
			continue
		}
		if summary := strings.TrimSpace(resp.Summary); summary != "" {
			parts = append(parts, summary)
		}
	}
	if len(parts) == 0 {
		return "", errors.New("no chunk produced a summary")
	}

	combined := strings.Join(parts, " ")
	if len(parts) == 1 || wordCount(combined) <= maxCombinedWords {
		return combined, nil
	}

	resp, err := s.provider.Summarize(ctx, llm.SummarizeRequest{
		Prompt:      condensePrompt(combined, allowed),
		AllowedURLs: allowed,
	})
	if err != nil || strings.TrimSpace(resp.Summary) == "" {
		s.logger.Warn("condensing combined summary failed, truncating", zap.Error(err))
		return firstWords(combined, s.config.MaxWords), nil
	}
	return strings.TrimSpace(resp.Summary), nil
}

func condensePrompt(combined string, allowed []string) string {
	return fmt.Sprintf("The following are summaries of consecutive sections of one research paper. "+
		"Merge them into a single summary of at most %d words.\n\n%s",
		defaultMaxWords, llm.BuildPrompt(combined, allowed))
}

// Chunk splits text on blank lines into pieces of at most maxChars.
// A single paragraph longer than maxChars becomes its own chunk.
func Chunk(text string, maxChars int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if maxChars <= 0 || len(text) <= maxChars {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if current.Len() > 0 && current.Len()+len(para)+2 > maxChars {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}

func firstWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}
