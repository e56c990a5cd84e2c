// Package llm wraps the language-model backends used for abstractive summaries.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrNoProvider is returned when no model backend is configured
var ErrNoProvider = errors.New("no LLM provider configured")

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Summarize condenses a passage of paper text
	Summarize(ctx context.Context, req SummarizeRequest) (*SummarizeResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// SummarizeRequest contains the input for LLM summarization
type SummarizeRequest struct {
	// Text is the passage to summarize
	Text string

	// AllowedURLs lists the only URLs the model may mention, normally the
	// links that appear in the paper itself
	AllowedURLs []string

	// Prompt overrides the default prompt built from Text
	Prompt string

	// Model overrides the configured model
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// SummarizeResponse contains the model's summary output
type SummarizeResponse struct {
	Summary    string
	CitedURLs  []string // URLs found in the summary
	Model      string
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama", ""
	Provider string

	Model   string
	APIKey  string
	BaseURL string

	// Timeout for a single request, in seconds
	Timeout int

	// StrictEvidence rejects summaries citing URLs outside AllowedURLs
	StrictEvidence bool

	MaxTokens int

	// HTTPClient carries proxy settings; nil means a plain client with Timeout
	HTTPClient *http.Client

	Logger *zap.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Timeout:        60,
		StrictEvidence: true,
		MaxTokens:      400,
	}
}

func (c Config) timeout(fallback time.Duration) time.Duration {
	if c.Timeout <= 0 {
		return fallback
	}
	return time.Duration(c.Timeout) * time.Second
}

func (c Config) maxTokens(override int) int {
	if override > 0 {
		return override
	}
	if c.MaxTokens > 0 {
		return c.MaxTokens
	}
	return 400
}

func (c Config) httpClient(fallback time.Duration) *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: c.timeout(fallback)}
}

const systemPrompt = "You summarize research papers for reviewers. Report what the paper claims and how it supports those claims. Do not add facts, sources or opinions that are not in the text."

// BuildPrompt constructs the default summarization prompt for a passage
func BuildPrompt(text string, allowedURLs []string) string {
	var b strings.Builder
	b.WriteString("Summarize the following research paper excerpt in one paragraph of at most 150 words.\n\n")
	b.WriteString("RULES:\n")
	b.WriteString("1. Cover the research question, the method, and the main findings.\n")
	b.WriteString("2. Only mention URLs from this list:")
	b.WriteString(joinURLs(allowedURLs))
	b.WriteString("\n3. If the excerpt does not state a finding, do not invent one.\n\n")
	b.WriteString("EXCERPT:\n")
	b.WriteString(text)
	return b.String()
}

func joinURLs(urls []string) string {
	if len(urls) == 0 {
		return " (none, do not mention any URL)"
	}
	var b strings.Builder
	for i, u := range urls {
		if i >= 20 {
			fmt.Fprintf(&b, "\n... and %d more URLs", len(urls)-20)
			break
		}
		b.WriteString("\n- ")
		b.WriteString(u)
	}
	return b.String()
}

var urlPattern = regexp.MustCompile(`https?://[^\s\)\]>"]+`)

// ExtractURLs returns the distinct URLs in text, trailing punctuation trimmed
func ExtractURLs(text string) []string {
	seen := make(map[string]bool)
	var unique []string
	for _, u := range urlPattern.FindAllString(text, -1) {
		u = strings.TrimRight(u, ".,;:!?")
		if !seen[u] {
			seen[u] = true
			unique = append(unique, u)
		}
	}
	return unique
}

// checkCitations returns the URLs in summary, or an error when strict mode is on
// and one of them is not allowed
func checkCitations(summary string, allowed []string, strict bool) ([]string, error) {
	cited := ExtractURLs(summary)
	if !strict {
		return cited, nil
	}
	for _, u := range cited {
		if !contains(allowed, u) {
			return nil, fmt.Errorf("summary cites URL not present in the paper: %s", u)
		}
	}
	return cited, nil
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
