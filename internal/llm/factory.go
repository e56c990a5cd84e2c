package llm

import (
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/papercheck/internal/model"
	"github.com/ppiankov/papercheck/internal/util"
	"go.uber.org/zap"
)

// NewProvider creates a provider for config.Provider.
// An empty provider name returns ErrNoProvider.
func NewProvider(config Config) (Provider, error) {
	var (
		provider Provider
		err      error
	)
	switch strings.ToLower(strings.TrimSpace(config.Provider)) {
	case "openai":
		provider, err = NewOpenAIProvider(config)
	case "anthropic", "claude":
		provider, err = NewAnthropicProvider(config)
	case "ollama":
		provider, err = NewOllamaProvider(config)
	case "":
		return nil, ErrNoProvider
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai, anthropic, ollama)", config.Provider)
	}
	if err != nil {
		return nil, err
	}
	return provider, nil
}

// ConfigFromModel converts the llm and http config sections to a provider Config
func ConfigFromModel(llmCfg model.LLMConfig, httpCfg model.HTTPConfig, logger *zap.Logger) Config {
	cfg := Config{
		Provider:       llmCfg.Provider,
		Model:          llmCfg.Model,
		APIKey:         llmCfg.APIKey,
		BaseURL:        llmCfg.BaseURL,
		Timeout:        llmCfg.Timeout,
		StrictEvidence: llmCfg.StrictEvidence,
		MaxTokens:      llmCfg.MaxTokens,
		Logger:         logger,
	}
	cfg.HTTPClient = util.NewHTTPClient(httpCfg, cfg.timeout(60*time.Second))
	return cfg
}
