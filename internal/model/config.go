package model

import (
	"time"
)

// Config holds process-wide configuration read once at startup.
// Components receive the section they need at construction time.
type Config struct {
	HTTP         HTTPConfig        `yaml:"http" mapstructure:"http"`
	Cache        CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Concurrency  ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimiting RateLimitConfig   `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	LLM          LLMConfig         `yaml:"llm" mapstructure:"llm"`
	Citations    CitationConfig    `yaml:"citations" mapstructure:"citations"`
	FactCheck    FactCheckConfig   `yaml:"fact_check" mapstructure:"fact_check"`
	Plagiarism   PlagiarismConfig  `yaml:"plagiarism" mapstructure:"plagiarism"`
	Summarizer   SummarizerConfig  `yaml:"summarizer" mapstructure:"summarizer"`
	Analysis     AnalysisConfig    `yaml:"analysis" mapstructure:"analysis"`
	Output       OutputConfig      `yaml:"output" mapstructure:"output"`
}

// HTTPConfig holds settings shared by every outbound HTTP client
type HTTPConfig struct {
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	HTTPProxy     string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy    string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy       string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
}

// CacheConfig controls caching of external lookups
type CacheConfig struct {
	Enabled       bool          `yaml:"enabled" mapstructure:"enabled"`
	Backend       string        `yaml:"backend" mapstructure:"backend"` // memory, layered, redis
	MemoryTTL     time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL       time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
	Directory     string        `yaml:"directory" mapstructure:"directory"`
	RedisAddr     string        `yaml:"redis_addr,omitempty" mapstructure:"redis_addr"`
	RedisPassword string        `yaml:"redis_password,omitempty" mapstructure:"redis_password"`
	RedisDB       int           `yaml:"redis_db" mapstructure:"redis_db"`
}

// ConcurrencyConfig bounds parallelism
type ConcurrencyConfig struct {
	Components    int `yaml:"components" mapstructure:"components"`         // Parallel sub-analyses per document (1 = sequential)
	LookupWorkers int `yaml:"lookup_workers" mapstructure:"lookup_workers"` // Parallel external lookups per sub-analysis
	Documents     int `yaml:"documents" mapstructure:"documents"`           // Parallel documents in batch mode
}

// RateLimitConfig paces calls to each external host
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// LLMConfig configures the optional abstractive summarization model
type LLMConfig struct {
	Provider       string `yaml:"provider" mapstructure:"provider"` // openai, anthropic, ollama, "" (disabled)
	Model          string `yaml:"model" mapstructure:"model"`
	APIKey         string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL        string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout        int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	StrictEvidence bool   `yaml:"strict_evidence" mapstructure:"strict_evidence"`
	MaxTokens      int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// CitationConfig configures citation metadata resolution
type CitationConfig struct {
	SemanticScholarAPIKey string        `yaml:"semantic_scholar_api_key,omitempty" mapstructure:"semantic_scholar_api_key"`
	OpenAlexEmail         string        `yaml:"openalex_email,omitempty" mapstructure:"openalex_email"`
	MaxLookups            int           `yaml:"max_lookups" mapstructure:"max_lookups"`
	LookupTimeout         time.Duration `yaml:"lookup_timeout" mapstructure:"lookup_timeout"`
	CheckLinks            bool          `yaml:"check_links" mapstructure:"check_links"` // Check reference URLs that have no DOI
}

// Configured reports whether any metadata resolver has credentials
func (c CitationConfig) Configured() bool {
	return c.SemanticScholarAPIKey != "" || c.OpenAlexEmail != ""
}

// FactCheckConfig configures the external fact-check service
type FactCheckConfig struct {
	APIKey             string        `yaml:"api_key,omitempty" mapstructure:"api_key"`
	ServiceAccountFile string        `yaml:"service_account_file,omitempty" mapstructure:"service_account_file"`
	LanguageCode       string        `yaml:"language_code" mapstructure:"language_code"`
	MaxClaims          int           `yaml:"max_claims" mapstructure:"max_claims"`
	LookupTimeout      time.Duration `yaml:"lookup_timeout" mapstructure:"lookup_timeout"`
}

// Configured reports whether a credential for the fact-check service is present
func (c FactCheckConfig) Configured() bool {
	return c.APIKey != "" || c.ServiceAccountFile != ""
}

// PlagiarismConfig selects and tunes the plagiarism scorer
type PlagiarismConfig struct {
	ServiceURL  string  `yaml:"service_url,omitempty" mapstructure:"service_url"` // External similarity service
	CorpusPath  string  `yaml:"corpus_path,omitempty" mapstructure:"corpus_path"` // SQLite reference corpus
	ShingleSize int     `yaml:"shingle_size" mapstructure:"shingle_size"`
	MinOverlap  float64 `yaml:"min_overlap" mapstructure:"min_overlap"` // Minimum per-source overlap to list a match
}

// SummarizerConfig tunes the summarizer
type SummarizerConfig struct {
	UseModel   bool `yaml:"use_model" mapstructure:"use_model"`
	ChunkChars int  `yaml:"chunk_chars" mapstructure:"chunk_chars"`
	MaxWords   int  `yaml:"max_words" mapstructure:"max_words"`
}

// AnalysisConfig tunes the orchestrator
type AnalysisConfig struct {
	ComponentTimeout time.Duration `yaml:"component_timeout" mapstructure:"component_timeout"`
}

// OutputConfig controls CLI output and logging
type OutputConfig struct {
	Verbose   bool   `yaml:"verbose" mapstructure:"verbose"`
	LogLevel  string `yaml:"log_level" mapstructure:"log_level"`
	LogFormat string `yaml:"log_format" mapstructure:"log_format"` // console, json
}

// DefaultConfig returns sensible defaults: every external service disabled
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout:       30 * time.Second,
			UserAgent:     "papercheck/0.1 (+https://github.com/ppiankov/papercheck)",
			MaxBodyBytes:  10_000_000,
			RespectRobots: true,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Backend:   "memory",
			MemoryTTL: 1 * time.Hour,
			DiskTTL:   7 * 24 * time.Hour,
			Directory: ".papercheck-cache",
		},
		Concurrency: ConcurrencyConfig{
			Components:    4,
			LookupWorkers: 4,
			Documents:     2,
		},
		RateLimiting: RateLimitConfig{
			RequestsPerSecond: 2,
			BurstSize:         2,
		},
		LLM: LLMConfig{
			Timeout:        60,
			StrictEvidence: true,
			MaxTokens:      400,
		},
		Citations: CitationConfig{
			MaxLookups:    25,
			LookupTimeout: 10 * time.Second,
		},
		FactCheck: FactCheckConfig{
			LanguageCode:  "en",
			MaxClaims:     5,
			LookupTimeout: 10 * time.Second,
		},
		Plagiarism: PlagiarismConfig{
			ShingleSize: 7,
			MinOverlap:  0.02,
		},
		Summarizer: SummarizerConfig{
			UseModel:   true,
			ChunkChars: 6000,
			MaxWords:   200,
		},
		Analysis: AnalysisConfig{
			ComponentTimeout: 90 * time.Second,
		},
		Output: OutputConfig{
			LogLevel:  "info",
			LogFormat: "console",
		},
	}
}

// ApplyEnv fills credentials from well-known environment variables.
// Values already set (config file, flags) take precedence.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	first := func(keys ...string) string {
		for _, k := range keys {
			if v, ok := lookup(k); ok && v != "" {
				return v
			}
		}
		return ""
	}
	fill := func(dst *string, keys ...string) {
		if *dst == "" {
			*dst = first(keys...)
		}
	}

	switch c.LLM.Provider {
	case "openai":
		fill(&c.LLM.APIKey, "OPENAI_API_KEY")
	case "anthropic", "claude":
		fill(&c.LLM.APIKey, "ANTHROPIC_API_KEY")
	case "ollama":
		fill(&c.LLM.BaseURL, "OLLAMA_BASE_URL")
	}

	fill(&c.Citations.SemanticScholarAPIKey, "SEMANTIC_SCHOLAR_API_KEY")
	fill(&c.Citations.OpenAlexEmail, "OPENALEX_EMAIL")

	fill(&c.FactCheck.APIKey, "GOOGLE_FACT_CHECK_API_KEY", "GOOGLE_API_KEY", "FACTCHECK_API_KEY")
	fill(&c.FactCheck.ServiceAccountFile,
		"FACTCHECK_SERVICE_ACCOUNT", "GOOGLE_FACTCHECK_SERVICE_ACCOUNT_FILE", "GOOGLE_APPLICATION_CREDENTIALS")

	fill(&c.Cache.RedisAddr, "REDIS_ADDR")
	fill(&c.Cache.RedisPassword, "REDIS_PASSWORD")
}
