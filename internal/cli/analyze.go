package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ppiankov/papercheck/internal/model"
	"github.com/ppiankov/papercheck/internal/pipeline"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	outJSON     string
	outMD       string
	timeout     time.Duration
	noCache     bool
	noModel     bool
	llmProvider string
	llmModel    string
	httpProxy   string
	httpsProxy  string
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze <file|url|->",
	Short: "Analyze one paper and write its report",
	Long: `Analyze loads a paper and runs every check on it:
- .txt and .md files are read as-is, .html as visible text
- .pdf files are converted with pdftotext (poppler-utils)
- http(s) URLs are fetched, honoring robots.txt
- "-" reads standard input

The JSON report goes to stdout unless --json names a file.

Example:
  papercheck analyze paper.pdf
  papercheck analyze paper.txt --json report.json --md report.md
  papercheck analyze https://arxiv.org/pdf/1706.03762 --llm-provider openai`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVar(&outJSON, "json", "-", `output JSON path ("-" for stdout)`)
	analyzeCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path (optional)")
	analyzeCmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "overall analysis timeout")
	addServiceFlags(analyzeCmd)
}

// addServiceFlags registers the flags shared by analyze and batch
func addServiceFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable lookup cache")
	cmd.Flags().BoolVar(&noModel, "no-llm", false, "always use the heuristic summarizer")
	cmd.Flags().StringVar(&llmProvider, "llm-provider", "", "LLM provider for summaries (openai, anthropic, ollama)")
	cmd.Flags().StringVar(&llmModel, "llm-model", "", "LLM model name")
	cmd.Flags().StringVar(&httpProxy, "http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	cmd.Flags().StringVar(&httpsProxy, "https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")
}

// buildConfig loads the configuration and applies command-line overrides
func buildConfig(cmd *cobra.Command) (*model.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	if noCache {
		cfg.Cache.Enabled = false
	}
	if noModel {
		cfg.Summarizer.UseModel = false
	}
	if cmd.Flags().Changed("llm-provider") {
		cfg.LLM.Provider = llmProvider
		// The key for a different provider lives in a different variable
		cfg.LLM.APIKey = ""
		cfg.ApplyEnv(os.LookupEnv)
	}
	if cmd.Flags().Changed("llm-model") {
		cfg.LLM.Model = llmModel
	}
	if httpProxy != "" {
		cfg.HTTP.HTTPProxy = httpProxy
	}
	if httpsProxy != "" {
		cfg.HTTP.HTTPSProxy = httpsProxy
	}
	if verbose {
		cfg.Output.Verbose = true
	}
	return cfg, nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	source := args[0]

	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if verbose {
		fmt.Fprintf(os.Stderr, "Analyzing: %s\n", source)
		fmt.Fprintf(os.Stderr, "Timeout: %v\n", timeout)
		fmt.Fprintf(os.Stderr, "Cache: %v\n", cfg.Cache.Enabled)
		fmt.Fprintln(os.Stderr)
	}

	p, err := pipeline.NewPipeline(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("setup failed: %w", err)
	}
	defer func() {
		if err := p.Close(); err != nil {
			logger.Warn("close pipeline", zap.Error(err))
		}
	}()

	result, err := p.Analyze(ctx, source)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	if err := p.RenderReport(result, outJSON, outMD); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}
	return nil
}
