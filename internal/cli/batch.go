package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ppiankov/papercheck/internal/pipeline"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
	writeMD      bool
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Analyze many papers listed in a file",
	Long: `Batch reads sources (file paths or URLs, one per line; # starts a comment)
and analyzes them concurrently, writing one JSON report per source.

Example:
  papercheck batch papers.txt
  papercheck batch papers.txt --concurrency 4 --output-dir ./reports --md`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of papers analyzed at once (default: concurrency.documents)")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./papercheck-reports", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 30*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().BoolVar(&writeMD, "md", false, "also write a Markdown report per source")
	addServiceFlags(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]

	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if concurrency <= 0 {
		concurrency = cfg.Concurrency.Documents
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", concurrency)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(os.Stderr, "\n")

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
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

	processor := pipeline.NewBatchProcessor(p, concurrency)
	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	renderer := pipeline.NewRenderer()
	used := make(map[string]int)
	successCount, failureCount := 0, 0

	for _, result := range results {
		if result.Error != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.Source, result.Error)
			continue
		}

		slug := uniqueSlug(sanitizeFilename(result.Source), used)
		jsonPath := filepath.Join(outputDir, slug+".json")
		if err := renderer.RenderJSON(result.Result.Report, jsonPath); err != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write JSON: %v\n", result.Source, err)
			continue
		}
		if writeMD {
			if err := renderer.RenderMarkdown(*result.Result, filepath.Join(outputDir, slug+".md")); err != nil {
				failureCount++
				fmt.Fprintf(os.Stderr, "✗ %s: failed to write Markdown: %v\n", result.Source, err)
				continue
			}
		}

		successCount++
		fmt.Fprintf(os.Stderr, "✓ %s -> %s\n", result.Source, jsonPath)
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d sources\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", successCount)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failureCount)
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "\n")

	if successCount == 0 && failureCount > 0 {
		return fmt.Errorf("all %d sources failed", failureCount)
	}
	return nil
}

var filenameReplacer = strings.NewReplacer(
	"/", "_", "\\", "_", ":", "_", "*", "_", "?", "_",
	"\"", "_", "<", "_", ">", "_", "|", "_", " ", "-",
)

// sanitizeFilename turns a source path or URL into a report file stem
func sanitizeFilename(s string) string {
	if pipeline.IsURL(s) {
		s = strings.TrimPrefix(strings.TrimPrefix(s, "https://"), "http://")
	} else {
		s = filepath.Base(s)
		s = strings.TrimSuffix(s, filepath.Ext(s))
	}
	s = strings.Trim(filenameReplacer.Replace(s), "_-.")
	if s == "" {
		s = "report"
	}
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}

// uniqueSlug appends -2, -3... when slug was already used in this batch
func uniqueSlug(slug string, used map[string]int) string {
	used[slug]++
	if n := used[slug]; n > 1 {
		return fmt.Sprintf("%s-%d", slug, n)
	}
	return slug
}
