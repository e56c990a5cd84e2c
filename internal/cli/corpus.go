package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/ppiankov/papercheck/internal/pipeline"
	"github.com/ppiankov/papercheck/internal/plagiarism"
	"github.com/spf13/cobra"
)

var corpusPath string

// corpusCmd represents the corpus command
var corpusCmd = &cobra.Command{
	Use:   "corpus",
	Short: "Manage the local plagiarism reference corpus",
	Long: `The corpus is a SQLite database of reference documents stored as shingle
hashes. When plagiarism.corpus_path is set, papers are scored against it and
the best-matching documents are reported as matching sources.`,
}

var corpusAddCmd = &cobra.Command{
	Use:   "add <file>...",
	Short: "Add documents to the corpus",
	Long: `Add reads each file (text, HTML or PDF) and stores it under its file name.
A document with the same name is replaced.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		corpus, err := openCorpus(cfg.Plagiarism.CorpusPath)
		if err != nil {
			return err
		}
		defer func() { _ = corpus.Close() }()

		loader := pipeline.NewLoader(nil)
		failed := 0
		for _, path := range args {
			doc, err := loader.Load(ctx, path)
			if err != nil {
				failed++
				fmt.Fprintf(os.Stderr, "✗ %s: %v\n", path, err)
				continue
			}
			name := filepath.Base(path)
			n, err := corpus.Add(ctx, name, doc.Text, cfg.Plagiarism.ShingleSize)
			if err != nil {
				failed++
				fmt.Fprintf(os.Stderr, "✗ %s: %v\n", path, err)
				continue
			}
			fmt.Fprintf(os.Stderr, "✓ %s (%d shingles)\n", name, n)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d documents not added", failed, len(args))
		}
		return nil
	},
}

var corpusListCmd = &cobra.Command{
	Use:   "list",
	Short: "List corpus documents",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		corpus, err := openCorpus(cfg.Plagiarism.CorpusPath)
		if err != nil {
			return err
		}
		defer func() { _ = corpus.Close() }()

		docs, err := corpus.List(context.Background())
		if err != nil {
			return err
		}
		if len(docs) == 0 {
			fmt.Fprintln(os.Stderr, "Corpus is empty")
			return nil
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tSHINGLES\tADDED")
		for _, d := range docs {
			fmt.Fprintf(tw, "%s\t%d\t%s\n", d.Name, d.Shingles, d.AddedAt.Format("2006-01-02 15:04"))
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(corpusCmd)
	corpusCmd.AddCommand(corpusAddCmd)
	corpusCmd.AddCommand(corpusListCmd)

	corpusCmd.PersistentFlags().StringVar(&corpusPath, "corpus", "", "corpus database path (default: plagiarism.corpus_path)")
}

func openCorpus(configured string) (*plagiarism.Corpus, error) {
	path := strings.TrimSpace(corpusPath)
	if path == "" {
		path = configured
	}
	if path == "" {
		return nil, fmt.Errorf("no corpus configured: set plagiarism.corpus_path or pass --corpus")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create corpus directory: %w", err)
		}
	}
	return plagiarism.OpenCorpus(path)
}
