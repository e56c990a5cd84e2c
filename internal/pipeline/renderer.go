package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/papercheck/internal/analysis"
	"github.com/ppiankov/papercheck/internal/model"
)

// Renderer writes analysis results
type Renderer struct {
	stdout io.Writer
	stderr io.Writer
}

// NewRenderer creates a renderer writing to the process streams
func NewRenderer() *Renderer {
	return &Renderer{stdout: os.Stdout, stderr: os.Stderr}
}

// WriteJSON writes the report in its fixed JSON shape
func (r *Renderer) WriteJSON(w io.Writer, report model.AnalysisReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// RenderJSON writes the report to path; "" or "-" means stdout
func (r *Renderer) RenderJSON(report model.AnalysisReport, path string) error {
	if path == "" || path == "-" {
		return r.WriteJSON(r.stdout, report)
	}
	return writeFile(path, func(w io.Writer) error { return r.WriteJSON(w, report) })
}

// RenderMarkdown writes a human-readable report to path
func (r *Renderer) RenderMarkdown(result analysis.Result, path string) error {
	return writeFile(path, func(w io.Writer) error {
		_, err := io.WriteString(w, Markdown(result))
		return err
	})
}

// RenderSummary prints a short overview to stderr
func (r *Renderer) RenderSummary(result analysis.Result) {
	rep := result.Report
	valid := 0
	for _, c := range rep.Citations {
		if c.Valid {
			valid++
		}
	}
	name := result.Source
	if name == "" {
		name = result.DocumentID
	}

	fmt.Fprintf(r.stderr, "%s\n", name)
	fmt.Fprintf(r.stderr, "  citations:   %d (%d valid)\n", len(rep.Citations), valid)
	fmt.Fprintf(r.stderr, "  fact checks: %d\n", len(rep.FactChecks))
	fmt.Fprintf(r.stderr, "  plagiarism:  %.1f%%\n", rep.Plagiarism.Score*100)
	for _, st := range result.Components {
		if st.Degraded {
			fmt.Fprintf(r.stderr, "  ! %s degraded: %s\n", st.Name, st.Error)
		}
	}
}

// Markdown renders result as a Markdown document
func Markdown(result analysis.Result) string {
	rep := result.Report
	var b strings.Builder

	title := result.Source
	if title == "" {
		title = "Document"
	}
	fmt.Fprintf(&b, "# Analysis: %s\n\n", title)

	b.WriteString("## Summary\n\n")
	b.WriteString(rep.Summary)
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "## Plagiarism\n\nSimilarity score: **%.1f%%**\n\n", rep.Plagiarism.Score*100)
	if len(rep.Plagiarism.MatchingSources) > 0 {
		b.WriteString("Matching sources:\n\n")
		for _, s := range rep.Plagiarism.MatchingSources {
			fmt.Fprintf(&b, "- %s\n", s)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Citations\n\n")
	if len(rep.Citations) == 0 {
		b.WriteString("_None found._\n\n")
	} else {
		b.WriteString("| Reference | Valid |\n|---|---|\n")
		for _, c := range rep.Citations {
			mark := "no"
			if c.Valid {
				mark = "yes"
			}
			fmt.Fprintf(&b, "| %s | %s |\n", escapeCell(c.Reference), mark)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Fact Checks\n\n")
	if len(rep.FactChecks) == 0 {
		b.WriteString("_No checkable claims._\n\n")
	} else {
		b.WriteString("| Claim | Status |\n|---|---|\n")
		for _, f := range rep.FactChecks {
			fmt.Fprintf(&b, "| %s | %s |\n", escapeCell(f.Claim), f.Status)
		}
		b.WriteString("\n")
	}

	var degraded []analysis.ComponentStatus
	for _, st := range result.Components {
		if st.Degraded {
			degraded = append(degraded, st)
		}
	}
	if len(degraded) > 0 {
		b.WriteString("## Notes\n\n")
		for _, st := range degraded {
			fmt.Fprintf(&b, "- %s used its default result: %s\n", st.Name, st.Error)
		}
		b.WriteString("\n")
	}

	return b.String()
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", `\|`)
}

func writeFile(path string, write func(io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
