package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/ppiankov/papercheck/internal/extract"
	"github.com/ppiankov/papercheck/internal/model"
)

// ErrUnsupportedSource is returned for sources whose format cannot be read
var ErrUnsupportedSource = errors.New("unsupported source")

// StdinSource names standard input as a source
const StdinSource = "-"

// PDFToTextCommand is the external binary used to extract PDF text (poppler-utils)
var PDFToTextCommand = "pdftotext"

// Loader turns a source (file path, URL or "-") into a document
type Loader struct {
	fetcher *Fetcher
	stdin   io.Reader
}

// NewLoader creates a loader. fetcher may be nil, in which case URL sources fail.
func NewLoader(fetcher *Fetcher) *Loader {
	return &Loader{fetcher: fetcher, stdin: os.Stdin}
}

// IsURL reports whether source is an http(s) URL
func IsURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// Load reads source and extracts its text
func (l *Loader) Load(ctx context.Context, source string) (model.Document, error) {
	source = strings.TrimSpace(source)

	switch {
	case source == StdinSource:
		data, err := io.ReadAll(l.stdin)
		if err != nil {
			return model.Document{}, fmt.Errorf("read stdin: %w", err)
		}
		text, err := decode(ctx, data, sniffKind(data, ""))
		if err != nil {
			return model.Document{}, err
		}
		return model.NewDocument("stdin", text), nil

	case IsURL(source):
		if l.fetcher == nil {
			return model.Document{}, fmt.Errorf("%s: %w: URL fetching disabled", source, ErrUnsupportedSource)
		}
		res, err := l.fetcher.FetchWithRetry(ctx, source)
		if err != nil {
			return model.Document{}, fmt.Errorf("fetch %s: %w", source, err)
		}
		kind := kindFromContentType(res.ContentType)
		if kind == "" {
			kind = kindFromExt(res.FinalURL)
		}
		if kind == "" {
			kind = sniffKind(res.Body, "")
		}
		text, err := decode(ctx, res.Body, kind)
		if err != nil {
			return model.Document{}, fmt.Errorf("%s: %w", source, err)
		}
		doc := model.NewDocument(res.FinalURL, text)
		doc.Title = res.Title
		return doc, nil
	}

	kind := kindFromExt(source)
	if kind == "" {
		return model.Document{}, fmt.Errorf("%s: %w", source, ErrUnsupportedSource)
	}

	var (
		text string
		err  error
	)
	if kind == kindPDF {
		text, err = pdfFileText(ctx, source)
	} else {
		var data []byte
		data, err = os.ReadFile(source)
		if err == nil {
			text, err = decode(ctx, data, kind)
		}
	}
	if err != nil {
		return model.Document{}, fmt.Errorf("load %s: %w", source, err)
	}

	doc := model.NewDocument(source, text)
	doc.Title = strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	return doc, nil
}

const (
	kindText = "text"
	kindHTML = "html"
	kindPDF  = "pdf"
)

func kindFromExt(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 && IsURL(path) {
		path = path[:i]
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".text", ".md", ".markdown", "":
		return kindText
	case ".html", ".htm", ".xhtml":
		return kindHTML
	case ".pdf":
		return kindPDF
	}
	return ""
}

func kindFromContentType(contentType string) string {
	switch {
	case contentType == "application/pdf":
		return kindPDF
	case contentType == "text/html", contentType == "application/xhtml+xml":
		return kindHTML
	case strings.HasPrefix(contentType, "text/"):
		return kindText
	}
	return ""
}

func sniffKind(data []byte, fallback string) string {
	head := bytes.TrimSpace(data[:min(len(data), 512)])
	switch {
	case bytes.HasPrefix(head, []byte("%PDF-")):
		return kindPDF
	case bytes.HasPrefix(bytes.ToLower(head), []byte("<!doctype html")), bytes.HasPrefix(bytes.ToLower(head), []byte("<html")):
		return kindHTML
	case fallback != "":
		return fallback
	}
	return kindText
}

func decode(ctx context.Context, data []byte, kind string) (string, error) {
	switch kind {
	case kindHTML:
		return extract.VisibleText(string(data))
	case kindPDF:
		return pdfBytesText(ctx, data)
	case kindText:
		return string(data), nil
	}
	return "", ErrUnsupportedSource
}

// pdfBytesText spools data to a temporary file for pdftotext
func pdfBytesText(ctx context.Context, data []byte) (string, error) {
	tmp, err := os.CreateTemp("", "papercheck-*.pdf")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return pdfFileText(ctx, tmp.Name())
}

func pdfFileText(ctx context.Context, path string) (string, error) {
	bin, err := exec.LookPath(PDFToTextCommand)
	if err != nil {
		return "", fmt.Errorf("%w: PDF input needs %s on PATH", ErrUnsupportedSource, PDFToTextCommand)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, "-enc", "UTF-8", path, "-")
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s: %w: %s", PDFToTextCommand, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}
