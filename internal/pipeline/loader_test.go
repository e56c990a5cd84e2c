package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoader_TextFile(t *testing.T) {
	path := writeTemp(t, "paper.txt", "Plain text paper.")
	doc, err := NewLoader(nil).Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "Plain text paper.", doc.Text)
	assert.Equal(t, path, doc.Source)
	assert.Equal(t, "paper", doc.Title)
	assert.NotEmpty(t, doc.ID)
}

func TestLoader_HTMLFile(t *testing.T) {
	path := writeTemp(t, "paper.html", "<html><head><title>x</title><script>var a=1;</script></head><body><p>Visible finding.</p></body></html>")
	doc, err := NewLoader(nil).Load(context.Background(), path)
	require.NoError(t, err)

	assert.Contains(t, doc.Text, "Visible finding.")
	assert.NotContains(t, doc.Text, "var a")
}

func TestLoader_Unsupported(t *testing.T) {
	path := writeTemp(t, "paper.docx", "binary")
	_, err := NewLoader(nil).Load(context.Background(), path)
	assert.ErrorIs(t, err, ErrUnsupportedSource)
}

func TestLoader_MissingFile(t *testing.T) {
	_, err := NewLoader(nil).Load(context.Background(), filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestLoader_Stdin(t *testing.T) {
	l := NewLoader(nil)
	l.stdin = strings.NewReader("<!DOCTYPE html><html><body>From a pipe.</body></html>")

	doc, err := l.Load(context.Background(), "-")
	require.NoError(t, err)
	assert.Equal(t, "stdin", doc.Source)
	assert.Contains(t, doc.Text, "From a pipe.")
}

func TestLoader_URLWithoutFetcher(t *testing.T) {
	_, err := NewLoader(nil).Load(context.Background(), "https://example.org/paper.pdf")
	assert.ErrorIs(t, err, ErrUnsupportedSource)
}

func TestLoader_URL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = fmt.Fprint(w, "<html><body><nav>menu</nav><article>Remote paper body.</article></body></html>")
	}))
	defer server.Close()

	l := NewLoader(NewFetcher(nil, "test-agent", 1<<20, nil, nil))
	doc, err := l.Load(context.Background(), server.URL+"/remote-paper")
	require.NoError(t, err)

	assert.Contains(t, doc.Text, "Remote paper body.")
	assert.NotContains(t, doc.Text, "menu")
	assert.Equal(t, "remote paper", doc.Title)
}

func TestLoader_PDFNeedsPDFToText(t *testing.T) {
	orig := PDFToTextCommand
	PDFToTextCommand = "papercheck-no-such-binary"
	defer func() { PDFToTextCommand = orig }()

	path := writeTemp(t, "paper.pdf", "%PDF-1.4")
	_, err := NewLoader(nil).Load(context.Background(), path)
	assert.ErrorIs(t, err, ErrUnsupportedSource)
}

func TestLoader_PDFInvalidFile(t *testing.T) {
	if _, err := exec.LookPath(PDFToTextCommand); err != nil {
		t.Skip("pdftotext not installed")
	}
	path := writeTemp(t, "broken.pdf", "not really a pdf")
	_, err := NewLoader(nil).Load(context.Background(), path)
	assert.Error(t, err)
}

func TestKindDetection(t *testing.T) {
	assert.Equal(t, kindPDF, kindFromExt("https://example.org/a.pdf?download=1"))
	assert.Equal(t, kindText, kindFromExt("notes.md"))
	assert.Equal(t, kindHTML, kindFromContentType("application/xhtml+xml"))
	assert.Equal(t, "", kindFromContentType("application/octet-stream"))
	assert.Equal(t, kindPDF, sniffKind([]byte("%PDF-1.7 ..."), ""))
	assert.Equal(t, kindText, sniffKind([]byte("hello"), ""))
}
