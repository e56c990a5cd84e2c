package extract

import (
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

// NormalizeText applies NFKC, maps typographic quotes and dashes to ASCII and
// collapses runs of whitespace (newlines included) to single spaces.
func NormalizeText(text string) string {
	text = norm.NFKC.String(text)
	text = typography.Replace(text)

	var buf strings.Builder
	buf.Grow(len(text))
	space := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if unicode.IsControl(r) {
			continue
		}
		if space && buf.Len() > 0 {
			buf.WriteByte(' ')
		}
		space = false
		buf.WriteRune(r)
	}
	return buf.String()
}

var typography = strings.NewReplacer(
	"\u2018", "'", "\u2019", "'",
	"\u201c", `"`, "\u201d", `"`,
	"\u2013", "-", "\u2014", "-",
	"\u00ad", "",
)

// VisibleText extracts the text a reader would see in an HTML document,
// skipping scripts, styles and navigation chrome. Block elements end a line.
func VisibleText(htmlContent string) (string, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return "", err
	}

	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe", "nav", "footer", "head":
				return
			}
		}

		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				buf.WriteString(text)
				buf.WriteString(" ")
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}

		if n.Type == html.ElementNode && isBlock(n.Data) {
			buf.WriteString("\n")
		}
	}

	walk(doc)
	return strings.TrimSpace(buf.String()), nil
}

func isBlock(tag string) bool {
	switch tag {
	case "p", "div", "li", "h1", "h2", "h3", "h4", "h5", "h6", "br", "tr", "section", "article", "blockquote", "pre":
		return true
	}
	return false
}

// SplitSentences splits text on '.', '!' and '?' followed by whitespace or the
// end of input. Decimals ("3.5") and tight abbreviations ("e.g.") stay intact.
// Fragments are trimmed; empty ones are dropped.
func SplitSentences(text string) []string {
	var sentences []string
	runes := []rune(text)
	start := 0

	for i, r := range runes {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
			sentences = append(sentences, s)
		}
		start = i + 1
	}

	if start < len(runes) {
		if s := strings.TrimSpace(string(runes[start:])); s != "" {
			sentences = append(sentences, s)
		}
	}

	return sentences
}
