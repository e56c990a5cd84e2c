package extract

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractClaims_Empty(t *testing.T) {
	claims := ExtractClaims("")
	require.NotNil(t, claims)
	assert.Empty(t, claims)

	assert.Empty(t, ExtractClaims("   \n\t "))
}

func TestExtractClaims_AtMostFiveInOrder(t *testing.T) {
	var sentences []string
	for _, word := range []string{"alpha", "beta", "gamma", "delta", "epsilon", "zeta", "eta"} {
		sentences = append(sentences, "The "+word+" cohort showed a measurable improvement in recall after training.")
	}
	text := strings.Join(sentences, " ")

	claims := ExtractClaims(text)
	require.Len(t, claims, 5)

	for i, c := range claims {
		assert.Equal(t, sentences[i], c.Text)
		n := utf8.RuneCountInString(c.Text)
		assert.GreaterOrEqual(t, n, MinClaimLength)
		assert.LessOrEqual(t, n, MaxClaimLength)
	}
}

func TestExtractClaims_LengthBounds(t *testing.T) {
	short := "Study A [1] shows X."
	long := "This sentence " + strings.Repeat("keeps going and going ", 12) + "until it is far too long."
	ok := "Median latency dropped by forty percent after the cache was added."

	claims := ExtractClaims(short + " " + long + " " + ok)
	require.Len(t, claims, 1)
	assert.Equal(t, ok, claims[0].Text)
	assert.Equal(t, 2, claims[0].Sentence)
}

func TestExtractClaims_ShortSentencesYieldNothing(t *testing.T) {
	assert.Empty(t, ExtractClaims("Study A [1] shows X. Study B [2] shows Y."))
}

func TestExtractClaims_SkipsFrontMatter(t *testing.T) {
	text := "Abstract: we study the effects of sleep on memory in adults. " +
		"Participants who slept eight hours recalled more words the next day. " +
		"Keywords include memory, sleep, consolidation and recall tasks."

	claims := ExtractClaims(text)
	require.Len(t, claims, 1)
	assert.Contains(t, claims[0].Text, "Participants")
}

func TestClaimExtractor_MaxClaims(t *testing.T) {
	text := strings.Repeat("The treatment group improved noticeably over the control group. ", 4)

	assert.Len(t, NewClaimExtractor(2).Extract(text), 2)
	assert.Len(t, NewClaimExtractor(0).Extract(text), 4)
	assert.Len(t, NewClaimExtractor(50).Extract(text), 4)
}

func TestSplitSentences(t *testing.T) {
	got := SplitSentences("Accuracy rose to 93.5 percent. Did it generalize? Yes! trailing fragment")
	assert.Equal(t, []string{
		"Accuracy rose to 93.5 percent.",
		"Did it generalize?",
		"Yes!",
		"trailing fragment",
	}, got)

	assert.Empty(t, SplitSentences(""))
}

func TestNormalizeText(t *testing.T) {
	in := "“Quoted”  text\n\nwith—dashes and ﬁ ligature\t"
	assert.Equal(t, `"Quoted" text with-dashes and fi ligature`, NormalizeText(in))
}

func TestVisibleText(t *testing.T) {
	doc := `<html><head><title>t</title><style>p{}</style></head>
	<body><nav>Home</nav><p>First paragraph.</p><script>var x;</script><p>Second paragraph.</p></body></html>`

	text, err := VisibleText(doc)
	require.NoError(t, err)
	assert.Contains(t, text, "First paragraph.")
	assert.Contains(t, text, "Second paragraph.")
	assert.NotContains(t, text, "var x")
	assert.NotContains(t, text, "Home")
	assert.NotContains(t, text, "p{}")
}
