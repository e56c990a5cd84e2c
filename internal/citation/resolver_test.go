package citation

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/papercheck/internal/model"
)

func TestSemanticScholar_ByDOI(t *testing.T) {
	var gotKey, gotPath string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-api-key")
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"paperId":"p1","title":"Deep learning","year":2015,"venue":"Nature",
			"authors":[{"name":"Yann LeCun"},{"name":"Yoshua Bengio"}],"externalIds":{"DOI":"10.1038/nature14539"}}`))
	}))
	defer ts.Close()

	old := semanticAPIBase
	semanticAPIBase = ts.URL
	defer func() { semanticAPIBase = old }()

	r := NewSemanticScholarResolver(ts.Client(), nil, "ua", "secret")
	meta, err := r.Resolve(context.Background(), model.Citation{DOI: "https://doi.org/10.1038/nature14539"})
	require.NoError(t, err)

	assert.Equal(t, "secret", gotKey)
	assert.Equal(t, "/paper/DOI:10.1038/nature14539", gotPath)
	assert.Equal(t, "Deep learning", meta.Title)
	assert.Equal(t, []string{"Yann LeCun", "Yoshua Bengio"}, meta.Authors)
	assert.Equal(t, "Nature", meta.Venue)
	assert.Equal(t, "semantic_scholar", meta.Resolver)
}

func TestSemanticScholar_TitleMatch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/paper/search/match", r.URL.Path)
		if r.URL.Query().Get("query") == "Unrelated thing" {
			_, _ = w.Write([]byte(`{"data":[{"title":"Completely different paper"}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"data":[{"title":"Attention Is All You Need","year":2017}]}`))
	}))
	defer ts.Close()

	old := semanticAPIBase
	semanticAPIBase = ts.URL
	defer func() { semanticAPIBase = old }()

	r := NewSemanticScholarResolver(ts.Client(), nil, "ua", "")
	meta, err := r.Resolve(context.Background(), model.Citation{CleanedTitle: "Attention is all you need"})
	require.NoError(t, err)
	assert.Equal(t, 2017, meta.Year)

	_, err = r.Resolve(context.Background(), model.Citation{CleanedTitle: "Unrelated thing"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSemanticScholar_Errors(t *testing.T) {
	status := http.StatusNotFound
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	defer ts.Close()

	old := semanticAPIBase
	semanticAPIBase = ts.URL
	defer func() { semanticAPIBase = old }()

	r := NewSemanticScholarResolver(ts.Client(), nil, "ua", "")

	_, err := r.Resolve(context.Background(), model.Citation{DOI: "10.1/x"})
	assert.ErrorIs(t, err, ErrNotFound)

	status = http.StatusInternalServerError
	_, err = r.Resolve(context.Background(), model.Citation{DOI: "10.1/x"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)

	_, err = r.Resolve(context.Background(), model.Citation{Raw: "[1]"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpenAlex_ByDOIAndTitle(t *testing.T) {
	var mailto string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mailto = r.URL.Query().Get("mailto")
		if r.URL.Query().Get("search") != "" {
			_, _ = w.Write([]byte(`{"results":[{"display_name":"A survey of attention","publication_year":2019,
				"authorships":[{"author":{"display_name":"A. Jones"}}]}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"doi":"https://doi.org/10.1038/nature14539","title":"Deep learning","publication_year":2015,
			"primary_location":{"source":{"display_name":"Nature"}}}`))
	}))
	defer ts.Close()

	old := openAlexAPIBase
	openAlexAPIBase = ts.URL
	defer func() { openAlexAPIBase = old }()

	r := NewOpenAlexResolver(ts.Client(), nil, "ua", "me@example.org")

	meta, err := r.Resolve(context.Background(), model.Citation{DOI: "10.1038/nature14539"})
	require.NoError(t, err)
	assert.Equal(t, "me@example.org", mailto)
	assert.Equal(t, "10.1038/nature14539", meta.DOI)
	assert.Equal(t, "Nature", meta.Venue)
	assert.Equal(t, "openalex", meta.Resolver)

	meta, err = r.Resolve(context.Background(), model.Citation{CleanedTitle: "A survey of attention"})
	require.NoError(t, err)
	assert.Equal(t, "A survey of attention", meta.Title)
	assert.Equal(t, []string{"A. Jones"}, meta.Authors)
}

func TestOpenAlex_EmptyResults(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[]}`))
	}))
	defer ts.Close()

	old := openAlexAPIBase
	openAlexAPIBase = ts.URL
	defer func() { openAlexAPIBase = old }()

	_, err := NewOpenAlexResolver(ts.Client(), nil, "ua", "").Resolve(context.Background(), model.Citation{CleanedTitle: "x y z"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLinkChecker(t *testing.T) {
	linkSleepFunc = func(_ time.Duration) {}
	defer func() { linkSleepFunc = time.Sleep }()

	var flaky int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/head-not-allowed":
			if r.Method == http.MethodHead {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			w.WriteHeader(http.StatusOK)
		case "/flaky":
			if atomic.AddInt32(&flaky, 1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer ts.Close()

	checker := NewLinkChecker(ts.Client(), nil, "ua", 2)
	statuses := checker.Check(context.Background(), []string{
		ts.URL + "/ok", ts.URL + "/head-not-allowed", ts.URL + "/flaky", ts.URL + "/missing",
	})

	assert.True(t, statuses[ts.URL+"/ok"].Accessible)
	assert.True(t, statuses[ts.URL+"/head-not-allowed"].Accessible)
	assert.True(t, statuses[ts.URL+"/flaky"].Accessible)
	assert.True(t, statuses[ts.URL+"/missing"].Dead)
	assert.False(t, statuses[ts.URL+"/missing"].Accessible)
}
