package citation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ppiankov/papercheck/internal/httputil"
	"github.com/ppiankov/papercheck/internal/model"
	"github.com/ppiankov/papercheck/internal/worker"
)

// semanticAPIBase is the Semantic Scholar Graph API root. Declared as a var
// so tests can substitute an httptest server.
var semanticAPIBase = "https://api.semanticscholar.org/graph/v1"

const semanticFields = "title,authors,year,venue,externalIds"

// SemanticScholarResolver resolves citations by DOI or best title match
type SemanticScholarResolver struct {
	apiClient
	apiKey string
}

// NewSemanticScholarResolver creates a resolver authenticated with apiKey
func NewSemanticScholarResolver(client *http.Client, limiter *worker.Limiter, userAgent, apiKey string) *SemanticScholarResolver {
	return &SemanticScholarResolver{
		apiClient: apiClient{client: client, limiter: limiter, userAgent: userAgent},
		apiKey:    apiKey,
	}
}

// Name returns the resolver identifier
func (r *SemanticScholarResolver) Name() string { return "semantic_scholar" }

// Resolve looks the citation up by DOI when present, else by title
func (r *SemanticScholarResolver) Resolve(ctx context.Context, c model.Citation) (*model.SourceMetadata, error) {
	var reqURL string
	switch {
	case c.DOI != "":
		reqURL = semanticAPIBase + "/paper/DOI:" + url.PathEscape(bareDOI(c.DOI)) + "?fields=" + semanticFields
	case c.CleanedTitle != "":
		params := url.Values{"query": {c.CleanedTitle}, "fields": {semanticFields}}
		reqURL = semanticAPIBase + "/paper/search/match?" + params.Encode()
	default:
		return nil, ErrNotFound
	}

	req, err := r.newRequest(ctx, reqURL)
	if err != nil {
		return nil, err
	}
	if r.apiKey != "" {
		req.Header.Set("x-api-key", r.apiKey)
	}

	resp, err := httputil.DoWithRetry(ctx, r.client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("Semantic Scholar API request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Semantic Scholar API returned HTTP %d", resp.StatusCode)
	}

	var paper semanticPaper
	if c.DOI != "" {
		err = json.NewDecoder(resp.Body).Decode(&paper)
	} else {
		var match semanticMatchResponse
		err = json.NewDecoder(resp.Body).Decode(&match)
		if err == nil {
			if len(match.Data) == 0 {
				return nil, ErrNotFound
			}
			paper = match.Data[0]
		}
	}
	if err != nil {
		return nil, fmt.Errorf("parsing Semantic Scholar response: %w", err)
	}

	if c.DOI == "" && titleSimilarity(c.CleanedTitle, paper.Title) < minTitleSimilarity {
		return nil, ErrNotFound
	}

	meta := &model.SourceMetadata{
		Title:    paper.Title,
		Year:     paper.Year,
		Venue:    strings.TrimSpace(paper.Venue),
		DOI:      paper.ExternalIDs.DOI,
		Resolver: r.Name(),
	}
	for _, a := range paper.Authors {
		meta.Authors = append(meta.Authors, a.Name)
	}
	return meta, nil
}

type semanticMatchResponse struct {
	Data []semanticPaper `json:"data"`
}

type semanticPaper struct {
	PaperID     string              `json:"paperId"`
	Title       string              `json:"title"`
	Year        int                 `json:"year"`
	Venue       string              `json:"venue"`
	Authors     []semanticAuthor    `json:"authors"`
	ExternalIDs semanticExternalIDs `json:"externalIds"`
}

type semanticAuthor struct {
	Name string `json:"name"`
}

type semanticExternalIDs struct {
	DOI string `json:"DOI"`
}
