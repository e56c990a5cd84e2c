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

// openAlexAPIBase is the OpenAlex Works endpoint. Declared as a var so
// tests can substitute an httptest server.
var openAlexAPIBase = "https://api.openalex.org/works"

// OpenAlexResolver resolves citations against OpenAlex.
// Email is sent as the mailto parameter for polite pool access.
type OpenAlexResolver struct {
	apiClient
	email string
}

// NewOpenAlexResolver creates an OpenAlex resolver
func NewOpenAlexResolver(client *http.Client, limiter *worker.Limiter, userAgent, email string) *OpenAlexResolver {
	return &OpenAlexResolver{
		apiClient: apiClient{client: client, limiter: limiter, userAgent: userAgent},
		email:     email,
	}
}

// Name returns the resolver identifier
func (r *OpenAlexResolver) Name() string { return "openalex" }

// Resolve fetches the work by DOI when present, else takes the top title search hit
func (r *OpenAlexResolver) Resolve(ctx context.Context, c model.Citation) (*model.SourceMetadata, error) {
	params := url.Values{}
	if r.email != "" {
		params.Set("mailto", r.email)
	}

	var reqURL string
	switch {
	case c.DOI != "":
		reqURL = openAlexAPIBase + "/https://doi.org/" + bareDOI(c.DOI)
	case c.CleanedTitle != "":
		params.Set("search", c.CleanedTitle)
		params.Set("per_page", "1")
		reqURL = openAlexAPIBase
	default:
		return nil, ErrNotFound
	}
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := r.newRequest(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	resp, err := httputil.DoWithRetry(ctx, r.client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("OpenAlex API request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OpenAlex API returned HTTP %d", resp.StatusCode)
	}

	var work openAlexWork
	if c.DOI != "" {
		err = json.NewDecoder(resp.Body).Decode(&work)
	} else {
		var list openAlexResponse
		err = json.NewDecoder(resp.Body).Decode(&list)
		if err == nil {
			if len(list.Results) == 0 {
				return nil, ErrNotFound
			}
			work = list.Results[0]
		}
	}
	if err != nil {
		return nil, fmt.Errorf("parsing OpenAlex response: %w", err)
	}

	title := work.Title
	if title == "" {
		title = work.DisplayName
	}
	if c.DOI == "" && titleSimilarity(c.CleanedTitle, title) < minTitleSimilarity {
		return nil, ErrNotFound
	}

	meta := &model.SourceMetadata{
		Title:    title,
		Year:     work.PublicationYear,
		DOI:      strings.TrimPrefix(work.DOI, "https://doi.org/"),
		Resolver: r.Name(),
	}
	if work.PrimaryLocation.Source != nil {
		meta.Venue = work.PrimaryLocation.Source.DisplayName
	}
	for _, a := range work.Authorships {
		if a.Author.DisplayName != "" {
			meta.Authors = append(meta.Authors, a.Author.DisplayName)
		}
	}
	return meta, nil
}

type openAlexResponse struct {
	Results []openAlexWork `json:"results"`
}

type openAlexWork struct {
	ID              string               `json:"id"`
	DOI             string               `json:"doi"`
	Title           string               `json:"title"`
	DisplayName     string               `json:"display_name"`
	PublicationYear int                  `json:"publication_year"`
	Authorships     []openAlexAuthorship `json:"authorships"`
	PrimaryLocation openAlexLocation     `json:"primary_location"`
}

type openAlexAuthorship struct {
	Author struct {
		DisplayName string `json:"display_name"`
	} `json:"author"`
}

type openAlexLocation struct {
	Source *struct {
		DisplayName string `json:"display_name"`
	} `json:"source"`
}
