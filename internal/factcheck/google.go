package factcheck

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/ppiankov/papercheck/internal/httputil"
	"github.com/ppiankov/papercheck/internal/model"
	"github.com/ppiankov/papercheck/internal/worker"
)

// factCheckAPIBase is the Fact Check Tools claim search endpoint. Declared
// as a var so tests can substitute an httptest server.
var factCheckAPIBase = "https://factchecktools.googleapis.com/v1alpha1/claims:search"

const factCheckScope = "https://www.googleapis.com/auth/factchecktools"

// GoogleClient searches published fact checks with the Google Fact Check Tools API
type GoogleClient struct {
	client       *http.Client
	limiter      *worker.Limiter
	userAgent    string
	apiKey       string
	languageCode string
}

// NewGoogleClient creates a client from config. An API key is used when set;
// otherwise the service account file authenticates through OAuth2.
// With neither it returns ErrNotConfigured.
func NewGoogleClient(ctx context.Context, cfg model.FactCheckConfig, base *http.Client, limiter *worker.Limiter, userAgent string) (*GoogleClient, error) {
	if base == nil {
		base = http.DefaultClient
	}

	g := &GoogleClient{
		client:       base,
		limiter:      limiter,
		userAgent:    userAgent,
		apiKey:       cfg.APIKey,
		languageCode: cfg.LanguageCode,
	}

	switch {
	case cfg.APIKey != "":
		return g, nil
	case cfg.ServiceAccountFile != "":
		data, err := os.ReadFile(cfg.ServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		creds, err := google.CredentialsFromJSON(ctx, data, factCheckScope)
		if err != nil {
			return nil, fmt.Errorf("parse service account: %w", err)
		}
		// Token refreshes go through the same proxy-aware transport
		oauthCtx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
		g.client = oauth2.NewClient(oauthCtx, creds.TokenSource)
		g.client.Timeout = base.Timeout
		return g, nil
	}
	return nil, ErrNotConfigured
}

// Search returns the published reviews matching claim
func (g *GoogleClient) Search(ctx context.Context, claim string) ([]model.Review, error) {
	params := url.Values{"query": {claim}, "pageSize": {"10"}}
	if g.languageCode != "" {
		params.Set("languageCode", g.languageCode)
	}
	if g.apiKey != "" {
		params.Set("key", g.apiKey)
	}
	reqURL := factCheckAPIBase + "?" + params.Encode()

	if err := g.limiter.Wait(ctx, reqURL); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if g.userAgent != "" {
		req.Header.Set("User-Agent", g.userAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, g.client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("fact check API request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fact check API returned HTTP %d", resp.StatusCode)
	}

	var result claimSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("parsing fact check response: %w", err)
	}

	var reviews []model.Review
	for _, c := range result.Claims {
		for _, r := range c.ClaimReview {
			reviews = append(reviews, model.Review{
				Publisher: r.Publisher.Name,
				URL:       r.URL,
				Rating:    r.TextualRating,
			})
		}
	}
	return reviews, nil
}

type claimSearchResponse struct {
	Claims []struct {
		Text        string `json:"text"`
		Claimant    string `json:"claimant"`
		ClaimReview []struct {
			Publisher struct {
				Name string `json:"name"`
				Site string `json:"site"`
			} `json:"publisher"`
			URL           string `json:"url"`
			Title         string `json:"title"`
			TextualRating string `json:"textualRating"`
		} `json:"claimReview"`
	} `json:"claims"`
}
