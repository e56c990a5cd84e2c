package citation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode"

	"github.com/ppiankov/papercheck/internal/model"
	"github.com/ppiankov/papercheck/internal/worker"
)

// ErrNotFound is returned by a resolver that has no record for a citation
var ErrNotFound = errors.New("citation not found")

// minTitleSimilarity is the word overlap a title search hit needs to count as a match
const minTitleSimilarity = 0.6

// Resolver looks a citation up in a scholarly metadata service
type Resolver interface {
	Name() string
	Resolve(ctx context.Context, c model.Citation) (*model.SourceMetadata, error)
}

// apiClient is the HTTP plumbing shared by the resolvers
type apiClient struct {
	client    *http.Client
	limiter   *worker.Limiter
	userAgent string
}

func (a apiClient) newRequest(ctx context.Context, rawURL string) (*http.Request, error) {
	if err := a.limiter.Wait(ctx, rawURL); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if a.userAgent != "" {
		req.Header.Set("User-Agent", a.userAgent)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// ChainResolver tries each resolver in order until one finds the citation
type ChainResolver struct {
	resolvers []Resolver
}

// NewChainResolver creates a chain. Nil entries are skipped; an empty chain returns nil.
func NewChainResolver(resolvers ...Resolver) Resolver {
	var kept []Resolver
	for _, r := range resolvers {
		if r != nil {
			kept = append(kept, r)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	}
	return &ChainResolver{resolvers: kept}
}

// Name returns the resolver names joined with "+"
func (c *ChainResolver) Name() string {
	names := make([]string, len(c.resolvers))
	for i, r := range c.resolvers {
		names[i] = r.Name()
	}
	return strings.Join(names, "+")
}

// Resolve returns the first hit. ErrNotFound from every resolver yields
// ErrNotFound; otherwise the last real error is returned.
func (c *ChainResolver) Resolve(ctx context.Context, cit model.Citation) (*model.SourceMetadata, error) {
	var lastErr error
	for _, r := range c.resolvers {
		meta, err := r.Resolve(ctx, cit)
		if err == nil {
			return meta, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !errors.Is(err, ErrNotFound) {
			lastErr = fmt.Errorf("%s: %w", r.Name(), err)
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, ErrNotFound
}

// titleSimilarity is the Jaccard overlap of the word sets of two titles
func titleSimilarity(a, b string) float64 {
	wa, wb := titleWords(a), titleWords(b)
	if len(wa) == 0 || len(wb) == 0 {
		return 0
	}
	inter := 0
	for w := range wa {
		if wb[w] {
			inter++
		}
	}
	union := len(wa) + len(wb) - inter
	return float64(inter) / float64(union)
}

func titleWords(s string) map[string]bool {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

// bareDOI strips resolver prefixes from a DOI
func bareDOI(doi string) string {
	doi = strings.TrimSpace(doi)
	for _, prefix := range []string{"https://doi.org/", "http://doi.org/", "https://dx.doi.org/", "doi:"} {
		doi = strings.TrimPrefix(doi, prefix)
	}
	return doi
}
