package imaging

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

const unsplashBaseURL = "https://api.unsplash.com"

// Unsplash searches the Unsplash photo API.
type Unsplash struct {
	accessKey string
	baseURL   string
	client    *http.Client
	cache     CandidateCache
}

// NewUnsplash returns nil when no access key is configured.
func NewUnsplash(accessKey string, cache CandidateCache) *Unsplash {
	if strings.TrimSpace(accessKey) == "" {
		return nil
	}
	return &Unsplash{
		accessKey: accessKey,
		baseURL:   unsplashBaseURL,
		client:    &http.Client{Timeout: defaultTimeout},
		cache:     cache,
	}
}

// WithBaseURL points the provider at another host.
func (u *Unsplash) WithBaseURL(base string) *Unsplash {
	u.baseURL = strings.TrimRight(base, "/")
	return u
}

func (u *Unsplash) Name() string { return "unsplash" }

type unsplashSearchResponse struct {
	Results []struct {
		URLs struct {
			Raw     string `json:"raw"`
			Regular string `json:"regular"`
			Small   string `json:"small"`
		} `json:"urls"`
	} `json:"results"`
}

func (u *Unsplash) Resolve(ctx context.Context, q Query) (string, error) {
	candidates, err := cachedCandidates(ctx, u.cache, u.Name(), q.SearchTerms(), func(ctx context.Context, terms string) ([]string, error) {
		params := url.Values{}
		params.Set("query", terms)
		params.Set("per_page", "10")
		params.Set("orientation", "landscape")
		params.Set("content_filter", "high")

		var out unsplashSearchResponse
		header := http.Header{}
		header.Set("Authorization", "Client-ID "+u.accessKey)
		if err := getJSON(ctx, u.client, u.baseURL+"/search/photos?"+params.Encode(), header, &out); err != nil {
			return nil, err
		}

		urls := make([]string, 0, len(out.Results))
		for _, r := range out.Results {
			for _, candidate := range []string{r.URLs.Regular, r.URLs.Small, r.URLs.Raw} {
				if isHTTPURL(candidate) {
					urls = append(urls, candidate)
					break
				}
			}
		}
		return urls, nil
	})
	if err != nil {
		return "", err
	}
	return Pick(q.Name, candidates), nil
}
