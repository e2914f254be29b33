package imaging

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

const pexelsBaseURL = "https://api.pexels.com"

// Pexels searches the Pexels photo API.
type Pexels struct {
	apiKey  string
	baseURL string
	client  *http.Client
	cache   CandidateCache
}

// NewPexels returns nil when no API key is configured.
func NewPexels(apiKey string, cache CandidateCache) *Pexels {
	if strings.TrimSpace(apiKey) == "" {
		return nil
	}
	return &Pexels{
		apiKey:  apiKey,
		baseURL: pexelsBaseURL,
		client:  &http.Client{Timeout: defaultTimeout},
		cache:   cache,
	}
}

// WithBaseURL points the provider at another host.
func (p *Pexels) WithBaseURL(base string) *Pexels {
	p.baseURL = strings.TrimRight(base, "/")
	return p
}

func (p *Pexels) Name() string { return "pexels" }

type pexelsSearchResponse struct {
	Photos []struct {
		Src struct {
			Original string `json:"original"`
			Large    string `json:"large"`
			Medium   string `json:"medium"`
		} `json:"src"`
	} `json:"photos"`
}

func (p *Pexels) Resolve(ctx context.Context, q Query) (string, error) {
	candidates, err := cachedCandidates(ctx, p.cache, p.Name(), q.SearchTerms(), func(ctx context.Context, terms string) ([]string, error) {
		params := url.Values{}
		params.Set("query", terms)
		params.Set("per_page", "10")
		params.Set("orientation", "landscape")

		var out pexelsSearchResponse
		header := http.Header{}
		header.Set("Authorization", p.apiKey)
		if err := getJSON(ctx, p.client, p.baseURL+"/v1/search?"+params.Encode(), header, &out); err != nil {
			return nil, err
		}

		urls := make([]string, 0, len(out.Photos))
		for _, photo := range out.Photos {
			for _, candidate := range []string{photo.Src.Large, photo.Src.Medium, photo.Src.Original} {
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
