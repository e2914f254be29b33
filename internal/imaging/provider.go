// Package imaging resolves a display image for every generated recipe.
// Providers are tried in order and the chain always ends on a
// deterministic placeholder, so callers never see an image error.
package imaging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 5 * time.Second

// Provider produces an image URL for a recipe.
type Provider interface {
	Name() string
	Resolve(ctx context.Context, q Query) (string, error)
}

// ErrNoCandidates is returned when a provider answered but had nothing usable.
var ErrNoCandidates = fmt.Errorf("no image candidates")

func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// getJSON issues a GET and decodes a 200 response into out.
func getJSON(ctx context.Context, client *http.Client, url string, header http.Header, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// filterURLs keeps the http(s) URLs in order.
func filterURLs(urls []string) []string {
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if isHTTPURL(u) {
			out = append(out, u)
		}
	}
	return out
}
