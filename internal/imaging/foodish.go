package imaging

import (
	"context"
	"net/http"
	"strings"
)

const foodishURL = "https://foodish-api.herokuapp.com/images/"

// Foodish is the keyless random food photo API. It returns one image per
// call, so its result is not cached.
type Foodish struct {
	url    string
	client *http.Client
}

func NewFoodish() *Foodish {
	return &Foodish{url: foodishURL, client: &http.Client{Timeout: defaultTimeout}}
}

// WithURL points the provider at another endpoint.
func (f *Foodish) WithURL(u string) *Foodish {
	f.url = u
	return f
}

func (f *Foodish) Name() string { return "foodish" }

func (f *Foodish) Resolve(ctx context.Context, _ Query) (string, error) {
	var out struct {
		Image string `json:"image"`
	}
	if err := getJSON(ctx, f.client, f.url, nil, &out); err != nil {
		return "", err
	}
	if !isHTTPURL(strings.TrimSpace(out.Image)) {
		return "", ErrNoCandidates
	}
	return strings.TrimSpace(out.Image), nil
}
