package imaging

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// CandidateCache stores provider search results by provider and query.
// Implementations treat every backend error as a miss.
type CandidateCache interface {
	Get(ctx context.Context, provider, query string) ([]string, bool)
	Set(ctx context.Context, provider, query string, urls []string)
}

// RedisCandidateCache keeps candidate lists in Redis with a TTL.
type RedisCandidateCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisCandidateCache(client redis.Cmdable, ttl time.Duration) *RedisCandidateCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisCandidateCache{client: client, ttl: ttl}
}

func candidateKey(provider, query string) string {
	return "image:candidates:" + provider + ":" + query
}

func (c *RedisCandidateCache) Get(ctx context.Context, provider, query string) ([]string, bool) {
	raw, err := c.client.Get(ctx, candidateKey(provider, query)).Bytes()
	if err != nil {
		return nil, false
	}
	var urls []string
	if err := json.Unmarshal(raw, &urls); err != nil || len(urls) == 0 {
		return nil, false
	}
	return urls, true
}

func (c *RedisCandidateCache) Set(ctx context.Context, provider, query string, urls []string) {
	if len(urls) == 0 {
		return
	}
	raw, err := json.Marshal(urls)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, candidateKey(provider, query), raw, c.ttl).Err()
}

type searchFunc func(ctx context.Context, terms string) ([]string, error)

// cachedCandidates runs search on a cache miss and stores non-empty results.
func cachedCandidates(ctx context.Context, cache CandidateCache, provider, terms string, search searchFunc) ([]string, error) {
	if cache != nil {
		if urls, ok := cache.Get(ctx, provider, terms); ok {
			return urls, nil
		}
	}

	urls, err := search(ctx, terms)
	if err != nil {
		return nil, err
	}
	urls = filterURLs(urls)
	if len(urls) == 0 {
		return nil, ErrNoCandidates
	}

	if cache != nil {
		cache.Set(ctx, provider, terms, urls)
	}
	return urls, nil
}
