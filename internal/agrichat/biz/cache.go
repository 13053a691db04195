package biz

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/agrichat/internal/agrichat/store"
	"github.com/kart-io/agrichat/internal/pkg/textutil"
	"github.com/kart-io/agrichat/pkg/utils/json"
)

// RetrievalCache 缓存标准化查询的检索结果，减少重复的向量化与检索。
// 只缓存检索结果，不缓存生成的回答。
type RetrievalCache struct {
	client    *goredis.Client
	ttl       time.Duration
	keyPrefix string
}

// NewRetrievalCache creates a Redis-backed retrieval cache.
func NewRetrievalCache(client *goredis.Client, ttl time.Duration, keyPrefix string) *RetrievalCache {
	if keyPrefix == "" {
		keyPrefix = "agrichat:retrieval:"
	}
	return &RetrievalCache{
		client:    client,
		ttl:       ttl,
		keyPrefix: keyPrefix,
	}
}

// cacheKey hashes the query so arbitrary text maps to a bounded key.
func (c *RetrievalCache) cacheKey(query string) string {
	return c.keyPrefix + textutil.HashString(query)
}

// Get returns cached results for the query, or (nil, false) on a miss.
func (c *RetrievalCache) Get(ctx context.Context, query string) ([]store.SearchResult, bool, error) {
	data, err := c.client.Get(ctx, c.cacheKey(query)).Bytes()
	if err == goredis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("retrieval cache: get failed: %w", err)
	}

	var results []store.SearchResult
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, false, fmt.Errorf("retrieval cache: failed to decode entry: %w", err)
	}
	return results, true, nil
}

// Set stores retrieval results for the query.
func (c *RetrievalCache) Set(ctx context.Context, query string, results []store.SearchResult) error {
	data, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("retrieval cache: failed to encode entry: %w", err)
	}
	if err := c.client.Set(ctx, c.cacheKey(query), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("retrieval cache: set failed: %w", err)
	}
	return nil
}

// Clear removes all cached entries under the key prefix.
func (c *RetrievalCache) Clear(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("retrieval cache: failed to delete key: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("retrieval cache: scan failed: %w", err)
	}
	return nil
}

// Stats returns the number of cached entries.
func (c *RetrievalCache) Stats(ctx context.Context) (map[string]interface{}, error) {
	count := 0
	iter := c.client.Scan(ctx, 0, c.keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("retrieval cache: scan failed: %w", err)
	}
	return map[string]interface{}{
		"entries": count,
		"ttl":     c.ttl.String(),
	}, nil
}
