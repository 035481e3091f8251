package ai

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// responseCache is a bounded LRU of recent gateway responses with a fixed
// time-to-live. Entries are keyed by a hash of the full request identity so
// that identical prompts skip the model entirely.
type responseCache struct {
	lru *expirable.LRU[string, string]
}

func newResponseCache(size int, ttl time.Duration) *responseCache {
	return &responseCache{lru: expirable.NewLRU[string, string](size, nil, ttl)}
}

func (c *responseCache) Get(key string) (string, bool) {
	return c.lru.Get(key)
}

func (c *responseCache) Add(key, value string) {
	c.lru.Add(key, value)
}

// Len returns the number of live entries, used by tests and diagnostics.
func (c *responseCache) Len() int {
	return c.lru.Len()
}

// cacheKey hashes the request identity. MaxTokens is excluded: two
// requests that differ only in output budget share a response.
func cacheKey(model string, req GenerateRequest) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%s\x00%.4f", model, req.Prompt, req.SystemPrompt, req.Temperature)
	return hex.EncodeToString(h.Sum(nil))
}
