package embedding

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync"
)

// Cached memoizes embeddings of an inner Embedder keyed by the text hash.
// Rubric indicator phrases are embedded for every answer; caching them turns
// repeated batch requests into map lookups.
type Cached struct {
	inner Embedder

	mu    sync.RWMutex
	cache map[string]Vector
}

// NewCached wraps inner with an in-memory cache.
func NewCached(inner Embedder) *Cached {
	return &Cached{inner: inner, cache: make(map[string]Vector)}
}

// Len reports the number of cached vectors.
func (c *Cached) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

func (c *Cached) Embed(ctx context.Context, text string) (Vector, error) {
	key := hashKey(text)
	if v, ok := c.lookup(key); ok {
		return v, nil
	}

	v, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	c.store(map[string]Vector{key: v})
	return v, nil
}

func (c *Cached) EmbedBatch(ctx context.Context, texts []string) ([]Vector, error) {
	out := make([]Vector, len(texts))
	keys := make([]string, len(texts))

	missing := make([]string, 0)
	missingIdx := make(map[string][]int)
	for i, text := range texts {
		keys[i] = hashKey(text)
		if v, ok := c.lookup(keys[i]); ok {
			out[i] = v
			continue
		}
		if _, seen := missingIdx[keys[i]]; !seen {
			missing = append(missing, text)
		}
		missingIdx[keys[i]] = append(missingIdx[keys[i]], i)
	}

	if len(missing) == 0 {
		return out, nil
	}

	vectors, err := c.inner.EmbedBatch(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(missing) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(missing))
	}

	fresh := make(map[string]Vector, len(missing))
	for i, text := range missing {
		key := hashKey(text)
		fresh[key] = vectors[i]
		for _, idx := range missingIdx[key] {
			out[idx] = vectors[i]
		}
	}
	c.store(fresh)

	return out, nil
}

func (c *Cached) lookup(key string) (Vector, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.cache[key]
	return v, ok
}

func (c *Cached) store(vectors map[string]Vector) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range vectors {
		c.cache[k] = v
	}
}

func hashKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%x", sum[:])
}
