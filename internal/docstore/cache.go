package docstore

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cached wraps a Store with an in-memory LRU so the same markdown is not
// re-fetched for every prompt that needs it. Writes go through to the
// backend first and update the cache on success.
func Cached(inner Store, size int) (Store, error) {
	if size <= 0 {
		size = 128
	}
	cache, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, err
	}
	return &cachedStore{inner: inner, cache: cache}, nil
}

type cachedStore struct {
	inner Store
	cache *lru.Cache[string, []byte]
}

func (c *cachedStore) Put(ctx context.Context, key string, content []byte) error {
	if err := c.inner.Put(ctx, key, content); err != nil {
		return err
	}
	c.cache.Add(key, append([]byte(nil), content...))
	return nil
}

func (c *cachedStore) Get(ctx context.Context, key string) ([]byte, error) {
	if v, ok := c.cache.Get(key); ok {
		return append([]byte(nil), v...), nil
	}
	data, err := c.inner.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, append([]byte(nil), data...))
	return data, nil
}

func (c *cachedStore) List(ctx context.Context, prefix string) ([]string, error) {
	return c.inner.List(ctx, prefix)
}
