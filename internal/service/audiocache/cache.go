// Package audiocache holds rendered audio keyed by block fingerprint.
package audiocache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// RenderTimeout bounds a shared render once it no longer follows the
// cancellation of the caller that started it.
const RenderTimeout = 2 * time.Minute

// RenderFunc produces audio for a cache miss.
type RenderFunc func(ctx context.Context) ([]byte, error)

// Cache maps fingerprints to rendered audio bytes.
// Entries never expire; the cache lives for one editor session and grows
// without bound.
type Cache struct {
	mu      sync.RWMutex
	entries map[string][]byte
	group   singleflight.Group
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{entries: make(map[string][]byte)}
}

// Get returns the audio stored under key.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	audio, ok := c.entries[key]
	return audio, ok
}

// Put stores audio under key, replacing any previous entry.
func (c *Cache) Put(key string, audio []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = audio
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// GetOrRender returns cached audio for key, or runs render exactly once for
// all concurrent callers asking for the same key and caches the result.
// hit reports whether the audio came from the cache without rendering.
//
// The shared render keeps the starting caller's context values but not its
// cancellation; each caller stops waiting when its own ctx is done.
func (c *Cache) GetOrRender(ctx context.Context, key string, render RenderFunc) (audio []byte, hit bool, err error) {
	if audio, ok := c.Get(key); ok {
		return audio, true, nil
	}

	ch := c.group.DoChan(key, func() (any, error) {
		if audio, ok := c.Get(key); ok {
			return audio, nil
		}
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), RenderTimeout)
		defer cancel()
		audio, err := render(rctx)
		if err != nil {
			return nil, err
		}
		c.Put(key, audio)
		return audio, nil
	})

	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		return res.Val.([]byte), false, nil
	}
}
