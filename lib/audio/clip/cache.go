// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clip

import (
	"container/list"
	"log/slog"
	"sync"

	"github.com/dustin/go-humanize"
)

// Cache is a size-bounded least-recently-used map from clip digests to
// decoded values. Safe for concurrent use.
type Cache[V any] struct {
	limit  int64
	logger *slog.Logger

	mu      sync.Mutex
	used    int64
	order   *list.List
	entries map[string]*list.Element
}

type cacheEntry[V any] struct {
	digest string
	value  V
	size   int64
}

// NewCache returns a cache holding at most limit bytes. A value larger
// than limit is never cached.
func NewCache[V any](limit int64, logger *slog.Logger) *Cache[V] {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Cache[V]{
		limit:   limit,
		logger:  logger,
		order:   list.New(),
		entries: make(map[string]*list.Element),
	}
}

// Get returns the value for digest and marks it recently used.
func (c *Cache[V]) Get(digest string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	element, ok := c.entries[digest]
	if !ok {
		var zero V
		return zero, false
	}
	c.order.MoveToFront(element)
	return element.Value.(*cacheEntry[V]).value, true
}

// Put stores value under digest, evicting least recently used entries
// until the total size fits.
func (c *Cache[V]) Put(digest string, value V, size int64) {
	if size > c.limit {
		c.logger.Debug("clip too large to cache", "digest", short(digest), "size", humanize.Bytes(uint64(size)))
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if element, ok := c.entries[digest]; ok {
		entry := element.Value.(*cacheEntry[V])
		c.used += size - entry.size
		entry.value, entry.size = value, size
		c.order.MoveToFront(element)
	} else {
		c.entries[digest] = c.order.PushFront(&cacheEntry[V]{digest: digest, value: value, size: size})
		c.used += size
	}
	for c.used > c.limit {
		oldest := c.order.Back()
		entry := oldest.Value.(*cacheEntry[V])
		c.order.Remove(oldest)
		delete(c.entries, entry.digest)
		c.used -= entry.size
		c.logger.Debug("clip evicted", "digest", short(entry.digest), "size", humanize.Bytes(uint64(entry.size)))
	}
}

// Len reports the number of cached entries.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Used reports the total size of cached entries.
func (c *Cache[V]) Used() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.used
}

func short(digest string) string {
	if len(digest) > 12 {
		return digest[:12]
	}
	return digest
}
