// SPDX-License-Identifier: MPL-2.0

package fragment

import (
	"hash/fnv"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of descriptors kept by NewCache(0).
const DefaultCacheSize = 128

type (
	// Cache memoizes decoded descriptors across loads. An entry is reused
	// only while the file's bytes hash to the same digest, so watch-mode
	// reloads skip re-parsing untouched subprojects while any edit, even
	// one that keeps the size and modification time, is re-parsed.
	// Cache is safe for concurrent use.
	Cache struct {
		entries *lru.Cache[string, cacheEntry]
	}

	cacheEntry struct {
		size   int
		digest uint64
		desc   descriptor
	}
)

// NewCache creates a parse cache holding up to size descriptors.
// Non-positive sizes use DefaultCacheSize.
func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	entries, err := lru.New[string, cacheEntry](size)
	if err != nil {
		return nil, err
	}
	return &Cache{entries: entries}, nil
}

// Len returns the number of cached descriptors.
func (c *Cache) Len() int { return c.entries.Len() }

// Purge drops every cached descriptor.
func (c *Cache) Purge() { c.entries.Purge() }

func (c *Cache) get(path string, data []byte) (descriptor, bool) {
	e, ok := c.entries.Get(path)
	if !ok || e.size != len(data) || e.digest != digest(data) {
		return descriptor{}, false
	}
	return e.desc, true
}

func (c *Cache) put(path string, data []byte, desc descriptor) {
	c.entries.Add(path, cacheEntry{size: len(data), digest: digest(data), desc: desc})
}

func digest(data []byte) uint64 {
	h := fnv.New64a()
	_, _ = h.Write(data)
	return h.Sum64()
}
