// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package database

import (
	"maps"
	"slices"
	"sync/atomic"
)

type blobCacheEntry struct {
	value []byte
	hits  atomic.Uint64
}

// blobCache is a copy-on-write read cache for blob payloads. Readers never
// lock. Blob keys are content addressed, so an entry can never go stale and
// there is no invalidation.
type blobCache struct {
	entries  atomic.Pointer[map[string]*blobCacheEntry]
	maxBytes int64
	curBytes atomic.Int64
	evicting atomic.Bool
}

func newBlobCache(maxBytes int64) *blobCache {
	c := &blobCache{maxBytes: maxBytes}
	empty := map[string]*blobCacheEntry{}
	c.entries.Store(&empty)
	return c
}

func entrySize(key string, value []byte) int64 {
	return int64(len(key) + len(value))
}

// Get returns a copy of the cached value for key
func (c *blobCache) Get(key []byte) ([]byte, bool) {
	entry, ok := (*c.entries.Load())[string(key)]
	if !ok {
		return nil, false
	}
	entry.hits.Add(1)
	return slices.Clone(entry.value), true
}

// Put caches a copy of value. Values above a tenth of the budget are not
// cached.
func (c *blobCache) Put(key []byte, value []byte) {
	keyStr := string(key)
	size := entrySize(keyStr, value)
	if size > c.maxBytes/10 {
		return
	}
	entry := &blobCacheEntry{value: slices.Clone(value)}
	for {
		old := c.entries.Load()
		if _, ok := (*old)[keyStr]; ok {
			return
		}
		next := make(map[string]*blobCacheEntry, len(*old)+1)
		maps.Copy(next, *old)
		next[keyStr] = entry
		if c.entries.CompareAndSwap(old, &next) {
			c.curBytes.Add(size)
			break
		}
	}
	if c.curBytes.Load() > c.maxBytes {
		c.evict()
	}
}

// evict drops the least used entries until the cache is at three quarters
// of its budget
func (c *blobCache) evict() {
	if !c.evicting.CompareAndSwap(false, true) {
		return
	}
	defer c.evicting.Store(false)
	target := c.maxBytes * 3 / 4
	for {
		old := c.entries.Load()
		keys := slices.Collect(maps.Keys(*old))
		slices.SortFunc(keys, func(a, b string) int {
			ha, hb := (*old)[a].hits.Load(), (*old)[b].hits.Load()
			switch {
			case ha < hb:
				return -1
			case ha > hb:
				return 1
			}
			return 0
		})
		var total int64
		for k, e := range *old {
			total += entrySize(k, e.value)
		}
		next := maps.Clone(*old)
		removed := int64(0)
		for _, k := range keys {
			if total-removed <= target {
				break
			}
			removed += entrySize(k, next[k].value)
			delete(next, k)
		}
		if c.entries.CompareAndSwap(old, &next) {
			c.curBytes.Add(-removed)
			return
		}
	}
}

// Len returns the number of cached entries
func (c *blobCache) Len() int {
	return len(*c.entries.Load())
}
