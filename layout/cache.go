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

package layout

import (
	"maps"
	"sync/atomic"
)

// cowMap is a lock-free map using copy-on-write semantics. Readers never
// block, and concurrent writers of the same key converge on the last value
// stored.
type cowMap[V any] struct {
	data atomic.Pointer[map[string]V]
}

func newCowMap[V any]() *cowMap[V] {
	ret := &cowMap[V]{}
	empty := make(map[string]V)
	ret.data.Store(&empty)
	return ret
}

func (c *cowMap[V]) Get(key string) (V, bool) {
	data := c.data.Load()
	v, ok := (*data)[key]
	return v, ok
}

func (c *cowMap[V]) Put(key string, value V) {
	for {
		oldData := c.data.Load()
		newData := make(map[string]V, len(*oldData)+1)
		maps.Copy(newData, *oldData)
		newData[key] = value
		if c.data.CompareAndSwap(oldData, &newData) {
			return
		}
		// CAS failed, retry with fresh data
	}
}

func (c *cowMap[V]) Len() int {
	return len(*c.data.Load())
}
