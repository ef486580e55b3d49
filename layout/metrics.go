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
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks layout cache effectiveness. The atomic counts are always
// maintained; the Prometheus counters only after Register.
type Metrics struct {
	Hits          atomic.Uint64
	Misses        atomic.Uint64
	ModuleFetches atomic.Uint64

	hitsCounter          prometheus.Counter
	missesCounter        prometheus.Counter
	moduleFetchesCounter prometheus.Counter

	registerOnce sync.Once
}

// Register registers Prometheus metrics with the given registry.
// If registry is nil, this is a no-op.
func (m *Metrics) Register(registry prometheus.Registerer) {
	if registry == nil {
		return
	}
	m.registerOnce.Do(func() {
		factory := promauto.With(registry)
		m.hitsCounter = factory.NewCounter(prometheus.CounterOpts{
			Name: "suidex_layout_cache_hits_total",
			Help: "Total number of type layout cache hits",
		})
		m.missesCounter = factory.NewCounter(prometheus.CounterOpts{
			Name: "suidex_layout_cache_misses_total",
			Help: "Total number of type layout cache misses",
		})
		m.moduleFetchesCounter = factory.NewCounter(prometheus.CounterOpts{
			Name: "suidex_layout_module_fetches_total",
			Help: "Total number of normalized module fetches from the source",
		})
	})
}

func (m *Metrics) incHit() {
	m.Hits.Add(1)
	if m.hitsCounter != nil {
		m.hitsCounter.Inc()
	}
}

func (m *Metrics) incMiss() {
	m.Misses.Add(1)
	if m.missesCounter != nil {
		m.missesCounter.Inc()
	}
}

func (m *Metrics) incModuleFetch() {
	m.ModuleFetches.Add(1)
	if m.moduleFetchesCounter != nil {
		m.moduleFetchesCounter.Inc()
	}
}
