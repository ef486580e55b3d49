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

package fetcher

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type fetcherMetrics struct {
	retries atomic.Uint64

	fetchDuration prometheus.Histogram
	retryCounter  prometheus.Counter

	registerOnce sync.Once
}

func (m *fetcherMetrics) register(registry prometheus.Registerer) {
	if registry == nil {
		return
	}
	m.registerOnce.Do(func() {
		factory := promauto.With(registry)
		m.fetchDuration = factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "suidex_fetch_checkpoint_duration_seconds",
			Help:    "Time taken to fetch a complete checkpoint",
			Buckets: prometheus.DefBuckets,
		})
		m.retryCounter = factory.NewCounter(prometheus.CounterOpts{
			Name: "suidex_fetch_retries_total",
			Help: "Total number of retried source requests",
		})
	})
}

func (m *fetcherMetrics) observeFetch(d time.Duration) {
	if m.fetchDuration != nil {
		m.fetchDuration.Observe(d.Seconds())
	}
}

func (m *fetcherMetrics) incRetry() {
	m.retries.Add(1)
	if m.retryCounter != nil {
		m.retryCounter.Inc()
	}
}
