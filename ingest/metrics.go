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

package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type pipelineMetrics struct {
	watermark      prometheus.Gauge
	checkpoints    prometheus.Counter
	transactions   prometheus.Counter
	events         prometheus.Counter
	objects        prometheus.Counter
	decodeFailures prometheus.Counter
	commitLatency  prometheus.Histogram
}

func (m *pipelineMetrics) init(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	m.watermark = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "suidex_ingest_watermark",
		Help: "sequence number of the last committed checkpoint",
	})
	m.checkpoints = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "suidex_ingest_checkpoints_total",
		Help: "checkpoints committed",
	})
	m.transactions = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "suidex_ingest_transactions_total",
		Help: "transactions committed",
	})
	m.events = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "suidex_ingest_events_total",
		Help: "events committed",
	})
	m.objects = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "suidex_ingest_objects_total",
		Help: "object versions committed",
	})
	m.decodeFailures = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "suidex_ingest_decode_failures_total",
		Help: "objects stored without decoded contents",
	})
	m.commitLatency = promautoFactory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "suidex_ingest_commit_duration_seconds",
			Help:    "time taken to write a checkpoint unit",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~16s
		},
	)
}
