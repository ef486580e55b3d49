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

package badger

import "github.com/prometheus/client_golang/prometheus"

const badgerMetricNamePrefix = "suidex_blob_badger_"

type blobMetrics struct {
	opsTotal   *prometheus.CounterVec
	bytesTotal *prometheus.CounterVec
	lsmSize    prometheus.GaugeFunc
	vlogSize   prometheus.GaugeFunc
}

func (d *BlobStoreBadger) registerBlobMetrics() {
	d.metrics = &blobMetrics{
		opsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: badgerMetricNamePrefix + "ops_total",
				Help: "Total number of badger blob operations",
			},
			[]string{"op"},
		),
		bytesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: badgerMetricNamePrefix + "bytes_total",
				Help: "Total bytes read/written for badger blob operations",
			},
			[]string{"op"},
		),
		lsmSize: prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: badgerMetricNamePrefix + "lsm_size_bytes",
				Help: "Size of the badger LSM tree",
			},
			func() float64 {
				lsm, _ := d.db.Size()
				return float64(lsm)
			},
		),
		vlogSize: prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: badgerMetricNamePrefix + "vlog_size_bytes",
				Help: "Size of the badger value log",
			},
			func() float64 {
				_, vlog := d.db.Size()
				return float64(vlog)
			},
		),
	}
	d.promRegistry.MustRegister(
		d.metrics.opsTotal,
		d.metrics.bytesTotal,
		d.metrics.lsmSize,
		d.metrics.vlogSize,
	)
}

func (d *BlobStoreBadger) observe(op string, size int) {
	if d.metrics == nil {
		return
	}
	d.metrics.opsTotal.WithLabelValues(op).Inc()
	d.metrics.bytesTotal.WithLabelValues(op).Add(float64(size))
}
