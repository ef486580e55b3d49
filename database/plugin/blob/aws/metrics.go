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

package aws

import "github.com/prometheus/client_golang/prometheus"

const s3MetricNamePrefix = "suidex_blob_s3_"

type blobMetrics struct {
	opsTotal   *prometheus.CounterVec
	bytesTotal *prometheus.CounterVec
}

func (d *BlobStoreS3) registerBlobMetrics() {
	d.metrics = &blobMetrics{
		opsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: s3MetricNamePrefix + "ops_total",
				Help: "Total number of S3 blob operations",
			},
			[]string{"op"},
		),
		bytesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: s3MetricNamePrefix + "bytes_total",
				Help: "Total bytes read/written for S3 blob operations",
			},
			[]string{"op"},
		),
	}
	d.promRegistry.MustRegister(d.metrics.opsTotal, d.metrics.bytesTotal)
}

func (d *BlobStoreS3) observe(op string, size int) {
	if d.metrics == nil {
		return
	}
	d.metrics.opsTotal.WithLabelValues(op).Inc()
	d.metrics.bytesTotal.WithLabelValues(op).Add(float64(size))
}
