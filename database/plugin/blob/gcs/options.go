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

package gcs

import (
	"log/slog"
	"time"

	"github.com/blinklabs-io/suidex/database/plugin/blob/internal/objectstore"
	"github.com/prometheus/client_golang/prometheus"
)

type BlobStoreGCSOptionFunc func(*BlobStoreGCS)

func WithLogger(logger *slog.Logger) BlobStoreGCSOptionFunc {
	return func(b *BlobStoreGCS) { b.logger = NewGcsLogger(logger) }
}

func WithPromRegistry(registry prometheus.Registerer) BlobStoreGCSOptionFunc {
	return func(b *BlobStoreGCS) { b.promRegistry = registry }
}

// WithBucketParams applies the bucket, prefix, endpoint and timeout at once
func WithBucketParams(params objectstore.BucketParams) BlobStoreGCSOptionFunc {
	return func(b *BlobStoreGCS) {
		b.bucketName = params.Bucket
		b.prefix = params.Prefix
		b.endpoint = params.Endpoint
		b.timeout = params.Timeout()
	}
}

func WithBucket(bucket string) BlobStoreGCSOptionFunc {
	return func(b *BlobStoreGCS) { b.bucketName = bucket }
}

// WithPrefix sets the object name prefix. Leading and trailing slashes are
// normalized away, then a single trailing slash is added.
func WithPrefix(prefix string) BlobStoreGCSOptionFunc {
	return func(b *BlobStoreGCS) { b.prefix = prefix }
}

// WithCredentialsFile uses a service account key instead of application
// default credentials
func WithCredentialsFile(path string) BlobStoreGCSOptionFunc {
	return func(b *BlobStoreGCS) { b.credentialsFile = path }
}

func WithEndpoint(endpoint string) BlobStoreGCSOptionFunc {
	return func(b *BlobStoreGCS) { b.endpoint = endpoint }
}

func WithTimeout(timeout time.Duration) BlobStoreGCSOptionFunc {
	return func(b *BlobStoreGCS) { b.timeout = timeout }
}
