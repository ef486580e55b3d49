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

import (
	"log/slog"
	"time"

	"github.com/blinklabs-io/suidex/database/plugin/blob/internal/objectstore"
	"github.com/prometheus/client_golang/prometheus"
)

type BlobStoreS3OptionFunc func(*BlobStoreS3)

func WithLogger(logger *slog.Logger) BlobStoreS3OptionFunc {
	return func(b *BlobStoreS3) { b.logger = NewS3Logger(logger) }
}

func WithPromRegistry(registry prometheus.Registerer) BlobStoreS3OptionFunc {
	return func(b *BlobStoreS3) { b.promRegistry = registry }
}

// WithBucketParams applies the bucket, prefix, endpoint and timeout at once
func WithBucketParams(params objectstore.BucketParams) BlobStoreS3OptionFunc {
	return func(b *BlobStoreS3) {
		b.bucket = params.Bucket
		b.prefix = params.Prefix
		b.endpoint = params.Endpoint
		b.timeout = params.Timeout()
	}
}

func WithBucket(bucket string) BlobStoreS3OptionFunc {
	return func(b *BlobStoreS3) { b.bucket = bucket }
}

// WithPrefix sets the key prefix. A trailing slash is added when missing.
func WithPrefix(prefix string) BlobStoreS3OptionFunc {
	return func(b *BlobStoreS3) { b.prefix = prefix }
}

// WithEndpoint points the client at an S3 compatible service. Path style
// addressing is used in that case.
func WithEndpoint(endpoint string) BlobStoreS3OptionFunc {
	return func(b *BlobStoreS3) { b.endpoint = endpoint }
}

func WithRegion(region string) BlobStoreS3OptionFunc {
	return func(b *BlobStoreS3) { b.region = region }
}

func WithTimeout(timeout time.Duration) BlobStoreS3OptionFunc {
	return func(b *BlobStoreS3) { b.timeout = timeout }
}

func withClient(client s3API) BlobStoreS3OptionFunc {
	return func(b *BlobStoreS3) { b.client = client }
}
