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
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/blinklabs-io/suidex/database/plugin/blob/internal/objectstore"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions(t *testing.T) {
	registry := prometheus.NewRegistry()
	b, err := NewWithOptions(
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithPromRegistry(registry),
		WithBucket("chain-data"),
		WithPrefix("/indexer/"),
		WithCredentialsFile("/etc/key.json"),
		WithEndpoint("http://localhost:4443/storage/v1/"),
		WithTimeout(5*time.Second),
	)
	require.NoError(t, err)
	assert.NotNil(t, b.logger)
	assert.Equal(t, registry, b.promRegistry)
	assert.Equal(t, "chain-data", b.bucketName)
	assert.Equal(t, "indexer/", b.prefix)
	assert.Equal(t, "/etc/key.json", b.credentialsFile)
	assert.Equal(t, "http://localhost:4443/storage/v1/", b.endpoint)
	assert.Equal(t, 5*time.Second, b.timeout)
}

func TestNewFromDataDir(t *testing.T) {
	b, err := New("gcs://chain-data/blobs", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "chain-data", b.bucketName)
	assert.Equal(t, "blobs/", b.prefix)

	_, err = New("gcs://", nil, nil)
	require.Error(t, err)
	_, err = New("s3://chain-data", nil, nil)
	require.Error(t, err)
}

func TestBucketParams(t *testing.T) {
	b, err := NewWithOptions(
		WithBucketParams(objectstore.BucketParams{
			Bucket:   "chain-data",
			Prefix:   "checkpoints",
			Endpoint: "http://localhost:4443/storage/v1/",
		}),
	)
	require.NoError(t, err)
	assert.Equal(t, "chain-data", b.bucketName)
	assert.Equal(t, "checkpoints/", b.prefix)
	assert.Equal(t, objectstore.DefaultTimeout, b.timeout)
}
