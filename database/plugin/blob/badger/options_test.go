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

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	b := &BlobStoreBadger{}
	for _, opt := range []BlobStoreBadgerOptionFunc{
		WithDataDir("/tmp/blob"),
		WithCacheSizes(1024, 2048),
		WithGc(false),
		WithGcInterval(time.Minute),
		WithValueThreshold(4096),
		WithLogger(logger),
		WithPromRegistry(reg),
	} {
		opt(b)
	}
	assert.Equal(t, "/tmp/blob", b.dataDir)
	assert.Equal(t, uint64(1024), b.blockCacheSize)
	assert.Equal(t, uint64(2048), b.indexCacheSize)
	assert.False(t, b.gcEnabled)
	assert.Equal(t, time.Minute, b.gcInterval)
	assert.Equal(t, int64(4096), b.valueThreshold)
	assert.Same(t, logger, b.logger)
	assert.Equal(t, reg, b.promRegistry)
}

func TestNewFromPluginOptions(t *testing.T) {
	pluginOpts.Lock()
	pluginOpts.dataDir = ""
	pluginOpts.Unlock()
	p := newFromPluginOptions()
	store, ok := p.(*BlobStoreBadger)
	if assert.True(t, ok) {
		assert.NoError(t, store.Start())
		assert.NoError(t, store.Stop())
	}
}

func TestValueThresholdDefaults(t *testing.T) {
	mem := &BlobStoreBadger{}
	opts, err := mem.badgerOptions()
	require.NoError(t, err)
	assert.Equal(t, int64(InMemoryValueThreshold), opts.ValueThreshold)

	disk := &BlobStoreBadger{dataDir: t.TempDir()}
	opts, err = disk.badgerOptions()
	require.NoError(t, err)
	assert.Equal(t, int64(DefaultValueThreshold), opts.ValueThreshold)
}
