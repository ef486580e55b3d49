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

package sqlite

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
	m, err := NewWithOptions(
		WithDataDir("/tmp/test"),
		WithLogger(logger),
		WithPromRegistry(reg),
		WithVacuumInterval(time.Hour),
	)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/test", m.dataDir)
	assert.Same(t, logger, m.logger)
	assert.Equal(t, reg, m.promRegistry)
	assert.Equal(t, time.Hour, m.vacuumInterval)
}

func TestMaxConnectionsDefault(t *testing.T) {
	m, err := NewWithOptions()
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxConnections, m.maxConnections)
	assert.Equal(t, DefaultVacuumInterval, m.vacuumInterval)

	m, err = NewWithOptions(WithMaxConnections(2))
	require.NoError(t, err)
	assert.Equal(t, 2, m.maxConnections)

	m, err = NewWithOptions(WithMaxConnections(-1))
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxConnections, m.maxConnections)
}

func TestVacuumLoopStopsOnClose(t *testing.T) {
	m, err := NewWithOptions(
		WithDataDir(t.TempDir()),
		WithVacuumInterval(10*time.Millisecond),
	)
	require.NoError(t, err)
	require.NoError(t, m.Start())
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
}
