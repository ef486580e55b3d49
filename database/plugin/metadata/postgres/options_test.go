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

package postgres

import (
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	m, err := NewWithOptions(
		WithConnParams(ConnParams{
			Host:           "db.example",
			Port:           6543,
			User:           "indexer",
			Password:       "secret",
			Database:       "suidex",
			SSLMode:        "require",
			TimeZone:       "Europe/Berlin",
			MaxConnections: 5,
		}),
		WithLogger(logger),
		WithPromRegistry(reg),
	)
	require.NoError(t, err)
	assert.Equal(t, uint64(6543), m.conn.Port)
	assert.Equal(t, 5, m.conn.MaxConnections)
	assert.Same(t, logger, m.logger)
	assert.Equal(t, reg, m.promRegistry)
	assert.Equal(
		t,
		"host=db.example user=indexer password=secret dbname=suidex port=6543 sslmode=require TimeZone=Europe/Berlin",
		m.dsn(),
	)
}

func TestDefaults(t *testing.T) {
	m, err := NewWithOptions()
	require.NoError(t, err)
	assert.Equal(t, DefaultConnParams, m.conn)
	assert.Equal(
		t,
		"host=localhost user=postgres password= dbname=postgres port=5432 sslmode=disable TimeZone=UTC",
		m.dsn(),
	)
	// Closing an unstarted store is harmless
	require.NoError(t, m.Close())
}

func TestDSNOverrides(t *testing.T) {
	m, err := NewWithOptions(
		WithConnParams(ConnParams{Host: "ignored"}),
		WithDSN("  postgres://u:p@h/db  "),
	)
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@h/db", m.dsn())
}

func TestPluginOptions(t *testing.T) {
	opts := pluginConn.PluginOptions("Postgres")
	names := make([]string, 0, len(opts))
	for _, opt := range opts {
		names = append(names, opt.Name)
	}
	assert.Equal(
		t,
		[]string{"host", "port", "user", "password", "database", "ssl-mode", "timezone", "dsn", "max-connections"},
		names,
	)
	assert.Equal(t, uint64(5432), opts[1].DefaultValue)
}
