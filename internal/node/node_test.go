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

package node

import (
	"io"
	"log/slog"
	"testing"

	"github.com/blinklabs-io/suidex"
	"github.com/blinklabs-io/suidex/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	cfg, err := config.LoadConfig("")
	require.NoError(t, err)
	cfg.DatabasePath = t.TempDir()
	return cfg
}

func TestIndexerOptions(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	cfg := testConfig(t)
	start := uint64(7)
	cfg.StartCheckpoint = &start
	opts, err := IndexerOptions(cfg, logger)
	require.NoError(t, err)
	_, err = suidex.New(suidex.NewConfig(opts...))
	require.NoError(t, err)

	cfg.PollInterval = "never"
	_, err = IndexerOptions(cfg, logger)
	assert.Error(t, err)

	cfg.PollInterval = config.DefaultPollInterval
	cfg.RunMode = config.RunModeAPI
	cfg.ResetDatabase = true
	opts, err = IndexerOptions(cfg, logger)
	require.NoError(t, err)
	_, err = suidex.New(suidex.NewConfig(opts...))
	assert.Error(t, err)
}

func TestResetEmptyStore(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	cfg := testConfig(t)
	require.NoError(t, Reset(cfg, logger))
	// A second reset finds the schema created by the first
	require.NoError(t, Reset(cfg, logger))
}
