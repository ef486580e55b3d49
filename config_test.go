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

package suidex

import (
	"testing"
	"time"

	"github.com/blinklabs-io/suidex/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunModeValid(t *testing.T) {
	tests := []struct {
		mode  RunMode
		valid bool
	}{
		{RunModeServe, true},
		{RunModeIngest, true},
		{RunModeAPI, true},
		{"", true},
		{"load", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.valid, tt.mode.Valid(), "mode=%q", tt.mode)
	}
}

func TestRunModeComponents(t *testing.T) {
	assert.True(t, RunModeServe.Ingests())
	assert.True(t, RunModeServe.ServesAPI())
	assert.True(t, RunModeIngest.Ingests())
	assert.False(t, RunModeIngest.ServesAPI())
	assert.False(t, RunModeAPI.Ingests())
	assert.True(t, RunModeAPI.ServesAPI())
}

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()
	assert.NotNil(t, cfg.logger)
	assert.Equal(t, RunModeServe, cfg.runMode)
	assert.Equal(t, DefaultShutdownTimeout, cfg.shutdownTimeout)
	assert.Nil(t, cfg.startCheckpoint)

	cfg = NewConfig(WithStartCheckpoint(0), WithPollInterval(time.Second))
	require.NotNil(t, cfg.startCheckpoint)
	assert.Equal(t, uint64(0), *cfg.startCheckpoint)
	assert.Equal(t, time.Second, cfg.pollInterval)
}

func TestConfigValidate(t *testing.T) {
	src := source.NewMemory()
	tests := []struct {
		name  string
		opts  []ConfigOptionFunc
		valid bool
	}{
		{"source", []ConfigOptionFunc{WithSource(src)}, true},
		{"rpc url", []ConfigOptionFunc{WithRPCURL("http://localhost:9000")}, true},
		{"no source", nil, false},
		{"api without source", []ConfigOptionFunc{WithRunMode(RunModeAPI)}, true},
		{"ingest without source", []ConfigOptionFunc{WithRunMode(RunModeIngest)}, false},
		{
			"reset in api mode",
			[]ConfigOptionFunc{WithRunMode(RunModeAPI), WithResetDatabase(true)},
			false,
		},
		{"bad mode", []ConfigOptionFunc{WithSource(src), WithRunMode("dev")}, false},
		{
			"negative poll interval",
			[]ConfigOptionFunc{WithSource(src), WithPollInterval(-time.Second)},
			false,
		},
		{
			"negative shutdown timeout",
			[]ConfigOptionFunc{WithSource(src), WithShutdownTimeout(-time.Second)},
			false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(NewConfig(tt.opts...))
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
