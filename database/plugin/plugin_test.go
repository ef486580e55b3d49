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

package plugin_test

import (
	"errors"
	"testing"

	"github.com/blinklabs-io/suidex/database/plugin"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockPlugin struct {
	started bool
}

func (m *mockPlugin) Start() error {
	m.started = true
	return nil
}

func (m *mockPlugin) Stop() error { return nil }

type testOptions struct {
	path    string
	enabled bool
	workers int
	size    uint64
}

func registerTestPlugin(t *testing.T, pluginType plugin.PluginType) *testOptions {
	t.Helper()
	opts := &testOptions{}
	plugin.Register(plugin.PluginEntry{
		Type:               pluginType,
		Name:               t.Name(),
		Description:        "test plugin",
		NewFromOptionsFunc: func() plugin.Plugin { return &mockPlugin{} },
		Options: []plugin.PluginOption{
			{
				Name:         "path",
				Type:         plugin.PluginOptionTypeString,
				DefaultValue: "default-path",
				Dest:         &opts.path,
			},
			{
				Name:         "enabled",
				Type:         plugin.PluginOptionTypeBool,
				DefaultValue: true,
				Dest:         &opts.enabled,
			},
			{
				Name:         "workers",
				Type:         plugin.PluginOptionTypeInt,
				DefaultValue: 2,
				Dest:         &opts.workers,
			},
			{
				Name:         "size",
				Type:         plugin.PluginOptionTypeUint,
				DefaultValue: uint64(10),
				Dest:         &opts.size,
			},
		},
	})
	return opts
}

func TestRegisterAndGetPlugin(t *testing.T) {
	registerTestPlugin(t, plugin.PluginTypeBlob)

	p := plugin.GetPlugin(plugin.PluginTypeBlob, t.Name())
	require.NotNil(t, p)
	assert.IsType(t, &mockPlugin{}, p)
	assert.Nil(t, plugin.GetPlugin(plugin.PluginTypeMetadata, t.Name()))
	assert.Nil(t, plugin.GetPlugin(plugin.PluginTypeBlob, "missing-"+t.Name()))

	found := false
	for _, entry := range plugin.GetPlugins(plugin.PluginTypeBlob) {
		if entry.Name == t.Name() {
			found = true
		}
	}
	assert.True(t, found)
}

func TestStartPlugin(t *testing.T) {
	registerTestPlugin(t, plugin.PluginTypeMetadata)
	p, err := plugin.StartPlugin(plugin.PluginTypeMetadata, t.Name())
	require.NoError(t, err)
	assert.True(t, p.(*mockPlugin).started)

	_, err = plugin.StartPlugin(plugin.PluginTypeMetadata, "missing-"+t.Name())
	require.Error(t, err)

	errStart := errors.New("cannot start")
	plugin.Register(plugin.PluginEntry{
		Type:               plugin.PluginTypeMetadata,
		Name:               "broken-" + t.Name(),
		NewFromOptionsFunc: func() plugin.Plugin { return plugin.NewErrorPlugin(errStart) },
	})
	_, err = plugin.StartPlugin(plugin.PluginTypeMetadata, "broken-"+t.Name())
	require.ErrorIs(t, err, errStart)
}

type closer interface {
	Close() error
}

func TestStartAs(t *testing.T) {
	registerTestPlugin(t, plugin.PluginTypeBlob)
	p, err := plugin.StartAs[*mockPlugin](plugin.PluginTypeBlob, t.Name())
	require.NoError(t, err)
	assert.True(t, p.started)

	// mockPlugin has no Close method
	_, err = plugin.StartAs[closer](plugin.PluginTypeBlob, t.Name())
	require.Error(t, err)
	_, err = plugin.StartAs[*mockPlugin](plugin.PluginTypeBlob, "missing-"+t.Name())
	require.Error(t, err)
}

func TestSetPluginOption(t *testing.T) {
	opts := registerTestPlugin(t, plugin.PluginTypeBlob)
	name := t.Name()

	require.NoError(t, plugin.SetPluginOption(plugin.PluginTypeBlob, name, "path", "/data"))
	assert.Equal(t, "/data", opts.path)
	require.NoError(t, plugin.SetPluginOption(plugin.PluginTypeBlob, name, "enabled", false))
	assert.False(t, opts.enabled)
	require.NoError(t, plugin.SetPluginOption(plugin.PluginTypeBlob, name, "workers", 8))
	assert.Equal(t, 8, opts.workers)
	require.NoError(t, plugin.SetPluginOption(plugin.PluginTypeBlob, name, "size", 42))
	assert.Equal(t, uint64(42), opts.size)
	require.NoError(t, plugin.SetPluginOption(plugin.PluginTypeBlob, name, "size", uint64(43)))
	assert.Equal(t, uint64(43), opts.size)

	require.Error(t, plugin.SetPluginOption(plugin.PluginTypeBlob, name, "path", 123))
	require.Error(t, plugin.SetPluginOption(plugin.PluginTypeBlob, name, "size", -1))
	// Unknown options are ignored
	require.NoError(t, plugin.SetPluginOption(plugin.PluginTypeBlob, name, "nope", "x"))
	require.Error(t, plugin.SetPluginOption(plugin.PluginTypeBlob, "missing-"+name, "path", "x"))
}

func TestPopulateCmdlineOptions(t *testing.T) {
	opts := registerTestPlugin(t, plugin.PluginTypeBlob)
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	require.NoError(t, plugin.PopulateCmdlineOptions(fs))

	prefix := "blob-" + t.Name() + "-"
	require.NoError(t, fs.Parse([]string{
		"--" + prefix + "path=/var/lib",
		"--" + prefix + "workers=3",
	}))
	assert.Equal(t, "/var/lib", opts.path)
	assert.Equal(t, 3, opts.workers)
	// Defaults are applied on registration with the flag set
	assert.True(t, opts.enabled)
	assert.Equal(t, uint64(10), opts.size)
}

func TestProcessConfig(t *testing.T) {
	opts := registerTestPlugin(t, plugin.PluginTypeMetadata)
	err := plugin.ProcessConfig(map[string]map[string]map[string]any{
		"metadata": {
			t.Name(): {
				"path":    "/cfg",
				"workers": 4,
				"size":    7,
			},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "/cfg", opts.path)
	assert.Equal(t, 4, opts.workers)
	assert.Equal(t, uint64(7), opts.size)
}

func TestProcessEnvVars(t *testing.T) {
	opts := registerTestPlugin(t, plugin.PluginTypeBlob)
	t.Setenv("SUIDEX_DATABASE_BLOB_"+"TESTPROCESSENVVARS_PATH", "/env")
	t.Setenv("SUIDEX_DATABASE_BLOB_"+"TESTPROCESSENVVARS_ENABLED", "false")
	t.Setenv("SUIDEX_DATABASE_BLOB_"+"TESTPROCESSENVVARS_SIZE", "99")
	require.NoError(t, plugin.ProcessEnvVars())
	assert.Equal(t, "/env", opts.path)
	assert.False(t, opts.enabled)
	assert.Equal(t, uint64(99), opts.size)

	t.Setenv("SUIDEX_DATABASE_BLOB_"+"TESTPROCESSENVVARS_WORKERS", "many")
	require.Error(t, plugin.ProcessEnvVars())
}

func TestProcessEnvVarsCustomName(t *testing.T) {
	var host string
	plugin.Register(plugin.PluginEntry{
		Type:               plugin.PluginTypeMetadata,
		Name:               t.Name(),
		NewFromOptionsFunc: func() plugin.Plugin { return &mockPlugin{} },
		Options: []plugin.PluginOption{
			{
				Name:         "host",
				Type:         plugin.PluginOptionTypeString,
				CustomEnvVar: "TEST_CUSTOM_DB_HOST",
				Dest:         &host,
			},
		},
	})
	t.Setenv("TEST_CUSTOM_DB_HOST", "custom")
	require.NoError(t, plugin.ProcessEnvVars())
	assert.Equal(t, "custom", host)

	// The prefixed variable wins
	t.Setenv("SUIDEX_DATABASE_METADATA_"+"TESTPROCESSENVVARSCUSTOMNAME_HOST", "prefixed")
	require.NoError(t, plugin.ProcessEnvVars())
	assert.Equal(t, "prefixed", host)
}
