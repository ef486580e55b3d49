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
	"sync"

	"github.com/blinklabs-io/suidex/database/plugin"
)

var pluginOpts = struct {
	sync.RWMutex
	dataDir        string
	maxConnections int
}{maxConnections: DefaultMaxConnections}

func init() {
	plugin.Register(plugin.PluginEntry{
		Type:               plugin.PluginTypeMetadata,
		Name:               "sqlite",
		Description:        "SQLite relational database",
		NewFromOptionsFunc: newFromPluginOptions,
		Options: []plugin.PluginOption{
			{
				Name:         "data-dir",
				Type:         plugin.PluginOptionTypeString,
				Description:  "Data directory for the database file, in-memory when empty",
				DefaultValue: "",
				Dest:         &pluginOpts.dataDir,
			},
			{
				Name:         "max-connections",
				Type:         plugin.PluginOptionTypeInt,
				Description:  "Maximum number of open connections",
				DefaultValue: DefaultMaxConnections,
				Dest:         &pluginOpts.maxConnections,
			},
		},
	})
}

func newFromPluginOptions() plugin.Plugin {
	pluginOpts.RLock()
	dataDir, maxConns := pluginOpts.dataDir, pluginOpts.maxConnections
	pluginOpts.RUnlock()
	logger, promRegistry := plugin.Environment()
	p, err := NewWithOptions(
		WithLogger(logger),
		WithPromRegistry(promRegistry),
		WithDataDir(dataDir),
		WithMaxConnections(maxConns),
	)
	if err != nil {
		return plugin.NewErrorPlugin(err)
	}
	return p
}
