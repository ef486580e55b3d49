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
	"sync"

	"github.com/blinklabs-io/suidex/database/plugin"
)

var pluginConn = struct {
	sync.RWMutex
	ConnParams
}{ConnParams: DefaultConnParams}

func init() {
	plugin.Register(plugin.PluginEntry{
		Type:               plugin.PluginTypeMetadata,
		Name:               "postgres",
		Description:        "Postgres relational database",
		NewFromOptionsFunc: newFromPluginOptions,
		Options:            pluginConn.PluginOptions("Postgres"),
	})
}

func newFromPluginOptions() plugin.Plugin {
	pluginConn.RLock()
	params := pluginConn.ConnParams
	pluginConn.RUnlock()
	logger, promRegistry := plugin.Environment()
	p, err := NewWithOptions(
		WithLogger(logger),
		WithPromRegistry(promRegistry),
		WithConnParams(params),
	)
	if err != nil {
		return plugin.NewErrorPlugin(err)
	}
	return p
}
