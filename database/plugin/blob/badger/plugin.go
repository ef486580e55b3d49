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
	"sync"

	"github.com/blinklabs-io/suidex/database/plugin"
)

var (
	pluginOpts struct {
		sync.RWMutex
		dataDir        string
		blockCacheSize uint64
		indexCacheSize uint64
		gc             bool
	}
)

func init() {
	pluginOpts.blockCacheSize = DefaultBlockCacheSize
	pluginOpts.indexCacheSize = DefaultIndexCacheSize
	pluginOpts.gc = true
	plugin.Register(plugin.PluginEntry{
		Type:               plugin.PluginTypeBlob,
		Name:               "badger",
		Description:        "BadgerDB local key-value store",
		NewFromOptionsFunc: newFromPluginOptions,
		Options: []plugin.PluginOption{
			{
				Name:         "data-dir",
				Type:         plugin.PluginOptionTypeString,
				Description:  "Data directory for blobs, in-memory when empty",
				DefaultValue: "",
				Dest:         &pluginOpts.dataDir,
			},
			{
				Name:         "block-cache-size",
				Type:         plugin.PluginOptionTypeUint,
				Description:  "Badger block cache size in bytes",
				DefaultValue: uint64(DefaultBlockCacheSize),
				Dest:         &pluginOpts.blockCacheSize,
			},
			{
				Name:         "index-cache-size",
				Type:         plugin.PluginOptionTypeUint,
				Description:  "Badger index cache size in bytes",
				DefaultValue: uint64(DefaultIndexCacheSize),
				Dest:         &pluginOpts.indexCacheSize,
			},
			{
				Name:         "gc",
				Type:         plugin.PluginOptionTypeBool,
				Description:  "Run value log garbage collection",
				DefaultValue: true,
				Dest:         &pluginOpts.gc,
			},
		},
	})
}

func newFromPluginOptions() plugin.Plugin {
	logger, promRegistry := plugin.Environment()
	pluginOpts.RLock()
	opts := []BlobStoreBadgerOptionFunc{
		WithLogger(logger),
		WithPromRegistry(promRegistry),
		WithDataDir(pluginOpts.dataDir),
		WithCacheSizes(pluginOpts.blockCacheSize, pluginOpts.indexCacheSize),
		WithGc(pluginOpts.gc),
	}
	pluginOpts.RUnlock()
	store, err := New(opts...)
	if err != nil {
		return plugin.NewErrorPlugin(err)
	}
	return store
}
