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

package aws

import (
	"sync"

	"github.com/blinklabs-io/suidex/database/plugin"
	"github.com/blinklabs-io/suidex/database/plugin/blob/internal/objectstore"
)

var pluginOpts = struct {
	sync.RWMutex
	objectstore.BucketParams
	region string
}{
	BucketParams: objectstore.DefaultBucketParams(),
}

func init() {
	options := append(
		pluginOpts.PluginOptions("S3"),
		plugin.PluginOption{
			Name:         "region",
			Type:         plugin.PluginOptionTypeString,
			Description:  "AWS region, taken from the SDK defaults when empty",
			DefaultValue: "",
			Dest:         &pluginOpts.region,
		},
	)
	plugin.Register(
		plugin.PluginEntry{
			Type:               plugin.PluginTypeBlob,
			Name:               "s3",
			Description:        "AWS S3 or S3 compatible blob store",
			NewFromOptionsFunc: newFromPluginOptions,
			Options:            options,
		},
	)
}

func newFromPluginOptions() plugin.Plugin {
	pluginOpts.RLock()
	params := pluginOpts.BucketParams
	region := pluginOpts.region
	pluginOpts.RUnlock()

	logger, promRegistry := plugin.Environment()
	p, err := NewWithOptions(
		WithLogger(logger),
		WithPromRegistry(promRegistry),
		WithBucketParams(params),
		WithRegion(region),
	)
	if err != nil {
		return plugin.NewErrorPlugin(err)
	}
	return p
}
