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

package gcs

import (
	"sync"

	"github.com/blinklabs-io/suidex/database/plugin"
	"github.com/blinklabs-io/suidex/database/plugin/blob/internal/objectstore"
)

var pluginOpts = struct {
	sync.RWMutex
	objectstore.BucketParams
	credentialsFile string
}{
	BucketParams: objectstore.DefaultBucketParams(),
}

func init() {
	options := append(
		pluginOpts.PluginOptions("GCS"),
		plugin.PluginOption{
			Name:         "credentials-file",
			Type:         plugin.PluginOptionTypeString,
			Description:  "Service account key file",
			DefaultValue: "",
			CustomEnvVar: "GOOGLE_APPLICATION_CREDENTIALS",
			Dest:         &pluginOpts.credentialsFile,
		},
	)
	plugin.Register(
		plugin.PluginEntry{
			Type:               plugin.PluginTypeBlob,
			Name:               "gcs",
			Description:        "Google Cloud Storage blob store",
			NewFromOptionsFunc: newFromPluginOptions,
			Options:            options,
		},
	)
}

func newFromPluginOptions() plugin.Plugin {
	pluginOpts.RLock()
	params := pluginOpts.BucketParams
	credentialsFile := pluginOpts.credentialsFile
	pluginOpts.RUnlock()

	logger, promRegistry := plugin.Environment()
	p, err := NewWithOptions(
		WithLogger(logger),
		WithPromRegistry(promRegistry),
		WithBucketParams(params),
		WithCredentialsFile(credentialsFile),
	)
	if err != nil {
		return plugin.NewErrorPlugin(err)
	}
	return p
}
