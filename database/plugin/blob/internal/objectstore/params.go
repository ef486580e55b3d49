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

package objectstore

import (
	"time"

	"github.com/blinklabs-io/suidex/database/plugin"
)

// BucketParams holds the settings shared by the object store plugins
type BucketParams struct {
	Bucket   string
	Prefix   string
	Endpoint string
	// TimeoutSeconds bounds each request to the service
	TimeoutSeconds uint64
}

func DefaultBucketParams() BucketParams {
	return BucketParams{TimeoutSeconds: uint64(DefaultTimeout / time.Second)}
}

func (p *BucketParams) Timeout() time.Duration {
	if p.TimeoutSeconds == 0 {
		return DefaultTimeout
	}
	return time.Duration(p.TimeoutSeconds) * time.Second //nolint:gosec
}

// PluginOptions describes the shared settings for the plugin registry.
// service names the backing service in option descriptions.
func (p *BucketParams) PluginOptions(service string) []plugin.PluginOption {
	return []plugin.PluginOption{
		{
			Name:         "bucket",
			Type:         plugin.PluginOptionTypeString,
			Description:  service + " bucket name",
			DefaultValue: "",
			Dest:         &p.Bucket,
		},
		{
			Name:         "prefix",
			Type:         plugin.PluginOptionTypeString,
			Description:  "Prefix prepended to every object name",
			DefaultValue: "",
			Dest:         &p.Prefix,
		},
		{
			Name:         "endpoint",
			Type:         plugin.PluginOptionTypeString,
			Description:  "Custom " + service + " endpoint, such as a local emulator",
			DefaultValue: "",
			Dest:         &p.Endpoint,
		},
		{
			Name:         "timeout",
			Type:         plugin.PluginOptionTypeUint,
			Description:  "Timeout in seconds for each " + service + " request",
			DefaultValue: uint64(DefaultTimeout / time.Second),
			Dest:         &p.TimeoutSeconds,
		},
	}
}
