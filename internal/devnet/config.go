//go:build devnet

// Copyright 2026 Blink Labs Software
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

package devnet

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// defaultDevNetYAMLPath is the default path to devnet.yaml, relative to
// the scenarios test package directory.
const defaultDevNetYAMLPath = "../testdata/devnet.yaml"

type devnetFile struct {
	Endpoints          []NodeEndpoint `yaml:"endpoints"`
	CheckpointInterval string         `yaml:"checkpointInterval"`
	Validators         int            `yaml:"validators"`
}

// DevNetConfig holds the parsed configuration values from devnet.yaml.
type DevNetConfig struct {
	Endpoints          []NodeEndpoint
	CheckpointInterval time.Duration
	Validators         int
}

// CheckpointTimeout returns how long to wait for n checkpoints, with
// some slack for startup variance.
func (c *DevNetConfig) CheckpointTimeout(n uint64) time.Duration {
	return time.Duration(n+10) * c.CheckpointInterval
}

// LoadDevNetConfig reads devnet.yaml and returns the parsed DevNetConfig.
// The path is taken from the DEVNET_CONFIG_YAML environment variable; if
// unset, it defaults to defaultDevNetYAMLPath.
func LoadDevNetConfig() (*DevNetConfig, error) {
	path := os.Getenv("DEVNET_CONFIG_YAML")
	if path == "" {
		path = defaultDevNetYAMLPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("LoadDevNetConfig: reading %s: %w", path, err)
	}
	var raw devnetFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("LoadDevNetConfig: parsing %s: %w", path, err)
	}
	if len(raw.Endpoints) == 0 {
		raw.Endpoints = DefaultEndpoints()
	}
	interval := time.Second
	if raw.CheckpointInterval != "" {
		interval, err = time.ParseDuration(raw.CheckpointInterval)
		if err != nil {
			return nil, fmt.Errorf(
				"LoadDevNetConfig: invalid checkpointInterval %q: %w",
				raw.CheckpointInterval, err,
			)
		}
		if interval <= 0 {
			return nil, fmt.Errorf(
				"LoadDevNetConfig: checkpointInterval must be positive",
			)
		}
	}
	return &DevNetConfig{
		Endpoints:          raw.Endpoints,
		CheckpointInterval: interval,
		Validators:         raw.Validators,
	}, nil
}
