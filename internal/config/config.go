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

package config

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"time"

	"github.com/blinklabs-io/suidex/database/plugin"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type ctxKey string

const configContextKey ctxKey = "suidex.config"

const (
	DefaultShutdownTimeout = "30s"
	DefaultPollInterval    = "500ms"
)

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

const (
	DefaultBlobPlugin     = "badger"
	DefaultMetadataPlugin = "sqlite"
)

// ErrPluginListRequested is returned when the user requests to list available plugins
// This is not an error condition but a successful operation that displays plugin information
var ErrPluginListRequested = errors.New("plugin list requested")

// RunMode represents the operational mode of the indexer
type RunMode string

const (
	RunModeServe  RunMode = "serve"  // Ingestion and query API (default)
	RunModeIngest RunMode = "ingest" // Ingestion only
	RunModeAPI    RunMode = "api"    // Read-only query API
)

// Valid returns true if the RunMode is a known valid mode
func (m RunMode) Valid() bool {
	switch m {
	case RunModeServe, RunModeIngest, RunModeAPI, "":
		return true
	default:
		return false
	}
}

type tempConfig struct {
	Config   *yaml.Node                `yaml:"config,omitempty"`
	Database *databaseConfig           `yaml:"database,omitempty"`
	Blob     map[string]map[string]any `yaml:"blob,omitempty"`
	Metadata map[string]map[string]any `yaml:"metadata,omitempty"`
}

type databaseConfig struct {
	Blob     map[string]any `yaml:"blob,omitempty"`
	Metadata map[string]any `yaml:"metadata,omitempty"`
}

type Config struct {
	MetadataPlugin   string  `yaml:"metadataPlugin"   envconfig:"SUIDEX_DATABASE_METADATA_PLUGIN"`
	BlobPlugin       string  `yaml:"blobPlugin"       envconfig:"SUIDEX_DATABASE_BLOB_PLUGIN"`
	DatabasePath     string  `yaml:"databasePath"                                                split_words:"true"`
	RpcUrl           string  `yaml:"rpcUrl"                                                      split_words:"true"`
	BindAddr         string  `yaml:"bindAddr"                                                    split_words:"true"`
	ApiListenAddress string  `yaml:"apiListenAddress"                                            split_words:"true"`
	PollInterval     string  `yaml:"pollInterval"                                                split_words:"true"`
	ShutdownTimeout  string  `yaml:"shutdownTimeout"                                             split_words:"true"`
	RunMode          RunMode `yaml:"runMode"          envconfig:"SUIDEX_RUN_MODE"`
	StartCheckpoint  *uint64 `yaml:"startCheckpoint"                                             split_words:"true"`
	BlobCacheSize    int64   `yaml:"blobCacheSize"                                               split_words:"true"`
	FetchBatchSize   int     `yaml:"fetchBatchSize"                                              split_words:"true"`
	FetchConcurrency int     `yaml:"fetchConcurrency"                                            split_words:"true"`
	MetricsPort      uint    `yaml:"metricsPort"                                                 split_words:"true"`
	ResetDatabase    bool    `yaml:"resetDatabase"                                               split_words:"true"`
	Tracing          bool    `yaml:"tracing"`
	TracingStdout    bool    `yaml:"tracingStdout"                                               split_words:"true"`
}

// ParsedPollInterval returns the poll interval as a duration
func (c *Config) ParsedPollInterval() (time.Duration, error) {
	return parsePositiveDuration("poll interval", c.PollInterval, DefaultPollInterval)
}

// ParsedShutdownTimeout returns the shutdown timeout as a duration
func (c *Config) ParsedShutdownTimeout() (time.Duration, error) {
	return parsePositiveDuration("shutdown timeout", c.ShutdownTimeout, DefaultShutdownTimeout)
}

func parsePositiveDuration(name, value, def string) (time.Duration, error) {
	if value == "" {
		value = def
	}
	ret, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	if ret <= 0 {
		return 0, fmt.Errorf("invalid %s: %s is not positive", name, value)
	}
	return ret, nil
}

func defaultConfig() *Config {
	return &Config{
		BlobPlugin:       DefaultBlobPlugin,
		MetadataPlugin:   DefaultMetadataPlugin,
		DatabasePath:     ".suidex",
		RpcUrl:           "http://localhost:9000",
		BindAddr:         "0.0.0.0",
		ApiListenAddress: ":3030",
		MetricsPort:      12799,
		PollInterval:     DefaultPollInterval,
		ShutdownTimeout:  DefaultShutdownTimeout,
		RunMode:          RunModeServe,
		BlobCacheSize:    64 << 20,
		FetchBatchSize:   50,
		FetchConcurrency: 4,
	}
}

var globalConfig = defaultConfig()

// configSearchPaths returns the config files tried, in order, when none is
// given
func configSearchPaths() []string {
	var ret []string
	if homeDir, err := os.UserHomeDir(); err == nil {
		ret = append(ret, filepath.Join(homeDir, ".suidex", "suidex.yaml"))
	}
	return append(ret, "/etc/suidex/suidex.yaml")
}

// LoadConfig builds the configuration from the defaults, the config file, and
// the environment, in that order of precedence
func LoadConfig(configFile string) (*Config, error) {
	globalConfig = defaultConfig()
	if configFile == "" {
		for _, path := range configSearchPaths() {
			if _, err := os.Stat(path); err == nil {
				configFile = path
				break
			}
		}
	}
	if configFile != "" {
		if err := loadConfigFile(configFile); err != nil {
			return nil, err
		}
	}
	// Process environment variables
	if err := envconfig.Process("suidex", globalConfig); err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}
	// Process plugin environment variables
	if err := plugin.ProcessEnvVars(); err != nil {
		return nil, fmt.Errorf(
			"error processing plugin environment variables: %w",
			err,
		)
	}
	if err := globalConfig.validate(); err != nil {
		return nil, err
	}
	if globalConfig.RunMode == "" {
		globalConfig.RunMode = RunModeServe
	}
	return globalConfig, nil
}

func (c *Config) validate() error {
	if !c.RunMode.Valid() {
		return fmt.Errorf(
			"invalid runMode: %q (must be 'serve', 'ingest', or 'api')",
			c.RunMode,
		)
	}
	if _, err := c.ParsedPollInterval(); err != nil {
		return err
	}
	if _, err := c.ParsedShutdownTimeout(); err != nil {
		return err
	}
	if c.FetchBatchSize < 0 || c.FetchConcurrency < 0 {
		return errors.New("fetch batch size and concurrency must not be negative")
	}
	return nil
}

func loadConfigFile(configFile string) error {
	buf, err := os.ReadFile(configFile)
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	// First unmarshal into temp config to handle plugin sections
	var tempCfg tempConfig
	if err := yaml.Unmarshal(buf, &tempCfg); err != nil {
		return fmt.Errorf("error parsing config file: %w", err)
	}
	if tempCfg.Config != nil && tempCfg.Config.Kind != 0 {
		// Only keys present in the section replace the defaults
		if err := tempCfg.Config.Decode(globalConfig); err != nil {
			return fmt.Errorf("error parsing config section: %w", err)
		}
	} else if err := yaml.Unmarshal(buf, globalConfig); err != nil {
		return fmt.Errorf("error parsing config file: %w", err)
	}

	// Process plugin configurations
	pluginConfig := make(map[string]map[string]map[string]any)
	if tempCfg.Blob != nil {
		pluginConfig["blob"] = tempCfg.Blob
	}
	if tempCfg.Metadata != nil {
		pluginConfig["metadata"] = tempCfg.Metadata
	}
	if tempCfg.Database != nil {
		if tempCfg.Database.Blob != nil {
			name, section := pluginSection("blob", tempCfg.Database.Blob)
			if name != "" {
				globalConfig.BlobPlugin = name
			}
			mergePluginSection(pluginConfig, "blob", section)
		}
		if tempCfg.Database.Metadata != nil {
			name, section := pluginSection("metadata", tempCfg.Database.Metadata)
			if name != "" {
				globalConfig.MetadataPlugin = name
			}
			mergePluginSection(pluginConfig, "metadata", section)
		}
	}
	if len(pluginConfig) > 0 {
		if err := plugin.ProcessConfig(pluginConfig); err != nil {
			return fmt.Errorf("error processing plugin config: %w", err)
		}
	}
	return nil
}

// pluginSection splits a database.<type> section into the selected plugin
// name and the per-plugin option maps
func pluginSection(
	pluginType string,
	raw map[string]any,
) (string, map[string]map[string]any) {
	var name string
	ret := make(map[string]map[string]any)
	for k, v := range raw {
		if k == "plugin" {
			name, _ = v.(string)
			continue
		}
		switch val := v.(type) {
		case map[string]any:
			ret[k] = val
		case map[any]any:
			stringAnyMap := make(map[string]any)
			for vk, vv := range val {
				if keyStr, ok := vk.(string); ok {
					stringAnyMap[keyStr] = vv
				}
			}
			ret[k] = stringAnyMap
		default:
			fmt.Fprintf(
				os.Stderr,
				"warning: skipping %s config entry %q: expected map, got %T\n",
				pluginType,
				k,
				v,
			)
		}
	}
	return name, ret
}

func mergePluginSection(
	pluginConfig map[string]map[string]map[string]any,
	pluginType string,
	section map[string]map[string]any,
) {
	if pluginConfig[pluginType] == nil {
		pluginConfig[pluginType] = section
		return
	}
	maps.Copy(pluginConfig[pluginType], section)
}

func GetConfig() *Config {
	return globalConfig
}
