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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/blinklabs-io/suidex/source"
	"github.com/prometheus/client_golang/prometheus"
)

// RunMode selects which parts of the indexer run
type RunMode string

const (
	RunModeServe  RunMode = "serve"  // Ingestion and query API (default)
	RunModeIngest RunMode = "ingest" // Ingestion only
	RunModeAPI    RunMode = "api"    // Read-only query API over an existing store
)

// Valid returns true if the RunMode is a known mode. The empty mode means
// serve.
func (m RunMode) Valid() bool {
	switch m {
	case RunModeServe, RunModeIngest, RunModeAPI, "":
		return true
	default:
		return false
	}
}

// Ingests returns true if the mode runs the ingestion pipeline
func (m RunMode) Ingests() bool {
	return m != RunModeAPI
}

// ServesAPI returns true if the mode runs the query API
func (m RunMode) ServesAPI() bool {
	return m != RunModeIngest
}

const DefaultShutdownTimeout = 30 * time.Second

type Config struct {
	promRegistry     prometheus.Registerer
	logger           *slog.Logger
	source           source.Source
	startCheckpoint  *uint64
	rpcURL           string
	dataDir          string
	blobPlugin       string
	metadataPlugin   string
	apiListenAddress string
	runMode          RunMode
	pollInterval     time.Duration
	shutdownTimeout  time.Duration
	blobCacheSize    int64
	fetchBatchSize   int
	fetchConcurrency int
	resetDatabase    bool
	tracing          bool
	tracingStdout    bool
}

func (c *Config) validate() error {
	if !c.runMode.Valid() {
		return fmt.Errorf(
			"invalid run mode: %q (must be 'serve', 'ingest', or 'api')",
			c.runMode,
		)
	}
	if c.runMode.Ingests() && c.source == nil && c.rpcURL == "" {
		return errors.New("no checkpoint source: an RPC URL is required")
	}
	if c.runMode == RunModeAPI && c.resetDatabase {
		return errors.New("the database cannot be reset in api mode")
	}
	if c.pollInterval < 0 {
		return fmt.Errorf("invalid poll interval: %s", c.pollInterval)
	}
	if c.shutdownTimeout < 0 {
		return fmt.Errorf("invalid shutdown timeout: %s", c.shutdownTimeout)
	}
	return nil
}

// ConfigOptionFunc is a type that represents functions that modify the indexer config
type ConfigOptionFunc func(*Config)

// NewConfig creates a new suidex config with the specified options
func NewConfig(opts ...ConfigOptionFunc) Config {
	c := Config{
		// Default logger will throw away logs
		// We do this so we don't have to add guards around every log operation
		logger:          slog.New(slog.NewJSONHandler(io.Discard, nil)),
		runMode:         RunModeServe,
		shutdownTimeout: DefaultShutdownTimeout,
	}
	// Apply options
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithLogger specifies the logger to use. This defaults to discarding log output
func WithLogger(logger *slog.Logger) ConfigOptionFunc {
	return func(c *Config) {
		c.logger = logger
	}
}

// WithDatabasePath specifies the persistent data directory to use. The default is to store everything in memory
func WithDatabasePath(dataDir string) ConfigOptionFunc {
	return func(c *Config) {
		c.dataDir = dataDir
	}
}

// WithBlobPlugin specifies the blob storage plugin to use.
func WithBlobPlugin(plugin string) ConfigOptionFunc {
	return func(c *Config) {
		c.blobPlugin = plugin
	}
}

// WithMetadataPlugin specifies the metadata storage plugin to use.
func WithMetadataPlugin(plugin string) ConfigOptionFunc {
	return func(c *Config) {
		c.metadataPlugin = plugin
	}
}

// WithBlobCacheSize bounds the in-process cache of raw payloads, in bytes
func WithBlobCacheSize(size int64) ConfigOptionFunc {
	return func(c *Config) {
		c.blobCacheSize = size
	}
}

// WithRPCURL specifies the full node JSON-RPC endpoint to ingest from
func WithRPCURL(url string) ConfigOptionFunc {
	return func(c *Config) {
		c.rpcURL = url
	}
}

// WithSource specifies the checkpoint source directly. This takes priority over WithRPCURL and is mostly useful
// for tests and development
func WithSource(src source.Source) ConfigOptionFunc {
	return func(c *Config) {
		c.source = src
	}
}

// WithPrometheusRegistry specifies a prometheus.Registerer instance to add metrics to. In most cases, prometheus.DefaultRegistry would be
// a good choice to get metrics working
func WithPrometheusRegistry(registry prometheus.Registerer) ConfigOptionFunc {
	return func(c *Config) {
		c.promRegistry = registry
	}
}

// WithTracing enables tracing. By default, spans are submitted to a HTTP(s) endpoint using OTLP. This can be configured
// using the OTEL_EXPORTER_OTLP_* env vars documented in the README for [go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp]
func WithTracing(tracing bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracing = tracing
	}
}

// WithTracingStdout enables tracing output to stdout. This also requires tracing to enabled separately. This is mostly useful for debugging
func WithTracingStdout(stdout bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracingStdout = stdout
	}
}

// WithShutdownTimeout specifies the timeout for graceful shutdown. The default is 30 seconds
func WithShutdownTimeout(timeout time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.shutdownTimeout = timeout
	}
}

// WithRunMode sets the operational mode ("serve", "ingest", or "api")
func WithRunMode(mode RunMode) ConfigOptionFunc {
	return func(c *Config) {
		c.runMode = mode
	}
}

// WithAPIListenAddress specifies the listen address for the query API. The default is :3030
func WithAPIListenAddress(addr string) ConfigOptionFunc {
	return func(c *Config) {
		c.apiListenAddress = addr
	}
}

// WithPollInterval specifies how long to wait before asking the source again for a checkpoint that isn't
// available yet
func WithPollInterval(interval time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.pollInterval = interval
	}
}

// WithFetchBatchSize specifies how many transactions are requested from the source per call
func WithFetchBatchSize(size int) ConfigOptionFunc {
	return func(c *Config) {
		c.fetchBatchSize = size
	}
}

// WithFetchConcurrency specifies how many source calls may be in flight while fetching one checkpoint
func WithFetchConcurrency(concurrency int) ConfigOptionFunc {
	return func(c *Config) {
		c.fetchConcurrency = concurrency
	}
}

// WithStartCheckpoint makes ingestion start at the given checkpoint instead of after the stored watermark
func WithStartCheckpoint(seq uint64) ConfigOptionFunc {
	return func(c *Config) {
		c.startCheckpoint = &seq
	}
}

// WithResetDatabase clears all indexed data before ingestion starts
func WithResetDatabase(reset bool) ConfigOptionFunc {
	return func(c *Config) {
		c.resetDatabase = reset
	}
}
