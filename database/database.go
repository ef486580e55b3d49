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

package database

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/blinklabs-io/suidex/database/plugin"
	"github.com/blinklabs-io/suidex/database/plugin/blob"
	"github.com/blinklabs-io/suidex/database/plugin/metadata"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	DefaultBlobPlugin     = "badger"
	DefaultMetadataPlugin = "sqlite"

	// DefaultBlobCacheSize is the memory budget in bytes for cached blob
	// payloads
	DefaultBlobCacheSize = 64 << 20
)

// Config selects and configures the storage plugins. Plugin specific
// options are set through the plugin registry before calling New.
type Config struct {
	Logger         *slog.Logger
	PromRegistry   prometheus.Registerer
	BlobPlugin     string
	MetadataPlugin string
	// DataDir overrides the data-dir option of plugins that have one. Plugins
	// fall back to their own option, which is in-memory by default, when
	// this is empty.
	DataDir string
	// BlobCacheSize bounds the payload read cache in bytes. Zero disables
	// the cache.
	BlobCacheSize int64
}

type Database struct {
	config    Config
	logger    *slog.Logger
	blob      blob.BlobStore
	metadata  metadata.MetadataStore
	blobCache *blobCache
}

// Blob returns the underling blob store instance
func (d *Database) Blob() blob.BlobStore {
	return d.blob
}

// DataDir returns the path to the data directory used for storage
func (d *Database) DataDir() string {
	return d.config.DataDir
}

// Logger returns the logger instance
func (d *Database) Logger() *slog.Logger {
	return d.logger
}

// Metadata returns the underlying metadata store instance
func (d *Database) Metadata() metadata.MetadataStore {
	return d.metadata
}

// Transaction starts a new database transaction and returns a handle to it
func (d *Database) Transaction(readWrite bool) *Txn {
	return NewTxn(d, readWrite)
}

// Close cleans up the database connections
func (d *Database) Close() error {
	var err error
	if d.metadata != nil {
		err = errors.Join(err, d.metadata.Close())
	}
	if d.blob != nil {
		err = errors.Join(err, d.blob.Close())
	}
	return err
}

func (d *Database) init() error {
	if d.logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		d.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	d.logger = d.logger.With("component", "database")
	if d.config.BlobCacheSize > 0 {
		d.blobCache = newBlobCache(d.config.BlobCacheSize)
	}
	return d.verifyCommitTimestamps()
}

// New opens the configured blob and metadata stores. A CommitTimestampError
// is returned along with a usable database, since the stores are still
// readable and the caller decides whether to continue.
func New(config *Config) (*Database, error) {
	if config == nil {
		config = &Config{}
	}
	cfg := *config
	if cfg.BlobPlugin == "" {
		cfg.BlobPlugin = DefaultBlobPlugin
	}
	if cfg.MetadataPlugin == "" {
		cfg.MetadataPlugin = DefaultMetadataPlugin
	}
	if cfg.DataDir != "" {
		if err := plugin.SetPluginOption(plugin.PluginTypeBlob, cfg.BlobPlugin, "data-dir", cfg.DataDir); err != nil {
			return nil, err
		}
		if err := plugin.SetPluginOption(plugin.PluginTypeMetadata, cfg.MetadataPlugin, "data-dir", cfg.DataDir); err != nil {
			return nil, err
		}
	}
	plugin.SetEnvironment(cfg.Logger, cfg.PromRegistry)
	blobDb, err := blob.New(cfg.BlobPlugin)
	if err != nil {
		return nil, fmt.Errorf("open blob store: %w", err)
	}
	metadataDb, err := metadata.New(cfg.MetadataPlugin)
	if err != nil {
		_ = blobDb.Close()
		return nil, fmt.Errorf("open metadata store: %w", err)
	}
	db := &Database{
		config:   cfg,
		logger:   cfg.Logger,
		blob:     blobDb,
		metadata: metadataDb,
	}
	if err := db.init(); err != nil {
		// Database is available for recovery, so return it with error
		return db, err
	}
	return db, nil
}
