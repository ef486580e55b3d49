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
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/blinklabs-io/suidex/database/plugin/metadata/internal/store"
	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

const (
	DefaultMaxConnections = 8
	DefaultVacuumInterval = 24 * time.Hour

	dbFileName = "metadata.sqlite"
	// WAL journal, no sync on write, 50MB page cache
	diskPragmas = "_pragma=journal_mode(WAL)&_pragma=sync(OFF)&_pragma=cache_size(-50000)&_pragma=busy_timeout(5000)"
)

var memoryDbCounter atomic.Uint64

// MetadataStoreSqlite is a SQLite-based implementation of the metadata store
type MetadataStoreSqlite struct {
	*store.Store

	promRegistry   prometheus.Registerer
	logger         *slog.Logger
	stopVacuum     context.CancelFunc
	vacuumDone     chan struct{}
	dataDir        string
	maxConnections int
	vacuumInterval time.Duration
	mu             sync.Mutex
}

// New creates and starts a SQLite metadata store. Uses an in-memory database
// if dataDir is empty.
func New(
	dataDir string,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) (*MetadataStoreSqlite, error) {
	db, err := NewWithOptions(
		WithDataDir(dataDir),
		WithLogger(logger),
		WithPromRegistry(promRegistry),
	)
	if err != nil {
		return nil, err
	}
	if err := db.Start(); err != nil {
		return nil, err
	}
	return db, nil
}

// NewWithOptions creates a SQLite metadata store with options. The database
// is opened by Start().
func NewWithOptions(opts ...SqliteOptionFunc) (*MetadataStoreSqlite, error) {
	d := &MetadataStoreSqlite{
		maxConnections: DefaultMaxConnections,
		vacuumInterval: DefaultVacuumInterval,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if d.maxConnections <= 0 {
		d.maxConnections = DefaultMaxConnections
	}
	return d, nil
}

// dsn names a private shared-cache database for in-memory stores, so that
// every connection of one store sees the same data and stores stay
// isolated from each other
func (d *MetadataStoreSqlite) dsn() (string, error) {
	if d.dataDir == "" {
		return fmt.Sprintf(
			"file:suidex-%d?mode=memory&cache=shared",
			memoryDbCounter.Add(1),
		), nil
	}
	if err := os.MkdirAll(d.dataDir, 0o755); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}
	return fmt.Sprintf(
		"file:%s?%s",
		filepath.Join(d.dataDir, dbFileName),
		diskPragmas,
	), nil
}

func (d *MetadataStoreSqlite) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	dsn, err := d.dsn()
	if err != nil {
		return err
	}
	db, err := gorm.Open(sqlite.Open(dsn), store.GormConfig(false))
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	if d.dataDir == "" {
		// A shared cache database allows one writer, and readers would
		// block on its table locks
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(d.maxConnections)
	}
	storeOpts := []store.StoreOptionFunc{
		store.WithLogger(d.logger),
	}
	if d.promRegistry != nil {
		storeOpts = append(
			storeOpts,
			store.WithPromRegistry(d.promRegistry, "metadata_sqlite"),
		)
	}
	s, err := store.New(db, storeOpts...)
	if err != nil {
		_ = sqlDB.Close()
		return err
	}
	d.Store = s
	if err := d.Migrate(nil); err != nil {
		return err
	}
	if d.dataDir != "" && d.vacuumInterval > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		d.stopVacuum = cancel
		d.vacuumDone = make(chan struct{})
		go d.vacuumLoop(ctx)
	}
	return nil
}

func (d *MetadataStoreSqlite) Stop() error {
	return d.Close()
}

// vacuumLoop frees unused pages of the database file once per interval
func (d *MetadataStoreSqlite) vacuumLoop(ctx context.Context) {
	defer close(d.vacuumDone)
	ticker := time.NewTicker(d.vacuumInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		d.logger.Debug(
			"running vacuum on sqlite metadata database",
			"component", "database",
		)
		if err := d.DB().WithContext(ctx).Exec("VACUUM").Error; err != nil &&
			ctx.Err() == nil {
			d.logger.Error(
				"failed to free unused space in metadata store",
				"component", "database",
				"error", err,
			)
		}
	}
}

// Close stops the vacuum loop and closes the database. It's safe to call
// more than once, and before Start().
func (d *MetadataStoreSqlite) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopVacuum != nil {
		d.stopVacuum()
		<-d.vacuumDone
		d.stopVacuum = nil
	}
	if d.Store == nil {
		return nil
	}
	err := d.Store.Close()
	d.Store = nil
	return err
}
