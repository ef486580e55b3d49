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
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/blinklabs-io/suidex/database/types"
	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	// Blobs are mostly small transactions and objects, so the caches are
	// smaller than badger's own defaults
	DefaultBlockCacheSize = 256 << 20
	DefaultIndexCacheSize = 128 << 20
	DefaultGcInterval     = 5 * time.Minute

	// DefaultValueThreshold moves values above 1 KiB to the value log on disk
	DefaultValueThreshold = 1 << 10
	// InMemoryValueThreshold is badger's upper bound. An in-memory store has
	// no value log, so it rejects any value above the threshold.
	InMemoryValueThreshold = 1 << 20

	valueLogFileSize = 1 << 30
	memTableSize     = 64 << 20
	gcDiscardRatio   = 0.5
)

// BlobStoreBadger stores blobs in badger, on disk or in memory when no data
// directory is given
type BlobStoreBadger struct {
	promRegistry   prometheus.Registerer
	metrics        *blobMetrics
	db             *badger.DB
	logger         *slog.Logger
	stopGc         context.CancelFunc
	gcDone         chan struct{}
	dataDir        string
	blockCacheSize uint64
	indexCacheSize uint64
	gcInterval     time.Duration
	valueThreshold int64
	gcEnabled      bool
	closeOnce      sync.Once
	closeErr       error
}

func New(opts ...BlobStoreBadgerOptionFunc) (*BlobStoreBadger, error) {
	d := &BlobStoreBadger{
		gcEnabled:      true,
		gcInterval:     DefaultGcInterval,
		blockCacheSize: DefaultBlockCacheSize,
		indexCacheSize: DefaultIndexCacheSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	badgerOpts, err := d.badgerOptions()
	if err != nil {
		return nil, err
	}
	d.db, err = badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	if d.promRegistry != nil {
		d.registerBlobMetrics()
	}
	if d.gcEnabled && d.dataDir != "" && d.gcInterval > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		d.stopGc = cancel
		d.gcDone = make(chan struct{})
		go d.runGc(ctx)
	}
	return d, nil
}

func (d *BlobStoreBadger) badgerOptions() (badger.Options, error) {
	if d.dataDir == "" {
		threshold := d.valueThreshold
		if threshold <= 0 || threshold > InMemoryValueThreshold {
			threshold = InMemoryValueThreshold
		}
		return badger.DefaultOptions("").
			WithLogger(NewBadgerLogger(d.logger)).
			WithLoggingLevel(badger.WARNING).
			WithInMemory(true).
			WithValueThreshold(threshold), nil
	}
	threshold := d.valueThreshold
	if threshold <= 0 {
		threshold = DefaultValueThreshold
	}
	blobDir := filepath.Join(d.dataDir, "blob")
	if err := os.MkdirAll(blobDir, 0o755); err != nil {
		return badger.Options{}, fmt.Errorf("create blob dir: %w", err)
	}
	return badger.DefaultOptions(blobDir).
		WithLogger(NewBadgerLogger(d.logger)).
		WithLoggingLevel(badger.WARNING).
		WithBlockCacheSize(int64(d.blockCacheSize)). //nolint:gosec
		WithIndexCacheSize(int64(d.indexCacheSize)). //nolint:gosec
		WithValueLogFileSize(valueLogFileSize).
		WithMemTableSize(memTableSize).
		WithValueThreshold(threshold).
		WithCompression(options.Snappy), nil
}

// runGc rewrites value log files until badger reports nothing left to
// reclaim, once per interval
func (d *BlobStoreBadger) runGc(ctx context.Context) {
	defer close(d.gcDone)
	ticker := time.NewTicker(d.gcInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		for ctx.Err() == nil {
			err := d.db.RunValueLogGC(gcDiscardRatio)
			if err == nil {
				continue
			}
			if !errors.Is(err, badger.ErrNoRewrite) {
				d.logger.Warn(
					"blob value log GC failed",
					"component", "database",
					"error", err,
				)
			}
			break
		}
	}
}

// Start is a no-op: the database is opened by New
func (d *BlobStoreBadger) Start() error {
	return nil
}

func (d *BlobStoreBadger) Stop() error {
	return d.Close()
}

// Close stops GC and closes the database. It's safe to call more than once.
func (d *BlobStoreBadger) Close() error {
	d.closeOnce.Do(func() {
		if d.stopGc != nil {
			d.stopGc()
			<-d.gcDone
		}
		d.closeErr = d.db.Close()
	})
	return d.closeErr
}

func (d *BlobStoreBadger) DB() *badger.DB {
	return d.db
}

func (d *BlobStoreBadger) NewTransaction(update bool) types.Txn {
	return &blobTxn{owner: d, tx: d.db.NewTransaction(update)}
}

func (d *BlobStoreBadger) Get(txn types.Txn, key []byte) ([]byte, error) {
	tx, err := d.txnFor(txn)
	if err != nil {
		return nil, err
	}
	item, err := tx.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, types.ErrBlobKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return nil, err
	}
	d.observe("get", len(val))
	return val, nil
}

func (d *BlobStoreBadger) Set(txn types.Txn, key, val []byte) error {
	tx, err := d.txnFor(txn)
	if err != nil {
		return err
	}
	if err := tx.Set(key, val); err != nil {
		return err
	}
	d.observe("set", len(val))
	return nil
}

func (d *BlobStoreBadger) Delete(txn types.Txn, key []byte) error {
	tx, err := d.txnFor(txn)
	if err != nil {
		return err
	}
	if err := tx.Delete(key); err != nil {
		return err
	}
	d.observe("delete", 0)
	return nil
}
