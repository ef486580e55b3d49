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
	"sync"
	"time"

	"github.com/blinklabs-io/suidex/database/types"
)

// Txn pairs a blob transaction with a metadata transaction. Metadata-only
// transactions leave the blob side nil.
type Txn struct {
	db        *Database
	blob      types.Txn
	metadata  types.Txn
	readWrite bool

	mu   sync.Mutex
	done bool
}

func NewTxn(db *Database, readWrite bool) *Txn {
	return &Txn{
		db:        db,
		blob:      db.blob.NewTransaction(readWrite),
		metadata:  db.metadata.Transaction(),
		readWrite: readWrite,
	}
}

// NewMetadataOnlyTxn starts a transaction that never touches payloads
func NewMetadataOnlyTxn(db *Database, readWrite bool) *Txn {
	return &Txn{
		db:        db,
		metadata:  db.metadata.Transaction(),
		readWrite: readWrite,
	}
}

func (t *Txn) DB() *Database { return t.db }

func (t *Txn) Metadata() types.Txn { return t.metadata }

// Blob is nil for a metadata-only transaction
func (t *Txn) Blob() types.Txn { return t.blob }

// Do commits when fn succeeds and rolls back otherwise
func (t *Txn) Do(fn func(*Txn) error) error {
	err := fn(t)
	if err == nil {
		if err := t.Commit(); err != nil {
			return fmt.Errorf("commit failed: %w", err)
		}
		return nil
	}
	if rbErr := t.Rollback(); rbErr != nil {
		return fmt.Errorf("rollback failed: %w: original error: %w", rbErr, err)
	}
	return err
}

// Commit stamps both stores with the same commit time, then commits the blob
// side before the metadata side. Blob keys are content addressed, so a blob
// commit without its metadata is invisible to readers. Calls after the
// transaction finished are no-ops.
func (t *Txn) Commit() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch {
	case t.done:
		return nil
	case !t.readWrite:
		return t.abort()
	case t.blob == nil && t.metadata == nil:
		t.done = true
		return types.ErrNoStoreAvailable
	}
	if t.blob != nil && t.metadata != nil {
		if err := t.db.stampCommit(t, time.Now().UnixMilli()); err != nil {
			_ = t.abort()
			return fmt.Errorf("failed to update commit timestamp: %w", err)
		}
	}
	t.done = true
	if t.blob != nil {
		if err := t.blob.Commit(); err != nil {
			if t.metadata != nil {
				_ = t.metadata.Rollback()
			}
			return fmt.Errorf("blob commit failed: %w", err)
		}
	}
	if t.metadata == nil {
		return nil
	}
	if err := t.metadata.Commit(); err != nil {
		_ = t.metadata.Rollback()
		if t.blob != nil {
			t.db.logger.Error(
				"metadata commit failed after blob commit",
				"error", err,
			)
			return fmt.Errorf("partial commit: %w", err)
		}
		return fmt.Errorf("metadata commit failed: %w", err)
	}
	return nil
}

func (t *Txn) Rollback() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.abort()
}

func (t *Txn) abort() error {
	if t.done {
		return nil
	}
	t.done = true
	var err error
	if t.blob != nil {
		if rbErr := t.blob.Rollback(); rbErr != nil {
			err = errors.Join(err, fmt.Errorf("blob rollback: %w", rbErr))
		}
	}
	if t.metadata != nil {
		if rbErr := t.metadata.Rollback(); rbErr != nil {
			err = errors.Join(err, fmt.Errorf("metadata rollback: %w", rbErr))
		}
	}
	return err
}

// Release rolls back and logs any error. Use it with defer on read paths.
func (t *Txn) Release() {
	if err := t.Rollback(); err != nil {
		t.db.logger.Debug(
			"transaction release failed",
			"error", err,
			"read_write", t.readWrite,
		)
	}
}
