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

// Package objectstore implements blob transactions on top of a remote object
// store. Writes are buffered in the transaction and uploaded on commit.
package objectstore

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/blinklabs-io/suidex/database/types"
)

const DefaultTimeout = 60 * time.Second

var (
	ErrTxnFinished = errors.New("transaction already finished")
	// ErrNotStarted is returned by a store whose plugin hasn't been started
	ErrNotStarted = fmt.Errorf(
		"%w: store not started",
		types.ErrBlobStoreUnavailable,
	)
)

// idleTxn is handed out before Start. Nothing can be staged on it.
type idleTxn struct{}

func (idleTxn) Commit() error   { return ErrNotStarted }
func (idleTxn) Rollback() error { return nil }

// NotStartedTxn returns a transaction for a store that hasn't started
func NotStartedTxn() types.Txn {
	return idleTxn{}
}

// Backend is a bucket of objects addressed by string keys
type Backend interface {
	// Get returns types.ErrBlobKeyNotFound for a missing object
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, val []byte) error
	// Delete succeeds for a missing object
	Delete(ctx context.Context, key string) error
}

type Store struct {
	backend Backend
	prefix  string
	timeout time.Duration
}

func New(backend Backend, prefix string, timeout time.Duration) *Store {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &Store{
		backend: backend,
		prefix:  prefix,
		timeout: timeout,
	}
}

// ObjectKey maps a blob key to an object name. Blob keys are binary, so they
// are hex encoded.
func (s *Store) ObjectKey(key []byte) string {
	return s.prefix + hex.EncodeToString(key)
}

func (s *Store) opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

type pendingWrite struct {
	val     []byte
	deleted bool
}

type txn struct {
	store     *Store
	mu        sync.Mutex
	pending   map[string]pendingWrite
	readWrite bool
	finished  bool
}

func (s *Store) NewTransaction(readWrite bool) types.Txn {
	return &txn{
		store:     s,
		readWrite: readWrite,
		pending:   make(map[string]pendingWrite),
	}
}

func (s *Store) validateTxn(t types.Txn) (*txn, error) {
	if t == nil {
		return nil, types.ErrNilTxn
	}
	ret, ok := t.(*txn)
	if !ok || ret.store != s {
		return nil, types.ErrTxnWrongType
	}
	if ret.finished {
		return nil, ErrTxnFinished
	}
	return ret, nil
}

// Get returns the value written in this transaction, or the stored one
func (s *Store) Get(t types.Txn, key []byte) ([]byte, error) {
	tx, err := s.validateTxn(t)
	if err != nil {
		return nil, err
	}
	name := s.ObjectKey(key)
	tx.mu.Lock()
	write, ok := tx.pending[name]
	tx.mu.Unlock()
	if ok {
		if write.deleted {
			return nil, types.ErrBlobKeyNotFound
		}
		return slices.Clone(write.val), nil
	}
	ctx, cancel := s.opContext()
	defer cancel()
	return s.backend.Get(ctx, name)
}

func (s *Store) Set(t types.Txn, key, val []byte) error {
	return s.stage(t, key, pendingWrite{val: slices.Clone(val)})
}

func (s *Store) Delete(t types.Txn, key []byte) error {
	return s.stage(t, key, pendingWrite{deleted: true})
}

func (s *Store) stage(t types.Txn, key []byte, write pendingWrite) error {
	tx, err := s.validateTxn(t)
	if err != nil {
		return err
	}
	if !tx.readWrite {
		return types.ErrTxnReadOnly
	}
	tx.mu.Lock()
	defer tx.mu.Unlock()
	tx.pending[s.ObjectKey(key)] = write
	return nil
}

// Commit uploads the buffered writes in key order. A failed commit may leave
// some of them applied.
func (t *txn) Commit() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.finished {
		return nil
	}
	t.finished = true
	keys := make([]string, 0, len(t.pending))
	for key := range t.pending {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		write := t.pending[key]
		ctx, cancel := t.store.opContext()
		var err error
		if write.deleted {
			err = t.store.backend.Delete(ctx, key)
		} else {
			err = t.store.backend.Put(ctx, key, write.val)
		}
		cancel()
		if err != nil {
			return fmt.Errorf("write object %s: %w", key, err)
		}
	}
	t.pending = nil
	return nil
}

func (t *txn) Rollback() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.finished = true
	t.pending = nil
	return nil
}
