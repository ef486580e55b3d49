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

	"github.com/blinklabs-io/suidex/database/models"
	"github.com/blinklabs-io/suidex/database/types"
	"github.com/blinklabs-io/suidex/sui"
)

var (
	ErrCheckpointNotFound  = errors.New("checkpoint not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrObjectNotFound      = errors.New("object not found")
)

// TransactionRecord is an indexed transaction with everything derived from
// it. RawTransaction and Effects are opaque payloads kept in the blob store.
type TransactionRecord struct {
	Transaction    models.Transaction
	Recipients     []string
	InputObjects   []string
	ChangedObjects []string
	MoveCalls      []models.MoveCall
	Events         []models.Event
	RawTransaction []byte
	Effects        []byte
}

// ObjectRecord is one version of an object. Contents holds the raw BCS
// bytes, which are kept in the blob store.
type ObjectRecord struct {
	Object   models.Object
	Contents []byte
}

// CheckpointUnit is everything produced by one checkpoint. It is written
// all-or-nothing together with the watermark.
type CheckpointUnit struct {
	Checkpoint   models.Checkpoint
	Transactions []TransactionRecord
	Objects      []ObjectRecord
	Addresses    []models.Address
}

// CheckpointRecord is a stored checkpoint with its transaction digests in
// execution order
type CheckpointRecord struct {
	Checkpoint   models.Checkpoint
	Transactions []string
}

func digestBytes(digest string) ([]byte, error) {
	raw := sui.Digest(digest).Bytes()
	if raw == nil {
		return nil, fmt.Errorf("%w: %q", sui.ErrInvalidDigest, digest)
	}
	return raw, nil
}

func objectIDBytes(objectID string) ([]byte, error) {
	raw := sui.Address(objectID).Bytes()
	if raw == nil {
		return nil, fmt.Errorf("%w: %q", sui.ErrInvalidAddress, objectID)
	}
	return raw, nil
}

// metadataUnit flattens a unit into metadata rows
func (u *CheckpointUnit) metadataUnit() *models.CheckpointUnit {
	ret := &models.CheckpointUnit{
		Checkpoint: u.Checkpoint,
		Addresses:  u.Addresses,
	}
	ret.Checkpoint.TransactionCount = uint32(len(u.Transactions)) //nolint:gosec
	for i, rec := range u.Transactions {
		tx := rec.Transaction
		tx.CheckpointSequence = u.Checkpoint.SequenceNumber
		tx.Position = uint32(i) //nolint:gosec
		tx.EventCount = uint32(len(rec.Events)) //nolint:gosec
		ret.Transactions = append(ret.Transactions, tx)
		for _, addr := range rec.Recipients {
			ret.Recipients = append(ret.Recipients, models.TransactionRecipient{
				Address:           addr,
				TransactionDigest: tx.Digest,
			})
		}
		for _, id := range rec.InputObjects {
			ret.Objects = append(ret.Objects, models.TransactionObject{
				ObjectID:          id,
				Kind:              models.TransactionObjectKindInput,
				TransactionDigest: tx.Digest,
			})
		}
		for _, id := range rec.ChangedObjects {
			ret.Objects = append(ret.Objects, models.TransactionObject{
				ObjectID:          id,
				Kind:              models.TransactionObjectKindChanged,
				TransactionDigest: tx.Digest,
			})
		}
		for _, call := range rec.MoveCalls {
			call.TransactionDigest = tx.Digest
			ret.MoveCalls = append(ret.MoveCalls, call)
		}
		for _, evt := range rec.Events {
			evt.TransactionDigest = tx.Digest
			ret.Events = append(ret.Events, evt)
		}
	}
	for _, obj := range u.Objects {
		row := obj.Object
		row.HasContents = len(obj.Contents) > 0
		ret.ObjectStates = append(ret.ObjectStates, row)
	}
	return ret
}

// InsertCheckpointUnit stores a checkpoint unit and advances the watermark
// to it in one transaction. Rows that already exist are left untouched, so
// inserting the same unit again is a no-op.
func (d *Database) InsertCheckpointUnit(unit *CheckpointUnit) error {
	txn := d.Transaction(true)
	return txn.Do(func(txn *Txn) error {
		for _, rec := range unit.Transactions {
			digest, err := digestBytes(rec.Transaction.Digest)
			if err != nil {
				return err
			}
			if len(rec.RawTransaction) > 0 {
				if err := d.blob.Set(txn.Blob(), types.TransactionBlobKey(digest), rec.RawTransaction); err != nil {
					return fmt.Errorf("store transaction %s: %w", rec.Transaction.Digest, err)
				}
			}
			if len(rec.Effects) > 0 {
				if err := d.blob.Set(txn.Blob(), types.EffectsBlobKey(digest), rec.Effects); err != nil {
					return fmt.Errorf("store effects %s: %w", rec.Transaction.Digest, err)
				}
			}
		}
		for _, obj := range unit.Objects {
			if len(obj.Contents) == 0 {
				continue
			}
			id, err := objectIDBytes(obj.Object.ObjectID)
			if err != nil {
				return err
			}
			key := types.ObjectBlobKey(id, obj.Object.Version)
			if err := d.blob.Set(txn.Blob(), key, obj.Contents); err != nil {
				return fmt.Errorf(
					"store object %s version %d: %w",
					obj.Object.ObjectID,
					obj.Object.Version,
					err,
				)
			}
		}
		return d.metadata.InsertCheckpointUnit(unit.metadataUnit(), txn.Metadata())
	})
}

// getBlob reads a payload through the read cache. A missing key returns nil.
func (d *Database) getBlob(txn *Txn, key []byte) ([]byte, error) {
	if d.blobCache != nil {
		if val, ok := d.blobCache.Get(key); ok {
			return val, nil
		}
	}
	val, err := d.blob.Get(txn.Blob(), key)
	if err != nil {
		if errors.Is(err, types.ErrBlobKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if d.blobCache != nil {
		d.blobCache.Put(key, val)
	}
	return val, nil
}
