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
	"github.com/blinklabs-io/suidex/database/models"
)

// GetCheckpoint returns a stored checkpoint with its transaction digests
func (d *Database) GetCheckpoint(
	seq uint64,
	txn *Txn,
) (*CheckpointRecord, error) {
	if txn == nil {
		txn = NewMetadataOnlyTxn(d, false)
		defer txn.Release()
	}
	cp, err := d.metadata.GetCheckpoint(seq, txn.Metadata())
	if err != nil {
		return nil, err
	}
	if cp == nil {
		return nil, ErrCheckpointNotFound
	}
	digests, err := d.metadata.GetCheckpointTransactions(seq, txn.Metadata())
	if err != nil {
		return nil, err
	}
	return &CheckpointRecord{
		Checkpoint:   *cp,
		Transactions: digests,
	}, nil
}

// Watermark returns the highest fully committed checkpoint, or nil for an
// empty store
func (d *Database) Watermark(txn *Txn) (*models.Watermark, error) {
	if txn == nil {
		txn = NewMetadataOnlyTxn(d, false)
		defer txn.Release()
	}
	return d.metadata.GetWatermark(txn.Metadata())
}

// GetLatestCheckpointSequenceNumber returns the watermark sequence number.
// The boolean is false when nothing has been committed.
func (d *Database) GetLatestCheckpointSequenceNumber(
	txn *Txn,
) (uint64, bool, error) {
	wm, err := d.Watermark(txn)
	if err != nil {
		return 0, false, err
	}
	if wm == nil {
		return 0, false, nil
	}
	return wm.SequenceNumber, true, nil
}

// GetTotalAddressNumber returns the number of distinct addresses seen as a
// sender or recipient
func (d *Database) GetTotalAddressNumber(txn *Txn) (uint64, error) {
	if txn == nil {
		txn = NewMetadataOnlyTxn(d, false)
		defer txn.Release()
	}
	return d.metadata.CountAddresses(txn.Metadata())
}

// Reset removes every indexed record. Blob payloads are content addressed
// and left in place; they are overwritten with identical bytes on
// re-ingestion.
func (d *Database) Reset() error {
	txn := d.Transaction(true)
	return txn.Do(func(txn *Txn) error {
		return d.metadata.Reset(txn.Metadata())
	})
}
