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

package store

import (
	"fmt"

	"github.com/blinklabs-io/suidex/database/models"
	"github.com/blinklabs-io/suidex/database/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InsertCheckpointUnit writes all rows of a checkpoint and advances the
// watermark. Rows that already exist are left untouched, so the same unit
// may be written more than once.
func (s *Store) InsertCheckpointUnit(
	unit *models.CheckpointUnit,
	txn types.Txn,
) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	if err := createIgnore(db, unit.Transactions); err != nil {
		return fmt.Errorf("insert transactions: %w", err)
	}
	if err := createIgnore(db, unit.Recipients); err != nil {
		return fmt.Errorf("insert transaction recipients: %w", err)
	}
	if err := createIgnore(db, unit.Objects); err != nil {
		return fmt.Errorf("insert transaction objects: %w", err)
	}
	if err := createIgnore(db, unit.MoveCalls); err != nil {
		return fmt.Errorf("insert move calls: %w", err)
	}
	if err := createIgnore(db, unit.Events); err != nil {
		return fmt.Errorf("insert events: %w", err)
	}
	if err := createIgnore(db, unit.ObjectStates); err != nil {
		return fmt.Errorf("insert objects: %w", err)
	}
	if err := createIgnore(db, unit.Addresses); err != nil {
		return fmt.Errorf("insert addresses: %w", err)
	}
	if err := createIgnore(db, []models.Checkpoint{unit.Checkpoint}); err != nil {
		return fmt.Errorf("insert checkpoint: %w", err)
	}
	return s.advanceWatermark(db, unit.Checkpoint)
}

// advanceWatermark moves the watermark to the checkpoint unless it already
// points at or past it
func (s *Store) advanceWatermark(db *gorm.DB, cp models.Checkpoint) error {
	current, err := first[models.Watermark](db, "id = ?", models.WatermarkRowId)
	if err != nil {
		return err
	}
	if current != nil && current.SequenceNumber >= cp.SequenceNumber {
		return nil
	}
	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"sequence_number", "digest"}),
	}).Create(&models.Watermark{
		ID:             models.WatermarkRowId,
		SequenceNumber: cp.SequenceNumber,
		Digest:         cp.Digest,
	})
	return result.Error
}

// GetWatermark returns the watermark, or nil when nothing is committed
func (s *Store) GetWatermark(txn types.Txn) (*models.Watermark, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	return first[models.Watermark](db, "id = ?", models.WatermarkRowId)
}

// GetCheckpoint returns a checkpoint by sequence number, or nil
func (s *Store) GetCheckpoint(
	seq uint64,
	txn types.Txn,
) (*models.Checkpoint, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	return first[models.Checkpoint](db, "sequence_number = ?", seq)
}

// GetCheckpointTransactions returns the transaction digests of a checkpoint
// in checkpoint order
func (s *Store) GetCheckpointTransactions(
	seq uint64,
	txn types.Txn,
) ([]string, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []string
	result := db.Model(&models.Transaction{}).
		Where("checkpoint_sequence = ?", seq).
		Order("position").
		Pluck("digest", &ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// CountAddresses returns the number of distinct addresses seen
func (s *Store) CountAddresses(txn types.Txn) (uint64, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return 0, err
	}
	var count int64
	if result := db.Model(&models.Address{}).Count(&count); result.Error != nil {
		return 0, result.Error
	}
	return uint64(count), nil //nolint:gosec // count is never negative
}

// Reset deletes every indexed row and the watermark
func (s *Store) Reset(txn types.Txn) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	db = db.Session(&gorm.Session{AllowGlobalUpdate: true})
	for _, model := range models.ResetModels {
		if result := db.Delete(model); result.Error != nil {
			return fmt.Errorf("reset %T: %w", model, result.Error)
		}
	}
	return nil
}
