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

package models

import "github.com/blinklabs-io/suidex/database/types"

// Checkpoint represents a committed checkpoint. Its transactions are the
// Transaction rows with a matching CheckpointSequence, ordered by Position.
type Checkpoint struct {
	ID                       uint   `gorm:"primaryKey"`
	SequenceNumber           uint64 `gorm:"uniqueIndex"`
	Digest                   string `gorm:"uniqueIndex;size:64"`
	PreviousDigest           string `gorm:"size:64"`
	Epoch                    uint64
	TimestampMs              uint64
	NetworkTotalTransactions types.Uint64
	TransactionCount         uint32
}

func (Checkpoint) TableName() string {
	return "checkpoint"
}

const WatermarkRowId = 1

// Watermark is the single row recording the highest fully committed
// checkpoint
type Watermark struct {
	ID             uint `gorm:"primaryKey"`
	SequenceNumber uint64
	Digest         string `gorm:"size:64"`
}

func (Watermark) TableName() string {
	return "watermark"
}
