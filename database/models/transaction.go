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

// Transaction represents a transaction record. The raw transaction and its
// effects are kept in the blob store.
type Transaction struct {
	ID                 uint   `gorm:"primaryKey"`
	Digest             string `gorm:"uniqueIndex;size:64"`
	Sender             string `gorm:"index:idx_transaction_sender_digest,priority:1;size:66"`
	CheckpointSequence uint64 `gorm:"index:idx_transaction_checkpoint,priority:1"`
	Position           uint32 `gorm:"index:idx_transaction_checkpoint,priority:2"`
	TimestampMs        uint64
	Kind               string `gorm:"size:64"`
	Status             string `gorm:"size:16"`
	StatusError        string
	GasBudget          types.Uint64
	ComputationCost    types.Uint64
	StorageCost        types.Uint64
	StorageRebate      types.Uint64
	EventCount         uint32
}

func (Transaction) TableName() string {
	return "transaction"
}

// TransactionRecipient maps an address to a transaction that left it owning
// an object
type TransactionRecipient struct {
	ID                uint   `gorm:"primaryKey"`
	Address           string `gorm:"uniqueIndex:idx_recipient_address_digest,priority:1;size:66"`
	TransactionDigest string `gorm:"uniqueIndex:idx_recipient_address_digest,priority:2;size:64"`
}

func (TransactionRecipient) TableName() string {
	return "transaction_recipient"
}

const (
	TransactionObjectKindInput   uint8 = 1
	TransactionObjectKindChanged uint8 = 2
)

// TransactionObject maps an object to a transaction that took it as input
// or changed it
type TransactionObject struct {
	ID                uint   `gorm:"primaryKey"`
	ObjectID          string `gorm:"uniqueIndex:idx_transaction_object,priority:1;size:66"`
	Kind              uint8  `gorm:"uniqueIndex:idx_transaction_object,priority:2"`
	TransactionDigest string `gorm:"uniqueIndex:idx_transaction_object,priority:3;size:64"`
}

func (TransactionObject) TableName() string {
	return "transaction_object"
}

// MoveCall is a Move function called by a programmable transaction
type MoveCall struct {
	ID                uint   `gorm:"primaryKey"`
	Package           string `gorm:"uniqueIndex:idx_move_call,priority:1;size:66"`
	Module            string `gorm:"uniqueIndex:idx_move_call,priority:2;size:128"`
	Function          string `gorm:"uniqueIndex:idx_move_call,priority:3;size:128"`
	TransactionDigest string `gorm:"uniqueIndex:idx_move_call,priority:4;size:64"`
}

func (MoveCall) TableName() string {
	return "move_call"
}

// Address is an address seen as a sender or recipient
type Address struct {
	ID                  uint   `gorm:"primaryKey"`
	Address             string `gorm:"uniqueIndex;size:66"`
	FirstSeenCheckpoint uint64
}

func (Address) TableName() string {
	return "address"
}
