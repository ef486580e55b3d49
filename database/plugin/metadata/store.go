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

package metadata

import (
	"github.com/blinklabs-io/suidex/database/models"
	"github.com/blinklabs-io/suidex/database/plugin"
	"github.com/blinklabs-io/suidex/database/types"
	"gorm.io/gorm"

	// Register built-in plugins
	_ "github.com/blinklabs-io/suidex/database/plugin/metadata/mysql"
	_ "github.com/blinklabs-io/suidex/database/plugin/metadata/postgres"
	_ "github.com/blinklabs-io/suidex/database/plugin/metadata/sqlite"
)

// MetadataStore holds every indexed record other than raw payloads. Methods
// that look up a single record return nil when it doesn't exist. A nil txn
// reads outside of any transaction.
type MetadataStore interface {
	plugin.Plugin

	// Database
	Close() error
	DB() *gorm.DB
	GetCommitTimestamp() (int64, error)
	SetCommitTimestamp(int64, types.Txn) error
	Transaction() types.Txn

	// Checkpoints
	InsertCheckpointUnit(*models.CheckpointUnit, types.Txn) error
	GetWatermark(types.Txn) (*models.Watermark, error)
	GetCheckpoint(
		uint64, // sequence number
		types.Txn,
	) (*models.Checkpoint, error)
	GetCheckpointTransactions(
		uint64, // sequence number
		types.Txn,
	) ([]string, error)
	CountAddresses(types.Txn) (uint64, error)
	Reset(types.Txn) error

	// Transactions
	GetTransaction(string, types.Txn) (*models.Transaction, error)
	GetTransactionRecipients(string, types.Txn) ([]string, error)
	GetTransactionObjects(
		string,
		types.Txn,
	) ([]models.TransactionObject, error)
	GetMoveCalls(string, types.Txn) ([]models.MoveCall, error)
	QueryTransactions(
		types.TransactionFilter,
		*string, // cursor
		int, // limit
		bool, // descending
		types.Txn,
	) ([]string, error)

	// Events
	GetEventsByTransaction(string, types.Txn) ([]models.Event, error)
	QueryEvents(
		types.EventFilter,
		*types.EventCursor,
		int, // limit
		bool, // descending
		types.Txn,
	) ([]models.Event, error)

	// Objects
	GetObject(
		string, // object ID
		*uint64, // version, latest when nil
		types.Txn,
	) (*models.Object, error)
	GetOwnedObjects(
		string, // owner
		*string, // cursor
		int, // limit
		types.Txn,
	) ([]models.Object, error)
}

// New returns a started metadata store plugin by name
func New(pluginName string) (MetadataStore, error) {
	return plugin.StartAs[MetadataStore](plugin.PluginTypeMetadata, pluginName)
}
