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
	"github.com/blinklabs-io/suidex/database/types"
)

// GetEventsByTransaction returns the events of a transaction in emission
// order
func (d *Database) GetEventsByTransaction(
	digest string,
	txn *Txn,
) ([]models.Event, error) {
	if txn == nil {
		txn = NewMetadataOnlyTxn(d, false)
		defer txn.Release()
	}
	return d.metadata.GetEventsByTransaction(digest, txn.Metadata())
}

// QueryEvents returns events matching filter, strictly after cursor in
// (transaction digest, sequence) order
func (d *Database) QueryEvents(
	filter types.EventFilter,
	cursor *types.EventCursor,
	limit int,
	descending bool,
	txn *Txn,
) ([]models.Event, error) {
	if txn == nil {
		txn = NewMetadataOnlyTxn(d, false)
		defer txn.Release()
	}
	return d.metadata.QueryEvents(
		filter,
		cursor,
		limit,
		descending,
		txn.Metadata(),
	)
}
