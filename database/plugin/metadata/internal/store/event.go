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
)

// GetEventsByTransaction returns the events of a transaction in emission
// order
func (s *Store) GetEventsByTransaction(
	digest string,
	txn types.Txn,
) ([]models.Event, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.Event
	result := db.Where("transaction_digest = ?", digest).
		Order("event_seq").
		Find(&ret)
	return ret, result.Error
}

// QueryEvents returns up to limit events matching the filter, ordered by
// transaction digest and then sequence, strictly after cursor when one is
// given
func (s *Store) QueryEvents(
	filter types.EventFilter,
	cursor *types.EventCursor,
	limit int,
	descending bool,
	txn types.Txn,
) ([]models.Event, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	query := db.Model(&models.Event{})
	switch filter.Kind {
	case types.EventFilterAll:
	case types.EventFilterSender:
		query = query.Where("sender = ?", filter.Sender)
	case types.EventFilterTransaction:
		query = query.Where("transaction_digest = ?", filter.TxDigest)
	case types.EventFilterMoveModule:
		query = query.Where(
			"package_id = ? AND transaction_module = ?",
			filter.Package,
			filter.Module,
		)
	case types.EventFilterMoveEventType:
		query = query.Where("type = ?", filter.EventType)
	default:
		return nil, fmt.Errorf("unknown event filter kind %d", filter.Kind)
	}
	digestCol := s.col("transaction_digest")
	op, dir := ">", "ASC"
	if descending {
		op, dir = "<", "DESC"
	}
	if cursor != nil {
		query = query.Where(
			fmt.Sprintf(
				"((%[1]s %[2]s ?) OR (%[1]s = ? AND event_seq %[2]s ?))",
				digestCol,
				op,
			),
			cursor.TxDigest,
			cursor.TxDigest,
			cursor.EventSeq,
		)
	}
	var ret []models.Event
	result := query.
		Order(fmt.Sprintf("%s %s", digestCol, dir)).
		Order("event_seq " + dir).
		Limit(limit).
		Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}
