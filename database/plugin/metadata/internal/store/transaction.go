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
)

// GetTransaction returns a transaction by digest, or nil
func (s *Store) GetTransaction(
	digest string,
	txn types.Txn,
) (*models.Transaction, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	return first[models.Transaction](db, "digest = ?", digest)
}

// GetTransactionRecipients returns the recipient addresses of a transaction
func (s *Store) GetTransactionRecipients(
	digest string,
	txn types.Txn,
) ([]string, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []string
	result := db.Model(&models.TransactionRecipient{}).
		Where("transaction_digest = ?", digest).
		Order("id").
		Pluck("address", &ret)
	return ret, result.Error
}

// GetTransactionObjects returns the input and changed objects of a
// transaction
func (s *Store) GetTransactionObjects(
	digest string,
	txn types.Txn,
) ([]models.TransactionObject, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.TransactionObject
	result := db.Where("transaction_digest = ?", digest).
		Order("id").
		Find(&ret)
	return ret, result.Error
}

// GetMoveCalls returns the Move calls of a transaction
func (s *Store) GetMoveCalls(
	digest string,
	txn types.Txn,
) ([]models.MoveCall, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.MoveCall
	result := db.Where("transaction_digest = ?", digest).
		Order("id").
		Find(&ret)
	return ret, result.Error
}

// QueryTransactions returns up to limit transaction digests matching the
// filter, ordered by digest, strictly after cursor when one is given
func (s *Store) QueryTransactions(
	filter types.TransactionFilter,
	cursor *string,
	limit int,
	descending bool,
	txn types.Txn,
) ([]string, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	query, column, err := s.transactionFilterQuery(db, filter)
	if err != nil {
		return nil, err
	}
	op, dir := ">", "ASC"
	if descending {
		op, dir = "<", "DESC"
	}
	if cursor != nil {
		query = query.Where(fmt.Sprintf("%s %s ?", s.col(column), op), *cursor)
	}
	var ret []string
	result := query.
		Order(fmt.Sprintf("%s %s", s.col(column), dir)).
		Limit(limit).
		Pluck(column, &ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// transactionFilterQuery returns the base query for a filter and the name
// of the column holding the transaction digest
func (s *Store) transactionFilterQuery(
	db *gorm.DB,
	filter types.TransactionFilter,
) (*gorm.DB, string, error) {
	switch filter.Kind {
	case types.TransactionFilterAll:
		return db.Model(&models.Transaction{}), "digest", nil
	case types.TransactionFilterFromAddress:
		return db.Model(&models.Transaction{}).
			Where("sender = ?", filter.Address), "digest", nil
	case types.TransactionFilterDigest:
		return db.Model(&models.Transaction{}).
			Where("digest = ?", filter.Digest), "digest", nil
	case types.TransactionFilterToAddress:
		return db.Model(&models.TransactionRecipient{}).
			Where("address = ?", filter.Address), "transaction_digest", nil
	case types.TransactionFilterInputObject:
		return db.Model(&models.TransactionObject{}).
			Where(
				"object_id = ? AND kind = ?",
				filter.ObjectID,
				models.TransactionObjectKindInput,
			), "transaction_digest", nil
	case types.TransactionFilterChangedObject:
		return db.Model(&models.TransactionObject{}).
			Where(
				"object_id = ? AND kind = ?",
				filter.ObjectID,
				models.TransactionObjectKindChanged,
			), "transaction_digest", nil
	case types.TransactionFilterMoveFunction:
		query := db.Model(&models.MoveCall{}).
			Where("package = ? AND module = ?", filter.Package, filter.Module)
		if filter.Function != "" {
			query = query.Where("function = ?", filter.Function)
		}
		// A transaction may call several functions of the same module
		return query.Group("transaction_digest"), "transaction_digest", nil
	default:
		return nil, "", fmt.Errorf("unknown transaction filter kind %d", filter.Kind)
	}
}
