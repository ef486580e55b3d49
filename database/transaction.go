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

// GetTransaction returns a transaction with its derived rows, events and
// payloads
func (d *Database) GetTransaction(
	digest string,
	txn *Txn,
) (*TransactionRecord, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Release()
	}
	tx, err := d.metadata.GetTransaction(digest, txn.Metadata())
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, ErrTransactionNotFound
	}
	ret := &TransactionRecord{Transaction: *tx}
	ret.Recipients, err = d.metadata.GetTransactionRecipients(digest, txn.Metadata())
	if err != nil {
		return nil, err
	}
	objects, err := d.metadata.GetTransactionObjects(digest, txn.Metadata())
	if err != nil {
		return nil, err
	}
	for _, obj := range objects {
		switch obj.Kind {
		case models.TransactionObjectKindInput:
			ret.InputObjects = append(ret.InputObjects, obj.ObjectID)
		case models.TransactionObjectKindChanged:
			ret.ChangedObjects = append(ret.ChangedObjects, obj.ObjectID)
		}
	}
	ret.MoveCalls, err = d.metadata.GetMoveCalls(digest, txn.Metadata())
	if err != nil {
		return nil, err
	}
	ret.Events, err = d.metadata.GetEventsByTransaction(digest, txn.Metadata())
	if err != nil {
		return nil, err
	}
	if txn.Blob() == nil {
		return ret, nil
	}
	key, err := digestBytes(digest)
	if err != nil {
		return nil, err
	}
	if ret.RawTransaction, err = d.getBlob(txn, types.TransactionBlobKey(key)); err != nil {
		return nil, err
	}
	if ret.Effects, err = d.getBlob(txn, types.EffectsBlobKey(key)); err != nil {
		return nil, err
	}
	return ret, nil
}

// QueryTransactions returns the digests of transactions matching filter,
// strictly after cursor in the requested order
func (d *Database) QueryTransactions(
	filter types.TransactionFilter,
	cursor *string,
	limit int,
	descending bool,
	txn *Txn,
) ([]string, error) {
	if txn == nil {
		txn = NewMetadataOnlyTxn(d, false)
		defer txn.Release()
	}
	return d.metadata.QueryTransactions(
		filter,
		cursor,
		limit,
		descending,
		txn.Metadata(),
	)
}
