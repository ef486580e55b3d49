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

package badger

import (
	"errors"

	"github.com/blinklabs-io/suidex/database/types"
	badger "github.com/dgraph-io/badger/v4"
)

var errTxnFinished = errors.New("transaction already finished")

// blobTxn implements types.Txn. Once committed or rolled back it can't be
// used again, and further Commit/Rollback calls are no-ops.
type blobTxn struct {
	owner *BlobStoreBadger
	tx    *badger.Txn
	done  bool
}

func (t *blobTxn) Commit() error {
	if t.done {
		return nil
	}
	t.done = true
	return t.tx.Commit()
}

func (t *blobTxn) Rollback() error {
	if !t.done {
		t.done = true
		t.tx.Discard()
	}
	return nil
}

// txnFor unwraps a types.Txn created by this store
func (d *BlobStoreBadger) txnFor(txn types.Txn) (*badger.Txn, error) {
	if txn == nil {
		return nil, types.ErrNilTxn
	}
	t, ok := txn.(*blobTxn)
	switch {
	case !ok || t.owner != d:
		return nil, types.ErrTxnWrongType
	case t.done:
		return nil, errTxnFinished
	}
	return t.tx, nil
}
