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

package types

import (
	"encoding/binary"
	"errors"
	"fmt"
	"slices"
)

const (
	TransactionBlobKeyPrefix = "tx"
	EffectsBlobKeyPrefix     = "fx"
	ObjectBlobKeyPrefix      = "ob"
)

// Blob values are content addressed: a key always maps to the same bytes, so
// rewriting a key is harmless

func TransactionBlobKey(digest []byte) []byte {
	return slices.Concat([]byte(TransactionBlobKeyPrefix), digest)
}

func EffectsBlobKey(digest []byte) []byte {
	return slices.Concat([]byte(EffectsBlobKeyPrefix), digest)
}

func ObjectBlobKey(objectID []byte, version uint64) []byte {
	key := slices.Concat([]byte(ObjectBlobKeyPrefix), objectID)
	return binary.BigEndian.AppendUint64(key, version)
}

// CommitTimestampBlobKey holds the timestamp of the last committed unit,
// compared against the metadata store's copy on open
const CommitTimestampBlobKey = "commit_timestamp"

// KeyValue is the subset of a blob store needed to keep the commit
// timestamp
type KeyValue interface {
	NewTransaction(bool) Txn
	Get(Txn, []byte) ([]byte, error)
	Set(Txn, []byte, []byte) error
}

// ReadCommitTimestamp returns the stored commit timestamp, or 0 when the
// store has never been committed to
func ReadCommitTimestamp(kv KeyValue) (int64, error) {
	txn := kv.NewTransaction(false)
	defer txn.Rollback() //nolint:errcheck
	val, err := kv.Get(txn, []byte(CommitTimestampBlobKey))
	switch {
	case errors.Is(err, ErrBlobKeyNotFound):
		return 0, nil
	case err != nil:
		return 0, err
	case len(val) != 8:
		return 0, fmt.Errorf("commit timestamp: unexpected length %d", len(val))
	}
	return int64(binary.BigEndian.Uint64(val)), nil //nolint:gosec
}

// WriteCommitTimestamp stores the commit timestamp as part of txn
func WriteCommitTimestamp(kv KeyValue, txn Txn, ts int64) error {
	if txn == nil {
		return ErrNilTxn
	}
	return kv.Set(
		txn,
		[]byte(CommitTimestampBlobKey),
		binary.BigEndian.AppendUint64(nil, uint64(ts)), //nolint:gosec
	)
}
