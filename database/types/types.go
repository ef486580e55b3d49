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

// Package types holds the storage types shared by the database layer and its
// plugins: transaction handles, blob keys, query filters and errors.
package types

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strconv"
)

var (
	ErrBlobKeyNotFound      = errors.New("blob key not found")
	ErrBlobStoreUnavailable = errors.New("blob store unavailable")
	ErrNilTxn               = errors.New("nil transaction")
	ErrNoStoreAvailable     = errors.New("no store available")
	ErrTxnReadOnly          = errors.New("transaction is read-only")
	// ErrTxnWrongType means a transaction handle from one store was passed
	// to another
	ErrTxnWrongType = errors.New("invalid transaction type")
)

// Txn is the commit handle of a single store. The database layer pairs a
// blob Txn with a metadata Txn.
type Txn interface {
	Commit() error
	Rollback() error
}

// Uint64 round-trips through SQL as a decimal string. Some engines have no
// unsigned 64-bit column type.
//
//nolint:recvcheck
type Uint64 uint64

func (u Uint64) Value() (driver.Value, error) {
	return strconv.FormatUint(uint64(u), 10), nil
}

func (u *Uint64) Scan(val any) error {
	var s string
	switch v := val.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("scan Uint64: unsupported type %T", val)
	}
	parsed, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("scan Uint64: %w", err)
	}
	*u = Uint64(parsed)
	return nil
}
