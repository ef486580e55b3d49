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

// Package blob defines the payload store interface and registers the blob
// store plugins.
package blob

import (
	"github.com/blinklabs-io/suidex/database/plugin"
	"github.com/blinklabs-io/suidex/database/types"

	_ "github.com/blinklabs-io/suidex/database/plugin/blob/aws"
	_ "github.com/blinklabs-io/suidex/database/plugin/blob/badger"
	_ "github.com/blinklabs-io/suidex/database/plugin/blob/gcs"
)

// BlobStore holds raw payloads by binary key. Writes go through a
// transaction from NewTransaction(true) and show up once it commits.
type BlobStore interface {
	plugin.Plugin

	Close() error
	NewTransaction(readWrite bool) types.Txn
	// Get returns types.ErrBlobKeyNotFound for a missing key
	Get(txn types.Txn, key []byte) ([]byte, error)
	Set(txn types.Txn, key []byte, val []byte) error
	Delete(txn types.Txn, key []byte) error

	// GetCommitTimestamp returns zero before the first stamped commit
	GetCommitTimestamp() (int64, error)
	SetCommitTimestamp(ts int64, txn types.Txn) error
}

// New starts the named blob store plugin
func New(pluginName string) (BlobStore, error) {
	return plugin.StartAs[BlobStore](plugin.PluginTypeBlob, pluginName)
}
