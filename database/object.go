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

// GetObject returns an object at the given version, or its latest version
// when version is nil. Deleted versions are returned with Deleted set.
func (d *Database) GetObject(
	objectID string,
	version *uint64,
	txn *Txn,
) (*ObjectRecord, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Release()
	}
	obj, err := d.metadata.GetObject(objectID, version, txn.Metadata())
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, ErrObjectNotFound
	}
	ret := &ObjectRecord{Object: *obj}
	if !obj.HasContents || txn.Blob() == nil {
		return ret, nil
	}
	id, err := objectIDBytes(obj.ObjectID)
	if err != nil {
		return nil, err
	}
	ret.Contents, err = d.getBlob(txn, types.ObjectBlobKey(id, obj.Version))
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// GetOwnedObjects returns the live objects owned by an address, by
// ascending object ID after cursor. Contents are not loaded.
func (d *Database) GetOwnedObjects(
	owner string,
	cursor *string,
	limit int,
	txn *Txn,
) ([]models.Object, error) {
	if txn == nil {
		txn = NewMetadataOnlyTxn(d, false)
		defer txn.Release()
	}
	return d.metadata.GetOwnedObjects(owner, cursor, limit, txn.Metadata())
}
