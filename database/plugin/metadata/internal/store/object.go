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
	"errors"

	"github.com/blinklabs-io/suidex/database/models"
	"github.com/blinklabs-io/suidex/database/types"
	"gorm.io/gorm"
)

const ownerKindAddress = "AddressOwner"

// GetObject returns an object at the given version, or at its latest version
// when version is nil. It returns nil when there is no such object.
func (s *Store) GetObject(
	objectID string,
	version *uint64,
	txn types.Txn,
) (*models.Object, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	if version != nil {
		return first[models.Object](
			db,
			"object_id = ? AND version = ?",
			objectID,
			*version,
		)
	}
	var ret models.Object
	result := db.Where("object_id = ?", objectID).
		Order("version DESC").
		First(&ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &ret, nil
}

// GetOwnedObjects returns the live objects currently owned by an address,
// ordered by object ID, strictly after cursor when one is given
func (s *Store) GetOwnedObjects(
	owner string,
	cursor *string,
	limit int,
	txn types.Txn,
) ([]models.Object, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	query := db.Model(&models.Object{}).
		Where("owner = ? AND owner_kind = ? AND deleted = ?", owner, ownerKindAddress, false).
		Where("version = (SELECT MAX(o2.version) FROM object o2 WHERE o2.object_id = object.object_id)")
	if cursor != nil {
		query = query.Where(s.col("object_id")+" > ?", *cursor)
	}
	var ret []models.Object
	result := query.
		Order(s.col("object_id") + " ASC").
		Limit(limit).
		Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}
