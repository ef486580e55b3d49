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

package models

// Object is one version of an object. History is append-only; the current
// state of an object is its highest version. A deletion is recorded as a new
// version with Deleted set. Raw contents are kept in the blob store.
type Object struct {
	ID                   uint   `gorm:"primaryKey"`
	ObjectID             string `gorm:"uniqueIndex:idx_object_version,priority:1;size:66"`
	Version              uint64 `gorm:"uniqueIndex:idx_object_version,priority:2"`
	Digest               string `gorm:"size:64"`
	Type                 string `gorm:"size:512"`
	Owner                string `gorm:"index;size:66"`
	OwnerKind            string `gorm:"size:16"`
	InitialSharedVersion uint64
	PreviousTransaction  string `gorm:"size:64"`
	CheckpointSequence   uint64 `gorm:"index"`
	DecodedContents      []byte
	HasContents          bool
	DecodeFailed         bool
	Deleted              bool
}

func (Object) TableName() string {
	return "object"
}
