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

package sui

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	ObjectStatusVersionFound    = "VersionFound"
	ObjectStatusObjectNotExists = "ObjectNotExists"
	ObjectStatusObjectDeleted   = "ObjectDeleted"
	ObjectStatusVersionNotFound = "VersionNotFound"
	ObjectStatusVersionTooHigh  = "VersionTooHigh"

	DataTypeMoveObject = "moveObject"
	DataTypePackage    = "package"
)

var ErrObjectNotAvailable = errors.New("object version not available")

// ObjectData is an object at a specific version
type ObjectData struct {
	ObjectID            ObjectID `json:"objectId"`
	Version             Uint64   `json:"version"`
	Digest              Digest   `json:"digest"`
	Type                string   `json:"type,omitempty"`
	Owner               *Owner   `json:"owner,omitempty"`
	PreviousTransaction Digest   `json:"previousTransaction,omitempty"`
	StorageRebate       Uint64   `json:"storageRebate,omitempty"`
	Bcs                 *RawData `json:"bcs,omitempty"`
}

// RawData holds the BCS contents of a Move object, or marks a package
type RawData struct {
	DataType          string `json:"dataType"`
	Type              string `json:"type,omitempty"`
	HasPublicTransfer bool   `json:"hasPublicTransfer,omitempty"`
	Version           Uint64 `json:"version,omitempty"`
	BcsBytes          []byte `json:"bcsBytes,omitempty"`
	ID                string `json:"id,omitempty"`
}

// IsPackage reports whether the object is a published package
func (o *ObjectData) IsPackage() bool {
	return (o.Bcs != nil && o.Bcs.DataType == DataTypePackage) ||
		o.Type == DataTypePackage
}

// Contents returns the raw BCS bytes of a Move object
func (o *ObjectData) Contents() []byte {
	if o.Bcs == nil {
		return nil
	}
	return o.Bcs.BcsBytes
}

// PastObjectRequest names an object version to fetch
type PastObjectRequest struct {
	ObjectID ObjectID `json:"objectId"`
	Version  Uint64   `json:"version"`
}

// ObjectRead is the result of a past object lookup. Details is only an
// ObjectData when Status is VersionFound.
type ObjectRead struct {
	Status  string          `json:"status"`
	Details json.RawMessage `json:"details,omitempty"`
}

// Object returns the object data for a found version
func (r *ObjectRead) Object() (*ObjectData, error) {
	if r.Status != ObjectStatusVersionFound {
		return nil, fmt.Errorf("%w: %s", ErrObjectNotAvailable, r.Status)
	}
	var ret ObjectData
	if err := json.Unmarshal(r.Details, &ret); err != nil {
		return nil, err
	}
	return &ret, nil
}
