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

// MigrateModels contains a list of model objects that should have DB migrations applied
var MigrateModels = []any{
	&Address{},
	&Checkpoint{},
	&Event{},
	&MoveCall{},
	&Object{},
	&Transaction{},
	&TransactionObject{},
	&TransactionRecipient{},
	&Watermark{},
}

// ResetModels lists the tables cleared when the index is reset, children
// before parents
var ResetModels = []any{
	&TransactionRecipient{},
	&TransactionObject{},
	&MoveCall{},
	&Event{},
	&Object{},
	&Transaction{},
	&Address{},
	&Checkpoint{},
	&Watermark{},
}

// CheckpointUnit holds every metadata row produced by one checkpoint. It is
// written in a single transaction together with the watermark.
type CheckpointUnit struct {
	Checkpoint   Checkpoint
	Transactions []Transaction
	Recipients   []TransactionRecipient
	Objects      []TransactionObject
	MoveCalls    []MoveCall
	Events       []Event
	ObjectStates []Object
	Addresses    []Address
}
