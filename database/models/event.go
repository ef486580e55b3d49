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

// Event is an event emitted by a transaction, keyed by the transaction
// digest and its position within that transaction
type Event struct {
	ID                uint   `gorm:"primaryKey"`
	TransactionDigest string `gorm:"uniqueIndex:idx_event_id,priority:1;size:64"`
	EventSeq          uint64 `gorm:"uniqueIndex:idx_event_id,priority:2"`
	PackageID         string `gorm:"index:idx_event_module,priority:1;size:66"`
	TransactionModule string `gorm:"index:idx_event_module,priority:2;size:128"`
	Sender            string `gorm:"index;size:66"`
	Type              string `gorm:"index;size:512"`
	ParsedJSON        []byte
	Bcs               []byte
	TimestampMs       uint64
}

func (Event) TableName() string {
	return "event"
}
