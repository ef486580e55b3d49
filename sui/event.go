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

import "encoding/json"

// EventID identifies an event by its emitting transaction and its position
// in that transaction's event list
type EventID struct {
	TxDigest Digest `json:"txDigest"`
	EventSeq Uint64 `json:"eventSeq"`
}

// Event is a Move event emitted by a transaction
type Event struct {
	ID                EventID         `json:"id"`
	PackageID         ObjectID        `json:"packageId"`
	TransactionModule string          `json:"transactionModule"`
	Sender            Address         `json:"sender"`
	Type              string          `json:"type"`
	ParsedJSON        json.RawMessage `json:"parsedJson,omitempty"`
	Bcs               string          `json:"bcs,omitempty"`
	TimestampMs       Uint64          `json:"timestampMs,omitempty"`
}
