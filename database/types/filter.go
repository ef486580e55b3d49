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

// Filters here are already validated and normalized: addresses and object
// IDs in full 0x-prefixed hex, digests in base58, type tags canonical

type TransactionFilterKind int

const (
	TransactionFilterAll TransactionFilterKind = iota
	TransactionFilterFromAddress
	TransactionFilterToAddress
	TransactionFilterChangedObject
	TransactionFilterInputObject
	TransactionFilterMoveFunction
	TransactionFilterDigest
)

type TransactionFilter struct {
	Kind     TransactionFilterKind
	Address  string
	ObjectID string
	Package  string
	Module   string
	// Function is optional for TransactionFilterMoveFunction
	Function string
	Digest   string
}

type EventFilterKind int

const (
	EventFilterAll EventFilterKind = iota
	EventFilterSender
	EventFilterTransaction
	EventFilterMoveModule
	EventFilterMoveEventType
)

type EventFilter struct {
	Kind      EventFilterKind
	Sender    string
	TxDigest  string
	Package   string
	Module    string
	EventType string
}

// EventCursor identifies an event by its transaction and its position in
// that transaction
type EventCursor struct {
	TxDigest string
	EventSeq uint64
}
