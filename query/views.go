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

package query

import (
	"encoding/json"

	"github.com/blinklabs-io/suidex/database"
	"github.com/blinklabs-io/suidex/database/models"
	"github.com/blinklabs-io/suidex/sui"
	"github.com/btcsuite/btcd/btcutil/base58"
)

type MoveCallView struct {
	Package  sui.ObjectID `json:"package"`
	Module   string       `json:"module"`
	Function string       `json:"function"`
}

type GasView struct {
	Budget          sui.Uint64 `json:"budget"`
	ComputationCost sui.Uint64 `json:"computationCost"`
	StorageCost     sui.Uint64 `json:"storageCost"`
	StorageRebate   sui.Uint64 `json:"storageRebate"`
}

// TransactionView is a transaction as served to callers. Transaction and
// Effects are absent when the stored payloads can't be read back.
type TransactionView struct {
	Digest         sui.Digest            `json:"digest"`
	Checkpoint     sui.Uint64            `json:"checkpoint"`
	TimestampMs    sui.Uint64            `json:"timestampMs"`
	Sender         sui.Address           `json:"sender"`
	Kind           string                `json:"kind"`
	Status         sui.ExecutionStatus   `json:"status"`
	Gas            GasView               `json:"gas"`
	Recipients     []sui.Address         `json:"recipients"`
	InputObjects   []sui.ObjectID        `json:"inputObjects"`
	ChangedObjects []sui.ObjectID        `json:"changedObjects"`
	MoveCalls      []MoveCallView        `json:"moveCalls"`
	Events         []sui.EventID         `json:"events"`
	Transaction    *sui.SenderSignedData `json:"transaction,omitempty"`
	Effects        *sui.Effects          `json:"effects,omitempty"`
}

// ObjectView is one version of an object. Content is the decoded value when
// requested and the layout is known; Bcs holds the raw bytes when requested
// or when decoding was not possible.
type ObjectView struct {
	ObjectID            sui.ObjectID    `json:"objectId"`
	Version             sui.Uint64      `json:"version"`
	Digest              sui.Digest      `json:"digest,omitempty"`
	Type                string          `json:"type,omitempty"`
	Owner               *sui.Owner      `json:"owner,omitempty"`
	PreviousTransaction sui.Digest      `json:"previousTransaction,omitempty"`
	Checkpoint          sui.Uint64      `json:"checkpoint"`
	Deleted             bool            `json:"deleted,omitempty"`
	DecodeFailed        bool            `json:"decodeFailed,omitempty"`
	Content             json.RawMessage `json:"content,omitempty"`
	Bcs                 []byte          `json:"bcs,omitempty"`
}

// ObjectOptions selects the optional parts of an ObjectView
type ObjectOptions struct {
	ShowContent bool
	ShowBcs     bool
}

func addresses[T ~string](in []string) []T {
	ret := make([]T, 0, len(in))
	for _, s := range in {
		ret = append(ret, T(s))
	}
	return ret
}

func checkpointView(rec *database.CheckpointRecord) *sui.Checkpoint {
	cp := rec.Checkpoint
	ret := &sui.Checkpoint{
		Epoch:                    sui.Uint64(cp.Epoch),
		SequenceNumber:           sui.Uint64(cp.SequenceNumber),
		Digest:                   sui.Digest(cp.Digest),
		NetworkTotalTransactions: sui.Uint64(cp.NetworkTotalTransactions),
		TimestampMs:              sui.Uint64(cp.TimestampMs),
		Transactions:             addresses[sui.Digest](rec.Transactions),
	}
	if cp.PreviousDigest != "" {
		prev := sui.Digest(cp.PreviousDigest)
		ret.PreviousDigest = &prev
	}
	return ret
}

func eventView(evt models.Event) sui.Event {
	ret := sui.Event{
		ID: sui.EventID{
			TxDigest: sui.Digest(evt.TransactionDigest),
			EventSeq: sui.Uint64(evt.EventSeq),
		},
		PackageID:         sui.ObjectID(evt.PackageID),
		TransactionModule: evt.TransactionModule,
		Sender:            sui.Address(evt.Sender),
		Type:              evt.Type,
		TimestampMs:       sui.Uint64(evt.TimestampMs),
	}
	if len(evt.ParsedJSON) > 0 {
		ret.ParsedJSON = json.RawMessage(evt.ParsedJSON)
	}
	if len(evt.Bcs) > 0 {
		ret.Bcs = base58.Encode(evt.Bcs)
	}
	return ret
}

func ownerView(obj models.Object) *sui.Owner {
	switch sui.OwnerKind(obj.OwnerKind) {
	case sui.OwnerKindAddress, sui.OwnerKindObject:
		return &sui.Owner{
			Kind:    sui.OwnerKind(obj.OwnerKind),
			Address: sui.Address(obj.Owner),
		}
	case sui.OwnerKindShared:
		return &sui.Owner{
			Kind:                 sui.OwnerKindShared,
			InitialSharedVersion: obj.InitialSharedVersion,
		}
	case sui.OwnerKindImmutable:
		return &sui.Owner{Kind: sui.OwnerKindImmutable}
	}
	return nil
}

func objectView(obj models.Object) ObjectView {
	return ObjectView{
		ObjectID:            sui.ObjectID(obj.ObjectID),
		Version:             sui.Uint64(obj.Version),
		Digest:              sui.Digest(obj.Digest),
		Type:                obj.Type,
		Owner:               ownerView(obj),
		PreviousTransaction: sui.Digest(obj.PreviousTransaction),
		Checkpoint:          sui.Uint64(obj.CheckpointSequence),
		Deleted:             obj.Deleted,
		DecodeFailed:        obj.DecodeFailed,
	}
}
