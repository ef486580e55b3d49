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
	TransactionKindProgrammable = "ProgrammableTransaction"
	TransactionKindGenesis      = "Genesis"

	CallArgTypeObject = "object"
	CallArgTypePure   = "pure"

	CommandMoveCall = "MoveCall"

	ExecutionStatusSuccess = "success"
	ExecutionStatusFailure = "failure"
)

// TransactionBlock is a transaction together with its effects and events,
// as returned by the source node
type TransactionBlock struct {
	Digest         Digest            `json:"digest"`
	Transaction    *SenderSignedData `json:"transaction,omitempty"`
	RawTransaction []byte            `json:"rawTransaction,omitempty"`
	Effects        *Effects          `json:"effects,omitempty"`
	Events         []Event           `json:"events"`
	TimestampMs    Uint64            `json:"timestampMs"`
	Checkpoint     Uint64            `json:"checkpoint"`
}

type SenderSignedData struct {
	Data         TransactionData `json:"data"`
	TxSignatures []string        `json:"txSignatures,omitempty"`
}

type TransactionData struct {
	MessageVersion string          `json:"messageVersion"`
	Transaction    TransactionKind `json:"transaction"`
	Sender         Address         `json:"sender"`
	GasData        GasData         `json:"gasData"`
}

type GasData struct {
	Payment []ObjectRef `json:"payment"`
	Owner   Address     `json:"owner"`
	Price   Uint64      `json:"price"`
	Budget  Uint64      `json:"budget"`
}

type ObjectRef struct {
	ObjectID ObjectID `json:"objectId"`
	Version  Uint64   `json:"version"`
	Digest   Digest   `json:"digest"`
}

type TransactionKind struct {
	Kind         string     `json:"kind"`
	Inputs       []CallArg  `json:"inputs,omitempty"`
	Transactions []Command  `json:"transactions,omitempty"`
	Objects      []ObjectID `json:"objects,omitempty"`
}

// CallArg is an input to a programmable transaction
type CallArg struct {
	Type                 string          `json:"type"`
	ValueType            string          `json:"valueType,omitempty"`
	Value                json.RawMessage `json:"value,omitempty"`
	ObjectType           string          `json:"objectType,omitempty"`
	ObjectID             ObjectID        `json:"objectId,omitempty"`
	Version              Uint64          `json:"version,omitempty"`
	Digest               Digest          `json:"digest,omitempty"`
	InitialSharedVersion Uint64          `json:"initialSharedVersion,omitempty"`
	Mutable              bool            `json:"mutable,omitempty"`
}

// Command is a single step of a programmable transaction. Only MoveCall is
// decoded; the other commands are kept as raw JSON.
type Command struct {
	Name     string
	MoveCall *MoveCall
	Raw      json.RawMessage
}

type MoveCall struct {
	Package       ObjectID          `json:"package"`
	Module        string            `json:"module"`
	Function      string            `json:"function"`
	TypeArguments []string          `json:"type_arguments,omitempty"`
	Arguments     []json.RawMessage `json:"arguments,omitempty"`
}

func (c Command) MarshalJSON() ([]byte, error) {
	if c.MoveCall != nil {
		return json.Marshal(map[string]*MoveCall{CommandMoveCall: c.MoveCall})
	}
	raw := c.Raw
	if raw == nil {
		raw = json.RawMessage("null")
	}
	return json.Marshal(map[string]json.RawMessage{c.Name: raw})
}

func (c *Command) UnmarshalJSON(data []byte) error {
	var tmpMap map[string]json.RawMessage
	if err := json.Unmarshal(data, &tmpMap); err != nil {
		return err
	}
	if len(tmpMap) != 1 {
		return fmt.Errorf("unexpected command format: %s", string(data))
	}
	for k, v := range tmpMap {
		c.Name = k
		c.Raw = v
		if k == CommandMoveCall {
			var tmpCall MoveCall
			if err := json.Unmarshal(v, &tmpCall); err != nil {
				return err
			}
			c.MoveCall = &tmpCall
		}
	}
	return nil
}

type Effects struct {
	MessageVersion       string           `json:"messageVersion"`
	Status               ExecutionStatus  `json:"status"`
	ExecutedEpoch        Uint64           `json:"executedEpoch"`
	GasUsed              GasCostSummary   `json:"gasUsed"`
	TransactionDigest    Digest           `json:"transactionDigest"`
	Created              []OwnedObjectRef `json:"created,omitempty"`
	Mutated              []OwnedObjectRef `json:"mutated,omitempty"`
	Unwrapped            []OwnedObjectRef `json:"unwrapped,omitempty"`
	Deleted              []ObjectRef      `json:"deleted,omitempty"`
	UnwrappedThenDeleted []ObjectRef      `json:"unwrappedThenDeleted,omitempty"`
	Wrapped              []ObjectRef      `json:"wrapped,omitempty"`
	GasObject            OwnedObjectRef   `json:"gasObject"`
	EventsDigest         *Digest          `json:"eventsDigest,omitempty"`
	Dependencies         []Digest         `json:"dependencies,omitempty"`
}

type ExecutionStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type GasCostSummary struct {
	ComputationCost         Uint64 `json:"computationCost"`
	StorageCost             Uint64 `json:"storageCost"`
	StorageRebate           Uint64 `json:"storageRebate"`
	NonRefundableStorageFee Uint64 `json:"nonRefundableStorageFee"`
}

type OwnedObjectRef struct {
	Owner     Owner     `json:"owner"`
	Reference ObjectRef `json:"reference"`
}

var ErrMissingTransactionData = errors.New("transaction block is missing input or effects")

// Validate checks that the parts needed for indexing were returned
func (t *TransactionBlock) Validate() error {
	if t.Transaction == nil || t.Effects == nil {
		return fmt.Errorf("%w: %s", ErrMissingTransactionData, t.Digest)
	}
	return nil
}

// Sender returns the transaction sender
func (t *TransactionBlock) Sender() Address {
	if t.Transaction == nil {
		return ""
	}
	return t.Transaction.Data.Sender
}

// Recipients returns the distinct address owners of the objects created,
// mutated or unwrapped by the transaction, in order of first appearance
func (t *TransactionBlock) Recipients() []Address {
	if t.Effects == nil {
		return nil
	}
	ret := []Address{}
	seen := map[Address]struct{}{}
	for _, refs := range [][]OwnedObjectRef{
		t.Effects.Created,
		t.Effects.Mutated,
		t.Effects.Unwrapped,
	} {
		for _, ref := range refs {
			addr, ok := ref.Owner.AddressOwned()
			if !ok {
				continue
			}
			if _, ok := seen[addr]; ok {
				continue
			}
			seen[addr] = struct{}{}
			ret = append(ret, addr)
		}
	}
	return ret
}

// InputObjects returns the distinct IDs of the objects used as inputs,
// including gas payment
func (t *TransactionBlock) InputObjects() []ObjectID {
	if t.Transaction == nil {
		return nil
	}
	ret := []ObjectID{}
	seen := map[ObjectID]struct{}{}
	add := func(id ObjectID) {
		// Genesis carries a placeholder gas payment with the zero object ID
		if id == "" || id == ZeroAddress {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ret = append(ret, id)
	}
	for _, input := range t.Transaction.Data.Transaction.Inputs {
		if input.Type == CallArgTypeObject {
			add(input.ObjectID)
		}
	}
	for _, payment := range t.Transaction.Data.GasData.Payment {
		add(payment.ObjectID)
	}
	return ret
}

// ChangedObjects returns every object reference touched by the effects
func (t *TransactionBlock) ChangedObjects() []ObjectRef {
	if t.Effects == nil {
		return nil
	}
	ret := []ObjectRef{}
	for _, refs := range [][]OwnedObjectRef{
		t.Effects.Created,
		t.Effects.Mutated,
		t.Effects.Unwrapped,
	} {
		for _, ref := range refs {
			ret = append(ret, ref.Reference)
		}
	}
	ret = append(ret, t.Effects.Deleted...)
	ret = append(ret, t.Effects.Wrapped...)
	ret = append(ret, t.Effects.UnwrappedThenDeleted...)
	return ret
}

// ChangedObjectIDs returns the distinct IDs from ChangedObjects
func (t *TransactionBlock) ChangedObjectIDs() []ObjectID {
	ret := []ObjectID{}
	seen := map[ObjectID]struct{}{}
	for _, ref := range t.ChangedObjects() {
		if _, ok := seen[ref.ObjectID]; ok {
			continue
		}
		seen[ref.ObjectID] = struct{}{}
		ret = append(ret, ref.ObjectID)
	}
	return ret
}

// LiveObjects returns the created, mutated and unwrapped object references,
// whose contents exist at the referenced version
func (t *TransactionBlock) LiveObjects() []OwnedObjectRef {
	if t.Effects == nil {
		return nil
	}
	ret := make(
		[]OwnedObjectRef,
		0,
		len(t.Effects.Created)+len(t.Effects.Mutated)+len(t.Effects.Unwrapped),
	)
	ret = append(ret, t.Effects.Created...)
	ret = append(ret, t.Effects.Mutated...)
	ret = append(ret, t.Effects.Unwrapped...)
	return ret
}

// RemovedObjects returns references to objects that are no longer live
// after the transaction
func (t *TransactionBlock) RemovedObjects() []ObjectRef {
	if t.Effects == nil {
		return nil
	}
	ret := []ObjectRef{}
	ret = append(ret, t.Effects.Deleted...)
	ret = append(ret, t.Effects.Wrapped...)
	ret = append(ret, t.Effects.UnwrappedThenDeleted...)
	return ret
}

// MoveCalls returns the Move function calls made by a programmable transaction
func (t *TransactionBlock) MoveCalls() []MoveCall {
	if t.Transaction == nil {
		return nil
	}
	ret := []MoveCall{}
	for _, cmd := range t.Transaction.Data.Transaction.Transactions {
		if cmd.MoveCall != nil {
			ret = append(ret, *cmd.MoveCall)
		}
	}
	return ret
}

// Succeeded reports whether execution succeeded
func (t *TransactionBlock) Succeeded() bool {
	return t.Effects != nil &&
		t.Effects.Status.Status == ExecutionStatusSuccess
}
