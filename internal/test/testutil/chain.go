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

package testutil

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"slices"
	"testing"

	"github.com/blinklabs-io/suidex/layout"
	"github.com/blinklabs-io/suidex/source"
	"github.com/blinklabs-io/suidex/sui"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/blake2b"
)

const (
	NFTType       = "0x2::devnet_nft::DevNetNFT"
	MintEventType = "0x2::devnet_nft::MintNFTEvent"
	BurnEventType = "0x2::devnet_nft::BurnNFTEvent"
	NFTModule     = "devnet_nft"

	DefaultAccounts = 9
	CoinsPerAccount = 5
	InitialBalance  = 1_000_000_000
	GasFee          = 1_000

	genesisTimestampMs = 1_700_000_000_000
)

var FrameworkPackage = sui.MustParseAddress("0x2")

// Digest returns a deterministic digest derived from a label
func Digest(label string) sui.Digest {
	sum := blake2b.Sum256([]byte(label))
	return sui.DigestFromBytes(sum[:])
}

// Address returns a deterministic address derived from a label
func Address(label string) sui.Address {
	sum := blake2b.Sum256([]byte(label))
	ret, _ := sui.AddressFromBytes(sum[:])
	return ret
}

type objectState struct {
	id       sui.ObjectID
	version  uint64
	digest   sui.Digest
	typ      string
	owner    sui.Owner
	contents []byte
	deleted  bool
}

func (o *objectState) ref() sui.ObjectRef {
	return sui.ObjectRef{
		ObjectID: o.id,
		Version:  sui.Uint64(o.version),
		Digest:   o.digest,
	}
}

func (o *objectState) data(prevTx sui.Digest) sui.ObjectData {
	owner := o.owner
	return sui.ObjectData{
		ObjectID:            o.id,
		Version:             sui.Uint64(o.version),
		Digest:              o.digest,
		Type:                o.typ,
		Owner:               &owner,
		PreviousTransaction: prevTx,
		Bcs: &sui.RawData{
			DataType: sui.DataTypeMoveObject,
			Type:     o.typ,
			Version:  sui.Uint64(o.version),
			BcsBytes: slices.Clone(o.contents),
		},
	}
}

type mutation struct {
	id       sui.ObjectID
	owner    *sui.Owner
	contents []byte
}

type txPlan struct {
	kind     string
	sender   sui.Address
	gas      sui.ObjectID
	inputs   []sui.CallArg
	commands []sui.Command
	create   []*objectState
	mutate   []mutation
	delete   []sui.ObjectID
	events   []sui.Event
}

type pendingTx struct {
	block   sui.TransactionBlock
	objects []sui.ObjectData
}

// Chain builds a deterministic ledger history into an in-memory source.
// Each operation produces one checkpoint unless a batch is open.
type Chain struct {
	tb       testing.TB
	Source   *source.Memory
	Accounts []sui.Address
	objects  map[sui.ObjectID]*objectState
	prev     *sui.Digest
	nextSeq  uint64
	totalTxs uint64
	nonce    uint64
	batching bool
	pending  []pendingTx
}

// NewChain returns a chain whose genesis checkpoint funds DefaultAccounts
// accounts with CoinsPerAccount gas coins each
func NewChain(tb testing.TB) *Chain {
	tb.Helper()
	c := &Chain{
		tb:      tb,
		Source:  source.NewMemory(),
		objects: make(map[sui.ObjectID]*objectState),
	}
	for _, mod := range FrameworkModules() {
		require.NoError(tb, c.Source.AddModule(mod))
	}
	plan := txPlan{
		kind:   sui.TransactionKindGenesis,
		sender: sui.ZeroAddress,
		gas:    sui.ZeroAddress,
	}
	for i := range DefaultAccounts {
		addr := Address(fmt.Sprintf("account-%d", i))
		c.Accounts = append(c.Accounts, addr)
		for j := range CoinsPerAccount {
			id := Address(fmt.Sprintf("coin-%d-%d", i, j))
			plan.create = append(plan.create, &objectState{
				id:       id,
				typ:      layout.GasCoinType,
				owner:    sui.AddressOwner(addr),
				contents: coinContents(id, InitialBalance),
			})
		}
	}
	c.execute(plan)
	return c
}

// LatestSequence returns the sequence number of the newest checkpoint
func (c *Chain) LatestSequence() uint64 {
	return c.nextSeq - 1
}

// BeginBatch collects the following operations into a single checkpoint
func (c *Chain) BeginBatch() {
	c.batching = true
}

// EndBatch commits the collected operations as one checkpoint
func (c *Chain) EndBatch() {
	c.batching = false
	c.commit()
}

// EmptyCheckpoint commits a checkpoint without transactions
func (c *Chain) EmptyCheckpoint() {
	c.commit()
}

// GasCoins returns the live gas coins owned by an address, by object ID
func (c *Chain) GasCoins(owner sui.Address) []sui.ObjectID {
	var ret []sui.ObjectID
	for id, obj := range c.objects {
		addr, ok := obj.owner.AddressOwned()
		if obj.deleted || !ok || addr != owner || obj.typ != layout.GasCoinType {
			continue
		}
		ret = append(ret, id)
	}
	slices.Sort(ret)
	return ret
}

// ObjectVersion returns the current version of an object
func (c *Chain) ObjectVersion(id sui.ObjectID) uint64 {
	obj, ok := c.objects[id]
	require.True(c.tb, ok, "unknown object %s", id)
	return obj.version
}

// CoinBalance returns the current balance of a coin
func (c *Chain) CoinBalance(id sui.ObjectID) uint64 {
	obj, ok := c.objects[id]
	require.True(c.tb, ok, "unknown object %s", id)
	return binary.LittleEndian.Uint64(obj.contents[sui.AddressLength:])
}

// TransferObject sends obj to recipient, paying with gas
func (c *Chain) TransferObject(
	sender sui.Address,
	obj sui.ObjectID,
	gas sui.ObjectID,
	recipient sui.Address,
) sui.Digest {
	newOwner := sui.AddressOwner(recipient)
	return c.execute(txPlan{
		kind:   sui.TransactionKindProgrammable,
		sender: sender,
		gas:    gas,
		inputs: []sui.CallArg{
			c.objectInput(obj),
			pureInput("address", recipient),
		},
		commands: []sui.Command{
			rawCommand("TransferObjects", `[[{"Input":0}],{"Input":1}]`),
		},
		mutate: []mutation{{id: obj, owner: &newOwner}},
	})
}

// TransferCoin sends the sender's first gas coin to recipient, paying with
// its last
func (c *Chain) TransferCoin(
	sender sui.Address,
	recipient sui.Address,
) (sui.ObjectID, sui.Digest) {
	coins := c.GasCoins(sender)
	require.GreaterOrEqual(c.tb, len(coins), 2, "sender needs two coins")
	obj := coins[0]
	return obj, c.TransferObject(sender, obj, coins[len(coins)-1], recipient)
}

// MintNFT calls 0x2::devnet_nft::mint, creating an NFT owned by sender and
// emitting a MintNFTEvent
func (c *Chain) MintNFT(sender sui.Address) (sui.ObjectID, sui.Digest) {
	coins := c.GasCoins(sender)
	require.NotEmpty(c.tb, coins, "sender has no gas")
	c.nonce++
	id := Address(fmt.Sprintf("nft-%d", c.nonce))
	name := fmt.Sprintf("Example NFT %d", c.nonce)
	contents := append([]byte{}, id.Bytes()...)
	contents = appendString(contents, name)
	contents = appendString(contents, "An NFT created by the devnet")
	contents = appendString(contents, "https://example.com/nft.png")
	parsed, err := json.Marshal(map[string]string{
		"object_id": id.String(),
		"creator":   sender.String(),
		"name":      name,
	})
	require.NoError(c.tb, err)
	digest := c.execute(txPlan{
		kind:   sui.TransactionKindProgrammable,
		sender: sender,
		gas:    coins[len(coins)-1],
		inputs: []sui.CallArg{
			pureInput("vector<u8>", name),
			pureInput("vector<u8>", "An NFT created by the devnet"),
			pureInput("vector<u8>", "https://example.com/nft.png"),
		},
		commands: []sui.Command{moveCallCommand("mint")},
		create: []*objectState{{
			id:       id,
			typ:      NFTType,
			owner:    sui.AddressOwner(sender),
			contents: contents,
		}},
		events: []sui.Event{{
			PackageID:         FrameworkPackage,
			TransactionModule: NFTModule,
			Sender:            sender,
			Type:              MintEventType,
			ParsedJSON:        parsed,
		}},
	})
	return id, digest
}

// BurnNFT calls 0x2::devnet_nft::burn, deleting the NFT without emitting
// an event
func (c *Chain) BurnNFT(sender sui.Address, nft sui.ObjectID) sui.Digest {
	coins := c.GasCoins(sender)
	require.NotEmpty(c.tb, coins, "sender has no gas")
	return c.execute(txPlan{
		kind:     sui.TransactionKindProgrammable,
		sender:   sender,
		gas:      coins[len(coins)-1],
		inputs:   []sui.CallArg{c.objectInput(nft)},
		commands: []sui.Command{moveCallCommand("burn")},
		delete:   []sui.ObjectID{nft},
	})
}

func (c *Chain) objectInput(id sui.ObjectID) sui.CallArg {
	obj, ok := c.objects[id]
	require.True(c.tb, ok, "unknown object %s", id)
	return sui.CallArg{
		Type:       sui.CallArgTypeObject,
		ObjectType: "immOrOwnedObject",
		ObjectID:   obj.id,
		Version:    sui.Uint64(obj.version),
		Digest:     obj.digest,
	}
}

func pureInput(valueType string, value any) sui.CallArg {
	raw, _ := json.Marshal(value)
	return sui.CallArg{
		Type:      sui.CallArgTypePure,
		ValueType: valueType,
		Value:     raw,
	}
}

func rawCommand(name string, raw string) sui.Command {
	return sui.Command{Name: name, Raw: json.RawMessage(raw)}
}

func moveCallCommand(function string) sui.Command {
	return sui.Command{
		Name: sui.CommandMoveCall,
		MoveCall: &sui.MoveCall{
			Package:  FrameworkPackage,
			Module:   NFTModule,
			Function: function,
		},
	}
}

func coinContents(id sui.ObjectID, balance uint64) []byte {
	ret := append([]byte{}, id.Bytes()...)
	return binary.LittleEndian.AppendUint64(ret, balance)
}

func appendString(buf []byte, s string) []byte {
	buf = binary.AppendUvarint(buf, uint64(len(s)))
	return append(buf, s...)
}

func objectDigest(id sui.ObjectID, version uint64) sui.Digest {
	return Digest(fmt.Sprintf("object-%s-%d", id, version))
}

// execute applies a transaction to the object state and records it
func (c *Chain) execute(plan txPlan) sui.Digest {
	c.nonce++
	digest := Digest(fmt.Sprintf("tx-%d", c.nonce))
	timestampMs := genesisTimestampMs + c.nextSeq*1000

	// Lamport version: one above every object the transaction touches
	var maxVersion uint64
	touched := []sui.ObjectID{}
	if plan.gas != sui.ZeroAddress {
		touched = append(touched, plan.gas)
	}
	for _, m := range plan.mutate {
		touched = append(touched, m.id)
	}
	touched = append(touched, plan.delete...)
	for _, id := range touched {
		obj, ok := c.objects[id]
		require.True(c.tb, ok, "unknown object %s", id)
		require.False(c.tb, obj.deleted, "object %s is deleted", id)
		maxVersion = max(maxVersion, obj.version)
	}
	version := maxVersion + 1

	gasData := sui.GasData{
		Owner:  plan.sender,
		Price:  1,
		Budget: 10 * GasFee,
	}
	if plan.gas == sui.ZeroAddress {
		gasData.Payment = []sui.ObjectRef{{
			ObjectID: sui.ZeroAddress,
			Digest:   Digest("genesis-gas"),
		}}
	} else {
		gasData.Payment = []sui.ObjectRef{c.objects[plan.gas].ref()}
	}

	effects := &sui.Effects{
		MessageVersion:    "v1",
		Status:            sui.ExecutionStatus{Status: sui.ExecutionStatusSuccess},
		TransactionDigest: digest,
		GasUsed:           sui.GasCostSummary{ComputationCost: GasFee},
	}
	var written []*objectState
	for _, obj := range plan.create {
		obj.version = version
		obj.digest = objectDigest(obj.id, version)
		c.objects[obj.id] = obj
		written = append(written, obj)
		effects.Created = append(effects.Created, sui.OwnedObjectRef{
			Owner:     obj.owner,
			Reference: obj.ref(),
		})
	}
	mutations := slices.Clone(plan.mutate)
	if plan.gas != sui.ZeroAddress {
		gasObj := c.objects[plan.gas]
		balance := binary.LittleEndian.Uint64(gasObj.contents[sui.AddressLength:])
		mutations = append(mutations, mutation{
			id:       plan.gas,
			contents: coinContents(plan.gas, balance-GasFee),
		})
	}
	for _, m := range mutations {
		obj := c.objects[m.id]
		if m.owner != nil {
			obj.owner = *m.owner
		}
		if m.contents != nil {
			obj.contents = m.contents
		}
		obj.version = version
		obj.digest = objectDigest(obj.id, version)
		written = append(written, obj)
		ref := sui.OwnedObjectRef{Owner: obj.owner, Reference: obj.ref()}
		effects.Mutated = append(effects.Mutated, ref)
		if m.id == plan.gas {
			effects.GasObject = ref
		}
	}
	if plan.gas == sui.ZeroAddress {
		effects.GasObject = sui.OwnedObjectRef{
			Owner:     sui.AddressOwner(sui.ZeroAddress),
			Reference: gasData.Payment[0],
		}
	}
	for _, id := range plan.delete {
		obj := c.objects[id]
		obj.deleted = true
		obj.version = version
		effects.Deleted = append(effects.Deleted, sui.ObjectRef{
			ObjectID: id,
			Version:  sui.Uint64(version),
			Digest:   Digest("deleted"),
		})
	}

	events := make([]sui.Event, 0, len(plan.events))
	for i, evt := range plan.events {
		evt.ID = sui.EventID{TxDigest: digest, EventSeq: sui.Uint64(i)}
		evt.TimestampMs = sui.Uint64(timestampMs)
		events = append(events, evt)
	}

	kind := sui.TransactionKind{
		Kind:         plan.kind,
		Inputs:       plan.inputs,
		Transactions: plan.commands,
	}
	if plan.kind == sui.TransactionKindGenesis {
		for _, obj := range plan.create {
			kind.Objects = append(kind.Objects, obj.id)
		}
	}
	raw := blake2b.Sum256([]byte("raw-" + string(digest)))
	block := sui.TransactionBlock{
		Digest: digest,
		Transaction: &sui.SenderSignedData{
			Data: sui.TransactionData{
				MessageVersion: "v1",
				Transaction:    kind,
				Sender:         plan.sender,
				GasData:        gasData,
			},
		},
		RawTransaction: raw[:],
		Effects:        effects,
		Events:         events,
		TimestampMs:    sui.Uint64(timestampMs),
		Checkpoint:     sui.Uint64(c.nextSeq),
	}
	objects := make([]sui.ObjectData, 0, len(written))
	for _, obj := range written {
		objects = append(objects, obj.data(digest))
	}
	c.pending = append(c.pending, pendingTx{block: block, objects: objects})
	if !c.batching {
		c.commit()
	}
	return digest
}

func (c *Chain) commit() {
	seq := c.nextSeq
	cp := &sui.Checkpoint{
		SequenceNumber: sui.Uint64(seq),
		Digest:         Digest(fmt.Sprintf("checkpoint-%d", seq)),
		PreviousDigest: c.prev,
		TimestampMs:    sui.Uint64(genesisTimestampMs + seq*1000),
		Transactions:   []sui.Digest{},
	}
	var blocks []sui.TransactionBlock
	var objects []sui.ObjectData
	for _, p := range c.pending {
		p.block.Checkpoint = sui.Uint64(seq)
		cp.Transactions = append(cp.Transactions, p.block.Digest)
		blocks = append(blocks, p.block)
		objects = append(objects, p.objects...)
	}
	c.totalTxs += uint64(len(blocks))
	cp.NetworkTotalTransactions = sui.Uint64(c.totalTxs)
	require.NoError(c.tb, c.Source.AddCheckpoint(cp, blocks, objects))
	digest := cp.Digest
	c.prev = &digest
	c.pending = nil
	c.nextSeq++
}
