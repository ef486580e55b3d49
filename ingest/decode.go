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

package ingest

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/blinklabs-io/suidex/database"
	"github.com/blinklabs-io/suidex/database/models"
	"github.com/blinklabs-io/suidex/database/types"
	"github.com/blinklabs-io/suidex/fetcher"
	"github.com/blinklabs-io/suidex/layout"
	"github.com/blinklabs-io/suidex/sui"
	"github.com/btcsuite/btcd/btcutil/base58"
)

type decodeStats struct {
	events         int
	decodeFailures int
}

// decodeCheckpoint turns fetched data into the unit written to the store.
// Object contents that can't be decoded are kept raw and flagged.
func (p *Pipeline) decodeCheckpoint(
	ctx context.Context,
	data *fetcher.CheckpointData,
) (*database.CheckpointUnit, decodeStats, error) {
	var stats decodeStats
	cp := data.Checkpoint
	seq := uint64(cp.SequenceNumber)
	unit := &database.CheckpointUnit{
		Checkpoint: models.Checkpoint{
			SequenceNumber:           seq,
			Digest:                   cp.Digest.String(),
			Epoch:                    uint64(cp.Epoch),
			TimestampMs:              uint64(cp.TimestampMs),
			NetworkTotalTransactions: types.Uint64(cp.NetworkTotalTransactions),
		},
	}
	if cp.PreviousDigest != nil {
		unit.Checkpoint.PreviousDigest = cp.PreviousDigest.String()
	}
	seen := map[string]struct{}{}
	addAddress := func(addr sui.Address) {
		if addr == "" {
			return
		}
		s := addr.String()
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		unit.Addresses = append(unit.Addresses, models.Address{
			Address:             s,
			FirstSeenCheckpoint: seq,
		})
	}
	for i := range data.Transactions {
		tx := &data.Transactions[i]
		rec, err := p.decodeTransaction(seq, tx)
		if err != nil {
			return nil, stats, err
		}
		stats.events += len(rec.Events)
		unit.Transactions = append(unit.Transactions, *rec)
		addAddress(tx.Sender())
		for _, addr := range tx.Recipients() {
			addAddress(addr)
		}
		// Deleted and wrapped objects get a tombstone version
		for _, ref := range tx.RemovedObjects() {
			unit.Objects = append(unit.Objects, database.ObjectRecord{
				Object: models.Object{
					ObjectID:            ref.ObjectID.String(),
					Version:             uint64(ref.Version),
					Digest:              ref.Digest.String(),
					PreviousTransaction: tx.Digest.String(),
					CheckpointSequence:  seq,
					Deleted:             true,
				},
			})
		}
	}
	for i := range data.Objects {
		rec := p.decodeObject(ctx, seq, &data.Objects[i])
		if rec.Object.DecodeFailed {
			stats.decodeFailures++
		}
		unit.Objects = append(unit.Objects, rec)
	}
	return unit, stats, nil
}

func (p *Pipeline) decodeTransaction(
	seq uint64,
	tx *sui.TransactionBlock,
) (*database.TransactionRecord, error) {
	rawTx, err := json.Marshal(tx.Transaction)
	if err != nil {
		return nil, fmt.Errorf("encode transaction %s: %w", tx.Digest, err)
	}
	effects, err := json.Marshal(tx.Effects)
	if err != nil {
		return nil, fmt.Errorf("encode effects %s: %w", tx.Digest, err)
	}
	digest := tx.Digest.String()
	data := tx.Transaction.Data
	ret := &database.TransactionRecord{
		Transaction: models.Transaction{
			Digest:             digest,
			Sender:             tx.Sender().String(),
			CheckpointSequence: seq,
			TimestampMs:        uint64(tx.TimestampMs),
			Kind:               data.Transaction.Kind,
			Status:             tx.Effects.Status.Status,
			StatusError:        tx.Effects.Status.Error,
			GasBudget:          types.Uint64(data.GasData.Budget),
			ComputationCost:    types.Uint64(tx.Effects.GasUsed.ComputationCost),
			StorageCost:        types.Uint64(tx.Effects.GasUsed.StorageCost),
			StorageRebate:      types.Uint64(tx.Effects.GasUsed.StorageRebate),
		},
		RawTransaction: rawTx,
		Effects:        effects,
	}
	for _, addr := range tx.Recipients() {
		ret.Recipients = append(ret.Recipients, addr.String())
	}
	for _, id := range tx.InputObjects() {
		ret.InputObjects = append(ret.InputObjects, id.String())
	}
	for _, id := range tx.ChangedObjectIDs() {
		ret.ChangedObjects = append(ret.ChangedObjects, id.String())
	}
	for _, call := range tx.MoveCalls() {
		ret.MoveCalls = append(ret.MoveCalls, models.MoveCall{
			Package:  call.Package.String(),
			Module:   call.Module,
			Function: call.Function,
		})
	}
	for i, evt := range tx.Events {
		typ, err := layout.CanonicalType(evt.Type)
		if err != nil {
			p.logger.Warn(
				"event type is not a valid type tag",
				"digest", digest,
				"type", evt.Type,
				"error", err,
			)
			typ = evt.Type
		}
		row := models.Event{
			TransactionDigest: digest,
			EventSeq:          uint64(i),
			PackageID:         evt.PackageID.String(),
			TransactionModule: evt.TransactionModule,
			Sender:            evt.Sender.String(),
			Type:              typ,
			ParsedJSON:        evt.ParsedJSON,
			TimestampMs:       uint64(evt.TimestampMs),
		}
		if evt.Bcs != "" {
			row.Bcs = base58.Decode(evt.Bcs)
		}
		ret.Events = append(ret.Events, row)
	}
	return ret, nil
}

func (p *Pipeline) decodeObject(
	ctx context.Context,
	seq uint64,
	obj *sui.ObjectData,
) database.ObjectRecord {
	row := models.Object{
		ObjectID:            obj.ObjectID.String(),
		Version:             uint64(obj.Version),
		Digest:              obj.Digest.String(),
		Type:                obj.Type,
		PreviousTransaction: obj.PreviousTransaction.String(),
		CheckpointSequence:  seq,
	}
	if obj.Owner != nil {
		row.OwnerKind = string(obj.Owner.Kind)
		row.InitialSharedVersion = obj.Owner.InitialSharedVersion
		if obj.Owner.Kind == sui.OwnerKindAddress || obj.Owner.Kind == sui.OwnerKindObject {
			row.Owner = obj.Owner.Address.String()
		}
	}
	contents := obj.Contents()
	if obj.IsPackage() || len(contents) == 0 {
		return database.ObjectRecord{Object: row, Contents: contents}
	}
	if typ, err := layout.CanonicalType(obj.Type); err == nil {
		row.Type = typ
	}
	if p.resolver == nil {
		return database.ObjectRecord{Object: row, Contents: contents}
	}
	value, err := p.resolver.DecodeObject(ctx, row.Type, contents)
	if err == nil {
		row.DecodedContents, err = layout.MarshalValue(value)
	}
	if err != nil {
		p.logger.Debug(
			"storing object without decoded contents",
			"object_id", row.ObjectID,
			"version", row.Version,
			"type", row.Type,
			"error", err,
		)
		row.DecodeFailed = true
		row.DecodedContents = nil
	}
	return database.ObjectRecord{Object: row, Contents: contents}
}
