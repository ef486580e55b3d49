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
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/blinklabs-io/suidex/database"
	"github.com/blinklabs-io/suidex/database/models"
	"github.com/blinklabs-io/suidex/database/types"
	"github.com/blinklabs-io/suidex/layout"
	"github.com/blinklabs-io/suidex/sui"
)

// Engine serves reads over the indexed store. It never writes, and every
// caller-contract check happens before the store is touched.
type Engine struct {
	db       *database.Database
	resolver *layout.Resolver
	logger   *slog.Logger
}

type EngineOption func(*Engine)

func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithResolver enables parsed object views
func WithResolver(resolver *layout.Resolver) EngineOption {
	return func(e *Engine) {
		e.resolver = resolver
	}
}

func New(db *database.Database, opts ...EngineOption) *Engine {
	e := &Engine{db: db}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	e.logger = e.logger.With("component", "query")
	return e
}

// GetLatestCheckpointSequenceNumber returns the watermark. The boolean is
// false until the first checkpoint is committed.
func (e *Engine) GetLatestCheckpointSequenceNumber(
	ctx context.Context,
) (uint64, bool, error) {
	return e.db.GetLatestCheckpointSequenceNumber(nil)
}

func (e *Engine) GetCheckpoint(
	ctx context.Context,
	seq uint64,
) (*sui.Checkpoint, error) {
	rec, err := e.db.GetCheckpoint(seq, nil)
	if err != nil {
		return nil, err
	}
	return checkpointView(rec), nil
}

func (e *Engine) GetTotalAddressNumber(ctx context.Context) (uint64, error) {
	return e.db.GetTotalAddressNumber(nil)
}

func (e *Engine) GetTransaction(
	ctx context.Context,
	digest string,
) (*TransactionView, error) {
	normalized, err := normalizeDigest(digest)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	return e.transaction(normalized)
}

func (e *Engine) transaction(digest string) (*TransactionView, error) {
	rec, err := e.db.GetTransaction(digest, nil)
	if err != nil {
		return nil, err
	}
	tx := rec.Transaction
	ret := &TransactionView{
		Digest:      sui.Digest(tx.Digest),
		Checkpoint:  sui.Uint64(tx.CheckpointSequence),
		TimestampMs: sui.Uint64(tx.TimestampMs),
		Sender:      sui.Address(tx.Sender),
		Kind:        tx.Kind,
		Status: sui.ExecutionStatus{
			Status: tx.Status,
			Error:  tx.StatusError,
		},
		Gas: GasView{
			Budget:          sui.Uint64(tx.GasBudget),
			ComputationCost: sui.Uint64(tx.ComputationCost),
			StorageCost:     sui.Uint64(tx.StorageCost),
			StorageRebate:   sui.Uint64(tx.StorageRebate),
		},
		Recipients:     addresses[sui.Address](rec.Recipients),
		InputObjects:   addresses[sui.ObjectID](rec.InputObjects),
		ChangedObjects: addresses[sui.ObjectID](rec.ChangedObjects),
		MoveCalls:      make([]MoveCallView, 0, len(rec.MoveCalls)),
		Events:         make([]sui.EventID, 0, len(rec.Events)),
	}
	for _, call := range rec.MoveCalls {
		ret.MoveCalls = append(ret.MoveCalls, MoveCallView{
			Package:  sui.ObjectID(call.Package),
			Module:   call.Module,
			Function: call.Function,
		})
	}
	for _, evt := range rec.Events {
		ret.Events = append(ret.Events, sui.EventID{
			TxDigest: sui.Digest(evt.TransactionDigest),
			EventSeq: sui.Uint64(evt.EventSeq),
		})
	}
	if len(rec.RawTransaction) > 0 {
		var data sui.SenderSignedData
		if err := json.Unmarshal(rec.RawTransaction, &data); err != nil {
			e.logger.Warn("stored transaction is unreadable", "digest", digest, "error", err)
		} else {
			ret.Transaction = &data
		}
	}
	if len(rec.Effects) > 0 {
		var effects sui.Effects
		if err := json.Unmarshal(rec.Effects, &effects); err != nil {
			e.logger.Warn("stored effects are unreadable", "digest", digest, "error", err)
		} else {
			ret.Effects = &effects
		}
	}
	return ret, nil
}

// QueryTransactions returns a page of transactions matching filter, by
// ascending digest, or descending when requested. The cursor is the digest
// of the last transaction of the previous page.
func (e *Engine) QueryTransactions(
	ctx context.Context,
	filter TransactionFilter,
	cursor *string,
	limit *int,
	descending bool,
) (*Page[TransactionView, string], error) {
	storeFilter, err := filter.normalize()
	if err != nil {
		return nil, err
	}
	pageSize, err := checkLimit(limit)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		tmp, err := normalizeDigest(*cursor)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidCursor, err)
		}
		cursor = &tmp
	}
	digests, err := e.db.QueryTransactions(storeFilter, cursor, pageSize+1, descending, nil)
	if err != nil {
		return nil, err
	}
	return buildPage(
		digests,
		pageSize,
		func(digest string) (TransactionView, error) {
			tx, err := e.transaction(digest)
			if err != nil {
				return TransactionView{}, err
			}
			return *tx, nil
		},
		func(digest string) string { return digest },
	)
}

// QueryEvents returns a page of events matching filter, by transaction
// digest and then emission order
func (e *Engine) QueryEvents(
	ctx context.Context,
	filter EventFilter,
	cursor *sui.EventID,
	limit *int,
	descending bool,
) (*Page[sui.Event, sui.EventID], error) {
	storeFilter, err := filter.normalize()
	if err != nil {
		return nil, err
	}
	pageSize, err := checkLimit(limit)
	if err != nil {
		return nil, err
	}
	var storeCursor *types.EventCursor
	if cursor != nil {
		digest, err := normalizeDigest(cursor.TxDigest.String())
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidCursor, err)
		}
		storeCursor = &types.EventCursor{
			TxDigest: digest,
			EventSeq: uint64(cursor.EventSeq),
		}
	}
	events, err := e.db.QueryEvents(storeFilter, storeCursor, pageSize+1, descending, nil)
	if err != nil {
		return nil, err
	}
	return buildPage(
		events,
		pageSize,
		func(evt models.Event) (sui.Event, error) { return eventView(evt), nil },
		func(evt models.Event) sui.EventID {
			return sui.EventID{
				TxDigest: sui.Digest(evt.TransactionDigest),
				EventSeq: sui.Uint64(evt.EventSeq),
			}
		},
	)
}

// GetEventsByTransaction returns the events of a transaction in emission
// order
func (e *Engine) GetEventsByTransaction(
	ctx context.Context,
	digest string,
) ([]sui.Event, error) {
	normalized, err := normalizeDigest(digest)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	if _, err := e.db.GetTransaction(normalized, nil); err != nil {
		return nil, err
	}
	events, err := e.db.GetEventsByTransaction(normalized, nil)
	if err != nil {
		return nil, err
	}
	ret := make([]sui.Event, 0, len(events))
	for _, evt := range events {
		ret = append(ret, eventView(evt))
	}
	return ret, nil
}

// GetObject returns an object at a version, or its latest version when
// version is nil
func (e *Engine) GetObject(
	ctx context.Context,
	objectID string,
	version *uint64,
	opts ObjectOptions,
) (*ObjectView, error) {
	normalized, err := normalizeAddress(objectID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	rec, err := e.db.GetObject(normalized, version, nil)
	if err != nil {
		return nil, err
	}
	ret := objectView(rec.Object)
	e.fillContents(ctx, &ret, rec, opts)
	return &ret, nil
}

// fillContents adds the parsed and raw views. Objects decoded at ingestion
// reuse the stored value; the rest are resolved on demand, and fall back to
// raw bytes when their layout can't be resolved.
func (e *Engine) fillContents(
	ctx context.Context,
	view *ObjectView,
	rec *database.ObjectRecord,
	opts ObjectOptions,
) {
	if opts.ShowBcs {
		view.Bcs = rec.Contents
	}
	if !opts.ShowContent || len(rec.Contents) == 0 {
		return
	}
	if len(rec.Object.DecodedContents) > 0 {
		view.Content = json.RawMessage(rec.Object.DecodedContents)
		return
	}
	if e.resolver != nil {
		value, err := e.resolver.DecodeObject(ctx, rec.Object.Type, rec.Contents)
		if err == nil {
			if content, err := layout.MarshalValue(value); err == nil {
				view.Content = content
				return
			}
		}
		e.logger.Debug(
			"object contents not decodable",
			"object_id", rec.Object.ObjectID,
			"version", rec.Object.Version,
			"error", err,
		)
	}
	view.Bcs = rec.Contents
}

// GetOwnedObjects returns a page of the live objects owned by an address, by
// ascending object ID
func (e *Engine) GetOwnedObjects(
	ctx context.Context,
	owner string,
	cursor *string,
	limit *int,
	opts ObjectOptions,
) (*Page[ObjectView, string], error) {
	normalizedOwner, err := normalizeAddress(owner)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	pageSize, err := checkLimit(limit)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		tmp, err := normalizeAddress(*cursor)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidCursor, err)
		}
		cursor = &tmp
	}
	objects, err := e.db.GetOwnedObjects(normalizedOwner, cursor, pageSize+1, nil)
	if err != nil {
		return nil, err
	}
	return buildPage(
		objects,
		pageSize,
		func(obj models.Object) (ObjectView, error) {
			view := objectView(obj)
			if !opts.ShowContent && !opts.ShowBcs {
				return view, nil
			}
			version := obj.Version
			rec, err := e.db.GetObject(obj.ObjectID, &version, nil)
			if err != nil {
				return ObjectView{}, err
			}
			e.fillContents(ctx, &view, rec, opts)
			return view, nil
		},
		func(obj models.Object) string { return obj.ObjectID },
	)
}
