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

package api

import (
	"context"

	"github.com/blinklabs-io/suidex/query"
	"github.com/blinklabs-io/suidex/sui"
)

// QueryEngine is what the server needs to answer requests. It is
// implemented by *query.Engine.
type QueryEngine interface {
	GetLatestCheckpointSequenceNumber(ctx context.Context) (uint64, bool, error)
	GetCheckpoint(ctx context.Context, seq uint64) (*sui.Checkpoint, error)
	GetTransaction(ctx context.Context, digest string) (*query.TransactionView, error)
	QueryTransactions(
		ctx context.Context,
		filter query.TransactionFilter,
		cursor *string,
		limit *int,
		descending bool,
	) (*query.Page[query.TransactionView, string], error)
	GetEventsByTransaction(ctx context.Context, digest string) ([]sui.Event, error)
	QueryEvents(
		ctx context.Context,
		filter query.EventFilter,
		cursor *sui.EventID,
		limit *int,
		descending bool,
	) (*query.Page[sui.Event, sui.EventID], error)
	GetObject(
		ctx context.Context,
		objectID string,
		version *uint64,
		opts query.ObjectOptions,
	) (*query.ObjectView, error)
	GetOwnedObjects(
		ctx context.Context,
		owner string,
		cursor *string,
		limit *int,
		opts query.ObjectOptions,
	) (*query.Page[query.ObjectView, string], error)
	GetTotalAddressNumber(ctx context.Context) (uint64, error)
}
