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

package query_test

import (
	"context"
	"encoding/json"
	"slices"
	"strconv"
	"testing"
	"time"

	"github.com/blinklabs-io/suidex/database"
	"github.com/blinklabs-io/suidex/fetcher"
	"github.com/blinklabs-io/suidex/ingest"
	"github.com/blinklabs-io/suidex/internal/test/testutil"
	"github.com/blinklabs-io/suidex/layout"
	"github.com/blinklabs-io/suidex/query"
	"github.com/blinklabs-io/suidex/sui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// indexChain ingests every checkpoint of chain into a new database
func indexChain(
	t *testing.T,
	chain *testutil.Chain,
	resolver *layout.Resolver,
) *database.Database {
	t.Helper()
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	opts := []ingest.PipelineOption{ingest.WithPollInterval(5 * time.Millisecond)}
	if resolver != nil {
		opts = append(opts, ingest.WithResolver(resolver))
	}
	p := ingest.New(
		db,
		fetcher.New(chain.Source, fetcher.WithRetry(time.Millisecond, 100*time.Millisecond)),
		opts...,
	)
	ctx, cancel := context.WithCancel(t.Context())
	errCh := make(chan error, 1)
	go func() {
		errCh <- p.Run(ctx)
	}()
	testutil.WaitForCondition(
		t,
		func() bool {
			wm, ok := p.Watermark()
			return ok && wm >= chain.LatestSequence()
		},
		5*time.Second,
		"indexing did not finish",
	)
	cancel()
	require.NoError(t, testutil.RequireReceive(t, errCh, 5*time.Second, "pipeline stop"))
	return db
}

func newEngine(t *testing.T, chain *testutil.Chain) *query.Engine {
	t.Helper()
	resolver := layout.NewResolver(chain.Source)
	return query.New(indexChain(t, chain, resolver), query.WithResolver(resolver))
}

func digests(page *query.Page[query.TransactionView, string]) []sui.Digest {
	ret := make([]sui.Digest, 0, len(page.Data))
	for _, tx := range page.Data {
		ret = append(ret, tx.Digest)
	}
	return ret
}

func sorted(in ...sui.Digest) []sui.Digest {
	ret := slices.Clone(in)
	slices.Sort(ret)
	return ret
}

func TestQueryTransactionsSimpleTransfer(t *testing.T) {
	chain := testutil.NewChain(t)
	sender, receiver := chain.Accounts[0], chain.Accounts[1]
	coin, transfer := chain.TransferCoin(sender, receiver)
	_, mint := chain.MintNFT(sender)
	engine := newEngine(t, chain)
	ctx := t.Context()

	page, err := engine.QueryTransactions(ctx, query.FromAddress(sender.String()), nil, nil, false)
	require.NoError(t, err)
	assert.Equal(t, sorted(transfer, mint), digests(page))
	assert.False(t, page.HasNextPage)

	genesis, err := engine.GetCheckpoint(ctx, 0)
	require.NoError(t, err)
	require.Len(t, genesis.Transactions, 1)

	page, err = engine.QueryTransactions(ctx, query.ToAddress(receiver.String()), nil, nil, false)
	require.NoError(t, err)
	assert.Equal(t, sorted(genesis.Transactions[0], transfer), digests(page))

	page, err = engine.QueryTransactions(ctx, query.ChangedObject(coin.String()), nil, nil, false)
	require.NoError(t, err)
	assert.Equal(t, sorted(genesis.Transactions[0], transfer), digests(page))

	page, err = engine.QueryTransactions(ctx, query.InputObject(coin.String()), nil, nil, false)
	require.NoError(t, err)
	assert.Equal(t, []sui.Digest{transfer}, digests(page))
	assert.False(t, page.HasNextPage)
	require.NotNil(t, page.NextCursor)
	assert.Equal(t, transfer.String(), *page.NextCursor)

	page, err = engine.QueryTransactions(
		ctx,
		query.MoveFunction("0x2", testutil.NFTModule, ""),
		nil,
		nil,
		false,
	)
	require.NoError(t, err)
	assert.Equal(t, []sui.Digest{mint}, digests(page))

	page, err = engine.QueryTransactions(
		ctx,
		query.MoveFunction("0x2", testutil.NFTModule, "burn"),
		nil,
		nil,
		false,
	)
	require.NoError(t, err)
	assert.Empty(t, page.Data)
	assert.Nil(t, page.NextCursor)

	page, err = engine.QueryTransactions(ctx, query.TransactionDigest(mint.String()), nil, nil, false)
	require.NoError(t, err)
	assert.Equal(t, []sui.Digest{mint}, digests(page))

	count, err := engine.GetTotalAddressNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(testutil.DefaultAccounts+1), count)
}

func TestQueryTransactionsPagination(t *testing.T) {
	chain := testutil.NewChain(t)
	sender := chain.Accounts[2]
	var expected []sui.Digest
	for range 5 {
		_, digest := chain.MintNFT(sender)
		expected = append(expected, digest)
	}
	slices.Sort(expected)
	engine := newEngine(t, chain)
	ctx := t.Context()

	var got []sui.Digest
	var cursor *string
	for {
		page, err := engine.QueryTransactions(ctx, query.FromAddress(sender.String()), cursor, query.Limit(2), false)
		require.NoError(t, err)
		got = append(got, digests(page)...)
		if !page.HasNextPage {
			break
		}
		require.Len(t, page.Data, 2)
		cursor = page.NextCursor
	}
	assert.Equal(t, expected, got)

	page, err := engine.QueryTransactions(ctx, query.FromAddress(sender.String()), nil, nil, true)
	require.NoError(t, err)
	reversed := slices.Clone(expected)
	slices.Reverse(reversed)
	assert.Equal(t, reversed, digests(page))
}

func TestGetTransaction(t *testing.T) {
	chain := testutil.NewChain(t)
	sender := chain.Accounts[0]
	_, mint := chain.MintNFT(sender)
	engine := newEngine(t, chain)

	tx, err := engine.GetTransaction(t.Context(), mint.String())
	require.NoError(t, err)
	assert.Equal(t, mint, tx.Digest)
	assert.Equal(t, sender, tx.Sender)
	assert.Equal(t, sui.Uint64(1), tx.Checkpoint)
	assert.Equal(t, sui.ExecutionStatusSuccess, tx.Status.Status)
	assert.Equal(t, sui.Uint64(10*testutil.GasFee), tx.Gas.Budget)
	assert.Equal(t, sui.Uint64(testutil.GasFee), tx.Gas.ComputationCost)
	require.Len(t, tx.MoveCalls, 1)
	assert.Equal(t, "mint", tx.MoveCalls[0].Function)
	assert.Equal(t, []sui.EventID{{TxDigest: mint, EventSeq: 0}}, tx.Events)
	require.NotNil(t, tx.Transaction)
	assert.Equal(t, sender, tx.Transaction.Data.Sender)
	require.NotNil(t, tx.Effects)
	assert.Len(t, tx.Effects.Created, 1)

	_, err = engine.GetTransaction(t.Context(), testutil.Digest("missing").String())
	require.ErrorIs(t, err, database.ErrTransactionNotFound)
	_, err = engine.GetTransaction(t.Context(), "not a digest")
	require.ErrorIs(t, err, query.ErrInvalidArgument)
}

func TestQueryEvents(t *testing.T) {
	chain := testutil.NewChain(t)
	sender, receiver := chain.Accounts[0], chain.Accounts[1]
	nft, first := chain.MintNFT(sender)
	_, second := chain.MintNFT(sender)
	gas := chain.GasCoins(sender)
	chain.TransferObject(sender, nft, gas[len(gas)-1], receiver)
	engine := newEngine(t, chain)
	ctx := t.Context()

	eventDigests := func(page *query.Page[sui.Event, sui.EventID]) []sui.Digest {
		ret := []sui.Digest{}
		for _, evt := range page.Data {
			ret = append(ret, evt.ID.TxDigest)
		}
		return ret
	}

	page, err := engine.QueryEvents(ctx, query.Sender(sender.String()), nil, nil, false)
	require.NoError(t, err)
	assert.Equal(t, sorted(first, second), eventDigests(page))
	for _, evt := range page.Data {
		assert.Equal(t, testutil.MintEventType, evt.Type)
		assert.Equal(t, sender, evt.Sender)
		assert.NotEmpty(t, evt.ParsedJSON)
	}

	page, err = engine.QueryEvents(ctx, query.Transaction(first.String()), nil, nil, false)
	require.NoError(t, err)
	assert.Equal(t, []sui.Digest{first}, eventDigests(page))

	page, err = engine.QueryEvents(ctx, query.MoveModule("0x2", testutil.NFTModule), nil, nil, false)
	require.NoError(t, err)
	assert.Len(t, page.Data, 2)

	// Long and short address forms name the same type
	long := "0x0000000000000000000000000000000000000000000000000000000000000002::devnet_nft::MintNFTEvent"
	page, err = engine.QueryEvents(ctx, query.MoveEventType(long), nil, nil, false)
	require.NoError(t, err)
	assert.Equal(t, sorted(first, second), eventDigests(page))

	page, err = engine.QueryEvents(ctx, query.MoveEventType(testutil.BurnEventType), nil, nil, false)
	require.NoError(t, err)
	assert.Empty(t, page.Data)
	assert.False(t, page.HasNextPage)
	assert.Nil(t, page.NextCursor)

	events, err := engine.GetEventsByTransaction(ctx, second.String())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, sui.EventID{TxDigest: second, EventSeq: 0}, events[0].ID)

	owned, err := engine.GetOwnedObjects(ctx, receiver.String(), nil, nil, query.ObjectOptions{})
	require.NoError(t, err)
	ids := []sui.ObjectID{}
	for _, obj := range owned.Data {
		ids = append(ids, obj.ObjectID)
	}
	assert.Contains(t, ids, nft)
}

func TestQueryEventsPagination(t *testing.T) {
	chain := testutil.NewChain(t)
	sender := chain.Accounts[3]
	var mints []sui.Digest
	for range 5 {
		nft, digest := chain.MintNFT(sender)
		mints = append(mints, digest)
		chain.BurnNFT(sender, nft)
	}
	slices.Sort(mints)
	engine := newEngine(t, chain)
	ctx := t.Context()

	page, err := engine.QueryEvents(ctx, query.MoveModule("0x2", testutil.NFTModule), nil, nil, false)
	require.NoError(t, err)
	assert.Len(t, page.Data, 5)

	page, err = engine.QueryEvents(ctx, query.MoveEventType(testutil.MintEventType), nil, query.Limit(2), false)
	require.NoError(t, err)
	require.Len(t, page.Data, 2)
	assert.True(t, page.HasNextPage)
	require.NotNil(t, page.NextCursor)
	assert.Equal(t, page.Data[1].ID, *page.NextCursor)

	next, err := engine.QueryEvents(ctx, query.MoveEventType(testutil.MintEventType), page.NextCursor, query.Limit(4), false)
	require.NoError(t, err)
	require.Len(t, next.Data, 3)
	assert.False(t, next.HasNextPage)
	require.NotNil(t, next.NextCursor)
	assert.Equal(t, next.Data[2].ID, *next.NextCursor)

	var got []sui.Digest
	for _, evt := range append(page.Data, next.Data...) {
		got = append(got, evt.ID.TxDigest)
	}
	assert.Equal(t, mints, got)
}

func TestQueryValidation(t *testing.T) {
	chain := testutil.NewChain(t)
	engine := newEngine(t, chain)
	ctx := t.Context()

	for _, limit := range []int{0, -1, query.MaxLimit + 1} {
		_, err := engine.QueryTransactions(ctx, query.AllTransactions(), nil, query.Limit(limit), false)
		require.ErrorIs(t, err, query.ErrInvalidLimit, limit)
		_, err = engine.QueryEvents(ctx, query.AllEvents(), nil, query.Limit(limit), false)
		require.ErrorIs(t, err, query.ErrInvalidLimit, limit)
	}
	_, err := engine.QueryTransactions(ctx, query.AllTransactions(), nil, query.Limit(query.MaxLimit), false)
	require.NoError(t, err)

	badFilters := []query.TransactionFilter{
		query.FromAddress("0xnothex"),
		query.ToAddress(""),
		query.InputObject("0x1zz"),
		query.MoveFunction("0x2", "", "mint"),
		query.MoveFunction("0x2", "bad module", ""),
		query.TransactionDigest("0OIl"),
	}
	for _, filter := range badFilters {
		_, err := engine.QueryTransactions(ctx, filter, nil, nil, false)
		require.ErrorIs(t, err, query.ErrInvalidFilter)
	}
	badEventFilters := []query.EventFilter{
		query.Sender("nope"),
		query.MoveModule("0x2", ""),
		query.MoveEventType("0x2::devnet_nft"),
		query.MoveEventType("u64"),
	}
	for _, filter := range badEventFilters {
		_, err := engine.QueryEvents(ctx, filter, nil, nil, false)
		require.ErrorIs(t, err, query.ErrInvalidFilter)
	}

	badCursor := "not a digest"
	_, err = engine.QueryTransactions(ctx, query.AllTransactions(), &badCursor, nil, false)
	require.ErrorIs(t, err, query.ErrInvalidCursor)
	_, err = engine.QueryEvents(ctx, query.AllEvents(), &sui.EventID{TxDigest: "bad"}, nil, false)
	require.ErrorIs(t, err, query.ErrInvalidCursor)
	_, err = engine.GetOwnedObjects(ctx, chain.Accounts[0].String(), &badCursor, nil, query.ObjectOptions{})
	require.ErrorIs(t, err, query.ErrInvalidCursor)
	_, err = engine.GetObject(ctx, "0xzz", nil, query.ObjectOptions{})
	require.ErrorIs(t, err, query.ErrInvalidArgument)
}

func coinBalance(t *testing.T, content json.RawMessage) string {
	t.Helper()
	var tmp struct {
		Balance string `json:"balance"`
	}
	require.NoError(t, json.Unmarshal(content, &tmp))
	return tmp.Balance
}

func TestGetObject(t *testing.T) {
	chain := testutil.NewChain(t)
	sender := chain.Accounts[0]
	coins := chain.GasCoins(sender)
	gas := coins[len(coins)-1]
	chain.MintNFT(sender)
	engine := newEngine(t, chain)
	ctx := t.Context()

	obj, err := engine.GetObject(ctx, gas.String(), nil, query.ObjectOptions{ShowContent: true})
	require.NoError(t, err)
	assert.Equal(t, layout.GasCoinType, obj.Type)
	assert.Equal(t, sui.Uint64(chain.ObjectVersion(gas)), obj.Version)
	require.NotNil(t, obj.Owner)
	assert.Equal(t, sender, obj.Owner.Address)
	assert.Equal(t, strconv.FormatUint(chain.CoinBalance(gas), 10), coinBalance(t, obj.Content))
	assert.Nil(t, obj.Bcs)

	tag, err := layout.ParseTypeTag(obj.Type)
	require.NoError(t, err)
	assert.True(t, layout.IsGasCoin(tag))

	version := uint64(1)
	genesis, err := engine.GetObject(ctx, gas.String(), &version, query.ObjectOptions{ShowBcs: true})
	require.NoError(t, err)
	assert.Equal(t, sui.Uint64(1), genesis.Version)
	assert.NotEmpty(t, genesis.Bcs)
	assert.Nil(t, genesis.Content)

	_, err = engine.GetObject(ctx, testutil.Address("missing").String(), nil, query.ObjectOptions{})
	require.ErrorIs(t, err, database.ErrObjectNotFound)
}

func TestGetObjectDecodesOnDemand(t *testing.T) {
	chain := testutil.NewChain(t)
	coin := chain.GasCoins(chain.Accounts[0])[0]
	// Objects are stored without decoded contents when no resolver is
	// configured for ingestion
	db := indexChain(t, chain, nil)
	ctx := t.Context()

	withResolver := query.New(db, query.WithResolver(layout.NewResolver(chain.Source)))
	obj, err := withResolver.GetObject(ctx, coin.String(), nil, query.ObjectOptions{ShowContent: true})
	require.NoError(t, err)
	assert.Equal(t, strconv.FormatUint(testutil.InitialBalance, 10), coinBalance(t, obj.Content))

	// Without a layout the raw bytes are returned instead
	withoutResolver := query.New(db)
	obj, err = withoutResolver.GetObject(ctx, coin.String(), nil, query.ObjectOptions{ShowContent: true})
	require.NoError(t, err)
	assert.Nil(t, obj.Content)
	assert.NotEmpty(t, obj.Bcs)
}

func TestGetOwnedObjects(t *testing.T) {
	chain := testutil.NewChain(t)
	owner := chain.Accounts[4]
	engine := newEngine(t, chain)
	ctx := t.Context()

	expected := chain.GasCoins(owner)
	require.Len(t, expected, testutil.CoinsPerAccount)
	var got []sui.ObjectID
	var cursor *string
	for {
		page, err := engine.GetOwnedObjects(ctx, owner.String(), cursor, query.Limit(2), query.ObjectOptions{ShowContent: true})
		require.NoError(t, err)
		for _, obj := range page.Data {
			got = append(got, obj.ObjectID)
			assert.NotNil(t, obj.Content)
		}
		if !page.HasNextPage {
			break
		}
		cursor = page.NextCursor
	}
	assert.Equal(t, expected, got)

	empty, err := engine.GetOwnedObjects(ctx, testutil.Address("nobody").String(), nil, nil, query.ObjectOptions{})
	require.NoError(t, err)
	assert.Empty(t, empty.Data)
	assert.False(t, empty.HasNextPage)
}

func TestLatestCheckpoint(t *testing.T) {
	chain := testutil.NewChain(t)
	chain.EmptyCheckpoint()
	engine := newEngine(t, chain)

	seq, ok, err := engine.GetLatestCheckpointSequenceNumber(t.Context())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(1), seq)

	cp, err := engine.GetCheckpoint(t.Context(), 1)
	require.NoError(t, err)
	assert.Empty(t, cp.Transactions)
	require.NotNil(t, cp.PreviousDigest)
	assert.Equal(t, testutil.Digest("checkpoint-0"), *cp.PreviousDigest)

	_, err = engine.GetCheckpoint(t.Context(), 5)
	require.ErrorIs(t, err, database.ErrCheckpointNotFound)
}
