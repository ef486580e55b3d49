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

package ingest_test

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/blinklabs-io/suidex/database"
	"github.com/blinklabs-io/suidex/event"
	"github.com/blinklabs-io/suidex/fetcher"
	"github.com/blinklabs-io/suidex/ingest"
	"github.com/blinklabs-io/suidex/internal/test/testutil"
	"github.com/blinklabs-io/suidex/layout"
	"github.com/blinklabs-io/suidex/source"
	"github.com/blinklabs-io/suidex/sui"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitTimeout = 5 * time.Second

func newTestDatabase(t *testing.T) *database.Database {
	t.Helper()
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

func newFetcher(chain *testutil.Chain) *fetcher.Fetcher {
	return fetcher.New(
		chain.Source,
		fetcher.WithRetry(time.Millisecond, 100*time.Millisecond),
	)
}

// runPipeline runs p in the background until the test ends, and returns a
// function that stops it and reports the result of Run
func runPipeline(t *testing.T, p *ingest.Pipeline) func() error {
	t.Helper()
	ctx, cancel := context.WithCancel(t.Context())
	errCh := make(chan error, 1)
	go func() {
		errCh <- p.Run(ctx)
	}()
	var once sync.Once
	var runErr error
	stop := func() error {
		once.Do(func() {
			cancel()
			runErr = testutil.RequireReceive(t, errCh, waitTimeout, "pipeline stop")
		})
		return runErr
	}
	t.Cleanup(func() { _ = stop() })
	return stop
}

func waitForWatermark(t *testing.T, p *ingest.Pipeline, seq uint64) {
	t.Helper()
	testutil.WaitForCondition(
		t,
		func() bool {
			wm, ok := p.Watermark()
			return ok && wm >= seq
		},
		waitTimeout,
		"pipeline did not reach checkpoint",
	)
}

func TestPipelineGenesis(t *testing.T) {
	chain := testutil.NewChain(t)
	db := newTestDatabase(t)
	registry := prometheus.NewRegistry()
	p := ingest.New(
		db,
		newFetcher(chain),
		ingest.WithResolver(layout.NewResolver(chain.Source)),
		ingest.WithPollInterval(5*time.Millisecond),
		ingest.WithPromRegistry(registry),
	)
	stop := runPipeline(t, p)
	waitForWatermark(t, p, 0)
	require.NoError(t, stop())

	seq, ok, err := db.GetLatestCheckpointSequenceNumber(nil)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(0), seq)

	count, err := db.GetTotalAddressNumber(nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(testutil.DefaultAccounts+1), count)

	cp, err := db.GetCheckpoint(0, nil)
	require.NoError(t, err)
	require.Len(t, cp.Transactions, 1)
	tx, err := db.GetTransaction(cp.Transactions[0], nil)
	require.NoError(t, err)
	assert.Equal(t, sui.ZeroAddress.String(), tx.Transaction.Sender)
	assert.Len(t, tx.Recipients, testutil.DefaultAccounts)
	assert.Empty(t, tx.InputObjects)
	assert.Len(t, tx.ChangedObjects, testutil.DefaultAccounts*testutil.CoinsPerAccount)

	coin := chain.GasCoins(chain.Accounts[0])[0]
	obj, err := db.GetObject(coin.String(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "0x2::coin::Coin<0x2::sui::SUI>", obj.Object.Type)
	assert.False(t, obj.Object.DecodeFailed)
	assert.NotEmpty(t, obj.Object.DecodedContents)
	assert.NotEmpty(t, obj.Contents)

	assert.InDelta(t, 1, metricValue(t, registry, "suidex_ingest_checkpoints_total"), 0)
}

func metricValue(t *testing.T, registry *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := registry.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() == name {
			return family.GetMetric()[0].GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

func TestPipelineFollowsChain(t *testing.T) {
	chain := testutil.NewChain(t)
	db := newTestDatabase(t)
	p := ingest.New(
		db,
		newFetcher(chain),
		ingest.WithPollInterval(5*time.Millisecond),
	)
	runPipeline(t, p)
	waitForWatermark(t, p, 0)

	sender := chain.Accounts[0]
	nft, mintDigest := chain.MintNFT(sender)
	burnDigest := chain.BurnNFT(sender, nft)
	chain.EmptyCheckpoint()
	waitForWatermark(t, p, chain.LatestSequence())
	assert.Equal(t, chain.LatestSequence()+1, p.Next())

	mint, err := db.GetTransaction(mintDigest.String(), nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), mint.Transaction.CheckpointSequence)
	require.Len(t, mint.Events, 1)
	assert.Equal(t, testutil.MintEventType, mint.Events[0].Type)
	require.Len(t, mint.MoveCalls, 1)
	assert.Equal(t, testutil.FrameworkPackage.String(), mint.MoveCalls[0].Package)

	burn, err := db.GetTransaction(burnDigest.String(), nil)
	require.NoError(t, err)
	assert.Empty(t, burn.Events)
	assert.Contains(t, burn.InputObjects, nft.String())

	obj, err := db.GetObject(nft.String(), nil, nil)
	require.NoError(t, err)
	assert.True(t, obj.Object.Deleted)
	assert.Equal(t, burnDigest.String(), obj.Object.PreviousTransaction)
	owned, err := db.GetOwnedObjects(sender.String(), nil, 100, nil)
	require.NoError(t, err)
	for _, o := range owned {
		assert.NotEqual(t, nft.String(), o.ObjectID)
	}
}

func TestPipelineResumesAfterWatermark(t *testing.T) {
	chain := testutil.NewChain(t)
	chain.EmptyCheckpoint()
	chain.EmptyCheckpoint()
	db := newTestDatabase(t)

	first := ingest.New(db, newFetcher(chain), ingest.WithPollInterval(5*time.Millisecond))
	stop := runPipeline(t, first)
	waitForWatermark(t, first, 2)
	require.NoError(t, stop())

	second := ingest.New(db, newFetcher(chain), ingest.WithPollInterval(5*time.Millisecond))
	stop = runPipeline(t, second)
	testutil.WaitForCondition(
		t,
		func() bool { return second.Next() == 3 },
		waitTimeout,
		"pipeline did not resume",
	)
	wm, ok := second.Watermark()
	assert.True(t, ok)
	assert.Equal(t, uint64(2), wm)
	require.NoError(t, stop())
}

func TestPipelineReingestIsIdempotent(t *testing.T) {
	chain := testutil.NewChain(t)
	_, digest := chain.MintNFT(chain.Accounts[1])
	db := newTestDatabase(t)

	first := ingest.New(db, newFetcher(chain), ingest.WithPollInterval(5*time.Millisecond))
	stop := runPipeline(t, first)
	waitForWatermark(t, first, 1)
	require.NoError(t, stop())

	second := ingest.New(
		db,
		newFetcher(chain),
		ingest.WithPollInterval(5*time.Millisecond),
		ingest.WithStartSequence(0),
	)
	stop = runPipeline(t, second)
	testutil.WaitForCondition(
		t,
		func() bool { return second.Next() == 2 },
		waitTimeout,
		"pipeline did not re-ingest",
	)
	require.NoError(t, stop())

	count, err := db.GetTotalAddressNumber(nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(testutil.DefaultAccounts+1), count)
	events, err := db.GetEventsByTransaction(digest.String(), nil)
	require.NoError(t, err)
	assert.Len(t, events, 1)
	seq, _, err := db.GetLatestCheckpointSequenceNumber(nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), seq)
}

func TestPipelineWatermarkNeverDecreases(t *testing.T) {
	chain := testutil.NewChain(t)
	for range 4 {
		chain.MintNFT(chain.Accounts[0])
	}
	db := newTestDatabase(t)

	first := ingest.New(db, newFetcher(chain), ingest.WithPollInterval(5*time.Millisecond))
	stop := runPipeline(t, first)
	waitForWatermark(t, first, 4)
	require.NoError(t, stop())

	eventBus := event.NewEventBus(nil, nil)
	defer eventBus.Stop()
	_, evtCh := eventBus.Subscribe(event.CheckpointCommittedEventType)
	registry := prometheus.NewRegistry()
	second := ingest.New(
		db,
		newFetcher(chain),
		ingest.WithPollInterval(5*time.Millisecond),
		ingest.WithStartSequence(0),
		ingest.WithEventBus(eventBus),
		ingest.WithPromRegistry(registry),
	)
	stop = runPipeline(t, second)
	for want := range uint64(5) {
		evt := testutil.RequireReceive(t, evtCh, waitTimeout, "commit event")
		data, ok := evt.Data.(event.CheckpointCommittedEvent)
		require.True(t, ok)
		assert.Equal(t, want, data.SequenceNumber)
		wm, ok := second.Watermark()
		require.True(t, ok)
		assert.Equal(t, uint64(4), wm)
	}
	require.NoError(t, stop())

	families, err := registry.Gather()
	require.NoError(t, err)
	var gauge float64
	for _, family := range families {
		if family.GetName() == "suidex_ingest_watermark" {
			gauge = family.GetMetric()[0].GetGauge().GetValue()
		}
	}
	assert.InDelta(t, 4, gauge, 0)
}

func TestPipelineReset(t *testing.T) {
	chain := testutil.NewChain(t)
	db := newTestDatabase(t)
	first := ingest.New(db, newFetcher(chain), ingest.WithPollInterval(5*time.Millisecond))
	stop := runPipeline(t, first)
	waitForWatermark(t, first, 0)
	require.NoError(t, stop())

	second := ingest.New(
		db,
		newFetcher(chain),
		ingest.WithPollInterval(5*time.Millisecond),
		ingest.WithReset(true),
	)
	stop = runPipeline(t, second)
	waitForWatermark(t, second, 0)
	require.NoError(t, stop())
	count, err := db.GetTotalAddressNumber(nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(testutil.DefaultAccounts+1), count)
}

// tamperingFetcher alters copies of fetched checkpoints
type tamperingFetcher struct {
	fetcher *fetcher.Fetcher
	tamper  func(*fetcher.CheckpointData)
}

func (f *tamperingFetcher) Fetch(
	ctx context.Context,
	seq uint64,
) (*fetcher.CheckpointData, error) {
	ret, err := f.fetcher.Fetch(ctx, seq)
	if err != nil {
		return nil, err
	}
	cp := *ret.Checkpoint
	cp.Transactions = slices.Clone(cp.Transactions)
	ret.Checkpoint = &cp
	for i := range ret.Objects {
		if ret.Objects[i].Bcs != nil {
			raw := *ret.Objects[i].Bcs
			ret.Objects[i].Bcs = &raw
		}
	}
	f.tamper(ret)
	return ret, nil
}

func TestPipelineIntegrity(t *testing.T) {
	testDefs := []struct {
		name   string
		tamper func(*fetcher.CheckpointData)
	}{
		{
			name: "previous digest",
			tamper: func(data *fetcher.CheckpointData) {
				if data.Checkpoint.SequenceNumber == 1 {
					bogus := testutil.Digest("bogus")
					data.Checkpoint.PreviousDigest = &bogus
				}
			},
		},
		{
			name: "sequence number",
			tamper: func(data *fetcher.CheckpointData) {
				if data.Checkpoint.SequenceNumber == 1 {
					data.Checkpoint.SequenceNumber = 7
				}
			},
		},
		{
			name: "transaction list",
			tamper: func(data *fetcher.CheckpointData) {
				if data.Checkpoint.SequenceNumber == 1 {
					data.Checkpoint.Transactions = append(
						data.Checkpoint.Transactions,
						testutil.Digest("extra"),
					)
				}
			},
		},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			chain := testutil.NewChain(t)
			chain.MintNFT(chain.Accounts[0])
			db := newTestDatabase(t)
			p := ingest.New(
				db,
				&tamperingFetcher{fetcher: newFetcher(chain), tamper: testDef.tamper},
				ingest.WithPollInterval(5*time.Millisecond),
			)
			err := p.Run(t.Context())
			require.ErrorIs(t, err, ingest.ErrIntegrity)
			var integrityErr *ingest.IntegrityError
			require.ErrorAs(t, err, &integrityErr)
			assert.Equal(t, uint64(1), integrityErr.Sequence)

			seq, ok, err := db.GetLatestCheckpointSequenceNumber(nil)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, uint64(0), seq)
		})
	}
}

// mislabelingSource returns a different digest for one transaction block
type mislabelingSource struct {
	source.Source
	target sui.Digest
}

func (s *mislabelingSource) MultiGetTransactionBlocks(
	ctx context.Context,
	digests []sui.Digest,
) ([]sui.TransactionBlock, error) {
	txs, err := s.Source.MultiGetTransactionBlocks(ctx, digests)
	for i := range txs {
		if txs[i].Digest == s.target {
			txs[i].Digest = testutil.Digest("mislabeled")
		}
	}
	return txs, err
}

func TestPipelineInvalidSourceData(t *testing.T) {
	chain := testutil.NewChain(t)
	_, digest := chain.MintNFT(chain.Accounts[0])
	db := newTestDatabase(t)
	p := ingest.New(
		db,
		fetcher.New(
			&mislabelingSource{Source: chain.Source, target: digest},
			fetcher.WithRetry(time.Millisecond, 100*time.Millisecond),
		),
		ingest.WithPollInterval(5*time.Millisecond),
	)
	err := p.Run(t.Context())
	require.ErrorIs(t, err, ingest.ErrIntegrity)
	var integrityErr *ingest.IntegrityError
	require.ErrorAs(t, err, &integrityErr)
	assert.Equal(t, uint64(1), integrityErr.Sequence)

	seq, ok, err := db.GetLatestCheckpointSequenceNumber(nil)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(0), seq)
}

func TestPipelineKeepsUndecodableObjects(t *testing.T) {
	chain := testutil.NewChain(t)
	nft, _ := chain.MintNFT(chain.Accounts[0])
	coin := chain.GasCoins(chain.Accounts[0])[0]
	db := newTestDatabase(t)
	registry := prometheus.NewRegistry()
	p := ingest.New(
		db,
		&tamperingFetcher{
			fetcher: newFetcher(chain),
			tamper: func(data *fetcher.CheckpointData) {
				for i := range data.Objects {
					obj := &data.Objects[i]
					switch obj.ObjectID {
					case nft:
						obj.Type = "0x99::missing::Thing"
					case coin:
						obj.Bcs.BcsBytes = obj.Bcs.BcsBytes[:4]
					}
				}
			},
		},
		ingest.WithResolver(layout.NewResolver(chain.Source)),
		ingest.WithPollInterval(5*time.Millisecond),
		ingest.WithPromRegistry(registry),
	)
	stop := runPipeline(t, p)
	waitForWatermark(t, p, 1)
	require.NoError(t, stop())

	for _, id := range []sui.ObjectID{nft, coin} {
		obj, err := db.GetObject(id.String(), nil, nil)
		require.NoError(t, err)
		assert.True(t, obj.Object.DecodeFailed, id)
		assert.Empty(t, obj.Object.DecodedContents, id)
		assert.NotEmpty(t, obj.Contents, id)
	}
	// The coin fails in genesis and the NFT in the mint checkpoint
	assert.InDelta(
		t,
		float64(2),
		metricValue(t, registry, "suidex_ingest_decode_failures_total"),
		0,
	)
}

func TestPipelinePublishesCommits(t *testing.T) {
	chain := testutil.NewChain(t)
	chain.MintNFT(chain.Accounts[0])
	db := newTestDatabase(t)
	eventBus := event.NewEventBus(nil, nil)
	defer eventBus.Stop()
	_, evtCh := eventBus.Subscribe(event.CheckpointCommittedEventType)

	p := ingest.New(
		db,
		newFetcher(chain),
		ingest.WithEventBus(eventBus),
		ingest.WithPollInterval(5*time.Millisecond),
	)
	runPipeline(t, p)
	for want := range uint64(2) {
		evt := testutil.RequireReceive(t, evtCh, waitTimeout, "commit event")
		data, ok := evt.Data.(event.CheckpointCommittedEvent)
		require.True(t, ok)
		assert.Equal(t, want, data.SequenceNumber)
		assert.Equal(t, 1, data.TransactionCount)
	}
}

func TestPipelineWaitsForSource(t *testing.T) {
	chain := testutil.NewChain(t)
	db := newTestDatabase(t)
	p := ingest.New(db, newFetcher(chain), ingest.WithPollInterval(time.Hour))
	stop := runPipeline(t, p)
	waitForWatermark(t, p, 0)
	// The pipeline is now suspended on its poll timer and must still stop
	// promptly
	require.NoError(t, stop())
	assert.Equal(t, uint64(1), p.Next())
}
