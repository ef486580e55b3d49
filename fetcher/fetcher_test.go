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

package fetcher_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/blinklabs-io/suidex/fetcher"
	"github.com/blinklabs-io/suidex/internal/test/testutil"
	"github.com/blinklabs-io/suidex/source"
	"github.com/blinklabs-io/suidex/sui"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry() fetcher.FetcherOption {
	return fetcher.WithRetry(time.Millisecond, 500*time.Millisecond)
}

func TestFetchGenesis(t *testing.T) {
	chain := testutil.NewChain(t)
	f := fetcher.New(chain.Source, fastRetry())

	data, err := f.Fetch(t.Context(), 0)
	require.NoError(t, err)
	assert.Equal(t, sui.Uint64(0), data.Checkpoint.SequenceNumber)
	require.Len(t, data.Transactions, 1)
	assert.Equal(t, data.Checkpoint.Transactions[0], data.Transactions[0].Digest)
	assert.Len(
		t,
		data.Objects,
		testutil.DefaultAccounts*testutil.CoinsPerAccount,
	)
	for _, obj := range data.Objects {
		assert.NotEmpty(t, obj.Contents())
	}
}

func TestFetchNotYetAvailable(t *testing.T) {
	chain := testutil.NewChain(t)
	f := fetcher.New(chain.Source, fastRetry())

	_, err := f.Fetch(t.Context(), chain.LatestSequence()+1)
	require.ErrorIs(t, err, fetcher.ErrNotYetAvailable)

	var fetchErr *fetcher.FetchError
	assert.False(t, errors.As(err, &fetchErr))

	empty := fetcher.New(source.NewMemory(), fastRetry())
	_, err = empty.Fetch(t.Context(), 0)
	require.ErrorIs(t, err, fetcher.ErrNotYetAvailable)
}

func TestFetchRetriesTransientErrors(t *testing.T) {
	chain := testutil.NewChain(t)
	registry := prometheus.NewRegistry()
	f := fetcher.New(
		chain.Source,
		fastRetry(),
		fetcher.WithPromRegistry(registry),
	)

	chain.Source.FailNext(
		3,
		&source.HTTPStatusError{StatusCode: http.StatusServiceUnavailable},
	)
	data, err := f.Fetch(t.Context(), 0)
	require.NoError(t, err)
	assert.Len(t, data.Transactions, 1)

	families, err := registry.Gather()
	require.NoError(t, err)
	var retries float64
	for _, family := range families {
		if family.GetName() == "suidex_fetch_retries_total" {
			retries = family.GetMetric()[0].GetCounter().GetValue()
		}
	}
	assert.InDelta(t, 3, retries, 0)
}

func TestFetchPermanentError(t *testing.T) {
	chain := testutil.NewChain(t)
	f := fetcher.New(chain.Source, fastRetry())

	errBroken := errors.New("broken node")
	chain.Source.FailNext(1, errBroken)
	_, err := f.Fetch(t.Context(), 0)
	require.ErrorIs(t, err, errBroken)
	var fetchErr *fetcher.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, uint64(0), fetchErr.Sequence)
}

func TestFetchRetriesExhausted(t *testing.T) {
	chain := testutil.NewChain(t)
	f := fetcher.New(
		chain.Source,
		fetcher.WithRetry(time.Millisecond, 20*time.Millisecond),
	)
	chain.Source.FailNext(
		1_000_000,
		&source.HTTPStatusError{StatusCode: http.StatusBadGateway},
	)
	_, err := f.Fetch(t.Context(), 0)
	var fetchErr *fetcher.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.True(t, source.IsTransient(err))
}

func TestFetchCanceled(t *testing.T) {
	chain := testutil.NewChain(t)
	f := fetcher.New(chain.Source, fastRetry())
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	chain.Source.FailNext(
		1_000_000,
		&source.HTTPStatusError{StatusCode: http.StatusServiceUnavailable},
	)
	_, err := f.Fetch(ctx, 0)
	require.Error(t, err)
	var fetchErr *fetcher.FetchError
	assert.False(t, errors.As(err, &fetchErr))
}

func TestFetchBatchesPreserveOrder(t *testing.T) {
	chain := testutil.NewChain(t)
	sender := chain.Accounts[0]
	chain.BeginBatch()
	var expected []sui.Digest
	for range 5 {
		_, digest := chain.MintNFT(sender)
		expected = append(expected, digest)
	}
	chain.EndBatch()

	f := fetcher.New(
		chain.Source,
		fastRetry(),
		fetcher.WithBatchSize(2),
		fetcher.WithConcurrency(3),
	)
	data, err := f.Fetch(t.Context(), chain.LatestSequence())
	require.NoError(t, err)
	require.Len(t, data.Transactions, len(expected))
	for i, tx := range data.Transactions {
		assert.Equal(t, expected[i], tx.Digest)
	}
	assert.Equal(t, expected, data.Checkpoint.Transactions)
	// Each mint writes the NFT and the gas coin
	assert.Len(t, data.Objects, 2*len(expected))
}

func TestFetchEmptyCheckpoint(t *testing.T) {
	chain := testutil.NewChain(t)
	chain.EmptyCheckpoint()
	f := fetcher.New(chain.Source, fastRetry())
	data, err := f.Fetch(t.Context(), 1)
	require.NoError(t, err)
	assert.Empty(t, data.Transactions)
	assert.Empty(t, data.Objects)
	assert.Equal(t, sui.Digest(testutil.Digest("checkpoint-0")), data.Checkpoint.PrevDigest())
}

func TestLatest(t *testing.T) {
	chain := testutil.NewChain(t)
	f := fetcher.New(chain.Source, fastRetry())
	latest, err := f.Latest(t.Context())
	require.NoError(t, err)
	assert.Equal(t, chain.LatestSequence(), latest)
}

// shortSource drops the last transaction block of every response
type shortSource struct {
	source.Source
}

func (s shortSource) MultiGetTransactionBlocks(
	ctx context.Context,
	digests []sui.Digest,
) ([]sui.TransactionBlock, error) {
	txs, err := s.Source.MultiGetTransactionBlocks(ctx, digests)
	if len(txs) > 0 {
		txs = txs[:len(txs)-1]
	}
	return txs, err
}

func TestFetchInvalidData(t *testing.T) {
	chain := testutil.NewChain(t)
	f := fetcher.New(shortSource{Source: chain.Source}, fastRetry())
	_, err := f.Fetch(t.Context(), 0)
	var invalid *fetcher.InvalidDataError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, uint64(0), invalid.Sequence)
	assert.Contains(t, invalid.Reason, "requested 1 transactions, got 0")
	// Not retried as a transient failure
	var fetchErr *fetcher.FetchError
	assert.False(t, errors.As(err, &fetchErr))
}
