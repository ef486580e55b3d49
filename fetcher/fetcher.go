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

// Package fetcher retrieves complete checkpoints from a source node
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/blinklabs-io/suidex/source"
	"github.com/blinklabs-io/suidex/sui"
	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultBatchSize       = 50
	DefaultConcurrency     = 4
	DefaultMaxElapsedTime  = 2 * time.Minute
	DefaultInitialInterval = 250 * time.Millisecond
)

// ErrNotYetAvailable means the requested checkpoint is beyond the source's
// latest checkpoint. Callers should wait and try again.
var ErrNotYetAvailable = errors.New("checkpoint not yet available")

// FetchError wraps a transient failure that persisted after retries
type FetchError struct {
	Sequence uint64
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch checkpoint %d: %s", e.Sequence, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// InvalidDataError reports a source response that doesn't match what was
// requested. Retrying won't help.
type InvalidDataError struct {
	Sequence uint64
	Reason   string
}

func (e *InvalidDataError) Error() string {
	return fmt.Sprintf("invalid data for checkpoint %d: %s", e.Sequence, e.Reason)
}

func invalidDataf(format string, args ...any) error {
	return &InvalidDataError{Reason: fmt.Sprintf(format, args...)}
}

// CheckpointData is a checkpoint with the transaction blocks it contains,
// in checkpoint order, and the contents of the objects they wrote
type CheckpointData struct {
	Checkpoint   *sui.Checkpoint
	Transactions []sui.TransactionBlock
	Objects      []sui.ObjectData
}

type Fetcher struct {
	source          source.Source
	logger          *slog.Logger
	batchSize       int
	concurrency     int
	maxElapsedTime  time.Duration
	initialInterval time.Duration
	metrics         *fetcherMetrics
}

type FetcherOption func(*Fetcher)

func WithLogger(logger *slog.Logger) FetcherOption {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// WithBatchSize sets the number of transactions or objects per request
func WithBatchSize(batchSize int) FetcherOption {
	return func(f *Fetcher) {
		f.batchSize = batchSize
	}
}

// WithConcurrency sets the number of concurrent batch requests
func WithConcurrency(concurrency int) FetcherOption {
	return func(f *Fetcher) {
		f.concurrency = concurrency
	}
}

// WithRetry sets the initial retry interval and the total time spent
// retrying a single request
func WithRetry(initialInterval, maxElapsedTime time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.initialInterval = initialInterval
		f.maxElapsedTime = maxElapsedTime
	}
}

func WithPromRegistry(registry prometheus.Registerer) FetcherOption {
	return func(f *Fetcher) {
		f.metrics.register(registry)
	}
}

func New(src source.Source, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		source:          src,
		batchSize:       DefaultBatchSize,
		concurrency:     DefaultConcurrency,
		maxElapsedTime:  DefaultMaxElapsedTime,
		initialInterval: DefaultInitialInterval,
		metrics:         &fetcherMetrics{},
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if f.batchSize <= 0 {
		f.batchSize = DefaultBatchSize
	}
	if f.concurrency <= 0 {
		f.concurrency = DefaultConcurrency
	}
	return f
}

// Latest returns the sequence number of the newest checkpoint at the source
func (f *Fetcher) Latest(ctx context.Context) (uint64, error) {
	ret, err := retry(ctx, f, "latest", func() (uint64, error) {
		return f.source.GetLatestCheckpointSequenceNumber(ctx)
	})
	if err != nil {
		if errors.Is(err, source.ErrNotFound) {
			return 0, ErrNotYetAvailable
		}
		return 0, err
	}
	return ret, nil
}

// Fetch retrieves checkpoint seq with all of its transactions and written
// objects. It has no side effects and may be called repeatedly.
func (f *Fetcher) Fetch(ctx context.Context, seq uint64) (*CheckpointData, error) {
	start := time.Now()
	latest, err := f.Latest(ctx)
	if err != nil {
		return nil, f.wrapError(seq, err)
	}
	if seq > latest {
		return nil, ErrNotYetAvailable
	}
	cp, err := retry(ctx, f, "checkpoint", func() (*sui.Checkpoint, error) {
		return f.source.GetCheckpoint(ctx, seq)
	})
	if err != nil {
		if errors.Is(err, source.ErrNotFound) {
			return nil, ErrNotYetAvailable
		}
		return nil, f.wrapError(seq, err)
	}
	txs, err := f.fetchTransactions(ctx, cp.Transactions)
	if err != nil {
		return nil, f.wrapError(seq, err)
	}
	objects, err := f.fetchObjects(ctx, txs)
	if err != nil {
		return nil, f.wrapError(seq, err)
	}
	f.metrics.observeFetch(time.Since(start))
	f.logger.Debug(
		"fetched checkpoint",
		"component", "fetcher",
		"sequence", seq,
		"transactions", len(txs),
		"objects", len(objects),
	)
	return &CheckpointData{
		Checkpoint:   cp,
		Transactions: txs,
		Objects:      objects,
	}, nil
}

func (f *Fetcher) wrapError(seq uint64, err error) error {
	if errors.Is(err, ErrNotYetAvailable) ||
		errors.Is(err, context.Canceled) {
		return err
	}
	var invalid *InvalidDataError
	if errors.As(err, &invalid) {
		invalid.Sequence = seq
		return invalid
	}
	return &FetchError{Sequence: seq, Err: err}
}

// fetchTransactions loads transaction blocks in batches, concurrently, and
// returns them in the order given
func (f *Fetcher) fetchTransactions(
	ctx context.Context,
	digests []sui.Digest,
) ([]sui.TransactionBlock, error) {
	ret := make([]sui.TransactionBlock, len(digests))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)
	for start := 0; start < len(digests); start += f.batchSize {
		end := min(start+f.batchSize, len(digests))
		g.Go(func() error {
			batch := digests[start:end]
			txs, err := retry(gctx, f, "transactions", func() ([]sui.TransactionBlock, error) {
				return f.source.MultiGetTransactionBlocks(gctx, batch)
			})
			if err != nil {
				return err
			}
			if len(txs) != len(batch) {
				return invalidDataf(
					"requested %d transactions, got %d",
					len(batch),
					len(txs),
				)
			}
			for i, tx := range txs {
				if tx.Digest != batch[i] {
					return invalidDataf(
						"transaction %d: expected %s, got %s",
						start+i,
						batch[i],
						tx.Digest,
					)
				}
				if err := tx.Validate(); err != nil {
					return invalidDataf("transaction %s: %s", tx.Digest, err)
				}
				ret[start+i] = tx
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ret, nil
}

// fetchObjects loads the contents of every object written by the
// transactions at the version they were written
func (f *Fetcher) fetchObjects(
	ctx context.Context,
	txs []sui.TransactionBlock,
) ([]sui.ObjectData, error) {
	var reqs []sui.PastObjectRequest
	for _, tx := range txs {
		for _, ref := range tx.LiveObjects() {
			reqs = append(reqs, sui.PastObjectRequest{
				ObjectID: ref.Reference.ObjectID,
				Version:  ref.Reference.Version,
			})
		}
	}
	reads := make([]*sui.ObjectData, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)
	for start := 0; start < len(reqs); start += f.batchSize {
		end := min(start+f.batchSize, len(reqs))
		g.Go(func() error {
			batch := reqs[start:end]
			results, err := retry(gctx, f, "objects", func() ([]sui.ObjectRead, error) {
				return f.source.TryMultiGetPastObjects(gctx, batch)
			})
			if err != nil {
				return err
			}
			if len(results) != len(batch) {
				return invalidDataf(
					"requested %d objects, got %d",
					len(batch),
					len(results),
				)
			}
			for i, result := range results {
				obj, err := result.Object()
				if err != nil {
					// Pruned or otherwise unavailable versions are indexed
					// from the effects alone
					f.logger.Debug(
						"object contents unavailable",
						"component", "fetcher",
						"object_id", batch[i].ObjectID,
						"version", batch[i].Version,
						"status", result.Status,
					)
					continue
				}
				reads[start+i] = obj
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	ret := make([]sui.ObjectData, 0, len(reads))
	for _, obj := range reads {
		if obj != nil {
			ret = append(ret, *obj)
		}
	}
	return ret, nil
}

// retry runs op with exponential backoff while it fails with a transient
// error
func retry[T any](
	ctx context.Context,
	f *Fetcher,
	op string,
	fn func() (T, error),
) (T, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = f.initialInterval
	bo.MaxElapsedTime = f.maxElapsedTime
	return backoff.RetryNotifyWithData(
		func() (T, error) {
			ret, err := fn()
			if err != nil && !source.IsTransient(err) {
				return ret, backoff.Permanent(err)
			}
			return ret, err
		},
		backoff.WithContext(bo, ctx),
		func(err error, next time.Duration) {
			f.metrics.incRetry()
			f.logger.Warn(
				"source request failed, retrying",
				"component", "fetcher",
				"operation", op,
				"retry_in", next,
				"error", err,
			)
		},
	)
}
