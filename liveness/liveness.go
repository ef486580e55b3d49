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

// Package liveness provides helpers that wait for the indexer to catch up
// with something a caller expects to exist
package liveness

import (
	"context"
	"errors"
	"time"

	"github.com/blinklabs-io/suidex/database"
	"github.com/cenkalti/backoff/v4"
)

const DefaultInterval = 100 * time.Millisecond

var errNotReady = errors.New("not ready")

// CheckpointReader reports the watermark
type CheckpointReader interface {
	GetLatestCheckpointSequenceNumber(ctx context.Context) (uint64, bool, error)
}

// TransactionReader looks up a transaction by digest
type TransactionReader[T any] interface {
	GetTransaction(ctx context.Context, digest string) (T, error)
}

// WaitUntil calls predicate every interval until it returns true. It stops
// early when predicate returns an error or ctx is done, and returns that
// error.
func WaitUntil(
	ctx context.Context,
	interval time.Duration,
	predicate func(context.Context) (bool, error),
) error {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return backoff.Retry(
		func() error {
			ok, err := predicate(ctx)
			if err != nil {
				return backoff.Permanent(err)
			}
			if !ok {
				return errNotReady
			}
			return nil
		},
		backoff.WithContext(backoff.NewConstantBackOff(interval), ctx),
	)
}

// WaitForCheckpoint waits until the watermark is at or past seq
func WaitForCheckpoint(
	ctx context.Context,
	reader CheckpointReader,
	seq uint64,
	interval time.Duration,
) error {
	return WaitUntil(ctx, interval, func(ctx context.Context) (bool, error) {
		latest, ok, err := reader.GetLatestCheckpointSequenceNumber(ctx)
		if err != nil {
			return false, err
		}
		return ok && latest >= seq, nil
	})
}

// WaitForNextCheckpoint waits until the watermark moves past its value at
// the time of the call, and returns the new watermark
func WaitForNextCheckpoint(
	ctx context.Context,
	reader CheckpointReader,
	interval time.Duration,
) (uint64, error) {
	start, started, err := reader.GetLatestCheckpointSequenceNumber(ctx)
	if err != nil {
		return 0, err
	}
	var ret uint64
	err = WaitUntil(ctx, interval, func(ctx context.Context) (bool, error) {
		latest, ok, err := reader.GetLatestCheckpointSequenceNumber(ctx)
		if err != nil || !ok {
			return false, err
		}
		ret = latest
		return !started || latest > start, nil
	})
	return ret, err
}

// WaitForTransaction waits until a transaction is indexed and returns it.
// A transaction that isn't found yet is waited for, other errors are
// returned.
func WaitForTransaction[T any](
	ctx context.Context,
	reader TransactionReader[T],
	digest string,
	interval time.Duration,
) (T, error) {
	var ret T
	err := WaitUntil(ctx, interval, func(ctx context.Context) (bool, error) {
		tx, err := reader.GetTransaction(ctx, digest)
		if err != nil {
			if errors.Is(err, database.ErrTransactionNotFound) {
				return false, nil
			}
			return false, err
		}
		ret = tx
		return true, nil
	})
	return ret, err
}
