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

// Package source provides access to a full node serving finalized
// checkpoints
package source

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/blinklabs-io/suidex/sui"
)

var ErrNotFound = errors.New("not found")

// Source is the read interface of a full node used by the indexer
type Source interface {
	GetLatestCheckpointSequenceNumber(ctx context.Context) (uint64, error)
	// GetCheckpoint returns an error wrapping ErrNotFound when the
	// checkpoint does not exist yet
	GetCheckpoint(ctx context.Context, seq uint64) (*sui.Checkpoint, error)
	// MultiGetTransactionBlocks returns the blocks in request order with
	// input, raw input, effects and events populated
	MultiGetTransactionBlocks(
		ctx context.Context,
		digests []sui.Digest,
	) ([]sui.TransactionBlock, error)
	// TryMultiGetPastObjects returns one result per request, in request
	// order
	TryMultiGetPastObjects(
		ctx context.Context,
		reqs []sui.PastObjectRequest,
	) ([]sui.ObjectRead, error)
	GetNormalizedModule(
		ctx context.Context,
		pkg sui.Address,
		module string,
	) (*sui.NormalizedModule, error)
}

// RPCError is an error returned by the node in a JSON-RPC response
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error: %s (code: %d)", e.Message, e.Code)
}

const (
	rpcCodeInvalidParams = -32602
	rpcCodeInternal      = -32603
	rpcCodeServerError   = -32000
)

// HTTPStatusError is returned for non-200 responses
type HTTPStatusError struct {
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d", e.StatusCode)
}

// IsTransient reports whether an error from a Source is worth retrying
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= http.StatusInternalServerError ||
			statusErr.StatusCode == http.StatusTooManyRequests
	}
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr.Code == rpcCodeInternal || rpcErr.Code == rpcCodeServerError
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
