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

package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/blinklabs-io/suidex/sui"
)

const DefaultRequestTimeout = 30 * time.Second

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
	ID      uint64 `json:"id"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error,omitempty"`
	ID      uint64          `json:"id"`
}

// RPCClient is a Source backed by a full node JSON-RPC endpoint
type RPCClient struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
	nextID     atomic.Uint64
}

type RPCClientOption func(*RPCClient)

func WithHTTPClient(client *http.Client) RPCClientOption {
	return func(c *RPCClient) {
		c.httpClient = client
	}
}

func WithLogger(logger *slog.Logger) RPCClientOption {
	return func(c *RPCClient) {
		c.logger = logger
	}
}

func NewRPCClient(url string, opts ...RPCClientOption) *RPCClient {
	c := &RPCClient{
		url: url,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: DefaultRequestTimeout}
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return c
}

func (c *RPCClient) GetLatestCheckpointSequenceNumber(
	ctx context.Context,
) (uint64, error) {
	var ret sui.Uint64
	if err := c.call(ctx, "sui_getLatestCheckpointSequenceNumber", nil, &ret); err != nil {
		return 0, err
	}
	return uint64(ret), nil
}

func (c *RPCClient) GetCheckpoint(
	ctx context.Context,
	seq uint64,
) (*sui.Checkpoint, error) {
	var ret sui.Checkpoint
	err := c.call(
		ctx,
		"sui_getCheckpoint",
		[]any{strconv.FormatUint(seq, 10)},
		&ret,
	)
	if err != nil {
		if isInvalidParams(err) {
			return nil, fmt.Errorf("checkpoint %d: %w", seq, ErrNotFound)
		}
		return nil, err
	}
	return &ret, nil
}

var transactionBlockOptions = map[string]bool{
	"showInput":    true,
	"showRawInput": true,
	"showEffects":  true,
	"showEvents":   true,
}

func (c *RPCClient) MultiGetTransactionBlocks(
	ctx context.Context,
	digests []sui.Digest,
) ([]sui.TransactionBlock, error) {
	if len(digests) == 0 {
		return nil, nil
	}
	var ret []sui.TransactionBlock
	err := c.call(
		ctx,
		"sui_multiGetTransactionBlocks",
		[]any{digests, transactionBlockOptions},
		&ret,
	)
	if err != nil {
		return nil, err
	}
	if len(ret) != len(digests) {
		return nil, fmt.Errorf(
			"requested %d transaction blocks, got %d",
			len(digests),
			len(ret),
		)
	}
	return ret, nil
}

var objectDataOptions = map[string]bool{
	"showType":                true,
	"showOwner":               true,
	"showPreviousTransaction": true,
	"showBcs":                 true,
	"showStorageRebate":       true,
}

func (c *RPCClient) TryMultiGetPastObjects(
	ctx context.Context,
	reqs []sui.PastObjectRequest,
) ([]sui.ObjectRead, error) {
	if len(reqs) == 0 {
		return nil, nil
	}
	var ret []sui.ObjectRead
	err := c.call(
		ctx,
		"sui_tryMultiGetPastObjects",
		[]any{reqs, objectDataOptions},
		&ret,
	)
	if err != nil {
		return nil, err
	}
	if len(ret) != len(reqs) {
		return nil, fmt.Errorf(
			"requested %d objects, got %d",
			len(reqs),
			len(ret),
		)
	}
	return ret, nil
}

func (c *RPCClient) GetNormalizedModule(
	ctx context.Context,
	pkg sui.Address,
	module string,
) (*sui.NormalizedModule, error) {
	var ret sui.NormalizedModule
	err := c.call(
		ctx,
		"sui_getNormalizedMoveModule",
		[]any{pkg.String(), module},
		&ret,
	)
	if err != nil {
		if isInvalidParams(err) {
			return nil, fmt.Errorf(
				"%w: %s::%s: %w",
				sui.ErrModuleNotFound,
				pkg.Short(),
				module,
				err,
			)
		}
		return nil, err
	}
	return &ret, nil
}

func isInvalidParams(err error) bool {
	var rpcErr *RPCError
	return errors.As(err, &rpcErr) && rpcErr.Code == rpcCodeInvalidParams
}

func (c *RPCClient) call(
	ctx context.Context,
	method string,
	params []any,
	result any,
) error {
	if params == nil {
		params = []any{}
	}
	reqBody := rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      c.nextID.Add(1),
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.url,
		bytes.NewReader(payload),
	)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug(
			"request failed",
			"component", "source",
			"method", method,
			"duration", time.Since(start),
			"error", err,
		)
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf(
			"%s: %w",
			method,
			&HTTPStatusError{StatusCode: resp.StatusCode},
		)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read body: %w", method, err)
	}
	var rpcResp rpcResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return fmt.Errorf("%s: parse JSON response: %w", method, err)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("%s: %w", method, rpcResp.Error)
	}
	if err := json.Unmarshal(rpcResp.Result, result); err != nil {
		return fmt.Errorf("%s: decode result: %w", method, err)
	}
	return nil
}
