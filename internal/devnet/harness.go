//go:build devnet

// Copyright 2026 Blink Labs Software
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

// Package devnet provides a test harness for running integration tests
// against a local Sui network reachable over JSON-RPC.
package devnet

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/blinklabs-io/suidex/source"
	"github.com/blinklabs-io/suidex/sui"
	"github.com/stretchr/testify/require"
)

// DefaultRPCURL is the JSON-RPC address of a full node started by the
// sui CLI.
const DefaultRPCURL = "http://localhost:9000"

// NodeEndpoint describes a full node that the test harness can query.
type NodeEndpoint struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// DefaultEndpoints returns the single full node of a local network.
func DefaultEndpoints() []NodeEndpoint {
	return []NodeEndpoint{{Name: "fullnode", URL: DefaultRPCURL}}
}

// CheckpointTip holds the newest checkpoint a node reports.
type CheckpointTip struct {
	SequenceNumber uint64
	Digest         sui.Digest
	TimestampMs    uint64
}

// TestHarness manages clients for DevNet nodes and provides helper
// methods for querying checkpoints and verifying agreement.
type TestHarness struct {
	t            *testing.T
	endpoints    []NodeEndpoint
	clients      map[string]*source.RPCClient
	queryTimeout time.Duration
}

// HarnessOptionFunc configures a TestHarness.
type HarnessOptionFunc func(*TestHarness)

// WithQueryTimeout overrides the per-request timeout (default 10s).
func WithQueryTimeout(timeout time.Duration) HarnessOptionFunc {
	return func(h *TestHarness) {
		h.queryTimeout = timeout
	}
}

// NewTestHarness creates a new test harness for the given endpoints.
func NewTestHarness(
	t *testing.T,
	endpoints []NodeEndpoint,
	opts ...HarnessOptionFunc,
) *TestHarness {
	t.Helper()
	h := &TestHarness{
		t:            t,
		endpoints:    endpoints,
		clients:      make(map[string]*source.RPCClient, len(endpoints)),
		queryTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	for _, ep := range endpoints {
		h.clients[ep.Name] = source.NewRPCClient(ep.URL)
	}
	return h
}

// Client returns the RPC client for an endpoint.
func (h *TestHarness) Client(endpoint NodeEndpoint) *source.RPCClient {
	return h.clients[endpoint.Name]
}

// GetCheckpointTip fetches the latest checkpoint from the node.
func (h *TestHarness) GetCheckpointTip(
	endpoint NodeEndpoint,
) (CheckpointTip, error) {
	ctx, cancel := context.WithTimeout(h.t.Context(), h.queryTimeout)
	defer cancel()
	client := h.Client(endpoint)
	seq, err := client.GetLatestCheckpointSequenceNumber(ctx)
	if err != nil {
		return CheckpointTip{}, fmt.Errorf(
			"failed to get latest checkpoint from %s (%s): %w",
			endpoint.Name, endpoint.URL, err,
		)
	}
	cp, err := client.GetCheckpoint(ctx, seq)
	if err != nil {
		return CheckpointTip{}, fmt.Errorf(
			"failed to get checkpoint %d from %s: %w",
			seq, endpoint.Name, err,
		)
	}
	return CheckpointTip{
		SequenceNumber: seq,
		Digest:         cp.Digest,
		TimestampMs:    uint64(cp.TimestampMs),
	}, nil
}

// GetCheckpointDigest returns the digest of a checkpoint on one node.
func (h *TestHarness) GetCheckpointDigest(
	endpoint NodeEndpoint,
	seq uint64,
) (sui.Digest, error) {
	ctx, cancel := context.WithTimeout(h.t.Context(), h.queryTimeout)
	defer cancel()
	cp, err := h.Client(endpoint).GetCheckpoint(ctx, seq)
	if err != nil {
		return "", fmt.Errorf(
			"failed to get checkpoint %d from %s: %w",
			seq, endpoint.Name, err,
		)
	}
	return cp.Digest, nil
}

// WaitForCheckpoint polls all endpoints until at least one reports a
// checkpoint at or beyond the target, or the timeout expires.
func (h *TestHarness) WaitForCheckpoint(
	target uint64,
	timeout time.Duration,
) {
	h.t.Helper()
	require.Eventually(h.t, func() bool {
		for _, ep := range h.endpoints {
			tip, err := h.GetCheckpointTip(ep)
			if err != nil {
				h.t.Logf(
					"WaitForCheckpoint: error querying %s: %v",
					ep.Name, err,
				)
				continue
			}
			if tip.SequenceNumber >= target {
				return true
			}
		}
		return false
	}, timeout, 200*time.Millisecond,
		"no node reached checkpoint %d within %s", target, timeout,
	)
}

// WaitForNodeCheckpoint polls one endpoint until it reports a
// checkpoint at or beyond the target, or the timeout expires.
func (h *TestHarness) WaitForNodeCheckpoint(
	endpoint NodeEndpoint,
	target uint64,
	timeout time.Duration,
) {
	h.t.Helper()
	require.Eventually(h.t, func() bool {
		tip, err := h.GetCheckpointTip(endpoint)
		if err != nil {
			h.t.Logf(
				"WaitForNodeCheckpoint: error querying %s: %v",
				endpoint.Name, err,
			)
			return false
		}
		h.t.Logf(
			"WaitForNodeCheckpoint: %s at checkpoint %d",
			endpoint.Name, tip.SequenceNumber,
		)
		return tip.SequenceNumber >= target
	}, timeout, 200*time.Millisecond,
		"%s did not reach checkpoint %d within %s",
		endpoint.Name, target, timeout,
	)
}

// VerifyCheckpointAgreement checks that every node reports the same
// digest for a checkpoint they all have.
func (h *TestHarness) VerifyCheckpointAgreement(seq uint64) {
	h.t.Helper()
	var (
		first     sui.Digest
		firstName string
	)
	for _, ep := range h.endpoints {
		digest, err := h.GetCheckpointDigest(ep, seq)
		require.NoError(h.t, err)
		if firstName == "" {
			first, firstName = digest, ep.Name
			continue
		}
		require.Equal(h.t, first, digest,
			"nodes %s and %s disagree on checkpoint %d",
			firstName, ep.Name, seq,
		)
	}
}

// WaitForAllNodesReady polls all endpoints until each one answers.
func (h *TestHarness) WaitForAllNodesReady(timeout time.Duration) {
	h.t.Helper()
	for _, ep := range h.endpoints {
		require.Eventually(h.t, func() bool {
			_, err := h.GetCheckpointTip(ep)
			if err != nil {
				h.t.Logf(
					"WaitForAllNodesReady: %s not ready: %v",
					ep.Name, err,
				)
				return false
			}
			return true
		}, timeout, 500*time.Millisecond,
			"%s did not become ready within %s", ep.Name, timeout,
		)
	}
}
