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

package scenarios

import (
	"context"
	"testing"
	"time"

	"github.com/blinklabs-io/suidex"
	"github.com/blinklabs-io/suidex/internal/devnet"
	"github.com/blinklabs-io/suidex/liveness"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadConfig(t *testing.T) *devnet.DevNetConfig {
	t.Helper()
	cfg, err := devnet.LoadDevNetConfig()
	require.NoError(t, err, "failed to load devnet config")
	return cfg
}

// TestCheckpointGrowth verifies the network keeps producing checkpoints
// at roughly the configured interval.
func TestCheckpointGrowth(t *testing.T) {
	cfg := loadConfig(t)
	h := devnet.NewTestHarness(t, cfg.Endpoints)
	ep := cfg.Endpoints[0]
	h.WaitForAllNodesReady(60 * time.Second)

	start, err := h.GetCheckpointTip(ep)
	require.NoError(t, err)

	const window = 10
	h.WaitForNodeCheckpoint(ep, start.SequenceNumber+window, cfg.CheckpointTimeout(window))

	end, err := h.GetCheckpointTip(ep)
	require.NoError(t, err)
	require.Greater(t, end.TimestampMs, start.TimestampMs)
	elapsed := time.Duration(end.TimestampMs-start.TimestampMs) * time.Millisecond
	t.Logf(
		"checkpoint growth: %d checkpoints in %s",
		end.SequenceNumber-start.SequenceNumber, elapsed,
	)
}

// TestIndexerFollowsNode runs an in-memory indexer against the node from
// a recent checkpoint and compares what it stored with the node.
func TestIndexerFollowsNode(t *testing.T) {
	cfg := loadConfig(t)
	h := devnet.NewTestHarness(t, cfg.Endpoints)
	ep := cfg.Endpoints[0]
	h.WaitForAllNodesReady(60 * time.Second)

	tip, err := h.GetCheckpointTip(ep)
	require.NoError(t, err)

	idxCfg := suidex.NewConfig(
		suidex.WithRPCURL(ep.URL),
		suidex.WithRunMode(suidex.RunModeIngest),
		suidex.WithStartCheckpoint(tip.SequenceNumber),
		suidex.WithPollInterval(cfg.CheckpointInterval/2),
	)
	idx, err := suidex.New(idxCfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- idx.Run(ctx) }()
	require.NoError(t, idx.WaitReady(ctx))

	const ahead = 5
	target := tip.SequenceNumber + ahead
	waitCtx, waitCancel := context.WithTimeout(ctx, cfg.CheckpointTimeout(ahead))
	defer waitCancel()
	require.NoError(t, liveness.WaitForCheckpoint(
		waitCtx, idx.Engine(), target, 200*time.Millisecond,
	))

	for seq := tip.SequenceNumber; seq <= target; seq++ {
		stored, err := idx.Engine().GetCheckpoint(ctx, seq)
		require.NoError(t, err)
		digest, err := h.GetCheckpointDigest(ep, seq)
		require.NoError(t, err)
		assert.Equal(t, digest, stored.Digest, "checkpoint %d", seq)
	}

	require.NoError(t, idx.Stop())
	require.NoError(t, <-errCh)
}
