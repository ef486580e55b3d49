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

package devnet

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHarnessGetCheckpointTip(t *testing.T) {
	endpoints := DefaultEndpoints()
	h := NewTestHarness(t, endpoints)

	h.WaitForAllNodesReady(60 * time.Second)

	for _, ep := range endpoints {
		tip, err := h.GetCheckpointTip(ep)
		require.NoError(t, err, "failed to get tip from %s", ep.Name)
		require.NotEmpty(t, tip.Digest)
		t.Logf("%s: checkpoint=%d digest=%s", ep.Name, tip.SequenceNumber, tip.Digest)
	}
}

func TestHarnessWaitForCheckpoint(t *testing.T) {
	t.Setenv("DEVNET_CONFIG_YAML", "testdata/devnet.yaml")
	cfg, err := LoadDevNetConfig()
	require.NoError(t, err, "failed to load devnet config")

	h := NewTestHarness(t, cfg.Endpoints)
	h.WaitForAllNodesReady(60 * time.Second)

	tip, err := h.GetCheckpointTip(cfg.Endpoints[0])
	require.NoError(t, err)
	target := tip.SequenceNumber + 5
	h.WaitForCheckpoint(target, cfg.CheckpointTimeout(5))
	h.VerifyCheckpointAgreement(target)
}

func TestLoadDevNetConfig(t *testing.T) {
	t.Setenv("DEVNET_CONFIG_YAML", "testdata/devnet.yaml")
	cfg, err := LoadDevNetConfig()
	require.NoError(t, err)
	require.Equal(t, time.Second, cfg.CheckpointInterval)
	require.Equal(t, DefaultEndpoints(), cfg.Endpoints)
	require.Equal(t, 15*time.Second, cfg.CheckpointTimeout(5))
}
