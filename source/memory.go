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
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/blinklabs-io/suidex/sui"
)

type objectKey struct {
	id      sui.ObjectID
	version uint64
}

// Memory is an in-memory Source. Checkpoints must be added in sequence.
type Memory struct {
	mu          sync.RWMutex
	checkpoints []*sui.Checkpoint
	txs         map[sui.Digest]sui.TransactionBlock
	objects     map[objectKey]sui.ObjectData
	latest      map[sui.ObjectID]uint64
	modules     map[string]*sui.NormalizedModule
	// failures holds a count of calls to fail before succeeding
	failures int
	failErr  error
}

func NewMemory() *Memory {
	return &Memory{
		txs:     make(map[sui.Digest]sui.TransactionBlock),
		objects: make(map[objectKey]sui.ObjectData),
		latest:  make(map[sui.ObjectID]uint64),
		modules: make(map[string]*sui.NormalizedModule),
	}
}

// AddCheckpoint appends a checkpoint along with its transactions and the
// objects they produced
func (m *Memory) AddCheckpoint(
	cp *sui.Checkpoint,
	txs []sui.TransactionBlock,
	objects []sui.ObjectData,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if uint64(cp.SequenceNumber) != uint64(len(m.checkpoints)) {
		return fmt.Errorf(
			"checkpoint %d out of sequence, expected %d",
			cp.SequenceNumber,
			len(m.checkpoints),
		)
	}
	if len(txs) != len(cp.Transactions) {
		return fmt.Errorf(
			"checkpoint %d declares %d transactions, got %d",
			cp.SequenceNumber,
			len(cp.Transactions),
			len(txs),
		)
	}
	for _, tx := range txs {
		m.txs[tx.Digest] = tx
	}
	for _, obj := range objects {
		m.objects[objectKey{obj.ObjectID, uint64(obj.Version)}] = obj
		if uint64(obj.Version) >= m.latest[obj.ObjectID] {
			m.latest[obj.ObjectID] = uint64(obj.Version)
		}
	}
	m.checkpoints = append(m.checkpoints, cp)
	return nil
}

// AddModule registers a normalized module for layout resolution
func (m *Memory) AddModule(mod *sui.NormalizedModule) error {
	addr, err := sui.ParseAddress(mod.Address)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modules[moduleKey(addr, mod.Name)] = mod
	return nil
}

// FailNext makes the next n calls return err
func (m *Memory) FailNext(n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = n
	m.failErr = err
}

// LatestObjectVersion returns the highest known version of an object
func (m *Memory) LatestObjectVersion(id sui.ObjectID) (uint64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ret, ok := m.latest[id]
	return ret, ok
}

func (m *Memory) checkFailure() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failures > 0 {
		m.failures--
		return m.failErr
	}
	return nil
}

func (m *Memory) GetLatestCheckpointSequenceNumber(
	ctx context.Context,
) (uint64, error) {
	if err := m.checkFailure(); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.checkpoints) == 0 {
		return 0, fmt.Errorf("no checkpoints: %w", ErrNotFound)
	}
	return uint64(len(m.checkpoints) - 1), nil
}

func (m *Memory) GetCheckpoint(
	ctx context.Context,
	seq uint64,
) (*sui.Checkpoint, error) {
	if err := m.checkFailure(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if seq >= uint64(len(m.checkpoints)) {
		return nil, fmt.Errorf("checkpoint %d: %w", seq, ErrNotFound)
	}
	tmp := *m.checkpoints[seq]
	tmp.Transactions = slices.Clone(tmp.Transactions)
	return &tmp, nil
}

func (m *Memory) MultiGetTransactionBlocks(
	ctx context.Context,
	digests []sui.Digest,
) ([]sui.TransactionBlock, error) {
	if err := m.checkFailure(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	ret := make([]sui.TransactionBlock, 0, len(digests))
	for _, digest := range digests {
		tx, ok := m.txs[digest]
		if !ok {
			return nil, fmt.Errorf("transaction %s: %w", digest, ErrNotFound)
		}
		ret = append(ret, tx)
	}
	return ret, nil
}

func (m *Memory) TryMultiGetPastObjects(
	ctx context.Context,
	reqs []sui.PastObjectRequest,
) ([]sui.ObjectRead, error) {
	if err := m.checkFailure(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	ret := make([]sui.ObjectRead, 0, len(reqs))
	for _, req := range reqs {
		obj, ok := m.objects[objectKey{req.ObjectID, uint64(req.Version)}]
		if !ok {
			status := sui.ObjectStatusVersionNotFound
			if _, exists := m.latest[req.ObjectID]; !exists {
				status = sui.ObjectStatusObjectNotExists
			}
			ret = append(ret, sui.ObjectRead{Status: status})
			continue
		}
		details, err := json.Marshal(obj)
		if err != nil {
			return nil, err
		}
		ret = append(
			ret,
			sui.ObjectRead{
				Status:  sui.ObjectStatusVersionFound,
				Details: details,
			},
		)
	}
	return ret, nil
}

func (m *Memory) GetNormalizedModule(
	ctx context.Context,
	pkg sui.Address,
	module string,
) (*sui.NormalizedModule, error) {
	if err := m.checkFailure(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	ret, ok := m.modules[moduleKey(pkg, module)]
	if !ok {
		return nil, fmt.Errorf(
			"%w: %s::%s",
			sui.ErrModuleNotFound,
			pkg.Short(),
			module,
		)
	}
	return ret, nil
}

func moduleKey(pkg sui.Address, module string) string {
	return pkg.String() + "::" + module
}
