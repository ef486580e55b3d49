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

package badger

import (
	"bytes"
	"testing"

	"github.com/blinklabs-io/suidex/database/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryGetSet(t *testing.T) {
	reg := prometheus.NewRegistry()
	db, err := New(WithPromRegistry(reg))
	require.NoError(t, err)
	defer db.Close()

	txn := db.NewTransaction(true)
	require.NoError(t, db.Set(txn, []byte("key"), []byte("value")))
	require.NoError(t, txn.Commit())
	// Finished transactions can't be used again
	_, err = db.Get(txn, []byte("key"))
	require.Error(t, err)

	txn = db.NewTransaction(false)
	defer txn.Rollback() //nolint:errcheck
	val, err := db.Get(txn, []byte("key"))
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), val)
	_, err = db.Get(txn, []byte("missing"))
	require.ErrorIs(t, err, types.ErrBlobKeyNotFound)

	_, err = db.Get(nil, []byte("key"))
	require.ErrorIs(t, err, types.ErrNilTxn)

	families, err := reg.Gather()
	require.NoError(t, err)
	ops := map[string]float64{}
	for _, family := range families {
		if family.GetName() != badgerMetricNamePrefix+"ops_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			ops[metric.GetLabel()[0].GetValue()] = metric.GetCounter().GetValue()
		}
	}
	assert.InDelta(t, 1, ops["set"], 0)
	assert.InDelta(t, 1, ops["get"], 0)
}

func TestRollbackDiscardsWrites(t *testing.T) {
	db, err := New()
	require.NoError(t, err)
	defer db.Close()

	txn := db.NewTransaction(true)
	require.NoError(t, db.Set(txn, []byte("key"), []byte("value")))
	require.NoError(t, txn.Rollback())

	txn = db.NewTransaction(false)
	defer txn.Rollback() //nolint:errcheck
	_, err = db.Get(txn, []byte("key"))
	require.ErrorIs(t, err, types.ErrBlobKeyNotFound)
}

func TestCommitTimestampPersists(t *testing.T) {
	dataDir := t.TempDir()
	db, err := New(WithDataDir(dataDir), WithGc(false))
	require.NoError(t, err)
	ts, err := db.GetCommitTimestamp()
	require.NoError(t, err)
	assert.Zero(t, ts)

	txn := db.NewTransaction(true)
	require.NoError(t, db.SetCommitTimestamp(1700000000123, txn))
	require.NoError(t, txn.Commit())
	require.NoError(t, db.Close())
	require.NoError(t, db.Close())

	db, err = New(WithDataDir(dataDir), WithGc(false))
	require.NoError(t, err)
	defer db.Close()
	ts, err = db.GetCommitTimestamp()
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000123), ts)
	require.ErrorIs(t, db.SetCommitTimestamp(1, nil), types.ErrNilTxn)
}

func TestLargeValues(t *testing.T) {
	// Transaction and effects JSON is often several KiB
	large := bytes.Repeat([]byte("x"), 64<<10)
	for name, opts := range map[string][]BlobStoreBadgerOptionFunc{
		"memory": nil,
		"disk":   {WithDataDir(t.TempDir()), WithGc(false)},
	} {
		t.Run(name, func(t *testing.T) {
			db, err := New(opts...)
			require.NoError(t, err)
			defer db.Close()

			txn := db.NewTransaction(true)
			require.NoError(t, db.Set(txn, []byte("tx"), large))
			require.NoError(t, txn.Commit())

			txn = db.NewTransaction(false)
			defer txn.Rollback() //nolint:errcheck
			val, err := db.Get(txn, []byte("tx"))
			require.NoError(t, err)
			assert.Equal(t, large, val)
		})
	}
}
