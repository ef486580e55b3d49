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

package postgres

import (
	"os"
	"testing"

	"github.com/blinklabs-io/suidex/database/models"
	"github.com/blinklabs-io/suidex/database/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestPostgresStore starts a store against the database named by
// POSTGRES_DSN, skipping the test when it isn't set
func newTestPostgresStore(t *testing.T) *MetadataStorePostgres {
	t.Helper()
	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		t.Skip("Skipping postgres integration test: POSTGRES_DSN not set")
	}
	db, err := NewWithOptions(WithDSN(dsn))
	require.NoError(t, err)
	require.NoError(t, db.Start())
	txn := db.Transaction()
	require.NoError(t, db.Reset(txn))
	require.NoError(t, txn.Commit())
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

func TestPostgresDigestOrdering(t *testing.T) {
	db := newTestPostgresStore(t)
	// Mixed case digests must sort by byte value
	digests := []string{"b9", "Zz", "a1", "B2"}
	unit := &models.CheckpointUnit{
		Checkpoint: models.Checkpoint{SequenceNumber: 0, Digest: "cp0"},
	}
	for i, digest := range digests {
		unit.Transactions = append(unit.Transactions, models.Transaction{
			Digest:   digest,
			Sender:   "0xa",
			Position: uint32(i), //nolint:gosec
		})
	}
	txn := db.Transaction()
	require.NoError(t, db.InsertCheckpointUnit(unit, txn))
	require.NoError(t, txn.Commit())

	ret, err := db.QueryTransactions(
		types.TransactionFilter{Kind: types.TransactionFilterAll},
		nil,
		10,
		false,
		nil,
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"B2", "Zz", "a1", "b9"}, ret)
}
