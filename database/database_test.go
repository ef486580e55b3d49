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

package database_test

import (
	"fmt"
	"testing"

	"github.com/blinklabs-io/suidex/database"
	"github.com/blinklabs-io/suidex/database/models"
	"github.com/blinklabs-io/suidex/database/plugin"
	"github.com/blinklabs-io/suidex/database/types"
	"github.com/blinklabs-io/suidex/internal/test/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testSender    = testutil.Address("sender").String()
	testRecipient = testutil.Address("recipient").String()
	testObject    = testutil.Address("object").String()
	testPackage   = testutil.FrameworkPackage.String()
)

func newTestDatabase(t *testing.T) *database.Database {
	t.Helper()
	db, err := database.New(&database.Config{
		BlobCacheSize: 1 << 20,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

// openDataDir opens a persistent database and puts the plugins back to
// in-memory mode afterwards
func openDataDir(t *testing.T, dataDir string) (*database.Database, error) {
	t.Helper()
	t.Cleanup(func() {
		_ = plugin.SetPluginOption(plugin.PluginTypeBlob, database.DefaultBlobPlugin, "data-dir", "")
		_ = plugin.SetPluginOption(plugin.PluginTypeMetadata, database.DefaultMetadataPlugin, "data-dir", "")
	})
	return database.New(&database.Config{DataDir: dataDir})
}

func testUnit(seq uint64, labels ...string) *database.CheckpointUnit {
	unit := &database.CheckpointUnit{
		Checkpoint: models.Checkpoint{
			SequenceNumber: seq,
			Digest:         testutil.Digest(fmt.Sprintf("cp-%d", seq)).String(),
			TimestampMs:    1_000 * seq,
		},
		Addresses: []models.Address{
			{Address: testSender, FirstSeenCheckpoint: seq},
			{Address: testRecipient, FirstSeenCheckpoint: seq},
		},
	}
	for _, label := range labels {
		digest := testutil.Digest(label).String()
		unit.Transactions = append(unit.Transactions, database.TransactionRecord{
			Transaction: models.Transaction{
				Digest: digest,
				Sender: testSender,
				Status: "success",
			},
			Recipients:     []string{testRecipient},
			InputObjects:   []string{testObject},
			ChangedObjects: []string{testObject},
			MoveCalls: []models.MoveCall{
				{Package: testPackage, Module: "devnet_nft", Function: "mint"},
			},
			Events: []models.Event{
				{EventSeq: 0, PackageID: testPackage, TransactionModule: "devnet_nft", Sender: testSender, Type: testutil.MintEventType},
				{EventSeq: 1, PackageID: testPackage, TransactionModule: "devnet_nft", Sender: testSender, Type: testutil.BurnEventType},
			},
			RawTransaction: []byte("raw-" + label),
			Effects:        []byte("effects-" + label),
		})
		unit.Objects = append(unit.Objects, database.ObjectRecord{
			Object: models.Object{
				ObjectID:            testObject,
				Version:             seq + 1,
				Type:                testutil.NFTType,
				Owner:               testRecipient,
				OwnerKind:           "AddressOwner",
				PreviousTransaction: digest,
				CheckpointSequence:  seq,
			},
			Contents: []byte(fmt.Sprintf("contents-%d", seq)),
		})
	}
	return unit
}

func TestInsertCheckpointUnit(t *testing.T) {
	db := newTestDatabase(t)
	require.NoError(t, db.InsertCheckpointUnit(testUnit(0, "tx-a", "tx-b")))

	cp, err := db.GetCheckpoint(0, nil)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), cp.Checkpoint.TransactionCount)
	assert.Equal(
		t,
		[]string{testutil.Digest("tx-a").String(), testutil.Digest("tx-b").String()},
		cp.Transactions,
	)

	seq, ok, err := db.GetLatestCheckpointSequenceNumber(nil)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(0), seq)

	tx, err := db.GetTransaction(testutil.Digest("tx-b").String(), nil)
	require.NoError(t, err)
	assert.Equal(t, testSender, tx.Transaction.Sender)
	assert.Equal(t, uint32(1), tx.Transaction.Position)
	assert.Equal(t, uint32(2), tx.Transaction.EventCount)
	assert.Equal(t, []string{testRecipient}, tx.Recipients)
	assert.Equal(t, []string{testObject}, tx.InputObjects)
	assert.Equal(t, []string{testObject}, tx.ChangedObjects)
	require.Len(t, tx.MoveCalls, 1)
	assert.Equal(t, "mint", tx.MoveCalls[0].Function)
	require.Len(t, tx.Events, 2)
	assert.Equal(t, testutil.MintEventType, tx.Events[0].Type)
	assert.Equal(t, []byte("raw-tx-b"), tx.RawTransaction)
	assert.Equal(t, []byte("effects-tx-b"), tx.Effects)

	count, err := db.GetTotalAddressNumber(nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)
}

func TestInsertCheckpointUnitIdempotent(t *testing.T) {
	db := newTestDatabase(t)
	unit := testUnit(0, "tx-a")
	require.NoError(t, db.InsertCheckpointUnit(unit))
	require.NoError(t, db.InsertCheckpointUnit(unit))

	digests, err := db.QueryTransactions(
		types.TransactionFilter{Kind: types.TransactionFilterAll},
		nil,
		10,
		false,
		nil,
	)
	require.NoError(t, err)
	assert.Len(t, digests, 1)
	events, err := db.GetEventsByTransaction(testutil.Digest("tx-a").String(), nil)
	require.NoError(t, err)
	assert.Len(t, events, 2)
	count, err := db.GetTotalAddressNumber(nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)
}

func TestEmptyDatabase(t *testing.T) {
	db := newTestDatabase(t)
	_, ok, err := db.GetLatestCheckpointSequenceNumber(nil)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = db.GetCheckpoint(0, nil)
	require.ErrorIs(t, err, database.ErrCheckpointNotFound)
	_, err = db.GetTransaction(testutil.Digest("missing").String(), nil)
	require.ErrorIs(t, err, database.ErrTransactionNotFound)
	_, err = db.GetObject(testObject, nil, nil)
	require.ErrorIs(t, err, database.ErrObjectNotFound)
	count, err := db.GetTotalAddressNumber(nil)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestGetObjectVersions(t *testing.T) {
	db := newTestDatabase(t)
	require.NoError(t, db.InsertCheckpointUnit(testUnit(0, "tx-a")))
	require.NoError(t, db.InsertCheckpointUnit(testUnit(1, "tx-b")))

	latest, err := db.GetObject(testObject, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), latest.Object.Version)
	assert.Equal(t, []byte("contents-1"), latest.Contents)

	version := uint64(1)
	first, err := db.GetObject(testObject, &version, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("contents-0"), first.Contents)

	version = 7
	_, err = db.GetObject(testObject, &version, nil)
	require.ErrorIs(t, err, database.ErrObjectNotFound)

	owned, err := db.GetOwnedObjects(testRecipient, nil, 10, nil)
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, uint64(2), owned[0].Version)
}

func TestQueryEventsThroughDatabase(t *testing.T) {
	db := newTestDatabase(t)
	require.NoError(t, db.InsertCheckpointUnit(testUnit(0, "tx-a", "tx-b")))
	events, err := db.QueryEvents(
		types.EventFilter{
			Kind:      types.EventFilterMoveEventType,
			EventType: testutil.MintEventType,
		},
		nil,
		10,
		false,
		nil,
	)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestReset(t *testing.T) {
	db := newTestDatabase(t)
	require.NoError(t, db.InsertCheckpointUnit(testUnit(0, "tx-a")))
	require.NoError(t, db.Reset())

	_, ok, err := db.GetLatestCheckpointSequenceNumber(nil)
	require.NoError(t, err)
	assert.False(t, ok)
	_, err = db.GetTransaction(testutil.Digest("tx-a").String(), nil)
	require.ErrorIs(t, err, database.ErrTransactionNotFound)

	// Re-ingesting after a reset restores the records
	require.NoError(t, db.InsertCheckpointUnit(testUnit(0, "tx-a")))
	tx, err := db.GetTransaction(testutil.Digest("tx-a").String(), nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("raw-tx-a"), tx.RawTransaction)
}

func TestTxnRollback(t *testing.T) {
	db := newTestDatabase(t)
	txn := db.Transaction(true)
	require.NoError(t, db.Blob().Set(txn.Blob(), []byte("key"), []byte("value")))
	require.NoError(t, txn.Rollback())
	// Finished transactions ignore further calls
	require.NoError(t, txn.Commit())

	readTxn := db.Transaction(false)
	defer readTxn.Release()
	_, err := db.Blob().Get(readTxn.Blob(), []byte("key"))
	require.ErrorIs(t, err, types.ErrBlobKeyNotFound)
}

func TestCommitTimestampPersistent(t *testing.T) {
	dataDir := t.TempDir()
	db, err := openDataDir(t, dataDir)
	require.NoError(t, err)
	require.NoError(t, db.InsertCheckpointUnit(testUnit(0, "tx-a")))
	require.NoError(t, db.Close())

	db, err = openDataDir(t, dataDir)
	require.NoError(t, err)
	seq, ok, err := db.GetLatestCheckpointSequenceNumber(nil)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(0), seq)

	// Simulate a unit that only reached the blob store
	txn := db.Blob().NewTransaction(true)
	require.NoError(t, db.Blob().SetCommitTimestamp(1, txn))
	require.NoError(t, txn.Commit())
	require.NoError(t, db.Close())

	db, err = openDataDir(t, dataDir)
	var tsErr database.CommitTimestampError
	require.ErrorAs(t, err, &tsErr)
	assert.Equal(t, int64(1), tsErr.BlobTimestamp)
	require.NotNil(t, db)
	require.NoError(t, db.Close())
}
