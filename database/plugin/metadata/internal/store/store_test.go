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

package store

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/blinklabs-io/suidex/database/models"
	"github.com/blinklabs-io/suidex/database/types"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var testDbCounter atomic.Uint64

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := fmt.Sprintf(
		"file:store-test-%d?mode=memory&cache=shared",
		testDbCounter.Add(1),
	)
	db, err := gorm.Open(
		sqlite.Open(dsn),
		&gorm.Config{
			Logger:                 gormlogger.Discard,
			SkipDefaultTransaction: true,
		},
	)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	s, err := New(db)
	require.NoError(t, err)
	require.NoError(t, s.Migrate(nil))
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func testUnit(seq uint64, digests ...string) *models.CheckpointUnit {
	unit := &models.CheckpointUnit{
		Checkpoint: models.Checkpoint{
			SequenceNumber:   seq,
			Digest:           fmt.Sprintf("cp%d", seq),
			TransactionCount: uint32(len(digests)), //nolint:gosec
		},
	}
	for i, digest := range digests {
		unit.Transactions = append(unit.Transactions, models.Transaction{
			Digest:             digest,
			Sender:             "0xa",
			CheckpointSequence: seq,
			Position:           uint32(i), //nolint:gosec
			Status:             "success",
		})
		unit.Recipients = append(unit.Recipients, models.TransactionRecipient{
			Address:           "0xb",
			TransactionDigest: digest,
		})
		unit.Objects = append(unit.Objects,
			models.TransactionObject{
				ObjectID:          "0x10",
				Kind:              models.TransactionObjectKindInput,
				TransactionDigest: digest,
			},
			models.TransactionObject{
				ObjectID:          "0x10",
				Kind:              models.TransactionObjectKindChanged,
				TransactionDigest: digest,
			},
		)
		unit.MoveCalls = append(unit.MoveCalls,
			models.MoveCall{
				Package:           "0x2",
				Module:            "nft",
				Function:          "mint",
				TransactionDigest: digest,
			},
			models.MoveCall{
				Package:           "0x2",
				Module:            "nft",
				Function:          "burn",
				TransactionDigest: digest,
			},
		)
		for j := range 2 {
			unit.Events = append(unit.Events, models.Event{
				TransactionDigest: digest,
				EventSeq:          uint64(j), //nolint:gosec
				PackageID:         "0x2",
				TransactionModule: "nft",
				Sender:            "0xa",
				Type:              "0x2::nft::Minted",
			})
		}
	}
	unit.Addresses = []models.Address{
		{Address: "0xa", FirstSeenCheckpoint: seq},
		{Address: "0xb", FirstSeenCheckpoint: seq},
	}
	return unit
}

func insertUnit(t *testing.T, s *Store, unit *models.CheckpointUnit) {
	t.Helper()
	txn := s.Transaction()
	require.NoError(t, s.InsertCheckpointUnit(unit, txn))
	require.NoError(t, txn.Commit())
}

func TestInsertCheckpointUnitIdempotent(t *testing.T) {
	s := newTestStore(t)
	unit := testUnit(0, "b", "a")
	insertUnit(t, s, unit)
	insertUnit(t, s, unit)

	cp, err := s.GetCheckpoint(0, nil)
	require.NoError(t, err)
	require.NotNil(t, cp)
	assert.Equal(t, "cp0", cp.Digest)

	digests, err := s.GetCheckpointTransactions(0, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, digests)

	count, err := s.CountAddresses(nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)

	events, err := s.GetEventsByTransaction("a", nil)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestWatermarkOnlyAdvances(t *testing.T) {
	s := newTestStore(t)
	wm, err := s.GetWatermark(nil)
	require.NoError(t, err)
	assert.Nil(t, wm)

	insertUnit(t, s, testUnit(0, "a"))
	insertUnit(t, s, testUnit(1, "b"))
	insertUnit(t, s, testUnit(0, "a"))

	wm, err = s.GetWatermark(nil)
	require.NoError(t, err)
	require.NotNil(t, wm)
	assert.Equal(t, uint64(1), wm.SequenceNumber)
	assert.Equal(t, "cp1", wm.Digest)
}

func TestRollbackDiscardsUnit(t *testing.T) {
	s := newTestStore(t)
	txn := s.Transaction()
	require.NoError(t, s.InsertCheckpointUnit(testUnit(0, "a"), txn))
	require.NoError(t, txn.Rollback())

	cp, err := s.GetCheckpoint(0, nil)
	require.NoError(t, err)
	assert.Nil(t, cp)
	wm, err := s.GetWatermark(nil)
	require.NoError(t, err)
	assert.Nil(t, wm)

	_, err = s.GetCheckpoint(0, txn)
	require.Error(t, err)
}

func TestNotFound(t *testing.T) {
	s := newTestStore(t)
	tx, err := s.GetTransaction("missing", nil)
	require.NoError(t, err)
	assert.Nil(t, tx)
	obj, err := s.GetObject("0x1", nil, nil)
	require.NoError(t, err)
	assert.Nil(t, obj)
}

func TestQueryTransactions(t *testing.T) {
	s := newTestStore(t)
	insertUnit(t, s, testUnit(0, "c", "a"))
	insertUnit(t, s, testUnit(1, "b"))

	testDefs := []struct {
		name     string
		filter   types.TransactionFilter
		expected []string
	}{
		{
			name:     "all",
			filter:   types.TransactionFilter{Kind: types.TransactionFilterAll},
			expected: []string{"a", "b", "c"},
		},
		{
			name: "from address",
			filter: types.TransactionFilter{
				Kind:    types.TransactionFilterFromAddress,
				Address: "0xa",
			},
			expected: []string{"a", "b", "c"},
		},
		{
			name: "to address",
			filter: types.TransactionFilter{
				Kind:    types.TransactionFilterToAddress,
				Address: "0xb",
			},
			expected: []string{"a", "b", "c"},
		},
		{
			name: "unknown recipient",
			filter: types.TransactionFilter{
				Kind:    types.TransactionFilterToAddress,
				Address: "0xa",
			},
		},
		{
			name: "input object",
			filter: types.TransactionFilter{
				Kind:     types.TransactionFilterInputObject,
				ObjectID: "0x10",
			},
			expected: []string{"a", "b", "c"},
		},
		{
			name: "move module",
			filter: types.TransactionFilter{
				Kind:    types.TransactionFilterMoveFunction,
				Package: "0x2",
				Module:  "nft",
			},
			expected: []string{"a", "b", "c"},
		},
		{
			name: "move function",
			filter: types.TransactionFilter{
				Kind:     types.TransactionFilterMoveFunction,
				Package:  "0x2",
				Module:   "nft",
				Function: "transfer",
			},
		},
		{
			name: "digest",
			filter: types.TransactionFilter{
				Kind:   types.TransactionFilterDigest,
				Digest: "b",
			},
			expected: []string{"b"},
		},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			digests, err := s.QueryTransactions(testDef.filter, nil, 10, false, nil)
			require.NoError(t, err)
			if testDef.expected == nil {
				assert.Empty(t, digests)
				return
			}
			assert.Equal(t, testDef.expected, digests)
		})
	}

	all := types.TransactionFilter{Kind: types.TransactionFilterAll}
	cursor := "a"
	digests, err := s.QueryTransactions(all, &cursor, 1, false, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, digests)

	cursor = "c"
	digests, err = s.QueryTransactions(all, &cursor, 10, true, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, digests)
}

func TestQueryEventsCursor(t *testing.T) {
	s := newTestStore(t)
	insertUnit(t, s, testUnit(0, "b", "a"))

	filter := types.EventFilter{
		Kind:    types.EventFilterMoveModule,
		Package: "0x2",
		Module:  "nft",
	}
	events, err := s.QueryEvents(filter, nil, 3, false, nil)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "a", events[0].TransactionDigest)
	assert.Equal(t, uint64(1), events[1].EventSeq)
	assert.Equal(t, "b", events[2].TransactionDigest)

	cursor := &types.EventCursor{TxDigest: "a", EventSeq: 1}
	events, err = s.QueryEvents(filter, cursor, 10, false, nil)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "b", events[0].TransactionDigest)
	assert.Equal(t, uint64(0), events[0].EventSeq)

	events, err = s.QueryEvents(filter, cursor, 10, true, nil)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "a", events[0].TransactionDigest)
	assert.Equal(t, uint64(0), events[0].EventSeq)

	events, err = s.QueryEvents(
		types.EventFilter{Kind: types.EventFilterSender, Sender: "0xc"},
		nil, 10, false, nil,
	)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestOwnedObjectsUseLatestVersion(t *testing.T) {
	s := newTestStore(t)
	unit := testUnit(0)
	unit.ObjectStates = []models.Object{
		{ObjectID: "0x01", Version: 1, Owner: "0xa", OwnerKind: ownerKindAddress},
		{ObjectID: "0x02", Version: 1, Owner: "0xa", OwnerKind: ownerKindAddress},
		{ObjectID: "0x03", Version: 1, Owner: "0xa", OwnerKind: ownerKindAddress},
	}
	insertUnit(t, s, unit)
	unit = testUnit(1)
	unit.ObjectStates = []models.Object{
		// transferred away
		{ObjectID: "0x01", Version: 2, Owner: "0xb", OwnerKind: ownerKindAddress},
		{ObjectID: "0x02", Version: 2, Deleted: true},
	}
	insertUnit(t, s, unit)

	objs, err := s.GetOwnedObjects("0xa", nil, 10, nil)
	require.NoError(t, err)
	require.Len(t, objs, 1)
	assert.Equal(t, "0x03", objs[0].ObjectID)

	objs, err = s.GetOwnedObjects("0xb", nil, 10, nil)
	require.NoError(t, err)
	require.Len(t, objs, 1)
	assert.Equal(t, uint64(2), objs[0].Version)

	cursor := "0x01"
	objs, err = s.GetOwnedObjects("0xb", &cursor, 10, nil)
	require.NoError(t, err)
	assert.Empty(t, objs)

	obj, err := s.GetObject("0x01", nil, nil)
	require.NoError(t, err)
	require.NotNil(t, obj)
	assert.Equal(t, uint64(2), obj.Version)
	version := uint64(1)
	obj, err = s.GetObject("0x01", &version, nil)
	require.NoError(t, err)
	require.NotNil(t, obj)
	assert.Equal(t, "0xa", obj.Owner)
}

func TestReset(t *testing.T) {
	s := newTestStore(t)
	insertUnit(t, s, testUnit(0, "a"))
	require.NoError(t, s.SetCommitTimestamp(1234, nil))

	txn := s.Transaction()
	require.NoError(t, s.Reset(txn))
	require.NoError(t, txn.Commit())

	count, err := s.CountAddresses(nil)
	require.NoError(t, err)
	assert.Zero(t, count)
	wm, err := s.GetWatermark(nil)
	require.NoError(t, err)
	assert.Nil(t, wm)
	ts, err := s.GetCommitTimestamp()
	require.NoError(t, err)
	assert.Equal(t, int64(1234), ts)
}
