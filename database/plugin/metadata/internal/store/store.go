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

// Package store implements the metadata store on top of gorm. The sqlite,
// postgres and mysql plugins open a connection and embed a Store.
package store

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/blinklabs-io/suidex/database/models"
	"github.com/blinklabs-io/suidex/database/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/plugin/opentelemetry/tracing"
)

const insertBatchSize = 500

type gormTxn struct {
	db       *gorm.DB
	finished bool
	beginErr error
}

func (t *gormTxn) Commit() error {
	if t.beginErr != nil {
		return t.beginErr
	}
	if t.finished {
		return nil
	}
	if result := t.db.Commit(); result.Error != nil {
		return result.Error
	}
	t.finished = true
	return nil
}

func (t *gormTxn) Rollback() error {
	if t.beginErr != nil {
		return t.beginErr
	}
	if t.finished {
		return nil
	}
	t.finished = true
	if result := t.db.Rollback(); result.Error != nil {
		return result.Error
	}
	return nil
}

type Store struct {
	db           *gorm.DB
	logger       *slog.Logger
	promRegistry prometheus.Registerer
	name         string
	collation    string
}

type StoreOptionFunc func(*Store)

func WithLogger(logger *slog.Logger) StoreOptionFunc {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithPromRegistry exports connection pool statistics to the registry,
// labeled with the given database name
func WithPromRegistry(
	registry prometheus.Registerer,
	name string,
) StoreOptionFunc {
	return func(s *Store) {
		s.promRegistry = registry
		s.name = name
	}
}

// WithCollation sets the collation used when ordering and comparing text
// keys, for engines whose default collation isn't byte order
func WithCollation(collation string) StoreOptionFunc {
	return func(s *Store) {
		s.collation = collation
	}
}

func New(db *gorm.DB, opts ...StoreOptionFunc) (*Store, error) {
	s := &Store{db: db}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	// Configure tracing for GORM
	if err := s.db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, err
	}
	if s.promRegistry != nil {
		sqlDB, err := s.db.DB()
		if err != nil {
			return nil, err
		}
		err = s.promRegistry.Register(
			collectors.NewDBStatsCollector(sqlDB, s.name),
		)
		if err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				return nil, err
			}
		}
	}
	return s, nil
}

// Migrate creates or updates the table schemas. The DB handle may carry
// engine specific table options.
func (s *Store) Migrate(db *gorm.DB) error {
	if db == nil {
		db = s.db
	}
	if err := db.AutoMigrate(&CommitTimestamp{}); err != nil {
		return err
	}
	for _, model := range models.MigrateModels {
		s.logger.Debug(
			fmt.Sprintf("creating table: %T", model),
			"component", "database",
		)
		if err := db.AutoMigrate(model); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) DB() *gorm.DB {
	return s.db
}

// Transaction begins a metadata transaction. A failure to begin is reported
// by the returned handle's Commit and Rollback.
func (s *Store) Transaction() types.Txn {
	db := s.db.Begin()
	if db.Error != nil {
		s.logger.Error(
			"failed to begin transaction",
			"component", "database",
			"error", db.Error,
		)
		return &gormTxn{beginErr: db.Error}
	}
	return &gormTxn{db: db}
}

// Close closes the underlying connection pool
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get database handle: %w", err)
	}
	return sqlDB.Close()
}

// resolveDB returns the gorm handle for a transaction, or the base handle
// when txn is nil
func (s *Store) resolveDB(txn types.Txn) (*gorm.DB, error) {
	if txn == nil {
		return s.db, nil
	}
	t, ok := txn.(*gormTxn)
	if !ok {
		return nil, types.ErrTxnWrongType
	}
	if t.beginErr != nil {
		return nil, t.beginErr
	}
	if t.finished {
		return nil, errors.New("transaction already finished")
	}
	return t.db, nil
}

// col returns a column expression for comparing and ordering text keys
func (s *Store) col(name string) string {
	if s.collation == "" {
		return name
	}
	return fmt.Sprintf("%s COLLATE %q", name, s.collation)
}

func createIgnore[T any](db *gorm.DB, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	result := db.Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(rows, insertBatchSize)
	return result.Error
}

func first[T any](db *gorm.DB, query any, args ...any) (*T, error) {
	var ret T
	result := db.Where(query, args...).First(&ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &ret, nil
}
