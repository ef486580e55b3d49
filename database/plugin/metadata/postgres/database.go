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
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/blinklabs-io/suidex/database/plugin/metadata/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// DefaultConnParams match a stock local Postgres install
var DefaultConnParams = ConnParams{
	Host:           "localhost",
	Port:           5432,
	User:           "postgres",
	Database:       "postgres",
	SSLMode:        "disable",
	TimeZone:       "UTC",
	MaxConnections: 100,
}

// MetadataStorePostgres stores metadata in Postgres
type MetadataStorePostgres struct {
	*store.Store

	promRegistry prometheus.Registerer
	logger       *slog.Logger
	conn         ConnParams
}

// NewWithOptions creates a store. The connection is opened by Start().
func NewWithOptions(opts ...PostgresOptionFunc) (*MetadataStorePostgres, error) {
	d := &MetadataStorePostgres{}
	for _, opt := range opts {
		opt(d)
	}
	d.conn = d.conn.WithDefaults(DefaultConnParams)
	if d.logger == nil {
		d.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return d, nil
}

// dsn returns the configured DSN, or a keyword/value string built from the
// individual settings
func (d *MetadataStorePostgres) dsn() string {
	if dsn := strings.TrimSpace(d.conn.DSN); dsn != "" {
		return dsn
	}
	c := d.conn
	kv := []string{
		"host=" + c.Host,
		"user=" + c.User,
		"password=" + c.Password,
		"dbname=" + c.Database,
		"port=" + strconv.FormatUint(c.Port, 10),
		"sslmode=" + c.SSLMode,
		"TimeZone=" + c.TimeZone,
	}
	return strings.Join(kv, " ")
}

func (d *MetadataStorePostgres) Start() error {
	db, err := gorm.Open(postgres.Open(d.dsn()), store.GormConfig(true))
	if err != nil {
		return err
	}
	sqlDB, err := store.ConfigurePool(db, d.conn.MaxConnections)
	if err != nil {
		return err
	}
	d.logger.Info(
		"connected to postgres metadata store",
		"component", "database",
		"host", d.conn.Host,
		"port", d.conn.Port,
		"database", d.conn.Database,
	)
	storeOpts := []store.StoreOptionFunc{
		store.WithLogger(d.logger),
		// Digests and IDs are ordered by their bytes, not by locale rules
		store.WithCollation("C"),
	}
	if d.promRegistry != nil {
		storeOpts = append(
			storeOpts,
			store.WithPromRegistry(d.promRegistry, "metadata_postgres"),
		)
	}
	s, err := store.New(db, storeOpts...)
	if err != nil {
		_ = sqlDB.Close()
		return err
	}
	d.Store = s
	return d.Migrate(nil)
}

func (d *MetadataStorePostgres) Stop() error {
	return d.Close()
}

// Close closes the connection. It's safe to call before Start().
func (d *MetadataStorePostgres) Close() error {
	if d.Store == nil {
		return nil
	}
	return d.Store.Close()
}
