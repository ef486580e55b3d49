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

package mysql

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/blinklabs-io/suidex/database/plugin/metadata/internal/store"
	"github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
)

const (
	// Binary collation makes text keys compare by byte value
	tableOptions = "DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_bin"

	errUnknownDatabase = 1049
)

// DefaultConnParams match a stock local MySQL install
var DefaultConnParams = ConnParams{
	Host:           "localhost",
	Port:           3306,
	User:           "root",
	Database:       "suidex",
	TimeZone:       "UTC",
	MaxConnections: 100,
}

// MetadataStoreMysql stores metadata in MySQL
type MetadataStoreMysql struct {
	*store.Store

	promRegistry prometheus.Registerer
	logger       *slog.Logger
	conn         ConnParams
}

// NewWithOptions creates a store. The connection is opened by Start().
func NewWithOptions(opts ...MysqlOptionFunc) (*MetadataStoreMysql, error) {
	d := &MetadataStoreMysql{}
	for _, opt := range opts {
		opt(d)
	}
	d.conn = d.conn.WithDefaults(DefaultConnParams)
	if d.logger == nil {
		d.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return d, nil
}

// driverConfig returns the driver configuration for the DSN or the
// individual settings
func (d *MetadataStoreMysql) driverConfig() (*mysql.Config, error) {
	if dsn := strings.TrimSpace(d.conn.DSN); dsn != "" {
		return mysql.ParseDSN(dsn)
	}
	c := d.conn
	cfg := mysql.NewConfig()
	cfg.User = c.User
	cfg.Passwd = c.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(c.Host, strconv.FormatUint(c.Port, 10))
	cfg.DBName = c.Database
	cfg.ParseTime = true
	if loc, err := time.LoadLocation(c.TimeZone); err == nil {
		cfg.Loc = loc
	}
	if c.SSLMode != "" {
		cfg.Params = map[string]string{"tls": c.SSLMode}
	}
	return cfg, nil
}

func (d *MetadataStoreMysql) open(cfg *mysql.Config) (*gorm.DB, error) {
	return gorm.Open(
		gormmysql.New(gormmysql.Config{
			DSN:       cfg.FormatDSN(),
			DSNConfig: cfg,
		}),
		store.GormConfig(true),
	)
}

func (d *MetadataStoreMysql) Start() error {
	cfg, err := d.driverConfig()
	if err != nil {
		return fmt.Errorf("mysql dsn: %w", err)
	}
	db, err := d.open(cfg)
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == errUnknownDatabase {
		if err := d.createDatabase(cfg); err != nil {
			return fmt.Errorf("create database %s: %w", cfg.DBName, err)
		}
		db, err = d.open(cfg)
	}
	if err != nil {
		return err
	}
	sqlDB, err := store.ConfigurePool(db, d.conn.MaxConnections)
	if err != nil {
		return err
	}
	d.logger.Info(
		"connected to mysql metadata store",
		"component", "database",
		"addr", cfg.Addr,
		"database", cfg.DBName,
	)
	storeOpts := []store.StoreOptionFunc{
		store.WithLogger(d.logger),
	}
	if d.promRegistry != nil {
		storeOpts = append(
			storeOpts,
			store.WithPromRegistry(d.promRegistry, "metadata_mysql"),
		)
	}
	s, err := store.New(db, storeOpts...)
	if err != nil {
		_ = sqlDB.Close()
		return err
	}
	d.Store = s
	return d.Migrate(db.Set("gorm:table_options", tableOptions))
}

// createDatabase connects without a schema and creates the configured one
func (d *MetadataStoreMysql) createDatabase(cfg *mysql.Config) error {
	if cfg.DBName == "" {
		return errors.New("no database name configured")
	}
	admin := cfg.Clone()
	admin.DBName = ""
	db, err := d.open(admin)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()
	stmt := fmt.Sprintf(
		"CREATE DATABASE IF NOT EXISTS `%s` CHARACTER SET utf8mb4 COLLATE utf8mb4_bin",
		strings.ReplaceAll(cfg.DBName, "`", "``"),
	)
	if err := db.Exec(stmt).Error; err != nil {
		return err
	}
	d.logger.Info(
		"created mysql database",
		"component", "database",
		"database", cfg.DBName,
	)
	return nil
}

func (d *MetadataStoreMysql) Stop() error {
	return d.Close()
}

// Close closes the connection. It's safe to call before Start().
func (d *MetadataStoreMysql) Close() error {
	if d.Store == nil {
		return nil
	}
	return d.Store.Close()
}
