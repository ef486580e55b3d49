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
	"database/sql"
	"time"

	"github.com/blinklabs-io/suidex/database/plugin"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	maxIdleConns    = 10
	connMaxLifetime = time.Hour
)

// ConnParams are the connection settings of a network SQL server. A
// non-empty DSN is used as is and the other fields only feed logging.
type ConnParams struct {
	Host           string
	User           string
	Password       string
	Database       string
	SSLMode        string
	TimeZone       string
	DSN            string
	Port           uint64
	MaxConnections int
}

// WithDefaults fills zero fields from def
func (p ConnParams) WithDefaults(def ConnParams) ConnParams {
	fill := func(v *string, d string) {
		if *v == "" {
			*v = d
		}
	}
	fill(&p.Host, def.Host)
	fill(&p.User, def.User)
	fill(&p.Database, def.Database)
	fill(&p.SSLMode, def.SSLMode)
	fill(&p.TimeZone, def.TimeZone)
	if p.Port == 0 {
		p.Port = def.Port
	}
	if p.MaxConnections == 0 {
		p.MaxConnections = def.MaxConnections
	}
	return p
}

// PluginOptions describes p as plugin registry options. The current values
// of p are the defaults and the registry writes straight into p.
func (p *ConnParams) PluginOptions(engine string) []plugin.PluginOption {
	str := func(name, desc string, dest *string) plugin.PluginOption {
		return plugin.PluginOption{
			Name:         name,
			Type:         plugin.PluginOptionTypeString,
			Description:  engine + " " + desc,
			DefaultValue: *dest,
			Dest:         dest,
		}
	}
	return []plugin.PluginOption{
		str("host", "host", &p.Host),
		{
			Name:         "port",
			Type:         plugin.PluginOptionTypeUint,
			Description:  engine + " port",
			DefaultValue: p.Port,
			Dest:         &p.Port,
		},
		str("user", "user", &p.User),
		str("password", "password", &p.Password),
		str("database", "database name", &p.Database),
		str("ssl-mode", "TLS mode", &p.SSLMode),
		str("timezone", "session time zone", &p.TimeZone),
		str("dsn", "DSN, overrides the other connection options when set", &p.DSN),
		{
			Name:         "max-connections",
			Type:         plugin.PluginOptionTypeInt,
			Description:  "Maximum number of open connections",
			DefaultValue: p.MaxConnections,
			Dest:         &p.MaxConnections,
		},
	}
}

// GormConfig is the gorm configuration shared by the plugins. Query logging
// is left to the otel plugin.
func GormConfig(prepareStmt bool) *gorm.Config {
	return &gorm.Config{
		Logger:                 gormlogger.Discard,
		SkipDefaultTransaction: true,
		PrepareStmt:            prepareStmt,
	}
}

// ConfigurePool sizes the connection pool of a network server
func ConfigurePool(db *gorm.DB, maxOpen int) (*sql.DB, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	return sqlDB, nil
}
