/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func TestOverrideFromEnv(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("DB_CONN_MAX_LIFETIME", "90")
	t.Setenv("DB_ENABLE_RECONNECT", "false")

	cfg := DefaultConnectionConfig()
	OverrideFromEnv(cfg)
	assert.Equal(t, "db.internal", cfg.Host)
	assert.Equal(t, 6543, cfg.Port)
	assert.Equal(t, 90*time.Second, cfg.ConnMaxLifetime)
	assert.False(t, cfg.EnableReconnect)
}

func TestCreateFromConfigRejectsUnknownType(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ConnectionConfig.Type = "oracle"
	_, err := NewDatabaseFactory().CreateFromConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database type")
}

func TestBuildDSN(t *testing.T) {
	cfg := DefaultConnectionConfig()
	cfg.Type, cfg.DBName = "sqlite", "libris"
	driverName, dsn, _, err := BuildDSN(cfg)
	require.NoError(t, err)
	assert.Equal(t, sqliteshim.ShimName, driverName)
	assert.Equal(t, "libris.db", dsn)

	cfg.DBName = "file:test?mode=memory&cache=shared"
	_, dsn, _, _ = BuildDSN(cfg)
	assert.Equal(t, cfg.DBName, dsn)

	cfg.Type, cfg.Host, cfg.Port, cfg.Username, cfg.Password = "postgres", "pg", 5432, "lib", "secret"
	driverName, dsn, _, err = BuildDSN(cfg)
	require.NoError(t, err)
	assert.Equal(t, "postgres", driverName)
	assert.True(t, strings.HasPrefix(dsn, "postgres://lib:secret@pg:5432/"))
	assert.Contains(t, dsn, "sslmode=disable")

	cfg.Type = "mysql"
	driverName, dsn, _, err = BuildDSN(cfg)
	require.NoError(t, err)
	assert.Equal(t, "mysql", driverName)
	assert.Contains(t, dsn, "@tcp(pg:5432)/")
}
