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

// Package dbtest opens isolated in-memory sqlite databases for tests.
package dbtest

import (
	"context"
	"fmt"
	"regexp"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tomoncle/libris/database"
	"github.com/uptrace/bun"
)

var (
	seq        atomic.Int64
	unsafeName = regexp.MustCompile(`[^A-Za-z0-9_]+`)
)

// Config returns a sqlite config naming a private shared-cache in-memory
// database. The pool keeps exactly one connection so the database lives as
// long as the test.
func Config(t testing.TB) *database.Config {
	cfg := database.DefaultConfig()
	name := fmt.Sprintf("%s_%d", unsafeName.ReplaceAllString(t.Name(), "_"), seq.Add(1))
	cfg.ConnectionConfig.DBName = fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	cfg.ConnectionConfig.MaxOpenConns = 1
	cfg.ConnectionConfig.MaxIdleConns = 1
	cfg.ConnectionConfig.ConnMaxLifetime = 0
	cfg.ConnectionConfig.ConnMaxIdleTime = 0
	cfg.ConnectionConfig.HealthCheckInterval = 0
	cfg.ConnectionConfig.SlowQueryTime = 0
	cfg.DataInitConfig = database.DataInitConfig{}
	return cfg
}

// Connect opens the database described by cfg and closes it on cleanup.
func Connect(t testing.TB, cfg *database.Config) database.AbstractDatabaseManager {
	t.Helper()
	manager := database.NewDatabaseManager(cfg)
	require.NoError(t, manager.Connect(context.Background()))
	t.Cleanup(func() { _ = manager.Disconnect() })
	return manager
}

// Open returns a database with every registered model migrated.
func Open(t testing.TB) *bun.DB {
	t.Helper()
	manager := Connect(t, Config(t))
	require.NoError(t, manager.RunMigrations(context.Background()))
	return manager.GetDB()
}

// OpenWith returns a database holding tables for models only.
func OpenWith(t testing.TB, models ...interface{}) *bun.DB {
	t.Helper()
	db := Connect(t, Config(t)).GetDB()
	for _, m := range models {
		_, err := db.NewCreateTable().Model(m).IfNotExists().Exec(context.Background())
		require.NoError(t, err)
	}
	return db
}
