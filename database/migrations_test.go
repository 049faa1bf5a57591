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

package database_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/libris/database"
	"github.com/tomoncle/libris/database/dbtest"
	"github.com/uptrace/bun"
)

type shelfRecord struct {
	bun.BaseModel `bun:"table:shelf_records"`

	ID   int64  `bun:"id,pk,autoincrement"`
	Code string `bun:"code,notnull,unique"`
	Env  string `bun:"env"`
}

func (*shelfRecord) Indexes() []database.IndexDefinition {
	return []database.IndexDefinition{{Table: "shelf_records", Columns: []string{"env"}}}
}

func init() {
	database.RegisterModel((*shelfRecord)(nil), 10)
}

func TestRunMigrationsOnSQLite(t *testing.T) {
	ctx := context.Background()
	cfg := dbtest.Config(t)
	manager := dbtest.Connect(t, cfg)
	db := manager.GetDB()

	require.NoError(t, manager.RunMigrations(ctx))
	// Applying again is a no-op.
	require.NoError(t, manager.RunMigrations(ctx))

	applied, err := database.NewMigrationManager(db, cfg, nil).GetAppliedMigrations(ctx)
	require.NoError(t, err)
	versions := make([]string, 0, len(applied))
	for _, m := range applied {
		versions = append(versions, m.Version)
	}
	// sqlite cannot add constraints to existing tables.
	assert.Equal(t, []string{"001", "002"}, versions)

	_, err = db.NewInsert().Model(&shelfRecord{Code: "A-1"}).Exec(ctx)
	require.NoError(t, err)
	_, err = db.NewInsert().Model(&shelfRecord{Code: "A-1"}).Exec(ctx)
	require.Error(t, err)
	assert.True(t, database.IsDuplicateKey(err))
}

func TestSeedOnMigration(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	seed := filepath.Join(root, "environments", "test", "001_shelf.sql")
	require.NoError(t, os.MkdirAll(filepath.Dir(seed), 0o755))
	require.NoError(t, os.WriteFile(seed, []byte(
		"INSERT INTO shelf_records (code, env) VALUES ('S-1', '{{.ENVIRONMENT}}');\n"+
			"INSERT INTO shelf_records (code, env) VALUES ('S-2', '{{.ENVIRONMENT}}');\n"), 0o644))

	cfg := dbtest.Config(t)
	cfg.DataInitConfig = database.DataInitConfig{AutoInitOnMigration: true, Filepath: root, Environment: "test"}
	manager := dbtest.Connect(t, cfg)
	require.NoError(t, manager.RunMigrations(ctx))

	var records []shelfRecord
	require.NoError(t, manager.GetDB().NewSelect().Model(&records).Order("code ASC").Scan(ctx))
	require.Len(t, records, 2)
	assert.Equal(t, "test", records[0].Env)

	status := manager.HealthCheck(ctx)
	assert.True(t, status.Healthy)
	assert.Equal(t, 1, manager.GetStats().MaxOpenConns)
}

func TestSeedFailureRollsBackMigration(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	seed := filepath.Join(root, "common", "001_bad.sql")
	require.NoError(t, os.MkdirAll(filepath.Dir(seed), 0o755))
	require.NoError(t, os.WriteFile(seed, []byte(
		"INSERT INTO shelf_records (code) VALUES ('X');\nINSERT INTO missing_table (code) VALUES ('X');\n"), 0o644))

	cfg := dbtest.Config(t)
	cfg.DataInitConfig = database.DataInitConfig{AutoInitOnMigration: true, Filepath: root}
	manager := dbtest.Connect(t, cfg)
	require.Error(t, manager.RunMigrations(ctx))

	n, err := manager.GetDB().NewSelect().Model((*shelfRecord)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
