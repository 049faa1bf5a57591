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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitSQLStatements(t *testing.T) {
	content := `
-- authors
INSERT INTO authors (name) VALUES ('Ursula');
INSERT INTO authors (name)
  VALUES ('Octavia');

UPDATE authors SET is_active = 1`
	got := SplitSQLStatements(content)
	assert.Equal(t, []string{
		"INSERT INTO authors (name) VALUES ('Ursula')",
		"INSERT INTO authors (name) VALUES ('Octavia')",
		"UPDATE authors SET is_active = 1",
	}, got)
	assert.Empty(t, SplitSQLStatements("-- only a comment\n\n"))
}

func TestParseFileOrder(t *testing.T) {
	assert.Equal(t, 1, ParseFileOrder("001_permissions.sql"))
	assert.Equal(t, 20, ParseFileOrder("20_demo.sql"))
	assert.Equal(t, 999, ParseFileOrder("demo.sql"))
}

func TestGetSQLFilesOrder(t *testing.T) {
	root := t.TempDir()
	write := func(rel string) {
		p := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("SELECT 1;"), 0o644))
	}
	write("common/010_b.sql")
	write("common/002_a.sql")
	write("common/readme.txt")
	write("environments/dev/001_demo.sql")
	write("environments/prod/001_prod.sql")

	m := NewSQLInitManager(nil, "dev", nil)
	m.SetSQLRootPath(root)
	files, err := m.GetSQLFiles()
	require.NoError(t, err)

	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"002_a.sql", "010_b.sql", "001_demo.sql"}, names)
}

func TestRenderTemplate(t *testing.T) {
	t.Setenv("LIBRIS_SEED_OWNER", "ops")
	m := NewSQLInitManager(nil, "staging", nil)
	out, err := m.render("INSERT INTO notes (env, owner, missing) VALUES ('{{.ENVIRONMENT}}', '{{.LIBRIS_SEED_OWNER}}', '{{.NOPE}}');")
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO notes (env, owner, missing) VALUES ('staging', 'ops', '');", out)
}
