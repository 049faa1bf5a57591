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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForeignKeySQL(t *testing.T) {
	fk := ForeignKeyConstraint{
		Table: "loans", Column: "book_id",
		ReferenceTable: "books", ReferenceColumn: "id",
		OnDelete: "restrict",
	}
	assert.Equal(t, "fk_loans_book_id", fk.Name())
	assert.Equal(t, "ALTER TABLE loans ADD CONSTRAINT fk_loans_book_id FOREIGN KEY (book_id) REFERENCES books (id) ON DELETE RESTRICT", fk.SQL())
	assert.NoError(t, fk.Validate())
}

func TestForeignKeyManagerValidate(t *testing.T) {
	fkm := &ForeignKeyManager{logger: GetLogger(), constraints: []ForeignKeyConstraint{
		{Table: "loans", Column: "book_id", ReferenceTable: "books", ReferenceColumn: "id"},
		{Table: "loans", Column: "book_id", ReferenceTable: "books", ReferenceColumn: "id"},
		{Table: "loans", Column: "", ReferenceTable: "users", ReferenceColumn: "id", OnDelete: "EXPLODE"},
	}}
	err := fkm.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate constraint name fk_loans_book_id")
	assert.Contains(t, err.Error(), "column name cannot be empty")
	assert.Contains(t, err.Error(), `invalid referential action "EXPLODE"`)
	assert.Len(t, fkm.ConstraintsByTable("LOANS"), 3)
}

func TestForeignKeyExportAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fk", "foreign_keys.yaml")
	fkm := &ForeignKeyManager{logger: GetLogger(), constraints: []ForeignKeyConstraint{
		{Table: "books", Column: "author_id", ReferenceTable: "authors", ReferenceColumn: "id", OnDelete: "RESTRICT"},
	}}
	require.NoError(t, fkm.Export(path))

	loaded, err := NewForeignKeyManagerFromFile(GetLogger(), path)
	require.NoError(t, err)
	assert.Equal(t, fkm.Constraints(), loaded.Constraints())

	_, err = NewForeignKeyManagerFromFile(GetLogger(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
