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
	"context"
	"fmt"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// IndexDefinition is a secondary index created by the create_indexes
// migration.
type IndexDefinition struct {
	Table   string
	Columns []string
	Unique  bool
	Name    string
}

// IndexName returns Name or "idx_<table>_<columns>".
func (d IndexDefinition) IndexName() string {
	if d.Name != "" {
		return d.Name
	}
	return "idx_" + d.Table + "_" + strings.Join(d.Columns, "_")
}

// IndexProvider is implemented by registered models that need secondary
// indexes.
type IndexProvider interface {
	Indexes() []IndexDefinition
}

// RegisteredIndexes collects the indexes declared by registered models.
func RegisteredIndexes() []IndexDefinition {
	var defs []IndexDefinition
	for _, m := range GetRegisteredModels() {
		if p, ok := m.Instance().(IndexProvider); ok {
			defs = append(defs, p.Indexes()...)
		}
	}
	return defs
}

// CreateIndexes creates defs. MySQL has no CREATE INDEX IF NOT EXISTS, so
// there an existing index is detected from the error instead.
func CreateIndexes(ctx context.Context, db bun.IDB, defs []IndexDefinition) error {
	mysql := db.Dialect().Name() == dialect.MySQL
	for _, d := range defs {
		if d.Table == "" || len(d.Columns) == 0 {
			return fmt.Errorf("invalid index definition %q", d.IndexName())
		}
		q := db.NewCreateIndex().Table(d.Table).Index(d.IndexName()).Column(d.Columns...)
		if d.Unique {
			q = q.Unique()
		}
		if !mysql {
			q = q.IfNotExists()
		}
		if _, err := q.Exec(ctx); err != nil {
			if ok, kind := IsSqlError(err); ok && kind == ExistIndexErr {
				continue
			}
			return fmt.Errorf("create index %s: %w", d.IndexName(), err)
		}
	}
	return nil
}
