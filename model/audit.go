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
package model

import (
	"time"

	"github.com/tomoncle/libris/database"
	"github.com/tomoncle/libris/types"
	"github.com/uptrace/bun"
)

// AuditEntry records a change made to an entity. ActorID is nil for
// changes made by the system, e.g. the overdue job.
type AuditEntry struct {
	bun.BaseModel `bun:"table:audit_entries,alias:audit"`

	ID         int64            `bun:"id,pk,autoincrement"`
	ActorID    *int64           `bun:"actor_id,nullzero"`
	Action     string           `bun:"action,notnull"`
	EntityType string           `bun:"entity_type,notnull"`
	EntityID   int64            `bun:"entity_id,notnull"`
	Changes    types.JsonObject `bun:"changes,type:text"`
	CreatedAt  time.Time        `bun:"created_at,notnull"`
}

func (*AuditEntry) Indexes() []database.IndexDefinition {
	return []database.IndexDefinition{
		{Table: "audit_entries", Columns: []string{"entity_type", "entity_id"}},
		{Table: "audit_entries", Columns: []string{"actor_id"}},
		{Table: "audit_entries", Columns: []string{"created_at"}},
	}
}

func (*AuditEntry) ForeignKeys() []database.ForeignKeyConstraint {
	return []database.ForeignKeyConstraint{
		{Table: "audit_entries", Column: "actor_id", ReferenceTable: "users", ReferenceColumn: "id", OnDelete: "set null"},
	}
}
