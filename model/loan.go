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
	"github.com/uptrace/bun"
)

type Loan struct {
	bun.BaseModel `bun:"table:loans,alias:loan"`

	ID         int64      `bun:"id,pk,autoincrement"`
	BookID     int64      `bun:"book_id,notnull"`
	UserID     int64      `bun:"user_id,notnull"`
	Status     LoanStatus `bun:"status,type:integer,notnull"`
	BorrowedAt time.Time  `bun:"borrowed_at,notnull"`
	DueAt      time.Time  `bun:"due_at,notnull"`
	ReturnedAt *time.Time `bun:"returned_at,nullzero"`
	Renewals   int        `bun:"renewals,notnull"`
	Timestamps

	Book *Book `bun:"rel:belongs-to,join:book_id=id"`
	User *User `bun:"rel:belongs-to,join:user_id=id"`
}

// IsOverdueAt reports whether an outstanding loan is past due at now.
func (l *Loan) IsOverdueAt(now time.Time) bool {
	return l.Status.Outstanding() && now.After(l.DueAt)
}

func (*Loan) Indexes() []database.IndexDefinition {
	return []database.IndexDefinition{
		{Table: "loans", Columns: []string{"user_id", "status"}},
		{Table: "loans", Columns: []string{"book_id", "status"}},
		{Table: "loans", Columns: []string{"due_at"}},
	}
}

func (*Loan) ForeignKeys() []database.ForeignKeyConstraint {
	return []database.ForeignKeyConstraint{
		{Table: "loans", Column: "book_id", ReferenceTable: "books", ReferenceColumn: "id", OnDelete: "restrict"},
		{Table: "loans", Column: "user_id", ReferenceTable: "users", ReferenceColumn: "id", OnDelete: "restrict"},
	}
}
