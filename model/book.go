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
	"github.com/tomoncle/libris/database"
	"github.com/uptrace/bun"
)

type Book struct {
	bun.BaseModel `bun:"table:books,alias:book"`

	ID              int64  `bun:"id,pk,autoincrement"`
	Title           string `bun:"title,notnull"`
	ISBN            string `bun:"isbn,notnull,unique"`
	Description     string `bun:"description"`
	PublishedYear   int    `bun:"published_year"`
	AuthorID        int64  `bun:"author_id,notnull"`
	PublisherID     *int64 `bun:"publisher_id,nullzero"`
	CategoryID      int64  `bun:"category_id,notnull"`
	TotalCopies     int    `bun:"total_copies,notnull"`
	AvailableCopies int    `bun:"available_copies,notnull"`
	IsActive        bool   `bun:"is_active,notnull"`
	Timestamps

	Author       *Author            `bun:"rel:belongs-to,join:author_id=id"`
	Publisher    *Publisher         `bun:"rel:belongs-to,join:publisher_id=id"`
	Category     *Category          `bun:"rel:belongs-to,join:category_id=id"`
	Contributors []*BookContributor `bun:"rel:has-many,join:id=book_id"`
}

// OnLoan is the number of copies currently lent out.
func (b *Book) OnLoan() int { return b.TotalCopies - b.AvailableCopies }

func (*Book) Indexes() []database.IndexDefinition {
	return []database.IndexDefinition{
		{Table: "books", Columns: []string{"author_id"}},
		{Table: "books", Columns: []string{"category_id"}},
		{Table: "books", Columns: []string{"publisher_id"}},
		{Table: "books", Columns: []string{"title"}},
	}
}

func (*Book) ForeignKeys() []database.ForeignKeyConstraint {
	return []database.ForeignKeyConstraint{
		{Table: "books", Column: "author_id", ReferenceTable: "authors", ReferenceColumn: "id", OnDelete: "restrict"},
		{Table: "books", Column: "publisher_id", ReferenceTable: "publishers", ReferenceColumn: "id", OnDelete: "set null"},
		{Table: "books", Column: "category_id", ReferenceTable: "categories", ReferenceColumn: "id", OnDelete: "restrict"},
	}
}

// BookContributor links a contributor to a book in a given role. A
// contributor may hold several roles on the same book.
type BookContributor struct {
	bun.BaseModel `bun:"table:book_contributors,alias:bc"`

	ID            int64           `bun:"id,pk,autoincrement"`
	BookID        int64           `bun:"book_id,notnull,unique:book_contributor_role"`
	ContributorID int64           `bun:"contributor_id,notnull,unique:book_contributor_role"`
	Role          ContributorRole `bun:"role,type:integer,notnull,unique:book_contributor_role"`

	Contributor *Contributor `bun:"rel:belongs-to,join:contributor_id=id"`
}

func (*BookContributor) ForeignKeys() []database.ForeignKeyConstraint {
	return []database.ForeignKeyConstraint{
		{Table: "book_contributors", Column: "book_id", ReferenceTable: "books", ReferenceColumn: "id", OnDelete: "cascade"},
		{Table: "book_contributors", Column: "contributor_id", ReferenceTable: "contributors", ReferenceColumn: "id", OnDelete: "cascade"},
	}
}
