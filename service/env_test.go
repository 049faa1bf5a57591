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
package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tomoncle/libris/database/dbtest"
	"github.com/tomoncle/libris/model"
	"github.com/uptrace/bun"
)

type testEnv struct {
	db      *bun.DB
	audit   *AuditService
	catalog *Catalog
	books   *BookService
	loans   *LoanService
	admin   *AdminService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := dbtest.Open(t)
	audit := NewAuditService(db)
	return &testEnv{
		db:      db,
		audit:   audit,
		catalog: NewCatalog(db, audit),
		books:   NewBookService(db, audit),
		loans:   NewLoanService(db, audit, DefaultLoanPolicy()),
		admin:   NewAdminService(db, audit),
	}
}

func (e *testEnv) author(t *testing.T, name string) *model.Author {
	t.Helper()
	a, err := e.catalog.Authors.Create(context.Background(), nil, CatalogInput{Name: name})
	require.NoError(t, err)
	return a
}

func (e *testEnv) category(t *testing.T, name string) *model.Category {
	t.Helper()
	c, err := e.catalog.Categories.Create(context.Background(), nil, CatalogInput{Name: name})
	require.NoError(t, err)
	return c
}

// book creates a book by a fresh author in a fresh category.
func (e *testEnv) book(t *testing.T, title string, copies int) *model.Book {
	t.Helper()
	a := e.author(t, "author of "+title)
	c := e.category(t, "category of "+title)
	b, err := e.books.Create(context.Background(), nil, BookInput{
		Title:       title,
		ISBN:        isbnFor(title),
		AuthorID:    a.ID,
		CategoryID:  c.ID,
		TotalCopies: copies,
	})
	require.NoError(t, err)
	return b
}

func (e *testEnv) user(t *testing.T, username string) *model.User {
	t.Helper()
	u, err := e.admin.CreateUser(context.Background(), nil, UserInput{
		Username: username,
		Email:    username + "@example.org",
		Password: "password-" + username,
	})
	require.NoError(t, err)
	return u
}

func isbnFor(title string) string {
	sum := 0
	for _, r := range title {
		sum = sum*31 + int(r)
		sum %= 1_000_000_000
	}
	return fmt.Sprintf("978%010d", sum)
}

func boolPtr(b bool) *bool { return &b }
