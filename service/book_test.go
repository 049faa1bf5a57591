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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/libris/model"
	"github.com/tomoncle/libris/types"
)

func TestBookCreateValidates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.author(t, "Stanislaw Lem")
	c := env.category(t, "Science Fiction")

	valid := BookInput{Title: "Fiasco", ISBN: "978-0-15-630600-2", AuthorID: a.ID, CategoryID: c.ID, TotalCopies: 3}
	b, err := env.books.Create(ctx, nil, valid)
	require.NoError(t, err)
	assert.Equal(t, "9780156306002", b.ISBN)
	assert.Equal(t, 3, b.AvailableCopies)

	cases := map[string]func(in *BookInput){
		"empty title":      func(in *BookInput) { in.Title = " " },
		"short isbn":       func(in *BookInput) { in.ISBN = "12345" },
		"negative copies":  func(in *BookInput) { in.TotalCopies = -1 },
		"missing author":   func(in *BookInput) { in.AuthorID = 0 },
		"unknown author":   func(in *BookInput) { in.AuthorID = 999 },
		"unknown category": func(in *BookInput) { in.CategoryID = 999 },
		"future year":      func(in *BookInput) { in.PublishedYear = 9999 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := valid
			in.ISBN = "0-306-40615-2"
			mutate(&in)
			_, err := env.books.Create(ctx, nil, in)
			assert.True(t, types.IsInvalidArgument(err), "got %v", err)
		})
	}

	dup := valid
	dup.Title = "Fiasco (reprint)"
	_, err = env.books.Create(ctx, nil, dup)
	assert.True(t, types.IsConflict(err), "got %v", err)
}

func TestBookUpdateKeepsCopiesOnLoan(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	b := env.book(t, "The Cyberiad", 2)
	u := env.user(t, "trurl")

	_, err := env.loans.Checkout(ctx, nil, u.ID, b.ID)
	require.NoError(t, err)

	in := BookInput{Title: b.Title, ISBN: b.ISBN, AuthorID: b.AuthorID, CategoryID: b.CategoryID}
	_, err = env.books.Update(ctx, nil, b.ID, in)
	assert.True(t, types.IsConflict(err), "got %v", err)

	in.TotalCopies = 5
	updated, err := env.books.Update(ctx, nil, b.ID, in)
	require.NoError(t, err)
	assert.Equal(t, 5, updated.TotalCopies)
	assert.Equal(t, 4, updated.AvailableCopies)

	err = env.books.Delete(ctx, nil, b.ID)
	assert.True(t, types.IsConflict(err), "got %v", err)
}

func TestBookContributors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	b := env.book(t, "Master and Margarita", 1)
	tr, err := env.catalog.Contributors.Create(ctx, nil, CatalogInput{Name: "Mirra Ginsburg"})
	require.NoError(t, err)

	link, err := env.books.AddContributor(ctx, nil, b.ID, tr.ID, model.RoleTranslator)
	require.NoError(t, err)
	assert.Equal(t, "Mirra Ginsburg", link.Contributor.Name)

	_, err = env.books.AddContributor(ctx, nil, b.ID, tr.ID, model.RoleTranslator)
	assert.True(t, types.IsConflict(err), "got %v", err)
	_, err = env.books.AddContributor(ctx, nil, b.ID, tr.ID, model.RoleEditor)
	require.NoError(t, err)
	_, err = env.books.AddContributor(ctx, nil, b.ID, tr.ID, model.ContributorRole(42))
	assert.True(t, types.IsInvalidArgument(err))
	_, err = env.books.AddContributor(ctx, nil, b.ID, 999, model.RoleEditor)
	assert.True(t, types.IsNotFound(err))

	got, err := env.books.Get(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, got.Contributors, 2)
	assert.Equal(t, model.RoleTranslator, got.Contributors[0].Role)
	require.NotNil(t, got.Contributors[0].Contributor)
	assert.Equal(t, tr.ID, got.Contributors[0].Contributor.ID)
	require.NotNil(t, got.Category)

	err = env.catalog.Contributors.Delete(ctx, nil, tr.ID)
	assert.True(t, types.IsConflict(err))

	require.NoError(t, env.books.RemoveContributor(ctx, nil, b.ID, tr.ID, model.RoleEditor))
	err = env.books.RemoveContributor(ctx, nil, b.ID, tr.ID, model.RoleEditor)
	assert.True(t, types.IsNotFound(err))

	require.NoError(t, env.books.Delete(ctx, nil, b.ID))
	links, err := env.books.Contributors(ctx, b.ID)
	require.NoError(t, err)
	assert.Empty(t, links)
}
