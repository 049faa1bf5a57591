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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/libris/model"
	"github.com/tomoncle/libris/types"
)

func TestContainsLikeEscapesWildcards(t *testing.T) {
	assert.Equal(t, "%100!%!_x!!%", containsLike("100%_x!"))
}

func TestActiveCategoriesSpecPaging(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	for i := 25; i >= 1; i-- {
		env.category(t, fmt.Sprintf("Genre %02d", i))
	}
	for i := 1; i <= 4; i++ {
		_, err := env.catalog.Categories.Create(ctx, nil, CatalogInput{Name: fmt.Sprintf("Retired %d", i), IsActive: boolPtr(false)})
		require.NoError(t, err)
	}

	spec, err := ActiveCategoriesSpec(ListQuery{})
	require.NoError(t, err)
	windowed, err := spec.ApplyPaging(10, 10)
	require.NoError(t, err)

	repo := env.catalog.Categories.svc
	got, err := repo.Find(ctx, windowed)
	require.NoError(t, err)
	require.Len(t, got, 10)
	assert.Equal(t, "Genre 11", got[0].Name)
	assert.Equal(t, "Genre 20", got[9].Name)

	page, err := env.catalog.Categories.List(ctx, ListQuery{Page: 2, PageSize: 10, Active: boolPtr(true)})
	require.NoError(t, err)
	assert.Equal(t, 25, page.TotalCount)
	assert.Equal(t, 3, page.TotalPages)
	assert.Len(t, page.Data, 10)
}

func TestActiveSpecMatchesInMemoryEvaluation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	for _, name := range []string{"Ursula Le Guin", "Ursula Vernon", "Octavia Butler", "100% Pulp"} {
		env.author(t, name)
	}
	_, err := env.catalog.Authors.SetActive(ctx, nil, 2, false)
	require.NoError(t, err)

	queries := []ListQuery{
		{Search: "ursula"},
		{Search: "ursula", Active: boolPtr(true)},
		{Search: "100%"},
		{Search: "%"},
		{IDs: []int64{1, 3}},
		{},
	}
	all, err := env.catalog.Authors.svc.All(ctx)
	require.NoError(t, err)
	mem := types.NewSliceExecutor(all)

	for _, q := range queries {
		spec, err := ActiveSpec[model.Author](q)
		require.NoError(t, err)
		fromDB, err := env.catalog.Authors.svc.Find(ctx, spec)
		require.NoError(t, err)
		fromMem, err := mem.Find(ctx, spec)
		require.NoError(t, err)
		assert.Equal(t, authorNames(fromMem), authorNames(fromDB), "query %+v", q)
	}
}

func TestBooksSearchSpec(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	dune := env.book(t, "Dune", 2)
	env.book(t, "Hyperion", 0)
	env.book(t, "Dune Messiah", 1)

	page, err := env.books.List(ctx, BookQuery{ListQuery: ListQuery{Search: "dune"}})
	require.NoError(t, err)
	require.Equal(t, 2, page.TotalCount)
	assert.Equal(t, "Dune", page.Data[0].Title)
	assert.Equal(t, "Dune Messiah", page.Data[1].Title)
	require.NotNil(t, page.Data[0].Author)
	assert.Equal(t, "author of Dune", page.Data[0].Author.Name)

	page, err = env.books.List(ctx, BookQuery{Author: "of hyper"})
	require.NoError(t, err)
	require.Equal(t, 1, page.TotalCount)
	assert.Equal(t, "Hyperion", page.Data[0].Title)

	page, err = env.books.List(ctx, BookQuery{Available: true, CategoryID: dune.CategoryID})
	require.NoError(t, err)
	require.Equal(t, 1, page.TotalCount)

	page, err = env.books.List(ctx, BookQuery{ListQuery: ListQuery{Search: dune.ISBN[3:9]}})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, page.TotalCount, 1)
}

func TestAuditSpecRejectsInvertedWindow(t *testing.T) {
	now := utcNow()
	_, err := AuditSpec(AuditQuery{From: now, To: now})
	assert.True(t, types.IsInvalidArgument(err))
}

func authorNames(as []*model.Author) []string {
	out := make([]string, len(as))
	for i, a := range as {
		out[i] = a.Name
	}
	return out
}
