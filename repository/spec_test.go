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
package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/libris/database/dbtest"
	"github.com/tomoncle/libris/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

type widget struct {
	bun.BaseModel `bun:"table:widgets,alias:w"`

	ID     int64  `bun:"id,pk,autoincrement"`
	Name   string `bun:"name,notnull,unique"`
	Weight int    `bun:"weight,notnull"`
	Active bool   `bun:"active,notnull"`
}

func byName() types.Ordering[widget] {
	return types.OrderBy("name", func(w *widget) string { return w.Name })
}

func activeSpec(t *testing.T) *types.Specification[widget] {
	spec, err := types.NewSpecification(func(w *widget) bool { return w.Active }).
		Where("?TableAlias.active = ?", true)
	require.NoError(t, err)
	return spec.ApplyOrderBy(byName())
}

// newWidgetRepo stores 25 active widgets w01..w25 and 5 inactive x01..x05,
// inserted in reverse name order.
func newWidgetRepo(t *testing.T) Repository[widget] {
	db := dbtest.OpenWith(t, (*widget)(nil))
	repo := NewRepository[widget](db)
	var rows []*widget
	for i := 25; i >= 1; i-- {
		rows = append(rows, &widget{Name: fmt.Sprintf("w%02d", i), Weight: i % 4, Active: true})
	}
	for i := 5; i >= 1; i-- {
		rows = append(rows, &widget{Name: fmt.Sprintf("x%02d", i), Weight: i, Active: false})
	}
	require.NoError(t, repo.Create(context.Background(), rows...))
	return repo
}

func names(ws []*widget) []string {
	out := make([]string, len(ws))
	for i, w := range ws {
		out[i] = w.Name
	}
	return out
}

func TestFindPushdownWindow(t *testing.T) {
	repo := newWidgetRepo(t)
	spec, err := activeSpec(t).ApplyPaging(10, 10)
	require.NoError(t, err)
	require.True(t, spec.Pushdown())

	got, err := repo.Find(context.Background(), spec)
	require.NoError(t, err)
	want := make([]string, 0, 10)
	for i := 11; i <= 20; i++ {
		want = append(want, fmt.Sprintf("w%02d", i))
	}
	assert.Equal(t, want, names(got))

	n, err := repo.Count(context.Background(), spec)
	require.NoError(t, err)
	assert.Equal(t, 25, n)
}

func TestFindTakeZero(t *testing.T) {
	repo := newWidgetRepo(t)
	spec, err := activeSpec(t).ApplyPaging(0, 0)
	require.NoError(t, err)
	got, err := repo.Find(context.Background(), spec)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestFindSkipPastEnd(t *testing.T) {
	repo := newWidgetRepo(t)
	spec, err := activeSpec(t).ApplyPaging(40, 10)
	require.NoError(t, err)
	got, err := repo.Find(context.Background(), spec)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFindPageTotals(t *testing.T) {
	repo := newWidgetRepo(t)
	ctx := context.Background()

	page, err := repo.FindPage(ctx, activeSpec(t), types.NewDefaultPageRequest(2, 10))
	require.NoError(t, err)
	assert.Equal(t, 25, page.TotalCount)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 2, page.CurrentPage)
	assert.Len(t, page.Data, 10)
	assert.Equal(t, "w11", page.Data[0].Name)

	last, err := repo.FindPage(ctx, activeSpec(t), types.NewDefaultPageRequest(9, 10))
	require.NoError(t, err)
	assert.Equal(t, 3, last.CurrentPage)
	assert.Equal(t, 25, last.TotalCount)
	assert.Len(t, last.Data, 5)
}

func TestFindPageEmpty(t *testing.T) {
	repo := NewRepository[widget](dbtest.OpenWith(t, (*widget)(nil)))
	page, err := repo.FindPage(context.Background(), activeSpec(t), types.NewDefaultPageRequest(3, 10))
	require.NoError(t, err)
	assert.Equal(t, 0, page.TotalCount)
	assert.Equal(t, 0, page.TotalPages)
	assert.Equal(t, 1, page.CurrentPage)
	assert.Empty(t, page.Data)
}

func TestFindInMemoryFallbackMatchesSliceExecutor(t *testing.T) {
	repo := newWidgetRepo(t)
	ctx := context.Background()

	heavy := types.NewSpecification(func(w *widget) bool { return w.Weight >= 2 }).
		ApplyOrderBy(types.OrderBy("", func(w *widget) int { return w.Weight }))
	spec, err := heavy.ApplyPaging(3, 7)
	require.NoError(t, err)
	require.False(t, spec.Pushdown())

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	want, err := types.NewSliceExecutor(all).Find(ctx, spec)
	require.NoError(t, err)

	got, err := repo.Find(ctx, spec)
	require.NoError(t, err)
	assert.Equal(t, names(want), names(got))
	assert.Len(t, got, 7)
	for i := 1; i < len(got); i++ {
		assert.LessOrEqual(t, got[i-1].Weight, got[i].Weight)
	}

	n, err := repo.Count(ctx, spec)
	require.NoError(t, err)
	wantN, err := types.NewSliceExecutor(all).Count(ctx, spec)
	require.NoError(t, err)
	assert.Equal(t, wantN, n)
}

func TestFindUnorderedWindowIsDeterministic(t *testing.T) {
	repo := newWidgetRepo(t)
	spec, err := types.MatchAll[widget]().ApplyPaging(0, 5)
	require.NoError(t, err)
	first, err := repo.Find(context.Background(), spec)
	require.NoError(t, err)
	second, err := repo.Find(context.Background(), spec)
	require.NoError(t, err)
	assert.Len(t, first, 5)
	assert.Equal(t, names(first), names(second))
}

func TestFindWithTx(t *testing.T) {
	repo := newWidgetRepo(t)
	err := repo.DB().RunInTx(context.Background(), nil, func(ctx context.Context, tx bun.Tx) error {
		require.NoError(t, repo.CreateWithTx(ctx, &tx, &widget{Name: "w26", Active: true}))
		n, err := repo.CountWithTx(ctx, &tx, activeSpec(t))
		require.NoError(t, err)
		assert.Equal(t, 26, n)
		got, err := repo.FindWithTx(ctx, &tx, activeSpec(t))
		require.NoError(t, err)
		assert.Equal(t, "w26", got[len(got)-1].Name)
		return errors.New("rollback")
	})
	require.Error(t, err)

	n, err := repo.Count(context.Background(), activeSpec(t))
	require.NoError(t, err)
	assert.Equal(t, 25, n)
}

func TestCountPropagatesDriverError(t *testing.T) {
	sqldb, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqldb.Close()

	boom := errors.New("connection reset")
	mock.ExpectQuery(`SELECT count\(\*\) FROM "widgets"`).WillReturnError(boom)

	repo := NewRepository[widget](bun.NewDB(sqldb, pgdialect.New()))
	_, err = repo.Count(context.Background(), activeSpec(t))
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "count widget")
	assert.NoError(t, mock.ExpectationsWereMet())
}
