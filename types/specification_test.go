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

package types

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type shelfItem struct {
	Name   string
	Active bool
}

func activeItem(i *shelfItem) bool { return i.Active }

func byName() Ordering[shelfItem] {
	return OrderBy("name", func(i *shelfItem) string { return i.Name })
}

// 25 active items inserted in reverse name order plus 5 inactive ones.
func shelf() []*shelfItem {
	items := make([]*shelfItem, 0, 30)
	for i := 25; i >= 1; i-- {
		items = append(items, &shelfItem{Name: fmt.Sprintf("item-%02d", i), Active: true})
	}
	for i := 0; i < 5; i++ {
		items = append(items, &shelfItem{Name: fmt.Sprintf("aaa-hidden-%d", i)})
	}
	return items
}

func TestApplyPagingReturnsRankedWindow(t *testing.T) {
	spec, err := NewSpecification(activeItem).ApplyOrderBy(byName()).ApplyPaging(10, 10)
	require.NoError(t, err)

	got := Evaluate(spec, shelf())
	require.Len(t, got, 10)
	for i, item := range got {
		assert.Equal(t, fmt.Sprintf("item-%02d", i+11), item.Name)
	}
}

func TestApplyPagingRejectsNegativeValues(t *testing.T) {
	_, err := MatchAll[shelfItem]().ApplyPaging(-1, 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidArgument))

	_, err = MatchAll[shelfItem]().ApplyPaging(0, -3)
	assert.True(t, IsInvalidArgument(err))

	var invalid *InvalidArgumentError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, "take", invalid.Field)
}

func TestWhereRejectsEmptySchema(t *testing.T) {
	_, err := MatchAll[shelfItem]().Where("  ")
	assert.True(t, IsInvalidArgument(err))
}

func TestNoPredicateSmallSource(t *testing.T) {
	spec, err := MatchAll[shelfItem]().ApplyPaging(0, 5)
	require.NoError(t, err)

	items := []*shelfItem{{Name: "c"}, {Name: "a"}, {Name: "b"}}
	got := Evaluate(spec, items)
	require.Len(t, got, 3)
	assert.Equal(t, "c", got[0].Name, "without ordering the input order is kept")
}

func TestHugeTakeReturnsRemainder(t *testing.T) {
	spec, err := MatchAll[shelfItem]().ApplyPaging(1, math.MaxInt)
	require.NoError(t, err)

	items := []*shelfItem{{Name: "a"}, {Name: "b"}, {Name: "c"}}
	got := Evaluate(spec, items)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].Name)
	assert.Equal(t, "c", got[1].Name)

	spec, err = MatchAll[shelfItem]().ApplyPaging(math.MaxInt, math.MaxInt)
	require.NoError(t, err)
	assert.Empty(t, Evaluate(spec, items))
}

func TestWindowSizeProperty(t *testing.T) {
	items := shelf()
	n := CountMatches(NewSpecification(activeItem), items)
	require.Equal(t, 25, n)

	for skip := 0; skip <= 30; skip++ {
		for take := 0; take <= 30; take++ {
			spec, err := NewSpecification(activeItem).ApplyPaging(skip, take)
			require.NoError(t, err)
			want := max(0, min(take, n-skip))
			assert.Len(t, Evaluate(spec, items), want, "skip=%d take=%d", skip, take)
		}
	}
}

func TestOrderingIsNonDecreasing(t *testing.T) {
	spec := MatchAll[shelfItem]().ApplyOrderBy(byName())
	got := Evaluate(spec, shelf())
	for i := 1; i < len(got); i++ {
		assert.LessOrEqual(t, got[i-1].Name, got[i].Name)
	}
}

func TestApplyOrderByReplacesPrevious(t *testing.T) {
	byLen := OrderBy("", func(i *shelfItem) int { return len(i.Name) })
	spec := MatchAll[shelfItem]().ApplyOrderBy(byLen).ApplyOrderBy(byName())
	require.NotNil(t, spec.Ordering())
	assert.Equal(t, "name", spec.Ordering().Column)
}

func TestBuildersDoNotMutateReceiver(t *testing.T) {
	base := NewSpecification(activeItem)
	paged, err := base.ApplyPaging(5, 5)
	require.NoError(t, err)
	ordered := base.ApplyOrderBy(byName()).WithRelations("Author")

	_, _, ok := base.Window()
	assert.False(t, ok)
	assert.Nil(t, base.Ordering())
	assert.Empty(t, base.Relations())

	skip, take, ok := paged.Window()
	assert.True(t, ok)
	assert.Equal(t, 5, skip)
	assert.Equal(t, 5, take)
	assert.Equal(t, []string{"Author"}, ordered.Relations())
}

func TestEvaluateIsIdempotent(t *testing.T) {
	items := shelf()
	spec, err := NewSpecification(activeItem).ApplyOrderBy(byName()).ApplyPaging(3, 7)
	require.NoError(t, err)
	assert.Equal(t, Evaluate(spec, items), Evaluate(spec, items))
}

func TestPushdown(t *testing.T) {
	assert.True(t, MatchAll[shelfItem]().Pushdown())
	assert.False(t, NewSpecification(activeItem).Pushdown())

	withSQL, err := NewSpecification(activeItem).Where("active = ?", true)
	require.NoError(t, err)
	assert.True(t, withSQL.ApplyOrderBy(byName()).Pushdown())

	memOnly := OrderBy("", func(i *shelfItem) string { return i.Name })
	assert.False(t, withSQL.ApplyOrderBy(memOnly).Pushdown())
}

func TestSliceExecutorHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewSliceExecutor(shelf()).Find(ctx, MatchAll[shelfItem]())
	assert.ErrorIs(t, err, context.Canceled)
}
