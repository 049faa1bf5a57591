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
)

func TestLibraryStats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	stats := NewStatsService(env.db)

	empty, err := stats.Library(ctx)
	require.NoError(t, err)
	assert.Equal(t, LibraryStats{}, *empty)

	a := env.book(t, "Neuromancer", 3)
	b := env.book(t, "Count Zero", 1)
	env.book(t, "Mona Lisa Overdrive", 2)
	u := env.user(t, "case")
	_, err = env.loans.Checkout(ctx, nil, u.ID, a.ID)
	require.NoError(t, err)
	_, err = env.books.SetActive(ctx, nil, b.ID, false)
	require.NoError(t, err)

	got, err := stats.Library(ctx)
	require.NoError(t, err)
	assert.Equal(t, LibraryStats{Titles: 2, Copies: 5, AvailableCopies: 4, Users: 1, ActiveLoans: 1}, *got)
}
