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
package dto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/libris/model"
	"github.com/tomoncle/libris/types"
)

func TestMapPageKeepsMetadata(t *testing.T) {
	books := []*model.Book{{ID: 1, Title: "a"}, {ID: 2, Title: "b"}}
	p := types.NewPagedResult(books, 12, 2, 5)

	out := MapPage(p, ToBookDTO)
	assert.Equal(t, 2, out.CurrentPage)
	assert.Equal(t, 3, out.TotalPages)
	assert.Equal(t, 12, out.TotalCount)
	assert.Equal(t, 5, out.PageSize)
	assert.True(t, out.HasNext)
	require.Len(t, out.Data, 2)
	assert.Equal(t, "b", out.Data[1].Title)
}

func TestMapPageNil(t *testing.T) {
	out := MapPage[model.Book](nil, ToBookDTO)
	assert.NotNil(t, out.Data)
	assert.Empty(t, out.Data)
}

func TestToBookDTO(t *testing.T) {
	publisher := int64(3)
	b := &model.Book{
		ID:          7,
		Title:       "Dune",
		Description: "*spice*",
		AuthorID:    1,
		PublisherID: &publisher,
		Author:      &model.Author{Catalogued: model.Catalogued{ID: 1, Name: "Herbert"}},
		Contributors: []*model.BookContributor{
			{ContributorID: 9, Role: model.RoleIllustrator, Contributor: &model.Contributor{Catalogued: model.Catalogued{ID: 9, Name: "Schoenherr"}}},
		},
	}
	out := ToBookDTO(b)
	assert.Contains(t, out.DescriptionHTML, "<em>spice</em>")
	require.NotNil(t, out.Author)
	assert.Equal(t, "Herbert", out.Author.Name)
	assert.Nil(t, out.Publisher)
	assert.Equal(t, &publisher, out.PublisherID)
	require.Len(t, out.Contributors, 1)
	assert.Equal(t, ContributorDTO{ID: 9, Name: "Schoenherr", Role: "illustrator"}, out.Contributors[0])
}

func TestCatalogMapper(t *testing.T) {
	c := &model.Category{Catalogued: model.Catalogued{ID: 4, Name: "Poetry", IsActive: true}}
	out := CatalogMapper[model.Category]()(c)
	assert.Equal(t, int64(4), out.ID)
	assert.Equal(t, "Poetry", out.Name)
	assert.True(t, out.IsActive)
}

func TestUserDTOHidesPassword(t *testing.T) {
	u := &model.User{ID: 1, Username: "ada", PasswordHash: "secret-hash"}
	raw, err := json.Marshal(ToUserDTO(u).WithRoles([]*model.Role{{Name: "admin"}}))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret-hash")
	assert.Contains(t, string(raw), `"roles":["admin"]`)
}

func TestToLoanDTO(t *testing.T) {
	l := &model.Loan{ID: 2, Status: model.LoanOverdue, Book: &model.Book{Title: "Dune"}}
	out := ToLoanDTO(l)
	assert.Equal(t, "overdue", out.Status)
	assert.Equal(t, "Dune", out.BookTitle)
	assert.Nil(t, out.ReturnedAt)
}
