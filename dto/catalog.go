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
	"time"

	"github.com/tomoncle/libris/model"
	"github.com/tomoncle/libris/utils"
)

type CatalogDTO struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ToCatalogDTO maps any directory entry: author, category, publisher or
// contributor.
func ToCatalogDTO(c *model.Catalogued) CatalogDTO {
	return CatalogDTO{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		IsActive:    c.IsActive,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

// CatalogMapper adapts ToCatalogDTO to a concrete directory model.
func CatalogMapper[T any, PT model.CatalogEntity[T]]() func(*T) CatalogDTO {
	return func(item *T) CatalogDTO { return ToCatalogDTO(PT(item).Base()) }
}

// RefDTO is the short form of a related record.
type RefDTO struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func toRef(c *model.Catalogued) *RefDTO {
	if c == nil || c.ID == 0 {
		return nil
	}
	return &RefDTO{ID: c.ID, Name: c.Name}
}

type ContributorDTO struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

type BookDTO struct {
	ID              int64            `json:"id"`
	Title           string           `json:"title"`
	ISBN            string           `json:"isbn"`
	Description     string           `json:"description"`
	DescriptionHTML string           `json:"description_html"`
	PublishedYear   int              `json:"published_year,omitempty"`
	AuthorID        int64            `json:"author_id"`
	Author          *RefDTO          `json:"author,omitempty"`
	PublisherID     *int64           `json:"publisher_id,omitempty"`
	Publisher       *RefDTO          `json:"publisher,omitempty"`
	CategoryID      int64            `json:"category_id"`
	Category        *RefDTO          `json:"category,omitempty"`
	TotalCopies     int              `json:"total_copies"`
	AvailableCopies int              `json:"available_copies"`
	IsActive        bool             `json:"is_active"`
	Contributors    []ContributorDTO `json:"contributors,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// ToBookDTO maps a book with whatever relations were loaded. The markdown
// description is rendered to sanitized HTML; a rendering failure leaves
// the plain text with tags stripped.
func ToBookDTO(b *model.Book) BookDTO {
	html, err := utils.MarkdownToHTML(b.Description)
	if err != nil {
		html = utils.StripHTML(b.Description)
	}
	out := BookDTO{
		ID:              b.ID,
		Title:           b.Title,
		ISBN:            b.ISBN,
		Description:     b.Description,
		DescriptionHTML: html,
		PublishedYear:   b.PublishedYear,
		AuthorID:        b.AuthorID,
		PublisherID:     b.PublisherID,
		CategoryID:      b.CategoryID,
		TotalCopies:     b.TotalCopies,
		AvailableCopies: b.AvailableCopies,
		IsActive:        b.IsActive,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
	if b.Author != nil {
		out.Author = toRef(&b.Author.Catalogued)
	}
	if b.Publisher != nil {
		out.Publisher = toRef(&b.Publisher.Catalogued)
	}
	if b.Category != nil {
		out.Category = toRef(&b.Category.Catalogued)
	}
	for _, bc := range b.Contributors {
		c := ContributorDTO{ID: bc.ContributorID, Role: bc.Role.Name()}
		if bc.Contributor != nil {
			c.Name = bc.Contributor.Name
		}
		out.Contributors = append(out.Contributors, c)
	}
	return out
}
