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
	"slices"
	"strings"
	"time"

	"github.com/tomoncle/libris/model"
	"github.com/tomoncle/libris/types"
	"github.com/uptrace/bun"
)

// ListQuery holds the list parameters shared by every list endpoint.
type ListQuery struct {
	Page     int
	PageSize int
	Search   string
	Active   *bool
	IDs      []int64
}

func (q ListQuery) PageRequest() *types.PageRequest {
	return types.NewDefaultPageRequest(q.Page, q.PageSize)
}

func (q ListQuery) search() string {
	return strings.ToLower(strings.TrimSpace(q.Search))
}

// clauses accumulates the SQL rendition of a predicate.
type clauses struct {
	conds []string
	args  []interface{}
}

func (c *clauses) add(cond string, args ...interface{}) {
	c.conds = append(c.conds, cond)
	c.args = append(c.args, args...)
}

// containsLike is a LIKE pattern matching s anywhere. '!' escapes the
// wildcards so user input is matched literally.
func containsLike(s string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return "%" + r.Replace(s) + "%"
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), needle)
}

// ActiveSpec selects directory entries by activity, id and name search,
// ordered by name.
func ActiveSpec[T any, PT model.CatalogEntity[T]](q ListQuery) (*types.Specification[T], error) {
	search := q.search()
	var c clauses
	if q.Active != nil {
		c.add("?TableAlias.is_active = ?", *q.Active)
	}
	if len(q.IDs) > 0 {
		c.add("?TableAlias.id IN (?)", bun.In(q.IDs))
	}
	if search != "" {
		c.add("LOWER(?TableAlias.name) LIKE ? ESCAPE '!'", containsLike(search))
	}
	spec := types.NewSpecification(func(item *T) bool {
		b := PT(item).Base()
		if q.Active != nil && b.IsActive != *q.Active {
			return false
		}
		if len(q.IDs) > 0 && !slices.Contains(q.IDs, b.ID) {
			return false
		}
		return search == "" || containsFold(b.Name, search)
	})
	spec = spec.ApplyOrderBy(types.OrderBy("name", func(item *T) string { return PT(item).Base().Name }))
	return where(spec, c)
}

// ActiveCategoriesSpec selects the active categories.
func ActiveCategoriesSpec(q ListQuery) (*types.Specification[model.Category], error) {
	active := true
	q.Active = &active
	return ActiveSpec[model.Category](q)
}

// BookQuery narrows a book listing.
type BookQuery struct {
	ListQuery
	Author      string
	AuthorID    int64
	CategoryID  int64
	PublisherID int64
	Available   bool
}

// BooksSearchSpec matches Search against title and ISBN and Author against
// the author's name, ordered by title. Author, publisher and category are
// eager-loaded.
func BooksSearchSpec(q BookQuery) (*types.Specification[model.Book], error) {
	search := q.search()
	author := strings.ToLower(strings.TrimSpace(q.Author))
	var c clauses
	if q.Active != nil {
		c.add("?TableAlias.is_active = ?", *q.Active)
	}
	if len(q.IDs) > 0 {
		c.add("?TableAlias.id IN (?)", bun.In(q.IDs))
	}
	if search != "" {
		pattern := containsLike(search)
		c.add("(LOWER(?TableAlias.title) LIKE ? ESCAPE '!' OR LOWER(?TableAlias.isbn) LIKE ? ESCAPE '!')", pattern, pattern)
	}
	if author != "" {
		c.add("?TableAlias.author_id IN (SELECT a.id FROM authors AS a WHERE LOWER(a.name) LIKE ? ESCAPE '!')", containsLike(author))
	}
	if q.AuthorID > 0 {
		c.add("?TableAlias.author_id = ?", q.AuthorID)
	}
	if q.CategoryID > 0 {
		c.add("?TableAlias.category_id = ?", q.CategoryID)
	}
	if q.PublisherID > 0 {
		c.add("?TableAlias.publisher_id = ?", q.PublisherID)
	}
	if q.Available {
		c.add("?TableAlias.available_copies > 0")
	}
	spec := types.NewSpecification(func(b *model.Book) bool {
		switch {
		case q.Active != nil && b.IsActive != *q.Active,
			len(q.IDs) > 0 && !slices.Contains(q.IDs, b.ID),
			search != "" && !containsFold(b.Title, search) && !containsFold(b.ISBN, search),
			author != "" && (b.Author == nil || !containsFold(b.Author.Name, author)),
			q.AuthorID > 0 && b.AuthorID != q.AuthorID,
			q.CategoryID > 0 && b.CategoryID != q.CategoryID,
			q.PublisherID > 0 && (b.PublisherID == nil || *b.PublisherID != q.PublisherID),
			q.Available && b.AvailableCopies <= 0:
			return false
		}
		return true
	})
	spec = spec.
		ApplyOrderBy(types.OrderBy("title", func(b *model.Book) string { return b.Title })).
		WithRelations("Author", "Publisher", "Category")
	return where(spec, c)
}

// LoanQuery narrows a loan listing.
type LoanQuery struct {
	ListQuery
	UserID    int64
	BookID    int64
	Statuses  []model.LoanStatus
	DueBefore time.Time
}

// LoansSpec selects loans ordered by borrow time, with book and user
// loaded.
func LoansSpec(q LoanQuery) (*types.Specification[model.Loan], error) {
	var c clauses
	if len(q.IDs) > 0 {
		c.add("?TableAlias.id IN (?)", bun.In(q.IDs))
	}
	if q.UserID > 0 {
		c.add("?TableAlias.user_id = ?", q.UserID)
	}
	if q.BookID > 0 {
		c.add("?TableAlias.book_id = ?", q.BookID)
	}
	if len(q.Statuses) > 0 {
		c.add("?TableAlias.status IN (?)", bun.In(q.Statuses))
	}
	if !q.DueBefore.IsZero() {
		c.add("?TableAlias.due_at < ?", q.DueBefore.UTC())
	}
	spec := types.NewSpecification(func(l *model.Loan) bool {
		switch {
		case len(q.IDs) > 0 && !slices.Contains(q.IDs, l.ID),
			q.UserID > 0 && l.UserID != q.UserID,
			q.BookID > 0 && l.BookID != q.BookID,
			len(q.Statuses) > 0 && !slices.Contains(q.Statuses, l.Status),
			!q.DueBefore.IsZero() && !l.DueAt.Before(q.DueBefore):
			return false
		}
		return true
	})
	spec = spec.
		ApplyOrderBy(types.OrderBy("borrowed_at", func(l *model.Loan) int64 { return l.BorrowedAt.UnixNano() })).
		WithRelations("Book", "User")
	return where(spec, c)
}

// AuditQuery narrows the audit trail. From is inclusive, To exclusive.
type AuditQuery struct {
	ListQuery
	EntityType string
	EntityID   int64
	ActorID    int64
	Action     string
	From       time.Time
	To         time.Time
}

// AuditSpec selects audit entries in chronological order.
func AuditSpec(q AuditQuery) (*types.Specification[model.AuditEntry], error) {
	if !q.From.IsZero() && !q.To.IsZero() && !q.From.Before(q.To) {
		return nil, types.NewInvalidArgument("to", "must be after from")
	}
	var c clauses
	if q.EntityType != "" {
		c.add("?TableAlias.entity_type = ?", q.EntityType)
	}
	if q.EntityID > 0 {
		c.add("?TableAlias.entity_id = ?", q.EntityID)
	}
	if q.ActorID > 0 {
		c.add("?TableAlias.actor_id = ?", q.ActorID)
	}
	if q.Action != "" {
		c.add("?TableAlias.action = ?", q.Action)
	}
	if !q.From.IsZero() {
		c.add("?TableAlias.created_at >= ?", q.From.UTC())
	}
	if !q.To.IsZero() {
		c.add("?TableAlias.created_at < ?", q.To.UTC())
	}
	spec := types.NewSpecification(func(e *model.AuditEntry) bool {
		switch {
		case q.EntityType != "" && e.EntityType != q.EntityType,
			q.EntityID > 0 && e.EntityID != q.EntityID,
			q.ActorID > 0 && (e.ActorID == nil || *e.ActorID != q.ActorID),
			q.Action != "" && e.Action != q.Action,
			!q.From.IsZero() && e.CreatedAt.Before(q.From),
			!q.To.IsZero() && !e.CreatedAt.Before(q.To):
			return false
		}
		return true
	})
	spec = spec.ApplyOrderBy(types.OrderBy("created_at", func(e *model.AuditEntry) int64 { return e.CreatedAt.UnixNano() }))
	return where(spec, c)
}

// UserSpec matches Search against username, email and display name.
func UserSpec(q ListQuery) (*types.Specification[model.User], error) {
	search := q.search()
	var c clauses
	if q.Active != nil {
		c.add("?TableAlias.is_active = ?", *q.Active)
	}
	if search != "" {
		p := containsLike(search)
		c.add("(LOWER(?TableAlias.username) LIKE ? ESCAPE '!' OR LOWER(?TableAlias.email) LIKE ? ESCAPE '!' OR LOWER(?TableAlias.display_name) LIKE ? ESCAPE '!')", p, p, p)
	}
	spec := types.NewSpecification(func(u *model.User) bool {
		if q.Active != nil && u.IsActive != *q.Active {
			return false
		}
		return search == "" || containsFold(u.Username, search) ||
			containsFold(u.Email, search) || containsFold(u.DisplayName, search)
	})
	spec = spec.ApplyOrderBy(types.OrderBy("username", func(u *model.User) string { return u.Username }))
	return where(spec, c)
}

// where attaches the accumulated clauses. Without clauses the predicate
// accepts everything and the specification stays pushdown-capable as match-all.
func where[T any](spec *types.Specification[T], c clauses) (*types.Specification[T], error) {
	if len(c.conds) == 0 {
		out := types.MatchAll[T]().WithRelations(spec.Relations()...)
		if o := spec.Ordering(); o != nil {
			out = out.ApplyOrderBy(*o)
		}
		return out, nil
	}
	return spec.Where(strings.Join(c.conds, " AND "), c.args...)
}
