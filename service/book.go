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
	"strings"
	"time"

	"github.com/tomoncle/libris"
	"github.com/tomoncle/libris/model"
	"github.com/tomoncle/libris/types"
	"github.com/uptrace/bun"
)

const bookEntity = "book"

// BookInput is the writable part of a book. A nil IsActive means active on
// create and unchanged on update.
type BookInput struct {
	Title         string `json:"title"`
	ISBN          string `json:"isbn"`
	Description   string `json:"description"`
	PublishedYear int    `json:"published_year"`
	AuthorID      int64  `json:"author_id"`
	PublisherID   *int64 `json:"publisher_id"`
	CategoryID    int64  `json:"category_id"`
	TotalCopies   int    `json:"total_copies"`
	IsActive      *bool  `json:"is_active"`
}

func (in *BookInput) normalize() error {
	in.Title = strings.TrimSpace(in.Title)
	in.ISBN = strings.ReplaceAll(strings.TrimSpace(in.ISBN), "-", "")
	switch {
	case in.Title == "":
		return types.NewInvalidArgument("title", "is required")
	case len(in.Title) > maxNameLength:
		return types.NewInvalidArgument("title", fmt.Sprintf("must be at most %d characters", maxNameLength))
	case len(in.ISBN) != 10 && len(in.ISBN) != 13:
		return types.NewInvalidArgument("isbn", "must have 10 or 13 characters")
	case in.AuthorID <= 0:
		return types.NewInvalidArgument("author_id", "is required")
	case in.CategoryID <= 0:
		return types.NewInvalidArgument("category_id", "is required")
	case in.TotalCopies < 0:
		return types.NewInvalidArgument("total_copies", "must not be negative")
	case in.PublishedYear < 0 || in.PublishedYear > time.Now().Year()+1:
		return types.NewInvalidArgument("published_year", "is out of range")
	}
	if in.PublisherID != nil && *in.PublisherID <= 0 {
		in.PublisherID = nil
	}
	return nil
}

type BookService struct {
	books libris.Service[model.Book]
	audit *AuditService
}

func NewBookService(db *bun.DB, audit *AuditService) *BookService {
	return &BookService{books: libris.NewService[model.Book](db), audit: audit}
}

func (s *BookService) List(ctx context.Context, q BookQuery) (*types.PagedResult[model.Book], error) {
	spec, err := BooksSearchSpec(q)
	if err != nil {
		return nil, err
	}
	return s.books.FindPage(ctx, spec, q.PageRequest())
}

// Get loads the book with author, publisher, category and contributors.
func (s *BookService) Get(ctx context.Context, id int64) (*model.Book, error) {
	spec, err := types.MatchAll[model.Book]().
		WithRelations("Author", "Publisher", "Category").
		Where("?TableAlias.id = ?", id)
	if err != nil {
		return nil, err
	}
	found, err := s.books.Find(ctx, spec)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, types.NewNotFound(bookEntity, id)
	}
	book := found[0]
	book.Contributors, err = s.Contributors(ctx, id)
	if err != nil {
		return nil, err
	}
	return book, nil
}

// Contributors lists the contributor links of a book with the contributor
// loaded.
func (s *BookService) Contributors(ctx context.Context, bookID int64) ([]*model.BookContributor, error) {
	links := make([]*model.BookContributor, 0)
	err := s.books.SelectBuilder().
		Model(&links).
		Relation("Contributor").
		Where("?TableAlias.book_id = ?", bookID).
		OrderExpr("?TableAlias.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list contributors of book %d: %w", bookID, err)
	}
	return links, nil
}

func (s *BookService) Create(ctx context.Context, actor *int64, in BookInput) (*model.Book, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	book := &model.Book{
		Title:           in.Title,
		ISBN:            in.ISBN,
		Description:     in.Description,
		PublishedYear:   in.PublishedYear,
		AuthorID:        in.AuthorID,
		PublisherID:     in.PublisherID,
		CategoryID:      in.CategoryID,
		TotalCopies:     in.TotalCopies,
		AvailableCopies: in.TotalCopies,
		IsActive:        in.IsActive == nil || *in.IsActive,
	}
	err := s.books.RunInTx(ctx, func(ctx context.Context, tx *bun.Tx) error {
		if err := checkBookReferences(ctx, tx, in); err != nil {
			return err
		}
		if err := s.books.SaveWithTx(ctx, tx, book); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, actor, ActionCreate, bookEntity, book.ID,
			types.JsonObject{"title": book.Title, "isbn": book.ISBN, "total_copies": book.TotalCopies})
	})
	if err != nil {
		return nil, err
	}
	return book, nil
}

// Update replaces the writable fields. Available copies follow the new
// total minus the copies currently on loan; a total below that is a
// conflict.
func (s *BookService) Update(ctx context.Context, actor *int64, id int64, in BookInput) (*model.Book, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	var book *model.Book
	err := s.books.RunInTx(ctx, func(ctx context.Context, tx *bun.Tx) (err error) {
		book, err = s.books.GetWithTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := checkBookReferences(ctx, tx, in); err != nil {
			return err
		}
		onLoan, err := outstandingLoans(ctx, tx, "book_id", id)
		if err != nil {
			return err
		}
		if in.TotalCopies < onLoan {
			return types.NewConflict(bookEntity, fmt.Sprintf("%d copies are on loan", onLoan))
		}

		changes := types.JsonObject{}.
			Change("title", book.Title, in.Title).
			Change("isbn", book.ISBN, in.ISBN).
			Change("description", book.Description, in.Description).
			Change("published_year", book.PublishedYear, in.PublishedYear).
			Change("author_id", book.AuthorID, in.AuthorID).
			Change("publisher_id", ptrValue(book.PublisherID), ptrValue(in.PublisherID)).
			Change("category_id", book.CategoryID, in.CategoryID).
			Change("total_copies", book.TotalCopies, in.TotalCopies)
		book.Title, book.ISBN, book.Description = in.Title, in.ISBN, in.Description
		book.PublishedYear, book.AuthorID, book.PublisherID = in.PublishedYear, in.AuthorID, in.PublisherID
		book.CategoryID, book.TotalCopies = in.CategoryID, in.TotalCopies
		book.AvailableCopies = in.TotalCopies - onLoan
		if in.IsActive != nil {
			changes.Change("is_active", book.IsActive, *in.IsActive)
			book.IsActive = *in.IsActive
		}
		if len(changes) == 0 {
			return nil
		}
		if err := s.books.UpdateWithTx(ctx, tx, book); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, actor, ActionUpdate, bookEntity, id, changes)
	})
	if err != nil {
		return nil, err
	}
	return book, nil
}

func (s *BookService) SetActive(ctx context.Context, actor *int64, id int64, active bool) (*model.Book, error) {
	var book *model.Book
	err := s.books.RunInTx(ctx, func(ctx context.Context, tx *bun.Tx) (err error) {
		book, err = s.books.GetWithTx(ctx, tx, id)
		if err != nil || book.IsActive == active {
			return err
		}
		book.IsActive = active
		if err := s.books.UpdateWithTx(ctx, tx, book); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, actor, activationAction(active), bookEntity, id, nil)
	})
	if err != nil {
		return nil, err
	}
	return book, nil
}

// Delete removes a book and its contributor links. It is refused while
// copies are on loan.
func (s *BookService) Delete(ctx context.Context, actor *int64, id int64) error {
	return s.books.RunInTx(ctx, func(ctx context.Context, tx *bun.Tx) error {
		book, err := s.books.GetWithTx(ctx, tx, id)
		if err != nil {
			return err
		}
		onLoan, err := outstandingLoans(ctx, tx, "book_id", id)
		if err != nil {
			return err
		}
		if onLoan > 0 {
			return types.NewConflict(bookEntity, fmt.Sprintf("%d copies are on loan", onLoan))
		}
		if _, err := tx.NewDelete().Model((*model.BookContributor)(nil)).Where("book_id = ?", id).Exec(ctx); err != nil {
			return err
		}
		if err := s.books.DeleteWithTx(ctx, tx, id); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, actor, ActionDelete, bookEntity, id, types.JsonObject{"title": book.Title})
	})
}

// AddContributor links a contributor to a book in role.
func (s *BookService) AddContributor(ctx context.Context, actor *int64, bookID, contributorID int64, role model.ContributorRole) (*model.BookContributor, error) {
	if !role.IsValid() {
		return nil, types.NewInvalidArgument("role", "unknown contributor role")
	}
	link := &model.BookContributor{BookID: bookID, ContributorID: contributorID, Role: role}
	err := s.books.RunInTx(ctx, func(ctx context.Context, tx *bun.Tx) error {
		if _, err := s.books.GetWithTx(ctx, tx, bookID); err != nil {
			return err
		}
		contributor := new(model.Contributor)
		if err := tx.NewSelect().Model(contributor).Where("?TableAlias.id = ?", contributorID).Scan(ctx); err != nil {
			return notFoundOr(err, "contributor", contributorID)
		}
		if _, err := tx.NewInsert().Model(link).Exec(ctx); err != nil {
			return conflictOr(err, "book contributor", "contributor already has this role")
		}
		link.Contributor = contributor
		return s.audit.Record(ctx, tx, actor, ActionContributor, bookEntity, bookID,
			types.JsonObject{"added": contributorID, "role": role.Name()})
	})
	if err != nil {
		return nil, err
	}
	return link, nil
}

func (s *BookService) RemoveContributor(ctx context.Context, actor *int64, bookID, contributorID int64, role model.ContributorRole) error {
	return s.books.RunInTx(ctx, func(ctx context.Context, tx *bun.Tx) error {
		res, err := tx.NewDelete().
			Model((*model.BookContributor)(nil)).
			Where("book_id = ?", bookID).
			Where("contributor_id = ?", contributorID).
			Where("role = ?", role).
			Exec(ctx)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return types.NewNotFound("book contributor", fmt.Sprintf("%d/%d/%s", bookID, contributorID, role.Name()))
		}
		return s.audit.Record(ctx, tx, actor, ActionContributor, bookEntity, bookID,
			types.JsonObject{"removed": contributorID, "role": role.Name()})
	})
}

func checkBookReferences(ctx context.Context, db bun.IDB, in BookInput) error {
	checks := []struct {
		field string
		model interface{}
		id    *int64
	}{
		{"author_id", (*model.Author)(nil), &in.AuthorID},
		{"category_id", (*model.Category)(nil), &in.CategoryID},
		{"publisher_id", (*model.Publisher)(nil), in.PublisherID},
	}
	for _, c := range checks {
		if c.id == nil {
			continue
		}
		ok, err := db.NewSelect().Model(c.model).Where("?TableAlias.id = ?", *c.id).Exists(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return types.NewInvalidArgument(c.field, fmt.Sprintf("%d does not exist", *c.id))
		}
	}
	return nil
}

// outstandingLoans counts active and overdue loans with column = id.
func outstandingLoans(ctx context.Context, db bun.IDB, column string, id int64) (int, error) {
	return db.NewSelect().
		Model((*model.Loan)(nil)).
		Where("? = ?", bun.Ident(column), id).
		Where("status IN (?)", bun.In([]model.LoanStatus{model.LoanActive, model.LoanOverdue})).
		Count(ctx)
}

func ptrValue[V any](p *V) interface{} {
	if p == nil {
		return nil
	}
	return *p
}
