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

	"github.com/tomoncle/libris"
	"github.com/tomoncle/libris/model"
	"github.com/tomoncle/libris/types"
	"github.com/uptrace/bun"
)

const maxNameLength = 200

// CatalogInput is the writable part of a directory entry. A nil IsActive
// means active on create and unchanged on update.
type CatalogInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsActive    *bool  `json:"is_active"`
}

func (in CatalogInput) validate() (string, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return "", types.NewInvalidArgument("name", "is required")
	}
	if len(name) > maxNameLength {
		return "", types.NewInvalidArgument("name", fmt.Sprintf("must be at most %d characters", maxNameLength))
	}
	return name, nil
}

// Reference is a column of another table pointing at a directory entry.
type Reference struct {
	Table  string
	Column string
}

// DirectoryService maintains one of the simple catalog directories:
// authors, categories, publishers or contributors.
type DirectoryService[T any, PT model.CatalogEntity[T]] struct {
	svc        libris.Service[T]
	audit      *AuditService
	entityType string
	refs       []Reference
}

// NewDirectoryService creates the service. Deleting an entry is refused
// while any of refs still points at it.
func NewDirectoryService[T any, PT model.CatalogEntity[T]](db *bun.DB, audit *AuditService, entityType string, refs ...Reference) *DirectoryService[T, PT] {
	return &DirectoryService[T, PT]{
		svc:        libris.NewService[T](db),
		audit:      audit,
		entityType: entityType,
		refs:       refs,
	}
}

func (s *DirectoryService[T, PT]) EntityType() string { return s.entityType }

func (s *DirectoryService[T, PT]) List(ctx context.Context, q ListQuery) (*types.PagedResult[T], error) {
	spec, err := ActiveSpec[T, PT](q)
	if err != nil {
		return nil, err
	}
	return s.svc.FindPage(ctx, spec, q.PageRequest())
}

func (s *DirectoryService[T, PT]) Get(ctx context.Context, id int64) (*T, error) {
	return s.svc.Get(ctx, id)
}

func (s *DirectoryService[T, PT]) Create(ctx context.Context, actor *int64, in CatalogInput) (*T, error) {
	name, err := in.validate()
	if err != nil {
		return nil, err
	}
	item := new(T)
	b := PT(item).Base()
	b.Name = name
	b.Description = in.Description
	b.IsActive = in.IsActive == nil || *in.IsActive

	err = s.svc.RunInTx(ctx, func(ctx context.Context, tx *bun.Tx) error {
		if err := s.svc.SaveWithTx(ctx, tx, item); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, actor, ActionCreate, s.entityType, b.ID,
			types.JsonObject{"name": b.Name, "is_active": b.IsActive})
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (s *DirectoryService[T, PT]) Update(ctx context.Context, actor *int64, id int64, in CatalogInput) (*T, error) {
	name, err := in.validate()
	if err != nil {
		return nil, err
	}
	var item *T
	err = s.svc.RunInTx(ctx, func(ctx context.Context, tx *bun.Tx) error {
		item, err = s.svc.GetWithTx(ctx, tx, id)
		if err != nil {
			return err
		}
		b := PT(item).Base()
		changes := types.JsonObject{}.
			Change("name", b.Name, name).
			Change("description", b.Description, in.Description)
		b.Name, b.Description = name, in.Description
		if in.IsActive != nil {
			changes.Change("is_active", b.IsActive, *in.IsActive)
			b.IsActive = *in.IsActive
		}
		if len(changes) == 0 {
			return nil
		}
		if err := s.svc.UpdateWithTx(ctx, tx, item); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, actor, ActionUpdate, s.entityType, id, changes)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (s *DirectoryService[T, PT]) SetActive(ctx context.Context, actor *int64, id int64, active bool) (*T, error) {
	var item *T
	err := s.svc.RunInTx(ctx, func(ctx context.Context, tx *bun.Tx) (err error) {
		item, err = s.svc.GetWithTx(ctx, tx, id)
		if err != nil {
			return err
		}
		b := PT(item).Base()
		if b.IsActive == active {
			return nil
		}
		b.IsActive = active
		if err := s.svc.UpdateWithTx(ctx, tx, item); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, actor, activationAction(active), s.entityType, id, nil)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// Delete removes an unreferenced entry.
func (s *DirectoryService[T, PT]) Delete(ctx context.Context, actor *int64, id int64) error {
	return s.svc.RunInTx(ctx, func(ctx context.Context, tx *bun.Tx) error {
		item, err := s.svc.GetWithTx(ctx, tx, id)
		if err != nil {
			return err
		}
		for _, ref := range s.refs {
			n, err := tx.NewSelect().
				Table(ref.Table).
				Where("? = ?", bun.Ident(ref.Column), id).
				Count(ctx)
			if err != nil {
				return err
			}
			if n > 0 {
				return types.NewConflict(s.entityType, fmt.Sprintf("still referenced by %d %s", n, ref.Table))
			}
		}
		if err := s.svc.DeleteWithTx(ctx, tx, id); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, actor, ActionDelete, s.entityType, id,
			types.JsonObject{"name": PT(item).Base().Name})
	})
}

func activationAction(active bool) string {
	if active {
		return ActionActivate
	}
	return ActionDeactivate
}

// Catalog bundles the four directory services.
type Catalog struct {
	Authors      *DirectoryService[model.Author, *model.Author]
	Categories   *DirectoryService[model.Category, *model.Category]
	Publishers   *DirectoryService[model.Publisher, *model.Publisher]
	Contributors *DirectoryService[model.Contributor, *model.Contributor]
}

func NewCatalog(db *bun.DB, audit *AuditService) *Catalog {
	return &Catalog{
		Authors:      NewDirectoryService[model.Author](db, audit, "author", Reference{"books", "author_id"}),
		Categories:   NewDirectoryService[model.Category](db, audit, "category", Reference{"books", "category_id"}),
		Publishers:   NewDirectoryService[model.Publisher](db, audit, "publisher", Reference{"books", "publisher_id"}),
		Contributors: NewDirectoryService[model.Contributor](db, audit, "contributor", Reference{"book_contributors", "contributor_id"}),
	}
}
