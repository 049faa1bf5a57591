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
// Package libris exposes the generic entity service every application
// service is built on.
package libris

import (
	"context"

	"github.com/tomoncle/libris/repository"
	"github.com/tomoncle/libris/types"
	"github.com/uptrace/bun"
)

// Service is the generic persistence facade over a bun model T.
type Service[T any] interface {
	// Get returns the entity with id or a *types.NotFoundError.
	Get(ctx context.Context, id any) (*T, error)

	All(ctx context.Context) ([]*T, error)

	List(ctx context.Context, filter *types.QueryFilter) ([]*T, error)

	// Page pages over a raw filter and order terms.
	Page(ctx context.Context, page *types.PageRequest) (*types.PagedResult[T], error)

	// Find returns the items selected by spec, ordered and windowed.
	Find(ctx context.Context, spec *types.Specification[T]) ([]*T, error)

	// Count returns the number of items matching spec, ignoring its window.
	Count(ctx context.Context, spec *types.Specification[T]) (int, error)

	// FindPage executes spec for the requested page. TotalCount is the
	// unpaged count.
	FindPage(ctx context.Context, spec *types.Specification[T], page *types.PageRequest) (*types.PagedResult[T], error)

	Save(ctx context.Context, model ...*T) error

	SaveOrUpdate(ctx context.Context, fields []string, duplicateKeys []string, model ...*T) error

	Update(ctx context.Context, model *T) error

	Delete(ctx context.Context, id any) error

	GetWithTx(ctx context.Context, tx *bun.Tx, id any) (*T, error)
	SaveWithTx(ctx context.Context, tx *bun.Tx, model ...*T) error
	UpdateWithTx(ctx context.Context, tx *bun.Tx, model *T) error
	DeleteWithTx(ctx context.Context, tx *bun.Tx, id any) error
	FindWithTx(ctx context.Context, tx *bun.Tx, spec *types.Specification[T]) ([]*T, error)
	CountWithTx(ctx context.Context, tx *bun.Tx, spec *types.Specification[T]) (int, error)

	// RunInTx runs fn in a transaction committed when fn returns nil.
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx *bun.Tx) error) error

	SelectBuilder() *bun.SelectQuery
	UpdateBuilder() *bun.UpdateQuery
}

type baseServiceImpl[T any] struct {
	repo repository.Repository[T]
}

// NewService returns a Service backed by the generic bun repository.
func NewService[T any](db *bun.DB) Service[T] {
	return &baseServiceImpl[T]{repo: repository.NewRepository[T](db)}
}

func (s *baseServiceImpl[T]) Get(ctx context.Context, id any) (*T, error) {
	return s.repo.GetOne(ctx, id)
}

func (s *baseServiceImpl[T]) All(ctx context.Context) ([]*T, error) {
	return s.repo.GetAll(ctx)
}

func (s *baseServiceImpl[T]) List(ctx context.Context, filter *types.QueryFilter) ([]*T, error) {
	return s.repo.List(ctx, filter)
}

func (s *baseServiceImpl[T]) Page(ctx context.Context, page *types.PageRequest) (*types.PagedResult[T], error) {
	return s.repo.Page(ctx, page)
}

func (s *baseServiceImpl[T]) Find(ctx context.Context, spec *types.Specification[T]) ([]*T, error) {
	return s.repo.Find(ctx, spec)
}

func (s *baseServiceImpl[T]) Count(ctx context.Context, spec *types.Specification[T]) (int, error) {
	return s.repo.Count(ctx, spec)
}

func (s *baseServiceImpl[T]) FindPage(ctx context.Context, spec *types.Specification[T], page *types.PageRequest) (*types.PagedResult[T], error) {
	return s.repo.FindPage(ctx, spec, page)
}

func (s *baseServiceImpl[T]) Save(ctx context.Context, model ...*T) error {
	return s.repo.Create(ctx, model...)
}

func (s *baseServiceImpl[T]) SaveOrUpdate(ctx context.Context, fields []string, duplicateKeys []string, model ...*T) error {
	return s.repo.Upsert(ctx, fields, duplicateKeys, model...)
}

func (s *baseServiceImpl[T]) Update(ctx context.Context, model *T) error {
	return s.repo.Update(ctx, model)
}

func (s *baseServiceImpl[T]) Delete(ctx context.Context, id any) error {
	return s.repo.Delete(ctx, id)
}

func (s *baseServiceImpl[T]) GetWithTx(ctx context.Context, tx *bun.Tx, id any) (*T, error) {
	return s.repo.GetOneWithTx(ctx, tx, id)
}

func (s *baseServiceImpl[T]) SaveWithTx(ctx context.Context, tx *bun.Tx, model ...*T) error {
	return s.repo.CreateWithTx(ctx, tx, model...)
}

func (s *baseServiceImpl[T]) UpdateWithTx(ctx context.Context, tx *bun.Tx, model *T) error {
	return s.repo.UpdateWithTx(ctx, tx, model)
}

func (s *baseServiceImpl[T]) DeleteWithTx(ctx context.Context, tx *bun.Tx, id any) error {
	return s.repo.DeleteWithTx(ctx, tx, id)
}

func (s *baseServiceImpl[T]) FindWithTx(ctx context.Context, tx *bun.Tx, spec *types.Specification[T]) ([]*T, error) {
	return s.repo.FindWithTx(ctx, tx, spec)
}

func (s *baseServiceImpl[T]) CountWithTx(ctx context.Context, tx *bun.Tx, spec *types.Specification[T]) (int, error) {
	return s.repo.CountWithTx(ctx, tx, spec)
}

func (s *baseServiceImpl[T]) RunInTx(ctx context.Context, fn func(ctx context.Context, tx *bun.Tx) error) error {
	return s.repo.DB().RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &tx)
	})
}

func (s *baseServiceImpl[T]) SelectBuilder() *bun.SelectQuery {
	return s.repo.NewSelect()
}

func (s *baseServiceImpl[T]) UpdateBuilder() *bun.UpdateQuery {
	return s.repo.NewUpdate()
}
