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
	"fmt"
	"strings"

	"github.com/tomoncle/libris/types"
	"github.com/uptrace/bun"
)

func (r *baseRepositoryImpl[T]) Find(ctx context.Context, spec *types.Specification[T]) ([]*T, error) {
	return r.find(ctx, r.db, spec)
}

func (r *baseRepositoryImpl[T]) Count(ctx context.Context, spec *types.Specification[T]) (int, error) {
	return r.count(ctx, r.db, spec)
}

func (r *baseRepositoryImpl[T]) FindWithTx(ctx context.Context, tx *bun.Tx, spec *types.Specification[T]) ([]*T, error) {
	return r.find(ctx, tx, spec)
}

func (r *baseRepositoryImpl[T]) CountWithTx(ctx context.Context, tx *bun.Tx, spec *types.Specification[T]) (int, error) {
	return r.count(ctx, tx, spec)
}

// FindPage counts the filtered set and returns the requested page of it.
func (r *baseRepositoryImpl[T]) FindPage(ctx context.Context, spec *types.Specification[T], page *types.PageRequest) (*types.PagedResult[T], error) {
	return types.ExecutePage[T](ctx, r, spec, page)
}

// selectFor builds the filtered select over entities, without order or
// window.
func (r *baseRepositoryImpl[T]) selectFor(db bun.IDB, entities *[]*T, spec *types.Specification[T]) *bun.SelectQuery {
	query := db.NewSelect().Model(entities)
	if f := spec.Filter(); f != nil {
		query = query.Where(f.Schema, f.Args...)
	}
	for _, rel := range spec.Relations() {
		query = query.Relation(rel)
	}
	return query
}

func (r *baseRepositoryImpl[T]) find(ctx context.Context, db bun.IDB, spec *types.Specification[T]) ([]*T, error) {
	if spec == nil {
		spec = types.MatchAll[T]()
	}
	skip, take, paged := spec.Window()
	// bun renders LIMIT 0 as no limit at all.
	if paged && take == 0 {
		return []*T{}, nil
	}

	entities := make([]*T, 0)
	query := r.selectFor(db, &entities, spec)

	if !spec.Pushdown() {
		if err := query.Scan(ctx); err != nil {
			return nil, fmt.Errorf("find %s: %w", r.resource(), err)
		}
		return types.Evaluate(spec, entities), nil
	}

	if o := spec.Ordering(); o != nil {
		query = orderBy(query, o.Column)
	}
	if paged || spec.Ordering() != nil {
		for _, pk := range r.table().PKs {
			query = query.OrderExpr("?TableAlias.? ASC", bun.Ident(pk.Name))
		}
	}
	if paged {
		query = query.Offset(skip).Limit(take)
	}
	if err := query.Scan(ctx); err != nil {
		return nil, fmt.Errorf("find %s: %w", r.resource(), err)
	}
	return entities, nil
}

func (r *baseRepositoryImpl[T]) count(ctx context.Context, db bun.IDB, spec *types.Specification[T]) (int, error) {
	if spec == nil {
		spec = types.MatchAll[T]()
	}
	entities := make([]*T, 0)
	query := db.NewSelect().Model(&entities)
	if f := spec.Filter(); f != nil {
		query = query.Where(f.Schema, f.Args...)
	}

	// Ordering never affects the count, only the predicate does.
	if spec.ApplyOrderBy(types.Ordering[T]{}).Pushdown() {
		n, err := query.Count(ctx)
		if err != nil {
			return 0, fmt.Errorf("count %s: %w", r.resource(), err)
		}
		return n, nil
	}
	if err := query.Scan(ctx); err != nil {
		return 0, fmt.Errorf("count %s: %w", r.resource(), err)
	}
	return types.CountMatches(spec, entities), nil
}

// orderBy qualifies a bare column with the model alias so joined
// relations cannot make it ambiguous.
func orderBy(query *bun.SelectQuery, column string) *bun.SelectQuery {
	if strings.ContainsAny(column, ".( ") {
		return query.OrderExpr("? ASC", bun.Safe(column))
	}
	return query.OrderExpr("?TableAlias.? ASC", bun.Ident(column))
}
