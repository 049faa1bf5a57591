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
	"slices"
)

// Executor applies a specification against a concrete data source.
type Executor[T any] interface {
	// Find returns the matching items after predicate, order, skip and take.
	Find(ctx context.Context, spec *Specification[T]) ([]*T, error)

	// Count returns the number of matching items, ignoring the window.
	Count(ctx context.Context, spec *Specification[T]) (int, error)
}

// Evaluate applies spec to items in memory and returns a new slice.
// Sorting is stable, so equal keys keep their input order.
func Evaluate[T any](spec *Specification[T], items []*T) []*T {
	if spec == nil {
		spec = MatchAll[T]()
	}
	matched := make([]*T, 0, len(items))
	for _, item := range items {
		if spec.Matches(item) {
			matched = append(matched, item)
		}
	}
	if o := spec.Ordering(); o != nil && o.Compare != nil {
		slices.SortStableFunc(matched, o.Compare)
	}
	skip, take, ok := spec.Window()
	if !ok {
		return matched
	}
	if skip >= len(matched) {
		return []*T{}
	}
	end := len(matched)
	if take < end-skip {
		end = skip + take
	}
	return matched[skip:end]
}

// CountMatches returns the filtered, unpaged count of items.
func CountMatches[T any](spec *Specification[T], items []*T) int {
	if spec == nil {
		return len(items)
	}
	n := 0
	for _, item := range items {
		if spec.Matches(item) {
			n++
		}
	}
	return n
}

// SliceExecutor evaluates specifications against an in-memory slice.
type SliceExecutor[T any] struct {
	items []*T
}

// NewSliceExecutor wraps items; the slice itself is never modified.
func NewSliceExecutor[T any](items []*T) *SliceExecutor[T] {
	return &SliceExecutor[T]{items: items}
}

func (e *SliceExecutor[T]) Find(ctx context.Context, spec *Specification[T]) ([]*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Evaluate(spec, e.items), nil
}

func (e *SliceExecutor[T]) Count(ctx context.Context, spec *Specification[T]) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return CountMatches(spec, e.items), nil
}

// ExecutePage counts the filtered set, clamps the requested page into
// [1, TotalPages] and fetches that page. TotalCount is always the unpaged
// count; Data holds at most PageSize items.
func ExecutePage[T any](ctx context.Context, exec Executor[T], spec *Specification[T], req *PageRequest) (*PagedResult[T], error) {
	if spec == nil {
		spec = MatchAll[T]()
	}
	if req == nil {
		req = NewDefaultPageRequest(1, DefaultPageSize)
	}
	spec = spec.Unpaged()
	size := req.GetPageSize()

	total, err := exec.Count(ctx, spec)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return NewPagedResult[T](nil, 0, 1, size), nil
	}

	page := req.GetPage()
	if pages := TotalPagesFor(total, size); page > pages {
		page = pages
	}
	windowed, err := spec.ApplyPaging((page-1)*size, size)
	if err != nil {
		return nil, err
	}
	data, err := exec.Find(ctx, windowed)
	if err != nil {
		return nil, err
	}
	return NewPagedResult(data, total, page, size), nil
}
