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
	"cmp"
	"strings"
)

// Ordering describes a single ascending sort key. Compare is used by
// in-memory evaluation, Column by executors that sort in the database.
type Ordering[T any] struct {
	Column  string
	Compare func(a, b *T) int
}

// OrderBy builds an ascending Ordering from a key selector. Column may be
// empty when the key has no database rendition.
func OrderBy[T any, K cmp.Ordered](column string, key func(*T) K) Ordering[T] {
	return Ordering[T]{
		Column: column,
		Compare: func(a, b *T) int {
			return cmp.Compare(key(a), key(b))
		},
	}
}

// Specification is an immutable description of which items to select, how
// to order them and which window of the ordered result to return. Builder
// methods return a modified copy and never touch the receiver.
type Specification[T any] struct {
	predicate func(*T) bool
	filter    *QueryFilter
	ordering  *Ordering[T]
	relations []string
	skip      int
	take      int
	paged     bool
}

// NewSpecification returns a specification selecting the items accepted by
// predicate. A nil predicate matches everything.
func NewSpecification[T any](predicate func(*T) bool) *Specification[T] {
	return &Specification[T]{predicate: predicate}
}

// MatchAll returns a specification without predicate, ordering or window.
func MatchAll[T any]() *Specification[T] {
	return NewSpecification[T](nil)
}

func (s *Specification[T]) clone() *Specification[T] {
	c := *s
	if s.relations != nil {
		c.relations = append([]string(nil), s.relations...)
	}
	return &c
}

// Where attaches the SQL rendition of the predicate.
func (s *Specification[T]) Where(schema string, args ...interface{}) (*Specification[T], error) {
	if strings.TrimSpace(schema) == "" {
		return nil, NewInvalidArgument("filter", "schema must not be empty")
	}
	c := s.clone()
	c.filter = NewQueryFilter(schema, args...)
	return c, nil
}

// ApplyOrderBy sets the ascending ordering, replacing any previous one.
func (s *Specification[T]) ApplyOrderBy(ordering Ordering[T]) *Specification[T] {
	c := s.clone()
	if ordering.Compare == nil && ordering.Column == "" {
		c.ordering = nil
		return c
	}
	o := ordering
	c.ordering = &o
	return c
}

// ApplyPaging sets the window: skip matching, ordered items are discarded
// and at most take items are returned.
func (s *Specification[T]) ApplyPaging(skip, take int) (*Specification[T], error) {
	if skip < 0 {
		return nil, NewInvalidArgument("skip", "must not be negative")
	}
	if take < 0 {
		return nil, NewInvalidArgument("take", "must not be negative")
	}
	c := s.clone()
	c.skip, c.take, c.paged = skip, take, true
	return c, nil
}

// WithRelations names ORM relations to eager-load.
func (s *Specification[T]) WithRelations(names ...string) *Specification[T] {
	c := s.clone()
	c.relations = append(c.relations, names...)
	return c
}

// Matches reports whether item satisfies the predicate.
func (s *Specification[T]) Matches(item *T) bool {
	return s.predicate == nil || s.predicate(item)
}

func (s *Specification[T]) Filter() *QueryFilter { return s.filter }

func (s *Specification[T]) Ordering() *Ordering[T] { return s.ordering }

func (s *Specification[T]) Relations() []string { return s.relations }

// Window returns the paging window and whether one was set.
func (s *Specification[T]) Window() (skip, take int, ok bool) {
	return s.skip, s.take, s.paged
}

// Pushdown reports whether a database executor can evaluate the whole
// specification in SQL.
func (s *Specification[T]) Pushdown() bool {
	if s.predicate != nil && s.filter == nil {
		return false
	}
	if s.ordering != nil && s.ordering.Column == "" {
		return false
	}
	return true
}

// Unpaged returns a copy without the paging window.
func (s *Specification[T]) Unpaged() *Specification[T] {
	c := s.clone()
	c.skip, c.take, c.paged = 0, 0, false
	return c
}
