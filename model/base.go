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
// Package model holds the bun table models of the library.
package model

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

// Timestamps maintains created_at and updated_at in UTC.
type Timestamps struct {
	CreatedAt time.Time `bun:"created_at,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

var _ bun.BeforeAppendModelHook = (*Timestamps)(nil)

func (t *Timestamps) BeforeAppendModel(_ context.Context, query bun.Query) error {
	now := time.Now().UTC().Truncate(time.Second)
	switch query.(type) {
	case *bun.InsertQuery:
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}
		t.UpdatedAt = now
	case *bun.UpdateQuery:
		t.UpdatedAt = now
	}
	return nil
}

// Catalogued is the shared shape of the simple catalog directories:
// authors, categories, publishers and contributors.
type Catalogued struct {
	ID          int64  `bun:"id,pk,autoincrement"`
	Name        string `bun:"name,notnull,unique"`
	Description string `bun:"description"`
	IsActive    bool   `bun:"is_active,notnull"`
	Timestamps
}

// Base gives generic code access to the embedded fields.
func (c *Catalogued) Base() *Catalogued { return c }

// CatalogEntity is satisfied by pointers to the directory models.
type CatalogEntity[T any] interface {
	*T
	Base() *Catalogued
}

type Author struct {
	bun.BaseModel `bun:"table:authors,alias:author"`
	Catalogued
}

type Category struct {
	bun.BaseModel `bun:"table:categories,alias:category"`
	Catalogued
}

type Publisher struct {
	bun.BaseModel `bun:"table:publishers,alias:publisher"`
	Catalogued
}

type Contributor struct {
	bun.BaseModel `bun:"table:contributors,alias:contributor"`
	Catalogued
}
