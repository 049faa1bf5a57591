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
package model

import (
	"time"

	"github.com/tomoncle/libris/database"
	"github.com/uptrace/bun"
)

type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`

	ID           int64      `bun:"id,pk,autoincrement"`
	Username     string     `bun:"username,notnull,unique"`
	Email        string     `bun:"email,notnull,unique"`
	DisplayName  string     `bun:"display_name"`
	PasswordHash string     `bun:"password_hash,notnull" json:"-"`
	IsActive     bool       `bun:"is_active,notnull"`
	LastLoginAt  *time.Time `bun:"last_login_at,nullzero"`
	Timestamps
}

type Role struct {
	bun.BaseModel `bun:"table:roles,alias:role"`

	ID          int64  `bun:"id,pk,autoincrement"`
	Name        string `bun:"name,notnull,unique"`
	Description string `bun:"description"`
	Timestamps
}

// Permission is a named capability such as "books:write".
type Permission struct {
	bun.BaseModel `bun:"table:permissions,alias:perm"`

	ID          int64  `bun:"id,pk,autoincrement"`
	Code        string `bun:"code,notnull,unique"`
	Description string `bun:"description"`
}

type UserRole struct {
	bun.BaseModel `bun:"table:user_roles,alias:ur"`

	UserID int64 `bun:"user_id,pk"`
	RoleID int64 `bun:"role_id,pk"`
}

func (*UserRole) Indexes() []database.IndexDefinition {
	return []database.IndexDefinition{{Table: "user_roles", Columns: []string{"role_id"}}}
}

func (*UserRole) ForeignKeys() []database.ForeignKeyConstraint {
	return []database.ForeignKeyConstraint{
		{Table: "user_roles", Column: "user_id", ReferenceTable: "users", ReferenceColumn: "id", OnDelete: "cascade"},
		{Table: "user_roles", Column: "role_id", ReferenceTable: "roles", ReferenceColumn: "id", OnDelete: "cascade"},
	}
}

type RolePermission struct {
	bun.BaseModel `bun:"table:role_permissions,alias:rp"`

	RoleID       int64 `bun:"role_id,pk"`
	PermissionID int64 `bun:"permission_id,pk"`
}

func (*RolePermission) ForeignKeys() []database.ForeignKeyConstraint {
	return []database.ForeignKeyConstraint{
		{Table: "role_permissions", Column: "role_id", ReferenceTable: "roles", ReferenceColumn: "id", OnDelete: "cascade"},
		{Table: "role_permissions", Column: "permission_id", ReferenceTable: "permissions", ReferenceColumn: "id", OnDelete: "cascade"},
	}
}
