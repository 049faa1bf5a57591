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
package auth

// Permission codes checked by the API.
const (
	PermCatalogRead  = "catalog:read"
	PermCatalogWrite = "catalog:write"
	PermLoansRead    = "loans:read"
	PermLoansWrite   = "loans:write"
	PermLoansSelf    = "loans:self"
	PermUsersRead    = "users:read"
	PermUsersWrite   = "users:write"
	PermRolesWrite   = "roles:write"
	PermAuditRead    = "audit:read"
	PermSystemRead   = "system:read"
)

// AllPermissions lists every built-in permission with its description.
var AllPermissions = map[string]string{
	PermCatalogRead:  "browse authors, books, categories, publishers and contributors",
	PermCatalogWrite: "maintain the catalog",
	PermLoansRead:    "see every loan",
	PermLoansWrite:   "check out, return and renew books for any member",
	PermLoansSelf:    "see and renew own loans",
	PermUsersRead:    "see user accounts",
	PermUsersWrite:   "maintain user accounts",
	PermRolesWrite:   "maintain roles and permission grants",
	PermAuditRead:    "read the audit trail",
	PermSystemRead:   "read database health and statistics",
}

// Built-in role names.
const (
	RoleAdmin     = "admin"
	RoleLibrarian = "librarian"
	RoleMember    = "member"
)

// DefaultRoleGrants maps each built-in role to its permissions. The admin
// role receives every permission.
var DefaultRoleGrants = map[string][]string{
	RoleLibrarian: {
		PermCatalogRead, PermCatalogWrite, PermLoansRead, PermLoansWrite,
		PermLoansSelf, PermUsersRead, PermAuditRead,
	},
	RoleMember: {PermCatalogRead, PermLoansSelf},
}
