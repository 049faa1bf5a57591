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
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/libris/auth"
	"github.com/tomoncle/libris/types"
)

func bootstrap(t *testing.T, env *testEnv) int64 {
	t.Helper()
	admin, err := env.admin.Bootstrap(context.Background(), BootstrapInput{
		Username: "admin",
		Email:    "admin@example.org",
		Password: "change-me-now",
	})
	require.NoError(t, err)
	return admin.ID
}

func TestBootstrapIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	id := bootstrap(t, env)
	again := bootstrap(t, env)
	assert.Equal(t, id, again)

	perms, err := env.admin.ListPermissions(ctx)
	require.NoError(t, err)
	assert.Len(t, perms, len(auth.AllPermissions))

	roles, err := env.admin.ListRoles(ctx)
	require.NoError(t, err)
	require.Len(t, roles, 3)
	assert.Equal(t, auth.RoleAdmin, roles[0].Name)

	all := make([]string, 0, len(auth.AllPermissions))
	for code := range auth.AllPermissions {
		all = append(all, code)
	}
	sort.Strings(all)
	granted, err := env.admin.PermissionsOf(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, all, granted)

	member, err := env.admin.GetRole(ctx, auth.RoleMember)
	require.NoError(t, err)
	codes, err := env.admin.PermissionsOfRole(ctx, member.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{auth.PermCatalogRead, auth.PermLoansSelf}, codes)

	_, err = env.admin.Bootstrap(ctx, BootstrapInput{Username: "x"})
	assert.True(t, types.IsInvalidArgument(err))
}

func TestAuthenticate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user(t, "alice")

	got, err := env.admin.Authenticate(ctx, " Alice ", "password-alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	require.NotNil(t, got.LastLoginAt)

	_, err = env.admin.Authenticate(ctx, "alice", "wrong password")
	assert.True(t, types.IsUnauthorized(err))
	_, err = env.admin.Authenticate(ctx, "nobody", "password-alice")
	assert.True(t, types.IsUnauthorized(err))

	_, err = env.admin.SetUserActive(ctx, nil, u.ID, false)
	require.NoError(t, err)
	_, err = env.admin.Authenticate(ctx, "alice", "password-alice")
	assert.True(t, types.IsUnauthorized(err))

	logins, err := env.audit.List(ctx, AuditQuery{Action: ActionLogin, ActorID: u.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, logins.TotalCount)
}

func TestCreateUserValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.user(t, "bob")

	cases := []UserInput{
		{Username: "b", Email: "b@example.org", Password: "long enough"},
		{Username: "Bad Name", Email: "b@example.org", Password: "long enough"},
		{Username: "carol", Email: "not an email", Password: "long enough"},
		{Username: "carol", Email: "carol@example.org", Password: "short"},
	}
	for _, in := range cases {
		_, err := env.admin.CreateUser(ctx, nil, in)
		assert.True(t, types.IsInvalidArgument(err), "input %+v: %v", in, err)
	}

	_, err := env.admin.CreateUser(ctx, nil, UserInput{Username: "bob", Email: "other@example.org", Password: "long enough"})
	assert.True(t, types.IsConflict(err), "got %v", err)
	_, err = env.admin.CreateUser(ctx, nil, UserInput{Username: "carol", Email: "carol@example.org", Password: "long enough", Roles: []string{"ghost"}})
	assert.True(t, types.IsNotFound(err), "got %v", err)

	page, err := env.admin.ListUsers(ctx, ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.TotalCount)
}

func TestRolesAndGrants(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	bootstrap(t, env)
	u := env.user(t, "dave")

	require.NoError(t, env.admin.AssignRole(ctx, nil, u.ID, auth.RoleMember))
	err := env.admin.AssignRole(ctx, nil, u.ID, auth.RoleMember)
	assert.True(t, types.IsConflict(err), "got %v", err)

	role, err := env.admin.CreateRole(ctx, nil, RoleInput{Name: "auditor", Permissions: []string{auth.PermAuditRead}})
	require.NoError(t, err)
	_, err = env.admin.CreateRole(ctx, nil, RoleInput{Name: "auditor"})
	assert.True(t, types.IsConflict(err), "got %v", err)
	require.NoError(t, env.admin.AssignRole(ctx, nil, u.ID, role.Name))

	perms, err := env.admin.PermissionsOf(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{auth.PermAuditRead, auth.PermCatalogRead, auth.PermLoansSelf}, perms)

	roles, err := env.admin.RolesOf(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, roles, 2)
	assert.Equal(t, "auditor", roles[0].Name)

	_, err = env.admin.CreatePermission(ctx, nil, PermissionInput{Code: "reports:export"})
	require.NoError(t, err)
	_, err = env.admin.CreatePermission(ctx, nil, PermissionInput{Code: "reports"})
	assert.True(t, types.IsInvalidArgument(err))
	require.NoError(t, env.admin.GrantPermission(ctx, nil, "auditor", "reports:export"))
	err = env.admin.GrantPermission(ctx, nil, "auditor", "reports:export")
	assert.True(t, types.IsConflict(err))
	require.NoError(t, env.admin.RevokePermission(ctx, nil, "auditor", auth.PermAuditRead))

	perms, err = env.admin.PermissionsOf(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{auth.PermCatalogRead, auth.PermLoansSelf, "reports:export"}, perms)

	require.NoError(t, env.admin.DeleteRole(ctx, nil, "auditor"))
	require.NoError(t, env.admin.RevokeRole(ctx, nil, u.ID, auth.RoleMember))
	err = env.admin.RevokeRole(ctx, nil, u.ID, auth.RoleMember)
	assert.True(t, types.IsNotFound(err))

	perms, err = env.admin.PermissionsOf(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, perms)

	err = env.admin.DeleteRole(ctx, nil, auth.RoleAdmin)
	assert.True(t, types.IsConflict(err))
}

func TestChangePasswordAndDeleteUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user(t, "erin")

	err := env.admin.ChangePassword(ctx, &u.ID, u.ID, "wrong", "brand new secret", true)
	assert.True(t, types.IsUnauthorized(err))
	require.NoError(t, env.admin.ChangePassword(ctx, &u.ID, u.ID, "password-erin", "brand new secret", true))
	_, err = env.admin.Authenticate(ctx, "erin", "brand new secret")
	require.NoError(t, err)

	b := env.book(t, "Ubik", 1)
	loan, err := env.loans.Checkout(ctx, nil, u.ID, b.ID)
	require.NoError(t, err)
	err = env.admin.DeleteUser(ctx, nil, u.ID)
	assert.True(t, types.IsConflict(err))

	_, err = env.loans.Return(ctx, nil, loan.ID)
	require.NoError(t, err)
	updated, err := env.admin.UpdateUser(ctx, nil, u.ID, UserUpdate{DisplayName: strPtr(" Erin ")})
	require.NoError(t, err)
	assert.Equal(t, "Erin", updated.DisplayName)
	_, err = env.admin.UpdateUser(ctx, nil, u.ID, UserUpdate{Email: strPtr("nope")})
	assert.True(t, types.IsInvalidArgument(err))
}

func strPtr(s string) *string { return &s }
