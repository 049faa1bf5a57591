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
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"sort"
	"strings"

	"github.com/tomoncle/libris"
	"github.com/tomoncle/libris/auth"
	"github.com/tomoncle/libris/model"
	"github.com/tomoncle/libris/types"
	"github.com/uptrace/bun"
)

const (
	userEntity       = "user"
	roleEntity       = "role"
	permissionEntity = "permission"
)

var (
	usernamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]{2,63}$`)
	codePattern     = regexp.MustCompile(`^[a-z][a-z0-9_]*:[a-z][a-z0-9_]*$`)
)

// UserInput creates a user. Roles are role names assigned right away.
type UserInput struct {
	Username    string   `json:"username"`
	Email       string   `json:"email"`
	DisplayName string   `json:"display_name"`
	Password    string   `json:"password"`
	IsActive    *bool    `json:"is_active"`
	Roles       []string `json:"roles"`
}

// UserUpdate changes profile fields; nil fields stay unchanged.
type UserUpdate struct {
	Email       *string `json:"email"`
	DisplayName *string `json:"display_name"`
}

type RoleInput struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"`
}

type PermissionInput struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// BootstrapInput names the initial administrator.
type BootstrapInput struct {
	Username string
	Email    string
	Password string
}

// AdminService manages users, roles and permissions and authenticates
// users.
type AdminService struct {
	db          *bun.DB
	users       libris.Service[model.User]
	roles       libris.Service[model.Role]
	permissions libris.Service[model.Permission]
	audit       *AuditService
}

func NewAdminService(db *bun.DB, audit *AuditService) *AdminService {
	return &AdminService{
		db:          db,
		users:       libris.NewService[model.User](db),
		roles:       libris.NewService[model.Role](db),
		permissions: libris.NewService[model.Permission](db),
		audit:       audit,
	}
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", types.NewInvalidArgument("email", "is not a valid address")
	}
	return email, nil
}

func (s *AdminService) ListUsers(ctx context.Context, q ListQuery) (*types.PagedResult[model.User], error) {
	spec, err := UserSpec(q)
	if err != nil {
		return nil, err
	}
	return s.users.FindPage(ctx, spec, q.PageRequest())
}

func (s *AdminService) GetUser(ctx context.Context, id int64) (*model.User, error) {
	return s.users.Get(ctx, id)
}

func (s *AdminService) CreateUser(ctx context.Context, actor *int64, in UserInput) (*model.User, error) {
	username := strings.ToLower(strings.TrimSpace(in.Username))
	if !usernamePattern.MatchString(username) {
		return nil, types.NewInvalidArgument("username", "must be 3-64 characters of a-z, 0-9, '.', '_' or '-'")
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, types.NewInvalidArgument("password", err.Error())
	}
	user := &model.User{
		Username:     username,
		Email:        email,
		DisplayName:  strings.TrimSpace(in.DisplayName),
		PasswordHash: hash,
		IsActive:     in.IsActive == nil || *in.IsActive,
	}
	err = s.users.RunInTx(ctx, func(ctx context.Context, tx *bun.Tx) error {
		if err := s.users.SaveWithTx(ctx, tx, user); err != nil {
			return err
		}
		for _, name := range in.Roles {
			if err := s.assignRole(ctx, tx, user.ID, name); err != nil {
				return err
			}
		}
		return s.audit.Record(ctx, tx, actor, ActionCreate, userEntity, user.ID,
			types.JsonObject{"username": username, "roles": in.Roles})
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AdminService) UpdateUser(ctx context.Context, actor *int64, id int64, in UserUpdate) (*model.User, error) {
	var user *model.User
	err := s.users.RunInTx(ctx, func(ctx context.Context, tx *bun.Tx) (err error) {
		user, err = s.users.GetWithTx(ctx, tx, id)
		if err != nil {
			return err
		}
		changes := types.JsonObject{}
		if in.Email != nil {
			email, err := normalizeEmail(*in.Email)
			if err != nil {
				return err
			}
			changes.Change("email", user.Email, email)
			user.Email = email
		}
		if in.DisplayName != nil {
			name := strings.TrimSpace(*in.DisplayName)
			changes.Change("display_name", user.DisplayName, name)
			user.DisplayName = name
		}
		if len(changes) == 0 {
			return nil
		}
		if err := s.users.UpdateWithTx(ctx, tx, user); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, actor, ActionUpdate, userEntity, id, changes)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AdminService) SetUserActive(ctx context.Context, actor *int64, id int64, active bool) (*model.User, error) {
	var user *model.User
	err := s.users.RunInTx(ctx, func(ctx context.Context, tx *bun.Tx) (err error) {
		user, err = s.users.GetWithTx(ctx, tx, id)
		if err != nil || user.IsActive == active {
			return err
		}
		user.IsActive = active
		if err := s.users.UpdateWithTx(ctx, tx, user); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, actor, activationAction(active), userEntity, id, nil)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteUser removes a user without outstanding loans, together with the
// user's role assignments.
func (s *AdminService) DeleteUser(ctx context.Context, actor *int64, id int64) error {
	return s.users.RunInTx(ctx, func(ctx context.Context, tx *bun.Tx) error {
		user, err := s.users.GetWithTx(ctx, tx, id)
		if err != nil {
			return err
		}
		n, err := outstandingLoans(ctx, tx, "user_id", id)
		if err != nil {
			return err
		}
		if n > 0 {
			return types.NewConflict(userEntity, fmt.Sprintf("user has %d outstanding loans", n))
		}
		if _, err := tx.NewDelete().Model((*model.UserRole)(nil)).Where("user_id = ?", id).Exec(ctx); err != nil {
			return err
		}
		if err := s.users.DeleteWithTx(ctx, tx, id); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, actor, ActionDelete, userEntity, id, types.JsonObject{"username": user.Username})
	})
}

// ChangePassword sets a new password. current is verified unless the
// change is made by an administrator for another user, which callers
// signal with verifyCurrent=false.
func (s *AdminService) ChangePassword(ctx context.Context, actor *int64, id int64, current, next string, verifyCurrent bool) error {
	hash, err := auth.HashPassword(next)
	if err != nil {
		return types.NewInvalidArgument("password", err.Error())
	}
	return s.users.RunInTx(ctx, func(ctx context.Context, tx *bun.Tx) error {
		user, err := s.users.GetWithTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if verifyCurrent && !auth.CheckPassword(user.PasswordHash, current) {
			return &types.UnauthorizedError{Reason: "current password does not match"}
		}
		user.PasswordHash = hash
		if err := s.users.UpdateWithTx(ctx, tx, user); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, actor, ActionPassword, userEntity, id, nil)
	})
}

// Authenticate checks credentials of an active user and records the login.
// Unknown users, inactive users and wrong passwords are indistinguishable
// to the caller.
func (s *AdminService) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	denied := &types.UnauthorizedError{Reason: "invalid username or password"}
	user := new(model.User)
	err := s.users.SelectBuilder().
		Model(user).
		Where("?TableAlias.username = ?", strings.ToLower(strings.TrimSpace(username))).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, denied
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive || !auth.CheckPassword(user.PasswordHash, password) {
		return nil, denied
	}
	now := utcNow()
	user.LastLoginAt = &now
	err = s.users.RunInTx(ctx, func(ctx context.Context, tx *bun.Tx) error {
		_, err := tx.NewUpdate().Model(user).Column("last_login_at").WherePK().Exec(ctx)
		if err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, &user.ID, ActionLogin, userEntity, user.ID, nil)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AdminService) ListRoles(ctx context.Context) ([]*model.Role, error) {
	roles := make([]*model.Role, 0)
	err := s.roles.SelectBuilder().Model(&roles).OrderExpr("?TableAlias.name ASC").Scan(ctx)
	return roles, err
}

func (s *AdminService) GetRole(ctx context.Context, name string) (*model.Role, error) {
	return roleByName(ctx, s.db, name)
}

func (s *AdminService) CreateRole(ctx context.Context, actor *int64, in RoleInput) (*model.Role, error) {
	name := strings.ToLower(strings.TrimSpace(in.Name))
	if !usernamePattern.MatchString(name) {
		return nil, types.NewInvalidArgument("name", "must be 3-64 characters of a-z, 0-9, '.', '_' or '-'")
	}
	role := &model.Role{Name: name, Description: in.Description}
	err := s.roles.RunInTx(ctx, func(ctx context.Context, tx *bun.Tx) error {
		if err := s.roles.SaveWithTx(ctx, tx, role); err != nil {
			return err
		}
		for _, code := range in.Permissions {
			if err := s.grant(ctx, tx, role, code); err != nil {
				return err
			}
		}
		return s.audit.Record(ctx, tx, actor, ActionCreate, roleEntity, role.ID,
			types.JsonObject{"name": name, "permissions": in.Permissions})
	})
	if err != nil {
		return nil, err
	}
	return role, nil
}

// DeleteRole removes a role with its assignments and grants.
func (s *AdminService) DeleteRole(ctx context.Context, actor *int64, name string) error {
	return s.roles.RunInTx(ctx, func(ctx context.Context, tx *bun.Tx) error {
		role, err := roleByName(ctx, tx, name)
		if err != nil {
			return err
		}
		if role.Name == auth.RoleAdmin {
			return types.NewConflict(roleEntity, "the admin role cannot be deleted")
		}
		if _, err := tx.NewDelete().Model((*model.UserRole)(nil)).Where("role_id = ?", role.ID).Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewDelete().Model((*model.RolePermission)(nil)).Where("role_id = ?", role.ID).Exec(ctx); err != nil {
			return err
		}
		if err := s.roles.DeleteWithTx(ctx, tx, role.ID); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, actor, ActionDelete, roleEntity, role.ID, types.JsonObject{"name": role.Name})
	})
}

func (s *AdminService) ListPermissions(ctx context.Context) ([]*model.Permission, error) {
	perms := make([]*model.Permission, 0)
	err := s.permissions.SelectBuilder().Model(&perms).OrderExpr("?TableAlias.code ASC").Scan(ctx)
	return perms, err
}

func (s *AdminService) CreatePermission(ctx context.Context, actor *int64, in PermissionInput) (*model.Permission, error) {
	code := strings.ToLower(strings.TrimSpace(in.Code))
	if !codePattern.MatchString(code) {
		return nil, types.NewInvalidArgument("code", "must look like resource:action")
	}
	perm := &model.Permission{Code: code, Description: in.Description}
	err := s.permissions.RunInTx(ctx, func(ctx context.Context, tx *bun.Tx) error {
		if err := s.permissions.SaveWithTx(ctx, tx, perm); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, actor, ActionCreate, permissionEntity, perm.ID, types.JsonObject{"code": code})
	})
	if err != nil {
		return nil, err
	}
	return perm, nil
}

func (s *AdminService) AssignRole(ctx context.Context, actor *int64, userID int64, roleName string) error {
	return s.users.RunInTx(ctx, func(ctx context.Context, tx *bun.Tx) error {
		if _, err := s.users.GetWithTx(ctx, tx, userID); err != nil {
			return err
		}
		if err := s.assignRole(ctx, tx, userID, roleName); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, actor, ActionAssignRole, userEntity, userID, types.JsonObject{"role": roleName})
	})
}

func (s *AdminService) RevokeRole(ctx context.Context, actor *int64, userID int64, roleName string) error {
	return s.users.RunInTx(ctx, func(ctx context.Context, tx *bun.Tx) error {
		role, err := roleByName(ctx, tx, roleName)
		if err != nil {
			return err
		}
		res, err := tx.NewDelete().Model((*model.UserRole)(nil)).
			Where("user_id = ?", userID).
			Where("role_id = ?", role.ID).
			Exec(ctx)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return types.NewNotFound("role assignment", fmt.Sprintf("%d/%s", userID, role.Name))
		}
		return s.audit.Record(ctx, tx, actor, ActionRevokeRole, userEntity, userID, types.JsonObject{"role": role.Name})
	})
}

func (s *AdminService) GrantPermission(ctx context.Context, actor *int64, roleName, code string) error {
	return s.roles.RunInTx(ctx, func(ctx context.Context, tx *bun.Tx) error {
		role, err := roleByName(ctx, tx, roleName)
		if err != nil {
			return err
		}
		if err := s.grant(ctx, tx, role, code); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, actor, ActionGrant, roleEntity, role.ID, types.JsonObject{"permission": code})
	})
}

func (s *AdminService) RevokePermission(ctx context.Context, actor *int64, roleName, code string) error {
	return s.roles.RunInTx(ctx, func(ctx context.Context, tx *bun.Tx) error {
		role, err := roleByName(ctx, tx, roleName)
		if err != nil {
			return err
		}
		perm, err := permissionByCode(ctx, tx, code)
		if err != nil {
			return err
		}
		res, err := tx.NewDelete().Model((*model.RolePermission)(nil)).
			Where("role_id = ?", role.ID).
			Where("permission_id = ?", perm.ID).
			Exec(ctx)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return types.NewNotFound("permission grant", role.Name+"/"+perm.Code)
		}
		return s.audit.Record(ctx, tx, actor, ActionRevoke, roleEntity, role.ID, types.JsonObject{"permission": perm.Code})
	})
}

// RolesOf lists the roles assigned to a user by name.
func (s *AdminService) RolesOf(ctx context.Context, userID int64) ([]*model.Role, error) {
	roles := make([]*model.Role, 0)
	err := s.roles.SelectBuilder().
		Model(&roles).
		Join("JOIN user_roles AS ur ON ur.role_id = ?TableAlias.id").
		Where("ur.user_id = ?", userID).
		OrderExpr("?TableAlias.name ASC").
		Scan(ctx)
	return roles, err
}

// PermissionsOf returns the sorted, distinct permission codes granted to a
// user through all of the user's roles.
func (s *AdminService) PermissionsOf(ctx context.Context, userID int64) ([]string, error) {
	codes := make([]string, 0)
	err := s.permissions.SelectBuilder().
		Model((*model.Permission)(nil)).
		ColumnExpr("DISTINCT ?TableAlias.code").
		Join("JOIN role_permissions AS rp ON rp.permission_id = ?TableAlias.id").
		Join("JOIN user_roles AS ur ON ur.role_id = rp.role_id").
		Where("ur.user_id = ?", userID).
		OrderExpr("?TableAlias.code ASC").
		Scan(ctx, &codes)
	if err != nil {
		return nil, fmt.Errorf("permissions of user %d: %w", userID, err)
	}
	return codes, nil
}

// PermissionsOfRole returns the sorted permission codes granted to a role.
func (s *AdminService) PermissionsOfRole(ctx context.Context, roleID int64) ([]string, error) {
	codes := make([]string, 0)
	err := s.permissions.SelectBuilder().
		Model((*model.Permission)(nil)).
		Column("code").
		Join("JOIN role_permissions AS rp ON rp.permission_id = ?TableAlias.id").
		Where("rp.role_id = ?", roleID).
		OrderExpr("?TableAlias.code ASC").
		Scan(ctx, &codes)
	return codes, err
}

// Bootstrap creates the built-in permissions and roles and, when no user
// with in.Username exists yet, the administrator. Running it again only
// adds what is missing.
func (s *AdminService) Bootstrap(ctx context.Context, in BootstrapInput) (*model.User, error) {
	var admin *model.User
	err := s.users.RunInTx(ctx, func(ctx context.Context, tx *bun.Tx) error {
		codes := make([]string, 0, len(auth.AllPermissions))
		for code := range auth.AllPermissions {
			codes = append(codes, code)
		}
		sort.Strings(codes)
		for _, code := range codes {
			_, err := permissionByCode(ctx, tx, code)
			if types.IsNotFound(err) {
				perm := &model.Permission{Code: code, Description: auth.AllPermissions[code]}
				_, err = tx.NewInsert().Model(perm).Exec(ctx)
			}
			if err != nil {
				return err
			}
		}

		grants := map[string][]string{auth.RoleAdmin: codes}
		for role, perms := range auth.DefaultRoleGrants {
			grants[role] = perms
		}
		for _, name := range []string{auth.RoleAdmin, auth.RoleLibrarian, auth.RoleMember} {
			role, err := roleByName(ctx, tx, name)
			if types.IsNotFound(err) {
				role = &model.Role{Name: name, Description: "built-in " + name + " role"}
				if _, err = tx.NewInsert().Model(role).Exec(ctx); err != nil {
					return err
				}
			} else if err != nil {
				return err
			}
			for _, code := range grants[name] {
				if err := s.grant(ctx, tx, role, code); err != nil && !types.IsConflict(err) {
					return err
				}
			}
		}

		username := strings.ToLower(strings.TrimSpace(in.Username))
		if !usernamePattern.MatchString(username) {
			return types.NewInvalidArgument("username", "is not a valid user name")
		}
		admin = new(model.User)
		err := tx.NewSelect().Model(admin).Where("?TableAlias.username = ?", username).Scan(ctx)
		if err == nil {
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		email, err := normalizeEmail(in.Email)
		if err != nil {
			return err
		}
		hash, err := auth.HashPassword(in.Password)
		if err != nil {
			return types.NewInvalidArgument("password", err.Error())
		}
		admin = &model.User{
			Username:     username,
			Email:        email,
			DisplayName:  "Administrator",
			PasswordHash: hash,
			IsActive:     true,
		}
		if _, err := tx.NewInsert().Model(admin).Exec(ctx); err != nil {
			return err
		}
		if err := s.assignRole(ctx, tx, admin.ID, auth.RoleAdmin); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, nil, ActionCreate, userEntity, admin.ID,
			types.JsonObject{"username": admin.Username, "roles": []string{auth.RoleAdmin}})
	})
	if err != nil {
		return nil, err
	}
	return admin, nil
}

func (s *AdminService) assignRole(ctx context.Context, db bun.IDB, userID int64, roleName string) error {
	role, err := roleByName(ctx, db, roleName)
	if err != nil {
		return err
	}
	link := &model.UserRole{UserID: userID, RoleID: role.ID}
	exists, err := db.NewSelect().Model(link).WherePK().Exists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return types.NewConflict("role assignment", "user already has role "+role.Name)
	}
	_, err = db.NewInsert().Model(link).Exec(ctx)
	return err
}

// grant links a permission to a role. An existing grant is reported as a
// conflict before any insert, so callers may continue the transaction.
func (s *AdminService) grant(ctx context.Context, db bun.IDB, role *model.Role, code string) error {
	perm, err := permissionByCode(ctx, db, code)
	if err != nil {
		return err
	}
	link := &model.RolePermission{RoleID: role.ID, PermissionID: perm.ID}
	exists, err := db.NewSelect().Model(link).WherePK().Exists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return types.NewConflict("permission grant", role.Name+" already has "+perm.Code)
	}
	_, err = db.NewInsert().Model(link).Exec(ctx)
	return err
}

func roleByName(ctx context.Context, db bun.IDB, name string) (*model.Role, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	role := new(model.Role)
	if err := db.NewSelect().Model(role).Where("?TableAlias.name = ?", name).Scan(ctx); err != nil {
		return nil, notFoundOr(err, roleEntity, name)
	}
	return role, nil
}

func permissionByCode(ctx context.Context, db bun.IDB, code string) (*model.Permission, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	perm := new(model.Permission)
	if err := db.NewSelect().Model(perm).Where("?TableAlias.code = ?", code).Scan(ctx); err != nil {
		return nil, notFoundOr(err, permissionEntity, code)
	}
	return perm, nil
}
