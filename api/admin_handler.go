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
package api

import (
	"github.com/gin-gonic/gin"
	"github.com/tomoncle/libris/auth"
	"github.com/tomoncle/libris/dto"
	"github.com/tomoncle/libris/model"
	"github.com/tomoncle/libris/service"
)

type roleRequest struct {
	Role string `json:"role" binding:"required"`
}

type permissionRequest struct {
	Permission string `json:"permission" binding:"required"`
}

type setPasswordRequest struct {
	Password string `json:"password" binding:"required"`
}

func (h *handler) registerUsers(g *gin.RouterGroup) {
	read := RequirePermission(auth.PermUsersRead)
	write := RequirePermission(auth.PermUsersWrite)
	g.GET("", read, h.listUsers)
	g.GET("/:id", read, h.getUser)
	g.POST("", write, h.createUser)
	g.PUT("/:id", write, h.updateUser)
	g.PATCH("/:id/active", write, h.setUserActive)
	g.DELETE("/:id", write, h.deleteUser)
	g.PUT("/:id/password", write, h.setUserPassword)
	g.POST("/:id/roles", RequirePermission(auth.PermRolesWrite), h.assignRole)
	g.DELETE("/:id/roles/:role", RequirePermission(auth.PermRolesWrite), h.revokeRole)
}

func (h *handler) registerRoles(g *gin.RouterGroup) {
	write := RequirePermission(auth.PermRolesWrite)
	g.GET("", RequirePermission(auth.PermUsersRead), h.listRoles)
	g.POST("", write, h.createRole)
	g.DELETE("/:name", write, h.deleteRole)
	g.POST("/:name/permissions", write, h.grantPermission)
	g.DELETE("/:name/permissions/:code", write, h.revokePermission)
}

func (h *handler) registerPermissions(g *gin.RouterGroup) {
	g.GET("", RequirePermission(auth.PermUsersRead), h.listPermissions)
	g.POST("", RequirePermission(auth.PermRolesWrite), h.createPermission)
}

// userWithRoles loads the roles of user for the response.
func (h *handler) userWithRoles(c *gin.Context, user *model.User) (dto.UserDTO, error) {
	roles, err := h.svc.Admin.RolesOf(c.Request.Context(), user.ID)
	if err != nil {
		return dto.UserDTO{}, err
	}
	return dto.ToUserDTO(user).WithRoles(roles), nil
}

func (h *handler) listUsers(c *gin.Context) {
	q, err := listQuery(c)
	if err != nil {
		fail(c, err)
		return
	}
	page, err := h.svc.Admin.ListUsers(c.Request.Context(), q)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, dto.MapPage(page, dto.ToUserDTO))
}

func (h *handler) getUser(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	user, err := h.svc.Admin.GetUser(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	out, err := h.userWithRoles(c, user)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, out)
}

func (h *handler) createUser(c *gin.Context) {
	var in service.UserInput
	if err := bindJSON(c, &in); err != nil {
		fail(c, err)
		return
	}
	user, err := h.svc.Admin.CreateUser(c.Request.Context(), actorOf(c), in)
	if err != nil {
		fail(c, err)
		return
	}
	out, err := h.userWithRoles(c, user)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, out)
}

func (h *handler) updateUser(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	var in service.UserUpdate
	if err := bindJSON(c, &in); err != nil {
		fail(c, err)
		return
	}
	user, err := h.svc.Admin.UpdateUser(c.Request.Context(), actorOf(c), id, in)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, dto.ToUserDTO(user))
}

func (h *handler) setUserActive(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	var req activeRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	user, err := h.svc.Admin.SetUserActive(c.Request.Context(), actorOf(c), id, *req.Active)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, dto.ToUserDTO(user))
}

func (h *handler) deleteUser(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.svc.Admin.DeleteUser(c.Request.Context(), actorOf(c), id); err != nil {
		fail(c, err)
		return
	}
	noContent(c)
}

// setUserPassword is the administrative reset; the current password is
// not checked.
func (h *handler) setUserPassword(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	var req setPasswordRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	if err := h.svc.Admin.ChangePassword(c.Request.Context(), actorOf(c), id, "", req.Password, false); err != nil {
		fail(c, err)
		return
	}
	noContent(c)
}

func (h *handler) assignRole(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	var req roleRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	if err := h.svc.Admin.AssignRole(c.Request.Context(), actorOf(c), id, req.Role); err != nil {
		fail(c, err)
		return
	}
	noContent(c)
}

func (h *handler) revokeRole(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.svc.Admin.RevokeRole(c.Request.Context(), actorOf(c), id, c.Param("role")); err != nil {
		fail(c, err)
		return
	}
	noContent(c)
}

func (h *handler) listRoles(c *gin.Context) {
	ctx := c.Request.Context()
	roles, err := h.svc.Admin.ListRoles(ctx)
	if err != nil {
		fail(c, err)
		return
	}
	out := make([]dto.RoleDTO, 0, len(roles))
	for _, r := range roles {
		item := dto.ToRoleDTO(r)
		if item.Permissions, err = h.svc.Admin.PermissionsOfRole(ctx, r.ID); err != nil {
			fail(c, err)
			return
		}
		out = append(out, item)
	}
	ok(c, out)
}

func (h *handler) createRole(c *gin.Context) {
	var in service.RoleInput
	if err := bindJSON(c, &in); err != nil {
		fail(c, err)
		return
	}
	role, err := h.svc.Admin.CreateRole(c.Request.Context(), actorOf(c), in)
	if err != nil {
		fail(c, err)
		return
	}
	out := dto.ToRoleDTO(role)
	if out.Permissions, err = h.svc.Admin.PermissionsOfRole(c.Request.Context(), role.ID); err != nil {
		fail(c, err)
		return
	}
	created(c, out)
}

func (h *handler) deleteRole(c *gin.Context) {
	if err := h.svc.Admin.DeleteRole(c.Request.Context(), actorOf(c), c.Param("name")); err != nil {
		fail(c, err)
		return
	}
	noContent(c)
}

func (h *handler) grantPermission(c *gin.Context) {
	var req permissionRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	if err := h.svc.Admin.GrantPermission(c.Request.Context(), actorOf(c), c.Param("name"), req.Permission); err != nil {
		fail(c, err)
		return
	}
	noContent(c)
}

func (h *handler) revokePermission(c *gin.Context) {
	if err := h.svc.Admin.RevokePermission(c.Request.Context(), actorOf(c), c.Param("name"), c.Param("code")); err != nil {
		fail(c, err)
		return
	}
	noContent(c)
}

func (h *handler) listPermissions(c *gin.Context) {
	perms, err := h.svc.Admin.ListPermissions(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, dto.MapSlice(perms, dto.ToPermissionDTO))
}

func (h *handler) createPermission(c *gin.Context) {
	var in service.PermissionInput
	if err := bindJSON(c, &in); err != nil {
		fail(c, err)
		return
	}
	perm, err := h.svc.Admin.CreatePermission(c.Request.Context(), actorOf(c), in)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, dto.ToPermissionDTO(perm))
}
