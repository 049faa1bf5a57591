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
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tomoncle/libris/dto"
	"github.com/tomoncle/libris/types"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	Token       string      `json:"token"`
	TokenType   string      `json:"token_type"`
	ExpiresAt   time.Time   `json:"expires_at"`
	User        dto.UserDTO `json:"user"`
	Permissions []string    `json:"permissions"`
}

type meResponse struct {
	User        dto.UserDTO `json:"user"`
	Permissions []string    `json:"permissions"`
}

type passwordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password" binding:"required"`
}

func (h *handler) login(c *gin.Context) {
	var req loginRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	ctx := c.Request.Context()
	user, err := h.svc.Admin.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	perms, err := h.svc.Admin.PermissionsOf(ctx, user.ID)
	if err != nil {
		fail(c, err)
		return
	}
	roles, err := h.svc.Admin.RolesOf(ctx, user.ID)
	if err != nil {
		fail(c, err)
		return
	}
	token, claims, err := h.authn.tokens.Issue(user.ID, user.Username, perms)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, loginResponse{
		Token:       token,
		TokenType:   "Bearer",
		ExpiresAt:   claims.ExpiresAt.Time,
		User:        dto.ToUserDTO(user).WithRoles(roles),
		Permissions: perms,
	})
}

// logout revokes the presented token until it expires.
func (h *handler) logout(c *gin.Context) {
	claims := claimsOf(c)
	if err := h.authn.revoked.Revoke(c.Request.Context(), claims.ID, claims.ExpiresAt.Time); err != nil {
		fail(c, err)
		return
	}
	noContent(c)
}

func (h *handler) me(c *gin.Context) {
	ctx := c.Request.Context()
	id := claimsOf(c).UserID()
	user, err := h.svc.Admin.GetUser(ctx, id)
	if err != nil {
		fail(c, err)
		return
	}
	roles, err := h.svc.Admin.RolesOf(ctx, id)
	if err != nil {
		fail(c, err)
		return
	}
	perms, err := h.svc.Admin.PermissionsOf(ctx, id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, meResponse{User: dto.ToUserDTO(user).WithRoles(roles), Permissions: perms})
}

func (h *handler) changeOwnPassword(c *gin.Context) {
	var req passwordRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	actor := actorOf(c)
	if actor == nil {
		fail(c, &types.UnauthorizedError{})
		return
	}
	if err := h.svc.Admin.ChangePassword(c.Request.Context(), actor, *actor, req.CurrentPassword, req.NewPassword, true); err != nil {
		fail(c, err)
		return
	}
	noContent(c)
}
