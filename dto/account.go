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
package dto

import (
	"time"

	"github.com/tomoncle/libris/model"
)

type UserDTO struct {
	ID          int64      `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	DisplayName string     `json:"display_name"`
	IsActive    bool       `json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	Roles       []string   `json:"roles,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ToUserDTO never carries the password hash.
func ToUserDTO(u *model.User) UserDTO {
	return UserDTO{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		IsActive:    u.IsActive,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}

// WithRoles returns d with role names attached.
func (d UserDTO) WithRoles(roles []*model.Role) UserDTO {
	d.Roles = make([]string, 0, len(roles))
	for _, r := range roles {
		d.Roles = append(d.Roles, r.Name)
	}
	return d
}

type RoleDTO struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions,omitempty"`
}

func ToRoleDTO(r *model.Role) RoleDTO {
	return RoleDTO{ID: r.ID, Name: r.Name, Description: r.Description}
}

type PermissionDTO struct {
	ID          int64  `json:"id"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

func ToPermissionDTO(p *model.Permission) PermissionDTO {
	return PermissionDTO{ID: p.ID, Code: p.Code, Description: p.Description}
}
