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
	"github.com/tomoncle/libris/types"
)

type AuditEntryDTO struct {
	ID         int64            `json:"id"`
	ActorID    *int64           `json:"actor_id,omitempty"`
	Action     string           `json:"action"`
	EntityType string           `json:"entity_type"`
	EntityID   int64            `json:"entity_id"`
	Changes    types.JsonObject `json:"changes,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
}

func ToAuditEntryDTO(e *model.AuditEntry) AuditEntryDTO {
	return AuditEntryDTO{
		ID:         e.ID,
		ActorID:    e.ActorID,
		Action:     e.Action,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		Changes:    e.Changes,
		CreatedAt:  e.CreatedAt,
	}
}

