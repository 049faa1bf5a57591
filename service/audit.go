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
	"fmt"
	"time"

	"github.com/tomoncle/libris"
	"github.com/tomoncle/libris/model"
	"github.com/tomoncle/libris/types"
	"github.com/uptrace/bun"
)

// Audit actions.
const (
	ActionCreate      = "create"
	ActionUpdate      = "update"
	ActionActivate    = "activate"
	ActionDeactivate  = "deactivate"
	ActionDelete      = "delete"
	ActionCheckout    = "checkout"
	ActionReturn      = "return"
	ActionRenew       = "renew"
	ActionOverdue     = "overdue"
	ActionAssignRole  = "assign_role"
	ActionRevokeRole  = "revoke_role"
	ActionGrant       = "grant"
	ActionRevoke      = "revoke"
	ActionLogin       = "login"
	ActionPassword    = "change_password"
	ActionContributor = "contributor"
)

// ActionCount is one row of the audit summary.
type ActionCount struct {
	Action string `bun:"action" json:"action"`
	Count  int    `bun:"count" json:"count"`
}

type AuditService struct {
	entries libris.Service[model.AuditEntry]
	now     func() time.Time
}

func NewAuditService(db *bun.DB) *AuditService {
	return &AuditService{entries: libris.NewService[model.AuditEntry](db), now: utcNow}
}

// Record writes an entry through db, normally the caller's transaction, so
// the entry commits or rolls back with the change it describes.
func (s *AuditService) Record(ctx context.Context, db bun.IDB, actor *int64, action, entityType string, entityID int64, changes types.JsonObject) error {
	entry := &model.AuditEntry{
		ActorID:    actor,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Changes:    changes,
		CreatedAt:  s.now(),
	}
	if _, err := db.NewInsert().Model(entry).Exec(ctx); err != nil {
		return fmt.Errorf("record audit entry: %w", err)
	}
	return nil
}

func (s *AuditService) List(ctx context.Context, q AuditQuery) (*types.PagedResult[model.AuditEntry], error) {
	spec, err := AuditSpec(q)
	if err != nil {
		return nil, err
	}
	return s.entries.FindPage(ctx, spec, q.PageRequest())
}

// Summary counts entries per action in [from, to).
func (s *AuditService) Summary(ctx context.Context, from, to time.Time) ([]ActionCount, error) {
	if !from.Before(to) {
		return nil, types.NewInvalidArgument("to", "must be after from")
	}
	rows := make([]ActionCount, 0)
	err := s.entries.SelectBuilder().
		Model((*model.AuditEntry)(nil)).
		ColumnExpr("?TableAlias.action AS action").
		ColumnExpr("COUNT(*) AS count").
		Where("?TableAlias.created_at >= ?", from.UTC()).
		Where("?TableAlias.created_at < ?", to.UTC()).
		GroupExpr("?TableAlias.action").
		OrderExpr("?TableAlias.action ASC").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("audit summary: %w", err)
	}
	return rows, nil
}

func utcNow() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}
