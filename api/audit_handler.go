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
	"github.com/tomoncle/libris/auth"
	"github.com/tomoncle/libris/dto"
	"github.com/tomoncle/libris/service"
)

const defaultSummaryWindow = 30 * 24 * time.Hour

type summaryResponse struct {
	From    time.Time             `json:"from"`
	To      time.Time             `json:"to"`
	Actions []service.ActionCount `json:"actions"`
}

func (h *handler) registerAudit(g *gin.RouterGroup) {
	read := RequirePermission(auth.PermAuditRead)
	g.GET("", read, h.listAudit)
	g.GET("/summary", read, h.auditSummary)
}

func (h *handler) listAudit(c *gin.Context) {
	lq, err := listQuery(c)
	if err != nil {
		fail(c, err)
		return
	}
	q := service.AuditQuery{
		ListQuery:  lq,
		EntityType: c.Query("entity_type"),
		Action:     c.Query("action"),
	}
	if q.EntityID, err = queryID(c, "entity_id"); err != nil {
		fail(c, err)
		return
	}
	if q.ActorID, err = queryID(c, "actor_id"); err != nil {
		fail(c, err)
		return
	}
	if q.From, err = queryTime(c, "from"); err != nil {
		fail(c, err)
		return
	}
	if q.To, err = queryTime(c, "to"); err != nil {
		fail(c, err)
		return
	}
	page, err := h.svc.Audit.List(c.Request.Context(), q)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, dto.MapPage(page, dto.ToAuditEntryDTO))
}

// auditSummary defaults to the last 30 days ending now.
func (h *handler) auditSummary(c *gin.Context) {
	from, err := queryTime(c, "from")
	if err != nil {
		fail(c, err)
		return
	}
	to, err := queryTime(c, "to")
	if err != nil {
		fail(c, err)
		return
	}
	if to.IsZero() {
		to = time.Now().UTC()
	}
	if from.IsZero() {
		from = to.Add(-defaultSummaryWindow)
	}
	rows, err := h.svc.Audit.Summary(c.Request.Context(), from, to)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, summaryResponse{From: from, To: to, Actions: rows})
}
