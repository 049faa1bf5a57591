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
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tomoncle/libris/database"
	"github.com/tomoncle/libris/scheduler"
	"github.com/tomoncle/libris/service"
)

type statsResponse struct {
	Library  *service.LibraryStats `json:"library"`
	Database *database.DBStats     `json:"database,omitempty"`
	Jobs     []scheduler.EntryInfo `json:"jobs,omitempty"`
}

type healthResponse struct {
	Status   string                 `json:"status"`
	Database *database.HealthStatus `json:"database,omitempty"`
}

// healthCheck answers 503 while the database is unhealthy.
func (h *handler) healthCheck(c *gin.Context) {
	if h.health == nil {
		ok(c, healthResponse{Status: "ok"})
		return
	}
	status := h.health.GetHealthStatus(c.Request.Context())
	if status == nil || !status.Healthy {
		c.JSON(http.StatusServiceUnavailable, Envelope{
			Code:      http.StatusServiceUnavailable,
			Message:   "database unavailable",
			Data:      healthResponse{Status: "unavailable", Database: status},
			RequestID: requestID(c),
		})
		return
	}
	ok(c, healthResponse{Status: "ok", Database: status})
}

func (h *handler) stats(c *gin.Context) {
	lib, err := h.svc.Stats.Library(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	out := statsResponse{Library: lib}
	if h.health != nil {
		out.Database = h.health.GetStats()
	}
	if h.jobs != nil {
		out.Jobs = h.jobs.Entries()
	}
	ok(c, out)
}
