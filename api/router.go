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
	"context"

	"github.com/gin-gonic/gin"
	"github.com/tomoncle/libris/auth"
	"github.com/tomoncle/libris/database"
	"github.com/tomoncle/libris/scheduler"
	"github.com/tomoncle/libris/service"
)

// Services are the application services served over HTTP.
type Services struct {
	Catalog *service.Catalog
	Books   *service.BookService
	Loans   *service.LoanService
	Admin   *service.AdminService
	Audit   *service.AuditService
	Stats   *service.StatsService
}

// HealthReporter is satisfied by *database.BaseDatabaseFactory.
type HealthReporter interface {
	GetHealthStatus(ctx context.Context) *database.HealthStatus
	GetStats() *database.DBStats
}

// JobLister is satisfied by *scheduler.Scheduler.
type JobLister interface {
	Entries() []scheduler.EntryInfo
}

type Options struct {
	CORSOrigins []string
	Health      HealthReporter
	Jobs        JobLister
}

type handler struct {
	svc    Services
	authn  *Authenticator
	health HealthReporter
	jobs   JobLister
}

// NewRouter builds the engine with every route under /api.
func NewRouter(svc Services, authn *Authenticator, opts Options) *gin.Engine {
	h := &handler{svc: svc, authn: authn, health: opts.Health, jobs: opts.Jobs}

	r := gin.New()
	r.Use(RequestID(), AccessLog(), Recovery(), CORS(opts.CORSOrigins))
	r.NoRoute(notFoundRoute)

	api := r.Group("/api")
	api.GET("/health", h.healthCheck)

	authGroup := api.Group("/auth")
	authGroup.POST("/login", h.login)

	private := api.Group("", authn.Required())
	private.POST("/auth/logout", h.logout)
	private.GET("/auth/me", h.me)
	private.PUT("/auth/password", h.changeOwnPassword)
	private.GET("/stats", RequirePermission(auth.PermSystemRead), h.stats)

	registerDirectory(private, "/authors", svc.Catalog.Authors)
	registerDirectory(private, "/categories", svc.Catalog.Categories)
	registerDirectory(private, "/publishers", svc.Catalog.Publishers)
	registerDirectory(private, "/contributors", svc.Catalog.Contributors)

	h.registerBooks(private.Group("/books"))
	h.registerLoans(private.Group("/loans"))
	h.registerUsers(private.Group("/users"))
	h.registerRoles(private.Group("/roles"))
	h.registerPermissions(private.Group("/permissions"))
	h.registerAudit(private.Group("/audit"))
	return r
}
