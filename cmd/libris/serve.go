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
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tomoncle/libris/api"
	"github.com/tomoncle/libris/auth"
	"github.com/tomoncle/libris/database"
	"github.com/tomoncle/libris/scheduler"
	"github.com/tomoncle/libris/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func newServices(factory *database.BaseDatabaseFactory) api.Services {
	db := factory.GetDB()
	audit := service.NewAuditService(db)
	return api.Services{
		Catalog: service.NewCatalog(db, audit),
		Books:   service.NewBookService(db, audit),
		Loans:   service.NewLoanService(db, audit, cfg.Library),
		Admin:   service.NewAdminService(db, audit),
		Audit:   audit,
		Stats:   service.NewStatsService(db),
	}
}

// revocationStore uses redis when an address is configured and the
// in-process store otherwise.
func revocationStore(ctx context.Context) (auth.RevocationStore, func(), error) {
	client, err := auth.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	if client == nil {
		logger.Warn("Redis not configured, token revocation is kept in memory")
		return auth.NewMemoryStore(), func() {}, nil
	}
	logger.WithField("addr", cfg.Redis.Addr).Info("Token revocation backed by redis")
	return auth.NewRedisStore(client), func() { _ = client.Close() }, nil
}

func serve(ctx context.Context) error {
	factory, err := database.Open(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	defer func() { _ = factory.Close() }()

	svc := newServices(factory)
	if cfg.Auth.AdminPassword != "" {
		if err := bootstrapAdmin(ctx, svc.Admin); err != nil {
			return err
		}
	}

	tokens, err := auth.NewTokenManager(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}
	revoked, closeStore, err := revocationStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	opts := api.Options{CORSOrigins: cfg.Server.CORSOrigins, Health: factory}
	if cfg.Scheduler.Enabled {
		sched := scheduler.New()
		if err := sched.Register(cfg.Scheduler.OverdueSpec, scheduler.NewMarkOverdueJob(svc.Loans)); err != nil {
			return err
		}
		sched.Start()
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := sched.Stop(stopCtx); err != nil {
				logger.WithError(err).Warn("Scheduler did not stop cleanly")
			}
		}()
		opts.Jobs = sched
	}

	router := api.NewRouter(svc, api.NewAuthenticator(tokens, revoked), opts)
	server := api.NewServer(router, api.ServerOptions{
		Addr:            cfg.Server.Addr,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	return server.Run(ctx)
}
