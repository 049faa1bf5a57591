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
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tomoncle/libris/database"
	"github.com/tomoncle/libris/service"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		factory, err := connect(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer func() { _ = factory.Close() }()

		applied, err := database.NewMigrationManager(factory.GetDB(), &cfg.Database, nil).GetAppliedMigrations(cmd.Context())
		if err != nil {
			return err
		}
		for _, m := range applied {
			fmt.Fprintf(cmd.OutOrStdout(), "%s_%s\t%s\n", m.Version, m.Name, m.AppliedAt.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Execute the SQL seed files",
	RunE: func(cmd *cobra.Command, args []string) error {
		factory, err := connect(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer func() { _ = factory.Close() }()
		return factory.GetManager().InitData(cmd.Context())
	},
}

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Create the built-in roles, permissions and the administrator",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Auth.AdminPassword == "" {
			return errors.New("auth.admin_password is required (LIBRIS_AUTH_ADMIN_PASSWORD)")
		}
		factory, err := connect(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer func() { _ = factory.Close() }()
		return bootstrapAdmin(cmd.Context(), newServices(factory).Admin)
	},
}

func connect(ctx context.Context, migrate bool) (*database.BaseDatabaseFactory, error) {
	factory := database.NewDatabaseFactory()
	if _, err := factory.CreateFromConfig(&cfg.Database); err != nil {
		return nil, err
	}
	if err := factory.InitializeDatabase(ctx, migrate); err != nil {
		_ = factory.Close()
		return nil, err
	}
	return factory, nil
}

func bootstrapAdmin(ctx context.Context, admin *service.AdminService) error {
	user, err := admin.Bootstrap(ctx, service.BootstrapInput{
		Username: cfg.Auth.AdminUsername,
		Email:    cfg.Auth.AdminEmail,
		Password: cfg.Auth.AdminPassword,
	})
	if err != nil {
		return fmt.Errorf("bootstrap administrator: %w", err)
	}
	logger.WithField("username", user.Username).Info("Administrator ready")
	return nil
}
