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
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tomoncle/libris/config"
	"github.com/tomoncle/libris/utils"
)

var (
	configPath string
	cfg        *config.AppConfig
	logger     *logrus.Logger
)

var rootCmd = &cobra.Command{
	Use:   "libris",
	Short: "Library management service",
	Long: `libris serves a library catalog with lending and user
administration over a JSON HTTP API.

Configuration is read from --config (YAML) and LIBRIS_* environment
variables, e.g. LIBRIS_AUTH_SECRET or LIBRIS_DATABASE_CONNECTION_TYPE.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
		utils.Configure(cfg.Log)
		logger = utils.NewLogger("LIBRIS")
		gin.SetMode(cfg.Server.Mode)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c",
		utils.EnvDefaultString("LIBRIS_CONFIG", ""), "path to the YAML configuration file")
	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd, bootstrapCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
