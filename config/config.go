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
package config

import (
	"bytes"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/tomoncle/libris/auth"
	"github.com/tomoncle/libris/database"
	"github.com/tomoncle/libris/scheduler"
	"github.com/tomoncle/libris/service"
	"github.com/tomoncle/libris/utils"
	"gopkg.in/yaml.v3"
)

const EnvPrefix = "LIBRIS"

type ServerConfig struct {
	Addr            string        `json:"addr" yaml:"addr" mapstructure:"addr"`
	Mode            string        `json:"mode" yaml:"mode" mapstructure:"mode"` // gin mode: debug, release or test
	ReadTimeout     time.Duration `json:"read_timeout" yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout" yaml:"write_timeout" mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `json:"cors_origins" yaml:"cors_origins" mapstructure:"cors_origins"`
}

// AuthConfig configures token signing and the administrator created by
// bootstrap.
type AuthConfig struct {
	Secret        string        `json:"-" yaml:"secret" mapstructure:"secret"`
	Issuer        string        `json:"issuer" yaml:"issuer" mapstructure:"issuer"`
	TokenTTL      time.Duration `json:"token_ttl" yaml:"token_ttl" mapstructure:"token_ttl"`
	AdminUsername string        `json:"admin_username" yaml:"admin_username" mapstructure:"admin_username"`
	AdminEmail    string        `json:"admin_email" yaml:"admin_email" mapstructure:"admin_email"`
	AdminPassword string        `json:"-" yaml:"admin_password" mapstructure:"admin_password"`
}

type SchedulerConfig struct {
	Enabled     bool   `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	OverdueSpec string `json:"overdue_spec" yaml:"overdue_spec" mapstructure:"overdue_spec"`
}

type AppConfig struct {
	Server    ServerConfig       `json:"server" yaml:"server" mapstructure:"server"`
	Database  database.Config    `json:"database" yaml:"database" mapstructure:"database"`
	Log       utils.LogOptions   `json:"log" yaml:"log" mapstructure:"log"`
	Auth      AuthConfig         `json:"auth" yaml:"auth" mapstructure:"auth"`
	Redis     auth.RedisOptions  `json:"redis" yaml:"redis" mapstructure:"redis"`
	Library   service.LoanPolicy `json:"library" yaml:"library" mapstructure:"library"`
	Scheduler SchedulerConfig    `json:"scheduler" yaml:"scheduler" mapstructure:"scheduler"`
}

func Default() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Addr:            ":8080",
			Mode:            "release",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Database: *database.DefaultConfig(),
		Log:      utils.LogOptions{Level: "info", Format: "text", FileDir: "logs", MaxAgeDays: 7},
		Auth: AuthConfig{
			Issuer:        "libris",
			TokenTTL:      12 * time.Hour,
			AdminUsername: "admin",
			AdminEmail:    "admin@libris.local",
		},
		Library: service.DefaultLoanPolicy(),
		Scheduler: SchedulerConfig{
			Enabled:     true,
			OverdueSpec: "0 */15 * * * *",
		},
	}
}

// Load reads path over the defaults, applies LIBRIS_ environment overrides
// (LIBRIS_AUTH_SECRET, LIBRIS_DATABASE_CONNECTION_TYPE, ...) and then the
// DB_* connection overrides. An empty path loads defaults and environment
// only.
func Load(path string) (*AppConfig, error) {
	vp := viper.New()
	vp.SetConfigType("yaml")

	defaults, err := yaml.Marshal(Default())
	if err != nil {
		return nil, fmt.Errorf("failed to encode default configuration: %w", err)
	}
	if err := vp.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return nil, fmt.Errorf("failed to load default configuration: %w", err)
	}
	if path != "" {
		vp.SetConfigFile(path)
		if err := vp.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	vp.SetEnvPrefix(EnvPrefix)
	vp.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vp.AutomaticEnv()

	cfg := new(AppConfig)
	if err := vp.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	database.OverrideFromEnv(&cfg.Database.ConnectionConfig)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var databaseTypes = []string{"sqlite", "postgres", "mysql"}

// Validate reports every configuration problem at once.
func (c *AppConfig) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if !slices.Contains([]string{"debug", "release", "test"}, c.Server.Mode) {
		errs = append(errs, fmt.Errorf("server.mode %q must be debug, release or test", c.Server.Mode))
	}
	if t := strings.ToLower(c.Database.ConnectionConfig.Type); !slices.Contains(databaseTypes, t) {
		errs = append(errs, fmt.Errorf("database.connection.type %q is not supported", c.Database.ConnectionConfig.Type))
	}
	if c.Database.ConnectionConfig.DBName == "" {
		errs = append(errs, errors.New("database.connection.dbname is required"))
	}
	if len(c.Auth.Secret) < auth.MinSecretLength {
		errs = append(errs, fmt.Errorf("auth.secret must have at least %d bytes (set %s_AUTH_SECRET)", auth.MinSecretLength, EnvPrefix))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("auth.token_ttl must be positive"))
	}
	if err := c.Library.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("library: %w", err))
	}
	if c.Scheduler.Enabled {
		if _, err := scheduler.ParseSpec(c.Scheduler.OverdueSpec); err != nil {
			errs = append(errs, fmt.Errorf("scheduler.overdue_spec: %w", err))
		}
	}
	return errors.Join(errs...)
}
