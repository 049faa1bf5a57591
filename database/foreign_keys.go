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

package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"gopkg.in/yaml.v3"
)

var referentialActions = []string{"CASCADE", "RESTRICT", "SET NULL", "NO ACTION"}

// ForeignKeyConstraint describes a foreign key relationship between tables.
type ForeignKeyConstraint struct {
	Table           string `yaml:"table"`
	Column          string `yaml:"column"`
	ReferenceTable  string `yaml:"reference_table"`
	ReferenceColumn string `yaml:"reference_column"`
	OnDelete        string `yaml:"on_delete,omitempty"`
	OnUpdate        string `yaml:"on_update,omitempty"`
	ConstraintName  string `yaml:"constraint_name,omitempty"`
}

// Name returns the explicit constraint name or "fk_<table>_<column>".
func (fk ForeignKeyConstraint) Name() string {
	if fk.ConstraintName != "" {
		return fk.ConstraintName
	}
	return fmt.Sprintf("fk_%s_%s", fk.Table, fk.Column)
}

// SQL returns the ALTER TABLE statement adding the constraint.
func (fk ForeignKeyConstraint) SQL() string {
	var b strings.Builder
	fmt.Fprintf(&b, "ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)",
		fk.Table, fk.Name(), fk.Column, fk.ReferenceTable, fk.ReferenceColumn)
	if fk.OnDelete != "" {
		b.WriteString(" ON DELETE " + strings.ToUpper(fk.OnDelete))
	}
	if fk.OnUpdate != "" {
		b.WriteString(" ON UPDATE " + strings.ToUpper(fk.OnUpdate))
	}
	return b.String()
}

// Validate reports every problem of the constraint.
func (fk ForeignKeyConstraint) Validate() error {
	var errs []error
	if fk.Table == "" {
		errs = append(errs, errors.New("table name cannot be empty"))
	}
	if fk.Column == "" {
		errs = append(errs, fmt.Errorf("column name cannot be empty: %s", fk.Table))
	}
	if fk.ReferenceTable == "" {
		errs = append(errs, fmt.Errorf("reference table cannot be empty: %s.%s", fk.Table, fk.Column))
	}
	if fk.ReferenceColumn == "" {
		errs = append(errs, fmt.Errorf("reference column cannot be empty: %s.%s", fk.Table, fk.Column))
	}
	for _, action := range []string{fk.OnDelete, fk.OnUpdate} {
		if action != "" && !slices.Contains(referentialActions, strings.ToUpper(action)) {
			errs = append(errs, fmt.Errorf("invalid referential action %q on %s", action, fk.Name()))
		}
	}
	return errors.Join(errs...)
}

// ForeignKeyProvider is implemented by registered models that reference
// other tables.
type ForeignKeyProvider interface {
	ForeignKeys() []ForeignKeyConstraint
}

// RegisteredForeignKeys collects the constraints declared by registered
// models.
func RegisteredForeignKeys() []ForeignKeyConstraint {
	var fks []ForeignKeyConstraint
	for _, m := range GetRegisteredModels() {
		if p, ok := m.Instance().(ForeignKeyProvider); ok {
			fks = append(fks, p.ForeignKeys()...)
		}
	}
	return fks
}

// ForeignKeyConfig is the YAML file layout listing foreign keys.
type ForeignKeyConfig struct {
	ForeignKeys []ForeignKeyConstraint `yaml:"foreign_keys"`
}

// ForeignKeyManager validates and applies a set of constraints.
type ForeignKeyManager struct {
	constraints []ForeignKeyConstraint
	logger      Logger
}

// NewForeignKeyManager uses the constraints declared by registered models.
func NewForeignKeyManager(logger Logger) *ForeignKeyManager {
	return &ForeignKeyManager{constraints: RegisteredForeignKeys(), logger: logger}
}

// NewForeignKeyManagerFromFile loads constraints from a YAML file.
func NewForeignKeyManagerFromFile(logger Logger, path string) (*ForeignKeyManager, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read foreign key file: %w", err)
	}
	var cfg ForeignKeyConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse foreign key file: %w", err)
	}
	return &ForeignKeyManager{constraints: cfg.ForeignKeys, logger: logger}, nil
}

func (fkm *ForeignKeyManager) Constraints() []ForeignKeyConstraint {
	return slices.Clone(fkm.constraints)
}

// ConstraintsByTable returns the constraints defined on a table.
func (fkm *ForeignKeyManager) ConstraintsByTable(table string) []ForeignKeyConstraint {
	var result []ForeignKeyConstraint
	for _, c := range fkm.constraints {
		if strings.EqualFold(c.Table, table) {
			result = append(result, c)
		}
	}
	return result
}

// Validate returns the joined problems of every constraint, or nil.
func (fkm *ForeignKeyManager) Validate() error {
	var errs []error
	seen := make(map[string]bool, len(fkm.constraints))
	for _, c := range fkm.constraints {
		if err := c.Validate(); err != nil {
			errs = append(errs, err)
		}
		if seen[c.Name()] {
			errs = append(errs, fmt.Errorf("duplicate constraint name %s", c.Name()))
		}
		seen[c.Name()] = true
	}
	return errors.Join(errs...)
}

// SupportsAlterConstraints reports whether db can add constraints to
// existing tables; sqlite cannot.
func SupportsAlterConstraints(db bun.IDB) bool {
	return db.Dialect().Name() != dialect.SQLite
}

// AddAll applies every constraint. A constraint that already exists is
// skipped.
func (fkm *ForeignKeyManager) AddAll(ctx context.Context, db bun.IDB) error {
	if !SupportsAlterConstraints(db) {
		fkm.logger.Info("Dialect cannot alter constraints, foreign keys skipped", "dialect", db.Dialect().Name())
		return nil
	}
	for _, c := range fkm.constraints {
		if _, err := db.ExecContext(ctx, c.SQL()); err != nil {
			if ok, kind := IsSqlError(err); ok && kind == ExistConstraintErr {
				fkm.logger.Debug("Foreign key already exists", "constraint", c.Name())
				continue
			}
			return fmt.Errorf("add foreign key %s: %w", c.Name(), err)
		}
		fkm.logger.Debug("Foreign key added", "constraint", c.Name())
	}
	return nil
}

// Export writes the constraints to a YAML file, creating directories as
// needed.
func (fkm *ForeignKeyManager) Export(path string) error {
	data, err := yaml.Marshal(&ForeignKeyConfig{ForeignKeys: fkm.constraints})
	if err != nil {
		return fmt.Errorf("failed to serialize foreign keys: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
