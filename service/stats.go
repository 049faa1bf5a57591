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

	"github.com/tomoncle/libris/model"
	"github.com/uptrace/bun"
)

// LibraryStats summarises the collection and lending.
type LibraryStats struct {
	Titles          int `json:"titles"`
	Copies          int `json:"copies"`
	AvailableCopies int `json:"available_copies"`
	Users           int `json:"users"`
	ActiveLoans     int `json:"active_loans"`
	OverdueLoans    int `json:"overdue_loans"`
}

type StatsService struct {
	db *bun.DB
}

func NewStatsService(db *bun.DB) *StatsService {
	return &StatsService{db: db}
}

func (s *StatsService) Library(ctx context.Context) (*LibraryStats, error) {
	stats := new(LibraryStats)
	err := s.db.NewSelect().
		Model((*model.Book)(nil)).
		ColumnExpr("COUNT(*) AS titles").
		ColumnExpr("COALESCE(SUM(?TableAlias.total_copies), 0) AS copies").
		ColumnExpr("COALESCE(SUM(?TableAlias.available_copies), 0) AS available_copies").
		Where("?TableAlias.is_active = ?", true).
		Scan(ctx, &stats.Titles, &stats.Copies, &stats.AvailableCopies)
	if err != nil {
		return nil, fmt.Errorf("book statistics: %w", err)
	}
	if stats.Users, err = s.db.NewSelect().Model((*model.User)(nil)).Count(ctx); err != nil {
		return nil, fmt.Errorf("user statistics: %w", err)
	}
	counts := map[model.LoanStatus]*int{
		model.LoanActive:  &stats.ActiveLoans,
		model.LoanOverdue: &stats.OverdueLoans,
	}
	for status, dst := range counts {
		n, err := s.db.NewSelect().Model((*model.Loan)(nil)).Where("status = ?", status).Count(ctx)
		if err != nil {
			return nil, fmt.Errorf("loan statistics: %w", err)
		}
		*dst = n
	}
	return stats, nil
}
