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

	"github.com/sirupsen/logrus"
	"github.com/tomoncle/libris"
	"github.com/tomoncle/libris/model"
	"github.com/tomoncle/libris/types"
	"github.com/tomoncle/libris/utils"
	"github.com/uptrace/bun"
)

const loanEntity = "loan"

// LoanPolicy bounds lending.
type LoanPolicy struct {
	LoanDays       int `json:"loan_days" yaml:"loan_days" mapstructure:"loan_days"`
	MaxActiveLoans int `json:"max_active_loans" yaml:"max_active_loans" mapstructure:"max_active_loans"`
	MaxRenewals    int `json:"max_renewals" yaml:"max_renewals" mapstructure:"max_renewals"`
}

func DefaultLoanPolicy() LoanPolicy {
	return LoanPolicy{LoanDays: 14, MaxActiveLoans: 5, MaxRenewals: 2}
}

func (p LoanPolicy) Validate() error {
	switch {
	case p.LoanDays < 1:
		return types.NewInvalidArgument("loan_days", "must be at least 1")
	case p.MaxActiveLoans < 1:
		return types.NewInvalidArgument("max_active_loans", "must be at least 1")
	case p.MaxRenewals < 0:
		return types.NewInvalidArgument("max_renewals", "must not be negative")
	}
	return nil
}

func (p LoanPolicy) loanPeriod() time.Duration {
	return time.Duration(p.LoanDays) * 24 * time.Hour
}

type LoanService struct {
	loans  libris.Service[model.Loan]
	audit  *AuditService
	policy LoanPolicy
	now    func() time.Time
	logger *utils.Logger
}

func NewLoanService(db *bun.DB, audit *AuditService, policy LoanPolicy) *LoanService {
	return &LoanService{
		loans:  libris.NewService[model.Loan](db),
		audit:  audit,
		policy: policy,
		now:    utcNow,
		logger: utils.NewLogger("LOANS"),
	}
}

func (s *LoanService) Policy() LoanPolicy { return s.policy }

func (s *LoanService) List(ctx context.Context, q LoanQuery) (*types.PagedResult[model.Loan], error) {
	spec, err := LoansSpec(q)
	if err != nil {
		return nil, err
	}
	return s.loans.FindPage(ctx, spec, q.PageRequest())
}

func (s *LoanService) Get(ctx context.Context, id int64) (*model.Loan, error) {
	return s.loans.Get(ctx, id)
}

// Checkout lends one copy of a book to a user. The copy is taken with a
// conditional decrement so concurrent checkouts never overdraw.
func (s *LoanService) Checkout(ctx context.Context, actor *int64, userID, bookID int64) (*model.Loan, error) {
	now := s.now()
	loan := &model.Loan{
		BookID:     bookID,
		UserID:     userID,
		Status:     model.LoanActive,
		BorrowedAt: now,
		DueAt:      now.Add(s.policy.loanPeriod()),
	}
	err := s.loans.RunInTx(ctx, func(ctx context.Context, tx *bun.Tx) error {
		user := new(model.User)
		if err := tx.NewSelect().Model(user).Where("?TableAlias.id = ?", userID).Scan(ctx); err != nil {
			return notFoundOr(err, "user", userID)
		}
		if !user.IsActive {
			return types.NewConflict(loanEntity, "user is not active")
		}
		book := new(model.Book)
		if err := tx.NewSelect().Model(book).Where("?TableAlias.id = ?", bookID).Scan(ctx); err != nil {
			return notFoundOr(err, bookEntity, bookID)
		}
		if !book.IsActive {
			return types.NewConflict(loanEntity, "book is not available for lending")
		}

		overdue, err := s.loans.CountWithTx(ctx, tx, mustSpec(LoansSpec(LoanQuery{UserID: userID, Statuses: []model.LoanStatus{model.LoanOverdue}})))
		if err != nil {
			return err
		}
		if overdue > 0 {
			return types.NewConflict(loanEntity, "user has overdue loans")
		}
		active, err := outstandingLoans(ctx, tx, "user_id", userID)
		if err != nil {
			return err
		}
		if active >= s.policy.MaxActiveLoans {
			return types.NewConflict(loanEntity, fmt.Sprintf("user already has %d active loans", active))
		}

		res, err := tx.NewUpdate().
			Model((*model.Book)(nil)).
			Set("available_copies = available_copies - 1").
			Set("updated_at = ?", now).
			Where("id = ?", bookID).
			Where("available_copies > 0").
			Exec(ctx)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return types.NewConflict(loanEntity, "no copies available")
		}

		if err := s.loans.SaveWithTx(ctx, tx, loan); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, actor, ActionCheckout, loanEntity, loan.ID,
			types.JsonObject{"book_id": bookID, "user_id": userID, "due_at": loan.DueAt})
	})
	if err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{"loan": loan.ID, "book": bookID, "user": userID}).Info("Book checked out")
	return loan, nil
}

// Return closes an outstanding loan and puts the copy back.
func (s *LoanService) Return(ctx context.Context, actor *int64, loanID int64) (*model.Loan, error) {
	now := s.now()
	var loan *model.Loan
	err := s.loans.RunInTx(ctx, func(ctx context.Context, tx *bun.Tx) (err error) {
		loan, err = s.loans.GetWithTx(ctx, tx, loanID)
		if err != nil {
			return err
		}
		if !loan.Status.Outstanding() {
			return types.NewConflict(loanEntity, "loan is already returned")
		}
		from := loan.Status
		loan.Status = model.LoanReturned
		loan.ReturnedAt = &now
		if err := s.loans.UpdateWithTx(ctx, tx, loan); err != nil {
			return err
		}
		_, err = tx.NewUpdate().
			Model((*model.Book)(nil)).
			Set("available_copies = available_copies + 1").
			Set("updated_at = ?", now).
			Where("id = ?", loan.BookID).
			Where("available_copies < total_copies").
			Exec(ctx)
		if err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, actor, ActionReturn, loanEntity, loanID,
			types.JsonObject{}.Change("status", from.Name(), loan.Status.Name()))
	})
	if err != nil {
		return nil, err
	}
	return loan, nil
}

// Renew extends an active loan by one loan period. Overdue loans cannot be
// renewed.
func (s *LoanService) Renew(ctx context.Context, actor *int64, loanID int64) (*model.Loan, error) {
	var loan *model.Loan
	err := s.loans.RunInTx(ctx, func(ctx context.Context, tx *bun.Tx) (err error) {
		loan, err = s.loans.GetWithTx(ctx, tx, loanID)
		if err != nil {
			return err
		}
		switch {
		case loan.Status == model.LoanOverdue || loan.IsOverdueAt(s.now()):
			return types.NewConflict(loanEntity, "overdue loans cannot be renewed")
		case loan.Status != model.LoanActive:
			return types.NewConflict(loanEntity, "loan is not active")
		case loan.Renewals >= s.policy.MaxRenewals:
			return types.NewConflict(loanEntity, fmt.Sprintf("renewal limit of %d reached", s.policy.MaxRenewals))
		}
		from := loan.DueAt
		loan.DueAt = loan.DueAt.Add(s.policy.loanPeriod())
		loan.Renewals++
		if err := s.loans.UpdateWithTx(ctx, tx, loan); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, actor, ActionRenew, loanEntity, loanID,
			types.JsonObject{}.Change("due_at", from, loan.DueAt))
	})
	if err != nil {
		return nil, err
	}
	return loan, nil
}

// MarkOverdue flags every active loan due before now and returns how many
// were flagged.
func (s *LoanService) MarkOverdue(ctx context.Context, now time.Time) (int, error) {
	now = now.UTC()
	var flagged int
	err := s.loans.RunInTx(ctx, func(ctx context.Context, tx *bun.Tx) error {
		spec := mustSpec(LoansSpec(LoanQuery{Statuses: []model.LoanStatus{model.LoanActive}, DueBefore: now}))
		due, err := s.loans.FindWithTx(ctx, tx, spec)
		if err != nil {
			return err
		}
		if len(due) == 0 {
			return nil
		}
		stamp := now.Truncate(time.Second)
		for _, l := range due {
			// The status guard makes a concurrent run skip rows it already flagged.
			res, err := tx.NewUpdate().
				Model((*model.Loan)(nil)).
				Set("status = ?", model.LoanOverdue).
				Set("updated_at = ?", stamp).
				Where("id = ?", l.ID).
				Where("status = ?", model.LoanActive).
				Exec(ctx)
			if err != nil {
				return err
			}
			if n, _ := res.RowsAffected(); n == 0 {
				continue
			}
			flagged++
			err = s.audit.Record(ctx, tx, nil, ActionOverdue, loanEntity, l.ID,
				types.JsonObject{"due_at": l.DueAt, "user_id": l.UserID})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if flagged > 0 {
		s.logger.WithField("count", flagged).Info("Loans marked overdue")
	}
	return flagged, nil
}

// mustSpec unwraps specs built from fixed, valid arguments.
func mustSpec[T any](spec *types.Specification[T], err error) *types.Specification[T] {
	if err != nil {
		panic(err)
	}
	return spec
}
