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
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tomoncle/libris/auth"
	"github.com/tomoncle/libris/dto"
	"github.com/tomoncle/libris/model"
	"github.com/tomoncle/libris/service"
	"github.com/tomoncle/libris/types"
)

type checkoutRequest struct {
	UserID int64 `json:"user_id"`
	BookID int64 `json:"book_id" binding:"required"`
}

// Members holding only loans:self see and renew their own loans. Staff
// with loans:read or loans:write act on any loan.
func (h *handler) registerLoans(g *gin.RouterGroup) {
	read := RequirePermission(auth.PermLoansRead, auth.PermLoansSelf)
	write := RequirePermission(auth.PermLoansWrite)
	g.GET("", read, h.listLoans)
	g.GET("/overdue", RequirePermission(auth.PermLoansRead), h.listOverdue)
	g.POST("/overdue/mark", write, h.markOverdue)
	g.GET("/:id", read, h.getLoan)
	g.POST("", write, h.checkout)
	g.POST("/:id/return", write, h.returnLoan)
	g.POST("/:id/renew", RequirePermission(auth.PermLoansWrite, auth.PermLoansSelf), h.renewLoan)
}

func loanStatuses(v string) ([]model.LoanStatus, error) {
	var out []model.LoanStatus
	for _, part := range strings.Split(v, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		s, found := model.ParseLoanStatus(part)
		if !found {
			return nil, types.NewInvalidArgument("status", "unknown loan status "+part)
		}
		out = append(out, s)
	}
	return out, nil
}

func (h *handler) listLoans(c *gin.Context) {
	lq, err := listQuery(c)
	if err != nil {
		fail(c, err)
		return
	}
	q := service.LoanQuery{ListQuery: lq}
	if q.UserID, err = queryID(c, "user_id"); err != nil {
		fail(c, err)
		return
	}
	if q.BookID, err = queryID(c, "book_id"); err != nil {
		fail(c, err)
		return
	}
	if q.Statuses, err = loanStatuses(c.Query("status")); err != nil {
		fail(c, err)
		return
	}
	if q.DueBefore, err = queryTime(c, "due_before"); err != nil {
		fail(c, err)
		return
	}
	if claims := claimsOf(c); !claims.Has(auth.PermLoansRead) {
		q.UserID = claims.UserID()
	}
	h.respondLoans(c, q)
}

func (h *handler) listOverdue(c *gin.Context) {
	lq, err := listQuery(c)
	if err != nil {
		fail(c, err)
		return
	}
	h.respondLoans(c, service.LoanQuery{ListQuery: lq, Statuses: []model.LoanStatus{model.LoanOverdue}})
}

func (h *handler) respondLoans(c *gin.Context, q service.LoanQuery) {
	page, err := h.svc.Loans.List(c.Request.Context(), q)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, dto.MapPage(page, dto.ToLoanDTO))
}

// ownLoan loads a loan the caller may see.
func (h *handler) ownLoan(c *gin.Context, staff string) (*model.Loan, error) {
	id, err := pathID(c, "id")
	if err != nil {
		return nil, err
	}
	loan, err := h.svc.Loans.Get(c.Request.Context(), id)
	if err != nil {
		return nil, err
	}
	claims := claimsOf(c)
	if !claims.Has(staff) && loan.UserID != claims.UserID() {
		return nil, types.NewNotFound("loan", id)
	}
	return loan, nil
}

func (h *handler) getLoan(c *gin.Context) {
	loan, err := h.ownLoan(c, auth.PermLoansRead)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, dto.ToLoanDTO(loan))
}

func (h *handler) checkout(c *gin.Context) {
	var req checkoutRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	if req.UserID <= 0 {
		fail(c, types.NewInvalidArgument("user_id", "is required"))
		return
	}
	loan, err := h.svc.Loans.Checkout(c.Request.Context(), actorOf(c), req.UserID, req.BookID)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, dto.ToLoanDTO(loan))
}

func (h *handler) returnLoan(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	loan, err := h.svc.Loans.Return(c.Request.Context(), actorOf(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, dto.ToLoanDTO(loan))
}

func (h *handler) renewLoan(c *gin.Context) {
	loan, err := h.ownLoan(c, auth.PermLoansWrite)
	if err != nil {
		fail(c, err)
		return
	}
	loan, err = h.svc.Loans.Renew(c.Request.Context(), actorOf(c), loan.ID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, dto.ToLoanDTO(loan))
}

type markOverdueResponse struct {
	Flagged int `json:"flagged"`
}

func (h *handler) markOverdue(c *gin.Context) {
	n, err := h.svc.Loans.MarkOverdue(c.Request.Context(), time.Now())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, markOverdueResponse{Flagged: n})
}
