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
package dto

import (
	"time"

	"github.com/tomoncle/libris/model"
)

type LoanDTO struct {
	ID         int64      `json:"id"`
	BookID     int64      `json:"book_id"`
	BookTitle  string     `json:"book_title,omitempty"`
	UserID     int64      `json:"user_id"`
	Username   string     `json:"username,omitempty"`
	Status     string     `json:"status"`
	BorrowedAt time.Time  `json:"borrowed_at"`
	DueAt      time.Time  `json:"due_at"`
	ReturnedAt *time.Time `json:"returned_at,omitempty"`
	Renewals   int        `json:"renewals"`
}

func ToLoanDTO(l *model.Loan) LoanDTO {
	out := LoanDTO{
		ID:         l.ID,
		BookID:     l.BookID,
		UserID:     l.UserID,
		Status:     l.Status.Name(),
		BorrowedAt: l.BorrowedAt,
		DueAt:      l.DueAt,
		ReturnedAt: l.ReturnedAt,
		Renewals:   l.Renewals,
	}
	if l.Book != nil {
		out.BookTitle = l.Book.Title
	}
	if l.User != nil {
		out.Username = l.User.Username
	}
	return out
}
