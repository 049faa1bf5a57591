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
package model

import (
	"database/sql/driver"
	"fmt"
	"strconv"

	"github.com/tomoncle/libris/types"
)

// LoanStatus is the lifecycle state of a loan.
type LoanStatus int

const (
	LoanActive LoanStatus = iota + 1
	LoanReturned
	LoanOverdue
)

var loanStatusNames = map[LoanStatus][2]string{
	LoanActive:   {"active", "book is out on loan"},
	LoanReturned: {"returned", "book was returned"},
	LoanOverdue:  {"overdue", "due date passed without return"},
}

var _ types.BaseEnum = LoanStatus(0)

func LoanStatuses() []LoanStatus { return []LoanStatus{LoanActive, LoanReturned, LoanOverdue} }

func ParseLoanStatus(name string) (LoanStatus, bool) {
	return types.EnumByName(LoanStatuses(), name)
}

func (s LoanStatus) IsValid() bool { _, ok := loanStatusNames[s]; return ok }

func (s LoanStatus) Number() int {
	if !s.IsValid() {
		return types.IllegalValue
	}
	return int(s)
}

func (s LoanStatus) Name() string {
	if !s.IsValid() {
		return types.IllegalName
	}
	return loanStatusNames[s][0]
}

func (s LoanStatus) Desc() string {
	if !s.IsValid() {
		return types.IllegalDesc
	}
	return loanStatusNames[s][1]
}

func (s LoanStatus) String() string { return s.Name() }

// Outstanding reports whether the book has not come back yet.
func (s LoanStatus) Outstanding() bool { return s == LoanActive || s == LoanOverdue }

func (s LoanStatus) Value() (driver.Value, error) { return int64(s), nil }

func (s *LoanStatus) Scan(src interface{}) error {
	n, err := scanEnumInt(src)
	*s = LoanStatus(n)
	return err
}

// ContributorRole is the part a contributor played in a book.
type ContributorRole int

const (
	RoleEditor ContributorRole = iota + 1
	RoleTranslator
	RoleIllustrator
	RoleNarrator
)

var contributorRoleNames = map[ContributorRole][2]string{
	RoleEditor:      {"editor", "edited the book"},
	RoleTranslator:  {"translator", "translated the book"},
	RoleIllustrator: {"illustrator", "illustrated the book"},
	RoleNarrator:    {"narrator", "narrated the audio edition"},
}

var _ types.BaseEnum = ContributorRole(0)

func ContributorRoles() []ContributorRole {
	return []ContributorRole{RoleEditor, RoleTranslator, RoleIllustrator, RoleNarrator}
}

func ParseContributorRole(name string) (ContributorRole, bool) {
	return types.EnumByName(ContributorRoles(), name)
}

func (r ContributorRole) IsValid() bool { _, ok := contributorRoleNames[r]; return ok }

func (r ContributorRole) Number() int {
	if !r.IsValid() {
		return types.IllegalValue
	}
	return int(r)
}

func (r ContributorRole) Name() string {
	if !r.IsValid() {
		return types.IllegalName
	}
	return contributorRoleNames[r][0]
}

func (r ContributorRole) Desc() string {
	if !r.IsValid() {
		return types.IllegalDesc
	}
	return contributorRoleNames[r][1]
}

func (r ContributorRole) String() string { return r.Name() }

func (r ContributorRole) Value() (driver.Value, error) { return int64(r), nil }

func (r *ContributorRole) Scan(src interface{}) error {
	n, err := scanEnumInt(src)
	*r = ContributorRole(n)
	return err
}

func scanEnumInt(src interface{}) (int, error) {
	switch v := src.(type) {
	case nil:
		return 0, nil
	case int64:
		return int(v), nil
	case []byte:
		return strconv.Atoi(string(v))
	case string:
		return strconv.Atoi(v)
	default:
		return 0, fmt.Errorf("cannot scan %T into enum", src)
	}
}
