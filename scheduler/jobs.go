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
package scheduler

import (
	"context"
	"time"
)

const MarkOverdueJobName = "mark-overdue-loans"

// OverdueMarker is the part of the loan service the overdue job needs.
type OverdueMarker interface {
	MarkOverdue(ctx context.Context, now time.Time) (int, error)
}

// MarkOverdueJob flags active loans whose due date has passed.
type MarkOverdueJob struct {
	loans OverdueMarker
	now   func() time.Time
}

func NewMarkOverdueJob(loans OverdueMarker) *MarkOverdueJob {
	return &MarkOverdueJob{loans: loans, now: time.Now}
}

func (j *MarkOverdueJob) Name() string { return MarkOverdueJobName }

func (j *MarkOverdueJob) Run(ctx context.Context) error {
	_, err := j.loans.MarkOverdue(ctx, j.now())
	return err
}
