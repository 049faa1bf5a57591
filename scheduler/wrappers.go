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
	"reflect"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// NewLoggingWrapper logs start and end of every run with a fresh
// execution id.
func NewLoggingWrapper(logger *logrus.Logger) cron.JobWrapper {
	return func(j cron.Job) cron.Job {
		return cron.FuncJob(func() {
			entry := logger.WithFields(logrus.Fields{
				"job":          jobName(j),
				"execution_id": uuid.NewString(),
			})
			start := time.Now()
			entry.Debug("Job started")
			j.Run()
			entry.WithField("duration", time.Since(start)).Info("Job finished")
		})
	}
}

// NewPanicRecoveryWrapper turns a panicking run into an error log entry.
func NewPanicRecoveryWrapper(logger *logrus.Logger) cron.JobWrapper {
	return func(j cron.Job) cron.Job {
		return cron.FuncJob(func() {
			defer func() {
				if r := recover(); r != nil {
					logger.WithFields(logrus.Fields{
						"job":   jobName(j),
						"panic": r,
						"stack": string(debug.Stack()),
					}).Error("Job panicked")
				}
			}()
			j.Run()
		})
	}
}

func jobName(j cron.Job) string {
	if named, ok := j.(interface{ Name() string }); ok {
		return named.Name()
	}
	t := reflect.TypeOf(j)
	if t.Kind() == reflect.Ptr {
		return t.Elem().String()
	}
	return t.String()
}
