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
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/tomoncle/libris/utils"
)

// Specs accept an optional leading seconds field and descriptors such as
// "@every 10m".
var parser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

func ParseSpec(spec string) (cron.Schedule, error) {
	return parser.Parse(spec)
}

// Job is a named unit of periodic work. Run receives a context that is
// cancelled when the scheduler stops.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// EntryInfo describes a registered job.
type EntryInfo struct {
	Name string    `json:"name"`
	Spec string    `json:"spec"`
	Next time.Time `json:"next"`
	Prev time.Time `json:"prev"`
}

type Scheduler struct {
	cron   *cron.Cron
	chain  cron.Chain
	logger *logrus.Logger
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	entries map[string]entry
}

type entry struct {
	id   cron.EntryID
	spec string
	job  cron.Job
}

// New creates a stopped scheduler. Runs of the same job never overlap.
func New() *Scheduler {
	logger := utils.NewLogger("SCHEDULER")
	wrappers := []cron.JobWrapper{
		NewPanicRecoveryWrapper(logger),
		NewLoggingWrapper(logger),
		cron.SkipIfStillRunning(cron.PrintfLogger(logger)),
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:    cron.New(cron.WithParser(parser), cron.WithLocation(time.UTC)),
		chain:   cron.NewChain(wrappers...),
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		entries: make(map[string]entry),
	}
}

// Register schedules job on spec. Names must be unique.
func (s *Scheduler) Register(spec string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[job.Name()]; ok {
		return fmt.Errorf("job %s is already registered", job.Name())
	}
	// RunNow and the cron entry share one wrapped job so the overlap guard
	// covers both.
	wrapped := s.chain.Then(&cronJob{job: job, ctx: s.ctx, logger: s.logger})
	id, err := s.cron.AddJob(spec, wrapped)
	if err != nil {
		return fmt.Errorf("invalid schedule %q for job %s: %w", spec, job.Name(), err)
	}
	s.entries[job.Name()] = entry{id: id, spec: spec, job: wrapped}
	s.logger.WithFields(logrus.Fields{"job": job.Name(), "spec": spec}).Info("Job registered")
	return nil
}

// RunNow runs a registered job synchronously through the same wrappers as
// scheduled runs. It returns at once if a run of the job is in flight.
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	e, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("job %s is not registered", name)
	}
	e.job.Run()
	return nil
}

func (s *Scheduler) Entries() []EntryInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	infos := make([]EntryInfo, 0, len(s.entries))
	for name, e := range s.entries {
		ce := s.cron.Entry(e.id)
		infos = append(infos, EntryInfo{Name: name, Spec: e.spec, Next: ce.Next, Prev: ce.Prev})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

func (s *Scheduler) Start() {
	s.logger.Info("Scheduler started")
	s.cron.Start()
}

// Stop cancels the job context and waits for running jobs, at most until
// ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronJob adapts a Job to cron.Job and logs its error.
type cronJob struct {
	job    Job
	ctx    context.Context
	logger *logrus.Logger
}

func (c *cronJob) Name() string { return c.job.Name() }

func (c *cronJob) Run() {
	if err := c.job.Run(c.ctx); err != nil {
		c.logger.WithError(err).WithField("job", c.job.Name()).Error("Job failed")
	}
}
