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
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type countingJob struct {
	name  string
	runs  atomic.Int32
	err   error
	panic bool
	ran   chan struct{}
}

func (j *countingJob) Name() string { return j.name }

func (j *countingJob) Run(ctx context.Context) error {
	j.runs.Add(1)
	if j.ran != nil {
		select {
		case j.ran <- struct{}{}:
		default:
		}
	}
	if j.panic {
		panic("boom")
	}
	return j.err
}

func TestParseSpec(t *testing.T) {
	for _, spec := range []string{"0 */15 * * * *", "*/5 * * * *", "@every 10m", "@daily"} {
		_, err := ParseSpec(spec)
		assert.NoError(t, err, spec)
	}
	for _, spec := range []string{"", "every minute", "61 * * * *"} {
		_, err := ParseSpec(spec)
		assert.Error(t, err, spec)
	}
}

func TestRegister(t *testing.T) {
	s := New()
	job := &countingJob{name: "noop"}
	require.NoError(t, s.Register("@every 1h", job))
	assert.Error(t, s.Register("@every 1h", job))
	assert.Error(t, s.Register("nonsense", &countingJob{name: "other"}))

	entries := s.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "noop", entries[0].Name)
	assert.Equal(t, "@every 1h", entries[0].Spec)
	require.NoError(t, s.Stop(context.Background()))
}

func TestRunNowRecoversPanicsAndErrors(t *testing.T) {
	s := New()
	failing := &countingJob{name: "failing", err: errors.New("nope")}
	panicking := &countingJob{name: "panicking", panic: true}
	require.NoError(t, s.Register("@every 1h", failing))
	require.NoError(t, s.Register("@every 1h", panicking))

	require.NoError(t, s.RunNow("failing"))
	require.NotPanics(t, func() { require.NoError(t, s.RunNow("panicking")) })
	assert.Error(t, s.RunNow("missing"))

	assert.EqualValues(t, 1, failing.runs.Load())
	assert.EqualValues(t, 1, panicking.runs.Load())
	require.NoError(t, s.Stop(context.Background()))
}

func TestScheduledRun(t *testing.T) {
	s := New()
	job := &countingJob{name: "tick", ran: make(chan struct{}, 1)}
	require.NoError(t, s.Register("* * * * * *", job))
	s.Start()

	select {
	case <-job.ran:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not run")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.GreaterOrEqual(t, job.runs.Load(), int32(1))
}

type blockingJob struct {
	runs    atomic.Int32
	started chan struct{}
	release chan struct{}
}

func (j *blockingJob) Name() string { return "blocking" }

func (j *blockingJob) Run(ctx context.Context) error {
	j.runs.Add(1)
	select {
	case j.started <- struct{}{}:
	default:
	}
	select {
	case <-j.release:
	case <-ctx.Done():
	}
	return nil
}

func TestRunNowSkipsWhileScheduledRunInFlight(t *testing.T) {
	s := New()
	job := &blockingJob{started: make(chan struct{}, 1), release: make(chan struct{})}
	require.NoError(t, s.Register("* * * * * *", job))
	s.Start()

	select {
	case <-job.started:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not run")
	}
	require.NoError(t, s.RunNow(job.Name()))
	assert.EqualValues(t, 1, job.runs.Load())

	close(job.release)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
}

type fakeMarker struct {
	at  time.Time
	err error
}

func (f *fakeMarker) MarkOverdue(_ context.Context, now time.Time) (int, error) {
	f.at = now
	return 3, f.err
}

func TestMarkOverdueJob(t *testing.T) {
	marker := &fakeMarker{}
	job := NewMarkOverdueJob(marker)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	job.now = func() time.Time { return fixed }

	assert.Equal(t, MarkOverdueJobName, job.Name())
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, fixed, marker.at)

	marker.err = errors.New("db down")
	assert.EqualError(t, job.Run(context.Background()), "db down")
}
