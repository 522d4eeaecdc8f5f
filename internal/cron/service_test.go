package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/logger"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/metrics"
)

type fakeLock struct {
	acquired  bool
	lost      bool
	refreshes int
	released  bool
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.acquired {
		return false, nil
	}
	f.acquired = true
	return true, nil
}

func (f *fakeLock) Refresh(context.Context) (bool, error) {
	f.refreshes++
	return !f.lost, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.acquired = false
	f.released = true
	return nil
}

type testJob struct {
	name     string
	err      error
	runs     int
	deadline bool
	onRun    func()
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(ctx context.Context) error {
	t.runs++
	_, t.deadline = ctx.Deadline()
	if t.onRun != nil {
		t.onRun()
	}
	return t.err
}

func newCronService(t *testing.T, lock Lock, m *metrics.CronJobMetrics, jobs ...Job) *Service {
	t.Helper()
	registry, err := NewRegistry(jobs...)
	require.NoError(t, err)
	service, err := NewService(ServiceParams{
		Logger:     logger.Nop(),
		Registry:   registry,
		Lock:       lock,
		Metrics:    m,
		JobTimeout: time.Minute,
	})
	require.NoError(t, err)
	return service
}

func TestServiceRunOnceRunsAllJobsEvenOnFailure(t *testing.T) {
	expiry := &testJob{name: "order-expiry", err: errors.New("boom")}
	retention := &testJob{name: "outbox-retention"}
	lock := &fakeLock{}
	service := newCronService(t, lock, nil, expiry, retention)

	require.NoError(t, service.RunOnce(context.Background()))
	assert.Equal(t, 1, expiry.runs)
	assert.Equal(t, 1, retention.runs)
	assert.True(t, expiry.deadline, "jobs run with a timeout")
	assert.Equal(t, 1, lock.refreshes)
	assert.True(t, lock.released)
}

func TestServiceRunOnceSkipsWhenLockHeldElsewhere(t *testing.T) {
	job := &testJob{name: "order-expiry"}
	service := newCronService(t, &fakeLock{acquired: true}, nil, job)

	require.NoError(t, service.RunOnce(context.Background()))
	assert.Zero(t, job.runs)
}

func TestServiceRunOnceStopsWhenLockLost(t *testing.T) {
	lock := &fakeLock{}
	expiry := &testJob{name: "order-expiry", onRun: func() { lock.lost = true }}
	retention := &testJob{name: "outbox-retention"}
	service := newCronService(t, lock, nil, expiry, retention)

	require.NoError(t, service.RunOnce(context.Background()))
	assert.Equal(t, 1, expiry.runs)
	assert.Zero(t, retention.runs, "jobs after a lost lock must not run")
}

func TestServiceRunOnceStopsOnCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	expiry := &testJob{name: "order-expiry", onRun: cancel}
	retention := &testJob{name: "outbox-retention"}
	lock := &fakeLock{}
	service := newCronService(t, lock, nil, expiry, retention)

	err := service.RunOnce(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, retention.runs)
	assert.True(t, lock.released, "lock released even when canceled")
}

func TestServiceRecordsJobMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	service := newCronService(t, &fakeLock{}, metrics.NewCronJobMetrics(reg),
		&testJob{name: "order-expiry"},
		&testJob{name: "outbox-retention", err: errors.New("boom")},
	)
	require.NoError(t, service.RunOnce(context.Background()))

	mfs, err := reg.Gather()
	require.NoError(t, err)
	seen := map[string]bool{}
	for _, mf := range mfs {
		seen[mf.GetName()] = true
	}
	for _, name := range []string{"cron_job_runs_total", "cron_job_duration_seconds", "cron_job_last_success_timestamp_seconds"} {
		assert.True(t, seen[name], "metric %s not recorded", name)
	}
}

func TestNewServiceRequiresLoggerAndLock(t *testing.T) {
	_, err := NewService(ServiceParams{Lock: &fakeLock{}})
	assert.Error(t, err)
	_, err = NewService(ServiceParams{Logger: logger.Nop()})
	assert.Error(t, err)

	service, err := NewService(ServiceParams{Logger: logger.Nop(), Lock: &fakeLock{}})
	require.NoError(t, err)
	assert.Equal(t, defaultInterval, service.interval)
	assert.Equal(t, defaultInterval, service.jobTimeout)
}
