package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/carrental-backend/pkg/logger"
	"github.com/angelmondragon/carrental-backend/pkg/metrics"
)

type fakeLock struct {
	held     bool
	acquired int
	released int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.held {
		return false, nil
	}
	f.held = true
	f.acquired++
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.held = false
	f.released++
	return nil
}

type testJob struct {
	name string
	err  error
	runs int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	return t.err
}

func newTestService(t *testing.T, params ServiceParams) *Service {
	t.Helper()
	if params.Logger == nil {
		params.Logger = logger.New(logger.Options{ServiceName: "cron-test"})
	}
	svc, err := NewService(params)
	require.NoError(t, err)
	return svc
}

func TestServiceRunCycleRunsAllJobsEvenOnFailure(t *testing.T) {
	ok := &testJob{name: "contract-expiry", err: errors.New("boom")}
	retention := &testJob{name: "outbox-retention"}
	lock := &fakeLock{}
	svc := newTestService(t, ServiceParams{Registry: NewRegistry(ok, retention), Lock: lock})

	require.NoError(t, svc.runCycle(context.Background()))
	assert.Equal(t, 1, ok.runs)
	assert.Equal(t, 1, retention.runs)
	assert.Equal(t, 1, lock.released)
}

func TestServiceSkipsCycleWhenLockHeld(t *testing.T) {
	job := &testJob{name: "contract-expiry"}
	reg := prometheus.NewRegistry()
	svc := newTestService(t, ServiceParams{
		Registry: NewRegistry(job),
		Lock:     &fakeLock{held: true},
		Metrics:  metrics.NewCronJobMetrics(reg),
	})

	require.NoError(t, svc.runCycle(context.Background()))
	assert.Zero(t, job.runs)

	families, err := reg.Gather()
	require.NoError(t, err)
	var skipped float64
	for _, mf := range families {
		if mf.GetName() == "rental_cron_cycle_skipped_total" {
			for _, m := range mf.GetMetric() {
				skipped += m.GetCounter().GetValue()
			}
		}
	}
	assert.Equal(t, float64(1), skipped)
}

func TestServiceRunOnceSelectsJobs(t *testing.T) {
	expiry := &testJob{name: "contract-expiry"}
	retention := &testJob{name: "outbox-retention"}
	svc := newTestService(t, ServiceParams{Registry: NewRegistry(expiry, retention), Lock: &fakeLock{}})
	ctx := context.Background()

	require.NoError(t, svc.RunOnce(ctx, "outbox-retention"))
	assert.Zero(t, expiry.runs)
	assert.Equal(t, 1, retention.runs)

	require.NoError(t, svc.RunOnce(ctx))
	assert.Equal(t, 1, expiry.runs)
	assert.Equal(t, 2, retention.runs)

	require.Error(t, svc.RunOnce(ctx, "order-ttl"))
	assert.Len(t, svc.registry.Jobs(), 2)
}

func TestNewServiceValidatesSchedule(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "cron-test"})

	_, err := NewService(ServiceParams{Logger: logg, Lock: &fakeLock{}, Schedule: "every now and then"})
	require.Error(t, err)

	for _, schedule := range []string{"@hourly", "*/15 * * * *", "0 2 * * *"} {
		svc, err := NewService(ServiceParams{Logger: logg, Lock: &fakeLock{}, Schedule: schedule})
		require.NoError(t, err, schedule)
		assert.Equal(t, schedule, svc.schedule)
	}

	_, err = NewService(ServiceParams{Logger: logg})
	require.Error(t, err)
	_, err = NewService(ServiceParams{Lock: &fakeLock{}})
	require.Error(t, err)
}

func TestServiceRunExecutesFirstCycleAndStopsOnCancel(t *testing.T) {
	job := &testJob{name: "contract-expiry"}
	svc := newTestService(t, ServiceParams{
		Registry: NewRegistry(job),
		Lock:     &fakeLock{},
		Schedule: "@hourly",
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("cron service did not stop after cancel")
	}
	assert.Equal(t, 1, job.runs)
}
