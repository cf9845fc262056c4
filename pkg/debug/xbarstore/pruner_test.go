package xbarstore

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xbar/pkg/config/xconf"
	"github.com/omeyang/xbar/pkg/observability/xlog"
)

type pruneFunc func(ctx context.Context, before time.Time) (int, error)

func (f pruneFunc) Prune(ctx context.Context, before time.Time) (int, error) { return f(ctx, before) }

func TestPruneJob_RunOnce(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(0, 0)
	require.NoError(t, m.Save(ctx, newSnap("old", 0, "GET", "/", "")))
	require.NoError(t, m.Save(ctx, newSnap("new", 2*time.Hour, "GET", "/", "")))

	job, err := NewPruneJob(m, "@hourly", time.Hour, WithPruneClock(func() time.Time {
		return suiteBase.Add(150 * time.Minute)
	}))
	require.NoError(t, err)

	n, err := job.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, m.Len())
}

func TestPruneJob_Defaults(t *testing.T) {
	var got time.Time
	now := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	job, err := NewPruneJob(pruneFunc(func(_ context.Context, before time.Time) (int, error) {
		got = before
		return 0, nil
	}), "", 0, WithPruneClock(func() time.Time { return now }))
	require.NoError(t, err)

	_, err = job.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, now.Add(-DefaultPruneMaxAge), got)
}

func TestNewPruneJob_Errors(t *testing.T) {
	_, err := NewPruneJob(nil, "@hourly", time.Hour)
	assert.ErrorIs(t, err, ErrNilClient)

	_, err = NewPruneJob(NewMemory(0, 0), "every now and then", time.Hour)
	assert.ErrorContains(t, err, `"every now and then"`)
}

func TestPruneJob_TickLogsFailure(t *testing.T) {
	var buf bytes.Buffer
	logger, cleanup, err := xlog.New().SetOutput(&buf).SetLevel(xlog.LevelDebug).Build()
	require.NoError(t, err)
	defer func() { _ = cleanup() }()

	job, err := NewPruneJob(pruneFunc(func(context.Context, time.Time) (int, error) {
		return 0, errors.New("disk gone")
	}), "@hourly", time.Hour, WithPruneLogger(logger))
	require.NoError(t, err)

	job.tick()
	assert.Contains(t, buf.String(), "prune snapshots failed")
	assert.Contains(t, buf.String(), "disk gone")
}

func TestPruneJob_StartStop(t *testing.T) {
	done := make(chan struct{}, 1)
	job, err := NewPruneJob(pruneFunc(func(context.Context, time.Time) (int, error) {
		select {
		case done <- struct{}{}:
		default:
		}
		return 0, nil
	}), "@every 1s", time.Hour)
	require.NoError(t, err)

	job.Start()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("prune job did not run")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, job.Stop(ctx))
}

func TestPruneJobFromConfig(t *testing.T) {
	m := NewMemory(0, 0)

	job, err := PruneJobFromConfig(m, xconf.NewFromMap(map[string]any{"storage.prune": "off"}))
	require.NoError(t, err)
	assert.Nil(t, job)

	job, err = PruneJobFromConfig(m, xconf.NewFromMap(map[string]any{"storage.prune": "@daily", "storage.ttl": "2h"}))
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, 2*time.Hour, job.maxAge)

	job, err = PruneJobFromConfig(nil, xconf.NewFromMap(nil))
	require.NoError(t, err)
	assert.Nil(t, job)
}
