package xbarstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/omeyang/xbar/pkg/debug/xbar"
)

var errBackend = errors.New("backend unavailable")

func TestResilient_RetriesTransientErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	next := NewMockStore(ctrl)
	snap := newSnap("a", 0, "GET", "/", "")

	gomock.InOrder(
		next.EXPECT().Save(gomock.Any(), snap).Return(errBackend).Times(2),
		next.EXPECT().Save(gomock.Any(), snap).Return(nil),
	)

	r := NewResilient(next, WithRetry(3, 0))
	require.NoError(t, r.Save(context.Background(), snap))
	assert.Equal(t, gobreaker.StateClosed, r.State())
}

func TestResilient_GivesUpAfterAttempts(t *testing.T) {
	ctrl := gomock.NewController(t)
	next := NewMockStore(ctrl)
	next.EXPECT().Find(gomock.Any(), gomock.Any()).Return(nil, errBackend).Times(3)

	r := NewResilient(next, WithRetry(3, 0))
	_, err := r.Find(context.Background(), xbar.Filter{})
	assert.ErrorIs(t, err, errBackend)
}

func TestResilient_NotFoundIsNotAFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	next := NewMockStore(ctrl)
	next.EXPECT().Get(gomock.Any(), "missing").Return(nil, notFound("missing")).Times(10)

	r := NewResilient(next, WithRetry(3, 0), WithBreaker("t", 2, time.Hour))
	for range 10 {
		_, err := r.Get(context.Background(), "missing")
		require.ErrorIs(t, err, xbar.ErrNotFound)
	}
	assert.Equal(t, gobreaker.StateClosed, r.State(), "不存在不计为失败，也不重试")
}

func TestResilient_BreakerOpens(t *testing.T) {
	ctrl := gomock.NewController(t)
	next := NewMockStore(ctrl)
	next.EXPECT().Save(gomock.Any(), gomock.Any()).Return(errBackend).Times(2)

	var transitions []gobreaker.State
	r := NewResilient(next,
		WithRetry(5, 0),
		WithBreaker("snapshots", 2, time.Hour),
		WithStateChange(func(name string, _, to gobreaker.State) {
			assert.Equal(t, "snapshots", name)
			transitions = append(transitions, to)
		}),
	)

	// 第二次失败后熔断器打开，第三次尝试被拒绝且不再重试
	err := r.Save(context.Background(), newSnap("a", 0, "GET", "/", ""))
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, gobreaker.StateOpen, r.State())
	assert.Equal(t, []gobreaker.State{gobreaker.StateOpen}, transitions)

	err = r.Save(context.Background(), newSnap("b", 0, "GET", "/", ""))
	assert.ErrorIs(t, err, gobreaker.ErrOpenState, "打开期间不访问后端")
}

func TestResilient_Delegates(t *testing.T) {
	ctrl := gomock.NewController(t)
	next := NewMockStore(ctrl)
	before := time.Unix(1700000000, 0)

	next.EXPECT().Clear(gomock.Any()).Return(nil)
	next.EXPECT().Prune(gomock.Any(), before).Return(4, nil)
	next.EXPECT().Find(gomock.Any(), xbar.Filter{Max: 5}).Return([]xbar.Meta{{ID: "x"}}, nil)
	next.EXPECT().Close(gomock.Any()).Return(nil)

	r := NewResilient(next)
	ctx := context.Background()
	require.NoError(t, r.Clear(ctx))

	n, err := r.Prune(ctx, before)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	metas, err := r.Find(ctx, xbar.Filter{Max: 5})
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, metaIDs(metas))

	require.NoError(t, r.Close(ctx))
	assert.Same(t, next, r.Unwrap())
}

func TestResilient_OverRealStore(t *testing.T) {
	r := NewResilient(NewMemory(0, 0))
	ctx := context.Background()
	require.NoError(t, r.Save(ctx, newSnap("a", 0, "GET", "/", "")))
	got, err := r.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "a", got.ID())

	err = r.Save(ctx, newSnap("bad id", 0, "GET", "/", ""))
	assert.ErrorIs(t, err, ErrInvalidID)
}
