package xrun

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var errService = errors.New("service failed")

func TestGroup_FirstErrorCancelsOthers(t *testing.T) {
	g, _ := NewGroup(context.Background())
	stopped := make(chan struct{})
	g.Go(Named("waiter", func(ctx context.Context) error {
		<-ctx.Done()
		close(stopped)
		return ctx.Err()
	}))
	g.Go(Named("failer", func(context.Context) error { return errService }))

	assert.ErrorIs(t, g.Wait(), errService)
	<-stopped
}

func TestGroup_CancelCause(t *testing.T) {
	errStop := errors.New("stop requested")
	g, ctx := NewGroup(context.Background(), WithName("test"))
	g.Go(Named("waiter", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))
	g.Cancel(errStop)
	<-ctx.Done()
	assert.ErrorIs(t, g.Wait(), errStop)
}

func TestGroup_ParentCancelIsNotAnError(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	g, _ := NewGroup(parent)
	g.Go(Named("waiter", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))
	cancel()
	assert.NoError(t, g.Wait())
}

func TestGroup_NilFunc(t *testing.T) {
	//nolint:staticcheck // nil ctx 归一化为 Background
	g, _ := NewGroup(nil, nil)
	g.Go(Service{Name: "nil"})
	assert.ErrorIs(t, g.Wait(), ErrNilFunc)
}

func TestRun_Signal(t *testing.T) {
	sigCh := make(chan os.Signal, 1)
	sigCh <- syscall.SIGTERM

	err := Run(context.Background(), []Option{withSignalChannel(sigCh)},
		Named("waiter", func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}),
	)
	require.ErrorIs(t, err, ErrSignal)

	var sigErr *SignalError
	require.ErrorAs(t, err, &sigErr)
	assert.Equal(t, syscall.SIGTERM, sigErr.Signal)
	assert.Contains(t, err.Error(), "terminated")
}

func TestRun_WithoutSignals(t *testing.T) {
	err := Run(context.Background(), []Option{WithSignals()},
		Named("done", func(context.Context) error { return nil }),
	)
	assert.NoError(t, err)
}

func TestRun_ServiceError(t *testing.T) {
	sigCh := make(chan os.Signal)
	err := Run(context.Background(), []Option{withSignalChannel(sigCh)},
		Named("failer", func(context.Context) error { return errService }),
	)
	assert.ErrorIs(t, err, errService)
}

func TestHTTPServer_GracefulShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	srv := &http.Server{
		Addr:              addr,
		ReadHeaderTimeout: time.Second,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("ok"))
		}),
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- HTTPServer(srv, time.Second)(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr)
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)
	http.DefaultClient.CloseIdleConnections()

	cancel()
	assert.NoError(t, <-done)
}

func TestHTTPServer_ListenError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = ln.Close() }()

	srv := &http.Server{Addr: ln.Addr().String(), ReadHeaderTimeout: time.Second}
	err = HTTPServer(srv, time.Second)(context.Background())
	assert.Error(t, err)
	assert.NotErrorIs(t, err, http.ErrServerClosed)
}

func TestHTTPServer_Nil(t *testing.T) {
	assert.ErrorIs(t, HTTPServer(nil, 0)(context.Background()), ErrNilServer)
}

func TestBackground(t *testing.T) {
	started := make(chan struct{})
	var stopCtxHasDeadline bool
	svc := Background(
		func() { close(started) },
		func(ctx context.Context) error {
			_, stopCtxHasDeadline = ctx.Deadline()
			return nil
		},
		time.Second,
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc(ctx) }()
	<-started
	cancel()
	require.NoError(t, <-done)
	assert.True(t, stopCtxHasDeadline)

	assert.ErrorIs(t, Background(nil, nil, 0)(context.Background()), ErrNilFunc)
}
