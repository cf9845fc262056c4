package xrun

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"golang.org/x/sync/errgroup"
)

// Group 并发运行服务，第一个错误取消其余服务。
//
// Go 与 Cancel 可并发调用，Wait 只应调用一次。
type Group struct {
	eg       *errgroup.Group
	ctx      context.Context
	causeCtx context.Context
	cancel   context.CancelCauseFunc
	opts     *groupOptions
}

// NewGroup 创建 Group，返回的 ctx 在任一服务出错或 Cancel 时结束。
func NewGroup(ctx context.Context, opts ...Option) (*Group, context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	causeCtx, cancel := context.WithCancelCause(ctx)
	eg, egCtx := errgroup.WithContext(causeCtx)
	return &Group{eg: eg, ctx: egCtx, causeCtx: causeCtx, cancel: cancel, opts: o}, egCtx
}

// Service 带名字的服务函数，名字只用于日志。
type Service struct {
	Name string
	Run  func(ctx context.Context) error
}

// Named 给服务函数命名。
func Named(name string, fn func(ctx context.Context) error) Service {
	return Service{Name: name, Run: fn}
}

// Go 启动服务。
func (g *Group) Go(svc Service) {
	g.eg.Go(func() error {
		if svc.Run == nil {
			return ErrNilFunc
		}
		attrs := []slog.Attr{slog.String("group", g.opts.name), slog.String("service", svc.Name)}
		g.opts.logger.Debug(g.ctx, "service starting", attrs...)

		err := svc.Run(g.ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			g.opts.logger.Warn(g.ctx, "service exited with error", append(attrs, slog.Any("error", err))...)
		} else {
			g.opts.logger.Debug(g.ctx, "service stopped", attrs...)
		}
		return err
	})
}

// Cancel 以 cause 为原因取消所有服务，Wait 会返回 cause。
func (g *Group) Cancel(cause error) { g.cancel(cause) }

// Wait 等待所有服务结束。
//
// 由 Cancel 或父 ctx 触发的 context.Canceled 不算错误；显式的取消原因会被返回。
func (g *Group) Wait() error {
	defer g.cancel(nil)
	err := g.eg.Wait()

	canceled := g.causeCtx.Err() != nil
	cause := context.Cause(g.causeCtx)
	explicit := canceled && cause != nil && !errors.Is(cause, context.Canceled)

	switch {
	case errors.Is(err, context.Canceled) && canceled:
		if explicit {
			return cause
		}
		return nil
	case err == nil && explicit:
		return cause
	default:
		return err
	}
}

// Run 运行服务直到其中之一失败、ctx 结束或收到信号。信号退出返回 *SignalError。
func Run(ctx context.Context, opts []Option, services ...Service) error {
	g, _ := NewGroup(ctx, opts...)
	if len(g.opts.signals) > 0 || g.opts.sigCh != nil {
		g.Go(Named("signal", g.waitSignal))
	}
	for _, svc := range services {
		g.Go(svc)
	}
	return g.Wait()
}

func (g *Group) waitSignal(ctx context.Context) error {
	ch := g.opts.sigCh
	if ch == nil {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, g.opts.signals...)
		defer signal.Stop(sigCh)
		ch = sigCh
	}
	select {
	case sig := <-ch:
		g.opts.logger.Info(ctx, "received signal",
			slog.String("group", g.opts.name), slog.String("signal", sig.String()))
		g.cancel(&SignalError{Signal: sig})
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// HTTPServerInterface *http.Server 满足此接口。
type HTTPServerInterface interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPServer 运行 server，ctx 结束时在 timeout 内优雅关闭（timeout <= 0 不限时）。
func HTTPServer(server HTTPServerInterface, timeout time.Duration) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if server == nil {
			return ErrNilServer
		}
		shutdownErr := make(chan error, 1)
		listenDone := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				sctx, cancel := shutdownContext(timeout)
				defer cancel()
				shutdownErr <- server.Shutdown(sctx)
			case <-listenDone:
			}
		}()

		err := server.ListenAndServe()
		if !errors.Is(err, http.ErrServerClosed) {
			close(listenDone)
			return err
		}
		select {
		case err := <-shutdownErr:
			return err
		case <-ctx.Done():
			return <-shutdownErr
		default:
			// 外部直接调用了 Shutdown
			close(listenDone)
			return nil
		}
	}
}

// Background 适配 Start/Stop 风格的组件：立即 start，ctx 结束后在 timeout 内 stop。
func Background(start func(), stop func(ctx context.Context) error, timeout time.Duration) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if start == nil || stop == nil {
			return ErrNilFunc
		}
		start()
		<-ctx.Done()
		sctx, cancel := shutdownContext(timeout)
		defer cancel()
		return stop(sctx)
	}
}

func shutdownContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(context.Background(), timeout)
	}
	return context.WithCancel(context.Background())
}
