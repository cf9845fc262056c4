package xbarstore

import (
	"context"
	"errors"
	"time"

	retry "github.com/avast/retry-go/v5"
	"github.com/sony/gobreaker/v2"

	"github.com/omeyang/xbar/pkg/debug/xbar"
)

// Resilient 的默认参数。
const (
	DefaultRetryAttempts = 3
	DefaultRetryDelay    = 50 * time.Millisecond
	DefaultTripAfter     = 5
	DefaultOpenTimeout   = 30 * time.Second
)

// Resilient 为 Store 加上重试与熔断。
//
// 每次尝试都经过熔断器：连续失败达到阈值后熔断器打开，
// 后续调用直接返回 gobreaker.ErrOpenState，不再重试也不访问后端。
// 快照不存在、id 非法这类结果不计为失败，也不重试。
type Resilient struct {
	next     Store
	cb       *gobreaker.CircuitBreaker[any]
	attempts uint
	delay    time.Duration
}

var _ Store = (*Resilient)(nil)

type resilientOptions struct {
	name          string
	attempts      uint
	delay         time.Duration
	tripAfter     uint32
	openTimeout   time.Duration
	onStateChange func(name string, from, to gobreaker.State)
}

// ResilientOption 配置 Resilient。
type ResilientOption func(*resilientOptions)

// WithRetry 设置总尝试次数（含首次）与初始退避间隔。attempts 为 0 时保持默认值。
func WithRetry(attempts uint, delay time.Duration) ResilientOption {
	return func(o *resilientOptions) {
		if attempts > 0 {
			o.attempts = attempts
		}
		if delay >= 0 {
			o.delay = delay
		}
	}
}

// WithBreaker 设置熔断器名称、连续失败阈值与打开后的恢复等待时间。
func WithBreaker(name string, tripAfter uint32, openTimeout time.Duration) ResilientOption {
	return func(o *resilientOptions) {
		if name != "" {
			o.name = name
		}
		if tripAfter > 0 {
			o.tripAfter = tripAfter
		}
		if openTimeout > 0 {
			o.openTimeout = openTimeout
		}
	}
}

// WithStateChange 熔断器状态变化回调。
func WithStateChange(fn func(name string, from, to gobreaker.State)) ResilientOption {
	return func(o *resilientOptions) {
		o.onStateChange = fn
	}
}

// NewResilient 包装 next。
func NewResilient(next Store, opts ...ResilientOption) *Resilient {
	o := &resilientOptions{
		name:        "xbarstore",
		attempts:    DefaultRetryAttempts,
		delay:       DefaultRetryDelay,
		tripAfter:   DefaultTripAfter,
		openTimeout: DefaultOpenTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}

	settings := gobreaker.Settings{
		Name:        o.name,
		MaxRequests: 1,
		Timeout:     o.openTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= o.tripAfter
		},
		IsSuccessful: func(err error) bool {
			return err == nil || permanent(err)
		},
	}
	if o.onStateChange != nil {
		settings.OnStateChange = o.onStateChange
	}

	return &Resilient{
		next:     next,
		cb:       gobreaker.NewCircuitBreaker[any](settings),
		attempts: o.attempts,
		delay:    o.delay,
	}
}

// permanent 与后端健康无关的错误。
func permanent(err error) bool {
	return errors.Is(err, xbar.ErrNotFound) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrNilSnapshot) ||
		errors.Is(err, xbar.ErrInvalidSnapshot) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

func retryable(err error) bool {
	return !permanent(err) &&
		!errors.Is(err, gobreaker.ErrOpenState) &&
		!errors.Is(err, gobreaker.ErrTooManyRequests)
}

// State 熔断器当前状态。
func (r *Resilient) State() gobreaker.State { return r.cb.State() }

// Unwrap 返回被包装的 Store。
func (r *Resilient) Unwrap() Store { return r.next }

func (r *Resilient) Save(ctx context.Context, s *xbar.Snapshot) error {
	_, err := call(ctx, r, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, r.next.Save(ctx, s)
	})
	return err
}

func (r *Resilient) Get(ctx context.Context, id string) (*xbar.Snapshot, error) {
	return call(ctx, r, func(ctx context.Context) (*xbar.Snapshot, error) {
		return r.next.Get(ctx, id)
	})
}

func (r *Resilient) Find(ctx context.Context, f xbar.Filter) ([]xbar.Meta, error) {
	return call(ctx, r, func(ctx context.Context) ([]xbar.Meta, error) {
		return r.next.Find(ctx, f)
	})
}

func (r *Resilient) Clear(ctx context.Context) error {
	_, err := call(ctx, r, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, r.next.Clear(ctx)
	})
	return err
}

func (r *Resilient) Prune(ctx context.Context, before time.Time) (int, error) {
	return call(ctx, r, func(ctx context.Context) (int, error) {
		return r.next.Prune(ctx, before)
	})
}

func (r *Resilient) Close(ctx context.Context) error {
	return r.next.Close(ctx)
}

func call[T any](ctx context.Context, r *Resilient, fn func(context.Context) (T, error)) (T, error) {
	return retry.NewWithData[T](
		retry.Context(ctx),
		retry.Attempts(r.attempts),
		retry.Delay(r.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(retryable),
		retry.LastErrorOnly(true),
	).Do(func() (T, error) {
		var zero T
		v, err := r.cb.Execute(func() (any, error) {
			return fn(ctx)
		})
		if err != nil {
			return zero, err
		}
		t, _ := v.(T)
		return t, nil
	})
}
