package xmetrics

import (
	"context"
)

// Kind 表示观测跨度类型。
type Kind int

const (
	// KindInternal 表示内部操作（默认）。
	KindInternal Kind = iota
	// KindServer 表示服务端请求处理。
	KindServer
	// KindClient 表示对外部存储的调用。
	KindClient
)

// Status 表示观测结果状态。
type Status string

const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// Attr 表示观测属性。
type Attr struct {
	Key   string
	Value any
}

// SpanOptions 定义观测跨度的创建参数。
type SpanOptions struct {
	Component string
	Operation string
	Kind      Kind
	Attrs     []Attr
}

// Result 表示观测跨度结束时的结果。
type Result struct {
	// Status 为空时根据 Err 推导。
	Status Status
	Err    error
	// Outcome 是低基数的结果分类（如投递模式），同时写入指标属性。
	Outcome string
	Attrs   []Attr
}

// Span 表示一次观测跨度。
type Span interface {
	// End 结束观测并记录结果，多次调用只生效一次。
	End(result Result)
}

// Observer 定义统一观测接口。
type Observer interface {
	Start(ctx context.Context, opts SpanOptions) (context.Context, Span)
}

// SizeRecorder 是可选能力：记录快照大小。
type SizeRecorder interface {
	RecordSize(ctx context.Context, component string, bytes int)
}

// NoopObserver 是空实现。
type NoopObserver struct{}

// Start 返回 ctx 和空跨度。
func (NoopObserver) Start(ctx context.Context, _ SpanOptions) (context.Context, Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	return ctx, NoopSpan{}
}

// NoopSpan 是空跨度实现。
type NoopSpan struct{}

// End 空实现。
func (NoopSpan) End(Result) {}

// Start 使用 observer 开始观测，保证返回非 nil 的 ctx 与 Span。
func Start(ctx context.Context, observer Observer, opts SpanOptions) (context.Context, Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	if observer == nil {
		return ctx, NoopSpan{}
	}
	retCtx, span := observer.Start(ctx, opts)
	if retCtx == nil {
		retCtx = ctx
	}
	if span == nil {
		span = NoopSpan{}
	}
	return retCtx, span
}

// RecordSize 在 observer 支持 SizeRecorder 时记录大小，否则忽略。
func RecordSize(ctx context.Context, observer Observer, component string, bytes int) {
	if r, ok := observer.(SizeRecorder); ok {
		if ctx == nil {
			ctx = context.Background()
		}
		r.RecordSize(ctx, component, bytes)
	}
}
