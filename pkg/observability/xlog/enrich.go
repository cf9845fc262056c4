package xlog

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// 追踪字段 key
const (
	KeyTraceID = "trace_id"
	KeySpanID  = "span_id"
)

// enrichHandler 从 context 中的 span 提取 trace_id/span_id 注入日志。
type enrichHandler struct {
	base slog.Handler
}

func newEnrichHandler(base slog.Handler) slog.Handler {
	return &enrichHandler{base: base}
}

func (h *enrichHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

// Handle 按 slog 约定先 Clone 再追加属性。
func (h *enrichHandler) Handle(ctx context.Context, r slog.Record) error {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		r = r.Clone()
		r.AddAttrs(
			slog.String(KeyTraceID, sc.TraceID().String()),
			slog.String(KeySpanID, sc.SpanID().String()),
		)
	}
	return h.base.Handle(ctx, r)
}

func (h *enrichHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &enrichHandler{base: h.base.WithAttrs(attrs)}
}

func (h *enrichHandler) WithGroup(name string) slog.Handler {
	return &enrichHandler{base: h.base.WithGroup(name)}
}
