package xcollect

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// TraceData trace 面板数据。
type TraceData struct {
	Enabled bool   `json:"enabled"`
	TraceID string `json:"trace_id,omitempty"`
	SpanID  string `json:"span_id,omitempty"`
	Sampled bool   `json:"sampled"`
	Remote  bool   `json:"remote"`
}

// TraceCollector 报告请求 context 中的 OpenTelemetry span。
type TraceCollector struct {
	sc trace.SpanContext
}

// NewTrace 从 ctx 中提取 span 上下文。
func NewTrace(ctx context.Context) *TraceCollector {
	if ctx == nil {
		return &TraceCollector{}
	}
	return &TraceCollector{sc: trace.SpanContextFromContext(ctx)}
}

// Name 返回 "trace"。
func (c *TraceCollector) Name() string { return "trace" }

// Collect 返回 TraceData，没有有效 span 时 enabled 为 false。
func (c *TraceCollector) Collect() any {
	if !c.sc.IsValid() {
		return TraceData{}
	}
	return TraceData{
		Enabled: true,
		TraceID: c.sc.TraceID().String(),
		SpanID:  c.sc.SpanID().String(),
		Sampled: c.sc.IsSampled(),
		Remote:  c.sc.IsRemote(),
	}
}
