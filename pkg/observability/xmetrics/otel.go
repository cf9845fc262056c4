package xmetrics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultInstrumentationName = "github.com/omeyang/xbar"
	unknown                    = "unknown"

	metricPipelineTotal    = "xbar.pipeline.total"
	metricPipelineDuration = "xbar.pipeline.duration"
	metricSnapshotSize     = "xbar.snapshot.size"
)

type otelConfig struct {
	instrumentationName string
	tracerProvider      trace.TracerProvider
	meterProvider       metric.MeterProvider
}

// Option 定义 OTel Observer 的配置选项。
type Option func(*otelConfig)

// WithInstrumentationName 设置 instrumentation 名称，空值忽略。
func WithInstrumentationName(name string) Option {
	return func(cfg *otelConfig) {
		if name != "" {
			cfg.instrumentationName = name
		}
	}
}

// WithTracerProvider 设置 TracerProvider，nil 忽略。
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(cfg *otelConfig) {
		if provider != nil {
			cfg.tracerProvider = provider
		}
	}
}

// WithMeterProvider 设置 MeterProvider，nil 忽略。
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(cfg *otelConfig) {
		if provider != nil {
			cfg.meterProvider = provider
		}
	}
}

// 编译时接口检查
var (
	_ Observer     = (*OTelObserver)(nil)
	_ SizeRecorder = (*OTelObserver)(nil)
)

// OTelObserver 基于 OpenTelemetry 的 Observer，同时实现 SizeRecorder。
type OTelObserver struct {
	tracer   trace.Tracer
	total    metric.Int64Counter
	duration metric.Float64Histogram
	size     metric.Int64Histogram
}

// NewOTelObserver 创建基于 OpenTelemetry 的 Observer，默认使用全局 provider。
func NewOTelObserver(opts ...Option) (*OTelObserver, error) {
	cfg := &otelConfig{
		instrumentationName: defaultInstrumentationName,
		tracerProvider:      otel.GetTracerProvider(),
		meterProvider:       otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}

	meter := cfg.meterProvider.Meter(cfg.instrumentationName)

	total, err := meter.Int64Counter(
		metricPipelineTotal,
		metric.WithDescription("debugbar pipeline executions"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCreateCounter, err)
	}

	duration, err := meter.Float64Histogram(
		metricPipelineDuration,
		metric.WithDescription("debugbar pipeline duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCreateHistogram, err)
	}

	size, err := meter.Int64Histogram(
		metricSnapshotSize,
		metric.WithDescription("encoded snapshot size"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCreateHistogram, err)
	}

	return &OTelObserver{
		tracer:   cfg.tracerProvider.Tracer(cfg.instrumentationName),
		total:    total,
		duration: duration,
		size:     size,
	}, nil
}

// Start 开始一次观测跨度。
func (o *OTelObserver) Start(ctx context.Context, opts SpanOptions) (context.Context, Span) {
	if ctx == nil {
		ctx = context.Background()
	}

	component := orUnknown(opts.Component)
	operation := orUnknown(opts.Operation)

	attrs := make([]attribute.KeyValue, 0, 2+len(opts.Attrs))
	attrs = append(attrs,
		attribute.String("component", component),
		attribute.String("operation", operation),
	)
	attrs = append(attrs, attrsToOTel(opts.Attrs)...)

	ctx, span := o.tracer.Start(ctx, operation,
		trace.WithSpanKind(mapSpanKind(opts.Kind)),
		trace.WithAttributes(attrs...),
	)
	return ctx, &otelSpan{
		span:      span,
		observer:  o,
		ctx:       ctx,
		component: component,
		operation: operation,
		start:     time.Now(),
	}
}

// RecordSize 记录快照大小。
func (o *OTelObserver) RecordSize(ctx context.Context, component string, bytes int) {
	o.size.Record(context.WithoutCancel(ctx), int64(bytes),
		metric.WithAttributes(attribute.String("component", orUnknown(component))))
}

type otelSpan struct {
	span      trace.Span
	observer  *OTelObserver
	ctx       context.Context
	component string
	operation string
	start     time.Time
	endOnce   sync.Once
}

func (s *otelSpan) End(result Result) {
	s.endOnce.Do(func() {
		status := resolveStatus(result)
		if result.Err != nil {
			s.span.RecordError(result.Err)
		}
		if status == StatusError {
			msg := "operation failed"
			if result.Err != nil {
				msg = result.Err.Error()
			}
			s.span.SetStatus(codes.Error, msg)
		} else {
			s.span.SetStatus(codes.Ok, "")
		}

		if result.Outcome != "" {
			s.span.SetAttributes(attribute.String("outcome", result.Outcome))
		}
		if len(result.Attrs) > 0 {
			s.span.SetAttributes(attrsToOTel(result.Attrs)...)
		}
		s.span.End()

		// 请求 ctx 可能已取消，指标仍需记录
		metricsCtx := context.WithoutCancel(s.ctx)
		attrs := metric.WithAttributes(
			attribute.String("component", s.component),
			attribute.String("operation", s.operation),
			attribute.String("status", string(status)),
			attribute.String("outcome", orUnknown(result.Outcome)),
		)
		s.observer.total.Add(metricsCtx, 1, attrs)
		s.observer.duration.Record(metricsCtx, time.Since(s.start).Seconds(), attrs)
	})
}

func resolveStatus(result Result) Status {
	if result.Status != "" {
		return result.Status
	}
	if result.Err != nil {
		return StatusError
	}
	return StatusOK
}

func mapSpanKind(kind Kind) trace.SpanKind {
	switch kind {
	case KindServer:
		return trace.SpanKindServer
	case KindClient:
		return trace.SpanKindClient
	default:
		return trace.SpanKindInternal
	}
}

func orUnknown(s string) string {
	if s == "" {
		return unknown
	}
	return s
}

func attrsToOTel(attrs []Attr) []attribute.KeyValue {
	converted := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if attr.Key == "" || attr.Value == nil {
			continue
		}
		switch v := attr.Value.(type) {
		case string:
			converted = append(converted, attribute.String(attr.Key, v))
		case bool:
			converted = append(converted, attribute.Bool(attr.Key, v))
		case int:
			converted = append(converted, attribute.Int(attr.Key, v))
		case int64:
			converted = append(converted, attribute.Int64(attr.Key, v))
		case float64:
			converted = append(converted, attribute.Float64(attr.Key, v))
		case time.Duration:
			converted = append(converted, attribute.Int64(attr.Key, v.Nanoseconds()))
		default:
			converted = append(converted, attribute.String(attr.Key, fmt.Sprint(v)))
		}
	}
	return converted
}
