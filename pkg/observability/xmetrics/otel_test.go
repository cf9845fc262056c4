package xmetrics

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// ============================================================================
// 测试辅助函数
// ============================================================================

func newTestObserver(t *testing.T) (*OTelObserver, *tracetest.InMemoryExporter, *sdkmetric.ManualReader) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		_ = mp.Shutdown(context.Background())
	})

	obs, err := NewOTelObserver(WithTracerProvider(tp), WithMeterProvider(mp), WithInstrumentationName("test"))
	require.NoError(t, err)
	return obs, exporter, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

// ============================================================================
// Observer 测试
// ============================================================================

func TestOTelObserver_SpanAndMetrics(t *testing.T) {
	obs, exporter, reader := newTestObserver(t)

	ctx, span := obs.Start(context.Background(), SpanOptions{
		Component: "xbar",
		Operation: "modify_response",
		Kind:      KindServer,
		Attrs:     []Attr{String("http.method", "GET")},
	})
	assert.True(t, trace.SpanContextFromContext(ctx).IsValid())
	span.End(Result{Outcome: "ajax", Attrs: []Attr{Int("status", 200)}})
	span.End(Result{Err: errors.New("ignored")})

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "modify_response", spans[0].Name)
	assert.Equal(t, trace.SpanKindServer, spans[0].SpanKind)
	assert.Equal(t, codes.Ok, spans[0].Status.Code)
	assert.Contains(t, spans[0].Attributes, attribute.String("outcome", "ajax"))

	metrics := collect(t, reader)
	total, ok := metrics[metricPipelineTotal].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, total.DataPoints, 1)
	assert.Equal(t, int64(1), total.DataPoints[0].Value)
	outcome, _ := total.DataPoints[0].Attributes.Value("outcome")
	assert.Equal(t, "ajax", outcome.AsString())

	_, ok = metrics[metricPipelineDuration].Data.(metricdata.Histogram[float64])
	assert.True(t, ok)
}

func TestOTelObserver_ErrorStatus(t *testing.T) {
	obs, exporter, reader := newTestObserver(t)

	_, span := obs.Start(context.Background(), SpanOptions{})
	span.End(Result{Err: errors.New("render failed")})

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, unknown, spans[0].Name)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Equal(t, "render failed", spans[0].Status.Description)

	total := collect(t, reader)[metricPipelineTotal].Data.(metricdata.Sum[int64])
	status, _ := total.DataPoints[0].Attributes.Value("status")
	assert.Equal(t, string(StatusError), status.AsString())
}

func TestOTelObserver_RecordSize(t *testing.T) {
	obs, _, reader := newTestObserver(t)

	RecordSize(context.Background(), obs, "xbar", 2048)

	hist, ok := collect(t, reader)[metricSnapshotSize].Data.(metricdata.Histogram[int64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
	assert.Equal(t, int64(2048), hist.DataPoints[0].Sum)
}

// ============================================================================
// Start / Noop 测试
// ============================================================================

type nilObserver struct{}

func (nilObserver) Start(context.Context, SpanOptions) (context.Context, Span) { return nil, nil }

func TestStart_Fallbacks(t *testing.T) {
	//nolint:staticcheck // 验证 nil ctx 兜底
	ctx, span := Start(nil, nil, SpanOptions{})
	assert.NotNil(t, ctx)
	assert.IsType(t, NoopSpan{}, span)

	ctx, span = Start(context.Background(), nilObserver{}, SpanOptions{})
	assert.NotNil(t, ctx)
	assert.IsType(t, NoopSpan{}, span)

	ctx, span = NoopObserver{}.Start(context.Background(), SpanOptions{})
	assert.NotNil(t, ctx)
	span.End(Result{})

	// 不支持 SizeRecorder 的 observer 静默忽略
	RecordSize(context.Background(), NoopObserver{}, "xbar", 1)
}

func TestAttrsToOTel(t *testing.T) {
	kvs := attrsToOTel([]Attr{
		String("s", "v"),
		Bool("b", true),
		Int("i", 3),
		{Key: "f", Value: 1.5},
		{Key: "skip"},
		{Key: "", Value: "x"},
		{Key: "other", Value: []int{1}},
	})
	require.Len(t, kvs, 5)
	assert.Equal(t, attribute.String("other", "[1]"), kvs[4])
}
