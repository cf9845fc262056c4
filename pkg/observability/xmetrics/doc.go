// Package xmetrics 提供调试栏流水线的可观测性接口（metrics + tracing）。
//
// 业务代码只依赖 Observer/Span/Attr 接口，默认实现基于 OpenTelemetry。
//
//	obs, _ := xmetrics.NewOTelObserver()
//	ctx, span := xmetrics.Start(ctx, obs, xmetrics.SpanOptions{
//		Component: "xbar",
//		Operation: "modify_response",
//		Kind:      xmetrics.KindServer,
//	})
//	defer span.End(xmetrics.Result{Err: err, Outcome: "ajax"})
//
// # 指标命名
//
//   - xbar.pipeline.total：流水线执行次数
//   - xbar.pipeline.duration：流水线耗时（秒）
//   - xbar.snapshot.size：快照 JSON 大小（字节）
//
// 统一属性：component / operation / status / outcome。
package xmetrics
