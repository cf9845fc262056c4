// Package xlog 提供基于 log/slog 的结构化日志。
//
// 调试栏自身的日志（存储失败、渲染错误、挂载失败等）都通过 [Logger] 输出。
// 所有方法强制 context 参数，日志会自动带上 context 中 OpenTelemetry span 的
// trace_id 和 span_id。
//
// 构建方式：
//
//	logger, cleanup, err := xlog.New().
//		SetLevelString("debug").
//		SetFormat("json").
//		SetRotation("/var/log/app/debugbar.log").
//		Build()
//	if err != nil {
//		return err
//	}
//	defer cleanup()
//
// SetHandlerWrapper 可以在 Build 时包装底层 slog.Handler，
// 例如把应用日志同时桥接到调试栏的 messages 面板。
//
// 不需要日志的地方使用 [Discard]。
package xlog
