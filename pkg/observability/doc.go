// Package observability 提供可观测性相关的子包。
//
// 子包列表：
//   - xlog: 结构化日志，基于 log/slog 扩展，支持按大小轮转的文件输出
//   - xmetrics: 统一可观测性接口（追踪、指标），默认实现基于 OpenTelemetry
//
// 调试栏自身的管线耗时与快照大小通过 xmetrics 上报；
// 业务日志经 xbar.SlogHandler 包装后同时进入当前请求的 log 面板。
package observability
