// Package xbar 是面向 net/http 服务的请求诊断工具栏。
//
// 每个请求由中间件创建一个 [Debugbar]，按配置注册一组采集器（见 xcollect），
// 通过 [Dispatcher] 接收宿主上报的查询、日志、错误等事件，
// 请求结束时把所有采集器的输出汇总为一份 [Snapshot]，
// 再根据响应类型选择投递方式：
//
//   - 重定向：快照暂存到 [StackStore]，在下一个 HTML 页面中一并展示
//   - AJAX：快照（或仅其 id）写入 X-Debugbar-* 响应头
//   - HTML：工具栏标记注入到 </body> 之前
//   - 其它：原样透传
//
// # 基本用法
//
//	cfg := xconf.NewFromMap(xconf.Defaults())
//	_ = cfg.Set("enabled", true)
//	handler := xbar.NewMiddleware(cfg, xbar.WithStorage(store))(mux)
//
// 业务代码通过请求 context 访问当前的调试栏，未启用时所有方法都是空操作：
//
//	bar := xbar.FromContext(ctx)
//	bar.Info("loaded user")
//	err := bar.Measure("render", func() error { return render(w) })
//
// # 钩子
//
// 宿主能力以一组很小的接口表示（[QueryHook]、[LogHook]、[ErrorHook] 等），
// 启动时通过类型断言解析一次。[Dispatcher] 实现全部接口，
// 中间件为每个请求创建一个并放入 context，[ReportQuery]、[ReportError]
// 等辅助函数以及 [SlogHandler] 都通过它上报事件。
//
// 钩子挂载失败（返回错误或 panic）会被包装为 [CollectorAttachError]
// 记录到 exceptions 面板，启动流程继续。
//
// # 配置
//
// 所有开关都是点分键，读取时由调用方给出默认值，常用键见 xconf.Defaults。
// Enable/Disable 只写入请求级的覆盖层，不会影响其它请求。
//
// # 命令行
//
// [Debugbar.CollectConsole] 为一次命令行调用生成快照并保存，不涉及响应处理。
package xbar
