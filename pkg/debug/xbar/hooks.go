package xbar

import (
	"context"
	"net/http"
)

// 宿主能力接口。Boot 时对宿主做一次类型断言，缺失的能力会跳过对应的挂载。

// BootedReporter 报告宿主是否已经完成启动（已进入请求处理）。
type BootedReporter interface {
	Booted() bool
}

// BeforeHook 请求处理开始前的回调。
type BeforeHook interface {
	OnBefore(fn func())
}

// AfterHook 请求处理结束后的回调。
type AfterHook interface {
	OnAfter(fn func())
}

// QueryHook SQL 语句执行后的回调。
type QueryHook interface {
	OnQuery(fn func(QueryEvent))
}

// ConnectionResolver 按名称解析数据库连接；连接实现 LoggingReporter 时可单独关闭记录。
type ConnectionResolver interface {
	Connection(name string) any
}

// LoggingReporter 报告连接是否开启了查询记录。
type LoggingReporter interface {
	Logging() bool
}

// LogHook 日志写出时的回调。
type LogHook interface {
	OnLog(fn func(LogEvent))
}

// ErrorHook 错误上报时的回调。
type ErrorHook interface {
	OnError(fn func(error))
}

// ViewHook 模板渲染时的回调。
type ViewHook interface {
	OnView(fn func(ViewEvent))
}

// RouteHook 路由匹配后的回调。
type RouteHook interface {
	OnRoute(fn func(RouteEvent))
}

// EventHook 任意应用事件的回调。
type EventHook interface {
	OnEvent(fn func(name string, payload any))
}

// MailHook 邮件发送后的回调。
type MailHook interface {
	OnMail(fn func(MailEvent))
}

// AuthResolver 解析当前用户。
type AuthResolver interface {
	User(ctx context.Context) (AuthUser, bool)
}

// SessionProvider 提供请求的会话数据。
type SessionProvider interface {
	Session(r *http.Request) map[string]any
}
