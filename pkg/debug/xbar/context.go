package xbar

import "context"

type (
	barKey        struct{}
	dispatcherKey struct{}
)

// WithContext 把调试栏放入 ctx。
func WithContext(ctx context.Context, d *Debugbar) context.Context {
	return context.WithValue(ctx, barKey{}, d)
}

// FromContext 取出调试栏，不存在时返回 nil（*Debugbar 的方法对 nil 安全）。
func FromContext(ctx context.Context) *Debugbar {
	if ctx == nil {
		return nil
	}
	d, _ := ctx.Value(barKey{}).(*Debugbar)
	return d
}

// WithDispatcher 把 Dispatcher 放入 ctx。
func WithDispatcher(ctx context.Context, d *Dispatcher) context.Context {
	return context.WithValue(ctx, dispatcherKey{}, d)
}

// internalContext 屏蔽 ctx 中的 Dispatcher，调试栏自身的日志不进入请求的 log 面板。
func internalContext(ctx context.Context) context.Context {
	if _, ok := DispatcherFromContext(ctx); !ok {
		return ctx
	}
	return context.WithValue(ctx, dispatcherKey{}, (*Dispatcher)(nil))
}

// DispatcherFromContext 取出 Dispatcher。
func DispatcherFromContext(ctx context.Context) (*Dispatcher, bool) {
	if ctx == nil {
		return nil, false
	}
	d, ok := ctx.Value(dispatcherKey{}).(*Dispatcher)
	return d, ok && d != nil
}

// 以下函数向 ctx 中的 Dispatcher 上报事件，没有 Dispatcher 时为空操作。

// ReportQuery 上报一条 SQL 语句。
func ReportQuery(ctx context.Context, ev QueryEvent) {
	if d, ok := DispatcherFromContext(ctx); ok {
		d.Query(ev)
	}
}

// ReportLog 上报一条日志。
func ReportLog(ctx context.Context, ev LogEvent) {
	if d, ok := DispatcherFromContext(ctx); ok {
		d.Log(ev)
	}
}

// ReportError 上报一个错误，nil 被忽略。
func ReportError(ctx context.Context, err error) {
	if d, ok := DispatcherFromContext(ctx); ok {
		d.Error(err)
	}
}

// ReportView 上报一次模板渲染。
func ReportView(ctx context.Context, ev ViewEvent) {
	if d, ok := DispatcherFromContext(ctx); ok {
		d.View(ev)
	}
}

// ReportRoute 上报匹配到的路由。
func ReportRoute(ctx context.Context, ev RouteEvent) {
	if d, ok := DispatcherFromContext(ctx); ok {
		d.Route(ev)
	}
}

// ReportEvent 上报一个应用事件。
func ReportEvent(ctx context.Context, name string, payload any) {
	if d, ok := DispatcherFromContext(ctx); ok {
		d.Event(name, payload)
	}
}

// ReportMail 上报一封已发送的邮件。
func ReportMail(ctx context.Context, ev MailEvent) {
	if d, ok := DispatcherFromContext(ctx); ok {
		d.Mail(ev)
	}
}
