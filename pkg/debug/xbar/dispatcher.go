package xbar

import (
	"context"
	"net/http"
	"slices"
	"sync"
)

// Dispatcher 单个请求内的事件分发器，实现全部宿主能力接口。
// 回调按注册顺序同步执行。并发安全。
type Dispatcher struct {
	mu      sync.RWMutex
	booted  bool
	before  []func()
	after   []func()
	queries []func(QueryEvent)
	logs    []func(LogEvent)
	errs    []func(error)
	views   []func(ViewEvent)
	routes  []func(RouteEvent)
	events  []func(string, any)
	mails   []func(MailEvent)

	connections map[string]any
	user        func(ctx context.Context) (AuthUser, bool)
	session     func(r *http.Request) map[string]any
}

// 编译时接口检查
var (
	_ BootedReporter     = (*Dispatcher)(nil)
	_ BeforeHook         = (*Dispatcher)(nil)
	_ AfterHook          = (*Dispatcher)(nil)
	_ QueryHook          = (*Dispatcher)(nil)
	_ ConnectionResolver = (*Dispatcher)(nil)
	_ LogHook            = (*Dispatcher)(nil)
	_ ErrorHook          = (*Dispatcher)(nil)
	_ ViewHook           = (*Dispatcher)(nil)
	_ RouteHook          = (*Dispatcher)(nil)
	_ EventHook          = (*Dispatcher)(nil)
	_ MailHook           = (*Dispatcher)(nil)
	_ AuthResolver       = (*Dispatcher)(nil)
	_ SessionProvider    = (*Dispatcher)(nil)
)

// NewDispatcher 创建分发器。
func NewDispatcher() *Dispatcher {
	return &Dispatcher{connections: make(map[string]any)}
}

// SetUserResolver 设置当前用户解析函数。
func (d *Dispatcher) SetUserResolver(fn func(ctx context.Context) (AuthUser, bool)) {
	d.mu.Lock()
	d.user = fn
	d.mu.Unlock()
}

// SetSessionProvider 设置会话数据提供函数。
func (d *Dispatcher) SetSessionProvider(fn func(r *http.Request) map[string]any) {
	d.mu.Lock()
	d.session = fn
	d.mu.Unlock()
}

// RegisterConnection 注册一个数据库连接，供 Connection 解析。
func (d *Dispatcher) RegisterConnection(name string, conn any) {
	d.mu.Lock()
	d.connections[name] = conn
	d.mu.Unlock()
}

// Booted 在 Before 触发后返回 true。
func (d *Dispatcher) Booted() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.booted
}

// OnBefore 实现 BeforeHook。
func (d *Dispatcher) OnBefore(fn func()) { register(d, &d.before, fn) }

// OnAfter 实现 AfterHook。
func (d *Dispatcher) OnAfter(fn func()) { register(d, &d.after, fn) }

// OnQuery 实现 QueryHook。
func (d *Dispatcher) OnQuery(fn func(QueryEvent)) { register(d, &d.queries, fn) }

// OnLog 实现 LogHook。
func (d *Dispatcher) OnLog(fn func(LogEvent)) { register(d, &d.logs, fn) }

// OnError 实现 ErrorHook。
func (d *Dispatcher) OnError(fn func(error)) { register(d, &d.errs, fn) }

// OnView 实现 ViewHook。
func (d *Dispatcher) OnView(fn func(ViewEvent)) { register(d, &d.views, fn) }

// OnRoute 实现 RouteHook。
func (d *Dispatcher) OnRoute(fn func(RouteEvent)) { register(d, &d.routes, fn) }

// OnEvent 实现 EventHook。
func (d *Dispatcher) OnEvent(fn func(string, any)) { register(d, &d.events, fn) }

// OnMail 实现 MailHook。
func (d *Dispatcher) OnMail(fn func(MailEvent)) { register(d, &d.mails, fn) }

// Connection 实现 ConnectionResolver，未注册的连接返回 nil。
func (d *Dispatcher) Connection(name string) any {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connections[name]
}

// User 实现 AuthResolver，未设置解析函数时视为访客。
func (d *Dispatcher) User(ctx context.Context) (AuthUser, bool) {
	d.mu.RLock()
	fn := d.user
	d.mu.RUnlock()
	if fn == nil {
		return AuthUser{}, false
	}
	return fn(ctx)
}

// Session 实现 SessionProvider。
func (d *Dispatcher) Session(r *http.Request) map[string]any {
	d.mu.RLock()
	fn := d.session
	d.mu.RUnlock()
	if fn == nil {
		return nil
	}
	return fn(r)
}

// Before 标记宿主已启动并触发 OnBefore 回调。
func (d *Dispatcher) Before() {
	d.mu.Lock()
	d.booted = true
	fns := slices.Clone(d.before)
	d.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// After 触发 OnAfter 回调。
func (d *Dispatcher) After() { fire(d, &d.after, func(fn func()) { fn() }) }

// Query 上报一条 SQL 语句。
func (d *Dispatcher) Query(ev QueryEvent) { fire(d, &d.queries, func(fn func(QueryEvent)) { fn(ev) }) }

// Log 上报一条日志。
func (d *Dispatcher) Log(ev LogEvent) { fire(d, &d.logs, func(fn func(LogEvent)) { fn(ev) }) }

// Error 上报一个错误，nil 被忽略。
func (d *Dispatcher) Error(err error) {
	if err == nil {
		return
	}
	fire(d, &d.errs, func(fn func(error)) { fn(err) })
}

// View 上报一次模板渲染。
func (d *Dispatcher) View(ev ViewEvent) { fire(d, &d.views, func(fn func(ViewEvent)) { fn(ev) }) }

// Route 上报匹配到的路由。
func (d *Dispatcher) Route(ev RouteEvent) { fire(d, &d.routes, func(fn func(RouteEvent)) { fn(ev) }) }

// Event 上报一个应用事件。
func (d *Dispatcher) Event(name string, payload any) {
	fire(d, &d.events, func(fn func(string, any)) { fn(name, payload) })
}

// Mail 上报一封已发送的邮件。
func (d *Dispatcher) Mail(ev MailEvent) { fire(d, &d.mails, func(fn func(MailEvent)) { fn(ev) }) }

func register[F any](d *Dispatcher, list *[]F, fn F) {
	d.mu.Lock()
	*list = append(*list, fn)
	d.mu.Unlock()
}

// fire 在锁外执行回调，回调内可以继续注册或上报。
func fire[F any](d *Dispatcher, list *[]F, call func(F)) {
	d.mu.RLock()
	fns := slices.Clone(*list)
	d.mu.RUnlock()
	for _, fn := range fns {
		call(fn)
	}
}
