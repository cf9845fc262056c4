package xbar

import (
	"context"
	"net/http"
	"time"

	"github.com/omeyang/xbar/pkg/debug/xrender"
	"github.com/omeyang/xbar/pkg/observability/xlog"
	"github.com/omeyang/xbar/pkg/observability/xmetrics"
	"github.com/omeyang/xbar/pkg/util/xid"
)

// Renderer 渲染注入 HTML 的工具栏标记，*xrender.Renderer 满足此接口。
type Renderer interface {
	Markup(p xrender.Page) ([]byte, error)
}

// ErrorHandler 处理中间件中 ModifyResponse 返回的错误。
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// Option 配置 Debugbar 与中间件。
type Option func(*options)

type options struct {
	host      any
	storage   Storage
	stack     StackStore
	renderer  Renderer
	newID     func() string
	bootStart time.Time
	logger    xlog.Logger
	observer  xmetrics.Observer
	console   bool
	now       func() time.Time
	request   *http.Request
	clientIP  *ClientIPResolver

	// 仅中间件使用
	errorHandler ErrorHandler
	user         func(ctx context.Context) (AuthUser, bool)
	session      func(r *http.Request) map[string]any
}

func defaultOptions() *options {
	return &options{
		newID:    xid.RequestID,
		logger:   xlog.Discard(),
		observer: xmetrics.NoopObserver{},
		now:      time.Now,
	}
}

func applyOptions(opts []Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// WithHost 设置宿主，Boot 时通过类型断言解析其钩子能力。
func WithHost(host any) Option {
	return func(o *options) { o.host = host }
}

// WithStorage 设置快照存储，nil 表示不持久化。
func WithStorage(s Storage) Option {
	return func(o *options) { o.storage = s }
}

// WithStack 设置重定向暂存区。
func WithStack(s StackStore) Option {
	return func(o *options) { o.stack = s }
}

// WithRenderer 替换工具栏渲染器。
func WithRenderer(r Renderer) Option {
	return func(o *options) {
		if r != nil {
			o.renderer = r
		}
	}
}

// WithIDGenerator 替换快照 id 生成函数，默认使用 xid.RequestID。
func WithIDGenerator(fn func() string) Option {
	return func(o *options) {
		if fn != nil {
			o.newID = fn
		}
	}
}

// WithBootStart 设置进程（或请求）开始的时间，用于生成 Booting 测量。
func WithBootStart(t time.Time) Option {
	return func(o *options) { o.bootStart = t }
}

// WithLogger 设置日志记录器，默认丢弃。
func WithLogger(l xlog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithObserver 设置观测器，默认空实现。
func WithObserver(obs xmetrics.Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// WithConsole 标记命令行模式，ModifyResponse 始终透传。
func WithConsole(console bool) Option {
	return func(o *options) { o.console = console }
}

// WithClock 替换时钟，用于测试。
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithRequest 设置当前请求，request 类采集器与 trace、auth 面板从中取数据。
func WithRequest(r *http.Request) Option {
	return func(o *options) { o.request = r }
}

// WithClientIP 设置客户端 IP 解析器，默认直接使用 RemoteAddr。
func WithClientIP(res *ClientIPResolver) Option {
	return func(o *options) { o.clientIP = res }
}

// WithErrorHandler 设置中间件的错误处理函数，默认记录日志并返回 500。
func WithErrorHandler(h ErrorHandler) Option {
	return func(o *options) { o.errorHandler = h }
}

// WithUserResolver 设置中间件为每个请求的 Dispatcher 安装的用户解析函数。
func WithUserResolver(fn func(ctx context.Context) (AuthUser, bool)) Option {
	return func(o *options) { o.user = fn }
}

// WithSessionProvider 设置中间件为每个请求的 Dispatcher 安装的会话提供函数。
func WithSessionProvider(fn func(r *http.Request) map[string]any) Option {
	return func(o *options) { o.session = fn }
}
