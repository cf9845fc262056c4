package xbar

import (
	"bufio"
	"bytes"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/omeyang/xbar/pkg/config/xconf"
	"github.com/omeyang/xbar/pkg/debug/xcollect"
	"github.com/omeyang/xbar/pkg/debug/xrender"
	"github.com/omeyang/xbar/pkg/observability/xlog"
	"github.com/omeyang/xbar/pkg/observability/xmetrics"
)

// ErrHijackUnsupported 表示底层 ResponseWriter 不支持 Hijack。
var ErrHijackUnsupported = errors.New("xbar: response writer does not support hijacking")

// NewMiddleware 创建 HTTP 中间件。
//
// 每个请求创建独立的 Debugbar 与 Dispatcher 并放入请求 context，
// 响应被缓冲后交给 ModifyResponse 处理。/<route_prefix>/open 与
// /<route_prefix>/assets/ 由中间件自身提供。
//
// 示例:
//
//	cfg, _ := xconf.New("debugbar.yaml")
//	store, _ := xbarstore.FromConfig(ctx, cfg)
//	mux := http.NewServeMux()
//	handler := xbar.NewMiddleware(cfg, xbar.WithStorage(store))(mux)
func NewMiddleware(cfg xconf.Source, opts ...Option) func(http.Handler) http.Handler {
	if cfg == nil {
		cfg = xconf.NewFromMap(nil)
	}
	base := applyOptions(opts)
	if base.stack == nil {
		base.stack = NewMemoryStack(0, -1)
	}
	if base.errorHandler == nil {
		logger := base.logger
		base.errorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
			logger.Error(internalContext(r.Context()), "debugbar response failed",
				xlog.Component("xbar"), xlog.Method(r.Method), xlog.Path(r.URL.Path), xlog.Err(err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
	}
	m := &middleware{
		cfg:    cfg,
		base:   base,
		open:   NewOpenHandler(base.storage, base.logger),
		assets: xrender.AssetHandler(),
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m.serve(next, w, r)
		})
	}
}

type middleware struct {
	cfg    xconf.Source
	base   *options
	open   http.Handler
	assets http.Handler
}

func (m *middleware) serve(next http.Handler, w http.ResponseWriter, r *http.Request) {
	if !m.cfg.Bool("enabled", false) {
		next.ServeHTTP(w, r)
		return
	}
	prefix := "/" + routePrefix(m.cfg)
	if r.URL.Path == prefix || strings.HasPrefix(r.URL.Path, prefix+"/") {
		m.serveInternal(w, r, prefix)
		return
	}

	ctx, span := xmetrics.Start(r.Context(), m.base.observer, xmetrics.SpanOptions{
		Component: "xbar",
		Operation: "pipeline",
		Kind:      xmetrics.KindServer,
		Attrs:     []xmetrics.Attr{xmetrics.String("method", r.Method), xmetrics.Bool("ajax", isAJAX(r))},
	})

	disp := NewDispatcher()
	if m.base.user != nil {
		disp.SetUserResolver(m.base.user)
	}
	if m.base.session != nil {
		disp.SetSessionProvider(m.base.session)
	}

	o := *m.base
	o.host = disp
	r = r.WithContext(WithDispatcher(ctx, disp))
	o.request = r
	bar := newDebugbar(m.cfg, &o)
	r = r.WithContext(WithContext(r.Context(), bar))
	bar.opts.request = r
	bar.ctx = r.Context()

	bar.Boot()
	disp.Before()

	bw := newBufferedWriter(w)
	next.ServeHTTP(bw, r)

	if rc, ok := collectorAs[*xcollect.RouteCollector](bar, "route"); ok && !rc.HasRoute() {
		if ev, ok := xcollect.RouteFromRequest(r); ok {
			rc.SetRoute(ev)
		}
	}
	disp.After()

	if bw.streaming {
		span.End(xmetrics.Result{Outcome: string(ModePassthrough)})
		return
	}

	resp := &Response{Status: bw.statusCode(), Header: bw.header, Body: bw.buf.Bytes()}
	mode, err := bar.ModifyResponse(r, resp)
	if err != nil {
		span.End(xmetrics.Result{Err: err, Outcome: string(mode)})
		m.base.errorHandler(w, r, err)
		return
	}
	writeResponse(w, resp)
	m.base.logger.Debug(internalContext(ctx), "debugbar delivered",
		xlog.Component("xbar"), xlog.Method(r.Method), xlog.Path(r.URL.Path),
		xlog.Status(resp.Status), slog.String("mode", string(mode)))
	span.End(xmetrics.Result{Status: xmetrics.StatusOK, Outcome: string(mode), Attrs: []xmetrics.Attr{xmetrics.Int("status", resp.Status)}})
}

// serveInternal 提供调试栏自身的路由，不经过采集。
func (m *middleware) serveInternal(w http.ResponseWriter, r *http.Request, prefix string) {
	switch {
	case r.URL.Path == prefix+"/open":
		m.open.ServeHTTP(w, r)
	case strings.HasPrefix(r.URL.Path, prefix+"/assets/"):
		http.StripPrefix(prefix+"/assets", m.assets).ServeHTTP(w, r)
	default:
		http.NotFound(w, r)
	}
}

func writeResponse(w http.ResponseWriter, resp *Response) {
	dst := w.Header()
	for k := range dst {
		delete(dst, k)
	}
	for k, v := range resp.Header {
		dst[k] = v
	}
	w.WriteHeader(resp.Status)
	_, _ = w.Write(resp.Body)
}

// bufferedWriter 缓冲响应。处理函数调用 Flush 或 Hijack 后切换为直通模式，
// 已缓冲的内容先写出，此后不再修改响应。
type bufferedWriter struct {
	w           http.ResponseWriter
	header      http.Header
	status      int
	wroteHeader bool
	buf         bytes.Buffer
	streaming   bool
}

var (
	_ http.Flusher  = (*bufferedWriter)(nil)
	_ http.Hijacker = (*bufferedWriter)(nil)
)

func newBufferedWriter(w http.ResponseWriter) *bufferedWriter {
	return &bufferedWriter{w: w, header: w.Header().Clone()}
}

func (b *bufferedWriter) Header() http.Header {
	if b.streaming {
		return b.w.Header()
	}
	return b.header
}

func (b *bufferedWriter) WriteHeader(code int) {
	if b.streaming {
		b.w.WriteHeader(code)
		return
	}
	if b.wroteHeader {
		return
	}
	b.status = code
	b.wroteHeader = true
}

func (b *bufferedWriter) Write(p []byte) (int, error) {
	if b.streaming {
		return b.w.Write(p)
	}
	if !b.wroteHeader {
		b.WriteHeader(http.StatusOK)
	}
	return b.buf.Write(p)
}

// Flush 切换为直通模式并刷新底层连接。
func (b *bufferedWriter) Flush() {
	if !b.streaming {
		b.startStreaming()
	}
	if f, ok := b.w.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack 交出底层连接，之后的响应由处理函数自行负责。
func (b *bufferedWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := b.w.(http.Hijacker)
	if !ok {
		return nil, nil, ErrHijackUnsupported
	}
	b.streaming = true
	return hj.Hijack()
}

// Unwrap 供 http.ResponseController 访问底层 ResponseWriter。
func (b *bufferedWriter) Unwrap() http.ResponseWriter {
	return b.w
}

func (b *bufferedWriter) statusCode() int {
	if b.status == 0 {
		return http.StatusOK
	}
	return b.status
}

func (b *bufferedWriter) startStreaming() {
	b.streaming = true
	dst := b.w.Header()
	for k, v := range b.header {
		dst[k] = v
	}
	b.w.WriteHeader(b.statusCode())
	if b.buf.Len() > 0 {
		_, _ = b.w.Write(b.buf.Bytes())
		b.buf.Reset()
	}
}
