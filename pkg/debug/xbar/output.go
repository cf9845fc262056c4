package xbar

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/omeyang/xbar/pkg/debug/xcollect"
	"github.com/omeyang/xbar/pkg/debug/xrender"
	"github.com/omeyang/xbar/pkg/observability/xlog"
	"github.com/omeyang/xbar/pkg/observability/xmetrics"
)

// DeliveryMode 快照的投递方式。
type DeliveryMode string

const (
	// ModePassthrough 响应原样返回。
	ModePassthrough DeliveryMode = "passthrough"
	// ModeRedirected 重定向响应，快照进入暂存区，在下一个 HTML 页面中展示。
	ModeRedirected DeliveryMode = "redirected"
	// ModeAJAX 快照通过响应头返回。
	ModeAJAX DeliveryMode = "ajax"
	// ModeHTMLInjected 工具栏注入到 HTML 响应体。
	ModeHTMLInjected DeliveryMode = "html-injected"
)

// 响应头
const (
	HeaderID     = "X-Debugbar-Id"
	HeaderElided = "X-Debugbar-Elided"
)

const (
	defaultHeaderMaxLength = 4096
	defaultHeaderMaxTotal  = 250000
)

// Response 缓冲后的响应，ModifyResponse 原地修改。
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// IsDebugbarRequest 判断请求是否指向调试栏自身的路由。
func (d *Debugbar) IsDebugbarRequest(r *http.Request) bool {
	if d == nil || r == nil || r.URL == nil {
		return false
	}
	first, _, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, "/"), "/")
	return first == routePrefix(d.cfg)
}

// ModifyResponse 为响应选择投递方式并执行。返回的错误来自渲染，
// 此时响应未被修改，由调用方按正常错误流程处理。
func (d *Debugbar) ModifyResponse(r *http.Request, resp *Response) (DeliveryMode, error) {
	if d == nil || r == nil || resp == nil || d.opts.console || !d.IsEnabled() || d.IsDebugbarRequest(r) {
		return ModePassthrough, nil
	}
	if resp.Header == nil {
		resp.Header = http.Header{}
	}
	if d.opts.request == nil {
		d.opts.request = r
	}

	ctx, span := xmetrics.Start(r.Context(), d.opts.observer, xmetrics.SpanOptions{
		Component: "xbar",
		Operation: "modify_response",
		Attrs:     []xmetrics.Attr{xmetrics.Int("status", resp.Status)},
	})
	mode, err := d.modifyResponse(ctx, r, resp)
	span.End(xmetrics.Result{Err: err, Outcome: string(mode)})
	return mode, err
}

func (d *Debugbar) modifyResponse(ctx context.Context, r *http.Request, resp *Response) (DeliveryMode, error) {
	d.addResponseCollectors(r, resp)

	switch {
	case resp.Status >= 300 && resp.Status < 400:
		d.stackData(ctx, r, resp)
		return ModeRedirected, nil

	case isAJAX(r) && d.cfg.Bool("capture_ajax", true):
		d.sendHeaders(ctx, resp)
		return ModeAJAX, nil

	case !isHTML(r, resp):
		return ModePassthrough, nil

	case d.cfg.Bool("inject", true):
		if err := d.injectToolbar(ctx, r, resp); err != nil {
			return ModePassthrough, err
		}
		return ModeHTMLInjected, nil
	}
	return ModePassthrough, nil
}

// addResponseCollectors 注册依赖响应的 config 与 request 面板。
func (d *Debugbar) addResponseCollectors(r *http.Request, resp *Response) {
	if d.gate.ShouldCollect("config", false) {
		d.addBootCollector(xcollect.NewConfig("config", maskConfig(d.cfg.All())))
	}
	if d.gate.ShouldCollect("request", true) && !d.registry.Has("request") {
		var session map[string]any
		if sp, ok := d.opts.host.(SessionProvider); ok {
			session = sp.Session(r)
		}
		d.addBootCollector(xcollect.NewRequest(r, resp.Status, resp.Header, session))
	}
}

var secretKeyParts = []string{"password", "secret", "token"}

// maskConfig 返回副本，键名包含 password、secret 或 token 的值被替换为 ***。
func maskConfig(all map[string]any) map[string]any {
	out := make(map[string]any, len(all))
	for k, v := range all {
		lower := strings.ToLower(k)
		if slices.ContainsFunc(secretKeyParts, func(p string) bool { return strings.Contains(lower, p) }) {
			v = "***"
		}
		out[k] = v
	}
	return out
}

func isAJAX(r *http.Request) bool {
	return r.Header.Get("X-Requested-With") == "XMLHttpRequest"
}

// isHTML 判断响应能否注入：内容类型为 HTML、协商格式为 html，且响应体未压缩。
// 未设置 Content-Type 时按响应体嗅探，与 net/http 写出时的判断一致。
func isHTML(r *http.Request, resp *Response) bool {
	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = http.DetectContentType(resp.Body)
	}
	if !strings.Contains(ct, "html") {
		return false
	}
	if resp.Header.Get("Content-Encoding") != "" {
		return false
	}
	return requestFormat(r) == "html"
}

// requestFormat 优先使用 _format 查询参数，其次根据 Accept 判断是否要求 JSON。
func requestFormat(r *http.Request) string {
	if f := r.URL.Query().Get("_format"); f != "" {
		return strings.ToLower(f)
	}
	accept := r.Header.Get("Accept")
	if strings.Contains(accept, "/json") || strings.Contains(accept, "+json") {
		return "json"
	}
	return "html"
}

// stackData 把快照放入当前客户端的暂存区。保存成功时只暂存 id。
func (d *Debugbar) stackData(ctx context.Context, r *http.Request, resp *Response) {
	snap, saved := d.collect(ctx)
	if d.opts.stack == nil {
		return
	}
	key := stackKey(r)
	if key == "" {
		key = d.opts.newID()
		cookie := &http.Cookie{Name: StackCookie, Value: key, Path: "/", HttpOnly: true, SameSite: http.SameSiteLaxMode}
		resp.Header.Add("Set-Cookie", cookie.String())
	}
	item := StackItem{ID: snap.ID()}
	if !saved {
		item.Snapshot = snap
	}
	if err := d.opts.stack.Push(ctx, key, item); err != nil {
		d.opts.logger.Warn(internalContext(ctx), "stack snapshot failed", xlog.Component("xbar"), xlog.RequestID(snap.ID()), xlog.Err(err))
	}
}

func stackKey(r *http.Request) string {
	c, err := r.Cookie(StackCookie)
	if err != nil {
		return ""
	}
	return c.Value
}

// sendHeaders 通过响应头返回快照，响应体不变。
func (d *Debugbar) sendHeaders(ctx context.Context, resp *Response) {
	snap, saved := d.collect(ctx)
	resp.Header.Set(HeaderID, snap.ID())
	if saved {
		return
	}

	value, err := xrender.EncodeHeader(snap)
	if err != nil {
		d.opts.logger.Warn(internalContext(ctx), "encode snapshot header failed", xlog.Component("xbar"), xlog.Err(err))
		return
	}
	if len(value) > d.cfg.Int("header.max_total", defaultHeaderMaxTotal) {
		resp.Header.Set(HeaderElided, "1")
		d.opts.logger.Debug(internalContext(ctx), "snapshot header elided", xlog.Component("xbar"), slog.Int("bytes", len(value)))
		return
	}
	chunks, err := xrender.ChunkHeader(xrender.HeaderPrefix, value, d.cfg.Int("header.max_length", defaultHeaderMaxLength))
	if err != nil {
		d.opts.logger.Warn(internalContext(ctx), "chunk snapshot header failed", xlog.Component("xbar"), xlog.Err(err))
		return
	}
	for _, c := range chunks {
		resp.Header.Set(c[0], c[1])
	}
}

// injectToolbar 渲染工具栏（含暂存的快照）并注入响应体，之后禁用本实例。
func (d *Debugbar) injectToolbar(ctx context.Context, r *http.Request, resp *Response) error {
	snap, _ := d.collect(ctx)
	page := xrender.Page{ID: snap.ID(), Data: snap, Stacked: d.popStacked(ctx, r)}

	markup, err := d.renderer().Markup(page)
	if err != nil {
		return fmt.Errorf("render toolbar: %w", err)
	}
	resp.Body = Inject(resp.Body, markup)
	if resp.Header.Get("Content-Length") != "" {
		resp.Header.Set("Content-Length", strconv.Itoa(len(resp.Body)))
	}
	d.Disable()
	return nil
}

// popStacked 取出暂存的快照。只有 id 的项从存储读取，读取失败的项被跳过。
func (d *Debugbar) popStacked(ctx context.Context, r *http.Request) []xrender.Dataset {
	key := stackKey(r)
	if key == "" || d.opts.stack == nil {
		return nil
	}
	items, err := d.opts.stack.Pop(ctx, key)
	if err != nil {
		d.opts.logger.Warn(internalContext(ctx), "pop stacked snapshots failed", xlog.Component("xbar"), xlog.Err(err))
		return nil
	}
	out := make([]xrender.Dataset, 0, len(items))
	for _, it := range items {
		snap := it.Snapshot
		if snap == nil && d.opts.storage != nil {
			snap, err = d.opts.storage.Get(ctx, it.ID)
			if err != nil {
				d.opts.logger.Warn(internalContext(ctx), "load stacked snapshot failed", xlog.Component("xbar"), xlog.RequestID(it.ID), xlog.Err(err))
				continue
			}
		}
		if snap == nil {
			continue
		}
		out = append(out, xrender.Dataset{ID: it.ID, Data: snap})
	}
	return out
}

func (d *Debugbar) renderer() Renderer {
	if d.opts.renderer != nil {
		return d.opts.renderer
	}
	ropts := []xrender.Option{
		xrender.WithBaseURL("/" + routePrefix(d.cfg)),
		xrender.WithIncludeVendors(d.cfg.Bool("include_vendors", true)),
	}
	if d.opts.storage == nil {
		ropts = append(ropts, xrender.WithOpenHandlerURL(""))
	}
	return xrender.New(ropts...)
}
