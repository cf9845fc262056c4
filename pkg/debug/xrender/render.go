package xrender

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"strings"
)

const (
	// DefaultBaseURL 默认的调试栏路由前缀
	DefaultBaseURL = "/_debugbar"
)

// Dataset 一份待渲染的数据集。
type Dataset struct {
	ID   string
	Data any
}

// Page 一次渲染的输入：当前快照以及重定向前暂存的快照。
type Page struct {
	ID      string
	Data    any
	Stacked []Dataset
}

// Option 配置 Renderer。
type Option func(*Renderer)

// WithBaseURL 设置路由前缀，静态资源与 open handler 都位于其下。
func WithBaseURL(u string) Option {
	return func(r *Renderer) {
		if u = strings.TrimRight(u, "/"); u != "" {
			r.baseURL = u
		}
	}
}

// WithOpenHandlerURL 覆盖 open handler 地址，为空表示禁用（前端不会按 id 拉取数据）。
func WithOpenHandlerURL(u string) Option {
	return func(r *Renderer) {
		r.openURL = u
		r.openURLSet = true
	}
}

// WithIncludeVendors 设置是否加载第三方样式（字体、代码高亮）。
func WithIncludeVendors(include bool) Option {
	return func(r *Renderer) {
		r.includeVendors = include
	}
}

// WithNonce 为内联脚本设置 CSP nonce。
func WithNonce(nonce string) Option {
	return func(r *Renderer) {
		r.nonce = nonce
	}
}

// Renderer 渲染工具栏标记。并发安全。
type Renderer struct {
	baseURL        string
	openURL        string
	openURLSet     bool
	includeVendors bool
	nonce          string
}

// New 创建 Renderer。
func New(opts ...Option) *Renderer {
	r := &Renderer{baseURL: DefaultBaseURL, includeVendors: true}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	if !r.openURLSet {
		r.openURL = r.baseURL + "/open"
	}
	return r
}

// BaseURL 返回路由前缀。
func (r *Renderer) BaseURL() string { return r.baseURL }

// OpenHandlerURL 返回 open handler 地址。
func (r *Renderer) OpenHandlerURL() string { return r.openURL }

var headTemplate = template.Must(template.New("head").Parse(
	`{{if .Vendors}}<link rel="stylesheet" type="text/css" href="{{.Assets}}/vendor.css">
{{end}}<link rel="stylesheet" type="text/css" href="{{.Assets}}/xbar.css">
<script type="text/javascript" src="{{.Assets}}/xbar.js"></script>
`))

var bodyTemplate = template.Must(template.New("body").Parse(
	`<div id="xbar" class="xbar" data-open-handler="{{.OpenURL}}"></div>
<script type="text/javascript"{{if .Nonce}} nonce="{{.Nonce}}"{{end}}>
(function () {
  var bar = window.xbar && window.xbar.init({openHandler: {{.OpenURL}}});
  if (!bar) { return; }
{{range .Stacked}}  bar.addDataset({{.JSON}}, {{.ID}}, "(stacked)");
{{end}}  bar.addDataset({{.Current.JSON}}, {{.Current.ID}});
})();
</script>
`))

type headView struct {
	Assets  string
	Vendors bool
}

type encodedDataset struct {
	ID   string
	JSON template.JS
}

type bodyView struct {
	OpenURL string
	Nonce   string
	Current encodedDataset
	Stacked []encodedDataset
}

// RenderHead 渲染样式与脚本引用。
func (r *Renderer) RenderHead() ([]byte, error) {
	var buf bytes.Buffer
	view := headView{Assets: r.baseURL + "/assets", Vendors: r.includeVendors}
	if err := headTemplate.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRender, err)
	}
	return buf.Bytes(), nil
}

// Render 渲染挂载点与数据集脚本，暂存的数据集先于当前数据集加入。
func (r *Renderer) Render(p Page) ([]byte, error) {
	current, err := encodeDataset(Dataset{ID: p.ID, Data: p.Data})
	if err != nil {
		return nil, err
	}
	view := bodyView{OpenURL: r.openURL, Nonce: r.nonce, Current: current}
	for _, ds := range p.Stacked {
		enc, err := encodeDataset(ds)
		if err != nil {
			return nil, err
		}
		view.Stacked = append(view.Stacked, enc)
	}

	var buf bytes.Buffer
	if err := bodyTemplate.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRender, err)
	}
	return buf.Bytes(), nil
}

// Markup 返回 RenderHead 与 Render 拼接后的完整片段。
func (r *Renderer) Markup(p Page) ([]byte, error) {
	head, err := r.RenderHead()
	if err != nil {
		return nil, err
	}
	body, err := r.Render(p)
	if err != nil {
		return nil, err
	}
	return append(head, body...), nil
}

// encodeDataset 序列化数据集。json.Marshal 会转义 <、>、&，可以直接放进 <script>。
func encodeDataset(ds Dataset) (encodedDataset, error) {
	data, err := json.Marshal(ds.Data)
	if err != nil {
		return encodedDataset{}, fmt.Errorf("%w: dataset %s: %w", ErrEncode, ds.ID, err)
	}
	return encodedDataset{ID: ds.ID, JSON: template.JS(data)}, nil //nolint:gosec // json.Marshal 已做 HTML 转义
}
